// Package zvt implements the command/acknowledge/completion handshake of the
// ZVT ECR<->PT protocol. It sits between a raw byte link and a higher level
// packet codec: it sends a command and waits for the terminal's acknowledge
// within a bounded time, classifies the terminal's answer, services requests
// to delay a completion ("wait") with keep-alive responses, and hands
// unsolicited business packets to the registered codec.
package zvt

import (
	"errors"
	"time"
)

var (
	// ErrResolveWithWait - a completion may not be resolved with the Wait
	// state; Wait is an internal signal, never an external resolution
	ErrResolveWithWait = errors.New("completion cannot be resolved with the wait state")
)

const (
	// DefaultAcknowledgeTimeout bounds the wait for the terminal's
	// acknowledge after a command is sent
	DefaultAcknowledgeTimeout = 5 * time.Second

	// KeepAliveDelay is the fixed delay after which a pending completion
	// sends a more-time response to stall the terminal's own timeout
	KeepAliveDelay = 10 * time.Second
)
