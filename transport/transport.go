// Package transport provides byte links to a payment terminal. A link owns
// the read side of the connection and pushes every inbound frame into a
// registered handler; the handshake layer on top never touches the socket or
// port directly.
package transport

import (
	"context"
	"errors"
)

// Handler consumes one inbound frame. Frames are delivered one at a time in
// arrival order on the link's reader go-routine.
type Handler func(data []byte)

// Link is a bidirectional byte link to a payment terminal.
type Link interface {
	// Send delivers one outbound frame. The context bounds the send.
	Send(ctx context.Context, data []byte) error

	// OnReceived registers the handler for inbound frames. Register
	// before any traffic is expected; frames arriving with no handler
	// registered are dropped.
	OnReceived(h Handler)

	// Close tears the link down. Send fails after Close.
	Close() error
}

var (
	// ErrLinkClosed - the link is closed or was never opened
	ErrLinkClosed = errors.New("link is closed")
)

const readBufferSize = 4096
