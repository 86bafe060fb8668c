package zvt

import (
	"sync"
	"time"

	"github.com/armon/go-metrics"
	log "github.com/sirupsen/logrus"
)

// CompletionCoordinator serializes the pending-completion state of one
// connection and owns the deferred keep-alive that stalls the terminal's own
// timeout when the application takes too long to decide.
//
// A cycle is pending between a Wait decision (MarkPending) and its
// resolution (Resolve). If the keep-alive delay elapses first, a more-time
// response is sent to the terminal and the cycle stays pending; the
// application still has to resolve it.
type CompletionCoordinator struct {
	// send delivers encoded completion bytes to the terminal
	send func(data []byte) error

	// delay before the deferred keep-alive fires
	keepAliveDelay time.Duration

	// mu guards pending and keepAlive; the pending check and the
	// resulting send happen under the same lock so that the timer firing
	// and an explicit resolution can never both send
	mu        sync.Mutex
	pending   bool
	keepAlive *time.Timer
}

// NewCompletionCoordinator creates a coordinator that sends terminal-facing
// bytes through the given send func.
func NewCompletionCoordinator(send func(data []byte) error) *CompletionCoordinator {
	return &CompletionCoordinator{
		send:           send,
		keepAliveDelay: KeepAliveDelay,
	}
}

// MarkPending records that a completion decision is owed to the terminal and
// arms the one-shot deferred keep-alive.
func (cc *CompletionCoordinator) MarkPending() {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	if cc.pending {
		// terminal polled again while a cycle is already pending;
		// re-arm the keep-alive for the fresh poll
		log.WithField("method", "CompletionCoordinator.MarkPending").
			Debugf("completion already pending, re-arming keep-alive")
		if cc.keepAlive != nil {
			cc.keepAlive.Stop()
		}
	}

	cc.pending = true
	cc.keepAlive = time.AfterFunc(cc.keepAliveDelay, cc.keepAliveFire)
}

// Pending reports whether a completion decision is still owed.
func (cc *CompletionCoordinator) Pending() bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.pending
}

// Resolve ends a pending completion cycle with the given decision and sends
// the encoded completion to the terminal.
//
// Resolving with Wait is a contract violation and fails with
// ErrResolveWithWait. Resolving when no cycle is pending is tolerated (the
// terminal may poll after the application already answered) and is only
// logged.
func (cc *CompletionCoordinator) Resolve(info CompletionInfo) error {
	ctxLog := log.WithFields(log.Fields{
		"method": "CompletionCoordinator.Resolve",
		"state":  info.State})

	if info.State == Wait {
		ctxLog.Errorf("wait is not a valid resolution")
		return ErrResolveWithWait
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()

	if !cc.pending {
		ctxLog.Warnf("no completion pending, resolution ignored")
		return nil
	}

	cc.pending = false
	if cc.keepAlive != nil {
		cc.keepAlive.Stop()
		cc.keepAlive = nil
	}

	cc.sendCompletion(ctxLog, info)
	return nil
}

// complete encodes and sends a dispatch-time decision for which no cycle was
// ever pending (auto-approve, or a callback answering without Wait).
func (cc *CompletionCoordinator) complete(info CompletionInfo) {
	ctxLog := log.WithFields(log.Fields{
		"method": "CompletionCoordinator.complete",
		"state":  info.State})

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.sendCompletion(ctxLog, info)
}

// keepAliveFire runs on the timer's go-routine when the keep-alive delay
// elapses with the cycle still pending. It stalls the terminal with a
// more-time response and leaves the cycle pending.
func (cc *CompletionCoordinator) keepAliveFire() {
	ctxLog := log.WithField("method", "CompletionCoordinator.keepAliveFire")

	cc.mu.Lock()
	defer cc.mu.Unlock()

	if !cc.pending {
		// resolved between the timer firing and the lock acquisition
		return
	}

	ctxLog.Debugf("completion still pending, sending more-time response")
	metrics.IncrCounter([]string{"zvt", "keepalive_sent"}, 1)
	if err := cc.send(MoreTimeAck); err != nil {
		ctxLog.Errorf("more-time send failed err=%v", err)
	}
}

// sendCompletion encodes info and sends it. Callers hold cc.mu. A failed
// send is best effort: the terminal may already have timed out on its side,
// so the failure is logged and the cycle stays resolved.
func (cc *CompletionCoordinator) sendCompletion(ctxLog *log.Entry, info CompletionInfo) {
	metrics.IncrCounter([]string{"zvt", "completions_sent"}, 1)
	if err := cc.send(encodeCompletion(info)); err != nil {
		ctxLog.Errorf("completion send failed err=%v", err)
	}
}

// encodeCompletion maps a completion decision to its wire bytes.
func encodeCompletion(info CompletionInfo) []byte {
	switch info.State {
	case Failure:
		return IssueGoodsNegative
	case ChangeAmount:
		buf := make([]byte, 0, len(ChangeAmountControlField)+1+amountFieldSize)
		buf = append(buf, ChangeAmountControlField...)
		buf = append(buf, 0x04) // BMP 04, amount
		return append(buf, bcdAmount(info.Amount)...)
	case Wait:
		return MoreTimeAck
	default:
		return PositiveAck
	}
}
