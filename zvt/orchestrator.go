package zvt

import (
	"context"
	"sync"
	"time"

	"github.com/armon/go-metrics"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Link is the byte transport underneath the orchestrator. Send delivers one
// outbound frame; inbound frames are pushed into Orchestrator.OnBytesReceived
// by whoever owns the link's read side.
type Link interface {
	Send(ctx context.Context, data []byte) error
}

// CodecHandler parses an unsolicited byte sequence into a ProcessData.
type CodecHandler func(data []byte) ProcessData

// DecisionHandler supplies the completion decision for a processed packet.
// Returning nil means "no opinion"; the orchestrator then auto-approves.
type DecisionHandler func() *CompletionInfo

// Orchestrator drives the command/acknowledge/completion handshake for one
// logical ECR<->PT connection.
//
// SendCommand calls must be serialized by the caller; at most one command may
// be outstanding at a time. OnBytesReceived may run on any go-routine the
// link chooses, but frames are assumed to be delivered in arrival order and
// one at a time.
type Orchestrator struct {
	link       Link
	completion *CompletionCoordinator

	codec  CodecHandler
	decide DecisionHandler

	// awaiting is true only in the window between sending a command and
	// resolving its outcome; it routes received bytes to the waiting
	// SendCommand instead of the dispatch path
	awaiting atomicBool

	// recvMu guards recvBuf and arrival. recvBuf nil means nothing was
	// received yet, as opposed to an empty frame.
	recvMu  sync.Mutex
	recvBuf []byte
	arrival chan struct{}
}

// NewOrchestrator creates an orchestrator on top of the given link.
func NewOrchestrator(link Link) *Orchestrator {
	return &Orchestrator{
		link: link,
		completion: NewCompletionCoordinator(func(data []byte) error {
			return link.Send(context.Background(), data)
		}),
	}
}

// RegisterCodec registers the packet codec invoked for unsolicited data.
// Register before wiring the link's read side.
func (o *Orchestrator) RegisterCodec(h CodecHandler) {
	o.codec = h
}

// RegisterDecisionHandler registers the business callback asked for a
// completion decision. Without one, processed packets are auto-approved.
func (o *Orchestrator) RegisterDecisionHandler(h DecisionHandler) {
	o.decide = h
}

// SendCommand sends one command and waits up to timeout for the terminal's
// acknowledge. A timeout <= 0 selects DefaultAcknowledgeTimeout. The wait
// ends early when a response arrives or when ctx is cancelled.
//
// Expected protocol outcomes, including link send failures and timeouts, are
// reported through the result value and never as errors.
func (o *Orchestrator) SendCommand(ctx context.Context, command []byte, timeout time.Duration) SendCommandResult {
	if timeout <= 0 {
		timeout = DefaultAcknowledgeTimeout
	}

	ctxLog := log.WithFields(log.Fields{
		"method":    "Orchestrator.SendCommand",
		"commandID": uuid.New().String()})

	o.recvMu.Lock()
	o.recvBuf = nil
	o.arrival = make(chan struct{}, 1)
	arrival := o.arrival
	o.recvMu.Unlock()
	o.awaiting.Set(true)

	ctxLog.Debugf("sending command % X", command)
	metrics.IncrCounter([]string{"zvt", "commands_sent"}, 1)
	if err := o.link.Send(ctx, command); err != nil {
		o.awaiting.Set(false)
		ctxLog.Errorf("link send failed err=%v", err)
		return SendFailure
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-arrival:
	case <-timer.C:
		ctxLog.Debugf("acknowledge wait timed out after %v", timeout)
	case <-ctx.Done():
		ctxLog.Debugf("acknowledge wait cancelled err=%v", ctx.Err())
	}

	o.awaiting.Set(false)

	o.recvMu.Lock()
	buf := o.recvBuf
	o.recvBuf = nil
	o.recvMu.Unlock()

	if buf == nil {
		return NoDataReceived
	}

	switch {
	case IsPositiveCompletion(buf):
		ctxLog.Debugf("positive completion % X", buf[:3])
		if len(buf) > 3 {
			// trailing bytes are a piggy-backed packet; re-submit
			// them as if newly received
			o.dispatch(buf[3:])
		}
		return PositiveCompletionReceived
	case IsNotSupported(buf):
		ctxLog.Warnf("command not supported by terminal")
		return NotSupported
	case IsNegativeCompletion(buf):
		ctxLog.Errorf("negative completion, terminal error code 0x%02X", buf[1])
		return NegativeCompletionReceived
	default:
		ctxLog.Errorf("unclassifiable response % X", buf)
		return UnknownFailure
	}
}

// OnBytesReceived is the link's receive callback. During the acknowledge
// window the bytes are stored for the waiting SendCommand and the wait is
// woken early; outside of it they are dispatched as unsolicited data.
func (o *Orchestrator) OnBytesReceived(data []byte) {
	if o.awaiting.Value() {
		o.recvMu.Lock()
		o.recvBuf = append(data[:0:0], data...)
		arrival := o.arrival
		o.recvMu.Unlock()

		if arrival != nil {
			select {
			case arrival <- struct{}{}:
			default:
			}
		}
		return
	}

	o.dispatch(data)
}

// SupplyCompletion resolves the pending completion cycle with the given
// decision. The application may call this at any time, typically faster than
// the terminal's own poll cycle. Resolving with Wait fails with
// ErrResolveWithWait.
func (o *Orchestrator) SupplyCompletion(info CompletionInfo) error {
	return o.completion.Resolve(info)
}

// dispatch hands one unsolicited byte sequence to the codec and, for a
// processed packet, obtains and executes the completion decision.
func (o *Orchestrator) dispatch(data []byte) {
	ctxLog := log.WithField("method", "Orchestrator.dispatch")

	if o.codec == nil {
		ctxLog.Warnf("no codec registered, discarding %d bytes", len(data))
		return
	}

	pd := o.codec(data)
	if pd.State != Processed {
		ctxLog.Debugf("codec state=%v, no completion handling", pd.State)
		return
	}

	metrics.IncrCounter([]string{"zvt", "packets_processed"}, 1)

	if o.decide == nil {
		// auto-approve when no business logic is wired up
		o.completion.complete(CompletionInfo{State: Successful})
		return
	}

	info := o.decide()
	if info == nil {
		o.completion.complete(CompletionInfo{State: Successful})
		return
	}

	if info.State == Wait {
		ctxLog.Debugf("decision deferred, marking completion pending")
		o.completion.MarkPending()
		return
	}

	o.completion.complete(*info)
}
