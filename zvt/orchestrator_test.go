package zvt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// stubLink records sends and can deliver a canned response back into the
// orchestrator synchronously, the way a real link's read side would.
type stubLink struct {
	mu      sync.Mutex
	sent    [][]byte
	sendErr error
	onSend  func(data []byte)
}

func (s *stubLink) Send(ctx context.Context, data []byte) error {
	s.mu.Lock()
	s.sent = append(s.sent, append(data[:0:0], data...))
	s.mu.Unlock()

	if s.sendErr != nil {
		return s.sendErr
	}
	if s.onSend != nil {
		s.onSend(data)
	}
	return nil
}

func (s *stubLink) all() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(s.sent[:0:0], s.sent...)
}

func TestSendCommand_PositiveCompletion(t *testing.T) {
	link := &stubLink{}
	o := NewOrchestrator(link)
	link.onSend = func(data []byte) {
		o.OnBytesReceived([]byte{0x80, 0x00, 0x00})
	}

	result := o.SendCommand(context.Background(), []byte{0x06, 0x00}, time.Second)
	assert.Equalf(t, PositiveCompletionReceived, result, "expect a positive completion")
}

func TestSendCommand_Timeout(t *testing.T) {
	link := &stubLink{}
	o := NewOrchestrator(link)

	start := time.Now()
	result := o.SendCommand(context.Background(), []byte{0x06, 0x00}, 100*time.Millisecond)
	elapsed := time.Since(start)

	assert.Equalf(t, NoDataReceived, result, "expect no data received")
	assert.Truef(t, elapsed >= 80*time.Millisecond, "expect the wait to be bounded, not instant (%v)", elapsed)
	assert.Truef(t, elapsed < time.Second, "expect the wait to not hang (%v)", elapsed)
}

func TestSendCommand_SendFailure(t *testing.T) {
	link := &stubLink{sendErr: errors.New("link down")}
	o := NewOrchestrator(link)

	start := time.Now()
	result := o.SendCommand(context.Background(), []byte{0x06, 0x00}, time.Second)
	elapsed := time.Since(start)

	assert.Equalf(t, SendFailure, result, "expect a send failure")
	assert.Truef(t, elapsed < 100*time.Millisecond, "expect the wait phase to be skipped (%v)", elapsed)
}

func TestSendCommand_CallerCancellation(t *testing.T) {
	link := &stubLink{}
	o := NewOrchestrator(link)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	result := o.SendCommand(ctx, []byte{0x06, 0x00}, 5*time.Second)
	elapsed := time.Since(start)

	assert.Equalf(t, NoDataReceived, result, "expect no data received on cancellation")
	assert.Truef(t, elapsed < time.Second, "expect the cancellation to shorten the wait (%v)", elapsed)
}

func TestSendCommand_ResponseClassification(t *testing.T) {
	var entries = []struct {
		response []byte
		expected SendCommandResult
	}{
		{[]byte{0x80, 0x00, 0x00}, PositiveCompletionReceived},
		{[]byte{0x84, 0x00, 0x00}, PositiveCompletionReceived},
		{[]byte{0x84, 0x9C, 0x00}, PositiveCompletionReceived},
		{[]byte{0x84, 0x83, 0x00}, NotSupported},
		{[]byte{0x84, 0x66, 0x00}, NegativeCompletionReceived},
		{[]byte{0x84, 0x1A, 0x00}, NegativeCompletionReceived},
		{[]byte{0x06, 0x0F, 0x00}, UnknownFailure},
		{[]byte{0x80, 0x00}, UnknownFailure},
	}

	for _, e := range entries {
		link := &stubLink{}
		o := NewOrchestrator(link)
		link.onSend = func(data []byte) {
			o.OnBytesReceived(e.response)
		}

		result := o.SendCommand(context.Background(), []byte{0x06, 0x00}, time.Second)
		assert.Equalf(t, e.expected, result,
			"expect response % X to classify as %v", e.response, e.expected)
	}
}

func TestSendCommand_ForwardsTrailingBytes(t *testing.T) {
	link := &stubLink{}
	o := NewOrchestrator(link)

	var dispatched [][]byte
	o.RegisterCodec(func(data []byte) ProcessData {
		dispatched = append(dispatched, append(data[:0:0], data...))
		return ProcessData{State: NotProcessed}
	})

	link.onSend = func(data []byte) {
		o.OnBytesReceived([]byte{0x80, 0x00, 0x00, 0x04, 0x0F, 0x02})
	}

	result := o.SendCommand(context.Background(), []byte{0x06, 0x00}, time.Second)
	assert.Equalf(t, PositiveCompletionReceived, result, "expect a positive completion")
	assert.Equalf(t, 1, len(dispatched), "expect one forwarded dispatch")
	assert.Equalf(t, []byte{0x04, 0x0F, 0x02}, dispatched[0], "expect exactly the trailing bytes")
}

func TestSendCommand_ExactAckForwardsNothing(t *testing.T) {
	link := &stubLink{}
	o := NewOrchestrator(link)

	codecCalls := 0
	o.RegisterCodec(func(data []byte) ProcessData {
		codecCalls++
		return ProcessData{State: NotProcessed}
	})

	link.onSend = func(data []byte) {
		o.OnBytesReceived([]byte{0x80, 0x00, 0x00})
	}

	result := o.SendCommand(context.Background(), []byte{0x06, 0x00}, time.Second)
	assert.Equalf(t, PositiveCompletionReceived, result, "expect a positive completion")
	assert.Equalf(t, 0, codecCalls, "expect no dispatch for an exact 3-byte ack")
}

func TestDispatch_AutoApproveWithoutDecisionHandler(t *testing.T) {
	link := &stubLink{}
	o := NewOrchestrator(link)
	o.RegisterCodec(func(data []byte) ProcessData {
		return ProcessData{State: Processed}
	})

	o.OnBytesReceived([]byte{0x04, 0x0F, 0x02})

	sent := link.all()
	assert.Equalf(t, 1, len(sent), "expect exactly one send")
	assert.Equalf(t, []byte{0x80, 0x00, 0x00}, sent[0], "expect an immediate positive ack")
}

func TestDispatch_NotProcessedTriggersNothing(t *testing.T) {
	link := &stubLink{}
	o := NewOrchestrator(link)
	o.RegisterCodec(func(data []byte) ProcessData {
		return ProcessData{State: NotProcessed}
	})

	decisions := 0
	o.RegisterDecisionHandler(func() *CompletionInfo {
		decisions++
		return &CompletionInfo{State: Successful}
	})

	o.OnBytesReceived([]byte{0x04, 0xFF})

	assert.Equalf(t, 0, decisions, "expect no completion decision")
	assert.Emptyf(t, link.all(), "expect no bytes sent")
}

func TestDispatch_ImmediateDecision(t *testing.T) {
	link := &stubLink{}
	o := NewOrchestrator(link)
	o.RegisterCodec(func(data []byte) ProcessData {
		return ProcessData{State: Processed}
	})
	o.RegisterDecisionHandler(func() *CompletionInfo {
		return &CompletionInfo{State: Failure}
	})

	o.OnBytesReceived([]byte{0x04, 0x0F, 0x02})

	sent := link.all()
	assert.Equalf(t, 1, len(sent), "expect exactly one send")
	assert.Equalf(t, []byte{0x84, 0x66, 0x00}, sent[0], "expect the issue-goods negative")
}

func TestDispatch_WaitThenSupplyCompletion(t *testing.T) {
	link := &stubLink{}
	o := NewOrchestrator(link)
	o.completion.keepAliveDelay = time.Hour

	o.RegisterCodec(func(data []byte) ProcessData {
		return ProcessData{State: Processed}
	})
	o.RegisterDecisionHandler(func() *CompletionInfo {
		return &CompletionInfo{State: Wait}
	})

	o.OnBytesReceived([]byte{0x04, 0x0F, 0x02})
	assert.Emptyf(t, link.all(), "expect no bytes sent while the decision is deferred")
	assert.Truef(t, o.completion.Pending(), "expect a pending completion")

	err := o.SupplyCompletion(CompletionInfo{State: Successful})
	assert.Nilf(t, err, "expect err to be nil")

	sent := link.all()
	assert.Equalf(t, 1, len(sent), "expect exactly one send")
	assert.Equalf(t, []byte{0x80, 0x00, 0x00}, sent[0], "expect a positive ack")
}

func TestSupplyCompletion_WaitIsRejected(t *testing.T) {
	link := &stubLink{}
	o := NewOrchestrator(link)

	err := o.SupplyCompletion(CompletionInfo{State: Wait})
	assert.Equalf(t, ErrResolveWithWait, err, "expect ErrResolveWithWait")
}

func TestOnBytesReceived_UnsolicitedGoesToCodec(t *testing.T) {
	link := &stubLink{}
	o := NewOrchestrator(link)

	var got []byte
	o.RegisterCodec(func(data []byte) ProcessData {
		got = append(data[:0:0], data...)
		return ProcessData{State: NotProcessed}
	})

	o.OnBytesReceived([]byte{0x04, 0xFF, 0x01, 0x02})
	assert.Equalf(t, []byte{0x04, 0xFF, 0x01, 0x02}, got,
		"expect the unsolicited bytes to reach the codec unchanged")
}
