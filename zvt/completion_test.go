package zvt

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// byteRecorder collects everything sent through the coordinator
type byteRecorder struct {
	mu   sync.Mutex
	sent [][]byte
}

func (r *byteRecorder) send(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, append(data[:0:0], data...))
	return nil
}

func (r *byteRecorder) all() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append(r.sent[:0:0], r.sent...)
}

func newTestCoordinator(keepAliveDelay time.Duration) (*CompletionCoordinator, *byteRecorder) {
	rec := &byteRecorder{}
	cc := NewCompletionCoordinator(rec.send)
	cc.keepAliveDelay = keepAliveDelay
	return cc, rec
}

func TestCompletionCoordinator_ResolveBeforeKeepAlive(t *testing.T) {
	cc, rec := newTestCoordinator(50 * time.Millisecond)

	cc.MarkPending()
	assert.Truef(t, cc.Pending(), "expect a pending completion after MarkPending")
	assert.Emptyf(t, rec.all(), "expect no bytes sent while pending")

	err := cc.Resolve(CompletionInfo{State: Successful})
	assert.Nilf(t, err, "expect err to be nil")
	assert.Falsef(t, cc.Pending(), "expect the cycle to be resolved")

	// keep-alive must not fire after resolution
	time.Sleep(150 * time.Millisecond)
	sent := rec.all()
	assert.Equalf(t, 1, len(sent), "expect exactly one send")
	assert.Equalf(t, []byte{0x80, 0x00, 0x00}, sent[0], "expect a positive ack")
}

func TestCompletionCoordinator_KeepAliveFires(t *testing.T) {
	cc, rec := newTestCoordinator(30 * time.Millisecond)

	cc.MarkPending()
	time.Sleep(120 * time.Millisecond)

	sent := rec.all()
	assert.Equalf(t, 1, len(sent), "expect exactly one keep-alive send")
	assert.Equalf(t, []byte{0x84, 0x9C, 0x00}, sent[0], "expect the more-time response")
	assert.Truef(t, cc.Pending(), "expect the cycle to still be pending after keep-alive")

	err := cc.Resolve(CompletionInfo{State: Failure})
	assert.Nilf(t, err, "expect err to be nil")
	sent = rec.all()
	assert.Equalf(t, 2, len(sent), "expect the resolution send")
	assert.Equalf(t, []byte{0x84, 0x66, 0x00}, sent[1], "expect the issue-goods negative")
}

func TestCompletionCoordinator_ResolveWithoutPending(t *testing.T) {
	cc, rec := newTestCoordinator(time.Hour)

	err := cc.Resolve(CompletionInfo{State: Successful})
	assert.Nilf(t, err, "expect a stray resolution to be tolerated")
	assert.Emptyf(t, rec.all(), "expect no bytes sent")
}

func TestCompletionCoordinator_ResolveWithWait(t *testing.T) {
	cc, rec := newTestCoordinator(time.Hour)

	cc.MarkPending()
	err := cc.Resolve(CompletionInfo{State: Wait})
	assert.Equalf(t, ErrResolveWithWait, err, "expect ErrResolveWithWait")
	assert.Truef(t, cc.Pending(), "expect the cycle to remain pending")
	assert.Emptyf(t, rec.all(), "expect no bytes sent")

	err = cc.Resolve(CompletionInfo{State: Successful})
	assert.Nilf(t, err, "expect err to be nil")
	assert.Falsef(t, cc.Pending(), "expect the cycle to be resolved")
}

func TestCompletionCoordinator_DoubleResolve(t *testing.T) {
	cc, rec := newTestCoordinator(time.Hour)

	cc.MarkPending()
	err := cc.Resolve(CompletionInfo{State: Successful})
	assert.Nilf(t, err, "expect err to be nil")

	// the terminal polling after the application already answered
	err = cc.Resolve(CompletionInfo{State: Successful})
	assert.Nilf(t, err, "expect the duplicate resolution to be tolerated")
	assert.Equalf(t, 1, len(rec.all()), "expect exactly one send")
}
