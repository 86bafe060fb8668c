package zvt

import "sync/atomic"

// atomicBool encapsulates a boolean value that is safe to read and to
// conditionally transition across go-routines. The orchestrator uses it for
// the awaiting-acknowledge window, which the transport's receive callback
// observes from an arbitrary thread.
type atomicBool int32

// Value returns the current boolean value
func (a *atomicBool) Value() bool {
	return atomic.LoadInt32((*int32)(a)) == 1
}

// Set unconditionally stores the given value
func (a *atomicBool) Set(v bool) {
	var i int32
	if v {
		i = 1
	}
	atomic.StoreInt32((*int32)(a), i)
}

// SetIfFalse transitions false -> true. Returns true if the transition
// happened, false if the value was already true.
func (a *atomicBool) SetIfFalse() bool {
	return atomic.CompareAndSwapInt32((*int32)(a), 0, 1)
}
