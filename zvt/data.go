package zvt

// ProcessState is the codec's verdict on a received byte sequence. The set
// is open ended; the orchestrator only acts on Processed and passes any
// other value through without triggering completion handling.
type ProcessState int

const (
	// NotProcessed - the bytes did not form a complete, actionable packet
	NotProcessed ProcessState = iota

	// Processed - the bytes formed a complete business packet that now
	// needs a completion decision
	Processed
)

// ProcessData is the result of handing a received byte sequence to the
// registered codec. Response is an optional parsed response, opaque to this
// package.
type ProcessData struct {
	State    ProcessState
	Response interface{}
}

// CompletionState is the decision communicated back to the terminal for a
// processed packet.
type CompletionState int

const (
	// Successful - approve, positive completion
	Successful CompletionState = iota

	// Failure - decline, issue-of-goods negative completion
	Failure

	// Wait - defer the decision; the terminal is kept alive until the
	// application resolves the cycle
	Wait

	// ChangeAmount - approve with a changed amount
	ChangeAmount
)

func (s CompletionState) String() string {
	switch s {
	case Successful:
		return "successful"
	case Failure:
		return "failure"
	case Wait:
		return "wait"
	case ChangeAmount:
		return "change-amount"
	default:
		return "unknown"
	}
}

// CompletionInfo carries one completion decision. Amount is meaningful only
// when State is ChangeAmount and is expressed in major units (12.34 = 12.34
// EUR).
type CompletionInfo struct {
	State  CompletionState
	Amount float64
}

// SendCommandResult is the terminal outcome of one command/acknowledge
// cycle.
type SendCommandResult int

const (
	// SendFailure - the link-level send itself failed
	SendFailure SendCommandResult = iota

	// NoDataReceived - nothing arrived within the acknowledge timeout
	NoDataReceived

	// PositiveCompletionReceived - the terminal acknowledged the command
	PositiveCompletionReceived

	// NotSupported - the terminal does not support the command
	NotSupported

	// NegativeCompletionReceived - the terminal rejected the command
	NegativeCompletionReceived

	// UnknownFailure - a response arrived but matched no known sequence
	UnknownFailure
)

func (r SendCommandResult) String() string {
	switch r {
	case SendFailure:
		return "send-failure"
	case NoDataReceived:
		return "no-data-received"
	case PositiveCompletionReceived:
		return "positive-completion-received"
	case NotSupported:
		return "not-supported"
	case NegativeCompletionReceived:
		return "negative-completion-received"
	case UnknownFailure:
		return "unknown-failure"
	default:
		return "unknown"
	}
}
