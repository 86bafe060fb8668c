package zvt

import "bytes"

// Wire byte sequences exchanged during the acknowledge/completion handshake.
// All completion-class responses share the 0x84 control class, so the
// positive and not-supported sequences must be ruled out before a buffer is
// treated as a generic negative completion.
var (
	// PositiveAck - default positive completion (80 00 00)
	PositiveAck = []byte{0x80, 0x00, 0x00}

	// PositiveAckAlternate - positive completion in the 84 class (84 00 00)
	PositiveAckAlternate = []byte{0x84, 0x00, 0x00}

	// MoreTimeAck - terminal requesting or acknowledging more time (84 9C 00)
	MoreTimeAck = []byte{0x84, 0x9C, 0x00}

	// NotSupportedAck - command not supported by the terminal (84 83 00)
	NotSupportedAck = []byte{0x84, 0x83, 0x00}

	// IssueGoodsNegative - negative completion sent back on a declined
	// completion decision (84 66 00)
	IssueGoodsNegative = []byte{0x84, 0x66, 0x00}

	// ChangeAmountControlField - control field prefix for an amount-change
	// completion (84 9D), followed by BMP 04 and the BCD amount
	ChangeAmountControlField = []byte{0x84, 0x9D}
)

const negativeCompletionClass = 0x84

// IsPositiveCompletion reports whether the first three bytes of buf are one
// of the positive acknowledge sequences. Buffers shorter than three bytes
// never match.
func IsPositiveCompletion(buf []byte) bool {
	if len(buf) < 3 {
		return false
	}

	head := buf[:3]
	return bytes.Equal(head, PositiveAck) ||
		bytes.Equal(head, PositiveAckAlternate) ||
		bytes.Equal(head, MoreTimeAck)
}

// IsNotSupported reports whether buf starts with the not-supported sequence.
func IsNotSupported(buf []byte) bool {
	if len(buf) < 3 {
		return false
	}

	return bytes.Equal(buf[:3], NotSupportedAck)
}

// IsNegativeCompletion reports whether buf is a negative completion: any
// 0x84-class response that is neither positive nor not-supported. The second
// byte carries the terminal's error code.
func IsNegativeCompletion(buf []byte) bool {
	if len(buf) < 3 {
		return false
	}

	if IsPositiveCompletion(buf) || IsNotSupported(buf) {
		return false
	}

	return buf[0] == negativeCompletionClass
}
