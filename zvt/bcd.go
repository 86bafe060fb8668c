package zvt

import "math"

// amountFieldSize is the fixed width of a ZVT amount field: six BCD bytes,
// twelve digits, right aligned.
const amountFieldSize = 6

// bcdAmount encodes an amount in major units as a six byte, right aligned
// BCD field of the amount in minor units (12.34 -> 00 00 00 00 12 34).
// Amounts beyond twelve digits are truncated to the low twelve digits.
func bcdAmount(amount float64) []byte {
	cents := uint64(math.Round(amount * 100))

	buf := make([]byte, amountFieldSize)
	for i := amountFieldSize - 1; i >= 0; i-- {
		lo := byte(cents % 10)
		cents /= 10
		hi := byte(cents % 10)
		cents /= 10
		buf[i] = hi<<4 | lo
	}

	return buf
}
