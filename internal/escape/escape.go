// Package escape implements the printable-ASCII escaping applied to packet
// values when both ends of a link enable encoding.
//
// Printable bytes (0x20..0x7E) pass through, a backslash is doubled and
// every other byte becomes the four-byte literal \xHH.
package escape

const (
	Backslash = '\\'
	hexDigits = "0123456789abcdef"
)

// decoder states
const (
	stateNormal = iota
	stateBackslash
	stateBackslashX
	stateHexDigit
)

func isPrintable(b byte) bool {
	return b >= 0x20 && b <= 0x7E
}

// Encode escapes data.
func Encode(data []byte) []byte {
	// Pre-allocate for the common mostly-printable case
	result := make([]byte, 0, len(data)+len(data)/4)

	for _, b := range data {
		switch {
		case b == Backslash:
			result = append(result, Backslash, Backslash)
		case isPrintable(b):
			result = append(result, b)
		default:
			result = append(result, Backslash, 'x', hexDigits[b>>4], hexDigits[b&0x0F])
		}
	}

	return result
}

// Decode reverses Encode.
// Malformed sequences are copied to the output unchanged; the number of
// such sequences is returned so callers can report them.
func Decode(data []byte) ([]byte, int) {
	result := make([]byte, 0, len(data))
	malformed := 0

	state := stateNormal
	var hi byte

	for _, b := range data {
		switch state {
		case stateNormal:
			if b == Backslash {
				state = stateBackslash
			} else {
				result = append(result, b)
			}
		case stateBackslash:
			switch b {
			case Backslash:
				result = append(result, Backslash)
				state = stateNormal
			case 'x', 'X':
				state = stateBackslashX
			default:
				result = append(result, Backslash, b)
				malformed++
				state = stateNormal
			}
		case stateBackslashX:
			if _, ok := hexValue(b); ok {
				hi = b
				state = stateHexDigit
			} else {
				result = append(result, Backslash, 'x', b)
				malformed++
				state = stateNormal
			}
		case stateHexDigit:
			if lo, ok := hexValue(b); ok {
				h, _ := hexValue(hi)
				result = append(result, h<<4|lo)
			} else {
				result = append(result, Backslash, 'x', hi, b)
				malformed++
			}
			state = stateNormal
		}
	}

	// Truncated sequence at end of input
	switch state {
	case stateBackslash:
		result = append(result, Backslash)
		malformed++
	case stateBackslashX:
		result = append(result, Backslash, 'x')
		malformed++
	case stateHexDigit:
		result = append(result, Backslash, 'x', hi)
		malformed++
	}

	return result, malformed
}

func hexValue(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	}
	return 0, false
}
