package protocol

// Message keys understood by both ends of a link
const (
	KeyPath  = "path"
	KeyBaud  = "baud"
	KeyStart = "start"
	KeyStop  = "stop"
	KeyData  = "data"
	KeyError = "error"
)

// Frame markers and sizes
const (
	StartMarker = 0x2423 // little-endian on the wire: 0x23 0x24
	EndMarker   = 0x2324 // V2 only: 0x24 0x23

	MarkerSize   = 2
	LengthSize   = 4
	ChecksumSize = 1
	HeaderSize   = MarkerSize + LengthSize
)

// Default link parameters
const (
	DefaultPort     = 58266
	DefaultBaudRate = 115200
)

var startBytes = []byte{0x23, 0x24}

// KnownKey reports whether key is part of the protocol vocabulary.
func KnownKey(key string) bool {
	switch key {
	case KeyPath, KeyBaud, KeyStart, KeyStop, KeyData, KeyError:
		return true
	default:
		return false
	}
}
