package protocol

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Version selects the frame layout. The two revisions are not wire
// compatible and are never auto-detected.
type Version int

const (
	// V1 frames end with the checksum byte.
	V1 Version = 1
	// V2 frames carry a trailing end marker after the checksum.
	V2 Version = 2
)

// ParseVersion validates a configured protocol revision.
func ParseVersion(v int) (Version, error) {
	switch Version(v) {
	case V1, V2:
		return Version(v), nil
	default:
		return 0, errors.Errorf("protocol: unsupported version %d", v)
	}
}

// TrailerSize returns the number of bytes following the payload.
func (v Version) TrailerSize() int {
	if v == V2 {
		return ChecksumSize + MarkerSize
	}
	return ChecksumSize
}

// MinFrameSize is the size of the smallest possible frame (one key byte).
func (v Version) MinFrameSize() int {
	return HeaderSize + 1 + v.TrailerSize()
}

// FrameSize returns the encoded size of a frame with payloadLen bytes of payload.
func (v Version) FrameSize(payloadLen int) int {
	return HeaderSize + payloadLen + v.TrailerSize()
}

func (v Version) String() string {
	return fmt.Sprintf("v%d", int(v))
}
