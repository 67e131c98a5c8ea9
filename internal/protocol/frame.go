package protocol

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/go-faster/errors"

	"github.com/bigbag/wuart/internal/escape"
)

var (
	// ErrIncomplete means a candidate frame starts in the buffer but its
	// bytes have not all arrived yet.
	ErrIncomplete = errors.New("protocol: incomplete frame")
	// ErrNoFrame means the buffer holds no start marker.
	ErrNoFrame = errors.New("protocol: no frame")
)

// Frame is one decoded key/value message.
type Frame struct {
	Key   string
	Value []byte
}

// Payload returns key, or key=value when value is non-empty.
func (f Frame) Payload() []byte {
	if len(f.Value) == 0 {
		return []byte(f.Key)
	}
	payload := make([]byte, 0, len(f.Key)+1+len(f.Value))
	payload = append(payload, f.Key...)
	payload = append(payload, '=')
	payload = append(payload, f.Value...)
	return payload
}

func (f Frame) String() string {
	if len(f.Value) == 0 {
		return fmt.Sprintf("key=%s,val=None", f.Key)
	}
	return fmt.Sprintf("key=%s,val=0x%s", f.Key, hex.EncodeToString(f.Value))
}

// Checksum computes the XOR of all payload bytes.
func Checksum(payload []byte) byte {
	var checksum byte
	for _, b := range payload {
		checksum ^= b
	}
	return checksum
}

// splitPayload separates key and value at the first '='. A payload without
// '=' (or starting with it) is all key.
func splitPayload(payload []byte) Frame {
	idx := bytes.IndexByte(payload, '=')
	if idx <= 0 {
		return Frame{Key: string(payload)}
	}
	value := make([]byte, len(payload)-idx-1)
	copy(value, payload[idx+1:])
	return Frame{Key: string(payload[:idx]), Value: value}
}

// Codec encodes and parses frames for one protocol revision.
type Codec struct {
	Version Version
	// MaxPayload rejects markers announcing larger payloads as spurious.
	// Zero means no limit, and a corrupted length then holds Parse at
	// ErrIncomplete until that many bytes arrive.
	MaxPayload uint32
	// Escape applies the escape transform to values.
	Escape bool
}

// NewCodec returns a codec for version with no payload limit.
func NewCodec(version Version) Codec {
	return Codec{Version: version}
}

func (c Codec) version() Version {
	if c.Version == 0 {
		return V1
	}
	return c.Version
}

// Encode builds the wire bytes for key and value.
func (c Codec) Encode(key string, value []byte) []byte {
	if c.Escape && len(value) > 0 {
		value = escape.Encode(value)
	}
	payload := Frame{Key: key, Value: value}.Payload()
	v := c.version()

	// Packet format:
	// 0-1: start marker (little-endian 0x2423)
	// 2-5: payload length (little-endian)
	// 6+: payload
	// n: checksum
	// n+1..n+2: end marker (V2 only)
	packet := make([]byte, v.FrameSize(len(payload)))
	binary.LittleEndian.PutUint16(packet[0:2], StartMarker)
	binary.LittleEndian.PutUint32(packet[2:6], uint32(len(payload)))
	copy(packet[HeaderSize:], payload)
	packet[HeaderSize+len(payload)] = Checksum(payload)
	if v == V2 {
		binary.LittleEndian.PutUint16(packet[HeaderSize+len(payload)+1:], EndMarker)
	}

	return packet
}

// EncodeFrame is Encode for an already built frame.
func (c Codec) EncodeFrame(f Frame) []byte {
	return c.Encode(f.Key, f.Value)
}

// Result describes the outcome of one Parse call.
type Result struct {
	Frame Frame
	// Skipped counts garbage bytes ahead of the frame or pending frame.
	Skipped int
	// Size is the encoded size of Frame, zero when no frame was found.
	Size int
}

// Consumed is the number of leading buffer bytes the caller may discard.
func (r Result) Consumed() int {
	return r.Skipped + r.Size
}

// Parse extracts the next checksum-valid frame from buf.
//
// With ErrIncomplete, Skipped covers the garbage before a frame whose bytes
// have not all arrived. With ErrNoFrame, Skipped covers the spurious markers
// already stepped over; the marker-free rest is left for the caller's
// trimming policy. Values are returned as carried on the wire; see Unescape.
func (c Codec) Parse(buf []byte) (Result, error) {
	v := c.version()
	offset := 0

	for {
		rest := buf[offset:]
		idx := bytes.Index(rest, startBytes)
		if idx < 0 {
			return Result{Skipped: offset}, ErrNoFrame
		}
		if idx > 0 {
			// Noise before the marker
			offset += idx
			continue
		}

		if len(rest) < v.MinFrameSize() {
			return Result{Skipped: offset}, ErrIncomplete
		}

		size := binary.LittleEndian.Uint32(rest[MarkerSize:HeaderSize])
		if (c.MaxPayload > 0 && size > c.MaxPayload) || uint64(size) > math.MaxInt32 {
			offset += MarkerSize
			continue
		}

		total := v.FrameSize(int(size))
		if len(rest) < total {
			return Result{Skipped: offset}, ErrIncomplete
		}

		payload := rest[HeaderSize : HeaderSize+int(size)]
		if Checksum(payload) != rest[HeaderSize+int(size)] {
			// Coincidental marker bytes or corruption
			offset += MarkerSize
			continue
		}

		return Result{
			Frame:   splitPayload(payload),
			Skipped: offset,
			Size:    total,
		}, nil
	}
}

// Unescape reverses the escape transform on a parsed frame when Escape is
// set. It returns the number of malformed escape sequences passed through.
func (c Codec) Unescape(f Frame) (Frame, int) {
	if !c.Escape || len(f.Value) == 0 {
		return f, 0
	}
	value, malformed := escape.Decode(f.Value)
	return Frame{Key: f.Key, Value: value}, malformed
}
