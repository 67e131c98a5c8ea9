package protocol

import (
	"bytes"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// FrameHandler receives each frame extracted by a Reassembler.
type FrameHandler func(Frame) error

// Reassembler accumulates received bytes and cuts them into frames.
type Reassembler struct {
	codec     Codec
	buf       []byte
	discarded atomic.Uint64
	frames    atomic.Uint64
	logger    zerolog.Logger
}

// NewReassembler creates a reassembler using codec.
func NewReassembler(codec Codec, logger zerolog.Logger) *Reassembler {
	return &Reassembler{
		codec:  codec,
		logger: logger,
	}
}

// Feed appends data and hands every complete frame to fn, in order. Each
// frame is removed from the buffer before fn runs. An error from fn stops
// the drain and is returned; the bytes after that frame stay buffered.
func (r *Reassembler) Feed(data []byte, fn FrameHandler) error {
	r.buf = append(r.buf, data...)

	for {
		res, err := r.codec.Parse(r.buf)
		if res.Skipped > 0 {
			r.skip(res.Skipped)
		}

		switch err {
		case nil:
			r.advance(res.Size)
			r.frames.Inc()

			f, malformed := r.codec.Unescape(res.Frame)
			if malformed > 0 {
				r.logger.Warn().
					Str("key", f.Key).
					Int("malformed", malformed).
					Msg("value carried malformed escape sequences")
			}
			r.logger.Debug().Stringer("frame", f).Msg("frame received")

			if err := fn(f); err != nil {
				return err
			}
		case ErrIncomplete:
			return nil
		default:
			r.collect()
			return nil
		}
	}
}

// collect bounds the buffer when it holds no marker at all. Only a trailing
// first marker byte can still grow into a frame.
func (r *Reassembler) collect() {
	if len(r.buf) == 0 || bytes.Contains(r.buf, startBytes) {
		return
	}
	keep := 0
	if r.buf[len(r.buf)-1] == startBytes[0] {
		keep = 1
	}
	r.skip(len(r.buf) - keep)
}

func (r *Reassembler) skip(n int) {
	if n <= 0 {
		return
	}
	r.discarded.Add(uint64(n))
	if e := r.logger.Debug(); e.Enabled() {
		e.Int("bytes", n).Msgf("skipped unframed bytes\n%s", Dump(r.buf[:n]))
	}
	r.advance(n)
}

func (r *Reassembler) advance(n int) {
	if n >= len(r.buf) {
		r.buf = r.buf[:0]
		return
	}
	r.buf = append(r.buf[:0], r.buf[n:]...)
}

// Buffered returns the number of bytes waiting for more data.
func (r *Reassembler) Buffered() int {
	return len(r.buf)
}

// Discarded returns the total number of bytes dropped as noise.
func (r *Reassembler) Discarded() uint64 {
	return r.discarded.Load()
}

// Frames returns the number of frames extracted so far.
func (r *Reassembler) Frames() uint64 {
	return r.frames.Load()
}
