package bridge

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/bigbag/wuart/internal/protocol"
)

var (
	// ErrNoDevice is returned when an initiator session starts without an open device.
	ErrNoDevice = errors.New("bridge: initiator needs an open device")
	// ErrNoOpener is returned when a responder session has no way to open devices.
	ErrNoOpener = errors.New("bridge: responder needs a device opener")
	// ErrDeviceFailed ends an initiator session after a serial I/O error.
	ErrDeviceFailed = errors.New("bridge: serial device failed")
)

// Messages reported to the peer in error frames.
const (
	msgNotRunning  = "service is not running."
	msgEmptyData   = "recv empty data."
	msgBaudInvalid = "baudrate invalid."
	msgNotReady    = "uart setup not ready."
	msgUnknownKey  = "unknown keyword: "
	msgOpenFail    = "uart open fail: "
	msgWriteFail   = "uart write fail: "
	msgReadFail    = "uart read fail: "
)

// Session bridges one peer connection to one serial device. All protocol
// handling happens on the goroutine running Run.
type Session struct {
	id     string
	link   Link
	opts   Options
	rx     *protocol.Reassembler
	logger zerolog.Logger

	device  Device
	devPath string
	devBaud int
	running bool

	state atomic.Int32
	path  atomic.String
	baud  atomic.Int64

	framesOut       atomic.Uint64
	bytesToDevice   atomic.Uint64
	bytesFromDevice atomic.Uint64
	errorsSent      atomic.Uint64
	errorsReceived  atomic.Uint64
}

// NewSession creates a session over link.
func NewSession(link Link, opts Options) *Session {
	opts.setDefaults()

	id := uuid.NewString()
	logger := opts.Logger.With().
		Str("session", id).
		Str("role", opts.Role.String()).
		Str("remote", link.RemoteAddr()).
		Logger()

	s := &Session{
		id:     id,
		link:   link,
		opts:   opts,
		rx:     protocol.NewReassembler(opts.Codec, logger),
		logger: logger,
	}
	if opts.Role == Initiator {
		s.device = opts.Device
		s.path.Store(opts.Path)
		s.baud.Store(int64(opts.Baud))
	}
	return s
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Path returns the configured device path.
func (s *Session) Path() string {
	return s.path.Load()
}

// Baud returns the configured baud rate, zero when unknown.
func (s *Session) Baud() int {
	return int(s.baud.Load())
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	return Stats{
		FramesIn:        s.rx.Frames(),
		FramesOut:       s.framesOut.Load(),
		BytesToDevice:   s.bytesToDevice.Load(),
		BytesFromDevice: s.bytesFromDevice.Load(),
		Discarded:       s.rx.Discarded(),
		ErrorsSent:      s.errorsSent.Load(),
		ErrorsReceived:  s.errorsReceived.Load(),
	}
}

func (s *Session) setState(st State) {
	if prev := State(s.state.Swap(int32(st))); prev != st {
		s.logger.Debug().Stringer("from", prev).Stringer("to", st).Msg("state changed")
	}
}

// Run services the link and the device until the peer disconnects, ctx is
// cancelled or an unrecoverable error occurs. A peer disconnect returns nil.
func (s *Session) Run(ctx context.Context) error {
	switch s.opts.Role {
	case Initiator:
		if s.device == nil {
			return ErrNoDevice
		}
	case Responder:
		if s.opts.Open == nil {
			return ErrNoOpener
		}
	}

	s.logger.Info().Msg("session started")
	defer s.teardown()

	if s.opts.Role == Initiator {
		if err := s.handshake(); err != nil {
			return err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := s.link.Receive(s.opts.PollTimeout)
		if errors.Is(err, io.EOF) {
			s.logger.Info().Msg("peer closed connection")
			return nil
		}
		if err != nil {
			return err
		}

		if len(data) > 0 {
			if err := s.rx.Feed(data, s.handleFrame); err != nil {
				return err
			}
		}

		if err := s.pollDevice(); err != nil {
			return err
		}
	}
}

// handshake pushes the remote device configuration, then starts it.
func (s *Session) handshake() error {
	s.setState(Configuring)
	if err := s.send(protocol.KeyPath, []byte(s.opts.Path)); err != nil {
		return err
	}
	if err := s.send(protocol.KeyBaud, []byte(strconv.Itoa(s.opts.Baud))); err != nil {
		return err
	}
	if err := s.send(protocol.KeyStart, nil); err != nil {
		return err
	}
	s.running = true
	s.setState(Running)
	return nil
}

func (s *Session) teardown() {
	if s.opts.Role == Responder {
		s.closeDevice()
	}
	s.running = false
	s.setState(Closed)

	st := s.Stats()
	s.logger.Info().
		Uint64("frames_in", st.FramesIn).
		Uint64("frames_out", st.FramesOut).
		Uint64("to_device", st.BytesToDevice).
		Uint64("from_device", st.BytesFromDevice).
		Uint64("discarded", st.Discarded).
		Msg("session finished")
}

func (s *Session) handleFrame(f protocol.Frame) error {
	switch s.opts.Role {
	case Responder:
		switch f.Key {
		case protocol.KeyPath:
			return s.handlePath(f.Value)
		case protocol.KeyBaud:
			return s.handleBaud(f.Value)
		case protocol.KeyStart:
			return s.start()
		case protocol.KeyStop:
			s.stop()
			return nil
		}
	}

	switch f.Key {
	case protocol.KeyData:
		return s.handleData(f.Value)
	case protocol.KeyError:
		s.errorsReceived.Inc()
		s.logger.Error().Str("reason", string(f.Value)).Msg("peer reported error")
		return nil
	default:
		return s.reportError(msgUnknownKey + f.Key)
	}
}

func (s *Session) handlePath(value []byte) error {
	s.path.Store(string(value))
	s.configuring()
	return s.autoStart()
}

func (s *Session) handleBaud(value []byte) error {
	baud, err := strconv.Atoi(strings.TrimSpace(string(value)))
	if err != nil || baud <= 0 {
		return s.reportError(msgBaudInvalid)
	}
	s.baud.Store(int64(baud))
	s.configuring()
	return s.autoStart()
}

func (s *Session) configuring() {
	if !s.running {
		s.setState(Configuring)
	}
}

func (s *Session) autoStart() error {
	if s.Path() != "" && s.Baud() > 0 {
		return s.start()
	}
	return nil
}

// start opens the configured device. It is a no-op when the same device is
// already open and reopens it when the configuration changed.
func (s *Session) start() error {
	path, baud := s.Path(), s.Baud()
	if path == "" || baud <= 0 {
		return s.reportError(msgNotReady)
	}

	if s.device != nil {
		if path == s.devPath && baud == s.devBaud {
			s.logger.Debug().Str("device", path).Int("baud", baud).Msg("device already open")
			return nil
		}
		s.logger.Warn().Str("device", s.devPath).Msg("closing previous device")
		s.closeDevice()
	}

	dev, err := s.opts.Open(path, baud)
	if err != nil {
		s.running = false
		if s.State() == Running {
			s.setState(Stopped)
		}
		return s.reportError(msgOpenFail + err.Error())
	}

	s.device = dev
	s.devPath, s.devBaud = path, baud
	s.running = true
	s.setState(Running)
	s.logger.Info().Str("device", path).Int("baud", baud).Msg("device opened")
	return nil
}

func (s *Session) stop() {
	s.closeDevice()
	s.running = false
	s.setState(Stopped)
}

func (s *Session) closeDevice() {
	if s.device == nil {
		return
	}
	if err := s.device.Close(); err != nil {
		s.logger.Warn().Err(err).Str("device", s.devPath).Msg("device close failed")
	} else {
		s.logger.Info().Str("device", s.devPath).Msg("device closed")
	}
	s.device = nil
}

func (s *Session) handleData(value []byte) error {
	if !s.running || s.device == nil {
		return s.reportError(msgNotRunning)
	}
	if len(value) == 0 {
		return s.reportError(msgEmptyData)
	}

	n, err := s.device.Write(value)
	if err != nil {
		return s.deviceFailed(msgWriteFail + err.Error())
	}
	s.bytesToDevice.Add(uint64(n))
	s.traffic(ToDevice, n)
	return nil
}

// pollDevice forwards pending serial bytes. Bytes read while not running are
// dropped so the device never backs up.
func (s *Session) pollDevice() error {
	if s.device == nil {
		return nil
	}

	data, err := s.device.ReadAvailable(s.opts.ReadSize)
	if err != nil {
		return s.deviceFailed(msgReadFail + err.Error())
	}
	if len(data) == 0 || !s.running {
		return nil
	}

	if err := s.send(protocol.KeyData, data); err != nil {
		return err
	}
	s.bytesFromDevice.Add(uint64(len(data)))
	s.traffic(FromDevice, len(data))
	return nil
}

// deviceFailed reports a serial I/O error to the peer. A responder drops the
// device and waits to be reconfigured; an initiator ends the session.
func (s *Session) deviceFailed(msg string) error {
	if err := s.reportError(msg); err != nil {
		return err
	}
	if s.opts.Role == Initiator {
		s.running = false
		s.setState(Stopped)
		return errors.Wrap(ErrDeviceFailed, msg)
	}
	s.stop()
	return nil
}

// reportError logs a protocol error and echoes it to the peer.
func (s *Session) reportError(msg string) error {
	s.logger.Error().Str("reason", msg).Msg("protocol error")
	s.errorsSent.Inc()
	return s.send(protocol.KeyError, []byte(msg))
}

func (s *Session) send(key string, value []byte) error {
	f := protocol.Frame{Key: key, Value: value}
	if err := s.link.Send(s.opts.Codec.EncodeFrame(f)); err != nil {
		return errors.Wrapf(err, "send %s", key)
	}
	s.framesOut.Inc()
	s.logger.Debug().Stringer("frame", f).Msg("frame sent")
	return nil
}

func (s *Session) traffic(dir Direction, n int) {
	if s.opts.OnTraffic != nil && n > 0 {
		s.opts.OnTraffic(dir, n)
	}
}
