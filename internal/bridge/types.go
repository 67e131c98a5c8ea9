package bridge

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/bigbag/wuart/internal/protocol"
)

// Role selects which side of the bridge a session plays.
type Role int

const (
	// Initiator owns the local serial device and dials out.
	Initiator Role = iota
	// Responder accepts connections and opens the device it is told to.
	Responder
)

func (r Role) String() string {
	switch r {
	case Initiator:
		return "initiator"
	case Responder:
		return "responder"
	default:
		return "unknown"
	}
}

// State is the session lifecycle state.
type State int32

const (
	Unconfigured State = iota
	Configuring
	Running
	Stopped
	Closed
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Configuring:
		return "configuring"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Direction tells which way serial payload moved.
type Direction int

const (
	// ToDevice is payload received from the peer and written to serial.
	ToDevice Direction = iota
	// FromDevice is payload read from serial and sent to the peer.
	FromDevice
)

// Device is an open serial device. A session owns its device exclusively.
type Device interface {
	Write(data []byte) (int, error)
	ReadAvailable(max int) ([]byte, error)
	Close() error
}

// DeviceOpener opens the serial device at path.
type DeviceOpener func(path string, baud int) (Device, error)

// Link is the duplex byte stream to the peer. Receive returns nil, nil when
// nothing arrived within timeout and io.EOF once the peer is gone.
type Link interface {
	Send(data []byte) error
	Receive(timeout time.Duration) ([]byte, error)
	RemoteAddr() string
}

const (
	DefaultPollTimeout = 10 * time.Millisecond
	DefaultReadSize    = 4096
)

// Options configures a session.
type Options struct {
	Role  Role
	Codec protocol.Codec

	// PollTimeout bounds each wait on the link before the device is polled.
	PollTimeout time.Duration
	// ReadSize caps the serial bytes carried by one data frame.
	ReadSize int

	// Path and Baud are pushed to the responder by an initiator.
	Path string
	Baud int

	// Device is the already open local device of an initiator.
	Device Device
	// Open is used by a responder to open the configured device.
	Open DeviceOpener

	// OnTraffic, when set, is called with the size of every payload
	// forwarded in either direction.
	OnTraffic func(dir Direction, n int)

	Logger zerolog.Logger
}

func (o *Options) setDefaults() {
	if o.PollTimeout <= 0 {
		o.PollTimeout = DefaultPollTimeout
	}
	if o.ReadSize <= 0 {
		o.ReadSize = DefaultReadSize
	}
}

// Stats is a snapshot of session counters.
type Stats struct {
	FramesIn        uint64
	FramesOut       uint64
	BytesToDevice   uint64
	BytesFromDevice uint64
	Discarded       uint64
	ErrorsSent      uint64
	ErrorsReceived  uint64
}
