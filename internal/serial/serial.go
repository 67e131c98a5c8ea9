package serial

import (
	"time"

	"github.com/go-faster/errors"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// DefaultReadTimeout bounds a single read when polling for available bytes.
const DefaultReadTimeout = time.Millisecond

// Port wraps a serial port opened in 8N1 mode.
type Port struct {
	port     serial.Port
	portName string
	baudRate int
}

// Open opens a serial port with the specified baud rate. Reads return after
// readTimeout when no bytes arrive.
func Open(portName string, baudRate int, readTimeout time.Duration) (*Port, error) {
	if baudRate <= 0 {
		return nil, errors.Errorf("invalid baud rate %d", baudRate)
	}
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}

	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, errors.Wrapf(err, "open port %s", portName)
	}

	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, errors.Wrap(err, "set read timeout")
	}

	return &Port{
		port:     port,
		portName: portName,
		baudRate: baudRate,
	}, nil
}

// Close closes the serial port.
func (p *Port) Close() error {
	if p.port != nil {
		return p.port.Close()
	}
	return nil
}

// Write writes all of data and waits until it has been transmitted.
func (p *Port) Write(data []byte) (int, error) {
	written := 0
	for written < len(data) {
		n, err := p.port.Write(data[written:])
		written += n
		if err != nil {
			return written, errors.Wrap(err, "write")
		}
		if n == 0 {
			return written, errors.New("write: no progress")
		}
	}
	if err := p.Drain(); err != nil {
		return written, err
	}
	return written, nil
}

// Drain waits until the output buffer has been transmitted.
func (p *Port) Drain() error {
	if err := p.port.Drain(); err != nil {
		return errors.Wrap(err, "drain")
	}
	return nil
}

// ReadAvailable returns the bytes that are already waiting, at most max. It
// returns an empty slice when nothing arrived within the read timeout.
func (p *Port) ReadAvailable(max int) ([]byte, error) {
	if max <= 0 {
		return nil, nil
	}

	buf := make([]byte, max)
	total := 0
	for total < max {
		n, err := p.port.Read(buf[total:])
		total += n
		if err != nil {
			return buf[:total], errors.Wrap(err, "read")
		}
		if n == 0 {
			break
		}
	}

	return buf[:total], nil
}

// PortName returns the port name.
func (p *Port) PortName() string {
	return p.portName
}

// BaudRate returns the current baud rate.
func (p *Port) BaudRate() int {
	return p.baudRate
}

// ListPorts returns a list of available serial ports.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "list ports")
	}
	return ports, nil
}

// PortInfo describes a serial port and its USB identity when there is one.
type PortInfo struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

// ListPortDetails returns the available serial ports with USB details.
func ListPortDetails() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "list port details")
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	return ports, nil
}
