package detect

import (
	"time"

	"github.com/go-faster/errors"

	"github.com/bigbag/wuart/internal/serial"
)

// Auto is the device path that asks for discovery instead of a fixed port.
const Auto = "auto"

// ErrNoPorts is returned when the system reports no serial ports.
var ErrNoPorts = errors.New("no serial ports found")

// FirstPort opens each of names in order and returns the first one that
// opens, together with the opened handle.
func FirstPort[T any](names []string, open func(name string) (T, error)) (string, T, error) {
	var zero T
	if len(names) == 0 {
		return "", zero, ErrNoPorts
	}

	var lastErr error
	for _, name := range names {
		handle, err := open(name)
		if err != nil {
			lastErr = err
			continue
		}
		return name, handle, nil
	}

	return "", zero, errors.Wrap(lastErr, "no usable serial port")
}

// OpenDevice opens path, or the first available serial port when path is
// Auto.
func OpenDevice(path string, baudRate int, readTimeout time.Duration) (*serial.Port, error) {
	if path != Auto {
		return serial.Open(path, baudRate, readTimeout)
	}

	ports, err := serial.ListPorts()
	if err != nil {
		return nil, err
	}

	_, port, err := FirstPort(ports, func(name string) (*serial.Port, error) {
		return serial.Open(name, baudRate, readTimeout)
	})
	return port, err
}
