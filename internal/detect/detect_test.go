package detect

import (
	"testing"

	"github.com/go-faster/errors"
)

func TestFirstPort_ReturnsFirstThatOpens(t *testing.T) {
	var tried []string
	open := func(name string) (string, error) {
		tried = append(tried, name)
		if name == "/dev/ttyUSB1" {
			return "handle:" + name, nil
		}
		return "", errors.New("busy")
	}

	name, handle, err := FirstPort([]string{"/dev/ttyS0", "/dev/ttyUSB1", "/dev/ttyUSB2"}, open)
	if err != nil {
		t.Fatalf("FirstPort() error = %v", err)
	}
	if name != "/dev/ttyUSB1" || handle != "handle:/dev/ttyUSB1" {
		t.Errorf("FirstPort() = %q, %q, want /dev/ttyUSB1", name, handle)
	}
	if len(tried) != 2 {
		t.Errorf("FirstPort() tried %v, want to stop after the first success", tried)
	}
}

func TestFirstPort_NoPorts(t *testing.T) {
	_, _, err := FirstPort(nil, func(string) (int, error) { return 0, nil })
	if !errors.Is(err, ErrNoPorts) {
		t.Errorf("FirstPort(nil) error = %v, want ErrNoPorts", err)
	}
}

func TestFirstPort_AllFail(t *testing.T) {
	busy := errors.New("busy")
	_, _, err := FirstPort([]string{"a", "b"}, func(string) (int, error) { return 0, busy })
	if !errors.Is(err, busy) {
		t.Errorf("FirstPort() error = %v, want wrapped last error", err)
	}
}
