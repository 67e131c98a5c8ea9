package transport

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/go-faster/errors"
)

// DefaultBufferSize is the receive chunk size.
const DefaultBufferSize = 4096

// Conn is a duplex byte stream over a network connection.
type Conn struct {
	conn net.Conn
	buf  []byte
}

// New wraps conn, receiving at most bufSize bytes per call.
func New(conn net.Conn, bufSize int) *Conn {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	return &Conn{
		conn: conn,
		buf:  make([]byte, bufSize),
	}
}

// Dial connects to addr. A zero timeout relies on ctx alone.
func Dial(ctx context.Context, addr string, timeout time.Duration, bufSize int) (*Conn, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}
	return New(conn, bufSize), nil
}

// Send writes all of data.
func (c *Conn) Send(data []byte) error {
	if _, err := c.conn.Write(data); err != nil {
		return errors.Wrap(err, "send")
	}
	return nil
}

// Receive waits up to timeout for data. It returns nil, nil when nothing
// arrived in time and io.EOF once the peer has closed the connection.
func (c *Conn) Receive(timeout time.Duration) ([]byte, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, errors.Wrap(err, "set read deadline")
	}

	n, err := c.conn.Read(c.buf)
	if n > 0 {
		out := make([]byte, n)
		copy(out, c.buf[:n])
		return out, nil
	}

	switch {
	case err == nil:
		return nil, nil
	case errors.Is(err, io.EOF):
		return nil, io.EOF
	case isTimeout(err):
		return nil, nil
	default:
		return nil, errors.Wrap(err, "receive")
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Close closes the connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
