package supervisor

import (
	"context"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-faster/errors"
	"github.com/rs/zerolog"

	"github.com/bigbag/wuart/internal/bridge"
	"github.com/bigbag/wuart/internal/transport"
)

// DefaultRetryInterval is the fixed wait between client connection attempts.
const DefaultRetryInterval = 10 * time.Second

// Conn is a link the supervisor can close.
type Conn interface {
	bridge.Link
	io.Closer
}

// DialFunc connects to the remote bridge.
type DialFunc func(ctx context.Context, addr string) (Conn, error)

// ErrDisconnected is reported when a session ends without an error.
var ErrDisconnected = errors.New("supervisor: peer disconnected")

// Client keeps an initiator session to the remote bridge alive, reconnecting
// after a fixed delay whenever the device or the connection fails.
type Client struct {
	Addr          string
	DialTimeout   time.Duration
	RetryInterval time.Duration
	BufferSize    int

	// LocalPath and LocalBaud select the device opened on this machine.
	LocalPath string
	LocalBaud int

	// Session configures each session. Path and Baud are the remote device
	// pushed to the peer; Role and Device are set by the client.
	Session bridge.Options

	Open bridge.DeviceOpener
	Dial DialFunc
	// Timer paces the waits between attempts. Nil uses a real timer.
	Timer backoff.Timer

	Logger zerolog.Logger
}

// Run retries forever until ctx is cancelled, which ends it with a nil error.
func (c *Client) Run(ctx context.Context) error {
	if c.Open == nil {
		return errors.New("supervisor: client needs a device opener")
	}

	interval := c.RetryInterval
	if interval <= 0 {
		interval = DefaultRetryInterval
	}
	policy := backoff.WithContext(backoff.NewConstantBackOff(interval), ctx)

	dial := c.Dial
	if dial == nil {
		dial = c.dialTCP
	}

	logger := c.Logger.With().Str("component", "client").Str("server", c.Addr).Logger()

	attempt := 0
	connect := func() error {
		attempt++
		if attempt > 1 {
			logger.Info().Int("attempt", attempt).Msg("reconnecting")
		}

		err := c.runOnce(ctx, dial, logger)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if err == nil {
			return ErrDisconnected
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", wait).Msg("disconnected from server")
	}

	// connect never succeeds, so this only returns once ctx is done.
	err := backoff.RetryNotifyWithTimer(connect, policy, notify, c.Timer)
	if ctx.Err() != nil {
		logger.Info().Msg("client stopped")
		return nil
	}
	return err
}

func (c *Client) runOnce(ctx context.Context, dial DialFunc, logger zerolog.Logger) error {
	dev, err := c.Open(c.LocalPath, c.LocalBaud)
	if err != nil {
		return errors.Wrapf(err, "open device %s", c.LocalPath)
	}
	logger.Info().Str("device", c.LocalPath).Int("baud", c.LocalBaud).Msg("device opened")
	defer func() {
		if err := dev.Close(); err != nil {
			logger.Warn().Err(err).Str("device", c.LocalPath).Msg("device close failed")
		}
	}()

	logger.Info().Msg("connecting to server")
	conn, err := dial(ctx, c.Addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	logger.Info().Str("remote", conn.RemoteAddr()).Msg("connected to server")

	opts := c.Session
	opts.Role = bridge.Initiator
	opts.Device = dev
	opts.Logger = logger

	return bridge.NewSession(conn, opts).Run(ctx)
}

func (c *Client) dialTCP(ctx context.Context, addr string) (Conn, error) {
	conn, err := transport.Dial(ctx, addr, c.DialTimeout, c.BufferSize)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
