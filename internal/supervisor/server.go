package supervisor

import (
	"context"
	"net"
	"sync"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/bigbag/wuart/internal/bridge"
	"github.com/bigbag/wuart/internal/transport"
)

// Server accepts peer connections and runs one responder session for each.
type Server struct {
	Addr       string
	BufferSize int

	// Session configures each session; Role is set by the server.
	Session bridge.Options

	Logger zerolog.Logger

	conns atomic.Uint64
	wg    sync.WaitGroup
}

// Connections returns how many connections were accepted so far.
func (s *Server) Connections() uint64 {
	return s.conns.Load()
}

// ListenAndServe listens on Addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.Addr)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then closes ln and
// waits for the running sessions to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := s.Logger.With().Str("component", "server").Logger()
	logger.Info().Str("address", ln.Addr().String()).Msg("server started")

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	defer func() {
		s.wg.Wait()
		logger.Info().Uint64("connections", s.conns.Load()).Msg("server stopped")
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				logger.Warn().Err(err).Msg("accept failed")
				continue
			}
			return errors.Wrap(err, "accept")
		}

		id := s.conns.Inc()
		s.wg.Add(1)
		go s.handleConnection(ctx, conn, id, logger)
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn, id uint64, logger zerolog.Logger) {
	defer func() {
		conn.Close()
		s.wg.Done()
	}()

	logger = logger.With().Uint64("conn", id).Logger()

	opts := s.Session
	opts.Role = bridge.Responder
	opts.Logger = logger

	session := bridge.NewSession(transport.New(conn, s.BufferSize), opts)
	logger.Info().
		Str("remote", conn.RemoteAddr().String()).
		Str("session", session.ID()).
		Msg("client joined")

	if err := session.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error().Err(err).Msg("session failed")
	}

	logger.Info().Str("remote", conn.RemoteAddr().String()).Msg("client exited")
}
