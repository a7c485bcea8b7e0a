// File: internal/echoloop/echoloop.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Single-threaded TCP echo server driven by reactor.Queue and the transport
// driver. It exists to exercise the I/O layer end to end from the CLI.

package echoloop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-netio/address"
	"github.com/momentics/hioload-netio/affinity"
	"github.com/momentics/hioload-netio/api"
	"github.com/momentics/hioload-netio/control"
	"github.com/momentics/hioload-netio/internal/logger"
	"github.com/momentics/hioload-netio/pool"
	"github.com/momentics/hioload-netio/reactor"
	"github.com/momentics/hioload-netio/transport"
)

// Config describes one echo server.
type Config struct {
	IPv4    uint32 // host order
	Port    int    // 0 picks a free port
	Backlog int
	BufSize int
	Net     control.NetConfig
	Reactor control.ReactorConfig
}

// ConfigFrom fills a Config from the runtime configuration.
func ConfigFrom(cfg control.Config, ipv4 uint32, port int) Config {
	return Config{
		IPv4:    ipv4,
		Port:    port,
		Backlog: 128,
		BufSize: 16 * 1024,
		Net:     cfg.Net,
		Reactor: cfg.Reactor,
	}
}

// Server is created by Listen and driven by Serve.
type Server struct {
	cfg      Config
	lfd      int
	port     int
	sessions *sessionStore
	bufs     *pool.NativePool
	q        *reactor.Queue
	log      zerolog.Logger
}

// Listen opens the non-blocking listening socket.
func Listen(cfg Config) (*Server, error) {
	if cfg.Backlog <= 0 {
		cfg.Backlog = 128
	}
	if cfg.BufSize <= 0 {
		cfg.BufSize = 16 * 1024
	}
	if cfg.Reactor.Capacity <= 0 {
		cfg.Reactor.Capacity = 256
	}
	if cfg.Reactor.PollTimeoutMs <= 0 {
		cfg.Reactor.PollTimeoutMs = 100
	}

	lfd, err := transport.SocketTCP(false)
	if err != nil {
		return nil, err
	}
	sa, err := address.NewSockAddr(cfg.IPv4, cfg.Port)
	if err != nil {
		_ = transport.Close(lfd)
		return nil, err
	}
	defer address.FreeSockAddr(sa.Pointer())

	if err := transport.SetReuseAddr(lfd, true); err != nil {
		_ = transport.Close(lfd)
		return nil, err
	}
	if err := transport.Bind(lfd, sa); err != nil {
		_ = transport.Close(lfd)
		return nil, err
	}
	if err := transport.Listen(lfd, cfg.Backlog); err != nil {
		_ = transport.Close(lfd)
		return nil, err
	}
	ap, err := transport.LocalAddr(lfd)
	if err != nil {
		_ = transport.Close(lfd)
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		lfd:      lfd,
		port:     int(ap.Port()),
		sessions: newSessionStore(16),
		bufs:     pool.NewNativePool(cfg.BufSize, 64, pool.TagIO),
		log:      logger.Named("echoloop"),
	}
	control.Probes().RegisterProbe("echoloop.sessions", func() any { return s.Sessions() })
	return s, nil
}

// Port is the bound port.
func (s *Server) Port() int { return s.port }

// Sessions returns a snapshot of open connections.
func (s *Server) Sessions() []SessionInfo { return s.sessions.snapshot() }

// SessionCount is the number of open connections.
func (s *Server) SessionCount() int { return s.sessions.count() }

// Close releases a server whose Serve was never called. Serve releases its
// own resources on return.
func (s *Server) Close() error {
	if s.q != nil {
		return nil
	}
	s.bufs.Close()
	return transport.Close(s.lfd)
}

// Serve runs the loop on the calling goroutine, locked to its OS thread and
// pinned to Reactor.CPU when that is >= 0, until ctx is done. Cancellation is
// observed between polls, so it takes up to one poll timeout.
func (s *Server) Serve(ctx context.Context) error {
	unpin, err := affinity.Pin(s.cfg.Reactor.CPU)
	if err != nil {
		s.log.Warn().Err(err).Int("cpu", s.cfg.Reactor.CPU).Msg("cpu pinning unavailable")
	}
	defer unpin()

	q, err := reactor.NewQueue(s.cfg.Reactor.Capacity)
	if err != nil {
		return err
	}
	s.q = q
	defer s.shutdown()

	if err := s.arm(s.q.ReadFD, s.lfd); err != nil {
		return err
	}
	s.log.Info().Int("port", s.port).Str("backend", q.Backend().Name()).Msg("echo loop started")

	for ctx.Err() == nil {
		n, err := s.q.Poll(s.cfg.Reactor.PollTimeoutMs)
		if err != nil {
			return fmt.Errorf("echoloop: poll: %w", err)
		}
		for i := 0; i < n; i++ {
			ev := s.q.Event(i)
			switch {
			case ev.Err():
				s.log.Warn().Int("fd", ev.Fd).Int64("errno", ev.Data).Msg("registration rejected")
				if sess := s.sessions.fd(ev.Fd); sess != nil {
					s.closeSession(sess)
				}
			case ev.Fd == s.lfd:
				s.acceptAll()
			default:
				s.handle(ev)
			}
		}
	}
	return nil
}

// arm queues a registration, flushing the change list when it is full.
func (s *Server) arm(fn func(int, uint64) error, fd int) error {
	err := fn(fd, uint64(fd))
	if !errors.Is(err, api.ErrResourceExhausted) {
		return err
	}
	if err := s.q.Register(s.q.Offset()); err != nil {
		return err
	}
	return fn(fd, uint64(fd))
}

func (s *Server) acceptAll() {
	for {
		fd, res, err := transport.Accept(s.lfd)
		if res.IsRetry() {
			break
		}
		if err != nil {
			s.log.Warn().Err(err).Msg("accept failed")
			break
		}
		if err := transport.Configure(fd, s.cfg.Net); err != nil {
			s.log.Debug().Err(err).Int("fd", fd).Msg("socket options not applied")
		}
		buf, err := s.bufs.Get()
		if err != nil {
			s.log.Error().Err(err).Msg("no buffer for connection")
			_ = transport.Close(fd)
			continue
		}
		sess := &Session{ID: uuid.New(), Fd: fd, Opened: time.Now(), buf: buf}
		s.sessions.add(sess)
		if err := s.arm(s.q.ReadFD, fd); err != nil {
			s.closeSession(sess)
			continue
		}
		s.log.Debug().Str("session", sess.ID.String()).Int("fd", fd).Msg("session opened")
	}
	if err := s.arm(s.q.ReadFD, s.lfd); err != nil {
		s.log.Error().Err(err).Msg("listener re-arm failed")
	}
}

func (s *Server) handle(ev reactor.Fired) {
	sess := s.sessions.fd(ev.Fd)
	if sess == nil {
		return
	}
	if len(sess.pending) > 0 {
		s.flush(sess)
		return
	}

	res, err := transport.RecvRaw(sess.Fd, sess.buf, s.cfg.BufSize)
	n, ok := res.Bytes()
	switch {
	case res.IsRetry():
		s.rearm(sess, s.q.ReadFD)
		return
	case !ok:
		if err != nil {
			s.log.Debug().Err(err).Str("session", sess.ID.String()).Msg("recv failed")
		}
		s.closeSession(sess)
		return
	}
	sess.pending = append(sess.pending[:0], pool.Bytes(sess.buf, n)...)
	s.sessions.account(sess, n, 0)
	s.flush(sess)
}

// flush sends pending bytes and waits for writability while any remain.
func (s *Server) flush(sess *Session) {
	for len(sess.pending) > 0 {
		res, err := transport.Send(sess.Fd, sess.pending)
		n, ok := res.Bytes()
		if res.IsRetry() {
			s.rearm(sess, s.q.WriteFD)
			return
		}
		if !ok {
			s.log.Debug().Err(err).Str("session", sess.ID.String()).Msg("send failed")
			s.closeSession(sess)
			return
		}
		s.sessions.account(sess, 0, n)
		sess.pending = sess.pending[n:]
	}
	s.rearm(sess, s.q.ReadFD)
}

func (s *Server) rearm(sess *Session, fn func(int, uint64) error) {
	if err := s.arm(fn, sess.Fd); err != nil {
		s.log.Warn().Err(err).Str("session", sess.ID.String()).Msg("re-arm failed")
		s.closeSession(sess)
	}
}

func (s *Server) closeSession(sess *Session) {
	s.sessions.remove(sess)
	_ = transport.Close(sess.Fd)
	s.bufs.Put(sess.buf)
	s.log.Debug().Str("session", sess.ID.String()).Msg("session closed")
}

func (s *Server) shutdown() {
	for _, sess := range s.sessions.byFd {
		s.closeSession(sess)
	}
	_ = transport.Close(s.lfd)
	if err := s.q.Close(); err != nil {
		s.log.Warn().Err(err).Msg("queue close failed")
	}
	s.bufs.Close()
	s.log.Info().Int("port", s.port).Msg("echo loop stopped")
}
