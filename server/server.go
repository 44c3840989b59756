package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/nickyhof/tablekv/db"
	"github.com/nickyhof/tablekv/metrics"
)

type Options struct {
	// Concurrency serves every connection on its own goroutine. Otherwise
	// connections are served one at a time in accept order.
	Concurrency bool
	// CommandRate limits each session to that many commands per second.
	// Zero disables the limit.
	CommandRate  float64
	CommandBurst int
}

// Server accepts client connections and runs a Session on each.
type Server struct {
	engine *db.Engine
	auth   *Authenticator
	opts   Options

	listener net.Listener
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func NewServer(engine *db.Engine, auth *Authenticator, opts Options) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		engine: engine,
		auth:   auth,
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
		conns:  make(map[net.Conn]struct{}),
	}
}

// Authenticator returns the credential checker, for hot reloads.
func (s *Server) Authenticator() *Authenticator {
	return s.auth
}

// Start begins listening for connections on the specified address.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener

	slog.Info("Server listening", "addr", listener.Addr().String(), "concurrency", s.opts.Concurrency)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop closes the listener and every live connection, then waits for the
// sessions to return. It is safe to call more than once.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		s.cancel()
		if s.listener != nil {
			s.listener.Close()
		}
		s.mu.Lock()
		for conn := range s.conns {
			conn.Close()
		}
		s.mu.Unlock()
	})
	s.wg.Wait()
	return nil
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			slog.Warn("Accept error", "err", err)
			continue
		}

		if !s.track(conn) {
			conn.Close()
			return
		}
		if s.opts.Concurrency {
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.handleConnection(conn)
			}()
		} else {
			s.handleConnection(conn)
		}
	}
}

// track registers conn so Stop can close it. It fails once Stop has begun.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) handleConnection(conn net.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	metrics.SessionsActive.Inc()
	defer metrics.SessionsActive.Dec()

	s.newSession(conn).Serve(s.ctx)
}
