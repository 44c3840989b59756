package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/nickyhof/tablekv/core"
	"github.com/nickyhof/tablekv/db"
	"github.com/nickyhof/tablekv/metrics"
	"github.com/nickyhof/tablekv/wire"
)

// Session serves one client connection. It starts unauthenticated and only a
// successful AUTH moves it on.
type Session struct {
	id      string
	conn    *wire.Conn
	engine  *db.Engine
	auth    *Authenticator
	limiter *rate.Limiter
	state   ConnectionState
	logger  *slog.Logger
	now     func() time.Time
}

func (s *Server) newSession(conn net.Conn) *Session {
	id := uuid.NewString()
	sess := &Session{
		id:     id,
		conn:   wire.NewConn(conn),
		engine: s.engine,
		auth:   s.auth,
		logger: slog.With("session", id, "remote", conn.RemoteAddr().String()),
		now:    time.Now,
	}
	if s.opts.CommandRate > 0 {
		sess.limiter = rate.NewLimiter(rate.Limit(s.opts.CommandRate), s.opts.CommandBurst)
	}
	return sess
}

// Serve reads and executes commands until the client leaves, a terminal
// error occurs or ctx is done.
func (sess *Session) Serve(ctx context.Context) {
	sess.logger.InfoContext(ctx, "Client connected")
	defer sess.logger.InfoContext(ctx, "Client disconnected")

	for {
		line, err := sess.conn.ReadLine()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
			case errors.Is(err, wire.ErrLineTooLong):
				sess.logger.WarnContext(ctx, "Request line too long")
				_ = sess.conn.WriteLine(wire.ErrUnknown)
			default:
				if ctx.Err() == nil {
					sess.logger.WarnContext(ctx, "Read error", "err", err)
				}
			}
			return
		}

		if sess.limiter != nil {
			if err := sess.limiter.Wait(ctx); err != nil {
				return
			}
		}

		start := time.Now()
		kind, token, err := sess.handle(ctx, line)
		metrics.ObserveCommand(kind.String(), token, time.Since(start))
		if err != nil {
			sess.logger.InfoContext(ctx, "Closing session", "command", kind.String(), "reply", token, "err", err)
			return
		}
	}
}

// handle executes one request line and writes its reply. A non-nil error
// ends the session.
func (sess *Session) handle(ctx context.Context, line string) (wire.Kind, string, error) {
	request, parseErr := wire.ParseRequest(line)
	if parseErr != nil && errors.Is(parseErr, core.ErrUnknown) {
		return request.Kind, wire.ErrUnknown, sess.reply(wire.ErrUnknown, parseErr)
	}

	if request.Kind != wire.KindAuth && !sess.state.IsAuthenticated(sess.now()) {
		return request.Kind, wire.ErrNotAuthenticated, sess.reply(wire.ErrNotAuthenticated, core.ErrNotAuthenticated)
	}

	if parseErr != nil {
		token := wire.ErrorToken(parseErr)
		return request.Kind, token, sess.reply(token, nil)
	}

	if request.Kind == wire.KindAuth {
		token, err := sess.authenticate(ctx, request)
		return request.Kind, token, err
	}

	result, err := sess.engine.Execute(request)
	if err != nil {
		token := wire.ErrorToken(err)
		sess.logger.DebugContext(ctx, "Command failed", "command", request.Kind.String(), "table", request.Table, "err", err)
		return request.Kind, token, sess.reply(token, nil)
	}

	switch r := result.(type) {
	case db.ValueResult:
		return request.Kind, wire.Success, sess.reply(wire.FormatValue(r.Value, r.Version), nil)
	case db.QueryResult:
		return request.Kind, wire.Success, sess.streamKeys(r.Keys)
	default:
		return request.Kind, wire.Success, sess.reply(wire.Success, nil)
	}
}

func (sess *Session) authenticate(ctx context.Context, request wire.Request) (string, error) {
	result, err := sess.auth.Verify(request.User, request.Password)
	if err != nil {
		sess.logger.WarnContext(ctx, "Authentication failed", "user", request.User, "err", err)
		return wire.ErrAuthenticationFailed, sess.reply(wire.ErrAuthenticationFailed, err)
	}

	sess.state.login(result)
	sess.logger.InfoContext(ctx, "Authenticated", "user", result.identity.String())
	return wire.Success, sess.reply(wire.Success, nil)
}

// reply writes line. A write failure, or a non-nil terminal, ends the
// session.
func (sess *Session) reply(line string, terminal error) error {
	if err := sess.conn.WriteLine(line); err != nil {
		return fmt.Errorf("%w: %w", core.ErrConnectionFail, err)
	}
	return terminal
}

// streamKeys sends one line per key, counting down the lines still to come,
// and waits for the client to acknowledge each with SUCCESS.
func (sess *Session) streamKeys(keys []string) error {
	if len(keys) == 0 {
		return sess.reply(wire.QueryEmpty, nil)
	}

	for i, key := range keys {
		if err := sess.reply(wire.FormatQueryLine(len(keys)-1-i, key), nil); err != nil {
			return err
		}
		ack, err := sess.conn.ReadLine()
		if err != nil {
			return fmt.Errorf("%w: waiting for acknowledgement: %w", core.ErrConnectionFail, err)
		}
		if ack != wire.Success {
			return fmt.Errorf("%w: expected %s, got %q", core.ErrConnectionFail, wire.Success, ack)
		}
	}
	return nil
}
