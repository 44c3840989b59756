// Package client talks to a tablekv server.
//
//	c, err := client.Dial(ctx, "127.0.0.1:4848")
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//	if err := c.Auth("admin", "secret"); err != nil {
//	    return err
//	}
//	rec, err := c.Get("t1", "k1")
//
// Failures carry the core error kinds, so callers test them with errors.Is.
// Transport failures are core.ErrConnectionFail.
package client

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/nickyhof/tablekv/core"
	"github.com/nickyhof/tablekv/wire"
)

// Record is a value read from the server.
type Record struct {
	Value   string
	Version uint64
}

// Client is one authenticated-or-not connection. Its methods may be called
// from several goroutines; requests are sent one at a time.
type Client struct {
	mu   sync.Mutex
	conn *wire.Conn
}

// Dial connects to addr.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrConnectionFail, err)
	}
	return &Client{conn: wire.NewConn(conn)}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// roundTrip sends request and returns the reply line. The caller holds c.mu.
func (c *Client) roundTrip(request wire.Request) (string, error) {
	if err := c.conn.WriteLine(request.String()); err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrConnectionFail, err)
	}
	return c.readLine()
}

func (c *Client) readLine() (string, error) {
	line, err := c.conn.ReadLine()
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrConnectionFail, err)
	}
	return line, nil
}

// status turns a status reply into an error.
func status(line string) error {
	if line == wire.Success {
		return nil
	}
	if err := wire.TokenError(line); err != nil {
		return err
	}
	return fmt.Errorf("%w: unexpected reply %q", core.ErrUnknown, line)
}

func (c *Client) Auth(user, password string) error {
	for _, field := range []string{user, password} {
		if err := checkField(field); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	line, err := c.roundTrip(wire.Request{Kind: wire.KindAuth, User: user, Password: password})
	if err != nil {
		return err
	}
	return status(line)
}

func (c *Client) Get(table, key string) (Record, error) {
	if err := checkIdentifiers(table, key); err != nil {
		return Record{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	line, err := c.roundTrip(wire.Request{Kind: wire.KindGet, Table: table, Key: key})
	if err != nil {
		return Record{}, err
	}
	if err := wire.TokenError(line); err != nil {
		return Record{}, err
	}
	value, version, err := wire.ParseValue(line)
	if err != nil {
		return Record{}, err
	}
	return Record{Value: value, Version: version}, nil
}

// Set stores value under key. A non-zero version makes the write fail with
// core.ErrTransactionAbort unless the stored row is at that version.
func (c *Client) Set(table, key, value string, version uint64) error {
	if err := checkIdentifiers(table, key); err != nil {
		return err
	}
	if err := checkField(value); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	line, err := c.roundTrip(wire.Request{Kind: wire.KindSet, Table: table, Key: key, Value: value, Version: version})
	if err != nil {
		return err
	}
	return status(line)
}

func (c *Client) Delete(table, key string) error {
	if err := checkIdentifiers(table, key); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	line, err := c.roundTrip(wire.Request{Kind: wire.KindDelete, Table: table, Key: key, Value: "_"})
	if err != nil {
		return err
	}
	return status(line)
}

// Query returns up to maxKeys keys of the rows matching predicates, along
// with the total number of matches. The whole stream is always consumed.
func (c *Client) Query(table, predicates string, maxKeys int) ([]string, int, error) {
	if err := checkIdentifiers(table); err != nil {
		return nil, 0, err
	}
	if err := checkField(predicates); err != nil {
		return nil, 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	line, err := c.roundTrip(wire.Request{Kind: wire.KindQuery, Table: table, Predicates: predicates})
	if err != nil {
		return nil, 0, err
	}

	var keys []string
	total := 0
	for {
		if err := wire.TokenError(line); err != nil {
			return nil, 0, err
		}
		remaining, key, err := wire.ParseQueryLine(line)
		if err != nil {
			return nil, 0, err
		}
		if remaining < 0 {
			return keys, 0, nil
		}
		if total == 0 {
			total = remaining + 1
		}
		if len(keys) < maxKeys {
			keys = append(keys, key)
		}

		if err := c.conn.WriteLine(wire.Success); err != nil {
			return nil, 0, fmt.Errorf("%w: %w", core.ErrConnectionFail, err)
		}
		if remaining == 0 {
			return keys, total, nil
		}
		if line, err = c.readLine(); err != nil {
			return nil, 0, err
		}
	}
}

// checkIdentifiers rejects table and key names outside [A-Za-z0-9]+.
func checkIdentifiers(names ...string) error {
	for _, name := range names {
		if !core.IsIdentifier(name) {
			return fmt.Errorf("%w: %q is not an identifier", core.ErrInvalidParam, name)
		}
	}
	return nil
}

func checkField(s string) error {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ';', '\n', '\r':
			return fmt.Errorf("%w: %q contains a separator", core.ErrInvalidParam, s)
		}
	}
	if len(s) > core.MaxValueLen {
		return fmt.Errorf("%w: value longer than %d bytes", core.ErrInvalidParam, core.MaxValueLen)
	}
	return nil
}
