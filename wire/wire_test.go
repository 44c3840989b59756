package wire

import (
	"fmt"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickyhof/tablekv/core"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		line string
		want Request
	}{
		{"AUTH;admin;secret", Request{Kind: KindAuth, User: "admin", Password: "secret"}},
		{"GET;t1;k1", Request{Kind: KindGet, Table: "t1", Key: "k1"}},
		{"SET;t1;k1;id 3, label abc", Request{Kind: KindSet, Table: "t1", Key: "k1", Value: "id 3, label abc"}},
		{"SET;t1;k1;id 3, label abc;1700000000", Request{Kind: KindSet, Table: "t1", Key: "k1", Value: "id 3, label abc", Version: 1700000000}},
		{"DELETE;t1;k1;_", Request{Kind: KindDelete, Table: "t1", Key: "k1", Value: "_"}},
		{"QUERY;t1;id>2,label=abc", Request{Kind: KindQuery, Table: "t1", Predicates: "id>2,label=abc"}},
		{"GET;t1;k1\r", Request{Kind: KindGet, Table: "t1", Key: "k1"}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseRequest(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRequestRejects(t *testing.T) {
	unknown := []string{
		"",
		"HELLO;t1",
		"get;t1;k1",
		"AUTH;admin",
		"AUTH;admin;secret;extra",
		"GET;t1",
		"GET;t1;k1;extra",
		"SET;t1;k1",
		"SET;t1;k1;v;1;2",
		"DELETE;t1;k1",
		"QUERY;t1",
		"QUERY;t1;id=1;more",
	}
	for _, line := range unknown {
		_, err := ParseRequest(line)
		assert.ErrorIs(t, err, core.ErrUnknown, "line %q", line)
	}

	_, err := ParseRequest("SET;t1;k1;id 1;soon")
	assert.ErrorIs(t, err, core.ErrInvalidParam)
}

func TestRequestString(t *testing.T) {
	lines := []string{
		"AUTH;admin;secret",
		"GET;t1;k1",
		"SET;t1;k1;id 3, label abc",
		"SET;t1;k1;id 3, label abc;17",
		"DELETE;t1;k1;_",
		"QUERY;t1;id>2,label=abc",
	}
	for _, line := range lines {
		req, err := ParseRequest(line)
		require.NoError(t, err)
		assert.Equal(t, line, req.String())
	}
}

func TestErrorTokens(t *testing.T) {
	assert.Equal(t, Success, ErrorToken(nil))
	assert.Equal(t, ErrKeyNotFound, ErrorToken(fmt.Errorf("lookup: %w", core.ErrKeyNotFound)))
	assert.Equal(t, ErrTransactionAbort, ErrorToken(core.ErrTransactionAbort))
	assert.Equal(t, ErrUnknown, ErrorToken(core.ErrCapacityExceeded))
	assert.Equal(t, ErrUnknown, ErrorToken(io.ErrUnexpectedEOF))

	for _, token := range []string{ErrInvalidParam, ErrTableNotFound, ErrKeyNotFound, ErrNotAuthenticated,
		ErrAuthenticationFailed, ErrTransactionAbort, ErrConnectionFail, ErrUnknown} {
		err := TokenError(token)
		require.Error(t, err, token)
		assert.Equal(t, token, ErrorToken(err))
	}
	assert.NoError(t, TokenError(Success))
	assert.NoError(t, TokenError("id 3, label abc;17"))
}

func TestValueReply(t *testing.T) {
	value, version, err := ParseValue(FormatValue("id 3, label abc", 1700000000))
	require.NoError(t, err)
	assert.Equal(t, "id 3, label abc", value)
	assert.Equal(t, uint64(1700000000), version)

	_, _, err = ParseValue("no version")
	assert.ErrorIs(t, err, core.ErrUnknown)
	_, _, err = ParseValue("v;x")
	assert.ErrorIs(t, err, core.ErrUnknown)
}

func TestQueryLine(t *testing.T) {
	remaining, key, err := ParseQueryLine(FormatQueryLine(2, "k1"))
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)
	assert.Equal(t, "k1", key)

	remaining, _, err = ParseQueryLine(QueryEmpty)
	require.NoError(t, err)
	assert.Equal(t, -1, remaining)

	_, _, err = ParseQueryLine("k1")
	assert.Error(t, err)
	_, _, err = ParseQueryLine("-5;k1")
	assert.Error(t, err)
}

func TestConnReadLine(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	conn := NewConn(server)
	defer conn.Close()

	go func() {
		io.WriteString(client, "GET;t1;k1\r\nSET;t1;k1;v\n")
		io.WriteString(client, strings.Repeat("x", MaxLineLen+10)+"\n")
	}()

	line, err := conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "GET;t1;k1", line)

	line, err = conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "SET;t1;k1;v", line)

	_, err = conn.ReadLine()
	assert.ErrorIs(t, err, ErrLineTooLong)
}

func TestConnEOF(t *testing.T) {
	server, client := net.Pipe()
	conn := NewConn(server)
	defer conn.Close()

	go func() {
		io.WriteString(client, "partial")
		client.Close()
	}()

	_, err := conn.ReadLine()
	assert.ErrorIs(t, err, io.EOF)
}

func TestConnWriteLine(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	conn := NewConn(server)
	defer conn.Close()

	go conn.WriteLine(Success)

	reader := NewConn(client)
	line, err := reader.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, Success, line)
}
