package wire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/nickyhof/tablekv/core"
)

// MaxLineLen bounds a line, terminator excluded.
const MaxLineLen = 8192

var ErrLineTooLong = fmt.Errorf("%w: line longer than %d bytes", core.ErrUnknown, MaxLineLen)

// Conn owns a network connection and reads it line by line.
type Conn struct {
	conn   net.Conn
	reader *bufio.Reader
}

func NewConn(conn net.Conn) *Conn {
	return &Conn{
		conn:   conn,
		reader: bufio.NewReaderSize(conn, MaxLineLen+2),
	}
}

// ReadLine returns the next line without its terminator. A trailing "\r" is
// dropped. A final unterminated line is reported as io.EOF.
func (c *Conn) ReadLine() (string, error) {
	line, err := c.reader.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		// Skip the rest of the line.
		for errors.Is(err, bufio.ErrBufferFull) {
			_, err = c.reader.ReadSlice('\n')
		}
		return "", ErrLineTooLong
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		return "", err
	}
	s := strings.TrimSuffix(string(line[:len(line)-1]), "\r")
	if len(s) > MaxLineLen {
		return "", ErrLineTooLong
	}
	return s, nil
}

// WriteLine sends s followed by a newline.
func (c *Conn) WriteLine(s string) error {
	_, err := io.WriteString(c.conn, s+"\n")
	return err
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *Conn) Close() error {
	return c.conn.Close()
}
