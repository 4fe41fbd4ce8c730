// Package telnet is the line transport: each line a client sends is one
// protocol envelope and each line the server writes is one notification.
// Plain TCP clients and telnet clients are both accepted; telnet option
// negotiation is stripped from the input stream.
package telnet

import (
	"bufio"
	"errors"
	"net"
	"sync"
	"time"
)

// Telnet command and option bytes (RFC 854, RFC 858).
const (
	IAC  byte = 255
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250
	SE   byte = 240

	OptSuppressGoAhead byte = 3
)

// MaxLineBytes bounds one inbound line.
const MaxLineBytes = 64 << 10

// ErrLineTooLong is returned by ReadLine when a line exceeds MaxLineBytes.
// The rest of the offending line is discarded.
var ErrLineTooLong = errors.New("line too long")

// Conn reads newline-delimited frames from a TCP connection and writes
// CRLF-terminated frames back. Writes are serialized.
type Conn struct {
	raw    net.Conn
	reader *bufio.Reader
	wmu    sync.Mutex

	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewConn wraps raw.
//
// Precondition: raw must be an open connection.
func NewConn(raw net.Conn, readTimeout, writeTimeout time.Duration) *Conn {
	return &Conn{
		raw:          raw,
		reader:       bufio.NewReaderSize(raw, 4096),
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// Negotiate offers to suppress go-ahead so telnet clients send full lines.
func (c *Conn) Negotiate() error {
	return c.Write([]byte{IAC, WILL, OptSuppressGoAhead})
}

// ReadLine returns the next line without its terminator. Telnet commands and
// control bytes other than tab are removed.
//
// Postcondition: Returns the line, or an error (io.EOF on a clean close,
// ErrLineTooLong for an oversized line).
func (c *Conn) ReadLine() ([]byte, error) {
	if c.readTimeout > 0 {
		_ = c.raw.SetReadDeadline(time.Now().Add(c.readTimeout))
	}

	var line []byte
	overflow := false
	for {
		b, err := c.reader.ReadByte()
		if err != nil {
			return line, err
		}
		switch {
		case b == IAC:
			if err := c.skipCommand(); err != nil {
				return line, err
			}
			continue
		case b == '\n':
		case b == '\r':
			if c.reader.Buffered() > 0 {
				if next, _ := c.reader.Peek(1); next[0] == '\n' {
					_, _ = c.reader.ReadByte()
				}
			}
		case b < 32 && b != '\t':
			continue
		default:
			if len(line) >= MaxLineBytes {
				overflow = true
				continue
			}
			line = append(line, b)
			continue
		}
		if overflow {
			return nil, ErrLineTooLong
		}
		return line, nil
	}
}

// skipCommand consumes the remainder of a telnet command after IAC.
func (c *Conn) skipCommand() error {
	cmd, err := c.reader.ReadByte()
	if err != nil {
		return err
	}
	switch cmd {
	case WILL, WONT, DO, DONT:
		_, err = c.reader.ReadByte()
		return err
	case SB:
		prev := byte(0)
		for {
			b, err := c.reader.ReadByte()
			if err != nil {
				return err
			}
			if prev == IAC && b == SE {
				return nil
			}
			prev = b
		}
	default:
		return nil
	}
}

// WriteLine writes frame followed by CRLF.
func (c *Conn) WriteLine(frame []byte) error {
	buf := make([]byte, 0, len(frame)+2)
	buf = append(buf, frame...)
	buf = append(buf, '\r', '\n')
	return c.Write(buf)
}

// Write writes data as-is.
func (c *Conn) Write(data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.writeTimeout > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	_, err := c.raw.Write(data)
	return err
}

// Close closes the underlying connection. It is safe to call more than once.
func (c *Conn) Close() error {
	return c.raw.Close()
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}
