package testutil

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/cory-johannsen/roomcoord/internal/protocol"
)

// LineClient is a test client for the line transport.
type LineClient struct {
	conn   net.Conn
	reader *bufio.Reader
	t      *testing.T
}

// NewLineClient dials addr and discards the server's telnet negotiation.
//
// Precondition: addr must be a "host:port" with a listening line transport.
// Postcondition: Returns a connected LineClient or fails the test.
func NewLineClient(t *testing.T, addr string) *LineClient {
	t.Helper()
	start := time.Now()

	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting to %s: %v [%s]", addr, err, time.Since(start))
	}
	t.Cleanup(func() { conn.Close() })

	c := &LineClient{conn: conn, reader: bufio.NewReader(conn), t: t}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for i := 0; i < 3; i++ {
		if _, err := c.reader.ReadByte(); err != nil {
			t.Fatalf("reading negotiation: %v", err)
		}
	}
	return c
}

// Send writes text followed by CRLF.
func (c *LineClient) Send(text string) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := fmt.Fprintf(c.conn, "%s\r\n", text); err != nil {
		c.t.Fatalf("sending %q: %v", text, err)
	}
}

// SendEvent encodes data as the payload of event and sends it as one line.
func (c *LineClient) SendEvent(event string, data any) {
	c.t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		c.t.Fatalf("encoding %s: %v", event, err)
	}
	frame, err := json.Marshal(protocol.Envelope{Event: event, Data: raw})
	if err != nil {
		c.t.Fatalf("encoding envelope: %v", err)
	}
	c.Send(string(frame))
}

// Expect reads lines until a notification named event arrives and returns it.
//
// Postcondition: Returns the matching envelope, or fails the test on timeout.
func (c *LineClient) Expect(event string, timeout time.Duration) protocol.Envelope {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			c.t.Fatalf("waiting for %s: %v", event, err)
		}
		var env protocol.Envelope
		if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &env); err != nil {
			c.t.Fatalf("decoding %q: %v", line, err)
		}
		if env.Event == event {
			return env
		}
	}
}

// Close closes the connection.
func (c *LineClient) Close() {
	c.conn.Close()
}
