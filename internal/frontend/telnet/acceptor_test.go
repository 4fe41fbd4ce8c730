package telnet

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/roomcoord/internal/config"
	"github.com/cory-johannsen/roomcoord/internal/testutil"
)

// echoHandler writes every line back until the client sends "quit".
type echoHandler struct {
	sessions atomic.Int32
}

func (h *echoHandler) HandleSession(ctx context.Context, connID string, conn *Conn) error {
	h.sessions.Add(1)
	for {
		line, err := conn.ReadLine()
		if err != nil {
			return err
		}
		if string(line) == "quit" {
			return conn.WriteLine([]byte(`{"event":"bye"}`))
		}
		if err := conn.WriteLine([]byte(`{"event":"echo","data":"` + connID + `"}`)); err != nil {
			return err
		}
	}
}

func testTelnetConfig() config.TelnetConfig {
	return config.TelnetConfig{
		Enabled:      true,
		Host:         "127.0.0.1",
		Port:         0,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

func startAcceptor(t *testing.T, handler SessionHandler) (*Acceptor, chan error) {
	t.Helper()
	acc := NewAcceptor(testTelnetConfig(), handler, zaptest.NewLogger(t))
	errCh := make(chan error, 1)
	go func() { errCh <- acc.Start() }()

	deadline := time.After(2 * time.Second)
	for !acc.IsRunning() || acc.Addr() == "" {
		select {
		case <-deadline:
			t.Fatal("acceptor did not start in time")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Cleanup(acc.Stop)
	return acc, errCh
}

func TestAcceptor_StartAndStop(t *testing.T) {
	handler := &echoHandler{}
	acc, errCh := startAcceptor(t, handler)

	client := testutil.NewLineClient(t, acc.Addr())
	client.Send("hello")
	echo := client.Expect("echo", 2*time.Second)
	assert.NotEmpty(t, string(echo.Data), "sessions carry a connection id")
	client.Send("quit")
	client.Expect("bye", 2*time.Second)

	acc.Stop()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("acceptor did not stop in time")
	}
	assert.Equal(t, int32(1), handler.sessions.Load())
	assert.False(t, acc.IsRunning())
}

func TestAcceptor_DistinctConnectionIDs(t *testing.T) {
	acc, _ := startAcceptor(t, &echoHandler{})

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		client := testutil.NewLineClient(t, acc.Addr())
		client.Send("ping")
		seen[string(client.Expect("echo", 2*time.Second).Data)] = true
		client.Close()
	}
	assert.Len(t, seen, 3)
}

func TestAcceptor_StopClosesIdleSessions(t *testing.T) {
	handler := &echoHandler{}
	acc, _ := startAcceptor(t, handler)
	testutil.NewLineClient(t, acc.Addr())

	require.Eventually(t, func() bool { return handler.sessions.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		acc.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("an idle session blocked Stop")
	}
}

func TestAcceptor_BadAddress(t *testing.T) {
	cfg := testTelnetConfig()
	cfg.Host = "256.0.0.1"
	acc := NewAcceptor(cfg, &echoHandler{}, zaptest.NewLogger(t))
	require.Error(t, acc.Start())
}
