package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cory-johannsen/roomcoord/internal/config"
	"github.com/cory-johannsen/roomcoord/internal/game/session"
	"github.com/cory-johannsen/roomcoord/internal/protocol"
)

// maxFrameBytes bounds one inbound frame.
const maxFrameBytes = 64 << 10

// client is one upgraded connection.
type client struct {
	id      string
	ws      *websocket.Conn
	outbox  *session.Outbox
	limiter *rate.Limiter
	logger  *zap.Logger

	readTimeout  time.Duration
	writeTimeout time.Duration
	pingEvery    time.Duration

	closeOnce sync.Once
}

func newClient(id string, ws *websocket.Conn, outbox *session.Outbox, cfg config.GatewayConfig, logger *zap.Logger) *client {
	c := &client{
		id:           id,
		ws:           ws,
		outbox:       outbox,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		logger:       logger.With(zap.String("conn_id", id)),
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
	}
	if c.readTimeout > 0 {
		c.pingEvery = c.readTimeout * 9 / 10
	}
	return c
}

func (c *client) closeSocket() {
	c.closeOnce.Do(func() { _ = c.ws.Close() })
}

func (c *client) extendReadDeadline() {
	if c.readTimeout > 0 {
		_ = c.ws.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
}

// readPump decodes frames and dispatches them until the socket fails.
// Frames beyond the rate limit and frames that fail to decode are dropped.
func (c *client) readPump(ctx context.Context, d Dispatcher) error {
	defer c.closeSocket()

	c.ws.SetReadLimit(maxFrameBytes)
	c.extendReadDeadline()
	c.ws.SetPongHandler(func(string) error {
		c.extendReadDeadline()
		return nil
	})

	for {
		kind, frame, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		c.extendReadDeadline()
		if kind != websocket.TextMessage {
			continue
		}
		if !c.limiter.Allow() {
			c.logger.Warn("rate limit exceeded, dropping frame")
			continue
		}

		ev, err := protocol.Decode(frame)
		if err != nil {
			if errors.Is(err, protocol.ErrUnknownEvent) {
				c.logger.Debug("dropping unknown event", zap.Error(err))
			} else {
				c.logger.Info("dropping malformed frame", zap.Error(err))
			}
			continue
		}
		d.Handle(ctx, c.id, ev)
	}
}

// writePump drains the outbox to the socket and keeps the peer alive with
// pings. It returns when the outbox is closed or a write fails.
func (c *client) writePump() {
	var tick <-chan time.Time
	if c.pingEvery > 0 {
		ticker := time.NewTicker(c.pingEvery)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case frame, ok := <-c.outbox.Frames():
			if !ok {
				c.writeClose()
				return
			}
			if err := c.write(websocket.TextMessage, frame); err != nil {
				c.logger.Debug("write failed", zap.Error(err))
				c.closeSocket()
				return
			}
		case <-tick:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.closeSocket()
				return
			}
		}
	}
}

func (c *client) write(kind int, data []byte) error {
	if c.writeTimeout > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.ws.WriteMessage(kind, data)
}

func (c *client) writeClose() {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.write(websocket.CloseMessage, msg)
	c.closeSocket()
}
