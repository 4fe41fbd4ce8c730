package telnet

import (
	"bytes"
	"context"
	"errors"
	"io"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cory-johannsen/roomcoord/internal/game/session"
	"github.com/cory-johannsen/roomcoord/internal/protocol"
)

// Dispatcher consumes decoded events and connection loss.
type Dispatcher interface {
	Handle(ctx context.Context, connID string, ev protocol.Event)
	Disconnect(connID string)
}

// LineSession speaks the JSON envelope protocol one line at a time.
type LineSession struct {
	dispatcher Dispatcher
	hub        *session.Hub
	limit      rate.Limit
	burst      int
	logger     *zap.Logger
}

// NewLineSession creates a LineSession. Each connection may send up to
// burst frames at once and perSecond frames on average.
//
// Precondition: dispatcher, hub, and logger must be non-nil; burst must be >= 1.
func NewLineSession(dispatcher Dispatcher, hub *session.Hub, perSecond float64, burst int, logger *zap.Logger) *LineSession {
	return &LineSession{
		dispatcher: dispatcher,
		hub:        hub,
		limit:      rate.Limit(perSecond),
		burst:      burst,
		logger:     logger,
	}
}

// HandleSession implements SessionHandler.
func (s *LineSession) HandleSession(ctx context.Context, connID string, conn *Conn) error {
	outbox, err := s.hub.Attach(connID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for frame := range outbox.Frames() {
			if err := conn.WriteLine(frame); err != nil {
				cancel()
				return
			}
		}
	}()

	err = s.readLoop(ctx, connID, conn)

	s.dispatcher.Disconnect(connID)
	s.hub.Detach(connID)
	<-writerDone
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *LineSession) readLoop(ctx context.Context, connID string, conn *Conn) error {
	limiter := rate.NewLimiter(s.limit, s.burst)
	log := s.logger.With(zap.String("conn_id", connID))

	for {
		line, err := conn.ReadLine()
		if errors.Is(err, ErrLineTooLong) {
			log.Info("dropping oversized line")
			continue
		}
		if err != nil {
			return err
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if !limiter.Allow() {
			log.Warn("rate limit exceeded, dropping frame")
			continue
		}

		ev, err := protocol.Decode(line)
		if err != nil {
			log.Info("dropping malformed frame", zap.Error(err))
			continue
		}
		s.dispatcher.Handle(ctx, connID, ev)
	}
}
