package session

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/roomcoord/internal/protocol"
)

// Hub owns the outboxes of every attached connection and delivers encoded
// notifications to them. It is shared by all transports.
type Hub struct {
	mu       sync.RWMutex
	outboxes map[string]*Outbox
	size     int
	logger   *zap.Logger
}

// NewHub creates a Hub whose outboxes hold up to outboxSize frames.
//
// Precondition: logger must be non-nil.
func NewHub(outboxSize int, logger *zap.Logger) *Hub {
	return &Hub{
		outboxes: make(map[string]*Outbox),
		size:     outboxSize,
		logger:   logger,
	}
}

// Attach creates and registers the outbox for connID.
//
// Postcondition: Returns an error when connID is already attached.
func (h *Hub) Attach(connID string) (*Outbox, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.outboxes[connID]; exists {
		return nil, fmt.Errorf("connection %q already attached", connID)
	}
	o := NewOutbox(connID, h.size)
	h.outboxes[connID] = o
	return o, nil
}

// Detach closes and forgets connID's outbox. Unknown ids are ignored.
func (h *Hub) Detach(connID string) {
	h.mu.Lock()
	o, ok := h.outboxes[connID]
	delete(h.outboxes, connID)
	h.mu.Unlock()
	if ok {
		o.Close()
	}
}

// Len returns the number of attached connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.outboxes)
}

// Send encodes n and enqueues it for connID. Delivery to a detached, closed,
// or full outbox is dropped and logged; Send never blocks.
func (h *Hub) Send(connID string, n protocol.Notification) {
	frame, err := n.Encode()
	if err != nil {
		h.logger.Error("encoding notification", zap.String("event", n.Event), zap.Error(err))
		return
	}

	h.mu.RLock()
	o, ok := h.outboxes[connID]
	h.mu.RUnlock()
	if !ok {
		h.logger.Debug("dropping notification for detached connection",
			zap.String("conn_id", connID),
			zap.String("event", n.Event),
		)
		return
	}
	if err := o.Push(frame); err != nil {
		h.logger.Warn("dropping notification",
			zap.String("conn_id", connID),
			zap.String("event", n.Event),
			zap.Error(err),
		)
	}
}
