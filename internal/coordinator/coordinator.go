// Package coordinator turns validated inbound events into room mutations
// and addressed notifications. It owns the connection registry and the room
// store; transports feed it events and deliver what it sends.
package coordinator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/roomcoord/internal/game/dice"
	"github.com/cory-johannsen/roomcoord/internal/game/room"
	"github.com/cory-johannsen/roomcoord/internal/game/session"
	"github.com/cory-johannsen/roomcoord/internal/protocol"
)

// Gateway delivers a notification to one connection. Implementations must
// not block; a notification that cannot be queued is dropped.
type Gateway interface {
	Send(connID string, n protocol.Notification)
}

// Defaults supplies the values used when neither the event nor a room
// preset names one.
type Defaults struct {
	Mode      room.Mode
	Imposters int
}

// Option configures optional Coordinator collaborators.
type Option func(*Coordinator)

// WithPresets sets the pre-declared rooms.
func WithPresets(p room.Presets) Option {
	return func(c *Coordinator) { c.presets = p }
}

// WithHistory records every resolved vote round to h.
func WithHistory(h History) Option {
	return func(c *Coordinator) { c.history = h }
}

// WithHistoryTimeout bounds each history write. Defaults to five seconds.
func WithHistoryTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.historyTimeout = d }
}

// Coordinator handles inbound events for every room.
// All methods are safe for concurrent use; events for one room are
// serialized and rooms progress independently.
type Coordinator struct {
	registry       *session.Registry
	store          *room.Store
	gateway        Gateway
	dice           dice.Source
	defaults       Defaults
	presets        room.Presets
	history        History
	historyTimeout time.Duration
	logger         *zap.Logger
}

// New creates a Coordinator.
//
// Precondition: gateway, src, and logger must be non-nil; defaults.Mode must be valid.
func New(gateway Gateway, src dice.Source, defaults Defaults, logger *zap.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		registry:       session.NewRegistry(),
		store:          room.NewStore(),
		gateway:        gateway,
		dice:           src,
		defaults:       defaults,
		historyTimeout: 5 * time.Second,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rooms returns the number of live rooms.
func (c *Coordinator) Rooms() int { return c.store.Len() }

// Connections returns the number of connections bound to a room.
func (c *Coordinator) Connections() int { return c.registry.Len() }

// Roster returns a snapshot of a room's players, empty when the room is unknown.
func (c *Coordinator) Roster(roomID string) []room.Player { return c.store.Roster(roomID) }

// Handle applies one event sent by connID. Events that do not apply to the
// sender's state are ignored.
func (c *Coordinator) Handle(ctx context.Context, connID string, ev protocol.Event) {
	switch ev := ev.(type) {
	case protocol.Join:
		c.join(connID, ev)
	case protocol.UpdatePosition:
		c.updatePosition(connID, ev)
	case protocol.PassTurn:
		c.passTurn(connID)
	case protocol.ResetMovedForward:
		c.resetMovedForward(connID)
	case protocol.StartGame:
		c.startGame(ev)
	case protocol.SubmitVote:
		c.submitVote(connID, ev)
	case protocol.EndVoting:
		c.endVoting(ctx, ev)
	case protocol.ResetRound:
		c.resetRound(ev)
	default:
		c.logger.Warn("unhandled event", zap.String("conn_id", connID), zap.String("event", ev.EventName()))
	}
}

// Disconnect treats the loss of connID as an implicit leave: the binding is
// dropped, the player is unseated, and the turn pointer is reindexed.
// Votes the player already cast stay counted.
func (c *Coordinator) Disconnect(connID string) {
	b, ok := c.registry.Remove(connID)
	if !ok {
		return
	}
	c.store.Update(b.RoomID, func(r room.Room) {
		switch rm := r.(type) {
		case *room.BoardRoom:
			if _, ok := rm.Leave(connID); !ok {
				return
			}
			c.broadcast(rm.Roster(), protocol.Notification{Event: protocol.NotifyPlayerLeft, Data: connID})
			c.broadcast(rm.Roster(), turnUpdate(rm.Roster()))
		case *room.VoteRoom:
			if !ownsSeat(rm.Roster(), b.Name, connID) {
				return
			}
			rm.Leave(b.Name)
			c.broadcast(rm.Roster(), players(rm.Roster()))
			c.broadcast(rm.Roster(), turnUpdate(rm.Roster()))
		}
		c.logger.Info("player left",
			zap.String("room_id", b.RoomID),
			zap.String("conn_id", connID),
			zap.String("name", b.Name),
		)
	})
}

func (c *Coordinator) join(connID string, ev protocol.Join) {
	if b, bound := c.registry.Resolve(connID); bound {
		if b.RoomID != ev.RoomID {
			c.ignore("join while seated elsewhere", connID, zap.String("room_id", ev.RoomID))
			return
		}
		if b.Name != ev.Name {
			c.ignore("join under a second name", connID,
				zap.String("room_id", ev.RoomID),
				zap.String("name", b.Name),
				zap.String("requested", ev.Name),
			)
			return
		}
	}

	requested := room.Mode(ev.Mode)
	if requested == "" {
		if preset, ok := c.presets.Lookup(ev.RoomID); ok {
			requested = preset.Mode
		}
	}
	create := requested
	if create == "" {
		create = c.defaults.Mode
	}

	p := room.Player{ConnectionID: connID, Name: ev.Name, Position: ev.Position}
	c.store.Upsert(ev.RoomID, create, func(r room.Room) {
		if requested != "" && r.Mode() != requested {
			c.ignore("join mode mismatch", connID,
				zap.String("room_id", ev.RoomID),
				zap.String("room_mode", string(r.Mode())),
				zap.String("requested", string(requested)),
			)
			return
		}
		switch rm := r.(type) {
		case *room.BoardRoom:
			c.joinBoard(rm, p)
		case *room.VoteRoom:
			c.joinVote(rm, p)
		}
	})
}

func (c *Coordinator) ignore(reason, connID string, fields ...zap.Field) {
	c.logger.Debug("ignoring event", append([]zap.Field{zap.String("reason", reason), zap.String("conn_id", connID)}, fields...)...)
}

func (c *Coordinator) send(connID string, n protocol.Notification) {
	c.gateway.Send(connID, n)
}

func (c *Coordinator) broadcast(r *room.Roster, n protocol.Notification) {
	for _, id := range r.ConnectionIDs() {
		c.gateway.Send(id, n)
	}
}

func (c *Coordinator) broadcastOthers(r *room.Roster, except string, n protocol.Notification) {
	for _, id := range r.ConnectionIDs() {
		if id != except {
			c.gateway.Send(id, n)
		}
	}
}

// ownsSeat reports whether the player keyed by key is seated on connID.
func ownsSeat(r *room.Roster, key, connID string) bool {
	p, _ := r.Find(key)
	return p != nil && p.ConnectionID == connID
}

func turnUpdate(r *room.Roster) protocol.Notification {
	return protocol.Notification{Event: protocol.NotifyTurnUpdate, Data: r.TurnIndex()}
}

func players(r *room.Roster) protocol.Notification {
	return protocol.Notification{Event: protocol.NotifyPlayers, Data: r.Snapshot()}
}
