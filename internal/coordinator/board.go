package coordinator

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/roomcoord/internal/game/room"
	"github.com/cory-johannsen/roomcoord/internal/protocol"
)

// joinBoard seats p and addresses the joiner and the rest of the room separately.
//
// Precondition: the room's lock is held.
func (c *Coordinator) joinBoard(rm *room.BoardRoom, p room.Player) {
	added := rm.Join(p)
	c.registry.Register(p.ConnectionID, p.Name, rm.ID())

	roster := rm.Roster()
	snapshot := roster.Snapshot()
	c.send(p.ConnectionID, protocol.Notification{Event: protocol.NotifyAllPlayers, Data: snapshot})
	c.send(p.ConnectionID, turnUpdate(roster))
	if !added {
		return
	}
	joined := protocol.Notification{Event: protocol.NotifyPlayerJoined, Data: snapshot[len(snapshot)-1]}
	c.broadcastOthers(roster, p.ConnectionID, joined)

	c.logger.Info("player joined",
		zap.String("room_id", rm.ID()),
		zap.String("mode", string(rm.Mode())),
		zap.String("conn_id", p.ConnectionID),
		zap.String("name", p.Name),
		zap.Int("players", roster.Len()),
	)
}

func (c *Coordinator) updatePosition(connID string, ev protocol.UpdatePosition) {
	b, ok := c.registry.Resolve(connID)
	if !ok {
		c.ignore("updatePosition before join", connID)
		return
	}
	c.store.Update(b.RoomID, func(r room.Room) {
		rm, ok := r.(*room.BoardRoom)
		if !ok || !rm.UpdatePosition(connID, ev.Position, ev.HasMovedForward) {
			return
		}
		c.broadcastOthers(rm.Roster(), connID, protocol.Notification{
			Event: protocol.NotifyUpdatePosition,
			Data: protocol.PositionUpdate{
				ID:              connID,
				Position:        ev.Position,
				HasMovedForward: ev.HasMovedForward,
			},
		})
	})
}

func (c *Coordinator) passTurn(connID string) {
	b, ok := c.registry.Resolve(connID)
	if !ok {
		c.ignore("passTurn before join", connID)
		return
	}
	c.store.Update(b.RoomID, func(r room.Room) {
		roster := r.Roster()
		key := roster.KeyOf(room.Player{ConnectionID: connID, Name: b.Name})
		if !ownsSeat(roster, key, connID) {
			return
		}
		if _, ok := roster.AdvanceTurn(key); !ok {
			c.ignore("passTurn by inactive player", connID, zap.String("room_id", b.RoomID))
			return
		}
		c.broadcast(roster, turnUpdate(roster))
	})
}

func (c *Coordinator) resetMovedForward(connID string) {
	b, ok := c.registry.Resolve(connID)
	if !ok {
		c.ignore("resetMovedForward before join", connID)
		return
	}
	c.store.Update(b.RoomID, func(r room.Room) {
		rm, ok := r.(*room.BoardRoom)
		if !ok {
			return
		}
		rm.ResetMovedForward()
		c.broadcast(rm.Roster(), protocol.Notification{Event: protocol.NotifyAllPlayers, Data: rm.Roster().Snapshot()})
	})
}
