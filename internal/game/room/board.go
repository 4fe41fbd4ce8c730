package room

import (
	"encoding/json"
	"slices"
)

// BoardRoom is the position-tracking turn game. Players are keyed by
// connection id and carry an opaque position plus a forward-move flag.
type BoardRoom struct {
	id     string
	roster *Roster
}

// NewBoardRoom creates an empty board room.
func NewBoardRoom(id string) *BoardRoom {
	return &BoardRoom{id: id, roster: NewRoster(ByConnection)}
}

// ID returns the room id.
func (b *BoardRoom) ID() string { return b.id }

// Mode returns ModeBoard.
func (b *BoardRoom) Mode() Mode { return ModeBoard }

// Roster returns the live roster. Callers must hold the room's lock.
func (b *BoardRoom) Roster() *Roster { return b.roster }

// Join adds p keyed by its connection id. A repeated join is a no-op.
func (b *BoardRoom) Join(p Player) bool {
	return b.roster.Add(p)
}

// Leave removes the player on connID and reindexes the turn pointer.
func (b *BoardRoom) Leave(connID string) (Player, bool) {
	p, _, ok := b.roster.Remove(connID)
	return p, ok
}

// UpdatePosition stores a new position for the player on connID.
//
// Postcondition: Returns false and changes nothing when connID is not seated.
func (b *BoardRoom) UpdatePosition(connID string, position json.RawMessage, movedForward bool) bool {
	p, _ := b.roster.Find(connID)
	if p == nil {
		return false
	}
	p.Position = slices.Clone(position)
	p.HasMovedForward = movedForward
	return true
}

// ResetMovedForward clears every player's forward-move flag.
func (b *BoardRoom) ResetMovedForward() {
	b.roster.Each(func(p *Player) { p.HasMovedForward = false })
}

// PassTurn advances the turn when connID is the active player.
func (b *BoardRoom) PassTurn(connID string) (int, bool) {
	return b.roster.AdvanceTurn(connID)
}
