// Package room holds per-room game state: the ordered roster and turn pointer
// shared by every room, and the two room variants built on top of it.
//
// Nothing in this package locks. Callers serialize access to a room through
// Store, which gives each room its own mutual-exclusion domain.
package room

import (
	"encoding/json"
	"slices"
)

// Mode selects the room variant and therefore the player identity key.
type Mode string

const (
	// ModeBoard is the position-tracking turn game. Players are keyed by
	// connection id, so duplicate display names are allowed.
	ModeBoard Mode = "board"
	// ModeVote is the imposter voting game. Players are keyed by display name.
	ModeVote Mode = "vote"
)

// Valid reports whether m names a known room variant.
func (m Mode) Valid() bool {
	return m == ModeBoard || m == ModeVote
}

// Player is one roster entry.
type Player struct {
	ConnectionID string `json:"id"`
	Name         string `json:"name"`
	// Position is an opaque client coordinate payload, stored and echoed verbatim.
	Position        json.RawMessage `json:"positionArray,omitempty"`
	HasMovedForward bool            `json:"hasMovedForward"`
	VoteCount       int             `json:"voteCount"`
}

// clone returns a copy that shares no memory with p.
func (p Player) clone() Player {
	p.Position = slices.Clone(p.Position)
	return p
}

// KeyFunc extracts the identity key of a player.
type KeyFunc func(Player) string

// ByConnection keys players by connection id.
func ByConnection(p Player) string { return p.ConnectionID }

// ByName keys players by display name.
func ByName(p Player) string { return p.Name }
