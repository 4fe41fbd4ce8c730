package coordinator

import (
	"context"
	"time"
)

// RoundRecord is the audit entry for one resolved vote round.
type RoundRecord struct {
	RoomID string
	// VotedOut is empty when the round eliminated no one.
	VotedOut           string
	WasImposter        bool
	Outcome            string
	Tally              map[string]int
	RemainingPlayers   int
	RemainingImposters int
	ResolvedAt         time.Time
}

// History persists resolved rounds. It is write-only: rooms are never
// rebuilt from it.
type History interface {
	RecordRound(ctx context.Context, rec RoundRecord) error
}
