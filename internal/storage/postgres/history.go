package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/roomcoord/internal/coordinator"
)

// ErrInvalidLimit is returned by Recent when limit is not positive.
var ErrInvalidLimit = errors.New("limit must be positive")

// HistoryRepository stores one row per resolved vote round.
type HistoryRepository struct {
	db *pgxpool.Pool
}

// NewHistoryRepository creates a HistoryRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewHistoryRepository(db *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// RecordRound inserts rec into vote_rounds. A zero ResolvedAt is stamped
// with the database clock.
//
// Precondition: rec.RoomID must be non-empty.
// Postcondition: The round is persisted or a non-nil error is returned.
func (r *HistoryRepository) RecordRound(ctx context.Context, rec coordinator.RoundRecord) error {
	if rec.RoomID == "" {
		return fmt.Errorf("recording round: room id must not be empty")
	}
	tally := rec.Tally
	if tally == nil {
		tally = map[string]int{}
	}
	var resolvedAt *time.Time
	if !rec.ResolvedAt.IsZero() {
		ts := rec.ResolvedAt.UTC()
		resolvedAt = &ts
	}
	var votedOut *string
	if rec.VotedOut != "" {
		votedOut = &rec.VotedOut
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO vote_rounds
			(room_id, voted_out, was_imposter, outcome, tally,
			 remaining_players, remaining_imposters, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))`,
		rec.RoomID, votedOut, rec.WasImposter, rec.Outcome, tally,
		rec.RemainingPlayers, rec.RemainingImposters, resolvedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting vote round: %w", err)
	}
	return nil
}

// Recent returns up to limit rounds for roomID, newest first.
//
// Precondition: limit must be > 0.
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *HistoryRepository) Recent(ctx context.Context, roomID string, limit int) ([]coordinator.RoundRecord, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	rows, err := r.db.Query(ctx, `
		SELECT room_id, COALESCE(voted_out, ''), was_imposter, outcome, tally,
		       remaining_players, remaining_imposters, resolved_at
		FROM vote_rounds
		WHERE room_id = $1
		ORDER BY resolved_at DESC, id DESC
		LIMIT $2`,
		roomID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing vote rounds: %w", err)
	}
	defer rows.Close()

	out := make([]coordinator.RoundRecord, 0)
	for rows.Next() {
		var rec coordinator.RoundRecord
		if err := rows.Scan(
			&rec.RoomID, &rec.VotedOut, &rec.WasImposter, &rec.Outcome, &rec.Tally,
			&rec.RemainingPlayers, &rec.RemainingImposters, &rec.ResolvedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning vote round row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
