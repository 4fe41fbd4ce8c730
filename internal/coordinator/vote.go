package coordinator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/roomcoord/internal/game/room"
	"github.com/cory-johannsen/roomcoord/internal/protocol"
)

// joinVote seats p by name. A connection asking for a name another
// connection already holds is ignored.
//
// Precondition: the room's lock is held.
func (c *Coordinator) joinVote(rm *room.VoteRoom, p room.Player) {
	if !rm.Join(p) && !ownsSeat(rm.Roster(), p.Name, p.ConnectionID) {
		c.ignore("name already seated", p.ConnectionID,
			zap.String("room_id", rm.ID()),
			zap.String("name", p.Name),
		)
		return
	}
	c.registry.Register(p.ConnectionID, p.Name, rm.ID())
	c.broadcast(rm.Roster(), players(rm.Roster()))

	c.logger.Info("player joined",
		zap.String("room_id", rm.ID()),
		zap.String("mode", string(rm.Mode())),
		zap.String("conn_id", p.ConnectionID),
		zap.String("name", p.Name),
		zap.Int("players", rm.Roster().Len()),
	)
}

// imposterCount picks the requested count, else the room preset, else the
// configured default. An explicit zero is honoured.
func (c *Coordinator) imposterCount(roomID string, requested *int) int {
	if requested != nil {
		return *requested
	}
	if preset, ok := c.presets.Lookup(roomID); ok && preset.Imposters > 0 {
		return preset.Imposters
	}
	return c.defaults.Imposters
}

// startGame assigns imposters. The full imposter list goes to every member
// of the room; clients are trusted to hide it from non-imposters.
func (c *Coordinator) startGame(ev protocol.StartGame) {
	count := c.imposterCount(ev.RoomID, ev.ImposterCount)
	c.store.Update(ev.RoomID, func(r room.Room) {
		rm, ok := r.(*room.VoteRoom)
		if !ok {
			return
		}
		imposters := rm.StartGame(count, c.dice)
		roster := rm.Roster()
		c.broadcast(roster, protocol.Notification{
			Event: protocol.NotifyGameStarted,
			Data: protocol.GameStarted{
				RoomID:    rm.ID(),
				Players:   roster.Len(),
				Imposters: len(imposters),
			},
		})
		c.broadcast(roster, protocol.Notification{Event: protocol.NotifyImposters, Data: imposters})

		c.logger.Info("game started",
			zap.String("room_id", rm.ID()),
			zap.Int("players", roster.Len()),
			zap.Int("imposters", len(imposters)),
		)
	})
}

// submitVote records a vote from the sender's bound name. The voter does
// not have to be seated in the room the vote targets.
func (c *Coordinator) submitVote(connID string, ev protocol.SubmitVote) {
	b, ok := c.registry.Resolve(connID)
	if !ok {
		c.ignore("vote from unbound connection", connID)
		return
	}
	c.store.Update(ev.RoomID, func(r room.Room) {
		rm, ok := r.(*room.VoteRoom)
		if !ok {
			return
		}
		if !rm.SubmitVote(b.Name, ev.Target) {
			c.ignore("vote rejected", connID, zap.String("room_id", ev.RoomID), zap.String("voter", b.Name))
			return
		}
		c.broadcast(rm.Roster(), protocol.Notification{Event: protocol.NotifyVotes, Data: rm.Tally()})
		c.broadcast(rm.Roster(), players(rm.Roster()))
	})
}

func (c *Coordinator) endVoting(ctx context.Context, ev protocol.EndVoting) {
	var (
		res      room.Resolution
		resolved bool
	)
	c.store.Update(ev.RoomID, func(r room.Room) {
		rm, ok := r.(*room.VoteRoom)
		if !ok {
			return
		}
		res, resolved = rm.EndVoting()
		if !resolved {
			return
		}
		roster := rm.Roster()
		votedOut := protocol.Notification{
			Event: protocol.NotifyVotedOut,
			Data:  protocol.VotedOut{RoomID: rm.ID(), Name: res.VotedOut()},
		}
		c.broadcast(roster, votedOut)
		if !res.HasElimination {
			c.logger.Info("round resolved without elimination", zap.String("room_id", rm.ID()))
			return
		}

		gone := res.Eliminated.ConnectionID
		c.send(gone, votedOut)
		c.send(gone, protocol.Notification{
			Event: protocol.NotifyEliminated,
			Data:  protocol.Eliminated{RoomID: rm.ID(), Name: res.Eliminated.Name},
		})

		over := protocol.GameOver{
			RoomID:             rm.ID(),
			RemainingPlayers:   res.Remaining,
			RemainingImposters: res.RemainingImposters,
		}
		switch res.Outcome {
		case room.OutcomeImpostersLose:
			c.broadcast(roster, protocol.Notification{Event: protocol.NotifyImpostersLose, Data: over})
		case room.OutcomeImpostersWin:
			c.broadcast(roster, protocol.Notification{Event: protocol.NotifyImpostersWin, Data: over})
		}
		c.logger.Info("player voted out",
			zap.String("room_id", rm.ID()),
			zap.String("name", res.Eliminated.Name),
			zap.Bool("imposter", res.WasImposter),
			zap.Stringer("outcome", res.Outcome),
		)
	})
	if resolved {
		c.record(ctx, ev.RoomID, res)
	}
}

func (c *Coordinator) resetRound(ev protocol.ResetRound) {
	c.store.Update(ev.RoomID, func(r room.Room) {
		rm, ok := r.(*room.VoteRoom)
		if !ok {
			return
		}
		rm.ResetRound()
		c.broadcast(rm.Roster(), players(rm.Roster()))
	})
}

// record appends a resolved round to the history, if one is configured.
// Failures are logged; room state never depends on history.
func (c *Coordinator) record(ctx context.Context, roomID string, res room.Resolution) {
	if c.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, c.historyTimeout)
	defer cancel()

	rec := RoundRecord{
		RoomID:             roomID,
		VotedOut:           res.VotedOut(),
		WasImposter:        res.WasImposter,
		Outcome:            res.Outcome.String(),
		Tally:              res.Tally,
		RemainingPlayers:   res.Remaining,
		RemainingImposters: res.RemainingImposters,
		ResolvedAt:         time.Now().UTC(),
	}
	if err := c.history.RecordRound(ctx, rec); err != nil {
		c.logger.Error("recording round", zap.String("room_id", roomID), zap.Error(err))
	}
}
