package room

import (
	"github.com/cory-johannsen/roomcoord/internal/game/dice"
)

// Phase is the voting state of a VoteRoom.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseVoting
	PhaseResolved
)

// String returns a human-readable phase label.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseVoting:
		return "voting"
	case PhaseResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Outcome is the game result decided after an elimination.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeImpostersWin
	OutcomeImpostersLose
)

// String returns a human-readable outcome label.
func (o Outcome) String() string {
	switch o {
	case OutcomeImpostersWin:
		return "imposters win"
	case OutcomeImpostersLose:
		return "imposters lose"
	default:
		return "none"
	}
}

// Resolution reports what EndVoting decided.
type Resolution struct {
	// Tally is the raw vote tally of the round that just ended.
	Tally map[string]int
	// Eliminated is the voted-out player; valid only when HasElimination is true.
	Eliminated     Player
	HasElimination bool
	// WasImposter reports whether the eliminated player held the imposter role.
	WasImposter bool
	Outcome     Outcome
	// Remaining and RemainingImposters are counted after the elimination.
	Remaining          int
	RemainingImposters int
}

// VotedOut returns the eliminated player's name, or "" when no one was voted out.
func (r Resolution) VotedOut() string {
	if !r.HasElimination {
		return ""
	}
	return r.Eliminated.Name
}

// VoteRoom is the imposter voting game. Players are keyed by display name.
//
// Invariant: every imposter name is the name of a seated player.
// Invariant: voters holds at most one entry per name per round.
type VoteRoom struct {
	id        string
	roster    *Roster
	imposters map[string]struct{}
	phase     Phase
	tally     map[string]int
	voters    map[string]struct{}
}

// NewVoteRoom creates an empty vote room in PhaseIdle.
func NewVoteRoom(id string) *VoteRoom {
	return &VoteRoom{
		id:        id,
		roster:    NewRoster(ByName),
		imposters: make(map[string]struct{}),
		tally:     make(map[string]int),
		voters:    make(map[string]struct{}),
	}
}

// ID returns the room id.
func (v *VoteRoom) ID() string { return v.id }

// Mode returns ModeVote.
func (v *VoteRoom) Mode() Mode { return ModeVote }

// Roster returns the live roster. Callers must hold the room's lock.
func (v *VoteRoom) Roster() *Roster { return v.roster }

// Phase returns the current voting phase.
func (v *VoteRoom) Phase() Phase { return v.phase }

// Join seats p keyed by display name. A second join under a seated name is a no-op.
func (v *VoteRoom) Join(p Player) bool {
	return v.roster.Add(p)
}

// Leave unseats the named player, drops them from the imposter set, and
// reindexes the turn pointer. Votes they cast this round stay counted.
func (v *VoteRoom) Leave(name string) (Player, bool) {
	p, _, ok := v.roster.Remove(name)
	if ok {
		delete(v.imposters, name)
	}
	return p, ok
}

// PassTurn advances the turn when name is the active player.
func (v *VoteRoom) PassTurn(name string) (int, bool) {
	return v.roster.AdvanceTurn(name)
}

// StartGame draws a uniformly random ordering of the seated names and marks
// the first count of them as imposters. Round state from any previous game is
// cleared.
//
// Precondition: src must be non-nil.
// Postcondition: len(Imposters()) == min(max(count, 0), Roster().Len()).
func (v *VoteRoom) StartGame(count int, src dice.Source) []string {
	names := v.roster.Names()
	dice.Shuffle(names, src)
	count = max(0, min(count, len(names)))

	v.imposters = make(map[string]struct{}, count)
	for _, name := range names[:count] {
		v.imposters[name] = struct{}{}
	}
	v.ResetRound()
	return v.Imposters()
}

// Imposters returns the imposter names in roster order.
func (v *VoteRoom) Imposters() []string {
	out := make([]string, 0, len(v.imposters))
	for _, name := range v.roster.Names() {
		if _, ok := v.imposters[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// IsImposter reports whether name holds the imposter role.
func (v *VoteRoom) IsImposter(name string) bool {
	_, ok := v.imposters[name]
	return ok
}

// Tally returns a copy of the raw vote tally for the current round.
func (v *VoteRoom) Tally() map[string]int {
	out := make(map[string]int, len(v.tally))
	for k, n := range v.tally {
		out[k] = n
	}
	return out
}

// HasVoted reports whether voter already voted this round.
func (v *VoteRoom) HasVoted(voter string) bool {
	_, ok := v.voters[voter]
	return ok
}

// SubmitVote records voter's vote for target.
//
// The voter is not required to be seated in this room.
//
// Postcondition: Returns false and changes nothing when voter is empty, voter
// already voted this round, or the round is already resolved. Otherwise the
// room is in PhaseVoting, target's tally is incremented, and target's
// VoteCount is incremented when target is seated.
func (v *VoteRoom) SubmitVote(voter, target string) bool {
	if voter == "" || v.phase == PhaseResolved {
		return false
	}
	if _, voted := v.voters[voter]; voted {
		return false
	}
	v.phase = PhaseVoting
	v.voters[voter] = struct{}{}
	v.tally[target]++
	if p, _ := v.roster.Find(target); p != nil {
		p.VoteCount++
	}
	return true
}

// EndVoting resolves the round by plurality. A single player holding the
// strict maximum (> 0) is voted out; a tie at the maximum or a round with no
// votes eliminates no one. Every VoteCount is zeroed either way.
//
// Postcondition: Returns ok == false and changes nothing when the round is
// already resolved. Otherwise the room is in PhaseResolved.
func (v *VoteRoom) EndVoting() (Resolution, bool) {
	if v.phase == PhaseResolved {
		return Resolution{}, false
	}

	best := 0
	var leaders []string
	v.roster.Each(func(p *Player) {
		switch {
		case p.VoteCount > best:
			best = p.VoteCount
			leaders = []string{p.Name}
		case p.VoteCount == best && best > 0:
			leaders = append(leaders, p.Name)
		}
	})

	res := Resolution{Tally: v.Tally()}
	v.roster.Each(func(p *Player) { p.VoteCount = 0 })
	v.phase = PhaseResolved

	if best > 0 && len(leaders) == 1 {
		res.WasImposter = v.IsImposter(leaders[0])
		res.Eliminated, res.HasElimination = v.Leave(leaders[0])
		res.Remaining = v.roster.Len()
		res.RemainingImposters = len(v.imposters)
		res.Outcome = decide(res.RemainingImposters, res.Remaining)
	} else {
		res.Remaining = v.roster.Len()
		res.RemainingImposters = len(v.imposters)
	}
	return res, true
}

// ResetRound returns the room to PhaseIdle, clearing the tally, the voters
// set, and every VoteCount. Eliminated players stay out.
func (v *VoteRoom) ResetRound() {
	v.phase = PhaseIdle
	v.tally = make(map[string]int)
	v.voters = make(map[string]struct{})
	v.roster.Each(func(p *Player) { p.VoteCount = 0 })
}

// decide evaluates the win condition after an elimination.
func decide(imposters, remaining int) Outcome {
	switch {
	case imposters == 0:
		return OutcomeImpostersLose
	case imposters >= remaining/2:
		return OutcomeImpostersWin
	default:
		return OutcomeNone
	}
}
