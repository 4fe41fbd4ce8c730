package room

// TurnIndex returns the index of the player whose turn it is.
func (r *Roster) TurnIndex() int { return r.turn }

// Active returns the player at the turn pointer.
//
// Postcondition: Returns (nil, false) when the roster is empty.
func (r *Roster) Active() (*Player, bool) {
	if len(r.players) == 0 {
		return nil, false
	}
	return r.players[r.turn], true
}

// AdvanceTurn passes the turn to the next player in roster order. Only the
// active player may pass.
//
// Postcondition: On success the pointer is (old+1) mod Len() and ok is true.
// When the roster is empty or requesterKey is not the active player, the
// pointer is unchanged and ok is false.
func (r *Roster) AdvanceTurn(requesterKey string) (next int, ok bool) {
	active, found := r.Active()
	if !found || r.key(*active) != requesterKey {
		return r.turn, false
	}
	r.turn = (r.turn + 1) % len(r.players)
	return r.turn, true
}

// reindexAfterRemoval computes the turn pointer after the player at
// removedIndex left, given the roster length after removal.
//
// The same logical next player stays active when someone earlier in the
// sequence leaves. When the pointer would run past the end it wraps to 0.
func reindexAfterRemoval(turn, removedIndex, remaining int) int {
	switch {
	case remaining == 0:
		return 0
	case turn >= remaining:
		return 0
	case removedIndex < turn:
		return turn - 1
	default:
		return turn
	}
}
