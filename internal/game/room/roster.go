package room

// Roster is the ordered player sequence of a room together with its turn pointer.
//
// Invariant: 0 <= turn < len(players) whenever players is non-empty; turn == 0 otherwise.
// Invariant: no two players share an identity key.
type Roster struct {
	players []*Player
	turn    int
	key     KeyFunc
}

// NewRoster creates an empty roster that deduplicates players with key.
//
// Precondition: key must be non-nil.
func NewRoster(key KeyFunc) *Roster {
	return &Roster{key: key}
}

// Len returns the number of players.
func (r *Roster) Len() int { return len(r.players) }

// KeyOf returns the identity key of p under this roster's keying.
func (r *Roster) KeyOf(p Player) string { return r.key(p) }

// Find returns the live player with the given key and its index.
//
// Postcondition: Returns (nil, -1) when no player has the key.
func (r *Roster) Find(key string) (*Player, int) {
	for i, p := range r.players {
		if r.key(*p) == key {
			return p, i
		}
	}
	return nil, -1
}

// Add appends p unless a player with the same key is already present.
//
// Postcondition: Returns true iff the roster grew by one.
func (r *Roster) Add(p Player) bool {
	if existing, _ := r.Find(r.key(p)); existing != nil {
		return false
	}
	added := p.clone()
	r.players = append(r.players, &added)
	return true
}

// Remove deletes the player with the given key and reindexes the turn pointer.
//
// Postcondition: Returns the removed player and its former index, or ok == false
// when no player has the key (the roster is unchanged).
func (r *Roster) Remove(key string) (removed Player, index int, ok bool) {
	p, i := r.Find(key)
	if p == nil {
		return Player{}, -1, false
	}
	r.players = append(r.players[:i], r.players[i+1:]...)
	r.turn = reindexAfterRemoval(r.turn, i, len(r.players))
	return *p, i, true
}

// Snapshot returns a deep copy of the players in roster order.
//
// Postcondition: The result is never nil and shares no memory with the roster.
func (r *Roster) Snapshot() []Player {
	out := make([]Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p.clone())
	}
	return out
}

// Each calls fn for every live player in roster order.
func (r *Roster) Each(fn func(*Player)) {
	for _, p := range r.players {
		fn(p)
	}
}

// Names returns the display names in roster order.
func (r *Roster) Names() []string {
	names := make([]string, 0, len(r.players))
	for _, p := range r.players {
		names = append(names, p.Name)
	}
	return names
}

// ConnectionIDs returns the connection ids in roster order.
func (r *Roster) ConnectionIDs() []string {
	ids := make([]string, 0, len(r.players))
	for _, p := range r.players {
		ids = append(ids, p.ConnectionID)
	}
	return ids
}
