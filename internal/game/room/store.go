package room

import (
	"sync"
)

// Room is the state shared by both room variants.
type Room interface {
	ID() string
	Mode() Mode
	Roster() *Roster
}

// New creates an empty room of the given mode.
//
// Postcondition: Returns (nil, false) when mode is not a known variant.
func New(id string, mode Mode) (Room, bool) {
	switch mode {
	case ModeBoard:
		return NewBoardRoom(id), true
	case ModeVote:
		return NewVoteRoom(id), true
	default:
		return nil, false
	}
}

type entry struct {
	mu      sync.Mutex
	room    Room
	removed bool
}

// Store maps room ids to rooms. Each room is its own mutual-exclusion
// domain; the map lock is held only to look up, create, or drop an entry.
//
// Lock order: an entry's mutex is acquired before the store's map lock.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*entry
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{rooms: make(map[string]*entry)}
}

// Len returns the number of live rooms.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// Update runs fn with exclusive access to the room with the given id.
// After fn returns, a room whose roster is empty is dropped from the store.
//
// Postcondition: Returns false without calling fn when the room is unknown.
func (s *Store) Update(roomID string, fn func(Room)) bool {
	for {
		s.mu.RLock()
		e, ok := s.rooms[roomID]
		s.mu.RUnlock()
		if !ok {
			return false
		}
		if s.run(roomID, e, fn) {
			return true
		}
	}
}

// Upsert runs fn with exclusive access to the room with the given id,
// creating an empty room of the given mode first when none exists.
//
// Postcondition: Returns false without calling fn when mode is invalid.
func (s *Store) Upsert(roomID string, mode Mode, fn func(Room)) bool {
	if !mode.Valid() {
		return false
	}
	for {
		e := s.getOrCreate(roomID, mode)
		if s.run(roomID, e, fn) {
			return true
		}
	}
}

// Roster returns a snapshot of the room's players.
//
// Postcondition: The result is empty (never nil) when the room is unknown.
func (s *Store) Roster(roomID string) []Player {
	players := []Player{}
	s.Update(roomID, func(r Room) {
		players = r.Roster().Snapshot()
	})
	return players
}

func (s *Store) getOrCreate(roomID string, mode Mode) *entry {
	s.mu.RLock()
	e, ok := s.rooms[roomID]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.rooms[roomID]; ok {
		return e
	}
	r, _ := New(roomID, mode)
	e = &entry{room: r}
	s.rooms[roomID] = e
	return e
}

// run locks e and calls fn. It reports false when e was dropped between
// lookup and lock, in which case the caller retries with a fresh lookup.
func (s *Store) run(roomID string, e *entry, fn func(Room)) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return false
	}
	fn(e.room)
	if e.room.Roster().Len() == 0 {
		e.removed = true
		s.mu.Lock()
		if s.rooms[roomID] == e {
			delete(s.rooms, roomID)
		}
		s.mu.Unlock()
	}
	return true
}
