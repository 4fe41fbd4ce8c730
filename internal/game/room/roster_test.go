package room

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func seat(r *Roster, keys ...string) {
	for _, k := range keys {
		r.Add(Player{ConnectionID: k, Name: k})
	}
}

func TestRoster_AddIsIdempotent(t *testing.T) {
	r := NewRoster(ByName)
	assert.True(t, r.Add(Player{ConnectionID: "c1", Name: "alice"}))
	assert.False(t, r.Add(Player{ConnectionID: "c2", Name: "alice"}))
	assert.Equal(t, 1, r.Len())
	p, i := r.Find("alice")
	require.NotNil(t, p)
	assert.Equal(t, 0, i)
	assert.Equal(t, "c1", p.ConnectionID, "first join wins")
}

func TestRoster_ByConnectionAllowsDuplicateNames(t *testing.T) {
	r := NewRoster(ByConnection)
	assert.True(t, r.Add(Player{ConnectionID: "c1", Name: "alice"}))
	assert.True(t, r.Add(Player{ConnectionID: "c2", Name: "alice"}))
	assert.Equal(t, []string{"alice", "alice"}, r.Names())
	assert.Equal(t, []string{"c1", "c2"}, r.ConnectionIDs())
}

func TestRoster_RemoveUnknownIsNoop(t *testing.T) {
	r := NewRoster(ByName)
	seat(r, "a", "b")
	_, idx, ok := r.Remove("zed")
	assert.False(t, ok)
	assert.Equal(t, -1, idx)
	assert.Equal(t, 2, r.Len())
}

func TestRoster_SnapshotIsDetached(t *testing.T) {
	r := NewRoster(ByName)
	r.Add(Player{Name: "a", Position: []byte(`[1,2]`)})
	snap := r.Snapshot()
	snap[0].Position[1] = '9'
	snap[0].VoteCount = 7

	p, _ := r.Find("a")
	assert.Equal(t, `[1,2]`, string(p.Position))
	assert.Equal(t, 0, p.VoteCount)
}

func TestRoster_SnapshotEmptyIsNotNil(t *testing.T) {
	assert.NotNil(t, NewRoster(ByName).Snapshot())
}

func TestAdvanceTurn_OnlyActivePlayer(t *testing.T) {
	r := NewRoster(ByName)
	seat(r, "a", "b", "c")

	_, ok := r.AdvanceTurn("b")
	assert.False(t, ok)
	assert.Equal(t, 0, r.TurnIndex())

	next, ok := r.AdvanceTurn("a")
	require.True(t, ok)
	assert.Equal(t, 1, next)

	r.AdvanceTurn("b")
	next, ok = r.AdvanceTurn("c")
	require.True(t, ok)
	assert.Equal(t, 0, next, "turn wraps to the first player")
}

func TestAdvanceTurn_EmptyRoster(t *testing.T) {
	r := NewRoster(ByName)
	_, ok := r.AdvanceTurn("")
	assert.False(t, ok)
	_, found := r.Active()
	assert.False(t, found)
}

func TestReindexAfterRemoval(t *testing.T) {
	cases := []struct {
		name                     string
		turn, removed, remaining int
		want                     int
	}{
		{"roster emptied", 0, 0, 0, 0},
		{"pointer overflows", 2, 2, 2, 0},
		{"earlier player left", 2, 0, 3, 1},
		{"active player left mid-roster", 1, 1, 3, 1},
		{"later player left", 1, 3, 3, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, reindexAfterRemoval(tc.turn, tc.removed, tc.remaining))
		})
	}
}

// Roster [A,B,C,D] with B active; B disconnects. B's index equals the
// pointer and 1 < 3, so the pointer stays 1 and C, who followed B, is active.
func TestRemove_ActivePlayerDisconnects(t *testing.T) {
	r := NewRoster(ByName)
	seat(r, "A", "B", "C", "D")
	_, ok := r.AdvanceTurn("A")
	require.True(t, ok)
	require.Equal(t, 1, r.TurnIndex())

	_, idx, ok := r.Remove("B")
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, []string{"A", "C", "D"}, r.Names())
	assert.Equal(t, 1, r.TurnIndex())
	active, _ := r.Active()
	assert.Equal(t, "C", active.Name)
}

func TestRemove_LastActivePlayerWraps(t *testing.T) {
	r := NewRoster(ByName)
	seat(r, "A", "B", "C")
	r.AdvanceTurn("A")
	r.AdvanceTurn("B")
	require.Equal(t, 2, r.TurnIndex())

	r.Remove("C")
	assert.Equal(t, 0, r.TurnIndex())
}

func TestProperty_TurnIndexStaysInRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := NewRoster(ByName)
		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			key := fmt.Sprintf("p%d", rapid.IntRange(0, 7).Draw(t, "key"))
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				r.Add(Player{Name: key})
			case 1:
				r.Remove(key)
			case 2:
				if active, ok := r.Active(); ok {
					r.AdvanceTurn(active.Name)
				}
			}
			if r.Len() == 0 {
				if r.TurnIndex() != 0 {
					t.Fatalf("empty roster has turn %d", r.TurnIndex())
				}
				continue
			}
			if r.TurnIndex() < 0 || r.TurnIndex() >= r.Len() {
				t.Fatalf("turn %d out of range for %d players", r.TurnIndex(), r.Len())
			}
		}
	})
}

func TestProperty_NonActivePassNeverMovesTurn(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 8).Draw(t, "n")
		r := NewRoster(ByName)
		for i := 0; i < n; i++ {
			r.Add(Player{Name: fmt.Sprintf("p%d", i)})
		}
		for i := rapid.IntRange(0, n-1).Draw(t, "advance"); i > 0; i-- {
			active, _ := r.Active()
			r.AdvanceTurn(active.Name)
		}
		before := r.TurnIndex()
		other := rapid.IntRange(0, n-1).Filter(func(i int) bool { return i != before }).Draw(t, "other")

		if _, ok := r.AdvanceTurn(fmt.Sprintf("p%d", other)); ok {
			t.Fatalf("p%d passed while p%d was active", other, before)
		}
		if r.TurnIndex() != before {
			t.Fatalf("turn moved from %d to %d", before, r.TurnIndex())
		}
	})
}

func TestProperty_ActivePassAdvancesByOne(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "n")
		r := NewRoster(ByConnection)
		for i := 0; i < n; i++ {
			r.Add(Player{ConnectionID: fmt.Sprintf("c%d", i)})
		}
		for i := rapid.IntRange(0, 3*n).Draw(t, "passes"); i > 0; i-- {
			old := r.TurnIndex()
			active, _ := r.Active()
			next, ok := r.AdvanceTurn(active.ConnectionID)
			if !ok || next != (old+1)%n {
				t.Fatalf("pass from %d gave (%d, %v), want %d", old, next, ok, (old+1)%n)
			}
		}
	})
}

func TestProperty_RemovalBeforePointerDecrements(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 8).Draw(t, "n")
		r := NewRoster(ByName)
		for i := 0; i < n; i++ {
			r.Add(Player{Name: fmt.Sprintf("p%d", i)})
		}
		turn := rapid.IntRange(1, n-1).Draw(t, "turn")
		for i := 0; i < turn; i++ {
			active, _ := r.Active()
			r.AdvanceTurn(active.Name)
		}
		victim := rapid.IntRange(0, turn-1).Draw(t, "victim")
		r.Remove(fmt.Sprintf("p%d", victim))
		if r.TurnIndex() != turn-1 {
			t.Fatalf("removing index %d with turn %d left turn %d", victim, turn, r.TurnIndex())
		}
	})
}
