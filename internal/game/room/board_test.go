package room

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoardRoom_UpdatePosition(t *testing.T) {
	b := NewBoardRoom("r1")
	b.Join(Player{ConnectionID: "c1", Name: "alice"})

	pos := json.RawMessage(`[3,4]`)
	require.True(t, b.UpdatePosition("c1", pos, true))
	pos[1] = '0'

	snap := b.Roster().Snapshot()
	assert.JSONEq(t, `[3,4]`, string(snap[0].Position))
	assert.True(t, snap[0].HasMovedForward)

	assert.False(t, b.UpdatePosition("ghost", pos, true))
}

func TestBoardRoom_ResetMovedForward(t *testing.T) {
	b := NewBoardRoom("r1")
	b.Join(Player{ConnectionID: "c1"})
	b.Join(Player{ConnectionID: "c2"})
	b.UpdatePosition("c1", nil, true)
	b.UpdatePosition("c2", nil, true)

	b.ResetMovedForward()
	for _, p := range b.Roster().Snapshot() {
		assert.False(t, p.HasMovedForward, p.ConnectionID)
	}
}

func TestBoardRoom_PassTurnAndLeave(t *testing.T) {
	b := NewBoardRoom("r1")
	b.Join(Player{ConnectionID: "c1"})
	b.Join(Player{ConnectionID: "c2"})
	assert.Equal(t, ModeBoard, b.Mode())

	_, ok := b.PassTurn("c2")
	assert.False(t, ok)
	next, ok := b.PassTurn("c1")
	require.True(t, ok)
	assert.Equal(t, 1, next)

	left, ok := b.Leave("c2")
	require.True(t, ok)
	assert.Equal(t, "c2", left.ConnectionID)
	assert.Equal(t, 0, b.Roster().TurnIndex())
}
