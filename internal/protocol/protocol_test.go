package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDecode_Join(t *testing.T) {
	ev, err := Decode([]byte(`{"event":"join","data":{"roomId":"r1","mode":"vote","name":"alice"}}`))
	require.NoError(t, err)
	join, ok := ev.(Join)
	require.True(t, ok)
	assert.Equal(t, "r1", join.RoomID)
	assert.Equal(t, "vote", join.Mode)
	assert.Equal(t, "alice", join.Name)
	assert.Equal(t, EventJoin, join.EventName())
}

func TestDecode_LegacyNewPlayer(t *testing.T) {
	ev, err := Decode([]byte(`{"event":"newPlayer","data":{"id":"abc","name":"bob","positionArray":[0,0]}}`))
	require.NoError(t, err)
	join := ev.(Join)
	assert.Equal(t, LegacyRoomID, join.RoomID)
	assert.Equal(t, "board", join.Mode)
	assert.JSONEq(t, `[0,0]`, string(join.Position))
}

func TestDecode_EventsWithoutData(t *testing.T) {
	for _, name := range []string{EventPassTurn, EventResetMovedForward} {
		ev, err := Decode([]byte(`{"event":"` + name + `"}`))
		require.NoError(t, err, name)
		assert.Equal(t, name, ev.EventName())
	}
}

func TestDecode_AllEvents(t *testing.T) {
	cases := []struct {
		frame string
		want  Event
	}{
		{
			frame: `{"event":"startGame","data":{"roomId":"r","imposterCount":2}}`,
			want:  StartGame{RoomID: "r", ImposterCount: count(2)},
		},
		{
			frame: `{"event":"updatePosition","data":{"positionArray":[1,2],"hasMovedForward":true}}`,
			want:  UpdatePosition{Position: json.RawMessage(`[1,2]`), HasMovedForward: true},
		},
		{
			frame: `{"event":"submitVote","data":{"roomId":"r","target":"bob"}}`,
			want:  SubmitVote{RoomID: "r", Target: "bob"},
		},
		{
			frame: `{"event":"endVoting","data":{"roomId":"r"}}`,
			want:  EndVoting{RoomID: "r"},
		},
		{
			frame: `{"event":"resetRound","data":{"roomId":"r"}}`,
			want:  ResetRound{RoomID: "r"},
		},
	}
	for _, tc := range cases {
		got, err := Decode([]byte(tc.frame))
		require.NoError(t, err, tc.frame)
		assert.Equal(t, tc.want, got, tc.frame)
	}
}

func TestDecode_Errors(t *testing.T) {
	cases := []struct {
		frame string
		want  error
	}{
		{`not json`, ErrInvalidPayload},
		{`{"event":"teleport"}`, ErrUnknownEvent},
		{`{"event":""}`, ErrUnknownEvent},
		{`{"event":"join","data":{"roomId":"r"}}`, ErrInvalidPayload},
		{`{"event":"join","data":{"name":"a"}}`, ErrInvalidPayload},
		{`{"event":"join","data":{"roomId":"r","name":"a","mode":"chess"}}`, ErrInvalidPayload},
		{`{"event":"join","data":{"roomId":"r","name":"a","positionArray":"x"}}`, ErrInvalidPayload},
		{`{"event":"join","data":"oops"}`, ErrInvalidPayload},
		{`{"event":"startGame","data":{"roomId":"r","imposterCount":-1}}`, ErrInvalidPayload},
		{`{"event":"updatePosition","data":{}}`, ErrInvalidPayload},
		{`{"event":"submitVote","data":{"roomId":"r"}}`, ErrInvalidPayload},
		{`{"event":"endVoting","data":{}}`, ErrInvalidPayload},
		{`{"event":"resetRound"}`, ErrInvalidPayload},
	}
	for _, tc := range cases {
		_, err := Decode([]byte(tc.frame))
		assert.ErrorIs(t, err, tc.want, tc.frame)
	}
}

func TestNotification_Encode(t *testing.T) {
	frame, err := Notification{Event: NotifyTurnUpdate, Data: 2}.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"turnUpdate","data":2}`, string(frame))

	frame, err = Notification{Event: NotifyEliminated}.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"eliminated"}`, string(frame))

	frame, err = Notification{Event: NotifyVotedOut, Data: VotedOut{RoomID: "r", Name: ""}}.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"votedOut","data":{"roomId":"r","name":""}}`, string(frame))
}

func TestNotification_EncodeUnsupported(t *testing.T) {
	_, err := Notification{Event: NotifyVotes, Data: func() {}}.Encode()
	assert.Error(t, err)
}

func TestProperty_DecodeNeverPanics(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		frame := rapid.SliceOf(rapid.Byte()).Draw(t, "frame")
		ev, err := Decode(frame)
		if err == nil && ev == nil {
			t.Fatalf("nil event without error for %q", frame)
		}
	})
}

func TestProperty_ValidJoinRoundTrips(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		want := Join{
			RoomID: rapid.StringMatching(`[a-z0-9-]{1,20}`).Draw(t, "room"),
			Mode:   rapid.SampledFrom([]string{"", "board", "vote"}).Draw(t, "mode"),
			Name:   rapid.StringMatching(`[A-Za-z]{1,20}`).Draw(t, "name"),
		}
		data, err := json.Marshal(want)
		if err != nil {
			t.Fatal(err)
		}
		frame, _ := json.Marshal(Envelope{Event: EventJoin, Data: data})
		got, err := Decode(frame)
		if err != nil {
			t.Fatalf("decode %s: %v", frame, err)
		}
		join := got.(Join)
		if join.RoomID != want.RoomID || join.Mode != want.Mode || join.Name != want.Name {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	})
}

func count(n int) *int { return &n }

func TestDecode_StartGameCountPresence(t *testing.T) {
	ev, err := Decode([]byte(`{"event":"startGame","data":{"roomId":"r"}}`))
	require.NoError(t, err)
	assert.Nil(t, ev.(StartGame).ImposterCount, "absent count stays nil")

	ev, err = Decode([]byte(`{"event":"startGame","data":{"roomId":"r","imposterCount":0}}`))
	require.NoError(t, err)
	require.NotNil(t, ev.(StartGame).ImposterCount)
	assert.Equal(t, 0, *ev.(StartGame).ImposterCount)
}
