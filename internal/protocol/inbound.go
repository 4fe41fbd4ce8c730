// Package protocol defines the JSON wire format spoken by every transport:
// a closed set of inbound events, each validated before it reaches the
// coordinator, and the outbound notifications the coordinator emits.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnknownEvent is returned when an envelope names no known event.
	ErrUnknownEvent = errors.New("unknown event")
	// ErrInvalidPayload is returned when an event's data is malformed or fails validation.
	ErrInvalidPayload = errors.New("invalid payload")
)

// Inbound event names.
const (
	EventJoin              = "join"
	EventNewPlayer         = "newPlayer"
	EventStartGame         = "startGame"
	EventUpdatePosition    = "updatePosition"
	EventPassTurn          = "passTurn"
	EventResetMovedForward = "resetMovedForward"
	EventSubmitVote        = "submitVote"
	EventEndVoting         = "endVoting"
	EventResetRound        = "resetRound"
)

// MaxNameLength bounds display names and room ids.
const MaxNameLength = 64

// LegacyRoomID is the room a newPlayer event joins when it names none.
// Clients of the single-room board game never send a room id.
const LegacyRoomID = "default"

// Envelope is the frame every message travels in.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Event is one validated inbound message. The set of implementations is
// closed; the coordinator switches over the concrete types.
type Event interface {
	// EventName returns the wire name of the event.
	EventName() string
	// Validate reports whether the payload is acceptable.
	Validate() error
	sealed()
}

// Join seats the sender in a room, creating it on first join.
type Join struct {
	RoomID string `json:"roomId"`
	// Mode is "board" or "vote"; empty selects the preset or configured default.
	Mode     string          `json:"mode,omitempty"`
	Name     string          `json:"name"`
	Position json.RawMessage `json:"positionArray,omitempty"`
}

// StartGame assigns imposters in a vote room. A missing ImposterCount
// selects the room's preset or configured default; an explicit 0 assigns none.
type StartGame struct {
	RoomID        string `json:"roomId"`
	ImposterCount *int   `json:"imposterCount,omitempty"`
}

// UpdatePosition moves the sender's own player.
type UpdatePosition struct {
	Position        json.RawMessage `json:"positionArray"`
	HasMovedForward bool            `json:"hasMovedForward"`
}

// PassTurn hands the turn to the next player when the sender is active.
type PassTurn struct{}

// ResetMovedForward clears the forward-move flags in the sender's room.
type ResetMovedForward struct{}

// SubmitVote casts the sender's vote for Target.
type SubmitVote struct {
	RoomID string `json:"roomId"`
	Target string `json:"target"`
}

// EndVoting resolves the current round.
type EndVoting struct {
	RoomID string `json:"roomId"`
}

// ResetRound clears the round state.
type ResetRound struct {
	RoomID string `json:"roomId"`
}

func (Join) EventName() string              { return EventJoin }
func (StartGame) EventName() string         { return EventStartGame }
func (UpdatePosition) EventName() string    { return EventUpdatePosition }
func (PassTurn) EventName() string          { return EventPassTurn }
func (ResetMovedForward) EventName() string { return EventResetMovedForward }
func (SubmitVote) EventName() string        { return EventSubmitVote }
func (EndVoting) EventName() string         { return EventEndVoting }
func (ResetRound) EventName() string        { return EventResetRound }

func (Join) sealed()              {}
func (StartGame) sealed()         {}
func (UpdatePosition) sealed()    {}
func (PassTurn) sealed()          {}
func (ResetMovedForward) sealed() {}
func (SubmitVote) sealed()        {}
func (EndVoting) sealed()         {}
func (ResetRound) sealed()        {}

// Validate checks the room id, the display name, and the mode.
func (e Join) Validate() error {
	if err := checkRoomID(e.RoomID); err != nil {
		return err
	}
	if e.Name == "" || len(e.Name) > MaxNameLength {
		return fmt.Errorf("%w: name must be 1-%d bytes", ErrInvalidPayload, MaxNameLength)
	}
	switch e.Mode {
	case "", "board", "vote":
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidPayload, e.Mode)
	}
	return checkPosition(e.Position)
}

// Validate checks the room id and rejects negative counts.
func (e StartGame) Validate() error {
	if err := checkRoomID(e.RoomID); err != nil {
		return err
	}
	if e.ImposterCount != nil && *e.ImposterCount < 0 {
		return fmt.Errorf("%w: imposterCount must be >= 0, got %d", ErrInvalidPayload, *e.ImposterCount)
	}
	return nil
}

// Validate requires a well-formed position.
func (e UpdatePosition) Validate() error {
	if len(e.Position) == 0 {
		return fmt.Errorf("%w: positionArray is required", ErrInvalidPayload)
	}
	return checkPosition(e.Position)
}

func (PassTurn) Validate() error          { return nil }
func (ResetMovedForward) Validate() error { return nil }

// Validate checks the room id and requires a target.
func (e SubmitVote) Validate() error {
	if err := checkRoomID(e.RoomID); err != nil {
		return err
	}
	if e.Target == "" {
		return fmt.Errorf("%w: target is required", ErrInvalidPayload)
	}
	return nil
}

func (e EndVoting) Validate() error  { return checkRoomID(e.RoomID) }
func (e ResetRound) Validate() error { return checkRoomID(e.RoomID) }

func checkRoomID(id string) error {
	if id == "" || len(id) > MaxNameLength {
		return fmt.Errorf("%w: roomId must be 1-%d bytes", ErrInvalidPayload, MaxNameLength)
	}
	return nil
}

func checkPosition(pos json.RawMessage) error {
	if len(pos) > 0 && !json.Valid(pos) {
		return fmt.Errorf("%w: positionArray is not valid JSON", ErrInvalidPayload)
	}
	return nil
}

// Decode parses one envelope and returns its validated event.
//
// Postcondition: Returns an error wrapping ErrUnknownEvent or
// ErrInvalidPayload when the frame cannot be accepted.
func Decode(frame []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	var ev Event
	var err error
	switch env.Event {
	case EventJoin:
		ev, err = decodeInto[Join](env.Data)
	case EventNewPlayer:
		ev, err = decodeLegacyJoin(env.Data)
	case EventStartGame:
		ev, err = decodeInto[StartGame](env.Data)
	case EventUpdatePosition:
		ev, err = decodeInto[UpdatePosition](env.Data)
	case EventPassTurn:
		ev = PassTurn{}
	case EventResetMovedForward:
		ev = ResetMovedForward{}
	case EventSubmitVote:
		ev, err = decodeInto[SubmitVote](env.Data)
	case EventEndVoting:
		ev, err = decodeInto[EndVoting](env.Data)
	case EventResetRound:
		ev, err = decodeInto[ResetRound](env.Data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
	if err != nil {
		return nil, err
	}
	if err := ev.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", env.Event, err)
	}
	return ev, nil
}

func decodeInto[T Event](data json.RawMessage) (Event, error) {
	var v T
	if len(bytes.TrimSpace(data)) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, v.EventName(), err)
	}
	return v, nil
}

// decodeLegacyJoin accepts the board game's first-generation join message, which
// carries no room id or mode.
func decodeLegacyJoin(data json.RawMessage) (Event, error) {
	ev, err := decodeInto[Join](data)
	if err != nil {
		return nil, err
	}
	j := ev.(Join)
	if j.RoomID == "" {
		j.RoomID = LegacyRoomID
	}
	if j.Mode == "" {
		j.Mode = "board"
	}
	return j, nil
}
