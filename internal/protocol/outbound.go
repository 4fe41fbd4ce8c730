package protocol

import (
	"encoding/json"
	"fmt"
)

// Outbound notification names.
const (
	NotifyAllPlayers     = "allPlayers"
	NotifyTurnUpdate     = "turnUpdate"
	NotifyPlayerJoined   = "playerJoined"
	NotifyPlayerLeft     = "playerLeft"
	NotifyUpdatePosition = "updatePosition"
	NotifyPlayers        = "players"
	NotifyGameStarted    = "gameStarted"
	NotifyImposters      = "imposters"
	NotifyVotes          = "votes"
	NotifyVotedOut       = "votedOut"
	NotifyEliminated     = "eliminated"
	NotifyImpostersWin   = "impostersWin"
	NotifyImpostersLose  = "impostersLose"
)

// Notification is one outbound message. Data is encoded as the envelope's data field.
type Notification struct {
	Event string
	Data  any
}

// Encode renders n as an Envelope frame.
func (n Notification) Encode() ([]byte, error) {
	var env Envelope
	env.Event = n.Event
	if n.Data != nil {
		data, err := json.Marshal(n.Data)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", n.Event, err)
		}
		env.Data = data
	}
	return json.Marshal(env)
}

// PositionUpdate is the payload relayed to the rest of a board room when a player moves.
type PositionUpdate struct {
	ID              string          `json:"id"`
	Position        json.RawMessage `json:"positionArray,omitempty"`
	HasMovedForward bool            `json:"hasMovedForward"`
}

// GameStarted announces a new game in a vote room.
type GameStarted struct {
	RoomID    string `json:"roomId"`
	Players   int    `json:"players"`
	Imposters int    `json:"imposters"`
}

// VotedOut names the eliminated player; an empty Name means no one was voted out.
type VotedOut struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
}

// Eliminated is sent only to the connection of the player who was voted out.
type Eliminated struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
}

// GameOver accompanies impostersWin and impostersLose.
type GameOver struct {
	RoomID             string `json:"roomId"`
	RemainingPlayers   int    `json:"remainingPlayers"`
	RemainingImposters int    `json:"remainingImposters"`
}
