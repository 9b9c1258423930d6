// internal/game/events.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/pongai/internal/models"
)

// GameEventType is an enum-like type for broadcasting game actions.
type GameEventType string

const (
	EventGameCreated     GameEventType = "game_created"
	EventGameStarted     GameEventType = "game_started"
	EventPlayerJoined    GameEventType = "player_joined"
	EventPromptSubmitted GameEventType = "prompt_submitted"
	EventTurnChanged     GameEventType = "game_player_turn"
	EventTurnTimeout     GameEventType = "player_timeout"
	EventRoundComplete   GameEventType = "round_complete"
	EventRoundStarted    GameEventType = "round_started"
	EventTeamRenamed     GameEventType = "team_renamed"
	EventPlayerMuted     GameEventType = "player_mute_toggled"
	EventDraftUpdated    GameEventType = "draft_updated"
	EventChatMessage     GameEventType = "chat_message"
	EventGameEnd         GameEventType = "game_end"
	EventGameReset       GameEventType = "game_reset"
)

// GameEvent holds data about an event that can be broadcast to the clients in a consistent format.
type GameEvent struct {
	Type     GameEventType `json:"type"`
	GameID   uuid.UUID     `json:"gameId"`
	TeamID   int           `json:"teamId,omitempty"`
	PlayerID int           `json:"playerId,omitempty"`

	Prompt *models.Prompt      `json:"prompt,omitempty"`
	Draft  *string             `json:"draft,omitempty"`
	Chat   *models.ChatMessage `json:"chat,omitempty"`

	Payload map[string]interface{} `json:"payload,omitempty"`

	// State is a full snapshot taken right after the transition.
	State *models.GameState `json:"state,omitempty"`
}

// OnGameEndFunc receives the final state once the last round is won.
type OnGameEndFunc func(final models.GameState)
