package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is a post-game chat line.
type ChatMessage struct {
	ID         uuid.UUID `json:"id"`
	TeamID     int       `json:"teamId"`
	PlayerID   int       `json:"playerId"`
	PlayerName string    `json:"playerName"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}
