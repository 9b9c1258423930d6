// internal/models/game_state.go
package models

import (
	"fmt"

	"github.com/google/uuid"
)

// GameType selects which challenge catalog a game draws from.
type GameType string

const (
	GameTypeText  GameType = "text"
	GameTypeImage GameType = "image"
)

// Valid reports whether t is one of the supported game types.
func (t GameType) Valid() bool {
	return t == GameTypeText || t == GameTypeImage
}

// ParseGameType converts a client supplied string into a GameType.
func ParseGameType(s string) (GameType, error) {
	t := GameType(s)
	if !t.Valid() {
		return "", fmt.Errorf("invalid game type %q", s)
	}
	return t, nil
}

// GameState is the full, serializable state of one game.
type GameState struct {
	GameID           uuid.UUID `json:"gameId"`
	GamePin          string    `json:"gamePin"`
	Teams            []Team    `json:"teams"`
	CurrentTeamIndex int       `json:"currentTeamIndex"`
	GameType         GameType  `json:"gameType"`
	Challenge        string    `json:"challenge"`
	Target           string    `json:"target"`
	CurrentRound     int       `json:"currentRound"`
	TotalRounds      int       `json:"totalRounds"`
	GameOver         bool      `json:"gameOver"`
	GameStarted      bool      `json:"gameStarted"`
}

// ActiveTeam returns the team whose turn it is, or nil if the index is out of range.
func (s *GameState) ActiveTeam() *Team {
	if s.CurrentTeamIndex < 0 || s.CurrentTeamIndex >= len(s.Teams) {
		return nil
	}
	return &s.Teams[s.CurrentTeamIndex]
}

// TeamByID looks up a team by id.
func (s *GameState) TeamByID(id int) *Team {
	for i := range s.Teams {
		if s.Teams[i].ID == id {
			return &s.Teams[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the state.
func (s GameState) Clone() GameState {
	out := s
	out.Teams = make([]Team, len(s.Teams))
	for i, t := range s.Teams {
		out.Teams[i] = t.Clone()
	}
	return out
}
