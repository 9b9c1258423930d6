package game

import (
	"sort"

	"github.com/jason-s-yu/pongai/internal/models"
)

// Ranking is one row of the team standings.
type Ranking struct {
	Position int    `json:"position"`
	TeamID   int    `json:"teamId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

// Rankings orders teams by score, highest first. Ties keep team id order.
func Rankings(s models.GameState) []Ranking {
	out := make([]Ranking, 0, len(s.Teams))
	for _, t := range s.Teams {
		out = append(out, Ranking{TeamID: t.ID, Name: t.Name, Score: t.Score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].TeamID < out[j].TeamID
	})
	for i := range out {
		out[i].Position = i + 1
	}
	return out
}
