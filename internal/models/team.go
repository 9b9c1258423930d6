// internal/models/team.go
package models

// Team groups the players that collaborate on a prompt. Only the player at
// CurrentPlayerIndex may submit.
type Team struct {
	ID                 int      `json:"id"`
	Name               string   `json:"name"`
	Players            []Player `json:"players"`
	CurrentPlayerIndex int      `json:"currentPlayerIndex"`
	Score              int      `json:"score"`
	Prompts            []Prompt `json:"prompts"`
}

// CurrentPlayer returns the player whose turn it is, or nil for an empty team.
func (t *Team) CurrentPlayer() *Player {
	if len(t.Players) == 0 || t.CurrentPlayerIndex < 0 || t.CurrentPlayerIndex >= len(t.Players) {
		return nil
	}
	return &t.Players[t.CurrentPlayerIndex]
}

// LatestPrompt returns the most recent prompt of the round, if any.
func (t *Team) LatestPrompt() (Prompt, bool) {
	if len(t.Prompts) == 0 {
		return Prompt{}, false
	}
	return t.Prompts[len(t.Prompts)-1], true
}

// RoundComplete is true once the latest prompt of the round succeeded.
func (t *Team) RoundComplete() bool {
	p, ok := t.LatestPrompt()
	return ok && p.Succeeded()
}

// PlayerByID looks up a player by its team-local id.
func (t *Team) PlayerByID(id int) *Player {
	for i := range t.Players {
		if t.Players[i].ID == id {
			return &t.Players[i]
		}
	}
	return nil
}

// Clone deep-copies the team so snapshots never share slices.
func (t Team) Clone() Team {
	out := t
	out.Players = make([]Player, len(t.Players))
	copy(out.Players, t.Players)
	out.Prompts = make([]Prompt, len(t.Prompts))
	for i, p := range t.Prompts {
		out.Prompts[i] = p
		if p.Success != nil {
			s := *p.Success
			out.Prompts[i].Success = &s
		}
	}
	return out
}
