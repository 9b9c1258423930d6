package models

// Prompt is one attempt by a player to get the AI to reproduce the target.
// It is never modified after it has been appended to a team's history.
type Prompt struct {
	Text       string `json:"text"`
	Player     int    `json:"player"`
	PlayerName string `json:"playerName,omitempty"`
	AIResponse string `json:"aiResponse,omitempty"`

	// Success is nil until the prompt has been evaluated.
	Success *bool `json:"success,omitempty"`
}

// Succeeded reports whether the prompt was evaluated and judged a success.
func (p Prompt) Succeeded() bool {
	return p.Success != nil && *p.Success
}
