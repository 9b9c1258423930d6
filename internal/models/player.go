package models

// Player is a single seat on a team. IDs are only unique within the owning team.
type Player struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	IsMuted bool   `json:"isMuted"`
}
