// internal/challenge/catalog.go
package challenge

import "github.com/jason-s-yu/pongai/internal/models"

// Challenge pairs a display name with the passage or image description the
// team must get the AI to reproduce.
type Challenge struct {
	Name   string `json:"challenge"`
	Target string `json:"target"`
}

// Intn is the subset of *math/rand.Rand used to pick challenges.
type Intn interface {
	Intn(n int) int
}

// Catalog is a static list of challenges per game type.
type Catalog struct {
	entries map[models.GameType][]Challenge
}

var textChallenges = []Challenge{
	{
		Name:   "Haunted House",
		Target: "A decaying mansion stands at the end of an overgrown path, its broken windows like hollow eyes. Inside, shadows shift, floors creak, and distant whispers echo through the cold, empty halls.",
	},
	{
		Name:   "Space Adventure",
		Target: "Starships streak across the void, their engines glowing against the backdrop of nebulae. Alien worlds with bizarre landscapes wait to be discovered, while ancient cosmic mysteries lurk in the darkness between stars.",
	},
}

var imageChallenges = []Challenge{
	{
		Name:   "Mountain Landscape",
		Target: "A snow-capped mountain peak rising above a forest, with a clear blue sky and a lake reflecting the scenery.",
	},
	{
		Name:   "Futuristic City",
		Target: "A gleaming metropolis with flying vehicles, holographic advertisements, and towering skyscrapers stretching into the clouds.",
	},
}

// DefaultCatalog returns the built-in text and image challenges.
func DefaultCatalog() *Catalog {
	return NewCatalog(map[models.GameType][]Challenge{
		models.GameTypeText:  textChallenges,
		models.GameTypeImage: imageChallenges,
	})
}

// NewCatalog builds a catalog from the given entries. Slices are copied.
func NewCatalog(entries map[models.GameType][]Challenge) *Catalog {
	c := &Catalog{entries: make(map[models.GameType][]Challenge, len(entries))}
	for t, list := range entries {
		cp := make([]Challenge, len(list))
		copy(cp, list)
		c.entries[t] = cp
	}
	return c
}

// Challenges lists every challenge available for t.
func (c *Catalog) Challenges(t models.GameType) []Challenge {
	list := c.entries[t]
	out := make([]Challenge, len(list))
	copy(out, list)
	return out
}

// Contains reports whether ch is one of the catalog entries for t.
func (c *Catalog) Contains(t models.GameType, ch Challenge) bool {
	for _, e := range c.entries[t] {
		if e == ch {
			return true
		}
	}
	return false
}

// Pick selects a random challenge for t. The second return value is false
// when the catalog has nothing for that type.
func (c *Catalog) Pick(t models.GameType, r Intn) (Challenge, bool) {
	list := c.entries[t]
	if len(list) == 0 {
		return Challenge{}, false
	}
	return list[r.Intn(len(list))], true
}
