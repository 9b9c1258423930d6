package evaluator

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

const (
	// MinWords is the shortest prompt that has any chance of succeeding.
	MinWords = 5

	shortResponseLen = 50
	partialFraction  = 0.7
	successThreshold = 0.4
	ellipsis         = "..."
)

// Float64 is the subset of *math/rand.Rand the mock evaluator draws from.
type Float64 interface {
	Float64() float64
}

// Mock stands in for a real model: short prompts always fail, longer ones
// succeed on a random draw.
type Mock struct {
	mu  sync.Mutex
	rng Float64
}

// NewMock returns a mock evaluator seeded from the clock.
func NewMock() *Mock {
	return NewMockWithSource(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewMockWithSource returns a mock evaluator drawing from r.
func NewMockWithSource(r Float64) *Mock {
	return &Mock{rng: r}
}

// Evaluate implements Evaluator.
func (m *Mock) Evaluate(prompt, target string) Evaluation {
	if WordCount(prompt) < MinWords {
		return Evaluation{
			Success:  false,
			Response: truncate(target, shortResponseLen) + ellipsis,
		}
	}

	m.mu.Lock()
	draw := m.rng.Float64()
	m.mu.Unlock()

	if draw > successThreshold {
		return Evaluation{Success: true, Response: target}
	}

	n := int(float64(len([]rune(target))) * partialFraction)
	return Evaluation{
		Success:  false,
		Response: truncate(target, n) + ellipsis,
	}
}

// WordCount counts space separated segments the way the game client does,
// so the empty string still counts as one word.
func WordCount(s string) int {
	return len(strings.Split(s, " "))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n >= len(r) {
		return s
	}
	if n < 0 {
		n = 0
	}
	return string(r[:n])
}
