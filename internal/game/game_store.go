package game

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/pongai/internal/models"
	log "github.com/sirupsen/logrus"
)

const maxPinAttempts = 5

// SessionFactory builds a new, empty session for the store.
type SessionFactory func() *Session

// GameStore indexes live sessions by game id and by join pin.
type GameStore struct {
	mu       sync.Mutex
	games    map[uuid.UUID]*Session
	pins     map[string]uuid.UUID
	demo     *Session
	factory  SessionFactory
	OnCreate func(s *Session)
}

// NewGameStore returns an empty store. newSession is called for every game.
func NewGameStore(newSession SessionFactory) *GameStore {
	if newSession == nil {
		newSession = func() *Session { return NewSession(SessionConfig{}) }
	}
	return &GameStore{
		games:   make(map[uuid.UUID]*Session),
		pins:    make(map[string]uuid.UUID),
		factory: newSession,
	}
}

// ErrNoFreePin is returned when every pin drawn for a new game collided with
// another live game.
var ErrNoFreePin = errors.New("no free join pin")

// CreateGame fabricates a new game in its own session. On a pin collision
// with another live game only the pin is redrawn.
func (st *GameStore) CreateGame(gameType models.GameType, playerCount int) (*Session, error) {
	s := st.factory()
	if st.OnCreate != nil {
		st.OnCreate(s)
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	id := s.CreateGame(gameType, playerCount)
	pin := s.Pin()
	for attempt := 1; st.pinTaken(pin); attempt++ {
		if attempt >= maxPinAttempts {
			log.Errorf("No free pin for game %s after %d attempts", id, attempt)
			return nil, ErrNoFreePin
		}
		log.Warnf("Pin collision for game %s, regenerating", id)
		pin = s.RerollPin()
	}
	st.games[id] = s
	st.pins[pin] = id
	return s, nil
}

// pinTaken reports whether pin belongs to a live game. Assumes lock is held.
func (st *GameStore) pinTaken(pin string) bool {
	_, taken := st.pins[pin]
	return taken
}

// Join resolves a pin to a session. The demo pin always resolves, creating
// the shared demo session on first use.
func (st *GameStore) Join(pin string) (*Session, bool) {
	st.mu.Lock()
	if pin == DemoPin {
		if st.demo == nil || st.demo.ID() == uuid.Nil {
			st.demo = st.factory()
			if st.OnCreate != nil {
				st.OnCreate(st.demo)
			}
		}
		demo := st.demo
		st.mu.Unlock()

		if !demo.JoinGame(pin) {
			return nil, false
		}
		st.mu.Lock()
		st.games[demo.ID()] = demo
		st.mu.Unlock()
		return demo, true
	}

	id, ok := st.pins[pin]
	if !ok {
		st.mu.Unlock()
		return nil, false
	}
	s := st.games[id]
	st.mu.Unlock()

	if s == nil || !s.JoinGame(pin) {
		return nil, false
	}
	return s, true
}

// GetGame returns the session for a game id.
func (st *GameStore) GetGame(id uuid.UUID) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.games[id]
	return s, ok
}

// DeleteGame forgets a game and its pin.
func (st *GameStore) DeleteGame(id uuid.UUID) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.games, id)
	for pin, gid := range st.pins {
		if gid == id {
			delete(st.pins, pin)
		}
	}
	if st.demo != nil && st.demo.ID() == id {
		st.demo = nil
	}
}

// Len is the number of live games.
func (st *GameStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.games)
}
