// internal/game/session.go
package game

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/pongai/internal/cache"
	"github.com/jason-s-yu/pongai/internal/challenge"
	"github.com/jason-s-yu/pongai/internal/evaluator"
	"github.com/jason-s-yu/pongai/internal/models"
	log "github.com/sirupsen/logrus"
)

// DefaultPlayerCount is used when a game is fabricated without an explicit size.
const DefaultPlayerCount = 2

// ErrNotYourTurn is returned by SubmitAs when the seat does not hold the turn.
var ErrNotYourTurn = errors.New("it is not your turn")

// ActionPublisher receives every state transition for the historian.
type ActionPublisher interface {
	PublishGameAction(ctx context.Context, record cache.GameActionRecord) error
}

// SessionConfig holds the collaborators and tunables of a Session.
// Zero values fall back to defaults.
type SessionConfig struct {
	Evaluator          evaluator.Evaluator
	Catalog            *challenge.Catalog
	Rand               *rand.Rand
	TotalRounds        int
	DefaultPlayerCount int

	// TurnDuration enables the auto-submit turn timer once the game has started.
	TurnDuration time.Duration

	Publisher ActionPublisher
}

// Session owns the single authoritative GameState of one game and applies
// transitions to it. All transitions run under mu.
type Session struct {
	mu sync.Mutex

	state *models.GameState

	evaluator evaluator.Evaluator
	catalog   *challenge.Catalog
	rng       *rand.Rand
	cfg       SessionConfig

	// drafts holds the prompt currently being typed, per team id
	drafts map[int]string
	chat   []models.ChatMessage

	turnID      int
	turnTimer   *time.Timer
	actionIndex int

	// BroadcastFn is used to send events to all subscribers. If nil, no broadcast is done.
	BroadcastFn func(ev GameEvent)

	// OnGameEnd is invoked once with the final state when the game ends.
	OnGameEnd OnGameEndFunc
}

// NewSession builds an empty session. CreateGame or JoinGame populate it.
func NewSession(cfg SessionConfig) *Session {
	if cfg.Evaluator == nil {
		cfg.Evaluator = evaluator.NewMock()
	}
	if cfg.Catalog == nil {
		cfg.Catalog = challenge.DefaultCatalog()
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.TotalRounds < 1 {
		cfg.TotalRounds = DefaultTotalRounds
	}
	if cfg.DefaultPlayerCount < 1 {
		cfg.DefaultPlayerCount = DefaultPlayerCount
	}
	return &Session{
		evaluator: cfg.Evaluator,
		catalog:   cfg.Catalog,
		rng:       cfg.Rand,
		cfg:       cfg,
		drafts:    make(map[int]string),
	}
}

// CreateGame replaces any existing state with a freshly fabricated game and
// returns its id.
func (s *Session) CreateGame(gameType models.GameType, playerCount int) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(gameType, playerCount)
}

func (s *Session) createLocked(gameType models.GameType, playerCount int) uuid.UUID {
	s.stopTurnTimer()

	st := NewGame(Options{
		GameType:    gameType,
		PlayerCount: playerCount,
		TotalRounds: s.cfg.TotalRounds,
	}, s.catalog, s.rng)
	s.state = &st
	s.drafts = make(map[int]string)
	s.chat = nil
	s.actionIndex = 0

	log.WithFields(log.Fields{
		"game":    st.GameID,
		"type":    st.GameType,
		"players": playerCount,
	}).Infof("Game created with challenge %q", st.Challenge)

	s.logAction(0, 0, "game_create", map[string]interface{}{
		"gameType":    st.GameType,
		"playerCount": playerCount,
		"challenge":   st.Challenge,
	})
	s.fireEvent(GameEvent{Type: EventGameCreated})
	return st.GameID
}

// JoinGame reports whether pin admits a player to this session. The demo pin
// always matches; if no game exists yet, a demo game is fabricated.
func (s *Session) JoinGame(pin string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := pin == DemoPin || (s.state != nil && pin == s.state.GamePin)
	if !matched {
		return false
	}
	if s.state == nil {
		s.createLocked(models.GameTypeText, s.cfg.DefaultPlayerCount)
	}
	s.logAction(0, 0, "player_join", nil)
	s.fireEvent(GameEvent{Type: EventPlayerJoined})
	return true
}

// StartGame ends team setup. Turn timers only run after this.
func (s *Session) StartGame() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return false
	}
	next, ok := StartGame(*s.state)
	if !ok {
		return false
	}
	s.state = &next
	s.logAction(0, 0, "game_start", nil)
	s.fireEvent(GameEvent{Type: EventGameStarted})
	s.beginTurn()
	return true
}

// SubmitPrompt runs the prompt of the active team's current player through
// the evaluator. It returns true only when the prompt succeeded.
func (s *Session) SubmitPrompt(text string) bool {
	return s.Submit(text).Success
}

// Submit is SubmitPrompt with the full outcome. Applied is false when the
// submission was refused.
func (s *Session) Submit(text string) SubmitResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitLocked(text)
}

// SubmitAs submits text on behalf of one seat. The seat check and the
// transition happen under the same lock, so the prompt is never credited to
// a player whose turn started in between.
func (s *Session) SubmitAs(teamID, playerID int, text string) (SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return SubmitResult{}, nil
	}
	team := s.state.ActiveTeam()
	if team == nil || team.ID != teamID {
		return SubmitResult{}, ErrNotYourTurn
	}
	if p := team.CurrentPlayer(); p == nil || p.ID != playerID {
		return SubmitResult{}, ErrNotYourTurn
	}
	return s.submitLocked(text), nil
}

func (s *Session) submitLocked(text string) SubmitResult {
	if s.state == nil {
		return SubmitResult{}
	}
	next, res := SubmitPrompt(*s.state, text, s.evaluator)
	if !res.Applied {
		return res
	}
	s.state = &next
	delete(s.drafts, res.TeamID)

	prompt := res.Prompt
	s.logAction(res.TeamID, prompt.Player, "prompt_submit", map[string]interface{}{
		"text":    prompt.Text,
		"success": res.Success,
	})
	s.fireEvent(GameEvent{
		Type:     EventPromptSubmitted,
		TeamID:   res.TeamID,
		PlayerID: prompt.Player,
		Prompt:   &prompt,
	})

	if !res.Success {
		s.beginTurn()
		return res
	}

	s.stopTurnTimer()
	team := next.TeamByID(res.TeamID)
	log.WithFields(log.Fields{
		"game":  next.GameID,
		"team":  res.TeamID,
		"round": next.CurrentRound,
	}).Infof("Round complete after %d prompt(s)", len(team.Prompts))
	s.fireEvent(GameEvent{
		Type:    EventRoundComplete,
		TeamID:  res.TeamID,
		Payload: map[string]interface{}{"score": team.Score, "round": next.CurrentRound},
	})

	if next.GameOver {
		s.endGame()
	}
	return res
}

// endGame broadcasts results and notifies OnGameEnd. Assumes lock is held.
func (s *Session) endGame() {
	final := s.state.Clone()
	scores := make(map[int]int, len(final.Teams))
	for _, t := range final.Teams {
		scores[t.ID] = t.Score
	}
	s.logAction(0, 0, "game_end", map[string]interface{}{"scores": scores})
	s.fireEvent(GameEvent{
		Type:    EventGameEnd,
		Payload: map[string]interface{}{"rankings": Rankings(final)},
	})
	log.WithField("game", final.GameID).Infof("Game over. Scores: %v", scores)

	if s.OnGameEnd != nil {
		s.OnGameEnd(final)
	}
}

// StartNewRound moves to the next round with a new challenge.
func (s *Session) StartNewRound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return false
	}
	next, ok := StartNewRound(*s.state, s.catalog, s.rng)
	if !ok {
		return false
	}
	s.state = &next
	s.drafts = make(map[int]string)
	s.logAction(0, 0, "round_start", map[string]interface{}{
		"round":     next.CurrentRound,
		"challenge": next.Challenge,
	})
	s.fireEvent(GameEvent{
		Type:    EventRoundStarted,
		Payload: map[string]interface{}{"round": next.CurrentRound},
	})
	s.beginTurn()
	return true
}

// ToggleMute flips isMuted of the matching player in the matching team.
func (s *Session) ToggleMute(playerID, teamID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return false
	}
	next, ok := ToggleMute(*s.state, playerID, teamID)
	if !ok {
		return false
	}
	s.state = &next
	muted := next.TeamByID(teamID).PlayerByID(playerID).IsMuted
	s.logAction(teamID, playerID, "player_mute", map[string]interface{}{"muted": muted})
	s.fireEvent(GameEvent{
		Type:     EventPlayerMuted,
		TeamID:   teamID,
		PlayerID: playerID,
		Payload:  map[string]interface{}{"muted": muted},
	})
	return true
}

// SetTeamName renames a team.
func (s *Session) SetTeamName(teamID int, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return false
	}
	next, ok := SetTeamName(*s.state, teamID, name)
	if !ok {
		return false
	}
	s.state = &next
	s.logAction(teamID, 0, "team_rename", map[string]interface{}{"name": name})
	s.fireEvent(GameEvent{Type: EventTeamRenamed, TeamID: teamID})
	return true
}

// ResetGame discards the game and everything cached alongside it.
func (s *Session) ResetGame() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return
	}
	s.stopTurnTimer()
	s.logAction(0, 0, "game_reset", nil)
	s.fireEvent(GameEvent{Type: EventGameReset})
	s.state = nil
	s.drafts = make(map[int]string)
	s.chat = nil
}

// UpdateDraft records what the active player is typing so teammates can follow
// along. Only the current player of the active team may write a draft.
func (s *Session) UpdateDraft(teamID, playerID int, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil || s.state.GameOver {
		return false
	}
	team := s.state.ActiveTeam()
	if team == nil || team.ID != teamID || team.RoundComplete() {
		return false
	}
	if p := team.CurrentPlayer(); p == nil || p.ID != playerID {
		return false
	}
	s.drafts[teamID] = text
	s.fireEvent(GameEvent{
		Type:     EventDraftUpdated,
		TeamID:   teamID,
		PlayerID: playerID,
		Draft:    &text,
	})
	return true
}

// RerollPin draws a new join pin for the current game and returns it.
func (s *Session) RerollPin() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return ""
	}
	s.state.GamePin = NewPin(s.rng)
	return s.state.GamePin
}

// Subscribe calls fn with a snapshot of the game, the team's draft and the
// chat log while holding the session lock. No event fires until fn returns,
// so whatever fn registers sees every later event after the snapshot. fn must
// not call back into the session. Subscribe reports false without a game.
func (s *Session) Subscribe(teamID int, fn func(state models.GameState, draft string, chat []models.ChatMessage)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return false
	}
	chat := make([]models.ChatMessage, len(s.chat))
	copy(chat, s.chat)
	fn(s.state.Clone(), s.drafts[teamID], chat)
	return true
}

// Draft returns the in-progress prompt of a team.
func (s *Session) Draft(teamID int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drafts[teamID]
}

// SendChat appends a post-game chat message. Blank messages and unknown
// senders are rejected.
func (s *Session) SendChat(teamID, playerID int, message string) (models.ChatMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil || strings.TrimSpace(message) == "" {
		return models.ChatMessage{}, false
	}
	team := s.state.TeamByID(teamID)
	if team == nil {
		return models.ChatMessage{}, false
	}
	player := team.PlayerByID(playerID)
	if player == nil {
		return models.ChatMessage{}, false
	}

	msg := models.ChatMessage{
		ID:         uuid.New(),
		TeamID:     teamID,
		PlayerID:   playerID,
		PlayerName: player.Name,
		Message:    message,
		Timestamp:  time.Now(),
	}
	s.chat = append(s.chat, msg)
	s.fireEvent(GameEvent{Type: EventChatMessage, TeamID: teamID, PlayerID: playerID, Chat: &msg})
	return msg, true
}

// Chat returns a copy of the chat log.
func (s *Session) Chat() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatMessage, len(s.chat))
	copy(out, s.chat)
	return out
}

// Snapshot returns a deep copy of the current state.
func (s *Session) Snapshot() (models.GameState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return models.GameState{}, false
	}
	return s.state.Clone(), true
}

// ID returns the current game id, or uuid.Nil without a game.
func (s *Session) ID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return uuid.Nil
	}
	return s.state.GameID
}

// Pin returns the current join pin, or "" without a game.
func (s *Session) Pin() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return ""
	}
	return s.state.GamePin
}

// fireEvent attaches a snapshot and hands the event to BroadcastFn.
// Assumes lock is held.
func (s *Session) fireEvent(ev GameEvent) {
	if s.BroadcastFn == nil {
		return
	}
	if s.state != nil {
		ev.GameID = s.state.GameID
		snap := s.state.Clone()
		ev.State = &snap
	}
	s.BroadcastFn(ev)
}

// logAction sends the action details to the historian via the publisher.
// Assumes lock is held.
func (s *Session) logAction(teamID, playerID int, actionType string, payload map[string]interface{}) {
	if s.cfg.Publisher == nil || s.state == nil {
		return
	}
	s.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.GameActionRecord{
		GameID:        s.state.GameID,
		ActionIndex:   s.actionIndex,
		TeamID:        teamID,
		PlayerID:      playerID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	go func(pub ActionPublisher, rec cache.GameActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := pub.PublishGameAction(ctx, rec); err != nil {
			log.Warnf("Error publishing game action %d for game %s: %v", rec.ActionIndex, rec.GameID, err)
		}
	}(s.cfg.Publisher, record)
}
