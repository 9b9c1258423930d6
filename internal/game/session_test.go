package game

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/pongai/internal/cache"
	"github.com/jason-s-yu/pongai/internal/evaluator"
	"github.com/jason-s-yu/pongai/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBroadcaster collects events instead of sending them over WS.
type mockBroadcaster struct {
	mu     sync.Mutex
	events []GameEvent
}

func (mb *mockBroadcaster) broadcastFn(ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.events = append(mb.events, ev)
}

func (mb *mockBroadcaster) clear() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.events = nil
}

func (mb *mockBroadcaster) types() []GameEventType {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	out := make([]GameEventType, len(mb.events))
	for i, ev := range mb.events {
		out[i] = ev.Type
	}
	return out
}

func (mb *mockBroadcaster) last(t GameEventType) *GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for i := len(mb.events) - 1; i >= 0; i-- {
		if mb.events[i].Type == t {
			ev := mb.events[i]
			return &ev
		}
	}
	return nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	records []cache.GameActionRecord
}

func (p *recordingPublisher) PublishGameAction(_ context.Context, rec cache.GameActionRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, rec)
	return nil
}

func (p *recordingPublisher) actionTypes() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int)
	for _, r := range p.records {
		out[r.ActionType]++
	}
	return out
}

// setupTestSession returns a session with a deterministic rng and a
// broadcaster attached.
func setupTestSession(t *testing.T, cfg SessionConfig) (*Session, *mockBroadcaster) {
	t.Helper()
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(11))
	}
	s := NewSession(cfg)
	mb := &mockBroadcaster{}
	s.BroadcastFn = mb.broadcastFn
	return s, mb
}

func TestSession_CreateGame(t *testing.T) {
	s, mb := setupTestSession(t, SessionConfig{})

	id := s.CreateGame(models.GameTypeImage, 3)
	require.NotEqual(t, uuid.Nil, id)
	assert.Equal(t, id, s.ID())

	snap, ok := s.Snapshot()
	require.True(t, ok)
	assert.Equal(t, models.GameTypeImage, snap.GameType)
	assert.Len(t, snap.Teams, TeamCount)
	assert.Len(t, snap.Teams[0].Players, 3)

	ev := mb.last(EventGameCreated)
	require.NotNil(t, ev)
	assert.Equal(t, id, ev.GameID)
	require.NotNil(t, ev.State)
	assert.Equal(t, snap.GamePin, ev.State.GamePin)
}

func TestSession_JoinGame(t *testing.T) {
	t.Run("demo pin fabricates a game", func(t *testing.T) {
		s, _ := setupTestSession(t, SessionConfig{})
		_, ok := s.Snapshot()
		require.False(t, ok)

		assert.True(t, s.JoinGame(DemoPin))
		snap, ok := s.Snapshot()
		require.True(t, ok)
		assert.Len(t, snap.Teams[0].Players, DefaultPlayerCount)
		assert.Equal(t, models.GameTypeText, snap.GameType)
	})

	t.Run("wrong pin without a game", func(t *testing.T) {
		s, _ := setupTestSession(t, SessionConfig{})
		assert.False(t, s.JoinGame("000000"))
		_, ok := s.Snapshot()
		assert.False(t, ok)
	})

	t.Run("live pin", func(t *testing.T) {
		s, mb := setupTestSession(t, SessionConfig{})
		s.CreateGame(models.GameTypeText, 2)
		pin := s.Pin()

		assert.True(t, s.JoinGame(pin))
		assert.True(t, s.JoinGame(DemoPin))
		assert.Equal(t, pin, s.Pin(), "demo pin does not replace the live game")
		if pin != "000000" {
			assert.False(t, s.JoinGame("000000"))
		}
		assert.NotNil(t, mb.last(EventPlayerJoined))
	})
}

func TestSession_SubmitPrompt(t *testing.T) {
	s, mb := setupTestSession(t, SessionConfig{Evaluator: alwaysFail})
	s.CreateGame(models.GameTypeText, 2)
	mb.clear()

	assert.False(t, s.SubmitPrompt("go"))
	snap, _ := s.Snapshot()
	assert.Equal(t, 1, snap.Teams[0].CurrentPlayerIndex)
	assert.Equal(t, []GameEventType{EventPromptSubmitted, EventTurnChanged}, mb.types())

	turn := mb.last(EventTurnChanged)
	require.NotNil(t, turn)
	assert.Equal(t, 1, turn.TeamID)
	assert.Equal(t, 2, turn.PlayerID)

	submitted := mb.last(EventPromptSubmitted)
	require.NotNil(t, submitted.Prompt)
	assert.Equal(t, "go", submitted.Prompt.Text)
	assert.Equal(t, 1, submitted.PlayerID)
}

func TestSession_SubmitEndsGame(t *testing.T) {
	s, mb := setupTestSession(t, SessionConfig{Evaluator: alwaysSucceed})
	s.CreateGame(models.GameTypeText, 2)

	var final *models.GameState
	s.OnGameEnd = func(st models.GameState) { final = &st }

	assert.True(t, s.SubmitPrompt("one two three four five six"))
	require.NotNil(t, final)
	assert.True(t, final.GameOver)
	assert.Equal(t, PointsPerSuccess, final.Teams[0].Score)

	end := mb.last(EventGameEnd)
	require.NotNil(t, end)
	assert.Contains(t, end.Payload, "rankings")
	assert.NotNil(t, mb.last(EventRoundComplete))

	assert.False(t, s.SubmitPrompt("one two three four five six"), "finished game is a no-op")
	snap, _ := s.Snapshot()
	assert.Len(t, snap.Teams[0].Prompts, 1)
	assert.False(t, s.StartNewRound())
}

func TestSession_MultiRound(t *testing.T) {
	s, mb := setupTestSession(t, SessionConfig{Evaluator: alwaysSucceed, TotalRounds: 2})
	s.CreateGame(models.GameTypeText, 2)

	ended := false
	s.OnGameEnd = func(models.GameState) { ended = true }

	require.True(t, s.SubmitPrompt("one two three four five"))
	assert.False(t, ended)

	require.True(t, s.StartNewRound())
	assert.NotNil(t, mb.last(EventRoundStarted))
	snap, _ := s.Snapshot()
	assert.Equal(t, 2, snap.CurrentRound)

	// whichever team is active now wins the final round
	require.True(t, s.SubmitPrompt("one two three four five"))
	assert.True(t, ended)
}

func TestSession_NoGameIsNoOp(t *testing.T) {
	s, mb := setupTestSession(t, SessionConfig{})

	assert.False(t, s.SubmitPrompt("one two three four five"))
	assert.False(t, s.StartNewRound())
	assert.False(t, s.StartGame())
	assert.False(t, s.ToggleMute(1, 1))
	assert.False(t, s.SetTeamName(1, "x"))
	assert.False(t, s.UpdateDraft(1, 1, "x"))
	_, ok := s.SendChat(1, 1, "hi")
	assert.False(t, ok)
	s.ResetGame()

	assert.Equal(t, uuid.Nil, s.ID())
	assert.Equal(t, "", s.Pin())
	assert.Empty(t, mb.types())
}

func TestSession_MuteAndRename(t *testing.T) {
	s, mb := setupTestSession(t, SessionConfig{})
	s.CreateGame(models.GameTypeText, 2)

	require.True(t, s.ToggleMute(2, 1))
	snap, _ := s.Snapshot()
	assert.True(t, snap.Teams[0].Players[1].IsMuted)
	ev := mb.last(EventPlayerMuted)
	require.NotNil(t, ev)
	assert.Equal(t, true, ev.Payload["muted"])

	require.True(t, s.ToggleMute(2, 1))
	snap, _ = s.Snapshot()
	assert.False(t, snap.Teams[0].Players[1].IsMuted)

	assert.False(t, s.ToggleMute(3, 1))

	require.True(t, s.SetTeamName(3, "Prompt Lords"))
	snap, _ = s.Snapshot()
	assert.Equal(t, "Prompt Lords", snap.Teams[2].Name)
	assert.False(t, s.SetTeamName(7, "x"))
}

func TestSession_Drafts(t *testing.T) {
	s, mb := setupTestSession(t, SessionConfig{Evaluator: alwaysFail})
	s.CreateGame(models.GameTypeText, 2)

	assert.False(t, s.UpdateDraft(1, 2, "not my turn"))
	assert.False(t, s.UpdateDraft(2, 1, "not our turn"))

	require.True(t, s.UpdateDraft(1, 1, "a draft"))
	assert.Equal(t, "a draft", s.Draft(1))
	ev := mb.last(EventDraftUpdated)
	require.NotNil(t, ev)
	require.NotNil(t, ev.Draft)
	assert.Equal(t, "a draft", *ev.Draft)

	s.SubmitPrompt("a draft")
	assert.Equal(t, "", s.Draft(1), "submission clears the draft")
	assert.True(t, s.UpdateDraft(1, 2, "now it is"))
}

func TestSession_Chat(t *testing.T) {
	s, mb := setupTestSession(t, SessionConfig{})
	s.CreateGame(models.GameTypeText, 2)

	msg, ok := s.SendChat(2, 1, "gg")
	require.True(t, ok)
	assert.Equal(t, "Player 1", msg.PlayerName)
	assert.NotEqual(t, uuid.Nil, msg.ID)
	assert.NotNil(t, mb.last(EventChatMessage))

	_, ok = s.SendChat(2, 1, "   ")
	assert.False(t, ok)
	_, ok = s.SendChat(2, 5, "who am I")
	assert.False(t, ok)
	_, ok = s.SendChat(9, 1, "lost")
	assert.False(t, ok)

	log := s.Chat()
	require.Len(t, log, 1)
	assert.Equal(t, "gg", log[0].Message)
}

func TestSession_ResetGame(t *testing.T) {
	s, mb := setupTestSession(t, SessionConfig{})
	s.CreateGame(models.GameTypeText, 2)
	s.SendChat(1, 1, "hello")
	s.UpdateDraft(1, 1, "draft")

	s.ResetGame()
	assert.NotNil(t, mb.last(EventGameReset))
	_, ok := s.Snapshot()
	assert.False(t, ok)
	assert.Empty(t, s.Chat())
	assert.Equal(t, "", s.Draft(1))
}

func TestSession_StartGameAndTimeout(t *testing.T) {
	var mu sync.Mutex
	var evaluated []string
	ev := evaluator.Func(func(prompt, target string) evaluator.Evaluation {
		mu.Lock()
		evaluated = append(evaluated, prompt)
		mu.Unlock()
		return evaluator.Evaluation{Success: false, Response: "..."}
	})

	s, mb := setupTestSession(t, SessionConfig{Evaluator: ev, TurnDuration: 50 * time.Millisecond})
	s.CreateGame(models.GameTypeText, 2)
	require.True(t, s.UpdateDraft(1, 1, "half typed"))

	require.True(t, s.StartGame())
	assert.False(t, s.StartGame(), "already started")
	assert.NotNil(t, mb.last(EventGameStarted))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(evaluated) >= 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, "half typed", evaluated[0])
	assert.Equal(t, "", evaluated[1], "timeout submits an empty draft")
	mu.Unlock()

	timeout := mb.last(EventTurnTimeout)
	require.NotNil(t, timeout)
	assert.Equal(t, 1, timeout.TeamID)

	s.ResetGame()
}

func TestSession_NoTimerBeforeStart(t *testing.T) {
	calls := 0
	var mu sync.Mutex
	ev := evaluator.Func(func(prompt, target string) evaluator.Evaluation {
		mu.Lock()
		calls++
		mu.Unlock()
		return evaluator.Evaluation{}
	})

	s, _ := setupTestSession(t, SessionConfig{Evaluator: ev, TurnDuration: 20 * time.Millisecond})
	s.CreateGame(models.GameTypeText, 2)

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	assert.Zero(t, calls)
	mu.Unlock()
}

func TestSession_PublishesActions(t *testing.T) {
	pub := &recordingPublisher{}
	s, _ := setupTestSession(t, SessionConfig{Evaluator: alwaysSucceed, Publisher: pub})
	s.CreateGame(models.GameTypeText, 2)
	s.ToggleMute(1, 1)
	s.SubmitPrompt("one two three four five")

	require.Eventually(t, func() bool {
		got := pub.actionTypes()
		return got["game_create"] == 1 && got["player_mute"] == 1 &&
			got["prompt_submit"] == 1 && got["game_end"] == 1
	}, time.Second, 10*time.Millisecond)
}

func TestSession_SubmitAs(t *testing.T) {
	s, _ := setupTestSession(t, SessionConfig{Evaluator: alwaysFail})

	res, err := s.SubmitAs(1, 1, "no game yet")
	require.NoError(t, err)
	assert.False(t, res.Applied)

	s.CreateGame(models.GameTypeText, 2)
	res, err = s.SubmitAs(1, 1, "first try")
	require.NoError(t, err)
	require.True(t, res.Applied)
	assert.Equal(t, 1, res.Prompt.Player)

	// the turn passed to player 2
	res, err = s.SubmitAs(1, 1, "again")
	assert.ErrorIs(t, err, ErrNotYourTurn)
	assert.False(t, res.Applied)

	_, err = s.SubmitAs(3, 1, "other team")
	assert.ErrorIs(t, err, ErrNotYourTurn)

	snap, _ := s.Snapshot()
	require.Len(t, snap.Teams[0].Prompts, 1)
	assert.Equal(t, "first try", snap.Teams[0].Prompts[0].Text)
}

func TestSession_SubmitAsConcurrentSeats(t *testing.T) {
	s, _ := setupTestSession(t, SessionConfig{Evaluator: alwaysFail})
	s.CreateGame(models.GameTypeText, 2)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for player := 1; player <= 2; player++ {
		wg.Add(1)
		go func(player int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				res, err := s.SubmitAs(1, player, "attempt")
				if err != nil {
					continue
				}
				assert.Equal(t, player, res.Prompt.Player, "prompt credited to the submitting seat")
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}(player)
	}
	wg.Wait()

	snap, _ := s.Snapshot()
	prompts := snap.Teams[0].Prompts
	assert.Len(t, prompts, accepted)
	for i := 1; i < len(prompts); i++ {
		assert.NotEqual(t, prompts[i-1].Player, prompts[i].Player, "turns alternate")
	}
}

func TestSession_RerollPin(t *testing.T) {
	s, mb := setupTestSession(t, SessionConfig{})
	assert.Equal(t, "", s.RerollPin())

	s.CreateGame(models.GameTypeText, 2)
	mb.clear()

	pin := s.RerollPin()
	assert.Regexp(t, `^\d{6}$`, pin)
	assert.NotEqual(t, DemoPin, pin)
	assert.Equal(t, pin, s.Pin())
	assert.Empty(t, mb.types())
}

func TestSession_SubscribeHoldsEvents(t *testing.T) {
	s, mb := setupTestSession(t, SessionConfig{})
	assert.False(t, s.Subscribe(1, func(models.GameState, string, []models.ChatMessage) {
		t.Fatal("called without a game")
	}))

	s.CreateGame(models.GameTypeText, 2)
	require.True(t, s.UpdateDraft(1, 1, "half typed"))
	_, ok := s.SendChat(1, 1, "hi")
	require.True(t, ok)

	renamed := make(chan struct{})
	ok = s.Subscribe(1, func(st models.GameState, draft string, chat []models.ChatMessage) {
		assert.Equal(t, "half typed", draft)
		assert.Len(t, chat, 1)
		assert.Equal(t, "Team 1", st.Teams[0].Name)

		go func() {
			s.SetTeamName(1, "Renamed")
			close(renamed)
		}()
		time.Sleep(20 * time.Millisecond)
		select {
		case <-renamed:
			t.Error("transition ran while subscribing")
		default:
		}
		assert.Nil(t, mb.last(EventTeamRenamed))
	})
	require.True(t, ok)

	select {
	case <-renamed:
	case <-time.After(time.Second):
		t.Fatal("rename never ran")
	}
	assert.NotNil(t, mb.last(EventTeamRenamed))
}
