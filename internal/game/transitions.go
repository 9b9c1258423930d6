// internal/game/transitions.go
package game

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/pongai/internal/challenge"
	"github.com/jason-s-yu/pongai/internal/evaluator"
	"github.com/jason-s-yu/pongai/internal/models"
)

const (
	// TeamCount is the caller's team plus two simulated opponents.
	TeamCount = 3

	// PointsPerSuccess is added to a team's score for every successful prompt.
	PointsPerSuccess = 10

	// DemoPin always joins, fabricating a game if none exists.
	DemoPin = "123456"

	// DefaultTotalRounds keeps play single-round unless configured otherwise.
	DefaultTotalRounds = 1

	pinDigits = 6

	// opponent scores are seeded with 0, 10 or 20 points
	opponentSeedSteps = 3
)

// Rand is the subset of *math/rand.Rand the transitions draw from.
type Rand interface {
	Intn(n int) int
}

// Options configures a new game.
type Options struct {
	GameType    models.GameType
	PlayerCount int
	TotalRounds int
}

// SubmitResult describes what a SubmitPrompt transition did.
type SubmitResult struct {
	// Applied is false when the transition was a no-op.
	Applied bool

	TeamID int
	Prompt models.Prompt

	// Success mirrors Prompt.Success for convenience.
	Success bool
}

// NewGame builds a fresh game: 3 teams of opts.PlayerCount players, a random
// challenge for opts.GameType and a random 6 digit pin. The caller's team is
// always at index 0 and starts with player 0.
func NewGame(opts Options, catalog *challenge.Catalog, r Rand) models.GameState {
	if opts.PlayerCount < 1 {
		opts.PlayerCount = 1
	}
	if opts.TotalRounds < 1 {
		opts.TotalRounds = DefaultTotalRounds
	}

	ch, _ := catalog.Pick(opts.GameType, r)

	teams := make([]models.Team, TeamCount)
	for i := range teams {
		players := make([]models.Player, opts.PlayerCount)
		for j := range players {
			players[j] = models.Player{
				ID:   j + 1,
				Name: fmt.Sprintf("Player %d", j+1),
			}
		}
		teams[i] = models.Team{
			ID:      i + 1,
			Name:    fmt.Sprintf("Team %d", i+1),
			Players: players,
			Prompts: []models.Prompt{},
		}
		if i > 0 {
			teams[i].Score = r.Intn(opponentSeedSteps) * PointsPerSuccess
		}
	}

	return models.GameState{
		GameID:           uuid.New(),
		GamePin:          NewPin(r),
		Teams:            teams,
		CurrentTeamIndex: 0,
		GameType:         opts.GameType,
		Challenge:        ch.Name,
		Target:           ch.Target,
		CurrentRound:     1,
		TotalRounds:      opts.TotalRounds,
		GameOver:         false,
		GameStarted:      false,
	}
}

// NewPin returns a 6 digit numeric pin that never collides with DemoPin.
func NewPin(r Rand) string {
	for {
		pin := fmt.Sprintf("%0*d", pinDigits, r.Intn(1000000))
		if pin != DemoPin {
			return pin
		}
	}
}

// SubmitPrompt evaluates text for the active team's current player.
// On success the team scores and the game may end; on failure the turn
// passes to the next teammate. A finished game or completed round is a no-op.
func SubmitPrompt(s models.GameState, text string, ev evaluator.Evaluator) (models.GameState, SubmitResult) {
	if s.GameOver {
		return s, SubmitResult{}
	}
	active := s.ActiveTeam()
	if active == nil || len(active.Players) == 0 || active.RoundComplete() {
		return s, SubmitResult{}
	}

	next := s.Clone()
	team := next.ActiveTeam()
	player := team.CurrentPlayer()
	if player == nil {
		team.CurrentPlayerIndex = 0
		player = team.CurrentPlayer()
	}

	result := ev.Evaluate(text, next.Target)
	success := result.Success
	prompt := models.Prompt{
		Text:       text,
		Player:     player.ID,
		PlayerName: player.Name,
		AIResponse: result.Response,
		Success:    &success,
	}
	team.Prompts = append(team.Prompts, prompt)

	if success {
		team.Score += PointsPerSuccess
		next.GameOver = next.CurrentRound >= next.TotalRounds
	} else {
		team.CurrentPlayerIndex = (team.CurrentPlayerIndex + 1) % len(team.Players)
	}

	return next, SubmitResult{
		Applied: true,
		TeamID:  team.ID,
		Prompt:  prompt,
		Success: success,
	}
}

// StartNewRound picks a new challenge, clears every team's prompts and
// randomizes who goes first. It refuses once the game is over.
func StartNewRound(s models.GameState, catalog *challenge.Catalog, r Rand) (models.GameState, bool) {
	if s.GameOver || len(s.Teams) == 0 {
		return s, false
	}

	next := s.Clone()
	if ch, ok := catalog.Pick(next.GameType, r); ok {
		next.Challenge = ch.Name
		next.Target = ch.Target
	}
	for i := range next.Teams {
		t := &next.Teams[i]
		t.Prompts = []models.Prompt{}
		if len(t.Players) > 0 {
			t.CurrentPlayerIndex = r.Intn(len(t.Players))
		}
	}
	next.CurrentTeamIndex = r.Intn(len(next.Teams))
	next.CurrentRound++
	return next, true
}

// StartGame marks team setup as finished.
func StartGame(s models.GameState) (models.GameState, bool) {
	if s.GameStarted || s.GameOver {
		return s, false
	}
	next := s.Clone()
	next.GameStarted = true
	return next, true
}

// ToggleMute flips the mute flag of one player.
func ToggleMute(s models.GameState, playerID, teamID int) (models.GameState, bool) {
	if t := s.TeamByID(teamID); t == nil || t.PlayerByID(playerID) == nil {
		return s, false
	}
	next := s.Clone()
	p := next.TeamByID(teamID).PlayerByID(playerID)
	p.IsMuted = !p.IsMuted
	return next, true
}

// SetTeamName replaces a team's name verbatim.
func SetTeamName(s models.GameState, teamID int, name string) (models.GameState, bool) {
	if s.TeamByID(teamID) == nil {
		return s, false
	}
	next := s.Clone()
	next.TeamByID(teamID).Name = name
	return next, true
}
