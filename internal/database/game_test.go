package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/pongai/internal/cache"
	"github.com/jason-s-yu/pongai/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finalState(scores ...int) models.GameState {
	ok := true
	st := models.GameState{
		GameID:       uuid.New(),
		GamePin:      "482913",
		GameType:     models.GameTypeText,
		Challenge:    "Shakespeare Sonnet",
		CurrentRound: 1,
		TotalRounds:  1,
		GameOver:     true,
	}
	for i, s := range scores {
		st.Teams = append(st.Teams, models.Team{
			ID:      i + 1,
			Name:    "Team",
			Score:   s,
			Players: []models.Player{{ID: 1, Name: "Player 1"}},
		})
	}
	st.Teams[0].Prompts = []models.Prompt{{Text: "a sonnet about summer days", Player: 1, PlayerName: "Player 1", Success: &ok}}
	return st
}

func TestTeamResults(t *testing.T) {
	res := TeamResults(finalState(10, 20, 10))
	require.Len(t, res, 3)

	assert.Equal(t, 2, res[0].Placement)
	assert.False(t, res[0].DidWin)
	assert.Equal(t, 1, res[1].Placement)
	assert.True(t, res[1].DidWin)
	assert.Equal(t, 2, res[2].Placement)
}

func TestTeamResults_SharedWin(t *testing.T) {
	res := TeamResults(finalState(20, 20, 0))
	assert.True(t, res[0].DidWin)
	assert.True(t, res[1].DidWin)
	assert.False(t, res[2].DidWin)
	assert.Equal(t, 1, res[1].Placement)
	assert.Equal(t, 3, res[2].Placement)
}

func TestNullableID(t *testing.T) {
	assert.Nil(t, nullableID(0))
	require.NotNil(t, nullableID(3))
	assert.Equal(t, 3, *nullableID(3))
}

func TestSchemaEmbedded(t *testing.T) {
	for _, table := range []string{"games", "game_teams", "game_prompts", "game_actions"} {
		assert.Contains(t, schemaSQL, "CREATE TABLE IF NOT EXISTS "+table)
	}
}

// Runs against PONGAI_TEST_DATABASE_URL when set.
func TestStoreIntegration(t *testing.T) {
	url := os.Getenv("PONGAI_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("PONGAI_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, err := Connect(ctx, url)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.EnsureSchema(ctx))

	final := finalState(10, 0, 20)
	defer st.DeleteGame(context.Background(), final.GameID)

	require.NoError(t, st.InsertGameActions(ctx, []cache.GameActionRecord{
		{GameID: final.GameID, ActionIndex: 1, ActionType: "game_create", Timestamp: time.Now().UnixMilli()},
		{GameID: final.GameID, ActionIndex: 2, TeamID: 1, PlayerID: 1, ActionType: "prompt_submit", Timestamp: time.Now().UnixMilli()},
	}))
	require.NoError(t, st.RecordGameResult(ctx, final))

	abandoned, err := st.MarkGameAbandoned(ctx, final.GameID)
	require.NoError(t, err)
	assert.False(t, abandoned, "completed games are never abandoned")

	other := uuid.New()
	defer st.DeleteGame(context.Background(), other)
	require.NoError(t, st.InsertGameActions(ctx, []cache.GameActionRecord{
		{GameID: other, ActionIndex: 1, ActionType: "game_create", Timestamp: time.Now().UnixMilli()},
	}))
	abandoned, err = st.MarkGameAbandoned(ctx, other)
	require.NoError(t, err)
	assert.True(t, abandoned)
}
