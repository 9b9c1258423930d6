// internal/database/game.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/pongai/internal/models"
)

// TeamResult is one team's row in game_teams.
type TeamResult struct {
	TeamID    int
	Name      string
	Score     int
	Placement int
	DidWin    bool
}

// TeamResults ranks the final teams. Teams sharing the top score all win and
// tied scores share a placement.
func TeamResults(final models.GameState) []TeamResult {
	best := 0
	for i, t := range final.Teams {
		if i == 0 || t.Score > best {
			best = t.Score
		}
	}

	out := make([]TeamResult, 0, len(final.Teams))
	for _, t := range final.Teams {
		placement := 1
		for _, other := range final.Teams {
			if other.Score > t.Score {
				placement++
			}
		}
		out = append(out, TeamResult{
			TeamID:    t.ID,
			Name:      t.Name,
			Score:     t.Score,
			Placement: placement,
			DidWin:    t.Score == best,
		})
	}
	return out
}

// RecordGameResult persists the final outcome of a game: the game row with
// its final snapshot, per-team results and the prompts of the last round.
func (s *Store) RecordGameResult(ctx context.Context, final models.GameState) error {
	snapshot, err := json.Marshal(final)
	if err != nil {
		return fmt.Errorf("failed to marshal final snapshot: %w", err)
	}

	err = pgx.BeginTxFunc(ctx, s.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertGame := `
			INSERT INTO games (id, pin, game_type, challenge, status, total_rounds, final_state, end_time)
			VALUES ($1, $2, $3, $4, 'completed', $5, $6, NOW())
			ON CONFLICT (id) DO UPDATE SET
				status = 'completed',
				challenge = EXCLUDED.challenge,
				total_rounds = EXCLUDED.total_rounds,
				final_state = EXCLUDED.final_state,
				end_time = NOW()
		`
		if _, e := tx.Exec(ctx, upsertGame,
			final.GameID, final.GamePin, string(final.GameType), final.Challenge, final.TotalRounds, snapshot,
		); e != nil {
			return e
		}

		for _, r := range TeamResults(final) {
			q := `
				INSERT INTO game_teams (game_id, team_id, name, score, placement, did_win)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (game_id, team_id)
				DO UPDATE SET name=$3, score=$4, placement=$5, did_win=$6
			`
			if _, e := tx.Exec(ctx, q, final.GameID, r.TeamID, r.Name, r.Score, r.Placement, r.DidWin); e != nil {
				return e
			}
		}

		batch := &pgx.Batch{}
		for _, t := range final.Teams {
			for seq, p := range t.Prompts {
				batch.Queue(`
					INSERT INTO game_prompts (game_id, team_id, seq, player_id, player_name, text, ai_response, success)
					VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
					ON CONFLICT (game_id, team_id, seq) DO NOTHING
				`, final.GameID, t.ID, seq, p.Player, p.PlayerName, p.Text, p.AIResponse, p.Success)
			}
		}
		if batch.Len() == 0 {
			return nil
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("tx record game %s: %w", final.GameID, err)
	}
	return nil
}

// MarkGameAbandoned flags a game that never finished. It reports whether a
// row was updated.
func (s *Store) MarkGameAbandoned(ctx context.Context, gameID uuid.UUID) (bool, error) {
	var updated bool
	err := pgx.BeginTxFunc(ctx, s.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			UPDATE games
			SET status = 'abandoned', end_time = NOW()
			WHERE id = $1 AND status = 'in_progress'
		`
		tag, e := tx.Exec(ctx, q, gameID)
		if e != nil {
			return e
		}
		updated = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to mark game %v abandoned: %w", gameID, err)
	}
	return updated, nil
}

// DeleteGame removes a game and, through cascades, everything recorded for it.
func (s *Store) DeleteGame(ctx context.Context, gameID uuid.UUID) error {
	return pgx.BeginTxFunc(ctx, s.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, e := tx.Exec(ctx, `DELETE FROM games WHERE id = $1`, gameID)
		return e
	})
}
