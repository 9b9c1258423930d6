package game

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// beginTurn announces the active player and restarts the turn timer.
// Assumes lock is held.
func (s *Session) beginTurn() {
	s.turnID++
	team := s.state.ActiveTeam()
	if team == nil {
		return
	}
	if p := team.CurrentPlayer(); p != nil {
		s.fireEvent(GameEvent{
			Type:     EventTurnChanged,
			TeamID:   team.ID,
			PlayerID: p.ID,
			Payload:  map[string]interface{}{"turn": s.turnID},
		})
	}
	s.scheduleTurnTimer()
}

// scheduleTurnTimer arms the auto-submit timer for the current turn if the
// game is running and a turn duration is configured. Assumes lock is held.
func (s *Session) scheduleTurnTimer() {
	s.stopTurnTimer()
	if s.cfg.TurnDuration <= 0 || s.state == nil || !s.state.GameStarted || s.state.GameOver {
		return
	}
	if team := s.state.ActiveTeam(); team == nil || team.RoundComplete() {
		return
	}

	turnID := s.turnID
	s.turnTimer = time.AfterFunc(s.cfg.TurnDuration, func() {
		s.handleTimeout(turnID)
	})
}

// stopTurnTimer cancels a pending timer. Assumes lock is held.
func (s *Session) stopTurnTimer() {
	if s.turnTimer != nil {
		s.turnTimer.Stop()
		s.turnTimer = nil
	}
}

// handleTimeout auto-submits whatever the current player had drafted.
// Timers from earlier turns are ignored.
func (s *Session) handleTimeout(turnID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil || s.turnID != turnID {
		return
	}
	team := s.state.ActiveTeam()
	if team == nil {
		return
	}
	draft := s.drafts[team.ID]

	entry := log.WithFields(log.Fields{"game": s.state.GameID, "team": team.ID, "turn": turnID})
	if p := team.CurrentPlayer(); p != nil {
		entry = entry.WithField("player", p.ID)
		s.fireEvent(GameEvent{Type: EventTurnTimeout, TeamID: team.ID, PlayerID: p.ID})
	}
	entry.Info("Turn timer expired, auto-submitting draft")

	s.submitLocked(draft)
}
