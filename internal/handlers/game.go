// internal/handlers/game.go
package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jason-s-yu/pongai/internal/auth"
	"github.com/jason-s-yu/pongai/internal/challenge"
	"github.com/jason-s-yu/pongai/internal/game"
	"github.com/jason-s-yu/pongai/internal/models"
	"github.com/skip2/go-qrcode"
)

// MaxPlayersPerTeam bounds the playerCount accepted by CreateGameHandler.
const MaxPlayersPerTeam = 8

const qrSize = 320

var errWrongGame = errors.New("token was issued for another game")

type seatResponse struct {
	GameID   uuid.UUID        `json:"gameId"`
	GamePin  string           `json:"gamePin"`
	TeamID   int              `json:"teamId"`
	PlayerID int              `json:"playerId"`
	Token    string           `json:"token"`
	State    models.GameState `json:"state"`
}

// sessionFromRequest resolves the {gameID} URL parameter, writing 400/404 on failure.
func (gs *GameServer) sessionFromRequest(w http.ResponseWriter, r *http.Request) (*game.Session, uuid.UUID, bool) {
	gameID, err := uuid.Parse(chi.URLParam(r, "gameID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return nil, uuid.Nil, false
	}
	s, ok := gs.GameStore.GetGame(gameID)
	if !ok {
		writeError(w, http.StatusNotFound, "game not found")
		return nil, uuid.Nil, false
	}
	return s, gameID, true
}

// authorize checks that the request carries a player token for gameID.
func authorize(r *http.Request, gameID uuid.UUID) (*auth.PlayerClaims, error) {
	claims, err := auth.AuthenticatePlayerToken(extractToken(r))
	if err != nil {
		return nil, err
	}
	id, err := claims.GameID()
	if err != nil {
		return nil, err
	}
	if id != gameID {
		return nil, errWrongGame
	}
	return claims, nil
}

// authorizedSession combines sessionFromRequest and authorize.
func (gs *GameServer) authorizedSession(w http.ResponseWriter, r *http.Request) (*game.Session, *auth.PlayerClaims, bool) {
	s, gameID, ok := gs.sessionFromRequest(w, r)
	if !ok {
		return nil, nil, false
	}
	claims, err := authorize(r, gameID)
	if err != nil {
		gs.Logger.Debugf("Rejected token for game %s: %v", gameID, err)
		writeError(w, http.StatusUnauthorized, "invalid player token")
		return nil, nil, false
	}
	return s, claims, true
}

// seat issues a token for (team, player) after checking the seat exists.
func (gs *GameServer) seat(w http.ResponseWriter, s *game.Session, teamID, playerID int, status int) {
	snap, ok := s.Snapshot()
	if !ok {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	team := snap.TeamByID(teamID)
	if team == nil || team.PlayerByID(playerID) == nil {
		writeError(w, http.StatusBadRequest, "no such seat")
		return
	}
	token, err := auth.CreatePlayerToken(snap.GameID, teamID, playerID)
	if err != nil {
		gs.Logger.Errorf("Failed to sign token for game %s: %v", snap.GameID, err)
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, status, seatResponse{
		GameID:   snap.GameID,
		GamePin:  snap.GamePin,
		TeamID:   teamID,
		PlayerID: playerID,
		Token:    token,
		State:    snap,
	})
}

// CreateGameHandler handles POST /games. The creator holds seat 1 of team 1.
func (gs *GameServer) CreateGameHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type        string `json:"type"`
		PlayerCount int    `json:"playerCount"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Type == "" {
		req.Type = string(models.GameTypeText)
	}
	gameType, err := models.ParseGameType(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.PlayerCount == 0 {
		req.PlayerCount = gs.DefaultPlayerCount
	}
	if req.PlayerCount < 1 || req.PlayerCount > MaxPlayersPerTeam {
		writeError(w, http.StatusBadRequest, "playerCount must be between 1 and "+strconv.Itoa(MaxPlayersPerTeam))
		return
	}

	s, err := gs.GameStore.CreateGame(gameType, req.PlayerCount)
	if err != nil {
		gs.Logger.Errorf("Failed to create %s game: %v", gameType, err)
		writeError(w, http.StatusServiceUnavailable, "no free game pin, try again")
		return
	}
	gs.Logger.Infof("Created %s game %s with %d players per team", gameType, s.ID(), req.PlayerCount)
	gs.seat(w, s, 1, 1, http.StatusCreated)
}

// JoinGameHandler handles POST /games/join. The seat defaults to team 1, player 1.
func (gs *GameServer) JoinGameHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Pin      string `json:"pin"`
		TeamID   int    `json:"teamId"`
		PlayerID int    `json:"playerId"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s, ok := gs.GameStore.Join(strings.TrimSpace(req.Pin))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"success": false, "error": "invalid pin"})
		return
	}
	if req.TeamID == 0 {
		req.TeamID = 1
	}
	if req.PlayerID == 0 {
		req.PlayerID = 1
	}
	gs.seat(w, s, req.TeamID, req.PlayerID, http.StatusOK)
}

// GetGameHandler handles GET /games/{gameID}.
func (gs *GameServer) GetGameHandler(w http.ResponseWriter, r *http.Request) {
	s, _, ok := gs.sessionFromRequest(w, r)
	if !ok {
		return
	}
	snap, ok := s.Snapshot()
	if !ok {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// respondState writes the current snapshot, or 409 when the transition was refused.
func respondState(w http.ResponseWriter, s *game.Session, applied bool, refusal string) {
	if !applied {
		writeJSON(w, http.StatusConflict, map[string]interface{}{"success": false, "error": refusal})
		return
	}
	snap, ok := s.Snapshot()
	if !ok {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "state": snap})
}

// StartGameHandler handles POST /games/{gameID}/start.
func (gs *GameServer) StartGameHandler(w http.ResponseWriter, r *http.Request) {
	s, _, ok := gs.authorizedSession(w, r)
	if !ok {
		return
	}
	respondState(w, s, s.StartGame(), "game already started")
}

// SubmitPromptHandler handles POST /games/{gameID}/prompts. Only the seat
// holding the turn may submit.
func (gs *GameServer) SubmitPromptHandler(w http.ResponseWriter, r *http.Request) {
	s, claims, ok := gs.authorizedSession(w, r)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.SubmitAs(claims.TeamID, claims.PlayerID, req.Text)
	if errors.Is(err, game.ErrNotYourTurn) {
		writeJSON(w, http.StatusForbidden, map[string]interface{}{"success": false, "error": err.Error()})
		return
	}
	if !res.Applied {
		writeJSON(w, http.StatusConflict, map[string]interface{}{"success": false, "error": "no prompt is expected"})
		return
	}
	snap, _ := s.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": res.Success,
		"teamId":  res.TeamID,
		"prompt":  res.Prompt,
		"state":   snap,
	})
}

// StartRoundHandler handles POST /games/{gameID}/rounds.
func (gs *GameServer) StartRoundHandler(w http.ResponseWriter, r *http.Request) {
	s, _, ok := gs.authorizedSession(w, r)
	if !ok {
		return
	}
	respondState(w, s, s.StartNewRound(), "game is over")
}

// RenameTeamHandler handles PUT /games/{gameID}/teams/{teamID}/name.
func (gs *GameServer) RenameTeamHandler(w http.ResponseWriter, r *http.Request) {
	s, _, ok := gs.authorizedSession(w, r)
	if !ok {
		return
	}
	teamID, err := strconv.Atoi(chi.URLParam(r, "teamID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid team id")
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !s.SetTeamName(teamID, req.Name) {
		writeError(w, http.StatusNotFound, "team not found")
		return
	}
	respondState(w, s, true, "")
}

// ToggleMuteHandler handles POST /games/{gameID}/teams/{teamID}/players/{playerID}/mute.
func (gs *GameServer) ToggleMuteHandler(w http.ResponseWriter, r *http.Request) {
	s, _, ok := gs.authorizedSession(w, r)
	if !ok {
		return
	}
	teamID, err1 := strconv.Atoi(chi.URLParam(r, "teamID"))
	playerID, err2 := strconv.Atoi(chi.URLParam(r, "playerID"))
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "invalid team or player id")
		return
	}
	if !s.ToggleMute(playerID, teamID) {
		writeError(w, http.StatusNotFound, "player not found")
		return
	}
	respondState(w, s, true, "")
}

// DeleteGameHandler handles DELETE /games/{gameID}: the game is reset and forgotten.
func (gs *GameServer) DeleteGameHandler(w http.ResponseWriter, r *http.Request) {
	s, claims, ok := gs.authorizedSession(w, r)
	if !ok {
		return
	}
	gameID := s.ID()
	s.ResetGame()
	gs.GameStore.DeleteGame(gameID)
	gs.closeGame(gameID)
	gs.Logger.Infof("Game %s reset by team %d player %d", gameID, claims.TeamID, claims.PlayerID)
	w.WriteHeader(http.StatusNoContent)
}

// RankingsHandler handles GET /games/{gameID}/rankings.
func (gs *GameServer) RankingsHandler(w http.ResponseWriter, r *http.Request) {
	s, _, ok := gs.sessionFromRequest(w, r)
	if !ok {
		return
	}
	snap, ok := s.Snapshot()
	if !ok {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	writeJSON(w, http.StatusOK, game.Rankings(snap))
}

// FeedbackHandler handles GET /games/{gameID}/feedback[?teamId=N]. Without
// teamId the active team is used.
func (gs *GameServer) FeedbackHandler(w http.ResponseWriter, r *http.Request) {
	s, _, ok := gs.sessionFromRequest(w, r)
	if !ok {
		return
	}
	snap, ok := s.Snapshot()
	if !ok {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}

	team := snap.ActiveTeam()
	if raw := r.URL.Query().Get("teamId"); raw != "" {
		teamID, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid team id")
			return
		}
		team = snap.TeamByID(teamID)
	}
	if team == nil {
		writeError(w, http.StatusNotFound, "team not found")
		return
	}
	writeJSON(w, http.StatusOK, game.Feedback(*team, snap.Challenge))
}

// SuggestionsHandler handles GET /games/{gameID}/suggestions.
func (gs *GameServer) SuggestionsHandler(w http.ResponseWriter, r *http.Request) {
	s, _, ok := gs.sessionFromRequest(w, r)
	if !ok {
		return
	}
	snap, ok := s.Snapshot()
	if !ok {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"challenge":   snap.Challenge,
		"suggestions": challenge.Suggestions(snap.Challenge),
	})
}

// ChatHistoryHandler handles GET /games/{gameID}/chat.
func (gs *GameServer) ChatHistoryHandler(w http.ResponseWriter, r *http.Request) {
	s, _, ok := gs.sessionFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Chat())
}

// SendChatHandler handles POST /games/{gameID}/chat. The sender is the token's seat.
func (gs *GameServer) SendChatHandler(w http.ResponseWriter, r *http.Request) {
	s, claims, ok := gs.authorizedSession(w, r)
	if !ok {
		return
	}
	var req struct {
		Message string `json:"message"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	msg, ok := s.SendChat(claims.TeamID, claims.PlayerID, req.Message)
	if !ok {
		writeError(w, http.StatusBadRequest, "message rejected")
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// QRHandler handles GET /games/{gameID}/qr: a PNG QR code of the join link.
func (gs *GameServer) QRHandler(w http.ResponseWriter, r *http.Request) {
	s, _, ok := gs.sessionFromRequest(w, r)
	if !ok {
		return
	}
	pin := s.Pin()
	if pin == "" {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}

	png, err := qrcode.Encode(gs.joinURL(r, pin), qrcode.Medium, qrSize)
	if err != nil {
		gs.Logger.Errorf("QR generation failed for game %s: %v", s.ID(), err)
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// joinURL builds the link players scan to join with pin.
func (gs *GameServer) joinURL(r *http.Request, pin string) string {
	base := strings.TrimSuffix(gs.PublicURL, "/")
	if base == "" {
		// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/join?pin=" + url.QueryEscape(pin)
}
