// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/pongai/internal/auth"
	"github.com/jason-s-yu/pongai/internal/game"
	"github.com/jason-s-yu/pongai/internal/middleware"
	"github.com/jason-s-yu/pongai/internal/models"
)

// GameSubprotocol must be requested by WebSocket clients.
const GameSubprotocol = "pongai"

// GameMessage represents the structure for incoming WebSocket messages.
type GameMessage struct {
	Type string `json:"type"`

	// Text is the prompt for "draft" and "submit".
	Text string `json:"text,omitempty"`

	// Message is the chat line for "chat".
	Message string `json:"message,omitempty"`
}

// initialState is sent once right after a client subscribes.
type initialState struct {
	Type     string               `json:"type"`
	TeamID   int                  `json:"teamId"`
	PlayerID int                  `json:"playerId"`
	State    models.GameState     `json:"state"`
	Draft    string               `json:"draft"`
	Chat     []models.ChatMessage `json:"chat"`
}

// GameWSHandler upgrades the HTTP connection to WebSocket for a game, checks
// the player token, subscribes the socket to game events and then reads
// draft/submit/chat/ping messages from it.
func (gs *GameServer) GameWSHandler(w http.ResponseWriter, r *http.Request) {
	s, gameID, ok := gs.sessionFromRequest(w, r)
	if !ok {
		return
	}
	logger := gs.Logger

	patterns := gs.OriginPatterns
	if len(patterns) == 0 {
		patterns = []string{"*"}
	}
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{GameSubprotocol},
		OriginPatterns: patterns,
	})
	if err != nil {
		logger.Warnf("WebSocket accept error for game %s: %v", gameID, err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

	if c.Subprotocol() != GameSubprotocol {
		logger.Warnf("Client for game %s connected with invalid subprotocol: %s", gameID, c.Subprotocol())
		c.Close(BadSubprotocolError, fmt.Sprintf("Client must use the '%s' subprotocol.", GameSubprotocol))
		return
	}

	claims, err := auth.AuthenticatePlayerToken(extractToken(r))
	if err != nil {
		logger.Warnf("Player token rejected for game %s: %v", gameID, err)
		c.Close(InvalidAuthTokenError, "Invalid player token.")
		return
	}
	if tokenGame, _ := claims.GameID(); tokenGame != gameID {
		c.Close(InvalidGameIDError, "Token was issued for another game.")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := &wsClient{
		conn:     c,
		teamID:   claims.TeamID,
		playerID: claims.PlayerID,
		send:     make(chan []byte, clientSendBuffer),
		done:     make(chan struct{}),
	}

	// register and queue the hello under the session lock so every event
	// reaches the client after it, in order
	seated := false
	live := s.Subscribe(claims.TeamID, func(st models.GameState, draft string, chat []models.ChatMessage) {
		if t := st.TeamByID(claims.TeamID); t == nil || t.PlayerByID(claims.PlayerID) == nil {
			return
		}
		seated = true
		hello, err := json.Marshal(initialState{
			Type:     "game_state",
			TeamID:   claims.TeamID,
			PlayerID: claims.PlayerID,
			State:    st,
			Draft:    draft,
			Chat:     chat,
		})
		if err != nil {
			logger.Errorf("Failed to marshal initial state for game %s: %v", gameID, err)
		} else {
			// send is fresh and empty, so this never blocks
			client.send <- hello
		}
		gs.register(gameID, client)
	})
	if !live {
		c.Close(websocket.StatusGoingAway, "Game has been reset.")
		return
	}
	if !seated {
		c.Close(InvalidSeatError, "No such seat in this game.")
		return
	}
	defer gs.unregister(gameID, client)

	middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

	go gs.writePump(ctx, client)

	err = gs.readGameMessages(ctx, c, s, client)
	middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, err)
}

// readGameMessages continuously reads messages from a client's WebSocket
// connection and routes them to the session until the connection ends.
func (gs *GameServer) readGameMessages(ctx context.Context, c *websocket.Conn, s *game.Session, client *wsClient) error {
	logger := gs.Logger
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return nil
			}
			if strings.Contains(err.Error(), "context canceled") {
				return nil
			}
			return err
		}

		if msgType != websocket.MessageText {
			logger.Warnf("Received non-text message type %d from team %d player %d. Ignoring.", msgType, client.teamID, client.playerID)
			continue
		}

		var msg GameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sendWsError(ctx, c, "Invalid JSON format.")
			continue
		}
		logger.Debugf("Received '%s' from team %d player %d in game %s.", msg.Type, client.teamID, client.playerID, s.ID())

		switch msg.Type {
		case "draft":
			if !s.UpdateDraft(client.teamID, client.playerID, msg.Text) {
				sendWsError(ctx, c, "It is not your turn.")
			}

		case "submit":
			res, err := s.SubmitAs(client.teamID, client.playerID, msg.Text)
			if err != nil {
				sendWsError(ctx, c, "It is not your turn.")
				continue
			}
			if !res.Applied {
				sendWsError(ctx, c, "No prompt is expected.")
				continue
			}
			sendWsMessage(ctx, c, map[string]interface{}{
				"type":    "submit_result",
				"success": res.Success,
				"prompt":  res.Prompt,
			})

		case "chat":
			if _, ok := s.SendChat(client.teamID, client.playerID, msg.Message); !ok {
				sendWsError(ctx, c, "Message rejected.")
			}

		case "ping":
			sendWsMessage(ctx, c, map[string]string{"type": "pong"})

		default:
			logger.Warnf("Unknown message type '%s' from team %d player %d.", msg.Type, client.teamID, client.playerID)
			sendWsError(ctx, c, fmt.Sprintf("Unknown message type: %s", msg.Type))
		}
	}
}

// sendWsMessage marshals a message and sends it to the WebSocket client with a write timeout.
func sendWsMessage(ctx context.Context, c *websocket.Conn, message interface{}) {
	msgBytes, err := json.Marshal(message)
	if err != nil {
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	// failures surface in the read loop
	_ = c.Write(writeCtx, websocket.MessageText, msgBytes)
}

// sendWsError sends a structured error message to the client.
func sendWsError(ctx context.Context, c *websocket.Conn, errorMsg string) {
	sendWsMessage(ctx, c, map[string]interface{}{
		"type":    "error",
		"message": errorMsg,
	})
}
