// internal/handlers/game_server.go
package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/pongai/internal/game"
	"github.com/jason-s-yu/pongai/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	clientSendBuffer = 64
	writeTimeout     = 3 * time.Second
)

// ResultRecorder persists finished games.
type ResultRecorder interface {
	RecordGameResult(ctx context.Context, final models.GameState) error
}

// GameServer holds the GameStore and the WebSocket clients subscribed to
// each game.
type GameServer struct {
	GameStore *game.GameStore
	Recorder  ResultRecorder
	Logger    *logrus.Logger

	// DefaultPlayerCount is used when a create request names no size.
	DefaultPlayerCount int

	// PublicURL prefixes join links encoded in QR codes. Empty uses the request host.
	PublicURL string

	// OriginPatterns are the WebSocket origins accepted. Empty accepts any.
	OriginPatterns []string

	mu    sync.Mutex
	conns map[uuid.UUID]map[*wsClient]struct{}
}

// wsClient is one subscribed WebSocket. Writes go through send so events
// reach each client in the order they were fired.
type wsClient struct {
	conn     *websocket.Conn
	teamID   int
	playerID int
	send     chan []byte
	done     chan struct{}
	once     sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.done) })
}

// NewGameServer builds a server whose sessions are created by newSession and
// wired to this server's broadcaster.
func NewGameServer(logger *logrus.Logger, newSession game.SessionFactory) *GameServer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	gs := &GameServer{
		Logger:             logger,
		DefaultPlayerCount: game.DefaultPlayerCount,
		conns:              make(map[uuid.UUID]map[*wsClient]struct{}),
	}
	gs.GameStore = game.NewGameStore(newSession)
	gs.GameStore.OnCreate = gs.attach
	return gs
}

// attach wires broadcast and persistence callbacks into a fresh session.
func (gs *GameServer) attach(s *game.Session) {
	s.BroadcastFn = gs.broadcast
	s.OnGameEnd = func(final models.GameState) {
		if gs.Recorder == nil {
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := gs.Recorder.RecordGameResult(ctx, final); err != nil {
				gs.Logger.Errorf("Failed to record result of game %s: %v", final.GameID, err)
				return
			}
			gs.Logger.Infof("Recorded result of game %s", final.GameID)
		}()
	}
}

// broadcast is called while the session lock is held, so it never touches
// the session and never blocks on a socket.
func (gs *GameServer) broadcast(ev game.GameEvent) {
	if ev.GameID == uuid.Nil {
		return
	}
	msgBytes, err := json.Marshal(ev)
	if err != nil {
		gs.Logger.Errorf("Failed to marshal broadcast event (%s) for game %s: %v", ev.Type, ev.GameID, err)
		return
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()
	for c := range gs.conns[ev.GameID] {
		select {
		case c.send <- msgBytes:
		default:
			gs.Logger.Warnf("Dropping slow client team %d player %d in game %s", c.teamID, c.playerID, ev.GameID)
			delete(gs.conns[ev.GameID], c)
			c.close()
		}
	}
}

func (gs *GameServer) register(gameID uuid.UUID, c *wsClient) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if gs.conns[gameID] == nil {
		gs.conns[gameID] = make(map[*wsClient]struct{})
	}
	gs.conns[gameID][c] = struct{}{}
}

func (gs *GameServer) unregister(gameID uuid.UUID, c *wsClient) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	delete(gs.conns[gameID], c)
	if len(gs.conns[gameID]) == 0 {
		delete(gs.conns, gameID)
	}
}

// closeGame disconnects every subscriber of a game.
func (gs *GameServer) closeGame(gameID uuid.UUID) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	for c := range gs.conns[gameID] {
		c.close()
	}
	delete(gs.conns, gameID)
}

// subscribers counts the open sockets of a game.
func (gs *GameServer) subscribers(gameID uuid.UUID) int {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return len(gs.conns[gameID])
}

// writePump drains c.send until the client is closed or a write fails.
func (gs *GameServer) writePump(ctx context.Context, c *wsClient) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			gs.drain(ctx, c)
			c.conn.Close(websocket.StatusGoingAway, "game closed")
			return
		case data := <-c.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				gs.Logger.Warnf("Failed to write to team %d player %d: %v", c.teamID, c.playerID, err)
				c.close()
				return
			}
		}
	}
}

// drain flushes whatever was queued before the client was closed, so a
// final event such as game_reset still reaches it.
func (gs *GameServer) drain(ctx context.Context, c *wsClient) {
	for {
		select {
		case data := <-c.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		default:
			return
		}
	}
}
