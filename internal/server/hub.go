package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hailam/tablutplay/internal/board"
	"github.com/hailam/tablutplay/internal/game"
	"github.com/hailam/tablutplay/internal/rules"
)

// Message types sent to websocket subscribers.
const (
	msgState       = "state"
	msgMoveResult  = "move:result"
	msgTurnNote    = "turn:note"
	msgGameOver    = "game:over"
	msgBotThinking = "bot:thinking"
	msgPing        = "ping"
	msgError       = "error"

	// Sent by clients.
	msgRequestState = "request_state"
)

const wsIdlePingInterval = 30 * time.Second

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type moveResultPayload struct {
	GameID string `json:"gameId"`
	game.MoveEvent
}

type turnNotePayload struct {
	GameID  string `json:"gameId"`
	Message string `json:"message"`
}

type gameOverPayload struct {
	GameID string     `json:"gameId"`
	Winner board.Side `json:"winner"`
}

type botThinkingPayload struct {
	GameID string `json:"gameId"`
	Active bool   `json:"active"`
}

// Hub fans game events out to the websocket clients subscribed to each game.
// It implements game.Events.
type Hub struct {
	mu     sync.Mutex
	games  map[string]map[*Client]struct{}
	logger zerolog.Logger
}

// Client is one websocket subscription.
type Client struct {
	gameID string
	send   chan []byte
}

var _ game.Events = (*Hub)(nil)

// NewHub creates a hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		games:  make(map[string]map[*Client]struct{}),
		logger: logger.With().Str("ns", "ws").Logger(),
	}
}

// Register subscribes a new client to a game.
func (h *Hub) Register(gameID string) *Client {
	c := &Client{gameID: gameID, send: make(chan []byte, 16)}
	h.mu.Lock()
	subs, ok := h.games[gameID]
	if !ok {
		subs = make(map[*Client]struct{})
		h.games[gameID] = subs
	}
	subs[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug().Str("ev", "subscribe").Str("game", gameID).Msg("client subscribed")
	return c
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.games[c.gameID]
	if _, ok := subs[c]; !ok {
		return
	}
	delete(subs, c)
	close(c.send)
	if len(subs) == 0 {
		delete(h.games, c.gameID)
	}
	h.logger.Debug().Str("ev", "unsubscribe").Str("game", c.gameID).Msg("client left")
}

// Subscribers returns the number of clients watching a game.
func (h *Hub) Subscribers(gameID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.games[gameID])
}

func (h *Hub) broadcast(gameID, typ string, payload any) {
	data, err := encodeMessage(typ, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("ev", "encode_error").Str("type", typ).Msg("event dropped")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.games[gameID] {
		if !c.trySend(data) {
			h.logger.Warn().Str("ev", "send_overflow").Str("game", gameID).Str("type", typ).Msg("slow subscriber, event dropped")
		}
	}
}

// State implements game.Events.
func (h *Hub) State(st *rules.State) {
	h.broadcast(st.ID, msgState, st)
}

// MoveResult implements game.Events.
func (h *Hub) MoveResult(gameID string, ev game.MoveEvent) {
	h.broadcast(gameID, msgMoveResult, moveResultPayload{GameID: gameID, MoveEvent: ev})
}

// TurnNote implements game.Events.
func (h *Hub) TurnNote(gameID, message string) {
	h.broadcast(gameID, msgTurnNote, turnNotePayload{GameID: gameID, Message: message})
}

// GameOver implements game.Events.
func (h *Hub) GameOver(gameID string, winner board.Side) {
	h.broadcast(gameID, msgGameOver, gameOverPayload{GameID: gameID, Winner: winner})
}

// BotThinking implements game.Events.
func (h *Hub) BotThinking(gameID string, active bool) {
	h.broadcast(gameID, msgBotThinking, botThinkingPayload{GameID: gameID, Active: active})
}

// trySend queues data for the client, dropping it if the client is too slow.
func (c *Client) trySend(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func encodeMessage(typ string, payload any) ([]byte, error) {
	msg := wsMessage{Type: typ}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Payload = raw
	}
	return json.Marshal(msg)
}

// writeWithHeartbeat drains send into conn, writing a ping message whenever
// the connection has been idle for wsIdlePingInterval.
func writeWithHeartbeat(conn *websocket.Conn, send <-chan []byte, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	lastWrite := time.Now()
	ping, _ := encodeMessage(msgPing, nil)

	for {
		select {
		case msg, ok := <-send:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return nil
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return err
			}
			lastWrite = time.Now()
		case <-ticker.C:
			if time.Since(lastWrite) < interval {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, ping); err != nil {
				return err
			}
			lastWrite = time.Now()
		}
	}
}
