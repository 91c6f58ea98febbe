// Package server exposes games over HTTP and pushes their changes to
// websocket subscribers.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hailam/tablutplay/internal/board"
	"github.com/hailam/tablutplay/internal/game"
	"github.com/hailam/tablutplay/internal/render"
	"github.com/hailam/tablutplay/internal/rules"
	"github.com/hailam/tablutplay/internal/storage"
)

// Store is the part of the storage layer the server talks to directly.
type Store interface {
	Ping(ctx context.Context) error
	LoadStats(ctx context.Context) (*storage.GameStats, error)
	LoadResult(ctx context.Context, id string) (*storage.Result, error)
}

// Options configures a Server.
type Options struct {
	CORSOrigins  []string
	PingInterval time.Duration // Websocket idle heartbeat; 30s when zero
	Logger       zerolog.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	svc          *game.Service
	store        Store
	hub          *Hub
	logger       zerolog.Logger
	origins      []string
	pingInterval time.Duration
	upgrader     websocket.Upgrader
}

// New creates a server. The hub should also be registered as the service's
// event sink so subscribers see every change.
func New(svc *game.Service, store Store, hub *Hub, opts Options) *Server {
	s := &Server{
		svc:          svc,
		store:        store,
		hub:          hub,
		logger:       opts.Logger.With().Str("ns", "http").Logger(),
		origins:      opts.CORSOrigins,
		pingInterval: opts.PingInterval,
	}
	if s.pingInterval <= 0 {
		s.pingInterval = wsIdlePingInterval
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(corsHandler(s.origins))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Post("/games", s.handleCreateGame)
		r.Route("/games/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetGame)
			r.Delete("/", s.handleDeleteGame)
			r.Get("/result", s.handleGameResult)
			r.Post("/moves", s.handlePlayMove)
			r.Post("/difficulty", s.handleChangeDifficulty)
			r.Get("/board.png", s.handleBoardPNG)
			r.Get("/board.svg", s.handleBoardSVG)
		})
	})

	r.Get("/ws/games/{id}", s.handleWS)
	return r
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return slices.Contains(s.origins, "*") || slices.Contains(s.origins, origin)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		loggerFrom(r, s.logger).Warn().Err(err).Str("ev", "not_ready").Msg("store unavailable")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type statsResponse struct {
	*storage.GameStats
	HumanWinRate float64 `json:"human_win_rate"`
	AverageMoves float64 `json:"average_moves"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.LoadStats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		GameStats:    stats,
		HumanWinRate: stats.HumanWinRate(),
		AverageMoves: stats.AverageMoves(),
	})
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req game.NewGameRequest
	if !s.decode(w, r, &req) {
		return
	}
	st, err := s.svc.NewGame(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGameResult returns the recorded result of a finished game. The
// result outlives the game snapshot.
func (s *Server) handleGameResult(w http.ResponseWriter, r *http.Request) {
	res, err := s.store.LoadResult(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// moveRequest accepts either coordinates or notation ("e2e3").
type moveRequest struct {
	From *board.Pos `json:"from"`
	To   *board.Pos `json:"to"`
	Move string     `json:"move"`
}

func (m moveRequest) step() (board.Step, error) {
	if m.Move != "" {
		step, err := board.ParseStep(m.Move)
		if err != nil {
			return board.Step{}, rules.Errorf(rules.KindInvalidPayload, err.Error())
		}
		return step, nil
	}
	if m.From == nil || m.To == nil {
		return board.Step{}, rules.Errorf(rules.KindInvalidPayload, "from and to are required")
	}
	if !m.From.Inside() || !m.To.Inside() {
		return board.Step{}, rules.Errorf(rules.KindInvalidPayload, "position off the board")
	}
	return board.Step{From: *m.From, To: *m.To}, nil
}

func (s *Server) handlePlayMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !s.decode(w, r, &req) {
		return
	}
	step, err := req.step()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	st, _, err := s.svc.PlayMove(r.Context(), chi.URLParam(r, "id"), step)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleChangeDifficulty(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Difficulty rules.Difficulty `json:"difficulty"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	st, err := s.svc.ChangeDifficulty(r.Context(), chi.URLParam(r, "id"), req.Difficulty)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleBoardPNG(w http.ResponseWriter, r *http.Request) {
	size := 0
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, r, rules.Errorf(rules.KindInvalidPayload, "size must be a positive integer"))
			return
		}
		size = n
	}
	st, err := s.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	img, err := render.Image(&st.Board, size, render.OptionsFor(st))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("render board: %w", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := png.Encode(w, img); err != nil {
		loggerFrom(r, s.logger).Warn().Err(err).Str("ev", "write_error").Msg("png write failed")
	}
}

func (s *Server) handleBoardSVG(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(render.SVG(&st.Board, render.OptionsFor(st)))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	l := loggerFrom(r, s.logger).With().Str("ns", "ws").Str("game", id).Logger()

	// Subscribe before loading so no change between the two is missed.
	client := s.hub.Register(id)
	st, err := s.svc.Get(r.Context(), id)
	if err != nil {
		s.hub.Unregister(client)
		s.writeError(w, r, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.hub.Unregister(client)
		l.Debug().Err(err).Str("ev", "upgrade_error").Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(4096)
	l.Info().Str("ev", "connect").Msg("subscriber connected")

	if data, err := encodeMessage(msgState, st); err == nil {
		client.trySend(data)
	}

	go func() {
		defer conn.Close()
		if err := writeWithHeartbeat(conn, client.send, s.pingInterval); err != nil {
			l.Debug().Err(err).Str("ev", "write_error").Msg("websocket write failed")
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			s.hub.Unregister(client)
			l.Info().Str("ev", "disconnect").Msg("subscriber left")
			return
		}
		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case msgRequestState:
			s.sendState(r.Context(), client, id)
		}
	}
}

func (s *Server) sendState(ctx context.Context, client *Client, id string) {
	typ, payload := msgState, any(nil)
	st, err := s.svc.Get(ctx, id)
	if err != nil {
		typ, payload = msgError, errorResponse{Error: string(rules.KindOf(err))}
	} else {
		payload = st
	}
	if data, err := encodeMessage(typ, payload); err == nil {
		client.trySend(data)
	}
}

// decode reads a JSON body into v, reporting invalid_payload on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, r, rules.Errorf(rules.KindInvalidPayload, err.Error()))
		return false
	}
	return true
}
