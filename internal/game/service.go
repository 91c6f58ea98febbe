package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hailam/tablutplay/internal/board"
	"github.com/hailam/tablutplay/internal/rules"
	"github.com/hailam/tablutplay/internal/storage"
)

// Store persists game snapshots. *storage.Storage implements it.
type Store interface {
	LoadGame(ctx context.Context, id string) (*rules.State, error)
	SaveGame(ctx context.Context, st *rules.State) error
	DeleteGame(ctx context.Context, id string) error
	RecordResult(ctx context.Context, r storage.Result) error
}

// Events receives notifications after every accepted change. Calls happen
// after the change has been saved, in the order the changes occurred.
type Events interface {
	State(st *rules.State)
	MoveResult(gameID string, ev MoveEvent)
	TurnNote(gameID, message string)
	GameOver(gameID string, winner board.Side)
	BotThinking(gameID string, active bool)
}

// NopEvents discards every event.
type NopEvents struct{}

func (NopEvents) State(*rules.State) {}
func (NopEvents) MoveResult(string, MoveEvent) {}
func (NopEvents) TurnNote(string, string) {}
func (NopEvents) GameOver(string, board.Side) {}
func (NopEvents) BotThinking(string, bool) {}

// NewGameRequest holds the parameters of a new game.
type NewGameRequest struct {
	GameID     string           `json:"gameId,omitempty"`
	Difficulty rules.Difficulty `json:"difficulty,omitempty"`
	HumanSide  board.Side       `json:"humanSide"`
}

// Service runs the load, compute, save cycle for every game operation. Calls
// for the same game are serialized in-process; the store's versioning
// catches writers in other processes.
type Service struct {
	store  Store
	orch   *Orchestrator
	events Events
	logger zerolog.Logger

	defaultDifficulty rules.Difficulty

	locks keyedMutex
}

// Option configures a Service.
type Option func(*Service)

// WithEvents sets the event sink.
func WithEvents(ev Events) Option {
	return func(s *Service) { s.events = ev }
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithDefaultDifficulty sets the depth used when a new game asks for none.
func WithDefaultDifficulty(d rules.Difficulty) Option {
	return func(s *Service) {
		if d.Valid() {
			s.defaultDifficulty = d
		}
	}
}

// NewService creates a service over store using picker for bot moves.
func NewService(store Store, picker MovePicker, opts ...Option) *Service {
	s := &Service{
		store:             store,
		orch:              NewOrchestrator(picker),
		events:            NopEvents{},
		logger:            log.Logger,
		defaultDifficulty: rules.DefaultDifficulty,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("ns", "game").Logger()
	return s
}

// Get returns the current state of a game.
func (s *Service) Get(ctx context.Context, id string) (*rules.State, error) {
	return s.store.LoadGame(ctx, id)
}

// Delete removes a game. Unknown or expired ids fail with game_not_found.
func (s *Service) Delete(ctx context.Context, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()

	if _, err := s.store.LoadGame(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteGame(ctx, id); err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	s.logger.Info().Str("ev", "game_deleted").Str("game", id).Msg("game deleted")
	return nil
}

// NewGame creates and saves a game. When the bot plays the attackers its
// opening move is played and saved before returning.
func (s *Service) NewGame(ctx context.Context, req NewGameRequest) (*rules.State, error) {
	if req.HumanSide != board.Attacker && req.HumanSide != board.Defender {
		return nil, rules.Errorf(rules.KindInvalidPayload, "humanSide must be ATTACKER or DEFENDER")
	}
	difficulty := req.Difficulty
	if difficulty == 0 {
		difficulty = s.defaultDifficulty
	}
	if !difficulty.Valid() {
		return nil, rules.Errorf(rules.KindInvalidPayload, fmt.Sprintf("difficulty %d", difficulty))
	}

	id := req.GameID
	if id == "" {
		id = uuid.NewString()
	}

	unlock := s.locks.lock(id)
	defer unlock()

	st := rules.NewState(id, difficulty, req.HumanSide)
	if err := s.store.SaveGame(ctx, st); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("ev", "game_new").
		Str("game", id).
		Int("difficulty", int(difficulty)).
		Str("humanSide", req.HumanSide.String()).
		Msg("game created")
	s.events.State(st)

	if st.IsOver() || st.SideToMove != st.BotSide {
		return st, nil
	}

	s.events.BotThinking(id, true)
	defer s.events.BotThinking(id, false)

	next, eff, err := s.orch.BotTurn(st)
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, next, eff); err != nil {
		return nil, err
	}
	return next, nil
}

// PlayMove applies the human move and the bot reply as one saved turn.
func (s *Service) PlayMove(ctx context.Context, id string, step board.Step) (*rules.State, Effects, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	st, err := s.store.LoadGame(ctx, id)
	if err != nil {
		return nil, Effects{}, err
	}

	s.logger.Debug().
		Str("ev", "move_play").
		Str("game", id).
		Str("move", step.String()).
		Msg("human move received")

	next, eff, err := s.orch.HumanMove(st, step)
	if err != nil {
		s.logger.Debug().Err(err).Str("ev", "move_rejected").Str("game", id).Msg("move rejected")
		return nil, Effects{}, err
	}
	if err := s.commit(ctx, next, eff); err != nil {
		return nil, Effects{}, err
	}
	return next, eff, nil
}

// ChangeDifficulty sets the bot search depth of a game in progress.
func (s *Service) ChangeDifficulty(ctx context.Context, id string, d rules.Difficulty) (*rules.State, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	st, err := s.store.LoadGame(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := s.orch.ChangeDifficulty(st, d)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveGame(ctx, next); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("ev", "game_change_difficulty").
		Str("game", id).
		Int("difficulty", int(d)).
		Msg("difficulty changed")
	s.events.State(next)
	return next, nil
}

// commit saves next, then logs and publishes what happened. A finished game
// has its result recorded.
func (s *Service) commit(ctx context.Context, next *rules.State, eff Effects) error {
	if err := s.store.SaveGame(ctx, next); err != nil {
		return err
	}

	turn := len(next.MoveHistory) - len(eff.Moves)
	for i, mv := range eff.Moves {
		s.logger.Info().
			Str("ev", "move_play").
			Str("game", next.ID).
			Int("turn", turn+i+1).
			Str("side", mv.Side.String()).
			Bool("isHuman", next.Players.Of(mv.Side).IsHuman).
			Str("from", mv.From.String()).
			Str("to", mv.To.String()).
			Int("captures", len(mv.Captures)).
			Msg("move applied")
		s.events.MoveResult(next.ID, mv)
	}
	for _, note := range eff.Notes {
		s.logger.Info().Str("ev", "turn_note").Str("game", next.ID).Msg(note)
		s.events.TurnNote(next.ID, note)
	}
	s.events.State(next)

	if next.IsOver() && next.Winner != board.NoSide {
		s.recordResult(ctx, next)
		s.events.GameOver(next.ID, next.Winner)
	}
	return nil
}

func (s *Service) recordResult(ctx context.Context, st *rules.State) {
	r := storage.Result{
		GameID:     st.ID,
		Winner:     st.Winner,
		MoveCount:  len(st.MoveHistory),
		Players:    st.Players,
		Difficulty: st.Difficulty,
		FinishedAt: time.Now(),
	}
	if err := s.store.RecordResult(ctx, r); err != nil {
		// The game itself is saved; a lost result only skews the stats.
		s.logger.Warn().Err(err).Str("ev", "record_result_error").Str("game", st.ID).Msg("result not recorded")
		return
	}
	s.logger.Info().
		Str("ev", "game_over").
		Str("game", st.ID).
		Str("winner", st.Winner.String()).
		Int("moves", r.MoveCount).
		Msg("game finished")
}

// keyedMutex hands out one mutex per key and forgets it once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
