package engine

import (
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"

	"github.com/hailam/tablutplay/internal/board"
	"github.com/hailam/tablutplay/internal/rules"
)

// SearchInfo contains information about a finished search.
type SearchInfo struct {
	Side       board.Side
	Depth      int
	Score      float64
	Nodes      uint64
	Time       time.Duration
	Candidates int
	Tied       int
	Move       rules.Move
}

// Engine is the Tablut bot. Searches for different games may run
// concurrently; only the tie-break draw is serialized.
type Engine struct {
	mu      sync.Mutex
	rng     *rand.Rand
	threads int

	logger zerolog.Logger

	// Callbacks
	OnInfo func(SearchInfo)
}

// NewEngine creates an engine drawing tie-breaks from src.
func NewEngine(src rand.Source) *Engine {
	return &Engine{
		rng:     rand.New(src),
		threads: 1,
		logger:  log.With().Str("ns", "engine").Logger(),
	}
}

// NewSeededEngine creates an engine with a fixed tie-break seed.
func NewSeededEngine(seed uint64) *Engine {
	return NewEngine(rand.NewSource(seed))
}

// NewRandomEngine creates an engine seeded from the clock.
func NewRandomEngine() *Engine {
	return NewSeededEngine(uint64(time.Now().UnixNano()))
}

// SetLogger replaces the engine logger.
func (e *Engine) SetLogger(l zerolog.Logger) {
	e.logger = l
}

// SetThreads sets how many workers score root candidates. Values below 1
// mean a single-threaded search.
func (e *Engine) SetThreads(n int) {
	e.threads = max(n, 1)
}

// PickMove searches st to the given depth for botSide and returns one of the
// best moves. Fails with bot_not_on_turn when botSide is not to move and
// bot_no_legal_moves when nothing can be played.
func (e *Engine) PickMove(st *rules.State, depth int, botSide board.Side) (rules.Move, error) {
	start := time.Now()
	res, nodes, err := SearchRootParallel(st, depth, botSide, e.threads)
	if err != nil {
		return rules.Move{}, err
	}

	e.mu.Lock()
	move := res.Best[e.rng.Intn(len(res.Best))]
	e.mu.Unlock()

	info := SearchInfo{
		Side:       botSide,
		Depth:      depth,
		Score:      res.Score,
		Nodes:      nodes,
		Time:       time.Since(start),
		Candidates: res.Candidates,
		Tied:       len(res.Best),
		Move:       move,
	}
	e.logger.Debug().
		Str("ev", "bot_move").
		Str("game", st.ID).
		Str("side", botSide.String()).
		Int("depth", depth).
		Float64("score", info.Score).
		Uint64("nodes", info.Nodes).
		Int("tied", info.Tied).
		Dur("took", info.Time).
		Str("move", move.String()).
		Msg("bot move selected")

	if e.OnInfo != nil {
		e.OnInfo(info)
	}
	return move, nil
}

// Evaluate returns the static evaluation of st for botSide.
func (e *Engine) Evaluate(st *rules.State, botSide board.Side) float64 {
	return Evaluate(st, botSide)
}

// ScoreToString converts a score to a human-readable string.
func ScoreToString(score float64) string {
	switch {
	case score >= WinScore:
		return "win"
	case score <= -WinScore:
		return "loss"
	default:
		return strconv.FormatFloat(score, 'f', 0, 64)
	}
}
