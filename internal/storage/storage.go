package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/hailam/tablutplay/internal/board"
	"github.com/hailam/tablutplay/internal/rules"
)

// Storage keys
const (
	gamePrefix   = "tablut:game:"
	resultPrefix = "tablut:result:"
	keyStats     = "tablut:stats"
)

// DefaultGameTTL is how long an untouched game snapshot is kept.
const DefaultGameTTL = 6 * time.Hour

// Options configures the store.
type Options struct {
	Dir      string          // Database directory (ignored when InMemory)
	InMemory bool            // Keep everything in memory
	GameTTL  time.Duration   // Snapshot time-to-live (0 = DefaultGameTTL)
	Logger   *zerolog.Logger // Receives badger's own log lines; nil silences them
}

// Result is a finished game.
type Result struct {
	GameID     string           `json:"game_id"`
	Winner     board.Side       `json:"winner"`
	MoveCount  int              `json:"move_count"`
	Players    rules.Players    `json:"players"`
	Difficulty rules.Difficulty `json:"difficulty"`
	FinishedAt time.Time        `json:"finished_at"`
}

// HumanWon returns true if the winning side was played by a human.
func (r Result) HumanWon() bool {
	return r.Players.Of(r.Winner).IsHuman
}

// GameStats aggregates every recorded result.
type GameStats struct {
	GamesPlayed  int            `json:"games_played"`
	AttackerWins int            `json:"attacker_wins"`
	DefenderWins int            `json:"defender_wins"`
	HumanWins    int            `json:"human_wins"`
	BotWins      int            `json:"bot_wins"`
	TotalMoves   int            `json:"total_moves"`
	WinsByDiff   map[string]int `json:"human_wins_by_difficulty"`
}

// NewGameStats returns empty game statistics
func NewGameStats() *GameStats {
	return &GameStats{
		WinsByDiff: make(map[string]int),
	}
}

// HumanWinRate returns the human win rate as a percentage (0-100)
func (s *GameStats) HumanWinRate() float64 {
	if s.GamesPlayed == 0 {
		return 0
	}
	return float64(s.HumanWins) / float64(s.GamesPlayed) * 100
}

// AverageMoves returns the mean game length in plies.
func (s *GameStats) AverageMoves() float64 {
	if s.GamesPlayed == 0 {
		return 0
	}
	return float64(s.TotalMoves) / float64(s.GamesPlayed)
}

func (s *GameStats) add(r Result) {
	s.GamesPlayed++
	s.TotalMoves += r.MoveCount

	switch r.Winner {
	case board.Attacker:
		s.AttackerWins++
	case board.Defender:
		s.DefenderWins++
	}

	if r.HumanWon() {
		s.HumanWins++
		s.WinsByDiff[difficultyKey(r.Difficulty)]++
	} else {
		s.BotWins++
	}
}

func difficultyKey(d rules.Difficulty) string {
	switch d {
	case rules.Easy:
		return "easy"
	case rules.Hard:
		return "hard"
	default:
		return fmt.Sprintf("depth-%d", d)
	}
}

// Storage wraps BadgerDB for game snapshots and results
type Storage struct {
	db  *badger.DB
	ttl time.Duration
}

// Open opens (or creates) the store.
func Open(opts Options) (*Storage, error) {
	bopts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = nil
	if opts.Logger != nil {
		bopts.Logger = badgerLogger{l: opts.Logger.With().Str("ns", "store").Logger()}
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	ttl := opts.GameTTL
	if ttl <= 0 {
		ttl = DefaultGameTTL
	}
	return &Storage{db: db, ttl: ttl}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping checks that the database answers a read transaction.
func (s *Storage) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return errors.New("storage closed")
	}
	return s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(keyStats))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

func gameKey(id string) []byte {
	return []byte(gamePrefix + id)
}

func resultKey(id string) []byte {
	return []byte(resultPrefix + id)
}

// LoadGame returns the stored snapshot of a game. Missing and expired games
// fail with game_not_found.
func (s *Storage) LoadGame(ctx context.Context, id string) (*rules.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var st rules.State
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(gameKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return rules.Errorf(rules.KindGameNotFound, "id="+id)
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &st)
		})
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// SaveGame writes a snapshot under optimistic concurrency: the first save of
// a game must carry version 0 and every later one a version strictly greater
// than the stored one. The snapshot expires after the configured TTL.
func (s *Storage) SaveGame(ctx context.Context, st *rules.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode game %s: %w", st.ID, err)
	}

	key := gameKey(st.ID)
	err = s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			if st.Version != 0 {
				return rules.Errorf(rules.KindFirstSaveNotVersion0, fmt.Sprintf("got=%d", st.Version))
			}
		case err != nil:
			return err
		default:
			var current struct {
				Version int `json:"version"`
			}
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &current)
			}); err != nil {
				return fmt.Errorf("decode stored game %s: %w", st.ID, err)
			}
			if st.Version <= current.Version {
				return rules.Errorf(rules.KindVersionConflict,
					fmt.Sprintf("expected_gt=%d, got=%d", current.Version, st.Version))
			}
		}

		return txn.SetEntry(badger.NewEntry(key, data).WithTTL(s.ttl))
	})
	if errors.Is(err, badger.ErrConflict) {
		return rules.Errorf(rules.KindConcurrentUpdate, "id="+st.ID)
	}
	return err
}

// DeleteGame removes a snapshot.
func (s *Storage) DeleteGame(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(gameKey(id))
	})
}

// LoadStats loads game statistics, returns empty stats if not found
func (s *Storage) LoadStats(ctx context.Context) (*GameStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stats := NewGameStats()
	err := s.db.View(func(txn *badger.Txn) error {
		return readStats(txn, stats)
	})
	return stats, err
}

func readStats(txn *badger.Txn, stats *GameStats) error {
	item, err := txn.Get([]byte(keyStats))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil // Use empty stats
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, stats)
	})
}

// RecordResult stores a finished game and folds it into the statistics.
// Recording the same game twice is a no-op.
func (s *Storage) RecordResult(ctx context.Context, r Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now()
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode result %s: %w", r.GameID, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(resultKey(r.GameID))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		stats := NewGameStats()
		if err := readStats(txn, stats); err != nil {
			return err
		}
		stats.add(r)
		statsData, err := json.Marshal(stats)
		if err != nil {
			return err
		}

		if err := txn.Set(resultKey(r.GameID), data); err != nil {
			return err
		}
		return txn.Set([]byte(keyStats), statsData)
	})
	if errors.Is(err, badger.ErrConflict) {
		return rules.Errorf(rules.KindConcurrentUpdate, "result id="+r.GameID)
	}
	return err
}

// LoadResult returns the recorded result of a game.
func (s *Storage) LoadResult(ctx context.Context, id string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var r Result
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(resultKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return rules.Errorf(rules.KindGameNotFound, "result id="+id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &r)
		})
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}
