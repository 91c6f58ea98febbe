package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hailam/tablutplay/internal/board"
	"github.com/hailam/tablutplay/internal/engine"
	"github.com/hailam/tablutplay/internal/rules"
	"github.com/hailam/tablutplay/internal/storage"
)

// firstMove plays the first legal move.
type firstMove struct{}

func (firstMove) PickMove(st *rules.State, _ int, botSide board.Side) (rules.Move, error) {
	if st.SideToMove != botSide {
		return rules.Move{}, rules.ErrBotNotOnTurn
	}
	if len(st.LegalMoves) == 0 {
		return rules.Move{}, rules.ErrBotNoLegalMoves
	}
	return st.LegalMoves[0], nil
}

// stuck always reports that nothing can be played.
type stuck struct{}

func (stuck) PickMove(*rules.State, int, board.Side) (rules.Move, error) {
	return rules.Move{}, rules.ErrBotNoLegalMoves
}

type failing struct{}

func (failing) PickMove(*rules.State, int, board.Side) (rules.Move, error) {
	return rules.Move{}, errors.New("boom")
}

func mustStep(t *testing.T, s string) board.Step {
	t.Helper()
	st, err := board.ParseStep(s)
	require.NoError(t, err)
	return st
}

func fromFEN(t *testing.T, id, fen string, toMove, human board.Side) *rules.State {
	t.Helper()
	b, err := board.ParseFEN(fen)
	require.NoError(t, err)
	return rules.NewStateFromBoard(id, b, toMove, true, rules.Easy, human)
}

func TestHumanMoveThenBotReply(t *testing.T) {
	o := NewOrchestrator(firstMove{})
	st := rules.NewState("g", rules.Easy, board.Attacker)

	next, eff, err := o.HumanMove(st, mustStep(t, "d1d3"))
	require.NoError(t, err)

	require.Equal(t, 2, next.Version)
	require.Len(t, next.MoveHistory, 2)
	require.Equal(t, board.Attacker, next.SideToMove)
	require.Len(t, eff.Moves, 2)
	require.Equal(t, board.Attacker, eff.Moves[0].Side)
	require.Equal(t, board.Defender, eff.Moves[1].Side)
	require.Empty(t, eff.Notes)

	// The input state is untouched.
	require.Equal(t, 0, st.Version)
	require.Empty(t, st.MoveHistory)
}

func TestHumanMovePreconditions(t *testing.T) {
	o := NewOrchestrator(firstMove{})

	st := rules.NewState("g", rules.Easy, board.Defender)
	_, _, err := o.HumanMove(st, mustStep(t, "e3f3"))
	require.ErrorIs(t, err, rules.ErrInvalidTurn)

	over := fromFEN(t, "g", "K8/9/9/9/9/9/9/9/8A", board.Attacker, board.Attacker)
	_, _, err = o.HumanMove(over, mustStep(t, "i9i8"))
	require.ErrorIs(t, err, rules.ErrGameOver)

	st = rules.NewState("g", rules.Easy, board.Attacker)
	_, _, err = o.HumanMove(st, mustStep(t, "e2e3"))
	require.ErrorIs(t, err, rules.ErrIllegalMove)
}

func TestWinningHumanMoveEndsTurn(t *testing.T) {
	o := NewOrchestrator(failing{})
	st := fromFEN(t, "g", "9/9/2K6/9/9/9/9/9/8A", board.Defender, board.Defender)

	next, eff, err := o.HumanMove(st, mustStep(t, "c3c1"))
	require.NoError(t, err)
	require.True(t, next.IsOver())
	require.Equal(t, board.Defender, next.Winner)
	require.Equal(t, 1, next.Version)
	require.Len(t, eff.Moves, 1)
}

func TestBotTurnPassesWhenBlocked(t *testing.T) {
	o := NewOrchestrator(failing{})
	st := fromFEN(t, "g", "AD7/D8/9/9/9/9/6K2/9/9", board.Attacker, board.Defender)
	require.Empty(t, st.LegalMoves)

	next, eff, err := o.BotTurn(st)
	require.NoError(t, err)
	require.Equal(t, board.Defender, next.SideToMove)
	require.Equal(t, 1, next.Version)
	require.Equal(t, []string{"The attacker has no legal moves."}, eff.Notes)
	require.Empty(t, eff.Moves)
	require.Equal(t, 1, next.PositionCounts[next.Hash()])
	require.NotEmpty(t, next.LegalMoves)
	require.Equal(t, rules.GenerateLegalMoves(next, board.Defender), next.LegalMoves)
}

func TestBotTurnPassesWhenPickerFindsNothing(t *testing.T) {
	o := NewOrchestrator(stuck{})
	st := rules.NewState("g", rules.Easy, board.Defender)

	next, eff, err := o.BotTurn(st)
	require.NoError(t, err)
	require.Equal(t, board.Defender, next.SideToMove)
	require.Equal(t, []string{NoLegalMovesNote(board.Attacker)}, eff.Notes)
}

func TestBotTurnErrors(t *testing.T) {
	o := NewOrchestrator(failing{})
	st := rules.NewState("g", rules.Easy, board.Defender)
	_, _, err := o.BotTurn(st)
	require.Error(t, err)

	// Not the bot's turn: nothing happens.
	st = rules.NewState("g", rules.Easy, board.Attacker)
	next, eff, err := o.BotTurn(st)
	require.NoError(t, err)
	require.Same(t, st, next)
	require.Empty(t, eff.Moves)
}

func TestBotTurnWithEngine(t *testing.T) {
	o := NewOrchestrator(engine.NewSeededEngine(3))
	st := rules.NewState("g", rules.Easy, board.Defender)

	next, eff, err := o.BotTurn(st)
	require.NoError(t, err)
	require.Len(t, eff.Moves, 1)
	require.Equal(t, board.Attacker, eff.Moves[0].Side)
	require.Equal(t, board.Defender, next.SideToMove)
	require.Equal(t, 1, next.Version)
}

func TestChangeDifficulty(t *testing.T) {
	o := NewOrchestrator(firstMove{})
	st := rules.NewState("g", rules.Hard, board.Defender)

	next, err := o.ChangeDifficulty(st, rules.Easy)
	require.NoError(t, err)
	require.Equal(t, rules.Easy, next.Difficulty)
	require.Equal(t, 1, next.Version)
	require.Equal(t, rules.Hard, st.Difficulty)

	_, err = o.ChangeDifficulty(st, rules.Difficulty(3))
	require.ErrorIs(t, err, rules.ErrInvalidPayload)

	over := fromFEN(t, "g", "K8/9/9/9/9/9/9/9/8A", board.Attacker, board.Attacker)
	_, err = o.ChangeDifficulty(over, rules.Easy)
	require.ErrorIs(t, err, rules.ErrGameOver)
}

// recorder keeps every event it receives.
type recorder struct {
	mu     sync.Mutex
	events []string
	moves  []MoveEvent
	over   []board.Side
}

func (r *recorder) add(ev string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) State(*rules.State) { r.add("state") }

func (r *recorder) MoveResult(_ string, ev MoveEvent) {
	r.add("move")
	r.mu.Lock()
	r.moves = append(r.moves, ev)
	r.mu.Unlock()
}

func (r *recorder) TurnNote(string, string) { r.add("note") }

func (r *recorder) GameOver(_ string, w board.Side) {
	r.add("over")
	r.mu.Lock()
	r.over = append(r.over, w)
	r.mu.Unlock()
}

func (r *recorder) BotThinking(_ string, active bool) {
	if active {
		r.add("thinking")
	} else {
		r.add("idle")
	}
}

func newService(t *testing.T, picker MovePicker) (*Service, *storage.Storage, *recorder) {
	t.Helper()
	store, err := storage.Open(storage.Options{InMemory: true, GameTTL: time.Hour})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	rec := &recorder{}
	return NewService(store, picker, WithEvents(rec)), store, rec
}

func TestServiceNewGameBotOpens(t *testing.T) {
	ctx := context.Background()
	svc, store, rec := newService(t, firstMove{})

	st, err := svc.NewGame(ctx, NewGameRequest{HumanSide: board.Defender})
	require.NoError(t, err)
	require.NotEmpty(t, st.ID)
	require.Equal(t, rules.DefaultDifficulty, st.Difficulty)
	require.Equal(t, 1, st.Version)
	require.Len(t, st.MoveHistory, 1)
	require.Equal(t, board.Defender, st.SideToMove)

	stored, err := store.LoadGame(ctx, st.ID)
	require.NoError(t, err)
	require.Equal(t, st, stored)

	require.Equal(t, []string{"state", "thinking", "move", "state", "idle"}, rec.events)
}

func TestServiceNewGameHumanOpens(t *testing.T) {
	ctx := context.Background()
	svc, _, rec := newService(t, firstMove{})

	st, err := svc.NewGame(ctx, NewGameRequest{GameID: "mine", Difficulty: rules.Easy, HumanSide: board.Attacker})
	require.NoError(t, err)
	require.Equal(t, "mine", st.ID)
	require.Equal(t, 0, st.Version)
	require.Equal(t, []string{"state"}, rec.events)

	// Same id again collides with the stored snapshot.
	_, err = svc.NewGame(ctx, NewGameRequest{GameID: "mine", HumanSide: board.Attacker})
	require.ErrorIs(t, err, rules.ErrVersionConflict)

	_, err = svc.NewGame(ctx, NewGameRequest{HumanSide: board.NoSide})
	require.ErrorIs(t, err, rules.ErrInvalidPayload)
	_, err = svc.NewGame(ctx, NewGameRequest{HumanSide: board.Attacker, Difficulty: 5})
	require.ErrorIs(t, err, rules.ErrInvalidPayload)
}

func TestServicePlayMove(t *testing.T) {
	ctx := context.Background()
	svc, store, rec := newService(t, firstMove{})

	st, err := svc.NewGame(ctx, NewGameRequest{GameID: "p", HumanSide: board.Attacker})
	require.NoError(t, err)

	next, eff, err := svc.PlayMove(ctx, st.ID, mustStep(t, "d1d3"))
	require.NoError(t, err)
	require.Equal(t, 2, next.Version)
	require.Len(t, eff.Moves, 2)

	stored, err := store.LoadGame(ctx, "p")
	require.NoError(t, err)
	require.Equal(t, 2, stored.Version)
	require.Len(t, stored.MoveHistory, 2)

	require.Equal(t, []string{"state", "move", "move", "state"}, rec.events)

	// Rejected moves leave the stored game alone.
	_, _, err = svc.PlayMove(ctx, "p", mustStep(t, "d1d3"))
	require.ErrorIs(t, err, rules.ErrIllegalMove)
	stored, err = store.LoadGame(ctx, "p")
	require.NoError(t, err)
	require.Equal(t, 2, stored.Version)

	_, _, err = svc.PlayMove(ctx, "missing", mustStep(t, "d1d3"))
	require.ErrorIs(t, err, rules.ErrGameNotFound)
}

func TestServiceRecordsResult(t *testing.T) {
	ctx := context.Background()
	svc, store, rec := newService(t, failing{})

	st := fromFEN(t, "end", "9/9/2K6/9/9/9/9/9/8A", board.Defender, board.Defender)
	require.NoError(t, store.SaveGame(ctx, st))

	next, _, err := svc.PlayMove(ctx, "end", mustStep(t, "c3c1"))
	require.NoError(t, err)
	require.True(t, next.IsOver())
	require.Equal(t, []board.Side{board.Defender}, rec.over)

	stats, err := store.LoadStats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.GamesPlayed)
	require.Equal(t, 1, stats.HumanWins)
	require.Equal(t, 1, stats.DefenderWins)

	_, _, err = svc.PlayMove(ctx, "end", mustStep(t, "i9i8"))
	require.ErrorIs(t, err, rules.ErrGameOver)

	_, err = svc.ChangeDifficulty(ctx, "end", rules.Hard)
	require.ErrorIs(t, err, rules.ErrGameOver)
}

func TestServiceChangeDifficulty(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t, firstMove{})

	st, err := svc.NewGame(ctx, NewGameRequest{GameID: "d", HumanSide: board.Attacker})
	require.NoError(t, err)

	next, err := svc.ChangeDifficulty(ctx, st.ID, rules.Easy)
	require.NoError(t, err)
	require.Equal(t, rules.Easy, next.Difficulty)

	got, err := svc.Get(ctx, st.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.Version)
	require.Equal(t, rules.Easy, got.Difficulty)
}

func TestServiceSerializesTurns(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(t, firstMove{})

	_, err := svc.NewGame(ctx, NewGameRequest{GameID: "race", HumanSide: board.Attacker})
	require.NoError(t, err)

	step := mustStep(t, "d1d3")
	const players = 4
	errs := make([]error, players)
	var wg sync.WaitGroup
	for i := range players {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, errs[i] = svc.PlayMove(ctx, "race", step)
		}()
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, rules.ErrIllegalMove)
	}
	require.Equal(t, 1, ok)

	stored, err := store.LoadGame(ctx, "race")
	require.NoError(t, err)
	require.Equal(t, 2, stored.Version)
}

func TestServiceDelete(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(t, firstMove{})

	st, err := svc.NewGame(ctx, NewGameRequest{GameID: "d", HumanSide: board.Attacker})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, st.ID))
	_, err = store.LoadGame(ctx, st.ID)
	require.ErrorIs(t, err, rules.ErrGameNotFound)
	require.ErrorIs(t, svc.Delete(ctx, st.ID), rules.ErrGameNotFound)
}

func TestKeyedMutexForgetsKeys(t *testing.T) {
	var k keyedMutex
	unlock := k.lock("a")
	require.Len(t, k.locks, 1)
	unlock()
	require.Empty(t, k.locks)
}
