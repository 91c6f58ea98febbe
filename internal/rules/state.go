package rules

import (
	"fmt"
	"maps"
	"slices"

	"github.com/hailam/tablutplay/internal/board"
)

// NewState creates a game in the starting position. The attackers always move
// first, whichever side the human plays.
func NewState(id string, difficulty Difficulty, humanSide board.Side) *State {
	return NewStateFromBoard(id, board.NewBoard(), board.Attacker, false, difficulty, humanSide)
}

// ValidateSetup checks that b with the given king history could arise in a
// game: at most one king, and a king still on the throne exactly when it has
// never left.
func ValidateSetup(b *board.Board, kingHasLeftThrone bool) error {
	if err := b.Validate(); err != nil {
		return Errorf(KindInvalidPayload, err.Error())
	}
	king, ok := b.FindKing()
	if !ok {
		return nil
	}
	if king.IsThrone() == kingHasLeftThrone {
		return Errorf(KindInvalidPayload, fmt.Sprintf("king on %s does not match king-left flag %t", king, kingHasLeftThrone))
	}
	return nil
}

// NewStateFromBoard creates a game from an arbitrary board, side to move and
// king history. The position is counted once and the legal moves generated.
// If the board is already decided (no king, or king on the edge) the state is
// created over.
func NewStateFromBoard(id string, b board.Board, sideToMove board.Side, kingHasLeftThrone bool, difficulty Difficulty, humanSide board.Side) *State {
	if !difficulty.Valid() {
		difficulty = DefaultDifficulty
	}
	botSide := humanSide.Other()

	st := &State{
		ID:                id,
		Version:           0,
		Phase:             InProgress,
		SideToMove:        sideToMove,
		Board:             b,
		KingHasLeftThrone: kingHasLeftThrone,
		HumanSide:         humanSide,
		BotSide:           botSide,
		Players: Players{
			Attacker: PlayerBinding{Side: board.Attacker, IsHuman: humanSide == board.Attacker},
			Defender: PlayerBinding{Side: board.Defender, IsHuman: humanSide == board.Defender},
		},
		Winner:         board.NoSide,
		Difficulty:     difficulty,
		LegalMoves:     []Move{},
		MoveHistory:    []MoveRecord{},
		PositionCounts: make(map[string]int),
	}

	if winner := DetectWinner(&st.Board); winner != board.NoSide {
		st.Phase = GameOver
		st.Winner = winner
		return st
	}

	st.PositionCounts[st.Hash()] = 1
	st.LegalMoves = GenerateLegalMoves(st, st.SideToMove)
	return st
}

// Clone returns a deep copy of the state. Every transition clones before it
// changes anything, so search branches and committed play never alias.
func (s *State) Clone() *State {
	next := *s
	next.LegalMoves = slices.Clone(s.LegalMoves)
	next.MoveHistory = slices.Clone(s.MoveHistory)
	next.PositionCounts = maps.Clone(s.PositionCounts)
	if next.PositionCounts == nil {
		next.PositionCounts = make(map[string]int)
	}
	if next.LegalMoves == nil {
		next.LegalMoves = []Move{}
	}
	if next.MoveHistory == nil {
		next.MoveHistory = []MoveRecord{}
	}
	return &next
}
