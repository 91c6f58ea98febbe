package rules

import (
	"fmt"

	"github.com/hailam/tablutplay/internal/board"
)

// ApplyMode selects how much work Apply does after a move lands.
type ApplyMode int

const (
	// RegenerateLegal also enumerates the legal moves of the next side.
	RegenerateLegal ApplyMode = iota
	// ResultOnly computes the resulting position, captures and winner only.
	// The returned state carries an empty legal-move set.
	ResultOnly
)

// hasRookPath reports whether a piece can slide from -> to: a shared line,
// every cell strictly between empty and not the throne, and an empty
// non-throne destination.
func hasRookPath(b *board.Board, step board.Step) bool {
	if !step.SharesLine() || !step.From.Inside() || !step.To.Inside() {
		return false
	}
	d := step.Direction()
	for cur := step.From.Add(d); cur != step.To; cur = cur.Add(d) {
		if cur.IsThrone() || !b.IsEmpty(cur) {
			return false
		}
	}
	return !step.To.IsThrone() && b.IsEmpty(step.To)
}

// Apply plays step for side without consulting the cached legal-move set.
// It validates ownership and path, resolves captures, detects a winner and
// enforces the repetition rule. The input state is never modified.
//
// An attacker move that recreates a position already seen twice returns the
// input state unchanged with IllegalByRepetition set and a nil error.
func Apply(st *State, step board.Step, side board.Side, mode ApplyMode) (Outcome, error) {
	piece := st.Board.At(step.From)
	if piece == board.NoPiece {
		return Outcome{}, Errorf(KindEmptySource, step.From.String())
	}
	if piece.Side() != side {
		return Outcome{}, Errorf(KindPieceNotOwned, fmt.Sprintf("%s holds a %s piece", step.From, piece.Side()))
	}
	if !hasRookPath(&st.Board, step) {
		return Outcome{}, Errorf(KindInvalidPath, step.String())
	}

	next := st.Clone()
	next.Board.Set(step.From, board.NoPiece)
	next.Board.Set(step.To, piece)
	if piece == board.King && step.From.IsThrone() {
		next.KingHasLeftThrone = true
	}

	captured := resolveCaptures(&next.Board, step.To, side, next.KingHasLeftThrone)
	for _, c := range captured {
		next.Board.Set(c.Pos, board.NoPiece)
	}

	winner := DetectWinner(&next.Board)
	next.Winner = winner
	if winner != board.NoSide {
		next.Phase = GameOver
		next.LegalMoves = []Move{}
		return Outcome{State: next, Captured: captured, Winner: winner}, nil
	}

	next.Phase = InProgress
	next.SideToMove = side.Other()

	hash := next.Hash()
	count := next.PositionCounts[hash]
	if side == board.Attacker && count >= 2 {
		return Outcome{State: st, Captured: []Capture{}, Winner: board.NoSide, IllegalByRepetition: true}, nil
	}
	next.PositionCounts[hash] = count + 1

	if mode == RegenerateLegal {
		next.LegalMoves = GenerateLegalMoves(next, next.SideToMove)
	} else {
		next.LegalMoves = []Move{}
	}
	return Outcome{State: next, Captured: captured, Winner: board.NoSide}, nil
}

// Commit plays a move submitted by a player. The step must match an entry of
// the cached legal-move set exactly. A rejected step is classified as a
// repetition violation when that is the only thing wrong with it, and as
// illegal_move otherwise.
//
// On success the move is appended to the history and the legal moves of the
// next side are regenerated (or cleared if the game ended).
func Commit(st *State, side board.Side, step board.Step) (Outcome, error) {
	if st.IsOver() {
		return Outcome{}, ErrGameOver
	}
	if st.SideToMove != side {
		return Outcome{}, Errorf(KindInvalidTurn, fmt.Sprintf("%s to move", st.SideToMove))
	}

	if _, ok := st.FindLegal(step); !ok {
		probe, err := Apply(st, step, side, ResultOnly)
		if err == nil && probe.IllegalByRepetition {
			return Outcome{}, Errorf(KindMustBreakRepetition, step.String())
		}
		return Outcome{}, Errorf(KindIllegalMove, step.String())
	}

	out, err := Apply(st, step, side, RegenerateLegal)
	if err != nil {
		return Outcome{}, err
	}
	if out.IllegalByRepetition {
		return Outcome{}, Errorf(KindMustBreakRepetition, step.String())
	}

	positions := make([]board.Pos, len(out.Captured))
	pieces := make([]board.Piece, len(out.Captured))
	for i, c := range out.Captured {
		positions[i] = c.Pos
		pieces[i] = c.Piece
	}
	out.State.MoveHistory = append(out.State.MoveHistory, MoveRecord{
		Turn:           len(out.State.MoveHistory) + 1,
		Side:           side,
		From:           step.From,
		To:             step.To,
		Captures:       positions,
		CapturedPieces: pieces,
	})
	return out, nil
}

// PassTurn hands the move to the other side without moving a piece. The
// resulting position is counted for repetition and the legal moves of the
// new side generated. Used when the side to move is fully blocked.
func PassTurn(st *State) *State {
	next := st.Clone()
	next.SideToMove = st.SideToMove.Other()
	next.PositionCounts[next.Hash()]++
	next.LegalMoves = GenerateLegalMoves(next, next.SideToMove)
	return next
}
