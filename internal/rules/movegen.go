package rules

import "github.com/hailam/tablutplay/internal/board"

// GenerateLegalMoves enumerates every move side can play from st. Each
// candidate slide is applied in ResultOnly mode to fill its capture preview
// and to drop attacker moves that would break the repetition rule.
func GenerateLegalMoves(st *State, side board.Side) []Move {
	if st.IsOver() {
		return []Move{}
	}

	moves := make([]Move, 0, 64)
	for i := range board.NumCells {
		piece := st.Board[i]
		if piece == board.NoPiece || piece.Side() != side {
			continue
		}
		from := board.PosFromIndex(i)

		for _, d := range board.Directions {
			for to := from.Add(d); to.Inside(); to = to.Add(d) {
				if to.IsThrone() || !st.Board.IsEmpty(to) {
					break
				}
				out, err := Apply(st, board.Step{From: from, To: to}, side, ResultOnly)
				if err != nil || out.IllegalByRepetition {
					continue
				}
				moves = append(moves, Move{From: from, To: to, CapturesPreview: out.CapturedPositions()})
			}
		}
	}
	return moves
}
