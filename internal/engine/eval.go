// Package engine implements the Tablut bot: static evaluation, candidate
// selection and a depth-bounded alpha-beta search.
package engine

import (
	"github.com/hailam/tablutplay/internal/board"
	"github.com/hailam/tablutplay/internal/rules"
)

// WinScore is the value of a decided game for the winner.
const WinScore = 1_000_000

// Attacker-side weights
const (
	attackerMaterial  = 40   // Per attacker on the board
	attackerKingNear  = -60  // Per step the king is closer to an edge
	attackerKingThrt  = 45   // Per attacker next to the king
	attackerKingTaken = 8000 // King gone
)

// Defender-side weights
const (
	defenderMaterial = 55  // Per defender on the board
	defenderKingLive = 500 // King still on the board
	defenderKingNear = 85  // Per step the king is closer to an edge
	defenderKingThrt = -40 // Per attacker next to the king
)

// maxEdgeDistance bounds the "closeness" terms; no cell is further than this
// from an edge on a 9x9 board.
const maxEdgeDistance = 8

// Evaluate returns the static score of st from botSide's point of view.
// Higher is better for botSide. Decided games score WinScore or -WinScore.
func Evaluate(st *rules.State, botSide board.Side) float64 {
	if st.IsOver() && st.Winner != board.NoSide {
		if st.Winner == botSide {
			return WinScore
		}
		return -WinScore
	}

	c := st.Board.Count()
	near := maxEdgeDistance - rules.KingDistanceToEdge(&st.Board)
	threat := rules.KingAdjacentAttackers(&st.Board)

	attacker := c.Attackers*attackerMaterial +
		near*attackerKingNear +
		threat*attackerKingThrt +
		(1-c.King)*attackerKingTaken

	defender := c.Defenders*defenderMaterial +
		c.King*defenderKingLive +
		near*defenderKingNear +
		threat*defenderKingThrt

	raw := float64(attacker - defender)
	if botSide == board.Attacker {
		return raw
	}
	return -raw
}
