package rules

import (
	"strings"

	"github.com/hailam/tablutplay/internal/board"
)

// PositionHash returns the canonical repetition key
// "<81 glyphs>|<side>|<0 or 1>": board contents, side to move and whether the
// king has ever left the throne. Two states share a key iff they are
// equivalent for repetition purposes.
func PositionHash(b *board.Board, sideToMove board.Side, kingHasLeftThrone bool) string {
	var sb strings.Builder
	sb.Grow(board.NumCells + 12)
	sb.WriteString(b.Glyphs())
	sb.WriteByte('|')
	sb.WriteString(sideToMove.String())
	sb.WriteByte('|')
	if kingHasLeftThrone {
		sb.WriteByte('1')
	} else {
		sb.WriteByte('0')
	}
	return sb.String()
}
