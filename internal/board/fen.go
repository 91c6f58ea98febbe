package board

import (
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the compact encoding of the starting position: nine rows from
// the top separated by '/', digits for runs of empty cells.
const StartFEN = "3AAA3/4A4/4D4/A3D3A/AADDKDDAA/A3D3A/4D4/4A4/3AAA3"

// ParseFEN parses the compact row encoding into a Board.
func ParseFEN(fen string) (Board, error) {
	var b Board

	rows := strings.Split(strings.TrimSpace(fen), "/")
	if len(rows) != Size {
		return b, fmt.Errorf("invalid board: need %d rows, got %d", Size, len(rows))
	}

	for row, rowStr := range rows {
		col := 0
		for i := 0; i < len(rowStr); i++ {
			c := rowStr[i]
			if col >= Size {
				return b, fmt.Errorf("too many cells in row %d", row+1)
			}

			if c >= '1' && c <= '9' {
				col += int(c - '0')
				continue
			}

			piece, ok := PieceFromGlyph(c)
			if !ok {
				return b, fmt.Errorf("invalid piece character: %c", c)
			}
			b.Set(NewPos(row, col), piece)
			col++
		}

		if col != Size {
			return b, fmt.Errorf("invalid number of cells in row %d: got %d", row+1, col)
		}
	}

	return b, b.Validate()
}

// FEN returns the compact row encoding of the board.
func (b *Board) FEN() string {
	var sb strings.Builder

	for row := 0; row < Size; row++ {
		empty := 0
		for col := 0; col < Size; col++ {
			piece := b.At(NewPos(row, col))
			if piece == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteByte(piece.Glyph())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if row < Size-1 {
			sb.WriteByte('/')
		}
	}

	return sb.String()
}

// Parse accepts either the compact row encoding or the 81-glyph encoding.
func Parse(s string) (Board, error) {
	if strings.Contains(s, "/") {
		return ParseFEN(s)
	}
	return ParseGlyphs(s)
}
