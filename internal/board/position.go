package board

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Board maps every cell to its piece. The zero value is an empty board.
type Board [NumCells]Piece

// NewBoard creates the starting position.
func NewBoard() Board {
	b, _ := ParseFEN(StartFEN)
	return b
}

// At returns the piece on the given cell, or NoPiece if the cell is off-board.
func (b *Board) At(p Pos) Piece {
	if !p.Inside() {
		return NoPiece
	}
	return b[p.Index()]
}

// Set places a piece on a cell (NoPiece clears it).
func (b *Board) Set(p Pos, piece Piece) {
	b[p.Index()] = piece
}

// IsEmpty returns true if the cell is on the board and unoccupied.
func (b *Board) IsEmpty(p Pos) bool {
	return p.Inside() && b[p.Index()] == NoPiece
}

// FindKing returns the king's cell. The second result is false once the king
// has been captured.
func (b *Board) FindKing() (Pos, bool) {
	for i, piece := range b {
		if piece == King {
			return PosFromIndex(i), true
		}
	}
	return Pos{}, false
}

// Validate reports a board that no game can reach: more than one king.
func (b *Board) Validate() error {
	if n := b.Count().King; n > 1 {
		return fmt.Errorf("invalid board: %d kings", n)
	}
	return nil
}

// Counts holds the number of pieces of each kind on the board.
type Counts struct {
	Attackers int `json:"attackers"`
	Defenders int `json:"defenders"`
	King      int `json:"king"`
}

// Count tallies the pieces on the board.
func (b *Board) Count() Counts {
	var c Counts
	for _, piece := range b {
		switch piece {
		case AttackerPiece:
			c.Attackers++
		case DefenderPiece:
			c.Defenders++
		case King:
			c.King++
		}
	}
	return c
}

// Glyphs returns the 81-character encoding of the board, one glyph per cell
// in row-major order, '.' for empty cells.
func (b *Board) Glyphs() string {
	buf := make([]byte, NumCells)
	for i, piece := range b {
		buf[i] = piece.Glyph()
	}
	return string(buf)
}

// ParseGlyphs parses the 81-character encoding produced by Glyphs.
func ParseGlyphs(s string) (Board, error) {
	var b Board
	if len(s) != NumCells {
		return b, fmt.Errorf("invalid board string: need %d cells, got %d", NumCells, len(s))
	}
	for i := 0; i < NumCells; i++ {
		piece, ok := PieceFromGlyph(s[i])
		if !ok {
			return b, fmt.Errorf("invalid piece character: %c", s[i])
		}
		b[i] = piece
	}
	return b, b.Validate()
}

// String returns a visual representation of the board.
func (b *Board) String() string {
	var sb strings.Builder
	sb.WriteString("\n")
	for row := 0; row < Size; row++ {
		fmt.Fprintf(&sb, "%d  ", row+1)
		for col := 0; col < Size; col++ {
			p := NewPos(row, col)
			piece := b.At(p)
			switch {
			case piece != NoPiece:
				sb.WriteString(piece.String())
			case p.IsThrone():
				sb.WriteByte('#')
			default:
				sb.WriteByte('.')
			}
			sb.WriteByte(' ')
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n   a b c d e f g h i\n")
	return sb.String()
}

// MarshalJSON encodes the board as an array of 81 glyphs (null for empty).
func (b Board) MarshalJSON() ([]byte, error) {
	cells := make([]Piece, NumCells)
	copy(cells, b[:])
	return json.Marshal(cells)
}

// UnmarshalJSON decodes the array form produced by MarshalJSON.
func (b *Board) UnmarshalJSON(data []byte) error {
	var cells []Piece
	if err := json.Unmarshal(data, &cells); err != nil {
		return err
	}
	if len(cells) != NumCells {
		return fmt.Errorf("invalid board: need %d cells, got %d", NumCells, len(cells))
	}
	copy(b[:], cells)
	return b.Validate()
}
