package board

import (
	"encoding/json"
	"fmt"
)

// Side is one of the two players.
type Side uint8

const (
	Attacker Side = iota
	Defender
	NoSide Side = 2
)

// Other returns the opposite side. NoSide has no opposite.
func (s Side) Other() Side {
	switch s {
	case Attacker:
		return Defender
	case Defender:
		return Attacker
	default:
		return NoSide
	}
}

// String returns the wire name of the side.
func (s Side) String() string {
	switch s {
	case Attacker:
		return "ATTACKER"
	case Defender:
		return "DEFENDER"
	default:
		return "NONE"
	}
}

// ParseSide parses a wire name ("ATTACKER", "DEFENDER"). Lowercase names and
// the single-letter forms are accepted too.
func ParseSide(s string) (Side, error) {
	switch s {
	case "ATTACKER", "attacker", "A", "a":
		return Attacker, nil
	case "DEFENDER", "defender", "D", "d":
		return Defender, nil
	default:
		return NoSide, fmt.Errorf("invalid side: %s", s)
	}
}

// MarshalJSON encodes the side as its wire name, or null for NoSide.
func (s Side) MarshalJSON() ([]byte, error) {
	if s == NoSide {
		return []byte("null"), nil
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a wire name or null.
func (s *Side) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = NoSide
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	side, err := ParseSide(name)
	if err != nil {
		return err
	}
	*s = side
	return nil
}

// Piece is the content of a cell.
type Piece uint8

const (
	NoPiece Piece = iota
	AttackerPiece
	DefenderPiece
	King
)

// Side returns the side owning the piece. The king belongs to the defenders.
func (p Piece) Side() Side {
	switch p {
	case AttackerPiece:
		return Attacker
	case DefenderPiece, King:
		return Defender
	default:
		return NoSide
	}
}

// Glyph returns the single-character encoding of the piece ('.' for empty).
func (p Piece) Glyph() byte {
	switch p {
	case AttackerPiece:
		return 'A'
	case DefenderPiece:
		return 'D'
	case King:
		return 'K'
	default:
		return '.'
	}
}

// String returns the glyph as a string.
func (p Piece) String() string {
	return string(p.Glyph())
}

// PieceFromGlyph converts a glyph to a Piece. The second result is false for
// characters that are not a piece or '.'.
func PieceFromGlyph(c byte) (Piece, bool) {
	switch c {
	case 'A':
		return AttackerPiece, true
	case 'D':
		return DefenderPiece, true
	case 'K':
		return King, true
	case '.':
		return NoPiece, true
	default:
		return NoPiece, false
	}
}

// MarshalJSON encodes the piece as its glyph, or null for an empty cell.
func (p Piece) MarshalJSON() ([]byte, error) {
	if p == NoPiece {
		return []byte("null"), nil
	}
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a glyph or null.
func (p *Piece) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = NoPiece
		return nil
	}
	var g string
	if err := json.Unmarshal(data, &g); err != nil {
		return err
	}
	if len(g) != 1 {
		return fmt.Errorf("invalid piece: %q", g)
	}
	piece, ok := PieceFromGlyph(g[0])
	if !ok {
		return fmt.Errorf("invalid piece: %q", g)
	}
	*p = piece
	return nil
}
