// Package board implements the Tablut board representation: cells, pieces,
// sides and the geometric predicates the rules are built on.
package board

import "fmt"

// Size is the number of rows and columns of the board.
const Size = 9

// NumCells is the number of cells on the board.
const NumCells = Size * Size

// Pos is a cell on the board. Row 0 is the top row, column 0 the left column.
type Pos struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Throne is the center cell.
var Throne = Pos{Row: 4, Col: 4}

// Directions are the four orthogonal unit steps: up, down, left, right.
var Directions = [4]Pos{
	{Row: -1, Col: 0},
	{Row: 1, Col: 0},
	{Row: 0, Col: -1},
	{Row: 0, Col: 1},
}

// NewPos creates a position from row and column (0-indexed).
func NewPos(row, col int) Pos {
	return Pos{Row: row, Col: col}
}

// PosFromIndex converts a cell index (row*Size+col) back to a position.
func PosFromIndex(i int) Pos {
	return Pos{Row: i / Size, Col: i % Size}
}

// Index returns the cell index (row*Size+col). Only meaningful when Inside.
func (p Pos) Index() int {
	return p.Row*Size + p.Col
}

// Inside returns true if the position lies on the board.
func (p Pos) Inside() bool {
	return p.Row >= 0 && p.Row < Size && p.Col >= 0 && p.Col < Size
}

// IsThrone returns true if the position is the throne.
func (p Pos) IsThrone() bool {
	return p == Throne
}

// IsEdge returns true if the position is on the outer ring of the board.
func (p Pos) IsEdge() bool {
	return p.Row == 0 || p.Row == Size-1 || p.Col == 0 || p.Col == Size-1
}

// Add returns the position offset by d.
func (p Pos) Add(d Pos) Pos {
	return Pos{Row: p.Row + d.Row, Col: p.Col + d.Col}
}

// Neighbors returns the orthogonal neighbors that lie on the board.
func (p Pos) Neighbors() []Pos {
	out := make([]Pos, 0, 4)
	for _, d := range Directions {
		n := p.Add(d)
		if n.Inside() {
			out = append(out, n)
		}
	}
	return out
}

// IsThroneNeighbor returns true if the position is orthogonally adjacent to the throne.
func (p Pos) IsThroneNeighbor() bool {
	dr, dc := p.Row-Throne.Row, p.Col-Throne.Col
	return (dr == 0 && (dc == 1 || dc == -1)) || (dc == 0 && (dr == 1 || dr == -1))
}

// EdgeDistance returns the number of steps to the nearest edge row or column.
func (p Pos) EdgeDistance() int {
	return min(p.Row, p.Col, Size-1-p.Row, Size-1-p.Col)
}

// ManhattanDistance returns |dr| + |dc| between two positions.
func (p Pos) ManhattanDistance(q Pos) int {
	return abs(p.Row-q.Row) + abs(p.Col-q.Col)
}

// String returns the coordinate notation for the position (e.g., "e5").
// Columns are lettered a-i from the left, rows numbered 1-9 from the top.
func (p Pos) String() string {
	if !p.Inside() {
		return "-"
	}
	return fmt.Sprintf("%c%d", 'a'+p.Col, p.Row+1)
}

// ParsePos parses coordinate notation (e.g., "e5") into a Pos.
func ParsePos(s string) (Pos, error) {
	if len(s) != 2 {
		return Pos{}, fmt.Errorf("invalid position: %s", s)
	}

	col := int(s[0] - 'a')
	row := int(s[1] - '1')

	p := Pos{Row: row, Col: col}
	if !p.Inside() {
		return Pos{}, fmt.Errorf("invalid position: %s", s)
	}
	return p, nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
