package board

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStartingPosition(t *testing.T) {
	b := NewBoard()
	t.Log(b.String())

	c := b.Count()
	require.Equal(t, 16, c.Attackers)
	require.Equal(t, 8, c.Defenders)
	require.Equal(t, 1, c.King)

	king, ok := b.FindKing()
	require.True(t, ok)
	require.Equal(t, Throne, king)
	require.Equal(t, StartFEN, b.FEN())
}

func TestFENRoundTrip(t *testing.T) {
	fens := []string{
		StartFEN,
		"9/9/9/9/4K4/9/9/9/9",
		"A8/9/9/3A5/3AKA3/4A4/9/9/8D",
	}
	for _, fen := range fens {
		b, err := ParseFEN(fen)
		require.NoError(t, err, fen)
		require.Equal(t, fen, b.FEN())

		again, err := Parse(b.Glyphs())
		require.NoError(t, err)
		require.Equal(t, b, again)
	}
}

func TestParseFENErrors(t *testing.T) {
	for _, fen := range []string{
		"",
		"9/9/9",
		"9/9/9/9/4X4/9/9/9/9",
		"9/9/9/9/5K4/9/9/9/9",
		"9/9/2K6/9/9/9/6K2/9/A8",
	} {
		_, err := ParseFEN(fen)
		require.Error(t, err, fen)
	}
}

func TestSingleKing(t *testing.T) {
	b, err := ParseFEN("9/9/2K6/9/9/9/9/9/A8")
	require.NoError(t, err)
	require.NoError(t, b.Validate())

	b.Set(NewPos(6, 6), King)
	require.Error(t, b.Validate())

	_, err = ParseGlyphs(b.Glyphs())
	require.Error(t, err)

	data, err := json.Marshal(b)
	require.NoError(t, err)
	var back Board
	require.Error(t, json.Unmarshal(data, &back))

	var empty Board
	require.NoError(t, empty.Validate())
}

func TestGlyphs(t *testing.T) {
	b := NewBoard()
	g := b.Glyphs()
	require.Len(t, g, NumCells)
	require.Equal(t, byte('K'), g[Throne.Index()])
	require.Equal(t, byte('.'), g[0])
	require.Equal(t, byte('A'), g[3])
}

func TestPosNotation(t *testing.T) {
	require.Equal(t, "e5", Throne.String())
	require.Equal(t, "a1", NewPos(0, 0).String())
	require.Equal(t, "i9", NewPos(8, 8).String())

	p, err := ParsePos("c7")
	require.NoError(t, err)
	require.Equal(t, NewPos(6, 2), p)

	_, err = ParsePos("j1")
	require.Error(t, err)
	_, err = ParsePos("a0")
	require.Error(t, err)
}

func TestParseStep(t *testing.T) {
	for _, s := range []string{"e2e3", "e2-e3", "e2xe3"} {
		step, err := ParseStep(s)
		require.NoError(t, err, s)
		require.Equal(t, NewPos(1, 4), step.From)
		require.Equal(t, NewPos(2, 4), step.To)
		require.Equal(t, "e2e3", step.String())
	}
	_, err := ParseStep("e2")
	require.Error(t, err)
}

func TestGeometry(t *testing.T) {
	require.True(t, Throne.IsThrone())
	require.Len(t, Throne.Neighbors(), 4)
	require.Len(t, NewPos(0, 0).Neighbors(), 2)
	require.Len(t, NewPos(0, 4).Neighbors(), 3)

	for _, n := range Throne.Neighbors() {
		require.True(t, n.IsThroneNeighbor(), n.String())
	}
	require.False(t, Throne.IsThroneNeighbor())
	require.False(t, NewPos(3, 3).IsThroneNeighbor())

	require.True(t, NewPos(0, 5).IsEdge())
	require.True(t, NewPos(5, 8).IsEdge())
	require.False(t, NewPos(1, 1).IsEdge())

	require.Equal(t, 4, Throne.EdgeDistance())
	require.Equal(t, 1, NewPos(1, 6).EdgeDistance())
	require.Equal(t, 5, NewPos(0, 0).ManhattanDistance(NewPos(2, 3)))

	step := Step{From: NewPos(2, 2), To: NewPos(2, 7)}
	require.True(t, step.SharesLine())
	require.Equal(t, Pos{Row: 0, Col: 1}, step.Direction())
	require.False(t, Step{From: NewPos(2, 2), To: NewPos(3, 3)}.SharesLine())
}

func TestSide(t *testing.T) {
	require.Equal(t, Defender, Attacker.Other())
	require.Equal(t, Attacker, Defender.Other())
	require.Equal(t, Defender, King.Side())

	s, err := ParseSide("defender")
	require.NoError(t, err)
	require.Equal(t, Defender, s)
	_, err = ParseSide("white")
	require.Error(t, err)
}

func TestBoardJSON(t *testing.T) {
	b := NewBoard()
	data, err := json.Marshal(b)
	require.NoError(t, err)

	var cells []*string
	require.NoError(t, json.Unmarshal(data, &cells))
	require.Len(t, cells, NumCells)
	require.Nil(t, cells[0])
	require.Equal(t, "K", *cells[Throne.Index()])

	var back Board
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, b, back)
}
