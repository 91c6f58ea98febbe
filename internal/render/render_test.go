package render

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hailam/tablutplay/internal/board"
	"github.com/hailam/tablutplay/internal/rules"
)

func TestSVGPieces(t *testing.T) {
	b := board.NewBoard()
	doc := string(SVG(&b, Options{}))

	require.True(t, strings.HasPrefix(doc, "<svg"))
	require.Equal(t, 16, strings.Count(doc, `fill="`+colorAttacker+`"`))
	require.Equal(t, 8, strings.Count(doc, `fill="`+colorDefender+`"`))
	require.Equal(t, 1, strings.Count(doc, `fill="`+colorKing+`"`))
	require.NotContains(t, doc, colorLastMove)
	require.NotContains(t, doc, colorCapture)
}

func TestSVGOverlays(t *testing.T) {
	st := rules.NewState("g", rules.Hard, board.Defender)
	m := st.LegalMoves[0]
	out, err := rules.Commit(st, board.Attacker, m.Step())
	require.NoError(t, err)

	opts := OptionsFor(out.State)
	require.NotNil(t, opts.LastMove)
	require.Equal(t, m.Step(), *opts.LastMove)

	doc := string(SVG(&out.State.Board, opts))
	require.Equal(t, 2, strings.Count(doc, `fill="`+colorLastMove+`"`))

	opts.Captures = []board.Pos{board.NewPos(0, 0)}
	doc = string(SVG(&out.State.Board, opts))
	require.Equal(t, 1, strings.Count(doc, colorCapture))

	require.Equal(t, Options{}, OptionsFor(st))
}

func TestPNG(t *testing.T) {
	b := board.NewBoard()

	var buf bytes.Buffer
	require.NoError(t, PNG(&buf, &b, 270, Options{}))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, 270, img.Bounds().Dx())
	require.Equal(t, 270, img.Bounds().Dy())

	// Inside the king, away from its cross: gold, not the board background.
	r, _, bl, _ := img.At(129, 130).RGBA()
	require.Greater(t, r>>8, uint32(180))
	require.Less(t, bl>>8, uint32(80))

	// Top left corner is an empty edge cell.
	r, _, bl, _ = img.At(5, 40).RGBA()
	require.Greater(t, r>>8, uint32(200))
	require.Greater(t, bl>>8, uint32(100))
}

func TestClampSize(t *testing.T) {
	require.Equal(t, DefaultSize, ClampSize(0))
	require.Equal(t, MinSize, ClampSize(3))
	require.Equal(t, MaxSize, ClampSize(100000))
	require.Equal(t, 300, ClampSize(300))
}
