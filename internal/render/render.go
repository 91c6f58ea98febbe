// Package render draws board snapshots as SVG documents and PNG images.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/draw"

	"github.com/hailam/tablutplay/internal/board"
	"github.com/hailam/tablutplay/internal/rules"
)

// Size limits for raster output, in pixels.
const (
	DefaultSize = 540
	MinSize     = 64
	MaxSize     = 2048
)

// cell is the side of one cell in SVG user units.
const cell = 100

// renderScale is the supersampling factor used before downscaling.
const renderScale = 3

// Palette
const (
	colorBoard    = "#e8d3a9"
	colorEdge     = "#dcc08a"
	colorGrid     = "#8a6d3b"
	colorThrone   = "#b58a4c"
	colorLastMove = "#f4e27a"
	colorCapture  = "#c0392b"
	colorAttacker = "#2b2b2b"
	colorDefender = "#f7f3ea"
	colorKing     = "#d4a017"
	colorOutline  = "#1a1a1a"
)

// Options selects optional overlays.
type Options struct {
	LastMove *board.Step  // Highlight the from and to cells
	Captures []board.Pos // Mark cells emptied by the last move
}

// OptionsFor derives overlays from the last entry of a move history.
func OptionsFor(st *rules.State) Options {
	if len(st.MoveHistory) == 0 {
		return Options{}
	}
	last := st.MoveHistory[len(st.MoveHistory)-1]
	return Options{
		LastMove: &board.Step{From: last.From, To: last.To},
		Captures: last.Captures,
	}
}

// SVG returns a standalone SVG document of the board.
func SVG(b *board.Board, opts Options) []byte {
	var sb strings.Builder
	span := board.Size * cell

	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">`+"\n",
		span, span, span, span)
	fmt.Fprintf(&sb, `<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`+"\n", span, span, colorBoard)

	for i := range board.NumCells {
		p := board.PosFromIndex(i)
		fill := ""
		switch {
		case opts.LastMove != nil && (p == opts.LastMove.From || p == opts.LastMove.To):
			fill = colorLastMove
		case p.IsThrone():
			fill = colorThrone
		case p.IsEdge():
			fill = colorEdge
		}
		if fill != "" {
			writeRect(&sb, p, fill)
		}
	}

	for i := 0; i <= board.Size; i++ {
		v := i * cell
		fmt.Fprintf(&sb, `<path d="M%d 0 L%d %d" stroke="%s" stroke-width="2" fill="none"/>`+"\n", v, v, span, colorGrid)
		fmt.Fprintf(&sb, `<path d="M0 %d L%d %d" stroke="%s" stroke-width="2" fill="none"/>`+"\n", v, span, v, colorGrid)
	}

	for _, p := range opts.Captures {
		writeCross(&sb, p)
	}

	for i, piece := range b {
		if piece != board.NoPiece {
			writePiece(&sb, board.PosFromIndex(i), piece)
		}
	}

	sb.WriteString("</svg>\n")
	return []byte(sb.String())
}

func writeRect(sb *strings.Builder, p board.Pos, fill string) {
	fmt.Fprintf(sb, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s"/>`+"\n",
		p.Col*cell, p.Row*cell, cell, cell, fill)
}

func writeCross(sb *strings.Builder, p board.Pos) {
	x0, y0 := p.Col*cell+25, p.Row*cell+25
	x1, y1 := x0+cell-50, y0+cell-50
	fmt.Fprintf(sb, `<path d="M%d %d L%d %d M%d %d L%d %d" stroke="%s" stroke-width="8" fill="none"/>`+"\n",
		x0, y0, x1, y1, x1, y0, x0, y1, colorCapture)
}

func writePiece(sb *strings.Builder, p board.Pos, piece board.Piece) {
	cx, cy := p.Col*cell+cell/2, p.Row*cell+cell/2

	switch piece {
	case board.AttackerPiece:
		fmt.Fprintf(sb, `<circle cx="%d" cy="%d" r="34" fill="%s" stroke="%s" stroke-width="3"/>`+"\n",
			cx, cy, colorAttacker, colorOutline)
	case board.DefenderPiece:
		fmt.Fprintf(sb, `<circle cx="%d" cy="%d" r="34" fill="%s" stroke="%s" stroke-width="3"/>`+"\n",
			cx, cy, colorDefender, colorOutline)
	case board.King:
		fmt.Fprintf(sb, `<circle cx="%d" cy="%d" r="38" fill="%s" stroke="%s" stroke-width="4"/>`+"\n",
			cx, cy, colorKing, colorOutline)
		fmt.Fprintf(sb, `<path d="M%d %d L%d %d M%d %d L%d %d" stroke="%s" stroke-width="6" fill="none"/>`+"\n",
			cx, cy-22, cx, cy+22, cx-22, cy, cx+22, cy, colorOutline)
	}
}

// ClampSize bounds a requested raster size, using DefaultSize for zero.
func ClampSize(size int) int {
	if size == 0 {
		return DefaultSize
	}
	return min(max(size, MinSize), MaxSize)
}

// Image rasterizes the board into a size x size RGBA image. The SVG is
// drawn at renderScale times the target size and downscaled for smooth
// edges.
func Image(b *board.Board, size int, opts Options) (*image.RGBA, error) {
	size = ClampSize(size)

	icon, err := oksvg.ReadIconStream(bytes.NewReader(SVG(b, opts)))
	if err != nil {
		return nil, fmt.Errorf("parse board svg: %w", err)
	}

	renderSize := size * renderScale
	icon.SetTarget(0, 0, float64(renderSize), float64(renderSize))

	hi := image.NewRGBA(image.Rect(0, 0, renderSize, renderSize))
	scanner := rasterx.NewScannerGV(renderSize, renderSize, hi, hi.Bounds())
	raster := rasterx.NewDasher(renderSize, renderSize, scanner)
	icon.Draw(raster, 1.0)

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), hi, hi.Bounds(), draw.Over, nil)
	return dst, nil
}

// PNG writes the board as a PNG image of size x size pixels.
func PNG(w io.Writer, b *board.Board, size int, opts Options) error {
	img, err := Image(b, size, opts)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}
