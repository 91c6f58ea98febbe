package protocol

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hailam/tablutplay/internal/board"
	"github.com/hailam/tablutplay/internal/engine"
	"github.com/hailam/tablutplay/internal/rules"
)

// run feeds script to a fresh session and returns the session and its output.
func run(t *testing.T, script string) (*Protocol, []string) {
	t.Helper()
	var out bytes.Buffer
	p := New(engine.NewSeededEngine(7), strings.NewReader(script), &out)
	require.NoError(t, p.Run())
	text := strings.TrimRight(out.String(), "\n")
	if text == "" {
		return p, nil
	}
	return p, strings.Split(text, "\n")
}

func hasLine(lines []string, prefix string) bool {
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}

func TestIsReadyAndQuit(t *testing.T) {
	_, lines := run(t, "isready\n\n# comment\nquit\nisready\n")
	require.Equal(t, []string{"readyok"}, lines)
}

func TestNewAndPlay(t *testing.T) {
	p, lines := run(t, "new attacker 2\nplay d1d3\n")

	require.Equal(t, "ok", lines[0])
	require.True(t, hasLine(lines, "move ATTACKER d1d3"))
	require.True(t, hasLine(lines, "info side DEFENDER depth 2 "))
	require.True(t, hasLine(lines, "move DEFENDER "))

	st := p.State()
	require.Equal(t, 2, st.Version)
	require.Len(t, st.MoveHistory, 2)
	require.Equal(t, board.Attacker, st.SideToMove)
	require.Equal(t, rules.Easy, st.Difficulty)
}

func TestNewWithBotOpening(t *testing.T) {
	p, lines := run(t, "new defender 2\n")

	require.True(t, strings.HasPrefix(lines[len(lines)-2], "move ATTACKER "))
	require.Equal(t, "ok", lines[len(lines)-1])
	require.Equal(t, board.Defender, p.State().SideToMove)
	require.Equal(t, board.Defender, p.State().HumanSide)
}

func TestPositionAndMove(t *testing.T) {
	p, lines := run(t, "position 9/9/9/9/9/9/6K2/9/9 DEFENDER 1\nmove g7g9\nmove g9g8\n")

	require.Equal(t, []string{
		"ok",
		"move DEFENDER g7g9",
		"gameover DEFENDER",
		"error game_over",
	}, lines)
	require.True(t, p.State().IsOver())
	require.True(t, p.State().KingHasLeftThrone)
}

func TestMoveReportsCaptures(t *testing.T) {
	// The attacker slides from d8 to d3 and sandwiches the defender on e3
	// against the attacker on f3.
	p, lines := run(t, "position 9/9/4DA3/9/9/9/6K2/3A5/9 ATTACKER 1\nmove d8d3\nhistory\n")

	require.Equal(t, []string{
		"ok",
		"move ATTACKER d8d3 x e3",
		"1. ATTACKER d8d3 x e3",
		"history 1",
	}, lines)
	require.Equal(t, board.NoPiece, p.State().Board.At(board.NewPos(2, 4)))
	require.Equal(t, board.Defender, p.State().SideToMove)
}

func TestGoWins(t *testing.T) {
	p, lines := run(t, "position 9/9/9/9/9/9/6K2/9/9 DEFENDER 1\ngo\n")

	require.True(t, hasLine(lines, "info side DEFENDER depth 4 score win "))
	require.True(t, hasLine(lines, "bestmove "))
	require.Equal(t, "gameover DEFENDER", lines[len(lines)-1])
	require.Equal(t, board.Defender, p.State().Winner)
}

func TestGoPassesWhenBlocked(t *testing.T) {
	p, lines := run(t, "position AD7/D8/9/9/9/9/6K2/9/9 ATTACKER 1\ngo\n")

	require.Equal(t, []string{
		"ok",
		"bestmove 0000",
		"note The attacker has no legal moves.",
	}, lines)
	require.Equal(t, board.Defender, p.State().SideToMove)
}

func TestErrors(t *testing.T) {
	_, lines := run(t, strings.Join([]string{
		"play",
		"move z9z9",
		"frobnicate",
		"depth 3",
		"position nonsense DEFENDER 0",
		"position 9/9/9/9/9/9/6K2/9/9 KING 0",
		"new king",
		"move e5e6",
		"png",
	}, "\n"))

	require.Len(t, lines, 9)
	for _, l := range lines[:7] {
		require.True(t, strings.HasPrefix(l, "error invalid_payload"), l)
	}
	require.True(t, strings.HasPrefix(lines[7], "error illegal_move"), lines[7])
	require.True(t, strings.HasPrefix(lines[8], "error invalid_payload"), lines[8])
}

func TestPositionRejectsUnreachableBoards(t *testing.T) {
	p, lines := run(t, strings.Join([]string{
		"position 9/9/2K6/9/9/9/6K2/9/A8 DEFENDER 1",
		"position 9/9/9/9/9/9/6K2/9/A8 DEFENDER 0",
		"position 9/9/9/9/4K4/9/9/9/A8 DEFENDER 1",
	}, "\n"))

	require.Len(t, lines, 3)
	for _, l := range lines {
		require.True(t, strings.HasPrefix(l, "error invalid_payload"), l)
	}
	require.Equal(t, board.StartFEN, p.State().Board.FEN())
	require.Equal(t, 1, p.State().Board.Count().King)
}

func TestQueries(t *testing.T) {
	p, lines := run(t, "legal\nhash\neval\ndepth 2\nd\n")

	require.True(t, strings.HasPrefix(lines[0], "legal "))
	fields := strings.Fields(lines[0])
	require.Equal(t, len(p.State().LegalMoves), len(fields)-2)

	require.Equal(t, p.State().Hash(), lines[1])
	require.Equal(t, "eval -880", lines[2])
	require.Equal(t, "ok", lines[3])
	require.Equal(t, rules.Easy, p.State().Difficulty)
	require.True(t, hasLine(lines, "Board: "+board.StartFEN))
	require.True(t, hasLine(lines, "To move: ATTACKER  Human: DEFENDER  Depth: 2"))
}

func TestPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.png")
	_, lines := run(t, "png "+path+" 72\n")
	require.Equal(t, []string{"ok"}, lines)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	require.Equal(t, 72, img.Bounds().Dx())
}
