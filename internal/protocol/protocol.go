// Package protocol implements a line-oriented text protocol for driving the
// rules engine and the bot from scripts, terminals and GUIs.
//
// Every command answers with one or more lines. Failures are reported as
// "error <kind>: <detail>" and never end the session.
package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hailam/tablutplay/internal/board"
	"github.com/hailam/tablutplay/internal/engine"
	"github.com/hailam/tablutplay/internal/game"
	"github.com/hailam/tablutplay/internal/render"
	"github.com/hailam/tablutplay/internal/rules"
)

// Protocol holds one interactive session.
type Protocol struct {
	engine *engine.Engine
	orch   *game.Orchestrator
	state  *rules.State

	in  io.Reader
	out io.Writer

	games int
}

// New creates a session reading commands from in and writing replies to out.
// It starts with a new game where the human defends at the default depth.
func New(eng *engine.Engine, in io.Reader, out io.Writer) *Protocol {
	p := &Protocol{
		engine: eng,
		orch:   game.NewOrchestrator(eng),
		in:     in,
		out:    out,
	}
	p.state = p.newState(board.Defender, rules.DefaultDifficulty)
	eng.OnInfo = p.sendInfo
	return p
}

// State returns the current game state.
func (p *Protocol) State() *rules.State {
	return p.state
}

// Run reads commands until quit or end of input.
func (p *Protocol) Run() error {
	scanner := bufio.NewScanner(p.in)
	for scanner.Scan() {
		if quit := p.Execute(scanner.Text()); quit {
			return nil
		}
	}
	return scanner.Err()
}

// Execute runs one command line. It returns true on quit.
func (p *Protocol) Execute(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return false
	}
	parts := strings.Fields(line)
	cmd, args := parts[0], parts[1:]

	var err error
	switch cmd {
	case "isready":
		p.println("readyok")
	case "new":
		err = p.handleNew(args)
	case "position":
		err = p.handlePosition(args)
	case "play":
		err = p.handlePlay(args)
	case "move":
		err = p.handleMove(args)
	case "go":
		err = p.handleGo()
	case "depth":
		err = p.handleDepth(args)
	case "legal":
		p.handleLegal()
	case "hash":
		p.println(p.state.Hash())
	case "history":
		p.handleHistory()
	case "eval":
		p.printf("eval %s\n", engine.ScoreToString(p.engine.Evaluate(p.state, p.state.SideToMove)))
	case "d":
		p.handleDisplay()
	case "png":
		err = p.handlePNG(args)
	case "quit":
		return true
	default:
		err = rules.Errorf(rules.KindInvalidPayload, "unknown command "+cmd)
	}
	if err != nil {
		p.printf("error %v\n", err)
	}
	return false
}

func (p *Protocol) newState(human board.Side, d rules.Difficulty) *rules.State {
	p.games++
	return rules.NewState(fmt.Sprintf("cli-%d", p.games), d, human)
}

// handleNew starts a game.
// Formats:
//   - new
//   - new attacker
//   - new defender 2
func (p *Protocol) handleNew(args []string) error {
	human := board.Defender
	d := rules.DefaultDifficulty
	if len(args) > 0 {
		side, err := board.ParseSide(args[0])
		if err != nil {
			return rules.Errorf(rules.KindInvalidPayload, err.Error())
		}
		human = side
	}
	if len(args) > 1 {
		var err error
		if d, err = parseDepth(args[1]); err != nil {
			return err
		}
	}

	st := p.newState(human, d)
	next, eff, err := p.orch.BotTurn(st)
	if err != nil {
		return err
	}
	p.state = next
	p.report(eff)
	p.println("ok")
	return nil
}

// handlePosition sets up an arbitrary position, keeping the side assignment
// and depth of the current game.
// Format: position <board> <ATTACKER|DEFENDER> <0|1>
// where <board> is 81 glyphs or the compact row encoding.
func (p *Protocol) handlePosition(args []string) error {
	if len(args) != 3 {
		return rules.Errorf(rules.KindInvalidPayload, "usage: position <board> <side> <0|1>")
	}
	b, err := board.Parse(args[0])
	if err != nil {
		return rules.Errorf(rules.KindInvalidPayload, err.Error())
	}
	side, err := board.ParseSide(args[1])
	if err != nil {
		return rules.Errorf(rules.KindInvalidPayload, err.Error())
	}
	var kingLeft bool
	switch args[2] {
	case "0":
	case "1":
		kingLeft = true
	default:
		return rules.Errorf(rules.KindInvalidPayload, "king flag must be 0 or 1")
	}
	if err := rules.ValidateSetup(&b, kingLeft); err != nil {
		return err
	}

	p.games++
	p.state = rules.NewStateFromBoard(fmt.Sprintf("cli-%d", p.games), b, side, kingLeft, p.state.Difficulty, p.state.HumanSide)
	p.println("ok")
	return nil
}

// handlePlay plays the human move followed by the bot reply.
func (p *Protocol) handlePlay(args []string) error {
	step, err := parseStepArg(args)
	if err != nil {
		return err
	}
	next, eff, err := p.orch.HumanMove(p.state, step)
	if err != nil {
		return err
	}
	p.state = next
	p.report(eff)
	return nil
}

// handleMove commits a move for the side to move, without a bot reply.
func (p *Protocol) handleMove(args []string) error {
	step, err := parseStepArg(args)
	if err != nil {
		return err
	}
	side := p.state.SideToMove
	out, err := rules.Commit(p.state, side, step)
	if err != nil {
		return err
	}
	out.State.Version++
	p.state = out.State
	p.report(game.Effects{Moves: []game.MoveEvent{{
		Side: side, From: step.From, To: step.To, Captures: out.CapturedPositions(),
	}}})
	return nil
}

// handleGo lets the bot play the side to move.
func (p *Protocol) handleGo() error {
	if p.state.IsOver() {
		return rules.ErrGameOver
	}
	side := p.state.SideToMove
	move, err := p.engine.PickMove(p.state, int(p.state.Difficulty), side)
	if errors.Is(err, rules.ErrBotNoLegalMoves) {
		p.state = rules.PassTurn(p.state)
		p.state.Version++
		p.println("bestmove 0000")
		p.report(game.Effects{Notes: []string{game.NoLegalMovesNote(side)}})
		return nil
	}
	if err != nil {
		return err
	}
	p.printf("bestmove %s\n", move)
	return p.handleMove([]string{move.String()})
}

func (p *Protocol) handleDepth(args []string) error {
	if len(args) != 1 {
		return rules.Errorf(rules.KindInvalidPayload, "usage: depth <2|4>")
	}
	d, err := parseDepth(args[0])
	if err != nil {
		return err
	}
	next, err := p.orch.ChangeDifficulty(p.state, d)
	if err != nil {
		return err
	}
	p.state = next
	p.println("ok")
	return nil
}

func (p *Protocol) handleLegal() {
	moves := make([]string, len(p.state.LegalMoves))
	for i, m := range p.state.LegalMoves {
		moves[i] = m.String()
	}
	p.printf("legal %d %s\n", len(moves), strings.Join(moves, " "))
}

func (p *Protocol) handleHistory() {
	for _, rec := range p.state.MoveHistory {
		p.printf("%d. %s %s%s%s\n", rec.Turn, rec.Side, rec.From, rec.To, formatCaptures(rec.Captures))
	}
	p.printf("history %d\n", len(p.state.MoveHistory))
}

func (p *Protocol) handleDisplay() {
	st := p.state
	p.printf("%s\n", st.Board.String())
	p.printf("Board: %s\n", st.Board.FEN())
	p.printf("To move: %s  Human: %s  Depth: %d  King left throne: %v\n",
		st.SideToMove, st.HumanSide, st.Difficulty, st.KingHasLeftThrone)
	if st.IsOver() {
		p.printf("Winner: %s\n", st.Winner)
	}
}

// handlePNG writes the board to a PNG file.
// Format: png <file> [size]
func (p *Protocol) handlePNG(args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return rules.Errorf(rules.KindInvalidPayload, "usage: png <file> [size]")
	}
	size := 0
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return rules.Errorf(rules.KindInvalidPayload, "invalid size: "+args[1])
		}
		size = n
	}

	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	if err := render.PNG(f, &p.state.Board, size, render.OptionsFor(p.state)); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	p.println("ok")
	return nil
}

// report prints move events, notes and the result if the game ended.
func (p *Protocol) report(eff game.Effects) {
	for _, mv := range eff.Moves {
		p.printf("move %s %s%s%s\n", mv.Side, mv.From, mv.To, formatCaptures(mv.Captures))
	}
	for _, note := range eff.Notes {
		p.printf("note %s\n", note)
	}
	if p.state.IsOver() {
		p.printf("gameover %s\n", p.state.Winner)
	}
}

// sendInfo prints search information.
func (p *Protocol) sendInfo(info engine.SearchInfo) {
	p.printf("info side %s depth %d score %s nodes %d time %d candidates %d tied %d pv %s\n",
		info.Side, info.Depth, engine.ScoreToString(info.Score), info.Nodes,
		info.Time.Milliseconds(), info.Candidates, info.Tied, info.Move)
}

func (p *Protocol) println(s string) {
	fmt.Fprintln(p.out, s)
}

func (p *Protocol) printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

func parseStepArg(args []string) (board.Step, error) {
	if len(args) != 1 {
		return board.Step{}, rules.Errorf(rules.KindInvalidPayload, "expected one move, e.g. e2e3")
	}
	step, err := board.ParseStep(args[0])
	if err != nil {
		return board.Step{}, rules.Errorf(rules.KindInvalidPayload, err.Error())
	}
	return step, nil
}

func parseDepth(s string) (rules.Difficulty, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, rules.Errorf(rules.KindInvalidPayload, "invalid depth: "+s)
	}
	d, err := rules.ParseDifficulty(n)
	if err != nil {
		return 0, rules.Errorf(rules.KindInvalidPayload, err.Error())
	}
	return d, nil
}

func formatCaptures(caps []board.Pos) string {
	if len(caps) == 0 {
		return ""
	}
	parts := make([]string, len(caps))
	for i, c := range caps {
		parts[i] = c.String()
	}
	return " x " + strings.Join(parts, " ")
}
