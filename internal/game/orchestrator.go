// Package game sequences turns: a human move, the automatic bot reply, and
// the load/compute/save cycle that makes each logical turn atomic.
package game

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hailam/tablutplay/internal/board"
	"github.com/hailam/tablutplay/internal/rules"
)

// MovePicker chooses a bot move. *engine.Engine implements it.
type MovePicker interface {
	PickMove(st *rules.State, depth int, botSide board.Side) (rules.Move, error)
}

// MoveEvent describes one applied move.
type MoveEvent struct {
	Side     board.Side  `json:"side"`
	From     board.Pos   `json:"from"`
	To       board.Pos   `json:"to"`
	Captures []board.Pos `json:"captures"`
}

// Effects collects what happened during a call besides the state change.
type Effects struct {
	Moves []MoveEvent
	Notes []string
}

func (e *Effects) merge(other Effects) {
	e.Moves = append(e.Moves, other.Moves...)
	e.Notes = append(e.Notes, other.Notes...)
}

// Orchestrator applies human moves and runs bot turns.
type Orchestrator struct {
	picker MovePicker
}

// NewOrchestrator creates an orchestrator using picker for bot moves.
func NewOrchestrator(picker MovePicker) *Orchestrator {
	return &Orchestrator{picker: picker}
}

// HumanMove commits the human's move and, if the bot is then to move, plays
// the bot's reply. The returned state has its version bumped once per
// applied transition.
func (o *Orchestrator) HumanMove(st *rules.State, step board.Step) (*rules.State, Effects, error) {
	if st.IsOver() {
		return nil, Effects{}, rules.ErrGameOver
	}
	if st.SideToMove != st.HumanSide {
		return nil, Effects{}, rules.Errorf(rules.KindInvalidTurn, fmt.Sprintf("%s to move", st.SideToMove))
	}

	out, err := rules.Commit(st, st.HumanSide, step)
	if err != nil {
		return nil, Effects{}, err
	}
	next := out.State
	next.Version++

	eff := Effects{Moves: []MoveEvent{moveEvent(st.HumanSide, step, out)}}

	if !next.IsOver() && next.SideToMove == next.BotSide {
		after, botEff, err := o.BotTurn(next)
		if err != nil {
			return nil, Effects{}, err
		}
		next = after
		eff.merge(botEff)
	}
	return next, eff, nil
}

// BotTurn plays one move for the bot side. A bot with no legal move passes
// the turn back to the human instead. Calling it when the game is over or
// the human is to move returns st unchanged.
func (o *Orchestrator) BotTurn(st *rules.State) (*rules.State, Effects, error) {
	if st.IsOver() || st.SideToMove != st.BotSide {
		return st, Effects{}, nil
	}
	if len(st.LegalMoves) == 0 {
		return passTurn(st), passEffects(st.BotSide), nil
	}

	move, err := o.picker.PickMove(st, int(st.Difficulty), st.BotSide)
	if errors.Is(err, rules.ErrBotNoLegalMoves) {
		return passTurn(st), passEffects(st.BotSide), nil
	}
	if err != nil {
		return nil, Effects{}, err
	}

	out, err := rules.Commit(st, st.BotSide, move.Step())
	if err != nil {
		return nil, Effects{}, fmt.Errorf("bot move %s: %w", move, err)
	}
	next := out.State
	next.Version++
	return next, Effects{Moves: []MoveEvent{moveEvent(st.BotSide, move.Step(), out)}}, nil
}

// ChangeDifficulty sets the bot search depth. Only allowed while the game is
// in progress.
func (o *Orchestrator) ChangeDifficulty(st *rules.State, d rules.Difficulty) (*rules.State, error) {
	if st.IsOver() {
		return nil, rules.ErrGameOver
	}
	if !d.Valid() {
		return nil, rules.Errorf(rules.KindInvalidPayload, fmt.Sprintf("difficulty %d", d))
	}
	next := st.Clone()
	next.Difficulty = d
	next.Version++
	return next, nil
}

func passTurn(st *rules.State) *rules.State {
	next := rules.PassTurn(st)
	next.Version++
	return next
}

func passEffects(side board.Side) Effects {
	return Effects{Notes: []string{NoLegalMovesNote(side)}}
}

// NoLegalMovesNote is the note emitted when a side has to pass.
func NoLegalMovesNote(side board.Side) string {
	return fmt.Sprintf("The %s has no legal moves.", strings.ToLower(side.String()))
}

func moveEvent(side board.Side, step board.Step, out rules.Outcome) MoveEvent {
	return MoveEvent{
		Side:     side,
		From:     step.From,
		To:       step.To,
		Captures: out.CapturedPositions(),
	}
}
