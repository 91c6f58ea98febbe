// Package rules implements the Tablut rules engine: move validation, capture
// resolution, win detection, repetition tracking and legal-move enumeration,
// plus construction of the game state those operations transition.
package rules

import (
	"fmt"

	"github.com/hailam/tablutplay/internal/board"
)

// Phase is the lifecycle phase of a game.
type Phase string

const (
	InProgress Phase = "IN_PROGRESS"
	GameOver   Phase = "GAME_OVER"
)

// Difficulty is the configured bot search depth in plies.
type Difficulty int

const (
	Easy Difficulty = 2
	Hard Difficulty = 4
)

// DefaultDifficulty is used when a new game does not ask for one.
const DefaultDifficulty = Hard

// Valid returns true for the depths the bot supports.
func (d Difficulty) Valid() bool {
	return d == Easy || d == Hard
}

// ParseDifficulty converts a depth number into a Difficulty.
func ParseDifficulty(n int) (Difficulty, error) {
	d := Difficulty(n)
	if !d.Valid() {
		return 0, fmt.Errorf("invalid difficulty: %d", n)
	}
	return d, nil
}

// Move is a legal move together with the cells its capture would empty.
type Move struct {
	From            board.Pos   `json:"from"`
	To              board.Pos   `json:"to"`
	CapturesPreview []board.Pos `json:"capturesPreview"`
}

// Step returns the bare (from, to) pair.
func (m Move) Step() board.Step {
	return board.Step{From: m.From, To: m.To}
}

// String returns the notation of the move (e.g., "e2e3").
func (m Move) String() string {
	return m.Step().String()
}

// Capture is a piece removed by a move.
type Capture struct {
	Pos   board.Pos   `json:"pos"`
	Piece board.Piece `json:"piece"`
}

// MoveRecord is one entry of the append-only move history.
type MoveRecord struct {
	Turn           int           `json:"turn"`
	Side           board.Side    `json:"side"`
	From           board.Pos     `json:"from"`
	To             board.Pos     `json:"to"`
	Captures       []board.Pos   `json:"captures"`
	CapturedPieces []board.Piece `json:"capturedPieces"`
}

// PlayerBinding records whether a side is played by a human.
type PlayerBinding struct {
	Side    board.Side `json:"side"`
	IsHuman bool       `json:"isHuman"`
}

// Players holds the binding of both sides.
type Players struct {
	Attacker PlayerBinding `json:"ATTACKER"`
	Defender PlayerBinding `json:"DEFENDER"`
}

// Of returns the binding for a side.
func (p Players) Of(side board.Side) PlayerBinding {
	if side == board.Attacker {
		return p.Attacker
	}
	return p.Defender
}

// State is a complete game snapshot. It is the unit exchanged with the
// transport and persistence layers, so its JSON shape is the wire contract.
type State struct {
	ID                string         `json:"id"`
	Version           int            `json:"version"`
	Phase             Phase          `json:"phase"`
	SideToMove        board.Side     `json:"sideToMove"`
	Board             board.Board    `json:"board"`
	KingHasLeftThrone bool           `json:"kingHasLeftThrone"`
	HumanSide         board.Side     `json:"humanSide"`
	BotSide           board.Side     `json:"botSide"`
	Players           Players        `json:"players"`
	Winner            board.Side     `json:"winnerSide"`
	Difficulty        Difficulty     `json:"difficulty"`
	LegalMoves        []Move         `json:"legalMoves"`
	MoveHistory       []MoveRecord   `json:"moveHistory"`
	PositionCounts    map[string]int `json:"positionCounts"`
}

// IsOver returns true once a winner has been decided.
func (s *State) IsOver() bool {
	return s.Phase == GameOver
}

// Hash returns the position hash of the state.
func (s *State) Hash() string {
	return PositionHash(&s.Board, s.SideToMove, s.KingHasLeftThrone)
}

// FindLegal returns the cached legal move matching the step, if any.
func (s *State) FindLegal(step board.Step) (Move, bool) {
	for _, m := range s.LegalMoves {
		if m.From == step.From && m.To == step.To {
			return m, true
		}
	}
	return Move{}, false
}

// Outcome is the result of applying a move.
type Outcome struct {
	State               *State
	Captured            []Capture
	Winner              board.Side
	IllegalByRepetition bool
}

// CapturedPositions returns the cells emptied by the move.
func (o Outcome) CapturedPositions() []board.Pos {
	out := make([]board.Pos, len(o.Captured))
	for i, c := range o.Captured {
		out[i] = c.Pos
	}
	return out
}
