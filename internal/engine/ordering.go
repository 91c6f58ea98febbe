package engine

import (
	"slices"

	"github.com/hailam/tablutplay/internal/board"
	"github.com/hailam/tablutplay/internal/rules"
)

// Candidate pruning
const (
	pruneThreshold = 20  // Lists at or below this size are searched in full
	deepCap        = 18  // Candidates kept at depth >= deepCapDepth
	shallowCap     = 24  // Candidates kept at shallower depths
	deepCapDepth   = 4   // Depth from which deepCap applies
	captureWeight  = 100 // Per cell in the capture preview
)

// moveScore is the cheap ordering heuristic: captures first, then the
// longest slides.
func moveScore(m rules.Move) int {
	return len(m.CapturesPreview)*captureWeight + m.From.ManhattanDistance(m.To)
}

// SelectCandidates returns the moves searched for side at the given depth.
// Short lists are returned as generated. Longer ones are ordered by
// moveScore (ties keep generation order) and cut to deepCap or shallowCap.
func SelectCandidates(st *rules.State, side board.Side, depth int) []rules.Move {
	moves := rules.GenerateLegalMoves(st, side)
	if len(moves) <= pruneThreshold {
		return moves
	}

	slices.SortStableFunc(moves, func(a, b rules.Move) int {
		return moveScore(b) - moveScore(a)
	})

	limit := shallowCap
	if depth >= deepCapDepth {
		limit = deepCap
	}
	return moves[:limit]
}
