package engine

import (
	"fmt"
	"math"

	"github.com/hailam/tablutplay/internal/board"
	"github.com/hailam/tablutplay/internal/rules"
)

// Searcher performs the alpha-beta search for one bot side. It is not safe
// for concurrent use; create one per search.
type Searcher struct {
	botSide board.Side
	nodes   uint64
}

// NewSearcher creates a searcher maximizing for botSide.
func NewSearcher(botSide board.Side) *Searcher {
	return &Searcher{botSide: botSide}
}

// Nodes returns the number of nodes visited so far.
func (s *Searcher) Nodes() uint64 {
	return s.nodes
}

// Minimax returns the alpha-beta value of st searched depth plies deep.
// The bot side maximizes, the other side minimizes. Moves that break the
// repetition rule are skipped at every ply.
func (s *Searcher) Minimax(st *rules.State, depth int, alpha, beta float64) float64 {
	s.nodes++
	if depth <= 0 || st.IsOver() {
		return Evaluate(st, s.botSide)
	}

	side := st.SideToMove
	moves := SelectCandidates(st, side, depth)
	if len(moves) == 0 {
		return Evaluate(st, s.botSide)
	}

	maximizing := side == s.botSide
	best := math.Inf(1)
	if maximizing {
		best = math.Inf(-1)
	}

	for _, m := range moves {
		out, err := rules.Apply(st, m.Step(), side, rules.ResultOnly)
		if err != nil || out.IllegalByRepetition {
			continue
		}
		score := s.Minimax(out.State, depth-1, alpha, beta)

		if maximizing {
			best = max(best, score)
			alpha = max(alpha, score)
		} else {
			best = min(best, score)
			beta = min(beta, score)
		}
		if beta <= alpha {
			break
		}
	}
	return best
}

// RootResult is the outcome of a root search.
type RootResult struct {
	Best       []rules.Move // Every candidate reaching Score
	Score      float64
	Candidates int
}

// SearchRoot scores every root candidate with a full window one ply deeper
// and collects the moves tied for the best score.
func (s *Searcher) SearchRoot(st *rules.State, depth int) (RootResult, error) {
	moves, depth, err := rootCandidates(st, depth, s.botSide)
	if err != nil {
		return RootResult{}, err
	}

	scored := make([]WorkerResult, len(moves))
	for i, m := range moves {
		scored[i] = WorkerResult{Index: i, Move: m}
		out, err := rules.Apply(st, m.Step(), s.botSide, rules.ResultOnly)
		if err != nil || out.IllegalByRepetition {
			scored[i].Skipped = true
			continue
		}
		scored[i].Score = s.Minimax(out.State, depth-1, math.Inf(-1), math.Inf(1))
	}
	return mergeRoot(scored)
}

// rootCandidates checks that botSide may move in st and returns its root
// candidates together with the effective depth (at least 1).
func rootCandidates(st *rules.State, depth int, botSide board.Side) ([]rules.Move, int, error) {
	if st.IsOver() {
		return nil, 0, rules.ErrGameOver
	}
	if st.SideToMove != botSide {
		return nil, 0, rules.Errorf(rules.KindBotNotOnTurn, fmt.Sprintf("%s to move", st.SideToMove))
	}
	depth = max(depth, 1)

	moves := SelectCandidates(st, botSide, depth)
	if len(moves) == 0 {
		return nil, 0, rules.ErrBotNoLegalMoves
	}
	return moves, depth, nil
}

// mergeRoot keeps the best score and every move reaching it, in candidate
// order.
func mergeRoot(scored []WorkerResult) (RootResult, error) {
	res := RootResult{Score: math.Inf(-1), Candidates: len(scored)}
	for _, r := range scored {
		if r.Skipped {
			continue
		}
		switch {
		case r.Score > res.Score:
			res.Score = r.Score
			res.Best = append(res.Best[:0], r.Move)
		case r.Score == res.Score:
			res.Best = append(res.Best, r.Move)
		}
	}
	if len(res.Best) == 0 {
		return RootResult{}, rules.ErrBotNoLegalMoves
	}
	return res, nil
}
