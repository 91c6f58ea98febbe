package engine

import (
	"math"
	"sync"

	"github.com/hailam/tablutplay/internal/board"
	"github.com/hailam/tablutplay/internal/rules"
)

// Worker scores root candidates handed to it by a parallel root search.
// Each worker has its own Searcher; nothing is shared between workers but
// the read-only root state.
type Worker struct {
	id       int
	searcher *Searcher

	// Communication channel for results
	resultCh chan<- WorkerResult
}

// WorkerResult is the score of one root candidate.
type WorkerResult struct {
	WorkerID int
	Index    int // Position of the move in the candidate list
	Move     rules.Move
	Score    float64
	Skipped  bool // The move broke the repetition rule or failed to apply
}

type rootJob struct {
	index int
	move  rules.Move
}

// NewWorker creates a search worker for the bot side of searcher.
func NewWorker(id int, searcher *Searcher, ch chan<- WorkerResult) *Worker {
	return &Worker{id: id, searcher: searcher, resultCh: ch}
}

// Nodes returns the number of nodes searched by this worker.
func (w *Worker) Nodes() uint64 {
	return w.searcher.Nodes()
}

// Run scores jobs until the channel is closed. Each candidate is searched
// depth-1 plies below the root with a full window.
func (w *Worker) Run(st *rules.State, depth int, jobs <-chan rootJob) {
	for job := range jobs {
		res := WorkerResult{WorkerID: w.id, Index: job.index, Move: job.move}
		out, err := rules.Apply(st, job.move.Step(), w.searcher.botSide, rules.ResultOnly)
		if err != nil || out.IllegalByRepetition {
			res.Skipped = true
		} else {
			res.Score = w.searcher.Minimax(out.State, depth-1, math.Inf(-1), math.Inf(1))
		}
		w.resultCh <- res
	}
}

// SearchRootParallel is SearchRoot spread over threads workers. Results are
// merged in candidate order, so the tied set matches the sequential search.
func SearchRootParallel(st *rules.State, depth int, botSide board.Side, threads int) (RootResult, uint64, error) {
	if threads <= 1 {
		s := NewSearcher(botSide)
		res, err := s.SearchRoot(st, depth)
		return res, s.Nodes(), err
	}
	moves, depth, err := rootCandidates(st, depth, botSide)
	if err != nil {
		return RootResult{}, 0, err
	}
	threads = min(threads, len(moves))

	jobs := make(chan rootJob, len(moves))
	results := make(chan WorkerResult, len(moves))
	workers := make([]*Worker, threads)

	var wg sync.WaitGroup
	for i := range workers {
		workers[i] = NewWorker(i, NewSearcher(botSide), results)
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			w.Run(st, depth, jobs)
		}(workers[i])
	}
	for i, m := range moves {
		jobs <- rootJob{index: i, move: m}
	}
	close(jobs)
	wg.Wait()
	close(results)

	scored := make([]WorkerResult, len(moves))
	for r := range results {
		scored[r.Index] = r
	}

	var nodes uint64
	for _, w := range workers {
		nodes += w.Nodes()
	}

	res, err := mergeRoot(scored)
	return res, nodes, err
}
