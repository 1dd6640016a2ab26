// Package engine classifies discovered tiles and schedules the work per position.
//
// Every position of the tile buffer is handed to exactly one worker, which walks
// the duplicates in discovery order and either records a complete winner,
// discards dataless captures, or queues incomplete captures for merging.
package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/eak1mov/go-tilemerge/merge"
	"github.com/eak1mov/go-tilemerge/progress"
	"github.com/eak1mov/go-tilemerge/tile"
	"github.com/eak1mov/go-tilemerge/tileindex"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of classification.
type Result struct {
	Complete *CompleteTable
	Queue    *merge.Queue
	// Incomplete lists every incomplete tile that was queued, including those
	// whose job was later discarded in favour of a complete duplicate.
	Incomplete []*tile.Tile

	Dataless int
	Skipped  int
	Failed   int
}

type config struct {
	Classifier Classifier
	Workers    int
	Logger     *slog.Logger
	Progress   *progress.Counter
}

type Option func(*config)

func WithClassifier(classifier Classifier) Option {
	return func(c *config) { c.Classifier = classifier }
}

func WithWorkers(workers int) Option {
	return func(c *config) { c.Workers = workers }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.Logger = logger }
}

func WithProgress(counter *progress.Counter) Option {
	return func(c *config) { c.Progress = counter }
}

// Engine runs classification with a bounded number of workers.
type Engine struct {
	classifier Classifier
	workers    int
	logger     *slog.Logger
	progress   *progress.Counter
}

func New(opts ...Option) *Engine {
	config := config{
		Classifier: DefaultClassifier(),
		Workers:    1,
		Logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Engine{
		classifier: config.Classifier,
		workers:    max(config.Workers, 1),
		logger:     config.Logger,
		progress:   config.Progress,
	}
}

type run struct {
	*Engine
	result *Result
	mu     sync.Mutex // guards result counters and Incomplete
}

// Run classifies every position of buf. Cancellation stops scheduling new
// positions; positions already started finish. The returned result holds what
// was classified before cancellation, together with ctx.Err().
func (e *Engine) Run(ctx context.Context, buf *tileindex.Buffer) (*Result, error) {
	r := &run{
		Engine: e,
		result: &Result{
			Complete: NewCompleteTable(),
			Queue:    merge.NewQueue(),
		},
	}

	ids := buf.IDs()
	tile.SortIDs(ids)

	e.logger.Debug("tilemerge: classify", "positions", len(ids), "tiles", buf.TileCount())

	var g errgroup.Group
	g.SetLimit(e.workers)
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		tiles := buf.Tiles(id)
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			r.classifyPosition(id, tiles)
			return nil
		})
	}
	g.Wait()

	e.logger.Debug("tilemerge: classify done",
		"complete", r.result.Complete.Len(),
		"jobs", r.result.Queue.Len(),
		"dataless", r.result.Dataless,
		"failed", r.result.Failed,
	)
	return r.result, ctx.Err()
}

// classifyPosition processes the duplicates of one position in order.
// Only this call touches the position's table entries.
func (r *run) classifyPosition(id tile.ID, tiles []*tile.Tile) {
	for _, t := range tiles {
		if _, ok := r.result.Complete.Get(id); ok {
			r.count(&r.result.Skipped)
			r.progress.Add(1)
			continue
		}

		class, err := r.classifier.Classify(t)
		t.Release()
		if err != nil {
			r.logger.Error("tilemerge: cannot classify tile", "region", id, "atlas", t.Atlas, "path", t.Path, "err", err)
			r.count(&r.result.Failed)
			r.progress.Add(1)
			continue
		}

		switch class {
		case ClassDataless:
			r.logger.Debug("tilemerge: dataless tile", "region", id, "atlas", t.Atlas)
			r.count(&r.result.Dataless)
			r.progress.Add(1)

		case ClassComplete:
			r.result.Complete.Set(t)
			if n := r.result.Queue.Discard(id); n > 0 {
				r.logger.Debug("tilemerge: merge job superseded", "region", id, "tiles", n)
				r.progress.Add(int64(n))
			}
			r.progress.Add(1)

		case ClassIncomplete:
			r.result.Queue.Append(t)
			r.mu.Lock()
			r.result.Incomplete = append(r.result.Incomplete, t)
			r.mu.Unlock()
		}
	}
}

func (r *run) count(n *int) {
	r.mu.Lock()
	*n++
	r.mu.Unlock()
}
