// Package merge executes merge jobs: each job fuses the incomplete duplicates of
// one tile position into a single output tile.
package merge

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"

	"github.com/eak1mov/go-tilemerge/fusion"
	"github.com/eak1mov/go-tilemerge/progress"
	"github.com/eak1mov/go-tilemerge/tile"
	"github.com/eak1mov/go-tilemerge/xyz"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Stats summarizes a merge run.
type Stats struct {
	Jobs   int // jobs started
	Copied int // single-tile jobs copied unmerged
	Fused  int // jobs that produced a fused tile
	Failed int // jobs abandoned on an I/O or decode error
}

type config struct {
	Workers       int
	FusionWorkers int
	Quality       int
	MemoryBudget  int64
	Logger        *slog.Logger
	Progress      *progress.Counter
}

type Option func(*config)

func WithWorkers(workers int) Option {
	return func(c *config) { c.Workers = workers }
}

// WithFusionWorkers splits each fusion into row bands processed concurrently.
func WithFusionWorkers(workers int) Option {
	return func(c *config) { c.FusionWorkers = workers }
}

func WithQuality(quality int) Option {
	return func(c *config) { c.Quality = quality }
}

// WithMemoryBudget bounds the bytes of decoded pixels held by running jobs.
// Zero means unbounded.
func WithMemoryBudget(bytes int64) Option {
	return func(c *config) { c.MemoryBudget = bytes }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.Logger = logger }
}

func WithProgress(counter *progress.Counter) Option {
	return func(c *config) { c.Progress = counter }
}

// Engine executes merge jobs with a bounded number of workers.
type Engine struct {
	algorithm fusion.Algorithm
	output    *xyz.Tree
	scratch   *xyz.Tree

	workers       int
	fusionWorkers int
	quality       int
	budget        int64
	memory        *semaphore.Weighted
	logger        *slog.Logger
	progress      *progress.Counter
}

// NewEngine returns an engine fusing with algorithm, writing final tiles to
// output and intermediate tiles to scratch.
func NewEngine(algorithm fusion.Algorithm, output, scratch *xyz.Tree, opts ...Option) *Engine {
	config := config{
		Workers: 1,
		Quality: xyz.DefaultQuality,
		Logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}

	e := &Engine{
		algorithm:     algorithm,
		output:        output,
		scratch:       scratch,
		workers:       max(config.Workers, 1),
		fusionWorkers: config.FusionWorkers,
		quality:       config.Quality,
		budget:        config.MemoryBudget,
		logger:        config.Logger,
		progress:      config.Progress,
	}
	if e.budget > 0 {
		e.memory = semaphore.NewWeighted(e.budget)
	}
	return e
}

// Run executes every job of q. A failing job is logged and abandoned; other
// jobs continue. Cancellation stops starting new jobs and new fusion steps;
// output of jobs finished before that is kept.
func (e *Engine) Run(ctx context.Context, q *Queue) (Stats, error) {
	ids := q.IDs()
	e.logger.Debug("tilemerge: merge", "jobs", len(ids), "tiles", q.TileCount(), "algorithm", e.algorithm.Name())

	var jobs, copied, fused, failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(e.workers)
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		tiles := q.Clone(id)
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			jobs.Add(1)
			err := e.Execute(ctx, id, tiles)
			switch {
			case err == nil && len(tiles) == 1:
				copied.Add(1)
			case err == nil:
				fused.Add(1)
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				e.logger.Info("tilemerge: merge job cancelled", "region", id)
			default:
				failed.Add(1)
				e.logger.Error("tilemerge: merge job failed", "region", id, "err", err)
			}
			return nil
		})
	}
	g.Wait()

	stats := Stats{
		Jobs:   int(jobs.Load()),
		Copied: int(copied.Load()),
		Fused:  int(fused.Load()),
		Failed: int(failed.Load()),
	}
	e.logger.Debug("tilemerge: merge done", "jobs", stats.Jobs, "fused", stats.Fused, "failed", stats.Failed)
	return stats, ctx.Err()
}

// Execute runs the job for id. A single tile is copied unmerged; two or more
// are folded left to right: fuse(fuse(t0, t1), t2)...
func (e *Engine) Execute(ctx context.Context, id tile.ID, tiles []*tile.Tile) error {
	switch len(tiles) {
	case 0:
		return nil
	case 1:
		t := tiles[0]
		_, err := e.output.Copy(t.Path, id, t.Name())
		e.progress.Add(1)
		return err
	}

	release, err := e.reserve(ctx, tiles[0])
	if err != nil {
		return err
	}
	defer release()

	credited := 0
	credit := func(n int) {
		credited += n
		e.progress.Add(int64(n))
	}

	final, err := e.fold(ctx, id, tiles, credit)
	if err != nil {
		if ctx.Err() == nil {
			// abandoned: the remaining units will never be processed
			e.progress.Add(int64(len(tiles) - credited))
		}
		return err
	}

	_, err = e.output.Copy(final, id, OutputName(id))
	return err
}

func (e *Engine) fold(ctx context.Context, id tile.ID, tiles []*tile.Tile, credit func(int)) (string, error) {
	acc := tiles[0]
	defer func() { acc.Release() }()

	for i, next := range tiles[1:] {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		merged, err := e.fuse(ctx, acc, next)
		next.Release()
		if err != nil {
			return "", fmt.Errorf("fuse %v with %v: %w", acc, next, err)
		}

		name := intermediateName(e.scratch.Dir(id), tiles[0].Name())
		path, err := e.scratch.Encode(merged, id, name, e.quality)
		if err != nil {
			return "", err
		}

		acc.Release()
		acc = tile.FromImage(id, path, merged)

		if i == 0 {
			credit(2)
		} else {
			credit(1)
		}
	}
	return acc.Path, nil
}

func (e *Engine) fuse(ctx context.Context, a, b *tile.Tile) (*image.RGBA, error) {
	imgA, err := a.Image()
	if err != nil {
		return nil, err
	}
	imgB, err := b.Image()
	if err != nil {
		return nil, err
	}
	// A started fusion always runs to the end; cancellation is observed
	// between fold steps.
	return fusion.Parallel(context.WithoutCancel(ctx), e.algorithm, imgA, imgB, e.fusionWorkers)
}

// reserve blocks until the memory budget admits a job whose tiles look like t.
// A job holds at most three images at once: accumulator, next input and output.
func (e *Engine) reserve(ctx context.Context, t *tile.Tile) (func(), error) {
	if e.memory == nil {
		return func() {}, nil
	}
	config, err := t.Config()
	if err != nil {
		return nil, err
	}
	cost := min(int64(config.Width)*int64(config.Height)*4*3, e.budget)
	if err := e.memory.Acquire(ctx, cost); err != nil {
		return nil, err
	}
	return func() { e.memory.Release(cost) }, nil
}
