// Package pipeline reconciles duplicate atlas tiles into a single tile tree.
//
// A run scans the input root, classifies every tile position, copies complete
// winners to the output, fuses incomplete duplicates and finally removes the
// scratch tree under the output root.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/eak1mov/go-tilemerge/atlas"
	"github.com/eak1mov/go-tilemerge/engine"
	"github.com/eak1mov/go-tilemerge/fusion"
	"github.com/eak1mov/go-tilemerge/merge"
	"github.com/eak1mov/go-tilemerge/progress"
	"github.com/eak1mov/go-tilemerge/tile"
	"github.com/eak1mov/go-tilemerge/xyz"
	"golang.org/x/sync/errgroup"
)

// Stats summarizes a run.
type Stats struct {
	Atlases    int
	Tiles      int
	Positions  int
	Duplicates int // positions found in more than one atlas

	Dataless int
	Complete int
	Skipped  int // tiles ignored because their position already had a winner

	Jobs   int
	Copied int // incomplete tiles copied unmerged
	Fused  int
	Failed int // tiles or jobs abandoned on an I/O or decode error

	Cancelled bool
}

// Pipeline is one configured reconciliation. It holds no state between runs.
type Pipeline struct {
	input     string
	output    string
	algorithm fusion.Algorithm
	config    config
}

// New validates the configuration. An unknown fusion algorithm is reported as
// ErrInvalidFusionAlgorithm.
func New(inputPath, outputPath string, opts ...Option) (*Pipeline, error) {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	alg, err := config.Registry.Lookup(config.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFusionAlgorithm, err)
	}

	return &Pipeline{
		input:     inputPath,
		output:    outputPath,
		algorithm: alg,
		config:    config,
	}, nil
}

// Algorithm returns the resolved fusion algorithm.
func (p *Pipeline) Algorithm() fusion.Algorithm {
	return p.algorithm
}

// Run executes the pipeline. Path errors abort before any work starts and are
// reported as ErrInvalidPath. Per-tile failures are logged and counted in
// Stats.Failed. On cancellation Run returns the partial stats and ctx.Err();
// output written before that is kept.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	logger := p.config.Logger
	var stats Stats

	output, err := p.prepare()
	if err != nil {
		return stats, err
	}

	index, err := atlas.Scan(p.input, atlas.WithLogger(logger), atlas.WithWorkers(p.config.Workers))
	if err != nil {
		return stats, fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}

	buf := index.Buffer()
	stats.Atlases = len(index.Atlases)
	stats.Tiles = buf.TileCount()
	stats.Positions = buf.Len()
	stats.Duplicates = buf.Duplicates()
	logger.Info("tilemerge: discovered tiles",
		"atlases", stats.Atlases,
		"tiles", stats.Tiles,
		"positions", stats.Positions,
		"duplicates", stats.Duplicates,
	)

	counter := progress.NewCounter(int64(stats.Tiles), p.config.Progress)
	defer counter.Finish()

	classifier := engine.Classifier{Sentinel: p.config.Sentinel, WhiteThreshold: p.config.CompleteThreshold}
	result, err := engine.New(
		engine.WithClassifier(classifier),
		engine.WithWorkers(p.config.Workers),
		engine.WithLogger(logger),
		engine.WithProgress(counter),
	).Run(ctx, buf)
	buf.Reset()

	stats.Dataless = result.Dataless
	stats.Complete = result.Complete.Len()
	stats.Skipped = result.Skipped
	stats.Failed = result.Failed
	if err != nil {
		stats.Cancelled = true
		return stats, err
	}
	logger.Info("tilemerge: classified tiles",
		"complete", stats.Complete,
		"dataless", stats.Dataless,
		"jobs", result.Queue.Len(),
		"failed", stats.Failed,
	)

	scratch := xyz.NewTree(filepath.Join(output.Root(), xyz.ScratchDir))
	defer func() {
		if err := scratch.Remove(); err != nil {
			logger.Error("tilemerge: cannot remove scratch tree", "path", scratch.Root(), "err", err)
		}
	}()

	failed := p.materialize(ctx, output, scratch, result)
	stats.Failed += failed
	if err := ctx.Err(); err != nil {
		stats.Cancelled = true
		return stats, err
	}

	mergeStats, err := merge.NewEngine(p.algorithm, output, scratch,
		merge.WithWorkers(p.config.Workers),
		merge.WithFusionWorkers(p.config.FusionWorkers),
		merge.WithQuality(p.config.Quality),
		merge.WithMemoryBudget(p.config.MemoryBudget),
		merge.WithLogger(logger),
		merge.WithProgress(counter),
	).Run(ctx, result.Queue)

	stats.Jobs = mergeStats.Jobs
	stats.Copied = mergeStats.Copied
	stats.Fused = mergeStats.Fused
	stats.Failed += mergeStats.Failed
	if err != nil {
		stats.Cancelled = true
		return stats, err
	}

	logger.Info("tilemerge: done",
		"complete", stats.Complete,
		"fused", stats.Fused,
		"copied", stats.Copied,
		"failed", stats.Failed,
	)
	return stats, nil
}

// prepare checks the input root and creates the output root.
func (p *Pipeline) prepare() (*xyz.Tree, error) {
	info, err := os.Stat(p.input)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidPath, p.input)
	}

	output, err := xyz.Create(p.output)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}
	return output, nil
}

// materialize copies complete winners to the output tree and raw incomplete
// tiles to the scratch tree. Both passes share one worker pool and finish
// before merging starts. It returns the number of failed copies.
func (p *Pipeline) materialize(ctx context.Context, output, scratch *xyz.Tree, result *engine.Result) int {
	var failed atomic.Int64

	copyTile := func(dst *xyz.Tree, t *tile.Tile, name string) func() error {
		return func() error {
			if ctx.Err() != nil {
				return nil
			}
			if _, err := dst.Copy(t.Path, t.ID, name); err != nil {
				failed.Add(1)
				p.config.Logger.Error("tilemerge: cannot copy tile",
					"region", t.ID, "atlas", t.Atlas, "path", t.Path, "err", err)
			}
			return nil
		}
	}

	var g errgroup.Group
	g.SetLimit(max(p.config.Workers, 1))

	for _, t := range result.Complete.All() {
		if ctx.Err() != nil {
			break
		}
		g.Go(copyTile(output, t, t.Name()))
	}
	for _, t := range result.Incomplete {
		if ctx.Err() != nil {
			break
		}
		g.Go(copyTile(scratch, t, xyz.ScratchName(t.ID, t.Atlas)))
	}
	g.Wait()

	p.config.Logger.Debug("tilemerge: materialized tiles",
		"complete", result.Complete.Len(),
		"scratch", len(result.Incomplete),
		"failed", failed.Load(),
		"output", output.Root(),
	)
	return int(failed.Load())
}
