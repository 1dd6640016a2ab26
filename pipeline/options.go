package pipeline

import (
	"image/color"
	"log/slog"

	"github.com/eak1mov/go-tilemerge/engine"
	"github.com/eak1mov/go-tilemerge/fusion"
	"github.com/eak1mov/go-tilemerge/progress"
	"github.com/eak1mov/go-tilemerge/xyz"
)

type config struct {
	Workers           int
	Algorithm         string
	Registry          *fusion.Registry
	Logger            *slog.Logger
	Progress          chan<- progress.Update
	Sentinel          color.RGBA
	CompleteThreshold float64
	Quality           int
	FusionWorkers     int
	MemoryBudget      int64
}

func defaultConfig() config {
	return config{
		Workers:           1,
		Algorithm:         fusion.DefaultAlgorithm,
		Registry:          fusion.Builtin(),
		Logger:            slog.New(slog.DiscardHandler),
		Sentinel:          engine.Sentinel,
		CompleteThreshold: engine.CompleteThreshold,
		Quality:           xyz.DefaultQuality,
	}
}

type Option func(*config)

// WithWorkers sets the size of the worker pool used by every parallel phase.
func WithWorkers(workers int) Option {
	return func(c *config) { c.Workers = workers }
}

// WithAlgorithm selects the fusion algorithm by registry name.
func WithAlgorithm(name string) Option {
	return func(c *config) { c.Algorithm = name }
}

// WithRegistry replaces the registry the algorithm name is resolved against.
func WithRegistry(registry *fusion.Registry) Option {
	return func(c *config) { c.Registry = registry }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.Logger = logger }
}

// WithProgress delivers cumulative progress to updates. Intermediate snapshots
// are dropped while the consumer is busy, but Run blocks until the final
// snapshot is taken, so the consumer must keep receiving until Run returns.
func WithProgress(updates chan<- progress.Update) Option {
	return func(c *config) { c.Progress = updates }
}

// WithSentinel sets the colour that marks dataless tiles.
func WithSentinel(sentinel color.RGBA) Option {
	return func(c *config) { c.Sentinel = sentinel }
}

// WithCompleteThreshold sets the white distance used by the completeness test.
func WithCompleteThreshold(threshold float64) Option {
	return func(c *config) { c.CompleteThreshold = threshold }
}

func WithJPEGQuality(quality int) Option {
	return func(c *config) { c.Quality = quality }
}

// WithParallelFusion splits every fusion into row bands fused by workers goroutines.
func WithParallelFusion(workers int) Option {
	return func(c *config) { c.FusionWorkers = workers }
}

// WithMemoryBudget bounds the decoded pixel bytes held by concurrent merge jobs.
func WithMemoryBudget(bytes int64) Option {
	return func(c *config) { c.MemoryBudget = bytes }
}
