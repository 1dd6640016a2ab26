package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/eak1mov/go-tilemerge/fusion"
	"github.com/eak1mov/go-tilemerge/pipeline"
	"github.com/eak1mov/go-tilemerge/progress"
	"github.com/eak1mov/go-tilemerge/xyz"
	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"
)

type mergeCmd struct {
	configPath string
	config     mergeConfig
}

func (c *mergeCmd) Name() string     { return "merge" }
func (c *mergeCmd) Synopsis() string { return "reconcile atlas tiles into a single tile tree" }
func (c *mergeCmd) Usage() string {
	return "tilemerge merge -i <path> -o <path> [-j <workers> -a <algorithm> -config <file> -mbtiles <file> -v]\n"
}
func (c *mergeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "YAML configuration file")
	f.StringVar(&c.config.Input, "i", "", "Input root holding <name>_atlas directories")
	f.StringVar(&c.config.Output, "o", "", "Output root")
	f.IntVar(&c.config.Workers, "j", runtime.NumCPU(), "Number of workers")
	f.StringVar(&c.config.Algorithm, "a", fusion.DefaultAlgorithm, "Fusion algorithm")
	f.BoolVar(&c.config.Verbose, "v", false, "Verbose logging")
	f.IntVar(&c.config.FusionWorkers, "fusion-workers", 0, "Goroutines per fusion (0 fuses sequentially)")
	f.IntVar(&c.config.Quality, "quality", xyz.DefaultQuality, "JPEG quality of fused tiles")
	f.Int64Var(&c.config.MemoryBudget, "memory-budget", 0, "Bytes of decoded pixels held by merge jobs (0 is unbounded)")
	f.StringVar(&c.config.MBTiles, "mbtiles", "", "Also write the result into this MBTiles archive")
}

func (c *mergeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.configPath != "" {
		if err := loadConfig(c.configPath, &c.config, f); err != nil {
			log.Println("failed to load config:", err)
			return subcommands.ExitFailure
		}
	}
	if c.config.Input == "" || c.config.Output == "" {
		log.Println("both input and output paths are required")
		return subcommands.ExitUsageError
	}
	if c.config.Verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	updates := make(chan progress.Update, 64)
	p, err := pipeline.New(c.config.Input, c.config.Output,
		pipeline.WithWorkers(c.config.Workers),
		pipeline.WithAlgorithm(c.config.Algorithm),
		pipeline.WithLogger(slog.Default()),
		pipeline.WithProgress(updates),
		pipeline.WithJPEGQuality(c.config.Quality),
		pipeline.WithParallelFusion(c.config.FusionWorkers),
		pipeline.WithMemoryBudget(c.config.MemoryBudget),
	)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	bar := progressbar.NewOptions64(-1, progressbar.OptionShowCount(), progressbar.OptionSetDescription("merge"))
	drained := make(chan struct{})
	var last progress.Update
	go func() {
		defer close(drained)
		for u := range updates {
			if bar.GetMax64() != u.Total {
				bar.ChangeMax64(u.Total)
			}
			if u.Done > last.Done {
				last = u
				bar.Set64(u.Done)
			}
		}
	}()

	stats, err := p.Run(ctx)
	close(updates)
	<-drained
	bar.Finish()
	fmt.Println()

	printStats(stats)

	if errors.Is(err, context.Canceled) {
		log.Printf("cancelled at %d%%", last.Percent())
		return subcommands.ExitFailure
	}
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	if c.config.MBTiles != "" {
		if err := exportArchive(c.config.Output, c.config.MBTiles); err != nil {
			log.Println(err)
			return subcommands.ExitFailure
		}
	}

	if stats.Failed > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func printStats(stats pipeline.Stats) {
	fmt.Printf("atlases:    %d\n", stats.Atlases)
	fmt.Printf("tiles:      %d (%d positions, %d with duplicates)\n", stats.Tiles, stats.Positions, stats.Duplicates)
	fmt.Printf("complete:   %d\n", stats.Complete)
	fmt.Printf("dataless:   %d\n", stats.Dataless)
	fmt.Printf("merge jobs: %d (%d fused, %d copied)\n", stats.Jobs, stats.Fused, stats.Copied)
	if stats.Failed > 0 {
		fmt.Printf("failed:     %d\n", stats.Failed)
	}
}
