package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"

	"github.com/eak1mov/go-tilemerge/atlas"
	"github.com/google/subcommands"
)

type scanCmd struct {
	inputPath string
	verbose   bool
}

func (c *scanCmd) Name() string     { return "scan" }
func (c *scanCmd) Synopsis() string { return "summarize atlas directories without writing output" }
func (c *scanCmd) Usage() string {
	return "tilemerge scan -i <path> [-v]\n"
}
func (c *scanCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input root holding <name>_atlas directories")
	f.BoolVar(&c.verbose, "v", false, "Verbose logging")
}

func (c *scanCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	index, err := atlas.Scan(c.inputPath, atlas.WithLogger(slog.Default()))
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	for _, a := range index.Atlases {
		rows := 0
		for _, z := range a.Zooms {
			rows += len(z.Regions)
		}
		fmt.Printf("%s: %d zoom levels, %d rows, %d tiles\n", a.Name, len(a.Zooms), rows, a.TileCount())
	}

	buf := index.Buffer()
	fmt.Printf("total: %d tiles, %d positions, %d with duplicates\n", buf.TileCount(), buf.Len(), buf.Duplicates())

	return subcommands.ExitSuccess
}
