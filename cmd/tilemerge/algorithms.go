package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/eak1mov/go-tilemerge/fusion"
	"github.com/google/subcommands"
)

type algorithmsCmd struct{}

func (c *algorithmsCmd) Name() string             { return "algorithms" }
func (c *algorithmsCmd) Synopsis() string         { return "list fusion algorithms" }
func (c *algorithmsCmd) Usage() string            { return "tilemerge algorithms\n" }
func (c *algorithmsCmd) SetFlags(_ *flag.FlagSet) {}

func (c *algorithmsCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	for name, alg := range fusion.Builtin().All() {
		params := alg.Params()
		marker := ""
		if name == fusion.DefaultAlgorithm {
			marker = " (default)"
		}
		fmt.Printf("%s%s: white=%g likeness=%g blend=%g\n",
			name, marker, params.WhiteThreshold, params.LikenessThreshold, params.BlendAmount)
	}
	return subcommands.ExitSuccess
}
