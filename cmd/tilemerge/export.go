package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log"
	"log/slog"
	"path/filepath"

	"github.com/eak1mov/go-tilemerge/mb"
	"github.com/eak1mov/go-tilemerge/tile"
	"github.com/eak1mov/go-tilemerge/xyz"
	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"
)

type exportCmd struct {
	inputPath  string
	outputPath string
}

func (c *exportCmd) Name() string     { return "export" }
func (c *exportCmd) Synopsis() string { return "write a merged tile tree into an MBTiles archive" }
func (c *exportCmd) Usage() string {
	return "tilemerge export -i <path> -o <file.mbtiles>\n"
}
func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Merged tile tree root")
	f.StringVar(&c.outputPath, "o", "", "Output MBTiles file path")
}

func (c *exportCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.inputPath == "" || c.outputPath == "" {
		log.Println("both input and output paths are required")
		return subcommands.ExitUsageError
	}
	if err := exportArchive(c.inputPath, c.outputPath); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

var errArchiveMismatch = errors.New("tilemerge: archive does not match tile tree")

// verifySample is how many archived tiles are compared byte for byte with the
// tree after an export.
const verifySample = 256

// copyResult summarizes one copyTiles pass. Format is "jpg" when every
// written tile is a JPEG and empty otherwise.
type copyResult struct {
	Written int
	Skipped int
	Format  string
}

// exportArchive copies every tile of the tree at treeRoot into a new MBTiles
// archive and checks the archive against the tree. Tiles outside the XYZ grid
// are skipped with a warning.
func exportArchive(treeRoot, archivePath string) error {
	tree := xyz.NewTree(treeRoot)
	result, err := writeArchive(tree, archivePath, filepath.Base(treeRoot))
	if err != nil {
		return err
	}
	if result.Skipped > 0 {
		log.Printf("skipped %d tiles outside the xyz grid", result.Skipped)
	}
	return verifyArchive(tree, archivePath, result.Written)
}

func writeArchive(src tile.Visitor, archivePath, name string) (copyResult, error) {
	writer, err := mb.NewWriter(
		archivePath,
		mb.WithMetadata(map[string]string{"name": name}),
		mb.WithLogger(slog.Default()),
	)
	if err != nil {
		return copyResult{}, err
	}
	defer writer.Close()

	bar := progressbar.NewOptions(-1, progressbar.OptionShowIts(), progressbar.OptionShowCount())
	result, err := copyTiles(writer, src, func() { bar.Add(1) })
	bar.Finish()
	fmt.Println()
	if err != nil {
		return result, err
	}

	// The metadata format names a single encoding for the whole archive.
	if result.Format != "" {
		if err := writer.WriteMetadata("format", result.Format); err != nil {
			return result, err
		}
	}
	return result, writer.Finalize()
}

// copyTiles writes every tile of src to dst, counting the written tiles and
// the ones skipped for lying outside the XYZ grid.
func copyTiles(dst tile.Writer, src tile.Visitor, tick func()) (copyResult, error) {
	var result copyResult
	allJPEG := true
	err := src.VisitTiles(func(tileID tile.ID, tileData []byte) error {
		tick()
		err := dst.WriteTile(tileID, tileData)
		if errors.Is(err, mb.ErrOutOfRange) {
			slog.Warn("tilemerge: skipping tile", "region", tileID, "err", err)
			result.Skipped++
			return nil
		}
		if err != nil {
			return err
		}
		result.Written++
		if _, format, err := image.DecodeConfig(bytes.NewReader(tileData)); err != nil || format != "jpeg" {
			allJPEG = false
		}
		return nil
	})
	if allJPEG && result.Written > 0 {
		result.Format = "jpg"
	}
	return result, err
}

// verifyArchive reopens the archive and checks its tile count against written
// and the content of the first verifySample tiles against tree.
func verifyArchive(tree tile.Reader, archivePath string, written int) error {
	reader, err := mb.NewReader(archivePath)
	if err != nil {
		return err
	}
	defer reader.Close()

	metadata, err := reader.ReadMetadata()
	if err != nil {
		return err
	}
	slog.Debug("tilemerge: archive metadata", "metadata", metadata)

	count := 0
	var sample []tile.ID
	for tileID := range tile.IterTiles(reader) {
		count++
		if len(sample) < verifySample {
			sample = append(sample, tileID)
		}
	}
	if count != written {
		return fmt.Errorf("%w: %d tiles archived, %d written", errArchiveMismatch, count, written)
	}

	for _, tileID := range sample {
		archived, err := reader.ReadTile(tileID)
		if err != nil {
			return err
		}
		stored, err := tree.ReadTile(tileID)
		if err != nil {
			return err
		}
		if !bytes.Equal(archived, stored) {
			return fmt.Errorf("%w: tile %v differs", errArchiveMismatch, tileID)
		}
	}
	return nil
}
