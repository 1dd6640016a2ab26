package pipeline_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/eak1mov/go-tilemerge/engine"
	"github.com/eak1mov/go-tilemerge/fusion"
	"github.com/eak1mov/go-tilemerge/internal/testutil"
	"github.com/eak1mov/go-tilemerge/pipeline"
	"github.com/eak1mov/go-tilemerge/pixel"
	"github.com/eak1mov/go-tilemerge/progress"
	"github.com/eak1mov/go-tilemerge/tile"
	"github.com/eak1mov/go-tilemerge/xyz"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const size = 16

func partial(r image.Rectangle, c color.RGBA) *image.RGBA {
	img := testutil.Solid(size, size, pixel.White)
	testutil.FillRect(img, r, c)
	return img
}

func run(t *testing.T, input string, opts ...pipeline.Option) (string, pipeline.Stats) {
	t.Helper()

	output := filepath.Join(t.TempDir(), "out")
	p, err := pipeline.New(input, output, append([]pipeline.Option{pipeline.WithWorkers(4)}, opts...)...)
	require.NoError(t, err)

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	require.NoDirExists(t, filepath.Join(output, xyz.ScratchDir))
	return output, stats
}

// readTree returns every file under root keyed by its slash separated relative path.
func readTree(t *testing.T, root string) map[string][]byte {
	t.Helper()

	files := make(map[string][]byte)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = data
		return nil
	})
	require.NoError(t, err)
	return files
}

func TestSingleCompleteTile(t *testing.T) {
	input := t.TempDir()
	src := testutil.AddTile(t, input, "north", tile.ID{Z: 1, Y: 0, X: 0}, testutil.Solid(size, size, color.RGBA{R: 10, G: 20, B: 30, A: 255}))

	output, stats := run(t, input)

	want, err := os.ReadFile(src)
	require.NoError(t, err)
	if diff := cmp.Diff(map[string][]byte{"1/0/0.bmp": want}, readTree(t, output)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, 1, stats.Complete)
	require.Equal(t, 0, stats.Jobs)
}

func TestComplementaryTiles(t *testing.T) {
	input := t.TempDir()
	id := tile.ID{Z: 2, Y: 3, X: 4}
	testutil.AddTile(t, input, "north", id, partial(image.Rect(0, 0, 8, size), color.RGBA{R: 30, G: 60, B: 90, A: 255}))
	testutil.AddTile(t, input, "south", id, partial(image.Rect(8, 0, size, size), color.RGBA{R: 90, G: 30, B: 60, A: 255}))

	output, stats := run(t, input)

	file, err := os.Open(filepath.Join(output, "2", "3", "4.jpg"))
	require.NoError(t, err)
	defer file.Close()
	img, err := jpeg.Decode(file)
	require.NoError(t, err)

	rgba := tile.ToRGBA(img)
	require.Equal(t, image.Rect(0, 0, size, size), rgba.Bounds())
	require.False(t, pixel.Any(rgba, func(c color.RGBA) bool { return pixel.NearWhite(c, 20) }),
		"fused tile has blank pixels")

	require.Equal(t, pipeline.Stats{
		Atlases: 2, Tiles: 2, Positions: 1, Duplicates: 1,
		Jobs: 1, Fused: 1,
	}, stats)
}

func TestFoldOrder(t *testing.T) {
	input := t.TempDir()
	id := tile.ID{Z: 5, Y: 7, X: 9}
	a := partial(image.Rect(0, 0, 10, size), color.RGBA{R: 120, G: 40, B: 40, A: 255})
	b := partial(image.Rect(6, 0, size, 10), color.RGBA{R: 40, G: 120, B: 40, A: 255})
	c := partial(image.Rect(4, 4, size, size), color.RGBA{R: 40, G: 40, B: 120, A: 255})
	testutil.AddTile(t, input, "a", id, a)
	testutil.AddTile(t, input, "b", id, b)
	testutil.AddTile(t, input, "c", id, c)

	output, _ := run(t, input)

	alg := fusion.DefaultStandard()
	ab, err := fusion.Images(alg, a, b)
	require.NoError(t, err)
	abc, err := fusion.Images(alg, ab, c)
	require.NoError(t, err)

	var want bytes.Buffer
	require.NoError(t, jpeg.Encode(&want, abc, &jpeg.Options{Quality: xyz.DefaultQuality}))

	got, err := os.ReadFile(filepath.Join(output, "5", "7", "9.jpg"))
	require.NoError(t, err)
	require.Equal(t, want.Bytes(), got)
}

func TestDatalessAndSuperseded(t *testing.T) {
	input := t.TempDir()
	empty := tile.ID{Z: 3, Y: 1, X: 1}
	covered := tile.ID{Z: 3, Y: 2, X: 2}

	testutil.AddTile(t, input, "a", empty, testutil.Solid(size, size, engine.Sentinel))
	testutil.AddTile(t, input, "a", covered, partial(image.Rect(0, 0, 8, size), color.RGBA{R: 10, A: 255}))
	winner := testutil.AddTile(t, input, "b", covered, testutil.Solid(size, size, color.RGBA{G: 10, A: 255}))
	testutil.AddTile(t, input, "c", covered, testutil.Solid(size, size, color.RGBA{B: 10, A: 255}))

	updates := make(chan progress.Update, 100)
	output, stats := run(t, input, pipeline.WithProgress(updates))
	close(updates)

	want, err := os.ReadFile(winner)
	require.NoError(t, err)
	if diff := cmp.Diff(map[string][]byte{"3/2/2.bmp": want}, readTree(t, output)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}

	require.Equal(t, 1, stats.Dataless)
	require.Equal(t, 1, stats.Complete)
	require.Equal(t, 1, stats.Skipped)
	require.Equal(t, 0, stats.Jobs)

	var last int64
	for u := range updates {
		require.Equal(t, int64(4), u.Total)
		last = max(last, u.Done)
	}
	require.Equal(t, int64(4), last)
}

func TestProgressFinalUpdate(t *testing.T) {
	input := t.TempDir()
	for i, name := range []string{"north", "south"} {
		for x := uint32(0); x < 8; x++ {
			id := tile.ID{Z: 4, Y: 3, X: x}
			r := image.Rect(i*8, 0, i*8+8, size)
			testutil.AddTile(t, input, name, id, partial(r, color.RGBA{R: 40, G: 60, B: 80, A: 255}))
		}
	}

	// Unbuffered, so most intermediate snapshots are dropped.
	updates := make(chan progress.Update)
	received := make(chan []progress.Update)
	go func() {
		var got []progress.Update
		for u := range updates {
			got = append(got, u)
		}
		received <- got
	}()

	_, stats := run(t, input, pipeline.WithProgress(updates))
	close(updates)
	got := <-received

	require.Equal(t, 16, stats.Tiles)
	require.Equal(t, 8, stats.Fused)
	require.NotEmpty(t, got)
	require.Equal(t, progress.Update{Done: 16, Total: 16}, got[len(got)-1])
}

func TestIdempotent(t *testing.T) {
	input := t.TempDir()
	for i, name := range []string{"north", "south", "east"} {
		for x := uint32(0); x < 4; x++ {
			id := tile.ID{Z: 2, Y: 1, X: x}
			r := image.Rect(i*5, 0, i*5+6, size)
			testutil.AddTile(t, input, name, id, partial(r, color.RGBA{R: uint8(40 * i), G: uint8(20 * x), B: 80, A: 255}))
		}
	}
	testutil.AddTile(t, input, "west", tile.ID{Z: 2, Y: 2, X: 0}, testutil.Solid(size, size, color.RGBA{A: 255}))

	first, _ := run(t, input)
	second, _ := run(t, input, pipeline.WithWorkers(1), pipeline.WithParallelFusion(3))

	got, want := readTree(t, second), readTree(t, first)
	require.Len(t, want, 5)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
}

func TestCancelled(t *testing.T) {
	input := t.TempDir()
	testutil.AddTile(t, input, "north", tile.ID{Z: 1, Y: 0, X: 0}, testutil.Solid(size, size, color.RGBA{A: 255}))

	output := filepath.Join(t.TempDir(), "out")
	p, err := pipeline.New(input, output)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, stats.Cancelled)
	require.Empty(t, readTree(t, output))
}

func TestInvalidPath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	for _, tc := range []struct {
		name          string
		input, output string
	}{
		{"missing input", filepath.Join(dir, "missing"), filepath.Join(dir, "out1")},
		{"input is a file", file, filepath.Join(dir, "out2")},
		{"output under a file", dir, filepath.Join(file, "out")},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p, err := pipeline.New(tc.input, tc.output)
			require.NoError(t, err)

			_, err = p.Run(context.Background())
			require.ErrorIs(t, err, pipeline.ErrInvalidPath)
		})
	}
}

func TestInvalidFusionAlgorithm(t *testing.T) {
	_, err := pipeline.New(t.TempDir(), t.TempDir(), pipeline.WithAlgorithm("nope"))
	require.ErrorIs(t, err, pipeline.ErrInvalidFusionAlgorithm)
	require.ErrorIs(t, err, fusion.ErrUnknownAlgorithm)

	p, err := pipeline.New(t.TempDir(), t.TempDir(), pipeline.WithAlgorithm("lab"))
	require.NoError(t, err)
	require.Equal(t, "lab", p.Algorithm().Name())
}

func TestCustomRegistry(t *testing.T) {
	input := t.TempDir()
	id := tile.ID{Z: 1, Y: 1, X: 1}
	grey := color.RGBA{R: 200, G: 200, B: 200, A: 255}
	testutil.AddTile(t, input, "a", id, testutil.Solid(size, size, grey))
	testutil.AddTile(t, input, "b", id, partial(image.Rect(8, 0, size, size), color.RGBA{R: 20, G: 20, B: 20, A: 255}))

	// With wide thresholds the light grey counts as blank paper: both tiles
	// are incomplete and the fused tile keeps only the dark half.
	registry := fusion.NewRegistry(fusion.NewStandard(fusion.Params{WhiteThreshold: 150, LikenessThreshold: 10, BlendAmount: 1}))
	output, stats := run(t, input,
		pipeline.WithRegistry(registry),
		pipeline.WithCompleteThreshold(150),
	)
	require.Equal(t, 0, stats.Complete)
	require.Equal(t, 1, stats.Fused)

	file, err := os.Open(filepath.Join(output, "1", "1", "1.jpg"))
	require.NoError(t, err)
	defer file.Close()
	img, err := jpeg.Decode(file)
	require.NoError(t, err)

	rgba := tile.ToRGBA(img)
	require.True(t, pixel.NearWhite(rgba.RGBAAt(2, 8), 20), "left half = %v", rgba.RGBAAt(2, 8))
	require.False(t, pixel.NearWhite(rgba.RGBAAt(13, 8), 150), "right half = %v", rgba.RGBAAt(13, 8))
}

func TestCustomSentinel(t *testing.T) {
	input := t.TempDir()
	sentinel := color.RGBA{R: 1, G: 2, B: 3, A: 255}
	testutil.AddTile(t, input, "a", tile.ID{Z: 0}, testutil.Solid(size, size, sentinel))
	testutil.AddTile(t, input, "a", tile.ID{Z: 1}, testutil.Solid(size, size, engine.Sentinel))

	output, stats := run(t, input, pipeline.WithSentinel(sentinel))
	require.Equal(t, 1, stats.Dataless)
	require.Equal(t, 0, stats.Complete)
	require.Equal(t, 1, stats.Copied)
	require.FileExists(t, filepath.Join(output, "1", "0", "0.bmp"))
	require.NoFileExists(t, filepath.Join(output, "0", "0", "0.bmp"))
}
