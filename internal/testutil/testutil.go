// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/eak1mov/go-tilemerge/tile"
	"golang.org/x/image/bmp"
)

// Solid returns a w×h image filled with c.
func Solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

// FillRect paints r of img with c.
func FillRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	draw.Draw(img, r, &image.Uniform{C: c}, image.Point{}, draw.Src)
}

// TilePath returns the path of the tile id inside atlas under root, following
// "<root>/<atlas>_atlas/<z>/<y>/<x><ext>".
func TilePath(root, atlas string, id tile.ID, ext string) string {
	return filepath.Join(
		root,
		atlas+"_atlas",
		strconv.FormatUint(uint64(id.Z), 10),
		strconv.FormatUint(uint64(id.Y), 10),
		strconv.FormatUint(uint64(id.X), 10)+ext,
	)
}

// WriteBMP encodes img at path, creating parent directories.
func WriteBMP(t *testing.T, path string, img image.Image) {
	t.Helper()

	file := create(t, path)
	defer file.Close()

	if err := bmp.Encode(file, img); err != nil {
		t.Fatal(err)
	}
}

// WriteJPEG encodes img at path with the given quality, creating parent directories.
func WriteJPEG(t *testing.T, path string, img image.Image, quality int) {
	t.Helper()

	file := create(t, path)
	defer file.Close()

	if err := jpeg.Encode(file, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatal(err)
	}
}

// AddTile writes img as a BMP tile of atlas under root and returns its path.
func AddTile(t *testing.T, root, atlas string, id tile.ID, img image.Image) string {
	t.Helper()

	path := TilePath(root, atlas, id, ".bmp")
	WriteBMP(t, path, img)
	return path
}

func create(t *testing.T, path string) *os.File {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	return file
}
