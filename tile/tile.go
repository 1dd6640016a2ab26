// Package tile provides tile identifiers, the Tile descriptor shared by all pipeline
// stages, and common tile set interfaces.
package tile

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
)

// ID identifies a logical tile position (zoom level, row, column).
// All duplicates of the same tile found in different atlases share the same ID,
// so ID is used as the region key throughout the pipeline.
type ID struct {
	Z uint32
	Y uint32
	X uint32
}

// String returns the delimited form "z/y/x". Distinct IDs never share a string.
func (t ID) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.Y, t.X)
}

// Coords returns the column/row pair of the tile.
func (t ID) Coords() Coordinate {
	return Coordinate{X: t.X, Y: t.Y}
}

// Valid reports whether the tile fits the 2^z × 2^z grid of the XYZ scheme.
func (t ID) Valid() bool {
	return t.Z < 32 && t.X < (1<<t.Z) && t.Y < (1<<t.Z)
}

// Coordinate is a column (X) and row (Y) pair within a zoom level.
type Coordinate struct {
	X uint32
	Y uint32
}

// Tile is one image occurrence: a file found in one atlas, or a synthetic
// image produced by fusing two tiles.
//
// The decoded image is loaded on first use and owned by the Tile. Callers must
// call Release once the pipeline no longer needs the pixels.
type Tile struct {
	Atlas string
	ID    ID
	Path  string

	mu  sync.Mutex
	img *image.RGBA
}

// New returns a Tile backed by the file at path.
func New(atlas string, id ID, path string) *Tile {
	return &Tile{Atlas: atlas, ID: id, Path: path}
}

// FromImage returns a synthetic Tile holding img, persisted at path.
func FromImage(id ID, path string, img *image.RGBA) *Tile {
	return &Tile{ID: id, Path: path, img: img}
}

// Name returns the file name of the tile source.
func (t *Tile) Name() string {
	return filepath.Base(t.Path)
}

// Image returns the decoded pixels, decoding the source file on first use.
func (t *Tile) Image() (*image.RGBA, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.img != nil {
		return t.img, nil
	}

	img, err := decodeFile(t.Path)
	if err != nil {
		return nil, err
	}
	t.img = img
	return img, nil
}

// Config returns the dimensions of the tile image without decoding pixels.
func (t *Tile) Config() (image.Config, error) {
	t.mu.Lock()
	img := t.img
	t.mu.Unlock()
	if img != nil {
		return image.Config{ColorModel: img.ColorModel(), Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}, nil
	}

	file, err := os.Open(t.Path)
	if err != nil {
		return image.Config{}, err
	}
	defer file.Close()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return image.Config{}, fmt.Errorf("%w: %s: %w", ErrDecode, t.Path, err)
	}
	return config, nil
}

// Loaded reports whether decoded pixels are currently held.
func (t *Tile) Loaded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.img != nil
}

// Release drops the decoded pixels. A later Image call decodes the file again.
func (t *Tile) Release() {
	t.mu.Lock()
	t.img = nil
	t.mu.Unlock()
}

func (t *Tile) String() string {
	if t.Atlas == "" {
		return t.ID.String()
	}
	return fmt.Sprintf("%v@%s", t.ID, t.Atlas)
}

// Writer defines an interface for writing tiles to a tileset.
type Writer interface {
	// WriteTile writes a single tile to the tileset.
	WriteTile(tileID ID, tileData []byte) error

	// Finalize completes the writing process: flushes buffers, writes indices.
	// It must be called before closing the Writer.
	Finalize() error
}

type Reader interface {
	// ReadTile reads a single tile from the tileset.
	// If the tile does not exist, it returns an empty slice with no error.
	ReadTile(tileID ID) ([]byte, error)
}

type Visitor interface {
	// VisitTiles visits all tiles in the tileset, calling the visitor for each.
	// Order of tiles is implementation-defined.
	VisitTiles(visitor func(ID, []byte) error) error
}
