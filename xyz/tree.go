// Package xyz reads and writes tile trees laid out as "<root>/<z>/<y>/<file>",
// where the file base name is the tile column.
package xyz

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/eak1mov/go-tilemerge/tile"
)

// ScratchDir is the name of the scratch tree inside the output root.
const ScratchDir = "_temp"

// DefaultQuality is the JPEG quality used for merged tiles.
const DefaultQuality = 90

var ErrInvalidRoot = errors.New("tilemerge: invalid tree root")

// Tree is a tile directory tree.
type Tree struct {
	root string
}

// NewTree returns a Tree rooted at root. The directory is created on first write.
func NewTree(root string) *Tree {
	return &Tree{root: root}
}

// Create returns a Tree rooted at root, creating the directory if needed.
func Create(root string) (*Tree, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRoot, err)
	}
	return NewTree(root), nil
}

func (t *Tree) Root() string { return t.root }

// Dir returns the directory holding the tiles of id's row.
func (t *Tree) Dir(id tile.ID) string {
	return filepath.Join(t.root, strconv.FormatUint(uint64(id.Z), 10), strconv.FormatUint(uint64(id.Y), 10))
}

// Path returns the path of a tile file named name at id.
func (t *Tree) Path(id tile.ID, name string) string {
	return filepath.Join(t.Dir(id), name)
}

// Copy copies the file at src to the tile file named name at id.
func (t *Tree) Copy(src string, id tile.ID, name string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	dst := t.Path(id, name)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", err
	}
	return dst, out.Close()
}

// Encode writes img as a JPEG tile file named name at id.
func (t *Tree) Encode(img image.Image, id tile.ID, name string, quality int) (string, error) {
	dst := t.Path(id, name)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: quality}); err != nil {
		out.Close()
		return "", err
	}
	return dst, out.Close()
}

// Remove deletes the whole tree.
func (t *Tree) Remove() error {
	return os.RemoveAll(t.root)
}

// ScratchName returns the scratch file name of a raw incomplete tile.
func ScratchName(id tile.ID, atlas string) string {
	return fmt.Sprintf("%d_%s.jpg", id.X, atlas)
}

// ReadTile reads the first file at id whose base name is the tile column.
// If the tile does not exist, it returns an empty slice with no error.
func (t *Tree) ReadTile(id tile.ID) ([]byte, error) {
	entries, err := os.ReadDir(t.Dir(id))
	if os.IsNotExist(err) {
		return make([]byte, 0), nil
	}
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		x, ok := parseTileName(entry.Name())
		if ok && x == id.X {
			return os.ReadFile(filepath.Join(t.Dir(id), entry.Name()))
		}
	}
	return make([]byte, 0), nil
}

// VisitTiles visits every tile file of the tree in lexical path order.
// Entries that do not follow the layout, and the scratch tree, are skipped.
func (t *Tree) VisitTiles(visitor func(tile.ID, []byte) error) error {
	return filepath.WalkDir(t.root, func(filePath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(t.root, filePath)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")

		if d.IsDir() {
			if len(parts) == 1 && parts[0] == ScratchDir {
				return filepath.SkipDir
			}
			return nil
		}
		if len(parts) != 3 {
			return nil
		}

		z, okZ := parseDirName(parts[0])
		y, okY := parseDirName(parts[1])
		x, okX := parseTileName(parts[2])
		if !okZ || !okY || !okX {
			return nil
		}

		tileData, err := os.ReadFile(filePath)
		if err != nil {
			return err
		}
		return visitor(tile.ID{Z: z, Y: y, X: x}, tileData)
	})
}

func parseDirName(name string) (uint32, bool) {
	n, err := strconv.ParseUint(name, 10, 32)
	return uint32(n), err == nil
}

func parseTileName(name string) (uint32, bool) {
	return parseDirName(name[:len(name)-len(filepath.Ext(name))])
}
