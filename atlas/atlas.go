// Package atlas discovers tiles exported by independent atlas scans.
//
// The expected layout is "<root>/<name>_atlas/<zoom>/<row>/<col>.<ext>".
// Scan walks this hierarchy once and Index.Buffer flattens it into a
// position-keyed tile buffer.
package atlas

import (
	"errors"

	"github.com/eak1mov/go-tilemerge/tile"
	"github.com/eak1mov/go-tilemerge/tileindex"
)

// Suffix marks atlas directories under the input root.
const Suffix = "_atlas"

var (
	ErrInvalidRoot        = errors.New("tilemerge: invalid input root")
	ErrMalformedHierarchy = errors.New("tilemerge: malformed hierarchy")
)

// Atlas is one independent scan of the map area.
type Atlas struct {
	Name  string
	Path  string
	Zooms []*ZoomLevel
}

type ZoomLevel struct {
	Level   uint32
	Path    string
	Regions []*Region
}

// Region groups the tiles of one row within a zoom level.
type Region struct {
	Row   uint32
	Path  string
	Tiles []*tile.Tile
}

// Index is the discovered hierarchy.
type Index struct {
	Root    string
	Atlases []*Atlas
}

// Tiles returns all discovered tiles in discovery order:
// atlases, zoom levels, rows and columns in directory order.
func (idx *Index) Tiles() []*tile.Tile {
	var tiles []*tile.Tile
	for _, a := range idx.Atlases {
		for _, z := range a.Zooms {
			for _, r := range z.Regions {
				tiles = append(tiles, r.Tiles...)
			}
		}
	}
	return tiles
}

// TileCount returns the number of discovered tiles.
func (idx *Index) TileCount() int {
	n := 0
	for _, a := range idx.Atlases {
		n += a.TileCount()
	}
	return n
}

// Buffer flattens the hierarchy into a position-keyed buffer.
// Duplicates keep their discovery order.
func (idx *Index) Buffer() *tileindex.Buffer {
	buffer := tileindex.NewBuffer()
	for _, t := range idx.Tiles() {
		buffer.Add(t)
	}
	return buffer
}

func (a *Atlas) TileCount() int {
	n := 0
	for _, z := range a.Zooms {
		for _, r := range z.Regions {
			n += len(r.Tiles)
		}
	}
	return n
}
