package tile

import (
	"cmp"
	"errors"
	"iter"
	"math/bits"
	"slices"

	"github.com/google/hilbert"
)

var errVisitCancelled = errors.New("visit cancelled")

// IterTiles returns an iterator over all tiles in the tileset.
// It yields tile IDs and their data. Iteration may panic on unrecoverable errors.
func IterTiles(r Visitor) iter.Seq2[ID, []byte] {
	return func(yield func(ID, []byte) bool) {
		err := r.VisitTiles(func(tileID ID, tileData []byte) error {
			if !yield(tileID, tileData) {
				return errVisitCancelled
			}
			return nil
		})
		if err != nil && err != errVisitCancelled {
			panic(err)
		}
	}
}

// maxCurveSide bounds the Hilbert curve so that curve positions fit in an int.
const maxCurveSide = 1 << 24

// SortIDs orders ids by zoom level and then along a Hilbert curve covering
// each zoom level, so that neighbouring tiles end up next to each other.
// Zoom levels with coordinates beyond maxCurveSide are ordered by row and column.
func SortIDs(ids []ID) {
	sides := make(map[uint32]int)
	for _, id := range ids {
		sides[id.Z] = max(sides[id.Z], curveSide(max(id.X, id.Y)))
	}

	curves := make(map[uint32]*hilbert.Hilbert, len(sides))
	for z, side := range sides {
		if side > maxCurveSide {
			continue
		}
		h, err := hilbert.NewHilbert(side)
		if err != nil {
			panic(err) // side is always a power of two
		}
		curves[z] = h
	}

	codes := make(map[ID]int, len(ids))
	for _, id := range ids {
		curve, ok := curves[id.Z]
		if !ok {
			continue
		}
		c := id.Coords()
		code, err := curve.MapInverse(int(c.X), int(c.Y))
		if err != nil {
			panic(err) // id lies inside the curve by construction
		}
		codes[id] = code
	}

	slices.SortFunc(ids, func(a, b ID) int {
		return cmp.Or(
			cmp.Compare(a.Z, b.Z),
			cmp.Compare(codes[a], codes[b]),
			cmp.Compare(a.Y, b.Y),
			cmp.Compare(a.X, b.X),
		)
	})
}

// curveSide returns the smallest power of two greater than coord.
func curveSide(coord uint32) int {
	return 1 << bits.Len32(coord)
}
