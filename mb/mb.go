// Package mb stores reconciled tile sets in MBTiles archives.
//
// Note: User must properly initialize the sqlite3 library generic driver
// (e.g. import _ "github.com/mattn/go-sqlite3") before using this package.
package mb

import (
	"errors"
	"fmt"

	"github.com/eak1mov/go-tilemerge/tile"
)

var ErrOutOfRange = errors.New("tilemerge: tile outside the xyz grid")

// tmsRow converts between XYZ and TMS row numbering; the conversion is its own inverse.
func tmsRow(tileID tile.ID) (uint32, error) {
	if !tileID.Valid() {
		return 0, fmt.Errorf("%w: %v", ErrOutOfRange, tileID)
	}
	return (1 << tileID.Z) - 1 - tileID.Y, nil
}
