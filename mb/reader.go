package mb

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/eak1mov/go-tilemerge/tile"
)

// Reader implements tile.Reader and tile.Visitor for MBTiles archives.
type Reader struct {
	db   *sql.DB
	stmt *sql.Stmt
}

// NewReader opens the archive at filePath read-only.
//
// The returned Reader must be closed after use to release database resources.
func NewReader(filePath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", filePath))
	if err != nil {
		return nil, err
	}

	stmt, err := db.Prepare("SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?")
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Reader{db: db, stmt: stmt}, nil
}

func (r *Reader) Close() error {
	return errors.Join(r.stmt.Close(), r.db.Close())
}

func (r *Reader) ReadMetadata() (map[string]string, error) {
	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	metadata := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		metadata[name] = value
	}
	return metadata, rows.Err()
}

func (r *Reader) ReadTile(tileID tile.ID) ([]byte, error) {
	row, err := tmsRow(tileID)
	if err != nil {
		return nil, err
	}

	var tileData []byte
	if err := r.stmt.QueryRow(tileID.Z, tileID.X, row).Scan(&tileData); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return make([]byte, 0), nil
		}
		return nil, err
	}
	return tileData, nil
}

func (r *Reader) VisitTiles(visitor func(tile.ID, []byte) error) error {
	rows, err := r.db.Query("SELECT zoom_level, tile_column, tile_row, tile_data FROM tiles")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tileID tile.ID
		var row uint32
		var tileData []byte
		if err := rows.Scan(&tileID.Z, &tileID.X, &row, &tileData); err != nil {
			return err
		}

		tileID.Y = row
		if tileID.Y, err = tmsRow(tileID); err != nil {
			return err
		}

		if err := visitor(tileID, tileData); err != nil {
			return err
		}
	}
	return rows.Err()
}
