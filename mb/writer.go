package mb

import (
	"database/sql"
	"errors"
	"log/slog"
	"maps"

	"github.com/eak1mov/go-tilemerge/tile"
)

// Writer implements tile.Writer for MBTiles archives.
type Writer struct {
	db     *sql.DB
	stmt   *sql.Stmt
	logger *slog.Logger
	count  int
}

type writerConfig struct {
	Metadata map[string]string
	Logger   *slog.Logger
}

type WriterOption func(*writerConfig)

// WithMetadata adds entries to the metadata table, replacing the defaults
// for the same names.
func WithMetadata(metadata map[string]string) WriterOption {
	return func(c *writerConfig) { maps.Copy(c.Metadata, metadata) }
}

func WithLogger(logger *slog.Logger) WriterOption {
	return func(c *writerConfig) { c.Logger = logger }
}

// NewWriter creates an MBTiles archive at filePath.
func NewWriter(filePath string, opts ...WriterOption) (*Writer, error) {
	config := writerConfig{
		Metadata: map[string]string{
			"name": "tilemerge",
			"type": "baselayer",
		},
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}

	var err error
	db, err := sql.Open("sqlite3", filePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	_, err = db.Exec(`
		CREATE TABLE metadata (name TEXT, value TEXT);
		CREATE TABLE tiles (
			zoom_level INTEGER,
			tile_column INTEGER,
			tile_row INTEGER,
			tile_data BLOB
		);
	`)
	if err != nil {
		return nil, err
	}

	for k, v := range config.Metadata {
		_, err = db.Exec("INSERT INTO metadata (name, value) VALUES (?, ?)", k, v)
		if err != nil {
			return nil, err
		}
	}

	stmt, err := db.Prepare("INSERT INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)")
	if err != nil {
		return nil, err
	}

	return &Writer{db: db, stmt: stmt, logger: config.Logger}, nil
}

func (w *Writer) Close() error {
	return errors.Join(w.stmt.Close(), w.db.Close())
}

// WriteTile stores one tile. Tiles outside the 2^z grid cannot be addressed
// in TMS numbering and are rejected with ErrOutOfRange.
func (w *Writer) WriteTile(tileID tile.ID, tileData []byte) error {
	row, err := tmsRow(tileID)
	if err != nil {
		return err
	}
	if _, err := w.stmt.Exec(tileID.Z, tileID.X, row, tileData); err != nil {
		return err
	}
	w.count++
	return nil
}

// WriteMetadata adds one entry to the metadata table.
func (w *Writer) WriteMetadata(name, value string) error {
	_, err := w.db.Exec("INSERT INTO metadata (name, value) VALUES (?, ?)", name, value)
	return err
}

func (w *Writer) Finalize() error {
	w.logger.Debug("tilemerge: creating archive index", "tiles", w.count)
	_, err := w.db.Exec("CREATE UNIQUE INDEX tile_index ON tiles (zoom_level, tile_column, tile_row)")
	w.logger.Debug("tilemerge: archive done")
	return err
}
