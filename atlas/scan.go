package atlas

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/eak1mov/go-tilemerge/tile"
	"golang.org/x/sync/errgroup"
)

type scanConfig struct {
	Logger  *slog.Logger
	Workers int
}

type ScanOption func(*scanConfig)

func WithLogger(logger *slog.Logger) ScanOption {
	return func(c *scanConfig) { c.Logger = logger }
}

// WithWorkers sets how many atlases are scanned concurrently.
func WithWorkers(workers int) ScanOption {
	return func(c *scanConfig) { c.Workers = workers }
}

type scanner struct {
	logger *slog.Logger
}

// Scan discovers the atlas hierarchy under root.
//
// Only a missing or unreadable root is an error. Malformed entries are skipped
// and empty levels are reported as warnings.
func Scan(root string, opts ...ScanOption) (*Index, error) {
	config := scanConfig{
		Logger:  slog.New(slog.DiscardHandler),
		Workers: 1,
	}
	for _, opt := range opts {
		opt(&config)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, root)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRoot, err)
	}

	s := &scanner{logger: config.Logger}

	var atlases []*Atlas
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasSuffix(entry.Name(), Suffix) {
			continue
		}
		atlases = append(atlases, &Atlas{
			Name: strings.TrimSuffix(entry.Name(), Suffix),
			Path: filepath.Join(root, entry.Name()),
		})
	}
	if len(atlases) == 0 {
		s.logger.Warn("tilemerge: no atlas directories found", "path", root)
	}

	var g errgroup.Group
	g.SetLimit(max(config.Workers, 1))
	for _, a := range atlases {
		g.Go(func() error {
			s.scanAtlas(a)
			return nil
		})
	}
	g.Wait()

	return &Index{Root: root, Atlases: atlases}, nil
}

func (s *scanner) scanAtlas(a *Atlas) {
	logger := s.logger.With("atlas", a.Name)
	for _, dir := range s.readDirs(a.Path, logger) {
		level, ok := s.parse(dir, ParseName, logger)
		if !ok {
			continue
		}
		zoom := &ZoomLevel{Level: level, Path: dir}
		s.scanZoom(a.Name, zoom, logger)
		a.Zooms = append(a.Zooms, zoom)
	}
	if len(a.Zooms) == 0 {
		logger.Warn("tilemerge: atlas has no zoom levels", "path", a.Path)
	}
}

func (s *scanner) scanZoom(atlasName string, zoom *ZoomLevel, logger *slog.Logger) {
	for _, dir := range s.readDirs(zoom.Path, logger) {
		row, ok := s.parse(dir, ParseName, logger)
		if !ok {
			continue
		}
		region := &Region{Row: row, Path: dir}
		s.scanRegion(atlasName, zoom.Level, region, logger)
		zoom.Regions = append(zoom.Regions, region)
	}
	if len(zoom.Regions) == 0 {
		logger.Warn("tilemerge: zoom level has no rows", "path", zoom.Path)
	}
}

func (s *scanner) scanRegion(atlasName string, level uint32, region *Region, logger *slog.Logger) {
	entries, err := os.ReadDir(region.Path)
	if err != nil {
		logger.Warn("tilemerge: cannot read directory", "path", region.Path, "err", err)
		return
	}
	// "01.bmp" and "1.jpg" both name column 1; the first in directory order wins.
	seen := make(map[uint32]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(region.Path, entry.Name())
		col, ok := s.parse(path, ParseTileName, logger)
		if !ok {
			continue
		}
		if first, dup := seen[col]; dup {
			logger.Warn("tilemerge: duplicate tile column", "path", path, "kept", first)
			continue
		}
		seen[col] = path
		id := tile.ID{Z: level, Y: region.Row, X: col}
		region.Tiles = append(region.Tiles, tile.New(atlasName, id, path))
	}
	if len(region.Tiles) == 0 {
		logger.Warn("tilemerge: row has no tiles", "path", region.Path)
	}
}

// readDirs returns the subdirectories of dir in name order.
func (s *scanner) readDirs(dir string, logger *slog.Logger) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("tilemerge: cannot read directory", "path", dir, "err", err)
		return nil
	}
	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, filepath.Join(dir, entry.Name()))
		}
	}
	return dirs
}

func (s *scanner) parse(path string, parse func(string) (uint32, error), logger *slog.Logger) (uint32, bool) {
	n, err := parse(filepath.Base(path))
	if err != nil {
		logger.Warn("tilemerge: skipping entry", "path", path, "err", err)
		return 0, false
	}
	return n, true
}

// ParseName parses a zoom level or row directory name.
func ParseName(name string) (uint32, error) {
	n, err := strconv.ParseUint(name, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a non-negative integer", ErrMalformedHierarchy, name)
	}
	return uint32(n), nil
}

// ParseTileName parses the column from a tile file name such as "12.bmp".
func ParseTileName(name string) (uint32, error) {
	return ParseName(strings.TrimSuffix(name, filepath.Ext(name)))
}
