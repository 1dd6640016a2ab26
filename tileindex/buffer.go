// Package tileindex holds the flat mapping from tile position to all duplicates
// discovered for that position across atlases.
package tileindex

import (
	"iter"
	"slices"
	"sync"

	"github.com/eak1mov/go-tilemerge/tile"
)

// Buffer maps a tile position to its duplicates in insertion (discovery) order.
// It is safe for concurrent use.
type Buffer struct {
	mu    sync.RWMutex
	ids   []tile.ID
	tiles map[tile.ID][]*tile.Tile
	count int
}

func NewBuffer() *Buffer {
	return &Buffer{tiles: make(map[tile.ID][]*tile.Tile)}
}

// Add appends t to the duplicates of its position.
func (b *Buffer) Add(t *tile.Tile) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list, exists := b.tiles[t.ID]
	if !exists {
		b.ids = append(b.ids, t.ID)
	}
	b.tiles[t.ID] = append(list, t)
	b.count++
}

// IDs returns the positions in first-seen order.
func (b *Buffer) IDs() []tile.ID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.ids)
}

// Tiles returns the duplicates found for id. The slice must not be modified.
func (b *Buffer) Tiles(id tile.ID) []*tile.Tile {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tiles[id]
}

// Len returns the number of distinct positions.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.ids)
}

// TileCount returns the number of tiles across all positions.
func (b *Buffer) TileCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Duplicates returns the number of positions holding more than one tile.
func (b *Buffer) Duplicates() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, list := range b.tiles {
		if len(list) > 1 {
			n++
		}
	}
	return n
}

// All iterates positions in first-seen order.
func (b *Buffer) All() iter.Seq2[tile.ID, []*tile.Tile] {
	return func(yield func(tile.ID, []*tile.Tile) bool) {
		for _, id := range b.IDs() {
			if !yield(id, b.Tiles(id)) {
				return
			}
		}
	}
}

// Reset drops all entries.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ids = nil
	b.tiles = make(map[tile.ID][]*tile.Tile)
	b.count = 0
}
