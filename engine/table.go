package engine

import (
	"iter"
	"sync"

	"github.com/eak1mov/go-tilemerge/tile"
)

// CompleteTable records, for each position, the tile chosen as authoritative
// because it has no missing data.
type CompleteTable struct {
	mu    sync.RWMutex
	tiles map[tile.ID]*tile.Tile
}

func NewCompleteTable() *CompleteTable {
	return &CompleteTable{tiles: make(map[tile.ID]*tile.Tile)}
}

func (c *CompleteTable) Get(id tile.ID) (*tile.Tile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tiles[id]
	return t, ok
}

// Set records t as the winner for its position unless one is already recorded.
// It reports whether t was recorded.
func (c *CompleteTable) Set(t *tile.Tile) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.tiles[t.ID]; exists {
		return false
	}
	c.tiles[t.ID] = t
	return true
}

func (c *CompleteTable) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tiles)
}

// All iterates winners in spatial order.
func (c *CompleteTable) All() iter.Seq2[tile.ID, *tile.Tile] {
	return func(yield func(tile.ID, *tile.Tile) bool) {
		c.mu.RLock()
		ids := make([]tile.ID, 0, len(c.tiles))
		for id := range c.tiles {
			ids = append(ids, id)
		}
		c.mu.RUnlock()

		tile.SortIDs(ids)
		for _, id := range ids {
			t, _ := c.Get(id)
			if !yield(id, t) {
				return
			}
		}
	}
}
