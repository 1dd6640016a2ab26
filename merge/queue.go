package merge

import (
	"slices"
	"sync"

	"github.com/eak1mov/go-tilemerge/tile"
)

// Queue holds one merge job per tile position: the incomplete duplicates found
// at that position, in discovery order.
//
// The map itself is guarded by a mutex. A job's slice is only ever appended to
// by the single worker that owns its position, so no per-job locking is needed.
type Queue struct {
	mu   sync.Mutex
	jobs map[tile.ID][]*tile.Tile
}

func NewQueue() *Queue {
	return &Queue{jobs: make(map[tile.ID][]*tile.Tile)}
}

// Append adds t to the job of its position, creating the job if needed.
func (q *Queue) Append(t *tile.Tile) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs[t.ID] = append(q.jobs[t.ID], t)
}

// Discard removes the job for id and returns how many tiles it held.
func (q *Queue) Discard(id tile.ID) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.jobs[id])
	delete(q.jobs, id)
	return n
}

// Job returns the tiles queued for id.
func (q *Queue) Job(id tile.ID) []*tile.Tile {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.jobs[id]
}

// IDs returns the positions with a pending job, in spatial order.
func (q *Queue) IDs() []tile.ID {
	q.mu.Lock()
	ids := make([]tile.ID, 0, len(q.jobs))
	for id := range q.jobs {
		ids = append(ids, id)
	}
	q.mu.Unlock()

	tile.SortIDs(ids)
	return ids
}

// Len returns the number of jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// TileCount returns the number of tiles across all jobs.
func (q *Queue) TileCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, job := range q.jobs {
		n += len(job)
	}
	return n
}

// Clone returns a snapshot of the job for id that is safe to retain.
func (q *Queue) Clone(id tile.ID) []*tile.Tile {
	return slices.Clone(q.Job(id))
}
