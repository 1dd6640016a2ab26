// Package progress counts completed work units and reports them to a single consumer.
package progress

import "sync/atomic"

// Update is a snapshot of cumulative progress.
type Update struct {
	Done  int64
	Total int64
}

func (u Update) Percent() int {
	if u.Total <= 0 {
		return 100
	}
	return int(u.Done * 100 / u.Total)
}

// Counter is safe for concurrent use.
//
// Updates from Add are delivered without blocking: when the consumer lags,
// intermediate snapshots are dropped. Since values are cumulative, a consumer
// should keep the largest Done it has seen, as concurrent senders may deliver
// out of order. Finish always delivers the last snapshot.
type Counter struct {
	done    atomic.Int64
	total   int64
	updates chan<- Update
}

// NewCounter returns a counter for total units. updates may be nil.
func NewCounter(total int64, updates chan<- Update) *Counter {
	return &Counter{total: total, updates: updates}
}

// Add credits n units of work.
func (c *Counter) Add(n int64) {
	if c == nil || n == 0 {
		return
	}
	done := c.done.Add(n)
	c.send(Update{Done: done, Total: c.total})
}

func (c *Counter) Done() int64 {
	if c == nil {
		return 0
	}
	return c.done.Load()
}

func (c *Counter) Total() int64 {
	if c == nil {
		return 0
	}
	return c.total
}

func (c *Counter) Snapshot() Update {
	return Update{Done: c.Done(), Total: c.Total()}
}

// Finish sends the current snapshot, blocking until the consumer takes it.
// It must be called after every Add has returned.
func (c *Counter) Finish() {
	if c == nil || c.updates == nil {
		return
	}
	c.updates <- c.Snapshot()
}

func (c *Counter) send(u Update) {
	if c.updates == nil {
		return
	}
	select {
	case c.updates <- u:
	default:
	}
}
