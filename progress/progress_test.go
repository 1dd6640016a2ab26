package progress_test

import (
	"sync"
	"testing"

	"github.com/eak1mov/go-tilemerge/progress"
)

func TestCounter(t *testing.T) {
	updates := make(chan progress.Update, 10)
	c := progress.NewCounter(10, updates)

	c.Add(3)
	c.Add(0)
	c.Add(2)
	close(updates)

	var got []progress.Update
	for u := range updates {
		got = append(got, u)
	}
	want := []progress.Update{{Done: 3, Total: 10}, {Done: 5, Total: 10}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("updates = %v, want = %v", got, want)
	}
	if got, want := c.Snapshot().Percent(), 50; got != want {
		t.Errorf("Percent() = %d, want = %d", got, want)
	}
}

func TestCounterDoesNotBlock(t *testing.T) {
	c := progress.NewCounter(1000, make(chan progress.Update))

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				c.Add(1)
			}
		}()
	}
	wg.Wait()

	if got, want := c.Done(), int64(1000); got != want {
		t.Errorf("Done() = %d, want = %d", got, want)
	}
}

func TestCounterFinish(t *testing.T) {
	updates := make(chan progress.Update)
	c := progress.NewCounter(1000, updates)

	// Nobody receives yet, so every Add snapshot is dropped.
	for range 1000 {
		c.Add(1)
	}

	got := make(chan progress.Update)
	go func() { got <- <-updates }()
	c.Finish()

	if u, want := <-got, (progress.Update{Done: 1000, Total: 1000}); u != want {
		t.Errorf("final update = %v, want = %v", u, want)
	}
	if got, want := c.Snapshot().Percent(), 100; got != want {
		t.Errorf("Percent() = %d, want = %d", got, want)
	}
}

func TestNilCounter(t *testing.T) {
	var c *progress.Counter
	c.Add(5)
	c.Finish()
	progress.NewCounter(5, nil).Finish()
	if got := c.Snapshot(); got != (progress.Update{}) {
		t.Errorf("Snapshot() = %v, want zero", got)
	}
}

func TestPercentEmpty(t *testing.T) {
	if got := (progress.Update{}).Percent(); got != 100 {
		t.Errorf("Percent() = %d, want = 100", got)
	}
}
