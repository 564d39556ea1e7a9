package core

import (
	"sync"
	"sync/atomic"
)

// RootHandle keeps one engine value alive until Release is called.
type RootHandle interface {
	Release()
}

// RootCounter tracks outstanding root handles for an adapter.
type RootCounter struct {
	live atomic.Int64
}

// Track returns a handle that runs release (if non-nil) the first time it
// is released. Later calls to Release do nothing.
func (c *RootCounter) Track(release func()) RootHandle {
	c.live.Add(1)
	return &rootHandle{counter: c, release: release}
}

// Live returns the number of handles not yet released.
func (c *RootCounter) Live() int {
	return int(c.live.Load())
}

type rootHandle struct {
	counter *RootCounter
	release func()
	once    sync.Once
}

func (h *rootHandle) Release() {
	h.once.Do(func() {
		if h.release != nil {
			h.release()
		}
		h.counter.live.Add(-1)
	})
}
