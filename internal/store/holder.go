package store

import (
	"sync"
	"sync/atomic"
)

// Holder publishes snapshots by atomic pointer swap. Readers call Snapshot
// once per request and keep using that view; a concurrent Publish never
// changes it.
type Holder struct {
	cur atomic.Pointer[Snapshot]

	mu  sync.Mutex
	gen uint64
}

// NewHolder returns a Holder serving an empty snapshot until the first
// Publish.
func NewHolder() *Holder {
	h := &Holder{}
	empty, _ := Build(nil)
	h.cur.Store(empty)
	return h
}

func (h *Holder) Snapshot() DirectoryStore {
	return h.cur.Load()
}

// Publish builds ds into a new snapshot and swaps it in. On error the
// current snapshot stays in place.
func (h *Holder) Publish(ds *Dataset) (uint64, error) {
	snap, err := Build(ds)
	if err != nil {
		return 0, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.gen++
	snap.generation = h.gen
	h.cur.Store(snap)
	return snap.generation, nil
}
