package autoload

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Holder owns the process-wide table. Readers take a snapshot with Load;
// refreshes build a complete replacement and swap it in.
type Holder struct {
	table atomic.Pointer[Table]
	group singleflight.Group
	// buildMu orders builds so tables are installed in the order they were
	// built.
	buildMu sync.Mutex
}

// NewHolder starts with initial, or an empty table when initial is nil.
func NewHolder(initial *Table) *Holder {
	h := &Holder{}
	if initial == nil {
		initial = NewBuilder().Build()
	}
	h.table.Store(initial)
	return h
}

// Load returns the current snapshot.
func (h *Holder) Load() *Table {
	return h.table.Load()
}

// Swap installs t and returns the previous table.
func (h *Holder) Swap(t *Table) *Table {
	if t == nil {
		t = NewBuilder().Build()
	}
	return h.table.Swap(t)
}

// Refresh runs build and installs its table. Concurrent callers passing the
// same key share one build; builds for different keys run one after another.
// A failed build leaves the current table in place.
func (h *Holder) Refresh(ctx context.Context, key string, build func(context.Context) (*Table, error)) (*Table, error) {
	v, err, _ := h.group.Do(key, func() (interface{}, error) {
		h.buildMu.Lock()
		defer h.buildMu.Unlock()
		t, err := build(ctx)
		if err != nil {
			return nil, err
		}
		h.Swap(t)
		return t, nil
	})
	if err != nil {
		return h.Load(), err
	}
	return v.(*Table), nil
}
