package refusal

import (
	"context"
	"log"
	"sync/atomic"
)

// Holder publishes the advice store in use. Rebuilds happen off to the side
// and are swapped in atomically, so readers never see a partial store.
type Holder struct {
	store atomic.Pointer[Store]
}

// NewHolder creates a Holder serving an empty store
func NewHolder() *Holder {
	h := &Holder{}
	h.store.Store(NewStore())
	return h
}

// Current returns the store in use
func (h *Holder) Current() *Store {
	return h.store.Load()
}

// Swap publishes s and returns the store it replaced
func (h *Holder) Swap(s *Store) *Store {
	return h.store.Swap(s)
}

// Reload builds a store from sources and publishes it. On error the
// previous store stays in place.
func (h *Holder) Reload(ctx context.Context, sources ...Source) (*Store, error) {
	s, err := Load(ctx, sources...)
	if err != nil {
		return nil, err
	}
	h.Swap(s)
	log.Printf("Loaded refusal advice for %v", s.Legislations())
	return s, nil
}

var defaultHolder = NewHolder()

// DefaultHolder returns the process-wide holder used by Default
func DefaultHolder() *Holder {
	return defaultHolder
}

// Current returns the process-wide advice store
func Current() *Store {
	return defaultHolder.Current()
}
