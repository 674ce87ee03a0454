package testutil

import (
	"context"
	"sync"
)

// lookupHooks lets tests count, fail and pause repository lookups
type lookupHooks struct {
	mu     sync.Mutex
	calls  map[string]int
	errs   map[string]error
	before func(ctx context.Context, key string)
}

func newLookupHooks() *lookupHooks {
	return &lookupHooks{
		calls: make(map[string]int),
		errs:  make(map[string]error),
	}
}

// enter records a lookup of key and returns the injected error, if any
func (h *lookupHooks) enter(ctx context.Context, key string) error {
	h.mu.Lock()
	h.calls[key]++
	before := h.before
	err := h.errs[key]
	h.mu.Unlock()

	if before != nil {
		before(ctx, key)
	}
	return err
}

// SetError makes every lookup of key fail with err. A nil err clears it.
func (h *lookupHooks) SetError(key string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err == nil {
		delete(h.errs, key)
		return
	}
	h.errs[key] = err
}

// BeforeLookup installs fn to run at the start of every lookup
func (h *lookupHooks) BeforeLookup(fn func(ctx context.Context, key string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.before = fn
}

// Calls returns how many times key was looked up
func (h *lookupHooks) Calls(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls[key]
}
