// Package window keeps the rolling set of valued killmails. Entries live in a
// store with per-key expiry; the aggregate never deletes anything itself, an
// entry that aged out is simply no longer listed.
package window

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ErrStore marks failures of the backing TTL store.
var ErrStore = errors.New("ttl store")

const keyPrefix = "killmail:"

// Store is the part of a key-value store with per-key expiry the aggregate needs.
type Store interface {
	SetWithTTL(ctx context.Context, key string, value int64, ttl time.Duration) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	// MGet returns one slot per key; keys that no longer exist come back nil.
	MGet(ctx context.Context, keys []string) ([]*int64, error)
	Flush(ctx context.Context) error
}

// Snapshot is the live window at one point in time.
type Snapshot struct {
	Values []int64
	Total  int64
}

type Aggregate struct {
	store    Store
	lifetime time.Duration
}

func NewAggregate(store Store, lifetime time.Duration) *Aggregate {
	return &Aggregate{store: store, lifetime: lifetime}
}

func Key(id int64) string {
	return keyPrefix + strconv.FormatInt(id, 10)
}

// Ingest stores value under id for the configured lifetime. A repeated id
// replaces the previous value.
func (a *Aggregate) Ingest(ctx context.Context, id, value int64) error {
	if err := a.store.SetWithTTL(ctx, Key(id), value, a.lifetime); err != nil {
		return fmt.Errorf("%w: ingest %d: %w", ErrStore, id, err)
	}
	return nil
}

// Snapshot lists all live values ordered by killmail id. Keys that expire
// between the listing and the read are skipped.
func (a *Aggregate) Snapshot(ctx context.Context) (Snapshot, error) {
	keys, err := a.store.Keys(ctx, keyPrefix)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: list keys: %w", ErrStore, err)
	}
	if len(keys) == 0 {
		return Snapshot{Values: []int64{}}, nil
	}
	slices.SortFunc(keys, compareKeys)

	slots, err := a.store.MGet(ctx, keys)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: read values: %w", ErrStore, err)
	}
	snap := Snapshot{Values: make([]int64, 0, len(slots))}
	for _, v := range slots {
		if v == nil {
			continue
		}
		snap.Values = append(snap.Values, *v)
		snap.Total += *v
	}
	return snap, nil
}

// compareKeys orders keys by their numeric id; keys without one sort after
// all numbered keys, by name.
func compareKeys(a, b string) int {
	ia, errA := strconv.ParseInt(strings.TrimPrefix(a, keyPrefix), 10, 64)
	ib, errB := strconv.ParseInt(strings.TrimPrefix(b, keyPrefix), 10, 64)
	switch {
	case errA == nil && errB == nil:
		return cmp.Compare(ia, ib)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(a, b)
}

// Reset drops every stored value.
func (a *Aggregate) Reset(ctx context.Context) error {
	if err := a.store.Flush(ctx); err != nil {
		return fmt.Errorf("%w: flush: %w", ErrStore, err)
	}
	return nil
}

func (a *Aggregate) Lifetime() time.Duration { return a.lifetime }
