// Package store persists the latest and previous snapshots.
//
// Snapshots are replaced as whole documents, never mutated in place, so any
// number of readers may read concurrently with a writer.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/etnz/timberline"
)

// Name identifies a stored snapshot.
type Name string

// The only two snapshots ever kept.
const (
	Latest   Name = "latest"
	Previous Name = "last-quarter"
)

// ErrNotFound is returned (wrapped) when a snapshot has never been stored.
var ErrNotFound = errors.New("snapshot not found")

// Store reads and writes named snapshots.
type Store interface {
	Get(ctx context.Context, name Name) (timberline.Snapshot, error)
	Put(ctx context.Context, name Name, s timberline.Snapshot) error
}

// Reconcile reads both snapshots of st and reconciles them. A missing
// previous snapshot reconciles against an empty one, a missing latest one is
// an error.
func Reconcile(ctx context.Context, st Store) (timberline.Reconciliation, error) {
	current, err := st.Get(ctx, Latest)
	if err != nil {
		return timberline.Reconciliation{}, err
	}
	previous, err := st.Get(ctx, Previous)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return timberline.Reconciliation{}, err
	}
	return timberline.Reconcile(current, previous), nil
}

// Memory is a Store in memory.
type Memory struct {
	mu        sync.RWMutex
	snapshots map[Name]timberline.Snapshot
}

// NewMemory returns an empty memory store.
func NewMemory() *Memory {
	return &Memory{snapshots: make(map[Name]timberline.Snapshot)}
}

func (m *Memory) Get(_ context.Context, name Name) (timberline.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[name]
	if !ok {
		return timberline.Snapshot{}, &notFoundError{name}
	}
	return s, nil
}

func (m *Memory) Put(_ context.Context, name Name, s timberline.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[name] = s
	return nil
}

type notFoundError struct{ name Name }

func (e *notFoundError) Error() string { return "snapshot " + string(e.name) + " not found" }
func (e *notFoundError) Unwrap() error { return ErrNotFound }
