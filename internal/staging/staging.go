// Package staging holds uncommitted partial updates for a single list.
//
// A Store belongs to one manager instance and lives as long as it does; nothing is
// persisted. Entries only hold fields whose staged value differs from the value
// last committed on the server, so flipping a field back cancels the entry.
package staging

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// PatchFunc sends one partial update for id.
type PatchFunc func(ctx context.Context, id string, partial map[string]any) error

type Store struct {
	mu      sync.RWMutex
	pending map[string]map[string]any
}

func New() *Store {
	return &Store{pending: make(map[string]map[string]any)}
}

// Stage merges update into the entry for id. A field equal to its committed value
// is dropped from the entry and an entry left with no fields is removed.
func (s *Store) Stage(id string, committed, update map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.pending[id]
	if entry == nil {
		entry = make(map[string]any, len(update))
	}
	for field, val := range update {
		if orig, ok := committed[field]; ok && reflect.DeepEqual(orig, val) {
			delete(entry, field)
			continue
		}
		entry[field] = val
	}
	if len(entry) == 0 {
		delete(s.pending, id)
		return
	}
	s.pending[id] = entry
}

// Effective returns the staged value of field for id, or fallback when nothing is staged.
func (s *Store) Effective(id, field string, fallback any) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if val, ok := s.pending[id][field]; ok {
		return val
	}
	return fallback
}

// Pending returns a copy of the entry for id, nil when there is none.
func (s *Store) Pending(id string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.pending[id]
	if !ok {
		return nil
	}
	return copyEntry(entry)
}

func (s *Store) HasPending() bool {
	return s.Len() > 0
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}

// IDs lists staged ids in sorted order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Discard drops every entry without any network call.
func (s *Store) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.pending)
}

// CommitError reports every failed id of a commit. The first failure by id
// order is the one shown to the admin.
type CommitError struct {
	Failed map[string]error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("%d of the staged updates failed: %v", len(e.Failed), e.First())
}

func (e *CommitError) First() error {
	ids := e.ids()
	if len(ids) == 0 {
		return nil
	}
	return e.Failed[ids[0]]
}

// Unwrap lists the failures in id order so errors.As finds the same one every run.
func (e *CommitError) Unwrap() []error {
	ids := e.ids()
	errs := make([]error, 0, len(ids))
	for _, id := range ids {
		errs = append(errs, e.Failed[id])
	}
	return errs
}

func (e *CommitError) ids() []string {
	ids := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ServerMessage exposes the first failure's server message so callers can show it verbatim.
func (e *CommitError) ServerMessage() string {
	var m interface{ ServerMessage() string }
	if errors.As(e.First(), &m) {
		return m.ServerMessage()
	}
	return ""
}

// Commit issues one patch per staged id, all in parallel. A failure does not
// cancel the other calls. When every call succeeds the store is cleared; when
// any fails it is left exactly as it was and a *CommitError is returned.
func (s *Store) Commit(ctx context.Context, patch PatchFunc) error {
	s.mu.RLock()
	snapshot := make(map[string]map[string]any, len(s.pending))
	for id, entry := range s.pending {
		snapshot[id] = copyEntry(entry)
	}
	s.mu.RUnlock()

	if len(snapshot) == 0 {
		return nil
	}

	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed = make(map[string]error)
	)
	for id, partial := range snapshot {
		g.Go(func() error {
			if err := patch(ctx, id, partial); err != nil {
				mu.Lock()
				failed[id] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) > 0 {
		return &CommitError{Failed: failed}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sent := range snapshot {
		if cur, ok := s.pending[id]; ok && reflect.DeepEqual(cur, sent) {
			delete(s.pending, id)
		}
	}
	return nil
}

func copyEntry(entry map[string]any) map[string]any {
	out := make(map[string]any, len(entry))
	for k, v := range entry {
		out[k] = v
	}
	return out
}
