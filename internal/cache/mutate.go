package cache

import "context"

// Mutation describes an optimistic write.
//
// Mutate runs it in order: wait for the scope, cancel reads under Cancel,
// apply Patch to the cache, call Send, and then either invalidate (and
// remove) the listed prefixes on success or restore every patched entry on
// failure. Mutations are never retried.
type Mutation struct {
	// Scope serializes mutations that patch overlapping entries.
	Scope      string
	Cancel     []Key
	Patch      func(tx *Tx)
	Send       func(ctx context.Context) error
	Invalidate []Key
	// Remove lists prefixes dropped after a successful Send.
	Remove []Key
}

func (s *Store) Mutate(ctx context.Context, m Mutation) error {
	release, err := s.acquire(ctx, m.Scope)
	if err != nil {
		return err
	}
	defer release()

	for _, p := range m.Cancel {
		s.Cancel(p)
	}

	tx := &Tx{s: s, snaps: make(map[string]*snapshot)}
	if m.Patch != nil {
		m.Patch(tx)
	}

	if err := m.Send(ctx); err != nil {
		s.refetch(tx.settle(true))
		return err
	}
	behind := tx.settle(false)

	for _, p := range m.Remove {
		s.Remove(p)
	}
	for _, p := range m.Invalidate {
		s.Invalidate(p)
	}
	s.refetch(uncovered(behind, m.Remove, m.Invalidate))
	return nil
}

func (s *Store) refetch(entries []*entry) {
	for _, e := range entries {
		s.startFetch(e.key, e.fetcher)
	}
}

// uncovered drops entries that a prefix in one of the lists already handled.
func uncovered(entries []*entry, lists ...[]Key) []*entry {
	var out []*entry
next:
	for _, e := range entries {
		for _, prefixes := range lists {
			for _, p := range prefixes {
				if e.key.HasPrefix(p) {
					continue next
				}
			}
		}
		out = append(out, e)
	}
	return out
}

func (s *Store) acquire(ctx context.Context, scope string) (func(), error) {
	s.scopesMu.Lock()
	sem, ok := s.scopes[scope]
	if !ok {
		sem = make(chan struct{}, 1)
		s.scopes[scope] = sem
	}
	s.scopesMu.Unlock()

	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type snapshot struct {
	e     *entry
	value any
}

// Tx applies optimistic patches and remembers the value each touched entry
// held before the first patch. Patch funcs run under the store lock and must
// not call back into the store.
type Tx struct {
	s     *Store
	snaps map[string]*snapshot
	order []string
}

// Update patches key when it is cached. fn returns the new value and
// whether it changed anything.
func (tx *Tx) Update(key Key, fn func(old any) (any, bool)) bool {
	s := tx.s
	s.mu.Lock()
	ks := key.String()
	e, ok := s.entries[ks]
	if !ok || !e.has {
		s.mu.Unlock()
		return false
	}
	changed := tx.patchLocked(ks, e, fn)
	var notify func()
	if changed {
		notify = s.collectLocked(Event{Key: e.key, Kind: EventUpdated, Value: e.value})
	}
	s.mu.Unlock()
	if notify != nil {
		notify()
	}
	return changed
}

// UpdateMatching patches every cached entry under prefix and returns how
// many changed.
func (tx *Tx) UpdateMatching(prefix Key, fn func(key Key, old any) (any, bool)) int {
	s := tx.s
	s.mu.Lock()
	var events []Event
	for ks, e := range s.entries {
		if !e.has || !e.key.HasPrefix(prefix) {
			continue
		}
		key := e.key
		if tx.patchLocked(ks, e, func(old any) (any, bool) { return fn(key, old) }) {
			events = append(events, Event{Key: e.key, Kind: EventUpdated, Value: e.value})
		}
	}
	notify := s.collectLocked(events...)
	s.mu.Unlock()
	notify()
	return len(events)
}

// Peek reads the current (possibly already patched) value.
func (tx *Tx) Peek(key Key) (any, bool) {
	return tx.s.Peek(key)
}

func (tx *Tx) patchLocked(ks string, e *entry, fn func(old any) (any, bool)) bool {
	v, changed := fn(e.value)
	if !changed {
		return false
	}
	if _, seen := tx.snaps[ks]; !seen {
		tx.snaps[ks] = &snapshot{e: e, value: e.value}
		tx.order = append(tx.order, ks)
		e.pending++
		tx.s.abortLocked(ks, e)
	}
	e.value = v
	return true
}

// settle releases the shadowed entries, restoring their snapshots first when
// rollback is set. Entries removed or replaced meanwhile are not resurrected.
// It returns the released entries that were invalidated while shadowed and
// are still watched, so the caller can read them again.
func (tx *Tx) settle(rollback bool) []*entry {
	s := tx.s
	s.mu.Lock()
	var (
		events []Event
		behind []*entry
	)
	for _, ks := range tx.order {
		snap := tx.snaps[ks]
		e := snap.e
		e.pending--
		if s.entries[ks] != e {
			continue
		}
		if rollback {
			e.value = snap.value
			e.gen++
			events = append(events, Event{Key: e.key, Kind: EventUpdated, Value: snap.value})
		}
		if e.stale && e.pending == 0 && e.fetcher != nil && s.watchedLocked(e.key) {
			behind = append(behind, e)
		}
	}
	notify := s.collectLocked(events...)
	s.mu.Unlock()
	notify()
	return behind
}

// Patch is the typed form of Tx.Update. Entries holding another type are skipped.
func Patch[T any](tx *Tx, key Key, fn func(T) (T, bool)) bool {
	return tx.Update(key, func(old any) (any, bool) {
		t, ok := old.(T)
		if !ok {
			return old, false
		}
		return fn(t)
	})
}

// PatchMatching is the typed form of Tx.UpdateMatching.
func PatchMatching[T any](tx *Tx, prefix Key, fn func(T) (T, bool)) int {
	return tx.UpdateMatching(prefix, func(_ Key, old any) (any, bool) {
		t, ok := old.(T)
		if !ok {
			return old, false
		}
		return fn(t)
	})
}
