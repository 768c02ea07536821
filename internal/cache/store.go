package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrClosed = errors.New("cache: store closed")

	// errSuperseded marks a read whose result was dropped because the key
	// was cancelled, overwritten or invalidated while it was in flight.
	errSuperseded = errors.New("cache: read superseded")
)

type EventKind int

const (
	EventUpdated EventKind = iota
	EventInvalidated
	EventRemoved
)

func (k EventKind) String() string {
	switch k {
	case EventUpdated:
		return "updated"
	case EventInvalidated:
		return "invalidated"
	case EventRemoved:
		return "removed"
	}
	return "unknown"
}

type Event struct {
	Key   Key
	Kind  EventKind
	Value any
}

// State is a snapshot of one entry as seen by a consumer.
type State struct {
	Value     any
	Has       bool
	Loading   bool
	Stale     bool
	Err       error
	UpdatedAt time.Time
}

type Options struct {
	// MaxRetries bounds read retries after the first attempt.
	MaxRetries uint64
	RetryBase  time.Duration
	RetryMax   time.Duration
	// Retryable decides whether a failed read may be retried.
	Retryable func(error) bool
	// OnError runs once per failed read, after the last retry.
	OnError func(key Key, err error)
	// DefaultStaleTime applies to entries written by Set before any Query
	// gave them a stale time of their own.
	DefaultStaleTime time.Duration
	Now              func() time.Time
}

func (o *Options) fill() {
	if o.MaxRetries == 0 {
		o.MaxRetries = 3
	}
	if o.RetryBase <= 0 {
		o.RetryBase = time.Second
	}
	if o.RetryMax <= 0 {
		o.RetryMax = 30 * time.Second
	}
	if o.Retryable == nil {
		o.Retryable = func(error) bool { return true }
	}
	if o.DefaultStaleTime <= 0 {
		o.DefaultStaleTime = 30 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

type FetchFunc func(ctx context.Context) (any, error)

type entry struct {
	key       Key
	value     any
	has       bool
	stale     bool
	err       error
	updatedAt time.Time
	staleTime time.Duration
	fetcher   FetchFunc
	fetching  int
	// gen changes whenever a write or cancel makes in-flight reads obsolete.
	gen uint64
	// pending counts mutations currently shadowing this entry.
	pending int
}

type flight struct {
	cancel context.CancelFunc
}

type subscriber struct {
	prefix Key
	fn     func(Event)
}

// Store is the process-wide query cache. It is safe for concurrent use and
// is passed explicitly to every consumer.
type Store struct {
	logger *zap.Logger
	opts   Options

	mu       sync.Mutex
	entries  map[string]*entry
	flights  map[string]*flight
	subs     map[int]*subscriber
	nextSub  int
	group    singleflight.Group
	scopesMu sync.Mutex
	scopes   map[string]chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

func New(logger *zap.Logger, opts Options) *Store {
	opts.fill()
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		logger:  logger,
		opts:    opts,
		entries: make(map[string]*entry),
		flights: make(map[string]*flight),
		subs:    make(map[int]*subscriber),
		scopes:  make(map[string]chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Close aborts every in-flight read.
func (s *Store) Close() {
	s.cancel()
}

// Peek returns the cached value for key without triggering a read.
func (s *Store) Peek(key Key) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key.String()]
	if !ok || !e.has {
		return nil, false
	}
	return e.value, true
}

func (s *Store) State(key Key) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key.String()]
	if !ok {
		return State{}
	}
	return State{
		Value:     e.value,
		Has:       e.has,
		Loading:   e.fetching > 0,
		Stale:     s.isStaleLocked(e),
		Err:       e.err,
		UpdatedAt: e.updatedAt,
	}
}

// Keys lists cached keys under prefix.
func (s *Store) Keys(prefix Key) []Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []Key
	for _, e := range s.entries {
		if e.has && e.key.HasPrefix(prefix) {
			keys = append(keys, e.key)
		}
	}
	return keys
}

// Set writes an authoritative value and marks it fresh.
func (s *Store) Set(key Key, v any) {
	s.mu.Lock()
	e := s.entryLocked(key)
	e.value, e.has = v, true
	e.stale = false
	e.err = nil
	e.updatedAt = s.opts.Now()
	if e.staleTime <= 0 {
		e.staleTime = s.opts.DefaultStaleTime
	}
	e.gen++
	notify := s.collectLocked(Event{Key: key, Kind: EventUpdated, Value: v})
	s.mu.Unlock()
	notify()
}

// Update replaces the value of a cached key. Keys that are not cached are
// left alone and Update returns false.
func (s *Store) Update(key Key, fn func(old any) any) bool {
	s.mu.Lock()
	e, ok := s.entries[key.String()]
	if !ok || !e.has {
		s.mu.Unlock()
		return false
	}
	e.value = fn(e.value)
	e.gen++
	notify := s.collectLocked(Event{Key: key, Kind: EventUpdated, Value: e.value})
	s.mu.Unlock()
	notify()
	return true
}

// Invalidate marks every entry under prefix stale, abandons reads that were
// started before the invalidation, and refetches entries somebody is
// subscribed to.
func (s *Store) Invalidate(prefix Key) {
	s.mu.Lock()
	var (
		events  []Event
		refetch []*entry
	)
	for ks, e := range s.entries {
		if !e.key.HasPrefix(prefix) {
			continue
		}
		e.stale = true
		s.abortLocked(ks, e)
		if e.pending == 0 && e.fetcher != nil && s.watchedLocked(e.key) {
			refetch = append(refetch, e)
		}
		events = append(events, Event{Key: e.key, Kind: EventInvalidated, Value: e.value})
	}
	notify := s.collectLocked(events...)
	s.mu.Unlock()

	notify()
	for _, e := range refetch {
		s.startFetch(e.key, e.fetcher)
	}
}

// Remove drops every entry under prefix.
func (s *Store) Remove(prefix Key) {
	s.mu.Lock()
	var events []Event
	for ks, e := range s.entries {
		if !e.key.HasPrefix(prefix) {
			continue
		}
		s.abortLocked(ks, e)
		delete(s.entries, ks)
		events = append(events, Event{Key: e.key, Kind: EventRemoved})
	}
	notify := s.collectLocked(events...)
	s.mu.Unlock()
	notify()
}

// Cancel abandons in-flight reads under prefix; their results are discarded.
func (s *Store) Cancel(prefix Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ks, e := range s.entries {
		if e.key.HasPrefix(prefix) {
			s.abortLocked(ks, e)
		}
	}
}

// Subscribe registers fn for events on keys under prefix. fn runs
// synchronously on the writing goroutine and must not block.
func (s *Store) Subscribe(prefix Key, fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = &subscriber{prefix: prefix, fn: fn}
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) entryLocked(key Key) *entry {
	ks := key.String()
	e, ok := s.entries[ks]
	if !ok {
		e = &entry{key: append(Key(nil), key...)}
		s.entries[ks] = e
	}
	return e
}

func (s *Store) isStaleLocked(e *entry) bool {
	if !e.has || e.stale {
		return true
	}
	return s.opts.Now().Sub(e.updatedAt) >= e.staleTime
}

// abortLocked cancels the read in flight for ks and makes sure its result
// is not written back.
func (s *Store) abortLocked(ks string, e *entry) {
	e.gen++
	if f, ok := s.flights[ks]; ok {
		f.cancel()
		delete(s.flights, ks)
		s.group.Forget(ks)
	}
}

func (s *Store) watchedLocked(key Key) bool {
	for _, sub := range s.subs {
		if key.HasPrefix(sub.prefix) {
			return true
		}
	}
	return false
}

// collectLocked resolves the subscribers for events while the lock is held
// and returns a func that delivers them after it is released.
func (s *Store) collectLocked(events ...Event) func() {
	type delivery struct {
		fn func(Event)
		ev Event
	}
	var out []delivery
	for _, ev := range events {
		for _, sub := range s.subs {
			if ev.Key.HasPrefix(sub.prefix) {
				out = append(out, delivery{fn: sub.fn, ev: ev})
			}
		}
	}
	return func() {
		for _, d := range out {
			d.fn(d.ev)
		}
	}
}
