package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Query returns the cached value for key while it is younger than
// staleTime and has not been invalidated. Otherwise it reads through fn.
// Concurrent callers of one key share a single read. The read runs on the
// store's context, so ctx only bounds how long this caller waits.
func (s *Store) Query(ctx context.Context, key Key, staleTime time.Duration, fn FetchFunc) (any, error) {
	for {
		s.mu.Lock()
		e := s.entryLocked(key)
		e.fetcher = fn
		e.staleTime = staleTime
		if !s.isStaleLocked(e) {
			v := e.value
			s.mu.Unlock()
			return v, nil
		}
		s.mu.Unlock()

		ch := s.startFetch(key, fn)
		select {
		case res := <-ch:
			if errors.Is(res.Err, errSuperseded) {
				if err := s.ctx.Err(); err != nil {
					return nil, ErrClosed
				}
				continue
			}
			return res.Val, res.Err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Fetch is the typed form of Store.Query.
func Fetch[T any](ctx context.Context, s *Store, key Key, staleTime time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := s.Query(ctx, key, staleTime, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache: %s holds %T", key, v)
	}
	return t, nil
}

// Get is the typed form of Store.Peek.
func Get[T any](s *Store, key Key) (T, bool) {
	var zero T
	v, ok := s.Peek(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

func (s *Store) startFetch(key Key, fn FetchFunc) <-chan singleflight.Result {
	ks := key.String()
	return s.group.DoChan(ks, func() (any, error) {
		return s.runFetch(key, fn)
	})
}

func (s *Store) runFetch(key Key, fn FetchFunc) (any, error) {
	ks := key.String()
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	s.mu.Lock()
	e := s.entryLocked(key)
	gen := e.gen
	f := &flight{cancel: cancel}
	s.flights[ks] = f
	e.fetching++
	s.mu.Unlock()

	v, err := s.retry(ctx, fn)

	s.mu.Lock()
	e.fetching--
	if s.flights[ks] == f {
		delete(s.flights, ks)
	}
	cur, ok := s.entries[ks]
	obsolete := !ok || cur != e || e.gen != gen || e.pending > 0

	if obsolete {
		has, val := ok && cur.has, any(nil)
		if has {
			val = cur.value
		}
		s.mu.Unlock()
		if has {
			return val, nil
		}
		return nil, errSuperseded
	}

	if err != nil {
		e.err = err
		s.mu.Unlock()
		s.logger.Debug("cache read failed", zap.String("key", ks), zap.Error(err))
		if s.opts.OnError != nil && !errors.Is(err, context.Canceled) {
			s.opts.OnError(e.key, err)
		}
		return nil, err
	}

	e.value, e.has = v, true
	e.stale = false
	e.err = nil
	e.updatedAt = s.opts.Now()
	notify := s.collectLocked(Event{Key: e.key, Kind: EventUpdated, Value: v})
	s.mu.Unlock()

	notify()
	return v, nil
}

// retry runs fn with exponential backoff: RetryBase doubling up to RetryMax,
// at most MaxRetries retries, none for errors the Retryable hook rejects.
func (s *Store) retry(ctx context.Context, fn FetchFunc) (any, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.opts.RetryBase
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = s.opts.RetryMax
	b.MaxElapsedTime = 0
	b.Reset()

	policy := backoff.WithContext(backoff.WithMaxRetries(b, s.opts.MaxRetries), ctx)

	return backoff.RetryWithData(func() (any, error) {
		v, err := fn(ctx)
		if err != nil && !s.opts.Retryable(err) {
			return nil, backoff.Permanent(err)
		}
		return v, err
	}, policy)
}
