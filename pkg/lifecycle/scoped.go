package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

const scopedLogPrefix = "lifecycle:scoped"

// BuildFunc constructs a resource against a host context.
type BuildFunc[T any] func(ctx context.Context, host Host) (T, error)

// Scoped is a resource built lazily against the bound host and cached until
// the next binder transition. A value implementing io.Closer is closed when
// it is invalidated.
type Scoped[T any] struct {
	name   string
	binder *Binder
	build  BuildFunc[T]
	sfg    singleflight.Group

	mu    sync.Mutex
	value T
	gen   uint64
	ok    bool
}

// NewScoped registers a scoped resource with binder.
func NewScoped[T any](name string, binder *Binder, build BuildFunc[T]) *Scoped[T] {
	s := &Scoped[T]{name: name, binder: binder, build: build}
	binder.OnChange(s.invalidate)
	return s
}

// errStale marks a build that finished after the binding moved on.
var errStale = errors.New("lifecycle: binding changed during build")

// Get returns the resource for the bound host, building it on first use. A
// value built against a host that was replaced mid-build is closed and the
// build is retried against the new binding.
func (s *Scoped[T]) Get(ctx context.Context) (T, error) {
	var zero T
	for {
		host, gen, bound := s.binder.snapshot()
		if !bound {
			return zero, ErrNotBound
		}
		if v, ok := s.cached(gen); ok {
			return v, nil
		}

		v, err, _ := s.sfg.Do(strconv.FormatUint(gen, 10), func() (interface{}, error) {
			return s.buildFor(ctx, host, gen)
		})
		if errors.Is(err, errStale) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return zero, ctxErr
			}
			continue
		}
		if err != nil {
			return zero, fmt.Errorf("%s - build %s: %w", scopedLogPrefix, s.name, err)
		}
		return v.(T), nil
	}
}

func (s *Scoped[T]) buildFor(ctx context.Context, host Host, gen uint64) (interface{}, error) {
	if v, ok := s.cached(gen); ok {
		return v, nil
	}
	slog.Debug(fmt.Sprintf("%s - building %s for host %s", scopedLogPrefix, s.name, host.ID()))
	val, err := s.build(ctx, host)
	if err != nil {
		return nil, err
	}

	// Holding mu orders this against invalidate: either the value is cached
	// and the next transition closes it, or it is discarded here.
	s.mu.Lock()
	if s.binder.Generation() != gen {
		s.mu.Unlock()
		slog.Debug(fmt.Sprintf("%s - discarding %s built for host %s", scopedLogPrefix, s.name, host.ID()))
		s.discard(val)
		return nil, errStale
	}
	s.value = val
	s.gen = gen
	s.ok = true
	s.mu.Unlock()
	return val, nil
}

// Built reports whether a value is cached for the current binding.
func (s *Scoped[T]) Built() bool {
	_, ok := s.cached(s.binder.Generation())
	return ok
}

func (s *Scoped[T]) cached(gen uint64) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ok && s.gen == gen {
		return s.value, true
	}
	var zero T
	return zero, false
}

func (s *Scoped[T]) invalidate(t Transition) {
	s.mu.Lock()
	if !s.ok {
		s.mu.Unlock()
		return
	}
	old := s.value
	var zero T
	s.value = zero
	s.ok = false
	s.mu.Unlock()

	slog.Debug(fmt.Sprintf("%s - invalidated %s (%s -> %s)", scopedLogPrefix, s.name, t.From, t.To))
	s.discard(old)
}

func (s *Scoped[T]) discard(v T) {
	if c, ok := any(v).(io.Closer); ok {
		if err := c.Close(); err != nil {
			slog.Warn(fmt.Sprintf("%s - closing %s: %v", scopedLogPrefix, s.name, err))
		}
	}
}
