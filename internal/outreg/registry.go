package outreg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

var (
	// ErrAlreadyWritten is returned by a second write to the same key.
	ErrAlreadyWritten = errors.New("output already written")
	// ErrFailed wraps the error recorded by Fail for readers of that key.
	ErrFailed = errors.New("output failed")
	// ErrCleared is returned to readers still waiting when Clear runs.
	ErrCleared = errors.New("output registry cleared")
)

// Key identifies a result: a published source, or step Step of Pipeline.
type Key struct {
	Source   string
	Pipeline string
	Step     int
}

// SourceKey is the key of a published dataset.
func SourceKey(name string) Key {
	return Key{Source: name}
}

// StepKey is the key of the output of one pipeline step.
func StepKey(pipeline string, step int) Key {
	return Key{Pipeline: pipeline, Step: step}
}

// IsSource reports whether the key names a published dataset.
func (k Key) IsSource() bool {
	return k.Source != ""
}

func (k Key) String() string {
	if k.IsSource() {
		return "source:" + k.Source
	}
	return fmt.Sprintf("(%s, %d)", k.Pipeline, k.Step)
}

type entry struct {
	done   chan struct{}
	handle any
	err    error
	owned  bool
	closed bool
}

func (e *entry) complete() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// Registry is safe for concurrent use by the workers of one pass.
type Registry struct {
	mu      sync.Mutex
	entries map[Key]*entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[Key]*entry)}
}

// lookup returns the entry for key, creating a pending one if needed.
// The caller must hold r.mu.
func (r *Registry) lookup(key Key) *entry {
	e, ok := r.entries[key]
	if !ok {
		e = &entry{done: make(chan struct{})}
		r.entries[key] = e
	}
	return e
}

func (r *Registry) write(key Key, handle any, err error, owned bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.lookup(key)
	if e.complete() {
		return fmt.Errorf("%s: %w", key, ErrAlreadyWritten)
	}
	e.handle, e.err, e.owned = handle, err, owned
	close(e.done)
	return nil
}

// Put installs a handle the registry owns.
func (r *Registry) Put(key Key, handle any) error {
	return r.write(key, handle, nil, true)
}

// Share installs a handle owned elsewhere; Clear will not release it.
func (r *Registry) Share(key Key, handle any) error {
	return r.write(key, handle, nil, false)
}

// Fail completes key with an error so that waiting readers are released.
func (r *Registry) Fail(key Key, cause error) error {
	if cause == nil {
		cause = errors.New("unknown failure")
	}
	return r.write(key, nil, fmt.Errorf("%w: %w", ErrFailed, cause), false)
}

// Get returns the handle stored under key. It reports false when the key is
// absent, still pending, or failed.
func (r *Registry) Get(key Key) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok || !e.complete() || e.err != nil {
		return nil, false
	}
	return e.handle, true
}

// Wait blocks until key is written, then returns its handle or the error
// recorded by Fail.
func (r *Registry) Wait(ctx context.Context, key Key) (any, error) {
	r.mu.Lock()
	e := r.lookup(key)
	r.mu.Unlock()

	select {
	case <-e.done:
		return e.handle, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of completed, successful results.
func (r *Registry) Len() int {
	return len(r.Keys())
}

// Keys returns the keys of completed, successful results, sources first,
// then by pipeline and step.
func (r *Registry) Keys() []Key {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]Key, 0, len(r.entries))
	for k, e := range r.entries {
		if e.complete() && e.err == nil {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.IsSource() != b.IsSource() {
			return a.IsSource()
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Pipeline != b.Pipeline {
			return a.Pipeline < b.Pipeline
		}
		return a.Step < b.Step
	})
	return keys
}

// Clear drops every entry. Pending readers receive ErrCleared and owned
// handles implementing io.Closer are closed. Errors from Close are joined
// and returned; the registry is empty either way.
func (r *Registry) Clear() error {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[Key]*entry)
	r.mu.Unlock()

	var errs []error
	for key, e := range entries {
		if !e.complete() {
			e.err = ErrCleared
			close(e.done)
			continue
		}
		if !e.owned || e.closed {
			continue
		}
		e.closed = true
		if c, ok := e.handle.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("release %s: %w", key, err))
			}
		}
	}
	return errors.Join(errs...)
}
