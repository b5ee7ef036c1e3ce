// Package pending tracks in-flight requests by a de-duplication key.
//
// Registering a request under a key which is already tracked cancels the older request,
// so at most one request per key is in flight. The cancellation cause is a *CancelError,
// use IsCancel to distinguish a superseded request from a failure.
package pending

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Tracker maps a request key to the cancel handle of the in-flight request.
// It is safe for concurrent use.
type Tracker struct {
	logger  *zap.Logger
	lock    sync.Mutex
	nextID  uint64
	entries map[string]*Entry
}

// Entry is a tracked request.
type Entry struct {
	tracker *Tracker
	key     string
	id      uint64
	cancel  context.CancelCauseFunc
}

type Option func(*Tracker)

// WithLogger sets the logger, cancellations are logged at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// NewTracker creates an empty Tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{logger: zap.NewNop(), entries: make(map[string]*Entry)}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Add registers a request under the key and returns the context the request must be sent with.
// An older request with the same key is canceled.
func (t *Tracker) Add(ctx context.Context, key string) (context.Context, *Entry) {
	ctx, cancel := context.WithCancelCause(ctx)

	t.lock.Lock()
	defer t.lock.Unlock()

	if old, found := t.entries[key]; found {
		t.cancelEntry(old, ReasonSuperseded)
	}

	t.nextID++
	entry := &Entry{tracker: t, key: key, id: t.nextID, cancel: cancel}
	t.entries[key] = entry
	return ctx, entry
}

// Remove cancels and deletes the request under the key.
// It returns false if no request is tracked under the key.
func (t *Tracker) Remove(key string) bool {
	t.lock.Lock()
	defer t.lock.Unlock()

	entry, found := t.entries[key]
	if !found {
		return false
	}
	t.cancelEntry(entry, ReasonRemoved)
	return true
}

// ClearAll cancels all tracked requests and empties the tracker.
// It returns the number of canceled requests.
func (t *Tracker) ClearAll() int {
	t.lock.Lock()
	defer t.lock.Unlock()

	count := len(t.entries)
	for _, entry := range t.entries {
		t.cancelEntry(entry, ReasonCleared)
	}
	return count
}

// Len returns the number of tracked requests.
func (t *Tracker) Len() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.entries)
}

// Has returns true if a request is tracked under the key.
func (t *Tracker) Has(key string) bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	_, found := t.entries[key]
	return found
}

// cancelEntry must be called with the lock held.
func (t *Tracker) cancelEntry(entry *Entry, reason Reason) {
	delete(t.entries, entry.key)
	entry.cancel(&CancelError{Key: entry.key, Reason: reason})
	t.logger.Debug("pending request canceled", zap.String("request.key", entry.key), zap.String("reason", string(reason)))
}

// Key returns the key of the request.
func (e *Entry) Key() string {
	return e.key
}

// Done deregisters the settled request and releases its context.
// The entry is removed only if it was not superseded meanwhile, a newer request with the same key is kept.
func (e *Entry) Done() bool {
	t := e.tracker
	t.lock.Lock()
	defer t.lock.Unlock()

	// Release context resources, it has no effect on an already canceled context
	e.cancel(nil)

	if current, found := t.entries[e.key]; found && current.id == e.id {
		delete(t.entries, e.key)
		return true
	}
	return false
}
