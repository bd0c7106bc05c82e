// Package errreg is the application-wide error registry.
//
// Components report failures under a fixed category label (for example
// "BLE Connect"); the registry keeps the most recent entries in arrival order
// and mirrors every report to the logger.
package errreg

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// DefaultCapacity is the number of entries kept before the oldest are evicted.
const DefaultCapacity = 100

// Entry is a single reported error.
type Entry struct {
	ID       ulid.ULID `json:"id"`
	Category string    `json:"category"`
	Message  string    `json:"message"`
	Time     time.Time `json:"time"`
	Err      error     `json:"-"`
}

// Registry stores reported errors. It is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	entries  *orderedmap.OrderedMap[ulid.ULID, Entry]
	capacity int
	logger   *logrus.Logger
	now      func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithCapacity bounds the number of retained entries. Values below 1 are ignored.
func WithCapacity(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.capacity = n
		}
	}
}

// New creates an empty registry.
func New(logger *logrus.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = logrus.New()
	}
	r := &Registry{
		entries:  orderedmap.New[ulid.ULID, Entry](),
		capacity: DefaultCapacity,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PutError records err under category. A nil error is ignored.
func (r *Registry) PutError(category string, err error) {
	if err == nil {
		return
	}

	r.mu.Lock()
	ts := r.now()
	entry := Entry{
		ID:       ulid.MustNew(ulid.Timestamp(ts), ulid.DefaultEntropy()),
		Category: category,
		Message:  err.Error(),
		Time:     ts,
		Err:      err,
	}
	r.entries.Set(entry.ID, entry)
	for r.entries.Len() > r.capacity {
		r.entries.Delete(r.entries.Oldest().Key)
	}
	r.mu.Unlock()

	r.logger.WithFields(logrus.Fields{
		"category": category,
		"id":       entry.ID.String(),
		"error":    err,
	}).Error("Error registered")
}

// Entries returns all retained entries, oldest first.
func (r *Registry) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]Entry, 0, r.entries.Len())
	for pair := r.entries.Oldest(); pair != nil; pair = pair.Next() {
		result = append(result, pair.Value)
	}
	return result
}

// ByCategory returns the retained entries reported under category, oldest first.
func (r *Registry) ByCategory(category string) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Entry
	for pair := r.entries.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Category == category {
			result = append(result, pair.Value)
		}
	}
	return result
}

// Len returns the number of retained entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries.Len()
}
