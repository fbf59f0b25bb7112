// Package observe implements the synchronous notification subsystem for
// attribute access. Every get/set on an owner instance fans out an Event to
// the handlers registered against that instance, in registration order, on
// the calling goroutine. Dispatch is reentrant: a handler may itself trigger
// another attribute's set.
package observe

import (
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Type identifies the pipeline step that produced an event.
type Type string

const (
	// TypeGet marks events emitted after a value was read.
	TypeGet Type = "get"
	// TypeSet marks events emitted after a value was written.
	TypeSet Type = "set"
)

// Event describes one attribute access.
type Event struct {
	// Name is the attribute's bound name.
	Name string
	// Type is "get" or "set".
	Type Type
	// New is the value after the access; Old is the previously cached value
	// (nil when none was cached).
	New any
	Old any
	// Owner is the instance the attribute was accessed on.
	Owner any
	// Cache reports whether the value was served from the instance cache
	// rather than a backend dispatch.
	Cache bool
	// Kwargs carries the keyword arguments of a parameterized access.
	Kwargs map[string]any
	// At is the dispatch timestamp, filled in by Notify when zero.
	At time.Time
}

// Handler receives events. A non-nil error propagates to the get/set caller;
// this layer never swallows handler failures.
type Handler interface {
	Handle(event Event) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(event Event) error

// Handle dispatches to the underlying function.
func (f HandlerFunc) Handle(event Event) error {
	if f == nil {
		return nil
	}
	return f(event)
}

// Token identifies one registration for later removal.
type Token string

// Filter restricts which events reach a handler.
type Filter struct {
	names []string
	types []Type
}

// FilterOption configures a registration filter.
type FilterOption func(*Filter)

// OnName restricts a handler to the named attributes. No names means all.
func OnName(names ...string) FilterOption {
	return func(f *Filter) {
		f.names = append(f.names, names...)
	}
}

// OnType restricts a handler to the given event types. No types means both.
func OnType(types ...Type) FilterOption {
	return func(f *Filter) {
		f.types = append(f.types, types...)
	}
}

func (f Filter) matches(event Event) bool {
	if len(f.names) > 0 && !slices.Contains(f.names, event.Name) {
		return false
	}
	if len(f.types) > 0 && !slices.Contains(f.types, event.Type) {
		return false
	}
	return true
}

type registration struct {
	token   Token
	handler Handler
	filter  Filter
}

// Registry holds the handlers registered against one owner instance. It is
// owned exclusively by that instance and carries no internal locking; callers
// operating one instance from multiple goroutines must serialize access.
type Registry struct {
	entries []registration
	holding bool
}

// NewRegistry constructs an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Observe registers handler behind the given filter and returns its token.
func (r *Registry) Observe(handler Handler, opts ...FilterOption) Token {
	var filter Filter
	for _, opt := range opts {
		if opt != nil {
			opt(&filter)
		}
	}
	token := Token(uuid.NewString())
	r.entries = append(r.entries, registration{
		token:   token,
		handler: handler,
		filter:  filter,
	})
	return token
}

// Unobserve removes the registration for token. An unknown token is an error.
func (r *Registry) Unobserve(token Token) error {
	for i, entry := range r.entries {
		if entry.token == token {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return nil
		}
	}
	return errors.New("observe: handler not registered")
}

// Notify dispatches event to every matching handler in registration order.
// Handler errors are joined and returned; later handlers still run. While a
// Hold is active no handlers run and Notify returns nil.
func (r *Registry) Notify(event Event) error {
	if r == nil || r.holding || len(r.entries) == 0 {
		return nil
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}

	// Snapshot so reentrant Observe/Unobserve inside a handler cannot
	// disturb this dispatch.
	entries := slices.Clone(r.entries)

	var errs []error
	for _, entry := range entries {
		if entry.handler == nil || !entry.filter.matches(event) {
			continue
		}
		if err := entry.handler.Handle(event); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// Hold suppresses notifications while fn runs. Writes made inside fn still
// update caches; only the notifications are dropped, so observers see the
// final values on the next access. Holds nest.
func (r *Registry) Hold(fn func()) {
	prev := r.holding
	r.holding = true
	defer func() { r.holding = prev }()
	fn()
}

// Holding reports whether notifications are currently suppressed.
func (r *Registry) Holding() bool {
	return r != nil && r.holding
}
