package attrs

import (
	"fmt"

	"github.com/goliatone/go-attrs/observe"
)

// scriptedBackend records writes and answers queries from a canned table.
type scriptedBackend struct {
	writes    []string
	queries   []string
	responses map[string]string
	writeErr  error
	queryErr  error
}

func (b *scriptedBackend) Write(message string) error {
	b.writes = append(b.writes, message)
	return b.writeErr
}

func (b *scriptedBackend) Query(message string) (string, error) {
	b.queries = append(b.queries, message)
	if b.queryErr != nil {
		return "", b.queryErr
	}
	if response, ok := b.responses[message]; ok {
		return response, nil
	}
	return "", fmt.Errorf("no scripted response for %q", message)
}

// instrument is the standard test owner: a registry, a store, and a
// scripted backend.
type instrument struct {
	reg   *Registry
	store *Store
	scriptedBackend
}

func (d *instrument) AttrRegistry() *Registry { return d.reg }
func (d *instrument) AttrStore() *Store       { return d.store }

func newInstrument(reg *Registry) (*instrument, error) {
	store, err := NewStore(reg)
	if err != nil {
		return nil, err
	}
	return &instrument{reg: reg, store: store}, nil
}

func mustInstrument(reg *Registry) *instrument {
	owner, err := newInstrument(reg)
	if err != nil {
		panic(err)
	}
	return owner
}

// collectEvents registers an observer that appends every event to the
// returned slice.
func collectEvents(owner Owner, opts ...observe.FilterOption) *[]observe.Event {
	events := &[]observe.Event{}
	Observe(owner, observe.HandlerFunc(func(event observe.Event) error {
		*events = append(*events, event)
		return nil
	}), opts...)
	return events
}
