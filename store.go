package attrs

import (
	"github.com/goliatone/go-attrs/observe"
)

// Store is the per-instance runtime state of an owner: the value cache, lazy
// calibration state, and the observer handler registry. One Store belongs to
// exactly one owner instance; it carries no internal locking, so callers that
// operate an instance from multiple goroutines must serialize access.
type Store struct {
	reg       *Registry
	cache     map[string]any
	calib     map[string]any
	observers *observe.Registry
}

// NewStore builds the instance state for one owner of the registry's class
// and seeds value-attribute defaults. Seeding bypasses notifications: nothing
// can observe an instance that is still being constructed. The registry must
// be finalized first.
func NewStore(reg *Registry) (*Store, error) {
	if reg == nil {
		return nil, configErrorf("", "registry is required")
	}
	if !reg.Finalized() {
		return nil, configErrorf("", "registry %q is not finalized", reg.name)
	}
	s := &Store{
		reg:       reg,
		cache:     map[string]any{},
		calib:     map[string]any{},
		observers: observe.NewRegistry(),
	}
	for _, name := range reg.order {
		if seeder, ok := reg.attrs[name].(defaultSeeder); ok {
			if value, has := seeder.seedValue(); has {
				s.cache[name] = value
			}
		}
	}
	return s, nil
}

// defaultSeeder is implemented by value attributes that carry a default.
type defaultSeeder interface {
	seedValue() (any, bool)
}

// Registry returns the class registry the store was built from.
func (s *Store) Registry() *Registry { return s.reg }

// Cached returns the last value recorded for name.
func (s *Store) Cached(name string) (any, bool) {
	value, ok := s.cache[name]
	return value, ok
}

// SetCached records a value without running any pipeline. It exists for
// attribute implementations (including derived attributes in package calib);
// application code should set values through descriptors.
func (s *Store) SetCached(name string, value any) {
	s.setCached(name, value)
}

func (s *Store) setCached(name string, value any) {
	s.cache[name] = value
}

// dropCached removes a cache entry, forcing the next get to dispatch.
func (s *Store) dropCached(name string) {
	delete(s.cache, name)
}

// Calibration returns the lazily built calibration state for a derived
// attribute.
func (s *Store) Calibration(name string) (any, bool) {
	state, ok := s.calib[name]
	return state, ok
}

// SetCalibration stores calibration state for a derived attribute.
func (s *Store) SetCalibration(name string, state any) {
	s.calib[name] = state
}

// DropCalibration clears calibration state so the next access reloads it.
func (s *Store) DropCalibration(name string) {
	delete(s.calib, name)
}

// Observers returns the instance's handler registry.
func (s *Store) Observers() *observe.Registry { return s.observers }

// Observe registers handler against owner's store and returns its token.
func Observe(owner Owner, handler observe.Handler, opts ...observe.FilterOption) observe.Token {
	return owner.AttrStore().Observers().Observe(handler, opts...)
}

// Unobserve removes a previously registered handler; an unknown token is an
// error.
func Unobserve(owner Owner, token observe.Token) error {
	return owner.AttrStore().Observers().Unobserve(token)
}

// Hold suppresses owner's notifications while fn runs. Writes inside fn
// still update the cache, so observers see only the final values afterward.
func Hold(owner Owner, fn func()) {
	owner.AttrStore().Observers().Hold(fn)
}
