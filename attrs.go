// Package attrs is a declarative typed-attribute framework: named, validated,
// observable parameters declared on stateful owner objects without
// hard-coding how each value is obtained or stored. A declaration specifies a
// semantic type, bounds, access policy, caching, and one of three backing
// strategies: a locally stored value, an adapter-mediated property, or an
// adapter-mediated parameterized method. Derived attributes (package calib)
// define calibrated or transformed functions of other attributes.
//
// Declarations are collected into a per-owner-class Registry, finalized once,
// and accessed through a per-instance Store. The package performs no I/O
// itself; keyed dispatch calls out through the owner's Backend.
package attrs

import "maps"

// Role distinguishes the attribute kinds.
type Role string

const (
	// RoleValue is a locally stored value backed by the instance store.
	RoleValue Role = "value"
	// RoleProperty is an adapter-mediated single value.
	RoleProperty Role = "property"
	// RoleMethod is an adapter-mediated value accepting per-call keywords.
	RoleMethod Role = "method"
	// RoleDerived is a value computed from other attributes.
	RoleDerived Role = "derived"
)

// Kwargs carries the keyword arguments of a parameterized access.
type Kwargs map[string]any

// Clone returns an independent copy so pipeline stages can fill defaults
// without mutating the caller's map.
func (k Kwargs) Clone() Kwargs {
	if k == nil {
		return Kwargs{}
	}
	return maps.Clone(k)
}

// Owner is implemented by objects that carry declared attributes. The
// registry is shared by all instances of the owner's type; the store is
// exclusive to one instance.
type Owner interface {
	AttrRegistry() *Registry
	AttrStore() *Store
}

// Backend is the write/query pair consumed by key-based dispatch. Owners
// whose attributes declare keys must implement it; the concrete transport
// (subprocess, wire protocol, serial) is outside this layer.
type Backend interface {
	Write(message string) error
	Query(message string) (string, error)
}

// Descriptor is the untyped view of one declared attribute, as held by a
// Registry. The typed kinds (Value, Property, Method, calib.Derived) all
// implement it.
type Descriptor interface {
	// Name returns the attribute's declared name.
	Name() string
	// Role returns the attribute kind.
	Role() Role
	// Config returns the shared declaration config.
	Config() *Config

	// Bind attaches the descriptor to its owner registry, wires keyed
	// accessors, and surfaces configuration errors. Binding is idempotent.
	Bind(reg *Registry) error

	// GetAny and SetAny run the full get/set pipeline with untyped values.
	GetAny(owner Owner, kwargs Kwargs) (any, error)
	SetAny(owner Owner, value any, kwargs Kwargs) error

	// ValidateAny casts and validates a candidate value without dispatching
	// or notifying.
	ValidateAny(value any) (any, error)

	// CastAny converts a candidate to the attribute's semantic type without
	// bounds or membership checks. Derived attributes use it to check
	// calibrated inputs against their base attribute's type, whose bounds
	// apply to the uncalibrated domain.
	CastAny(value any) (any, error)
}

// FloatBounded is implemented by numeric descriptors that can report their
// declared bounds as floats. Derived transforms use it for bounds
// propagation.
type FloatBounded interface {
	FloatBounds() (min, max float64, ok bool)
}

// qualifiedName is the (owner class, attribute name) identity used in error
// messages and notifications.
func qualifiedName(reg *Registry, name string) string {
	if reg == nil || reg.name == "" {
		return name
	}
	return reg.name + "." + name
}
