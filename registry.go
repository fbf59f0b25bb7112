package attrs

import (
	"errors"
	"fmt"
	"sort"
)

// Registry holds the attribute declarations of one owner class: the
// name→descriptor map, the active KeyAdapter, and keyword specs broadcast to
// every method attribute. It doubles as the class-body builder: declarations
// are registered while the owner type is being assembled, then Finalize wires
// keyed accessors, surfaces configuration errors, and freezes the registry.
// A finalized registry is immutable and shared by all instances of the class.
type Registry struct {
	name      string
	attrs     map[string]Descriptor
	order     []string
	adapter   KeyAdapter
	broadcast []KeywordSpec
	logger    Logger
	finalized bool
}

// RegistryOption configures a Registry at construction.
type RegistryOption func(*Registry)

// WithAdapter installs the KeyAdapter that keyed properties and methods
// dispatch through.
func WithAdapter(adapter KeyAdapter) RegistryOption {
	return func(r *Registry) { r.adapter = adapter }
}

// WithLogger installs the logger used for non-fatal pipeline events.
func WithLogger(logger Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

// WithBroadcastKeywords shares keyword specs across every method attribute in
// the class.
func WithBroadcastKeywords(specs ...KeywordSpec) RegistryOption {
	return func(r *Registry) { r.broadcast = append(r.broadcast, specs...) }
}

// NewRegistry constructs an empty registry for the named owner class.
func NewRegistry(name string, opts ...RegistryOption) *Registry {
	r := &Registry{
		name:  name,
		attrs: map[string]Descriptor{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.logger == nil {
		r.logger = NopLogger()
	}
	return r
}

// Derive shallow-copies the registry for a subclass. Inherited descriptors
// are shared (they are immutable once bound); a subclass that redeclares an
// attribute registers a fresh descriptor that overlays the inherited one, so
// per-subclass changes never touch the parent's declaration.
func (r *Registry) Derive(name string, opts ...RegistryOption) *Registry {
	child := &Registry{
		name:      name,
		attrs:     make(map[string]Descriptor, len(r.attrs)),
		order:     append([]string(nil), r.order...),
		adapter:   r.adapter,
		broadcast: append([]KeywordSpec(nil), r.broadcast...),
		logger:    r.logger,
	}
	for attrName, desc := range r.attrs {
		child.attrs[attrName] = desc
	}
	for _, opt := range opts {
		if opt != nil {
			opt(child)
		}
	}
	return child
}

// Register adds a declaration. Registering the name of an inherited
// attribute overlays it. Registration after Finalize is an error.
func (r *Registry) Register(desc Descriptor) error {
	if r.finalized {
		return configErrorf(desc.Name(), "registry %q is finalized", r.name)
	}
	if desc == nil {
		return configErrorf("", "nil descriptor")
	}
	name := desc.Name()
	if name == "" {
		return configErrorf("", "attribute name must not be empty")
	}
	if _, exists := r.attrs[name]; !exists {
		r.order = append(r.order, name)
	}
	r.attrs[name] = desc
	return nil
}

// MustRegister is Register for declaration blocks where a failure is a
// programming error.
func (r *Registry) MustRegister(descs ...Descriptor) *Registry {
	for _, desc := range descs {
		if err := r.Register(desc); err != nil {
			panic(err)
		}
	}
	return r
}

// Finalize binds every descriptor: keyed properties and methods are wired to
// the adapter's generated accessors, method keywords are resolved once, and
// all configuration errors surface here, joined. Finalizing twice is a
// no-op. Descriptors inherited from a parent registry were bound there and
// are not re-bound.
func (r *Registry) Finalize() error {
	if r.finalized {
		return nil
	}
	var errs []error
	for _, name := range r.order {
		if err := r.attrs[name].Bind(r); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	r.finalized = true
	return nil
}

// MustFinalize panics on configuration errors; declaration bugs should fail
// at class definition, not at first use.
func (r *Registry) MustFinalize() *Registry {
	if err := r.Finalize(); err != nil {
		panic(err)
	}
	return r
}

// ClassName returns the owner class name the registry was declared for.
func (r *Registry) ClassName() string { return r.name }

// Finalized reports whether the registry is frozen.
func (r *Registry) Finalized() bool { return r.finalized }

// Adapter returns the active KeyAdapter, or nil.
func (r *Registry) Adapter() KeyAdapter { return r.adapter }

// Logger returns the registry's logger; never nil.
func (r *Registry) Logger() Logger {
	if r == nil || r.logger == nil {
		return NopLogger()
	}
	return r.logger
}

// Attr looks up a descriptor by name.
func (r *Registry) Attr(name string) (Descriptor, bool) {
	desc, ok := r.attrs[name]
	return desc, ok
}

// Names returns the declared attribute names in declaration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// SortedNames returns the declared attribute names alphabetically.
func (r *Registry) SortedNames() []string {
	names := r.Names()
	sort.Strings(names)
	return names
}

// GetAttr reads the named attribute on owner through its full pipeline.
func GetAttr(owner Owner, name string) (any, error) {
	desc, ok := owner.AttrRegistry().Attr(name)
	if !ok {
		return nil, fmt.Errorf("attrs: no attribute %q", name)
	}
	return desc.GetAny(owner, nil)
}

// SetAttr writes the named attribute on owner through its full pipeline.
func SetAttr(owner Owner, name string, value any) error {
	desc, ok := owner.AttrRegistry().Attr(name)
	if !ok {
		return fmt.Errorf("attrs: no attribute %q", name)
	}
	return desc.SetAny(owner, value, nil)
}
