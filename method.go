package attrs

import (
	"sort"

	"github.com/goliatone/go-attrs/observe"
)

// Method is an adapter-mediated attribute whose accesses take extra keyword
// arguments, e.g. a per-channel setting addressed as
// power.Call(owner, attrs.Kwargs{"channel": 2}). The presence of the variadic
// value argument is what distinguishes a set from a get, mirroring the
// optional positional "new value" parameter of the synthesized signature.
type Method[T any] struct {
	attr[T]
	wiring wireState
	// specs is the keyword schema, bound once at registry finalization from
	// the declared specs, the registry's broadcast specs, and any key
	// template tokens left uncovered. Never re-derived per call.
	specs []KeywordSpec
}

// NewMethod declares a parameterized adapter-mediated attribute.
func NewMethod[T any](name string, opts ...Option[T]) *Method[T] {
	return &Method[T]{attr: newAttr[T](name, RoleMethod, opts)}
}

// Bind implements Descriptor: wiring state machine, access policy, and the
// one-time keyword binding.
func (m *Method[T]) Bind(reg *Registry) error {
	if m.bound {
		return m.bindErr
	}
	return m.finishBind(m.bind(reg))
}

func (m *Method[T]) bind(reg *Registry) error {
	if err := m.bindBase(reg); err != nil {
		return err
	}

	decorated := m.methGet != nil || m.methSet != nil
	keyed := m.cfg.Key != ""

	switch {
	case decorated && keyed:
		return configErrorf(m.qname, "both a key and accessor functions are declared; remove one")
	case decorated:
		m.wiring = wireDecorated
		if m.cfg.Gets != nil && *m.cfg.Gets && m.methGet == nil {
			return configErrorf(m.qname, "declared readable but no getter is wired")
		}
		if m.cfg.Sets != nil && *m.cfg.Sets && m.methSet == nil {
			return configErrorf(m.qname, "declared writable but no setter is wired")
		}
		m.getsOK = m.methGet != nil && (m.cfg.Gets == nil || *m.cfg.Gets)
		m.setsOK = m.methSet != nil && (m.cfg.Sets == nil || *m.cfg.Sets)
	case keyed:
		m.wiring = wireKeyed
		if reg.adapter == nil {
			return configErrorf(m.qname, "key %q declared but registry %q has no adapter", m.cfg.Key, reg.name)
		}
		m.getsOK = m.cfg.Gets == nil || *m.cfg.Gets
		m.setsOK = m.cfg.Sets == nil || *m.cfg.Sets
	default:
		m.wiring = wireUnimplemented
		if m.cfg.Gets != nil && *m.cfg.Gets {
			return configErrorf(m.qname, "declared readable but neither key nor getter is wired")
		}
		if m.cfg.Sets != nil && *m.cfg.Sets {
			return configErrorf(m.qname, "declared writable but neither key nor setter is wired")
		}
		m.getsOK = false
		m.setsOK = false
	}

	return m.bindKeywords(reg)
}

func (m *Method[T]) bindKeywords(reg *Registry) error {
	seen := map[string]bool{}
	var specs []KeywordSpec
	for _, spec := range m.keywords {
		name := spec.KeywordName()
		if seen[name] {
			return configErrorf(m.qname, "duplicate keyword %q", name)
		}
		seen[name] = true
		specs = append(specs, spec)
	}
	for _, spec := range reg.broadcast {
		if seen[spec.KeywordName()] {
			continue
		}
		seen[spec.KeywordName()] = true
		specs = append(specs, spec)
	}
	if m.wiring == wireKeyed {
		for _, token := range reg.adapter.KwargNames(m.cfg.Key) {
			if seen[token] {
				continue
			}
			seen[token] = true
			specs = append(specs, tokenKeyword{name: token})
		}
	}
	m.specs = specs
	return nil
}

// KeywordNames returns the bound keyword schema names, sorted.
func (m *Method[T]) KeywordNames() []string {
	names := make([]string, 0, len(m.specs))
	for _, spec := range m.specs {
		names = append(names, spec.KeywordName())
	}
	sort.Strings(names)
	return names
}

// Call accesses the method. With no value it performs a get; with one value
// it performs a set and returns the effective value (the backend-accepted
// value when GetOnSet is declared, otherwise the validated input).
func (m *Method[T]) Call(owner Owner, kwargs Kwargs, value ...T) (T, error) {
	var zero T
	switch len(value) {
	case 0:
		return m.typedGet(m.GetAny(owner, kwargs))
	case 1:
		if err := m.SetAny(owner, value[0], kwargs); err != nil {
			return zero, err
		}
		raw, _ := owner.AttrStore().Cached(m.name)
		return m.typedGet(raw, nil)
	default:
		return zero, validationErrorf(m.qnameOrName(), value, "at most one value per call")
	}
}

// GetAny implements Descriptor.
func (m *Method[T]) GetAny(owner Owner, kwargs Kwargs) (any, error) {
	if err := m.requireGets(); err != nil {
		return nil, err
	}
	kwargs, err := m.resolveKwargs(kwargs)
	if err != nil {
		return nil, err
	}
	if m.cfg.Cache {
		if raw, ok := owner.AttrStore().Cached(m.name); ok {
			return m.resolveGet(owner, raw, kwargs, true)
		}
	}
	raw, err := m.dispatchGet(owner, kwargs)
	if err != nil {
		return nil, err
	}
	return m.resolveGet(owner, raw, kwargs, false)
}

// SetAny implements Descriptor.
func (m *Method[T]) SetAny(owner Owner, value any, kwargs Kwargs) error {
	if err := m.requireSets(); err != nil {
		return err
	}
	kwargs, err := m.resolveKwargs(kwargs)
	if err != nil {
		return err
	}
	raw, typed, err := m.prepareSet(value)
	if err != nil {
		return err
	}
	if err := m.dispatchSet(owner, raw, typed, kwargs); err != nil {
		return err
	}
	if err := m.record(owner, observe.TypeSet, raw, false, kwargs); err != nil {
		return err
	}
	if m.cfg.GetOnSet {
		owner.AttrStore().dropCached(m.name)
		if _, err := m.GetAny(owner, kwargs); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAny implements Descriptor.
func (m *Method[T]) ValidateAny(value any) (any, error) {
	raw, _, err := m.prepareSet(value)
	return raw, err
}

// resolveKwargs applies the bound schema: unknown names are rejected,
// defaults are filled, values are validated through each spec.
func (m *Method[T]) resolveKwargs(kwargs Kwargs) (Kwargs, error) {
	known := map[string]KeywordSpec{}
	for _, spec := range m.specs {
		known[spec.KeywordName()] = spec
	}
	for name := range kwargs {
		if _, ok := known[name]; !ok {
			return nil, validationErrorf(m.qnameOrName(), name, "unknown keyword argument")
		}
	}

	out := kwargs.Clone()
	var missing []string
	for _, spec := range m.specs {
		name := spec.KeywordName()
		supplied, ok := out[name]
		if !ok {
			if def, has := spec.DefaultValue(); has {
				out[name] = def
			} else if spec.Required() {
				missing = append(missing, name)
			}
			continue
		}
		validated, err := spec.ValidateValue(supplied)
		if err != nil {
			return nil, wrapAttrError(m.qnameOrName(), err)
		}
		out[name] = validated
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &KeyError{Attr: m.qnameOrName(), Key: m.cfg.Key, Missing: missing}
	}
	return out, nil
}

func (m *Method[T]) dispatchGet(owner Owner, kwargs Kwargs) (any, error) {
	switch m.wiring {
	case wireDecorated:
		value, err := m.methGet(owner, kwargs)
		if err != nil {
			return nil, wrapAttrError(m.qname, err)
		}
		return value, nil
	case wireKeyed:
		return m.reg.adapter.Get(owner, m.cfg.Key, m, kwargs)
	default:
		return nil, &AccessError{Attr: m.qname, Op: "get"}
	}
}

func (m *Method[T]) dispatchSet(owner Owner, raw any, typed T, kwargs Kwargs) error {
	switch m.wiring {
	case wireDecorated:
		if err := m.methSet(owner, typed, kwargs); err != nil {
			return wrapAttrError(m.qname, err)
		}
		return nil
	case wireKeyed:
		return m.reg.adapter.Set(owner, m.cfg.Key, raw, m, kwargs)
	default:
		return &AccessError{Attr: m.qname, Op: "set"}
	}
}
