package attrs

import "github.com/goliatone/go-attrs/observe"

// wireState tracks how a property or method attribute acquired its
// accessors. The transitions run once, at registry finalization:
// unbound → decorated | keyed | unimplemented. Unimplemented with an explicit
// access request is a terminal configuration error; otherwise access degrades
// to read/write disabled.
type wireState int

const (
	wireUnbound wireState = iota
	wireDecorated
	wireKeyed
	wireUnimplemented
)

// Property is an adapter-mediated attribute: get and set dispatch either
// through explicit accessor functions or through the registry's KeyAdapter
// via the declared key. The two wirings are mutually exclusive.
type Property[T any] struct {
	attr[T]
	wiring wireState
}

// NewProperty declares an adapter-mediated attribute.
func NewProperty[T any](name string, opts ...Option[T]) *Property[T] {
	return &Property[T]{attr: newAttr[T](name, RoleProperty, opts)}
}

// Bind implements Descriptor: resolves the wiring state machine and the
// effective access policy.
func (p *Property[T]) Bind(reg *Registry) error {
	if p.bound {
		return p.bindErr
	}
	return p.finishBind(p.bind(reg))
}

func (p *Property[T]) bind(reg *Registry) error {
	if err := p.bindBase(reg); err != nil {
		return err
	}

	decorated := p.propGet != nil || p.propSet != nil
	keyed := p.cfg.Key != ""

	switch {
	case decorated && keyed:
		return configErrorf(p.qname, "both a key and accessor functions are declared; remove one")
	case decorated:
		p.wiring = wireDecorated
		if p.cfg.Gets != nil && *p.cfg.Gets && p.propGet == nil {
			return configErrorf(p.qname, "declared readable but no getter is wired")
		}
		if p.cfg.Sets != nil && *p.cfg.Sets && p.propSet == nil {
			return configErrorf(p.qname, "declared writable but no setter is wired")
		}
		p.getsOK = p.propGet != nil && (p.cfg.Gets == nil || *p.cfg.Gets)
		p.setsOK = p.propSet != nil && (p.cfg.Sets == nil || *p.cfg.Sets)
	case keyed:
		p.wiring = wireKeyed
		if reg.adapter == nil {
			return configErrorf(p.qname, "key %q declared but registry %q has no adapter", p.cfg.Key, reg.name)
		}
		p.getsOK = p.cfg.Gets == nil || *p.cfg.Gets
		p.setsOK = p.cfg.Sets == nil || *p.cfg.Sets
	default:
		p.wiring = wireUnimplemented
		if p.cfg.Gets != nil && *p.cfg.Gets {
			return configErrorf(p.qname, "declared readable but neither key nor getter is wired")
		}
		if p.cfg.Sets != nil && *p.cfg.Sets {
			return configErrorf(p.qname, "declared writable but neither key nor setter is wired")
		}
		p.getsOK = false
		p.setsOK = false
	}
	return nil
}

// Get reads the property: cache check, backend dispatch, cast/validate,
// notify.
func (p *Property[T]) Get(owner Owner) (T, error) {
	return p.typedGet(p.GetAny(owner, nil))
}

// Set writes the property: cast/validate, backend dispatch, notify, and the
// follow-up get when GetOnSet is declared.
func (p *Property[T]) Set(owner Owner, value T) error {
	return p.SetAny(owner, value, nil)
}

// GetAny implements Descriptor.
func (p *Property[T]) GetAny(owner Owner, kwargs Kwargs) (any, error) {
	if err := p.requireGets(); err != nil {
		return nil, err
	}
	if p.cfg.Cache {
		if raw, ok := owner.AttrStore().Cached(p.name); ok {
			return p.resolveGet(owner, raw, kwargs, true)
		}
	}
	raw, err := p.dispatchGet(owner, kwargs)
	if err != nil {
		return nil, err
	}
	return p.resolveGet(owner, raw, kwargs, false)
}

// SetAny implements Descriptor.
func (p *Property[T]) SetAny(owner Owner, value any, kwargs Kwargs) error {
	if err := p.requireSets(); err != nil {
		return err
	}
	raw, typed, err := p.prepareSet(value)
	if err != nil {
		return err
	}
	if err := p.dispatchSet(owner, raw, typed, kwargs); err != nil {
		return err
	}
	if err := p.record(owner, observe.TypeSet, raw, false, kwargs); err != nil {
		return err
	}
	if p.cfg.GetOnSet {
		// Pick up the value the backend actually accepted; devices clamp
		// and round. The follow-up get must not be served from cache.
		owner.AttrStore().dropCached(p.name)
		if _, err := p.GetAny(owner, kwargs); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAny implements Descriptor.
func (p *Property[T]) ValidateAny(value any) (any, error) {
	raw, _, err := p.prepareSet(value)
	return raw, err
}

func (p *Property[T]) dispatchGet(owner Owner, kwargs Kwargs) (any, error) {
	switch p.wiring {
	case wireDecorated:
		value, err := p.propGet(owner)
		if err != nil {
			return nil, wrapAttrError(p.qname, err)
		}
		return value, nil
	case wireKeyed:
		return p.reg.adapter.Get(owner, p.cfg.Key, p, kwargs)
	default:
		return nil, &AccessError{Attr: p.qname, Op: "get"}
	}
}

func (p *Property[T]) dispatchSet(owner Owner, raw any, typed T, kwargs Kwargs) error {
	switch p.wiring {
	case wireDecorated:
		if err := p.propSet(owner, typed); err != nil {
			return wrapAttrError(p.qname, err)
		}
		return nil
	case wireKeyed:
		return p.reg.adapter.Set(owner, p.cfg.Key, raw, p, kwargs)
	default:
		return &AccessError{Attr: p.qname, Op: "set"}
	}
}
