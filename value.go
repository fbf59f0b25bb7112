package attrs

import "github.com/goliatone/go-attrs/observe"

// Value is a locally stored attribute: every get and set resolves to the
// owner's instance store, never to a backend. A declared default seeds the
// store at instance construction.
type Value[T any] struct {
	attr[T]
	seed    any
	hasSeed bool
}

// NewValue declares a stored value attribute.
func NewValue[T any](name string, opts ...Option[T]) *Value[T] {
	return &Value[T]{attr: newAttr[T](name, RoleValue, opts)}
}

// Bind implements Descriptor. The default, when declared, is validated here
// so a bad declaration fails at class finalization rather than at the first
// instance construction.
func (v *Value[T]) Bind(reg *Registry) error {
	if v.bound {
		return v.bindErr
	}
	return v.finishBind(v.bind(reg))
}

func (v *Value[T]) bind(reg *Registry) error {
	if err := v.bindBase(reg); err != nil {
		return err
	}
	v.getsOK = v.cfg.Gets == nil || *v.cfg.Gets
	v.setsOK = v.cfg.Sets == nil || *v.cfg.Sets

	if v.cfg.HasDefault {
		if v.cfg.Default == nil {
			v.seed, v.hasSeed = nil, true
		} else {
			typed, err := v.cast(v.cfg.Default)
			if err != nil {
				return configErrorf(v.qname, "invalid default: %v", err)
			}
			typed, err = v.validate(typed)
			if err != nil {
				return configErrorf(v.qname, "invalid default: %v", err)
			}
			if err := v.checkOnly(typed, true); err != nil {
				return configErrorf(v.qname, "invalid default: %v", err)
			}
			v.seed, v.hasSeed = typed, true
		}
	}
	return nil
}

// seedValue reports the validated default for store construction.
func (v *Value[T]) seedValue() (any, bool) {
	return v.seed, v.hasSeed
}

// Get reads the stored value.
func (v *Value[T]) Get(owner Owner) (T, error) {
	return v.typedGet(v.GetAny(owner, nil))
}

// Set writes the stored value through the validate/cast pipeline.
func (v *Value[T]) Set(owner Owner, value T) error {
	return v.SetAny(owner, value, nil)
}

// GetAny implements Descriptor.
func (v *Value[T]) GetAny(owner Owner, kwargs Kwargs) (any, error) {
	if err := v.requireGets(); err != nil {
		return nil, err
	}
	raw, _ := owner.AttrStore().Cached(v.name)
	return v.resolveGet(owner, raw, kwargs, true)
}

// SetAny implements Descriptor.
func (v *Value[T]) SetAny(owner Owner, value any, kwargs Kwargs) error {
	if err := v.requireSets(); err != nil {
		return err
	}
	raw, _, err := v.prepareSet(value)
	if err != nil {
		return err
	}
	return v.record(owner, observe.TypeSet, raw, false, kwargs)
}

// ValidateAny implements Descriptor.
func (v *Value[T]) ValidateAny(value any) (any, error) {
	raw, _, err := v.prepareSet(value)
	return raw, err
}
