package attrs

// RoleKeyword marks a reusable keyword-argument declaration. Keyword specs
// are not registered as attributes; they attach to method attributes or to a
// registry as broadcast keywords.
const RoleKeyword Role = "keyword"

// KeywordSpec is the untyped view of one declared keyword argument: its
// name, whether a call must supply it, its default, and its validation.
// Keyword schemas are always declared explicitly; call signatures are never
// inferred from function objects.
type KeywordSpec interface {
	KeywordName() string
	Required() bool
	DefaultValue() (any, bool)
	ValidateValue(value any) (any, error)
}

// Keyword is a typed, reusable keyword-argument declaration. It is usable
// standalone or attached to method attributes via Keywords or
// WithBroadcastKeywords.
type Keyword[T any] struct {
	attr[T]
}

// NewKeyword declares a keyword argument. A keyword with no default is
// required on every call.
func NewKeyword[T any](name string, opts ...Option[T]) *Keyword[T] {
	k := &Keyword[T]{attr: newAttr[T](name, RoleKeyword, opts)}
	if k.cfg.Key != "" {
		k.fail("key is not valid for keyword arguments")
	}
	if k.cfg.Cache {
		k.fail("cache is not valid for keyword arguments")
	}
	if k.propGet != nil || k.propSet != nil || k.methGet != nil || k.methSet != nil {
		k.fail("accessor functions are not valid for keyword arguments")
	}
	return k
}

// KeywordName implements KeywordSpec.
func (k *Keyword[T]) KeywordName() string { return k.name }

// Required implements KeywordSpec.
func (k *Keyword[T]) Required() bool { return !k.cfg.HasDefault }

// DefaultValue implements KeywordSpec.
func (k *Keyword[T]) DefaultValue() (any, bool) {
	if !k.cfg.HasDefault {
		return nil, false
	}
	return k.cfg.Default, true
}

// ValidateValue implements KeywordSpec: cast, quantize, bounds, membership.
func (k *Keyword[T]) ValidateValue(value any) (any, error) {
	if len(k.errs) > 0 {
		return nil, configErrorf(k.name, "invalid keyword declaration")
	}
	raw, _, err := k.prepareSet(value)
	return raw, err
}

// Validate is the typed convenience form of ValidateValue.
func (k *Keyword[T]) Validate(value T) (T, error) {
	out, err := k.ValidateValue(value)
	var zero T
	if err != nil || out == nil {
		return zero, err
	}
	return out.(T), nil
}

// tokenKeyword is synthesized at method finalization for key-template tokens
// with no declared spec: required, untyped, passed through as supplied.
type tokenKeyword struct {
	name string
}

func (t tokenKeyword) KeywordName() string              { return t.name }
func (t tokenKeyword) Required() bool                   { return true }
func (t tokenKeyword) DefaultValue() (any, bool)        { return nil, false }
func (t tokenKeyword) ValidateValue(v any) (any, error) { return v, nil }
