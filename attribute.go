package attrs

import (
	"errors"
	"math"
	"os"
	"reflect"
	"strings"

	"github.com/goliatone/go-attrs/internal/coerce"
	"github.com/goliatone/go-attrs/observe"
)

// attr is the shared core of every typed attribute kind: declaration config,
// the cast/validate pipeline, and binding state.
type attr[T any] struct {
	name string
	role Role
	cfg  Config

	// numeric constraints, normalized to float64 at declaration
	min, max, step *float64

	only            []T
	caseInsensitive bool
	caseSet         bool
	mustExist       bool
	mustExistSet    bool
	acceptPort      bool
	acceptPortSet   bool
	allowNilSet     bool
	nilDefault      bool

	propGet  func(Owner) (T, error)
	propSet  func(Owner, T) error
	methGet  func(Owner, Kwargs) (T, error)
	methSet  func(Owner, T, Kwargs) error
	keywords []KeywordSpec

	// effective access policy, resolved at bind
	getsOK bool
	setsOK bool

	remapTab *remapTable

	errs []error
	reg  *Registry

	// bound records that Bind ran; bindErr keeps its result so re-finalizing
	// neither re-wires a shared descriptor nor drops a configuration error.
	bound   bool
	bindErr error
	qname   string
}

func newAttr[T any](name string, role Role, opts []Option[T]) attr[T] {
	a := attr[T]{
		name: name,
		role: role,
		cfg:  Config{Log: true},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&a)
		}
	}
	a.validateDeclaration()
	return a
}

// validateDeclaration records role- and type-inappropriate options. The
// errors surface when the registry finalizes, never at first access.
func (a *attr[T]) validateDeclaration() {
	if a.name == "" {
		a.fail("attribute name must not be empty")
	}

	switch a.role {
	case RoleValue:
		if a.cfg.Key != "" {
			a.fail("key is not valid for value attributes")
		}
		if a.cfg.GetOnSet {
			a.fail("get-on-set is not valid for value attributes")
		}
		if a.propGet != nil || a.propSet != nil || a.methGet != nil || a.methSet != nil {
			a.fail("accessor functions are not valid for value attributes")
		}
	case RoleProperty:
		if a.cfg.HasDefault {
			a.fail("default is only valid for value attributes")
		}
		if a.methGet != nil || a.methSet != nil {
			a.fail("method accessors are not valid for property attributes")
		}
		if len(a.keywords) > 0 {
			a.fail("keyword specs are only valid for method attributes")
		}
	case RoleMethod:
		if a.cfg.HasDefault {
			a.fail("default is only valid for value attributes")
		}
		if a.propGet != nil || a.propSet != nil {
			a.fail("property accessors are not valid for method attributes")
		}
	}

	var zero T
	if a.mustExistSet {
		if _, ok := any(zero).(Path); !ok {
			a.fail("must-exist is only valid for path attributes")
		}
	}
	if a.acceptPortSet {
		if _, ok := any(zero).(NetAddr); !ok {
			a.fail("accept-port is only valid for network-address attributes")
		}
	}
	if a.caseSet {
		if _, ok := any(zero).(string); !ok {
			if _, pathOK := any(zero).(Path); !pathOK {
				a.fail("case is only valid for string attributes")
			}
		}
	}
	if a.step != nil && *a.step <= 0 {
		a.fail("step must be positive")
	}
	if a.min != nil && a.max != nil && *a.min > *a.max {
		a.fail("min exceeds max")
	}

	if a.nilDefault {
		if a.allowNilSet && !a.cfg.AllowNil {
			a.fail("nil default requires allow-nil")
		}
		if !a.allowNilSet {
			a.cfg.AllowNil = true
		}
	}
}

func (a *attr[T]) fail(reason string) {
	a.errs = append(a.errs, &ConfigError{Attr: a.name, Reason: reason})
}

func (a *attr[T]) Name() string    { return a.name }
func (a *attr[T]) Role() Role      { return a.role }
func (a *attr[T]) Config() *Config { return &a.cfg }

// AccessPolicy implements AccessReporter.
func (a *attr[T]) AccessPolicy() (bool, bool) { return a.getsOK, a.setsOK }

// FloatBounds implements FloatBounded for derived bounds propagation.
func (a *attr[T]) FloatBounds() (float64, float64, bool) {
	if a.min == nil || a.max == nil {
		return 0, 0, false
	}
	return *a.min, *a.max, true
}

// bindBase attaches the attribute to reg and surfaces declaration errors.
func (a *attr[T]) bindBase(reg *Registry) error {
	if len(a.errs) > 0 {
		return errors.Join(a.errs...)
	}
	if a.cfg.Remap != nil {
		table, err := newRemapTable(a.name, a.cfg.Remap)
		if err != nil {
			return err
		}
		a.remapTab = table
	}
	a.reg = reg
	a.qname = qualifiedName(reg, a.name)
	return nil
}

// finishBind caches the outcome of the first Bind. Derived registries share
// inherited descriptors, so a repeat Bind replays the original result instead
// of re-wiring or dropping a configuration error.
func (a *attr[T]) finishBind(err error) error {
	a.bound = true
	a.bindErr = err
	return err
}

// messageRemap exposes the attribute's validated remap table to the adapter.
func (a *attr[T]) messageRemap() *remapTable { return a.remapTab }

func (a *attr[T]) logger() Logger {
	if a.reg != nil && a.reg.logger != nil {
		return a.reg.logger
	}
	return noopLogger{}
}

// CastAny implements the cast-only half of the pipeline; nil passes through.
func (a *attr[T]) CastAny(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	typed, err := a.cast(value)
	if err != nil {
		return nil, err
	}
	return typed, nil
}

// cast converts an untyped candidate into T.
func (a *attr[T]) cast(value any) (T, error) {
	out, err := coerce.To[T](value)
	if err != nil {
		var zero T
		return zero, &ValidationError{Attr: a.qnameOrName(), Value: value, Err: err}
	}
	return out, nil
}

// validate runs quantization, bounds, and type-specific checks. Membership
// against Only is handled separately because get and set disagree on whether
// a violation raises.
func (a *attr[T]) validate(value T) (T, error) {
	value, err := a.quantizeAndBound(value)
	if err != nil {
		return value, err
	}
	return value, a.checkSemantic(value)
}

func (a *attr[T]) quantizeAndBound(value T) (T, error) {
	if a.step == nil && a.min == nil && a.max == nil {
		return value, nil
	}
	f, err := coerce.Float(value)
	if err != nil {
		return value, validationErrorf(a.qnameOrName(), value, "not numeric: %v", err)
	}
	if a.step != nil {
		step := *a.step
		q := math.Floor(f / step)
		if rem := f - q*step; rem >= step/2 {
			q++
		}
		f = q * step
	}
	if a.min != nil && f < *a.min {
		return value, validationErrorf(a.qnameOrName(), value, "below minimum %v", *a.min)
	}
	if a.max != nil && f > *a.max {
		return value, validationErrorf(a.qnameOrName(), value, "above maximum %v", *a.max)
	}
	out, ok := numericFromFloat[T](f)
	if !ok {
		return value, validationErrorf(a.qnameOrName(), value, "not numeric")
	}
	return out, nil
}

func (a *attr[T]) checkSemantic(value T) error {
	switch v := any(value).(type) {
	case Path:
		if a.mustExist {
			if _, err := os.Stat(string(v)); err != nil {
				return validationErrorf(a.qnameOrName(), value, "path does not exist")
			}
		}
	case NetAddr:
		host := string(v)
		hasPort := false
		if j := strings.LastIndexByte(host, ']'); j >= 0 {
			// Bracketed IPv6: a port follows the closing bracket.
			hasPort = j+1 < len(host) && host[j+1] == ':'
		} else {
			// Multiple colons without brackets is a bare IPv6 address.
			hasPort = strings.Count(host, ":") == 1
		}
		if hasPort && !a.acceptPort {
			return validationErrorf(a.qnameOrName(), value, "port not accepted")
		}
	}
	return nil
}

// checkOnly verifies membership against the allow-list. On set a violation is
// an error; on get it is logged and the value passes through.
func (a *attr[T]) checkOnly(value T, raise bool) error {
	if len(a.only) == 0 {
		return nil
	}
	for _, allowed := range a.only {
		if a.equalValues(value, allowed) {
			return nil
		}
	}
	if raise {
		return validationErrorf(a.qnameOrName(), value, "not in the allowed set")
	}
	a.logger().Warn("attrs: value outside allowed set",
		"attribute", a.qnameOrName(), "value", value)
	return nil
}

func (a *attr[T]) equalValues(x, y T) bool {
	if a.caseInsensitive {
		if xs, ok := any(x).(string); ok {
			ys, _ := any(y).(string)
			return strings.EqualFold(xs, ys)
		}
		if xp, ok := any(x).(Path); ok {
			yp, _ := any(y).(Path)
			return strings.EqualFold(string(xp), string(yp))
		}
	}
	return reflect.DeepEqual(x, y)
}

// prepareSet runs the full input pipeline for a write: nil policy, cast,
// validate, membership.
func (a *attr[T]) prepareSet(value any) (any, T, error) {
	var zero T
	if value == nil {
		if !a.cfg.AllowNil {
			return nil, zero, validationErrorf(a.qnameOrName(), nil, "nil not allowed")
		}
		return nil, zero, nil
	}
	typed, err := a.cast(value)
	if err != nil {
		return nil, zero, err
	}
	typed, err = a.validate(typed)
	if err != nil {
		return nil, zero, err
	}
	if err := a.checkOnly(typed, true); err != nil {
		return nil, zero, err
	}
	return typed, typed, nil
}

// resolveGet runs the output pipeline for a read: nil policy, cast, validate,
// membership (logged), then notification and cache update. A nil result with
// a nil error means the attribute legitimately holds no value.
func (a *attr[T]) resolveGet(owner Owner, raw any, kwargs Kwargs, fromCache bool) (any, error) {
	if raw == nil {
		if !a.cfg.AllowNil {
			return nil, wrapAttrError(a.qnameOrName(), ErrNoValue)
		}
		if err := a.record(owner, observe.TypeGet, nil, fromCache, kwargs); err != nil {
			return nil, err
		}
		return nil, nil
	}
	typed, err := a.cast(raw)
	if err != nil {
		return nil, err
	}
	typed, err = a.validate(typed)
	if err != nil {
		return nil, err
	}
	if err := a.checkOnly(typed, false); err != nil {
		return nil, err
	}
	if err := a.record(owner, observe.TypeGet, typed, fromCache, kwargs); err != nil {
		return typed, err
	}
	return typed, nil
}

// typedGet narrows a resolveGet result; nil maps to the zero T.
func (a *attr[T]) typedGet(out any, err error) (T, error) {
	var zero T
	if err != nil || out == nil {
		return zero, err
	}
	return out.(T), nil
}

// record emits the notification for an access and updates the instance
// cache with the new value.
func (a *attr[T]) record(owner Owner, typ observe.Type, value any, fromCache bool, kwargs Kwargs) error {
	store := owner.AttrStore()
	old, _ := store.Cached(a.name)
	store.setCached(a.name, value)
	if !a.cfg.Log {
		return nil
	}
	return store.Observers().Notify(observe.Event{
		Name:   a.name,
		Type:   typ,
		New:    value,
		Old:    old,
		Owner:  owner,
		Cache:  fromCache,
		Kwargs: kwargs,
	})
}

func (a *attr[T]) qnameOrName() string {
	if a.qname != "" {
		return a.qname
	}
	return a.name
}

func (a *attr[T]) requireGets() error {
	if !a.getsOK {
		return &AccessError{Attr: a.qnameOrName(), Op: "get"}
	}
	return nil
}

func (a *attr[T]) requireSets() error {
	if !a.setsOK {
		return &AccessError{Attr: a.qnameOrName(), Op: "set"}
	}
	return nil
}

// numericFromFloat converts a bounds-checked float back into the attribute's
// numeric type.
func numericFromFloat[T any](f float64) (T, bool) {
	var zero T
	var out any
	switch any(zero).(type) {
	case float64:
		out = f
	case float32:
		out = float32(f)
	case int:
		out = int(math.Round(f))
	case int8:
		out = int8(math.Round(f))
	case int16:
		out = int16(math.Round(f))
	case int32:
		out = int32(math.Round(f))
	case int64:
		out = int64(math.Round(f))
	default:
		return zero, false
	}
	return out.(T), true
}
