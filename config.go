package attrs

// Config carries declaration settings shared by every attribute kind. The
// typed constructors populate it through functional options; after the owning
// registry finalizes it must be treated as read-only.
type Config struct {
	// Key is the opaque backend token consumed by the registry's KeyAdapter.
	Key string
	// Help and Label document the attribute.
	Help  string
	Label string
	// Sets and Gets are tri-state: nil means "decide from wiring at
	// finalization", which degrades to false for an unwired property.
	Sets *bool
	Gets *bool
	// Cache serves repeated gets from the instance store without
	// re-dispatching to the backend.
	Cache bool
	// AllowNil permits nil where a value is expected; nil short-circuits
	// validation on get.
	AllowNil bool
	// Log controls whether accesses emit notifications.
	Log bool
	// GetOnSet triggers an immediate get after each successful set, to
	// capture a backend's accepted value.
	GetOnSet bool
	// Only is an allow-list of valid values. Violations raise on set and
	// log on get.
	Only []any
	// Remap maps declared values to backend message strings; consulted by
	// the KeyAdapter before its own table.
	Remap map[any]string
	// Default is the seed value for the value role. HasDefault
	// distinguishes an explicit nil default from no default.
	Default    any
	HasDefault bool
}

// Option configures one attribute declaration of semantic type T.
type Option[T any] func(*attr[T])

// Real constrains the numeric option helpers.
type Real interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

// Path is the semantic type for filesystem-path attributes.
type Path string

// NetAddr is the semantic type for network-address attributes.
type NetAddr string

// Key declares the backend token the KeyAdapter consumes; brace-delimited
// placeholders ("CH{channel}:FREQ") become keyword arguments.
func Key[T any](key string) Option[T] {
	return func(a *attr[T]) { a.cfg.Key = key }
}

// Help sets the attribute's documentation string.
func Help[T any](help string) Option[T] {
	return func(a *attr[T]) { a.cfg.Help = help }
}

// Label sets a short display label, typically a unit.
func Label[T any](label string) Option[T] {
	return func(a *attr[T]) { a.cfg.Label = label }
}

// Sets declares whether the attribute is writable.
func Sets[T any](v bool) Option[T] {
	return func(a *attr[T]) { a.cfg.Sets = &v }
}

// Gets declares whether the attribute is readable.
func Gets[T any](v bool) Option[T] {
	return func(a *attr[T]) { a.cfg.Gets = &v }
}

// Cache serves repeated gets from the instance store.
func Cache[T any](v bool) Option[T] {
	return func(a *attr[T]) { a.cfg.Cache = v }
}

// AllowNil permits nil values.
func AllowNil[T any](v bool) Option[T] {
	return func(a *attr[T]) {
		a.cfg.AllowNil = v
		a.allowNilSet = true
	}
}

// Log controls notification emission for this attribute.
func Log[T any](v bool) Option[T] {
	return func(a *attr[T]) { a.cfg.Log = v }
}

// GetOnSet requests an immediate get after each successful set.
func GetOnSet[T any](v bool) Option[T] {
	return func(a *attr[T]) { a.cfg.GetOnSet = v }
}

// Only restricts the attribute to the listed values.
func Only[T any](allowed ...T) Option[T] {
	return func(a *attr[T]) {
		a.only = allowed
		a.cfg.Only = make([]any, len(allowed))
		for i, v := range allowed {
			a.cfg.Only[i] = v
		}
	}
}

// Remap maps declared values to backend message strings, e.g.
// Remap(map[bool]string{true: "ON", false: "OFF"}).
func Remap[T comparable](mapping map[T]string) Option[T] {
	return func(a *attr[T]) {
		out := make(map[any]string, len(mapping))
		for value, message := range mapping {
			out[value] = message
		}
		a.cfg.Remap = out
	}
}

// Default seeds a value attribute at instance construction.
func Default[T any](v T) Option[T] {
	return func(a *attr[T]) {
		a.cfg.Default = v
		a.cfg.HasDefault = true
	}
}

// NilDefault declares an explicit nil default; it implies AllowNil unless
// AllowNil(false) was declared, which is a configuration error.
func NilDefault[T any]() Option[T] {
	return func(a *attr[T]) {
		a.cfg.Default = nil
		a.cfg.HasDefault = true
		a.nilDefault = true
	}
}

// Min declares the inclusive lower bound for numeric attributes.
func Min[T Real](v T) Option[T] {
	f := float64(v)
	return func(a *attr[T]) { a.min = &f }
}

// Max declares the inclusive upper bound for numeric attributes.
func Max[T Real](v T) Option[T] {
	f := float64(v)
	return func(a *attr[T]) { a.max = &f }
}

// Step quantizes written values to the nearest multiple of step, ties
// resolving toward the higher multiple.
func Step[T Real](v T) Option[T] {
	f := float64(v)
	return func(a *attr[T]) { a.step = &f }
}

// Case controls case sensitivity of Only membership for string attributes.
func Case[T ~string](sensitive bool) Option[T] {
	return func(a *attr[T]) {
		a.caseInsensitive = !sensitive
		a.caseSet = true
	}
}

// MustExist requires path attributes to name an existing file or directory.
func MustExist[T ~string](must bool) Option[T] {
	return func(a *attr[T]) {
		a.mustExist = must
		a.mustExistSet = true
	}
}

// AcceptPort permits a ":port" suffix on network-address attributes.
func AcceptPort[T ~string](ok bool) Option[T] {
	return func(a *attr[T]) {
		a.acceptPort = ok
		a.acceptPortSet = true
	}
}

// Getter wires an explicit getter for a property; mutually exclusive with
// Key.
func Getter[T any](fn func(owner Owner) (T, error)) Option[T] {
	return func(a *attr[T]) { a.propGet = fn }
}

// Setter wires an explicit setter for a property; mutually exclusive with
// Key.
func Setter[T any](fn func(owner Owner, value T) error) Option[T] {
	return func(a *attr[T]) { a.propSet = fn }
}

// MethodGetter wires an explicit parameterized getter for a method.
func MethodGetter[T any](fn func(owner Owner, kwargs Kwargs) (T, error)) Option[T] {
	return func(a *attr[T]) { a.methGet = fn }
}

// MethodSetter wires an explicit parameterized setter for a method.
func MethodSetter[T any](fn func(owner Owner, value T, kwargs Kwargs) error) Option[T] {
	return func(a *attr[T]) { a.methSet = fn }
}

// Keywords attaches explicit keyword specs to a method. Replaces any
// signature inference: keyword schemas are always declared.
func Keywords[T any](specs ...KeywordSpec) Option[T] {
	return func(a *attr[T]) { a.keywords = append(a.keywords, specs...) }
}
