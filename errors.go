package attrs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoValue reports a read of an attribute that holds no value and does not
// allow nil.
var ErrNoValue = errors.New("attrs: no value")

// ConfigError reports an invalid attribute declaration. It is raised when a
// registry finalizes, never deferred to first access.
type ConfigError struct {
	Attr   string
	Reason string
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Attr == "" {
		return fmt.Sprintf("attrs: invalid configuration: %s", e.Reason)
	}
	return fmt.Sprintf("attrs: %s: invalid configuration: %s", e.Attr, e.Reason)
}

func configErrorf(attr, format string, args ...any) error {
	return &ConfigError{Attr: attr, Reason: fmt.Sprintf(format, args...)}
}

// ValidationError reports a value rejected by an attribute's validate/cast
// pipeline at access time.
type ValidationError struct {
	Attr  string
	Value any
	Err   error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("attrs: %s: invalid value %v: %v", e.Attr, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func validationErrorf(attr string, value any, format string, args ...any) error {
	return &ValidationError{Attr: attr, Value: value, Err: fmt.Errorf(format, args...)}
}

// AccessError reports a get on a write-only attribute or a set on a read-only
// one.
type AccessError struct {
	Attr string
	Op   string
}

func (e *AccessError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("attrs: %s: %s not permitted", e.Attr, e.Op)
}

// KeyError reports a key template expanded with missing keyword arguments.
// Missing holds the token names absent from the supplied kwargs.
type KeyError struct {
	Attr    string
	Key     string
	Missing []string
}

func (e *KeyError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("attrs: %s: key %q missing arguments: %s",
		e.Attr, e.Key, strings.Join(e.Missing, ", "))
}

// wrapAttrError qualifies err with the attribute's bound name so callers can
// tell which attribute rejected the operation. Errors that already carry the
// name pass through unchanged.
func wrapAttrError(attr string, err error) error {
	if err == nil {
		return nil
	}
	var cfgErr *ConfigError
	var valErr *ValidationError
	var accErr *AccessError
	var keyErr *KeyError
	if errors.As(err, &cfgErr) || errors.As(err, &valErr) ||
		errors.As(err, &accErr) || errors.As(err, &keyErr) {
		return err
	}
	if strings.HasPrefix(err.Error(), "attrs:") {
		return err
	}
	return fmt.Errorf("attrs: %s: %w", attr, err)
}
