// Package coerce converts loosely typed values (JSON payloads, wire strings,
// untyped caches) into the concrete Go types attribute declarations expect.
package coerce

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// To converts value into T. Conversions cover the numeric cross-casts,
// string parsing, and json.Number handling the attribute pipeline needs.
// A nil input returns the zero T with no error; callers that distinguish
// "no value" from zero must check for nil before calling.
func To[T any](value any) (T, error) {
	var zero T
	if value == nil {
		return zero, nil
	}
	if typed, ok := value.(T); ok {
		return typed, nil
	}

	out, err := coerceAs(value, any(zero))
	if err != nil {
		if named, ok := convertNamed(value, reflect.TypeOf(zero)); ok {
			return named.(T), nil
		}
		return zero, err
	}
	typed, ok := out.(T)
	if !ok {
		return zero, fmt.Errorf("coerce: cannot convert %T to %T", value, zero)
	}
	return typed, nil
}

// convertNamed handles named scalar types (semantic string and numeric
// aliases) by coercing to the underlying kind and converting back.
func convertNamed(value any, target reflect.Type) (any, bool) {
	if target == nil {
		return nil, false
	}
	switch target.Kind() {
	case reflect.String:
		s, err := String(value)
		if err != nil {
			return nil, false
		}
		return reflect.ValueOf(s).Convert(target).Interface(), true
	case reflect.Float32, reflect.Float64:
		f, err := Float(value)
		if err != nil {
			return nil, false
		}
		return reflect.ValueOf(f).Convert(target).Interface(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := Int(value)
		if err != nil || reflect.Zero(target).OverflowInt(i) {
			return nil, false
		}
		return reflect.ValueOf(i).Convert(target).Interface(), true
	case reflect.Bool:
		b, err := Bool(value)
		if err != nil {
			return nil, false
		}
		return reflect.ValueOf(b).Convert(target).Interface(), true
	}
	return nil, false
}

func coerceAs(value, target any) (any, error) {
	switch target.(type) {
	case bool:
		return Bool(value)
	case int64:
		return Int(value)
	case int:
		v, err := Int(value)
		if err != nil {
			return nil, err
		}
		return int(v), nil
	case float64:
		return Float(value)
	case complex128:
		return Complex(value)
	case string:
		return String(value)
	case []byte:
		return Bytes(value)
	case []any:
		return List(value)
	case map[string]any:
		return Dict(value)
	default:
		return nil, fmt.Errorf("coerce: cannot convert %T to %T", value, target)
	}
}

// Bool accepts bool, the usual numeric truthiness, and on/off style strings.
func Bool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "on", "1":
			return true, nil
		case "false", "no", "off", "0":
			return false, nil
		}
		return false, fmt.Errorf("coerce: cannot parse %q as bool", v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return false, fmt.Errorf("coerce: cannot parse %q as bool", v.String())
		}
		return f != 0, nil
	}
	if f, err := Float(value); err == nil {
		return f != 0, nil
	}
	return false, fmt.Errorf("coerce: cannot convert %T to bool", value)
}

// Int converts integral values, rejecting floats with a fractional part.
func Int(value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("coerce: %d overflows int64", v)
		}
		return int64(v), nil
	case float32:
		return floatToInt(float64(v))
	case float64:
		return floatToInt(v)
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case json.Number:
		return v.Int64()
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if ferr != nil {
				return 0, fmt.Errorf("coerce: cannot parse %q as int", v)
			}
			return floatToInt(f)
		}
		return parsed, nil
	}
	return 0, fmt.Errorf("coerce: cannot convert %T to int", value)
}

func floatToInt(f float64) (int64, error) {
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("coerce: %v has a fractional part", f)
	}
	return int64(f), nil
}

// Float converts any numeric value or numeric string to float64.
func Float(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case json.Number:
		return v.Float64()
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("coerce: cannot parse %q as float", v)
		}
		return parsed, nil
	}
	return 0, fmt.Errorf("coerce: cannot convert %T to float", value)
}

// Complex converts numeric values or strings in Go complex syntax.
func Complex(value any) (complex128, error) {
	switch v := value.(type) {
	case complex128:
		return v, nil
	case complex64:
		return complex128(v), nil
	case string:
		parsed, err := strconv.ParseComplex(strings.TrimSpace(v), 128)
		if err != nil {
			return 0, fmt.Errorf("coerce: cannot parse %q as complex", v)
		}
		return parsed, nil
	}
	if f, err := Float(value); err == nil {
		return complex(f, 0), nil
	}
	return 0, fmt.Errorf("coerce: cannot convert %T to complex", value)
}

// String renders scalars with strconv so floats round-trip cleanly.
func String(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case json.Number:
		return v.String(), nil
	}
	if i, err := Int(value); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	return fmt.Sprintf("%v", value), nil
}

// Bytes converts strings and byte slices.
func Bytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	return nil, fmt.Errorf("coerce: cannot convert %T to bytes", value)
}

// List accepts []any and typed slices of common scalars.
func List(value any) ([]any, error) {
	switch v := value.(type) {
	case []any:
		return v, nil
	case []string:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, nil
	case []float64:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, nil
	case []int:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, nil
	}
	return nil, fmt.Errorf("coerce: cannot convert %T to list", value)
}

// Dict accepts map[string]any and map[string]string.
func Dict(value any) (map[string]any, error) {
	switch v := value.(type) {
	case map[string]any:
		return v, nil
	case map[string]string:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = item
		}
		return out, nil
	}
	return nil, fmt.Errorf("coerce: cannot convert %T to dict", value)
}
