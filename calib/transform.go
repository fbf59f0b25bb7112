package calib

import (
	"errors"
	"fmt"

	attrs "github.com/goliatone/go-attrs"
	"github.com/goliatone/go-attrs/internal/coerce"
)

// Add derives base + offset.
func Add(name string, base attrs.Descriptor, offset float64, opts ...DerivedOption) *Derived {
	return NewTransform(name, base,
		func(x float64) (float64, error) { return x + offset, nil },
		func(x float64) (float64, error) { return x - offset, nil },
		opts...)
}

// Sub derives base - offset.
func Sub(name string, base attrs.Descriptor, offset float64, opts ...DerivedOption) *Derived {
	return Add(name, base, -offset, opts...)
}

// Mul derives base * factor. A zero factor is a declaration error since the
// reverse is undefined.
func Mul(name string, base attrs.Descriptor, factor float64, opts ...DerivedOption) *Derived {
	d := NewTransform(name, base,
		func(x float64) (float64, error) { return x * factor, nil },
		func(x float64) (float64, error) { return x / factor, nil },
		opts...)
	if factor == 0 {
		d.fail("multiplication factor must not be zero")
	}
	return d
}

// Div derives base / divisor.
func Div(name string, base attrs.Descriptor, divisor float64, opts ...DerivedOption) *Derived {
	d := NewTransform(name, base,
		func(x float64) (float64, error) { return x / divisor, nil },
		func(x float64) (float64, error) { return x * divisor, nil },
		opts...)
	if divisor == 0 {
		d.fail("divisor must not be zero")
	}
	return d
}

// Neg derives -base.
func Neg(name string, base attrs.Descriptor, opts ...DerivedOption) *Derived {
	neg := func(x float64) (float64, error) { return -x, nil }
	return NewTransform(name, base, neg, neg, opts...)
}

// AddAttr derives base + other where the offset is itself an attribute of
// the same owner.
func AddAttr(name string, base, other attrs.Descriptor, opts ...DerivedOption) *Derived {
	return NewBinaryTransform(name, base, other,
		func(x, o float64) (float64, error) { return x + o, nil },
		func(x, o float64) (float64, error) { return x - o, nil },
		opts...)
}

// SubAttr derives base - other.
func SubAttr(name string, base, other attrs.Descriptor, opts ...DerivedOption) *Derived {
	return NewBinaryTransform(name, base, other,
		func(x, o float64) (float64, error) { return x - o, nil },
		func(x, o float64) (float64, error) { return x + o, nil },
		opts...)
}

// MulAttr derives base * other. The reverse divides, so reading the other
// attribute as zero fails the set.
func MulAttr(name string, base, other attrs.Descriptor, opts ...DerivedOption) *Derived {
	return NewBinaryTransform(name, base, other,
		func(x, o float64) (float64, error) { return x * o, nil },
		func(x, o float64) (float64, error) {
			if o == 0 {
				return 0, errors.New("scale attribute is zero")
			}
			return x / o, nil
		},
		opts...)
}

// NewExprTransform derives through a pair of expressions compiled by the
// given engine. The forward expression sees the uncalibrated value as "x";
// the reverse sees the calibrated value as "x". Expressions compile at
// declaration time so malformed ones fail Registry.Finalize.
func NewExprTransform(name string, base attrs.Descriptor, engine Evaluator, forward, reverse string, opts ...DerivedOption) *Derived {
	fwd, errF := compileUnary(engine, forward)
	rev, errR := compileUnary(engine, reverse)
	d := NewTransform(name, base, fwd, rev, opts...)
	if engine == nil {
		d.fail("expression transforms require an evaluator engine")
	}
	if errF != nil {
		d.fail(fmt.Sprintf("forward expression: %v", errF))
	}
	if errR != nil {
		d.fail(fmt.Sprintf("reverse expression: %v", errR))
	}
	return d
}

// NewBinaryExprTransform is NewExprTransform with a second attribute bound
// as "other" in both expressions.
func NewBinaryExprTransform(name string, base, other attrs.Descriptor, engine Evaluator, forward, reverse string, opts ...DerivedOption) *Derived {
	fwd, errF := compileBinary(engine, forward)
	rev, errR := compileBinary(engine, reverse)
	d := NewBinaryTransform(name, base, other, fwd, rev, opts...)
	if engine == nil {
		d.fail("expression transforms require an evaluator engine")
	}
	if errF != nil {
		d.fail(fmt.Sprintf("forward expression: %v", errF))
	}
	if errR != nil {
		d.fail(fmt.Sprintf("reverse expression: %v", errR))
	}
	return d
}

func compileUnary(engine Evaluator, expr string) (Func, error) {
	if engine == nil || expr == "" {
		return func(x float64) (float64, error) {
			return 0, errors.New("expression not compiled")
		}, errors.New("expression must not be empty")
	}
	program, err := engine.Compile(expr)
	if err != nil {
		return nil, err
	}
	return func(x float64) (float64, error) {
		out, err := program.Evaluate(map[string]any{"x": x})
		if err != nil {
			return 0, err
		}
		return coerce.Float(out)
	}, nil
}

func compileBinary(engine Evaluator, expr string) (BinaryFunc, error) {
	if engine == nil || expr == "" {
		return func(x, other float64) (float64, error) {
			return 0, errors.New("expression not compiled")
		}, errors.New("expression must not be empty")
	}
	program, err := engine.Compile(expr)
	if err != nil {
		return nil, err
	}
	return func(x, other float64) (float64, error) {
		out, err := program.Evaluate(map[string]any{"x": x, "other": other})
		if err != nil {
			return 0, err
		}
		return coerce.Float(out)
	}, nil
}
