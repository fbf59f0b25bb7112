package calib

import (
	"testing"

	attrs "github.com/goliatone/go-attrs"
)

func TestAddTransform(t *testing.T) {
	raw := attrs.NewValue[float64]("raw")
	shifted := Add("shifted", raw, 3)
	reg := attrs.NewRegistry("Sensor").MustRegister(raw, shifted).MustFinalize()
	owner := newBench(t, reg)

	if err := shifted.Set(owner, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	base, _ := raw.Get(owner)
	if base != 7 {
		t.Fatalf("expected base 7, got %v", base)
	}
	got, err := shifted.Get(owner)
	if err != nil || got != 10 {
		t.Fatalf("expected 10, got %v (err %v)", got, err)
	}
}

func TestMulTransform(t *testing.T) {
	raw := attrs.NewValue[float64]("raw")
	scaled := Mul("scaled", raw, 2)
	reg := attrs.NewRegistry("Sensor").MustRegister(raw, scaled).MustFinalize()
	owner := newBench(t, reg)

	if err := scaled.Set(owner, 8); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	base, _ := raw.Get(owner)
	if base != 4 {
		t.Fatalf("expected base 4, got %v", base)
	}
}

func TestMulZeroFactorFailsFinalize(t *testing.T) {
	raw := attrs.NewValue[float64]("raw")
	broken := Mul("broken", raw, 0)
	reg := attrs.NewRegistry("Sensor")
	if err := reg.Register(raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := reg.Register(broken); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := reg.Finalize(); err == nil {
		t.Fatalf("expected finalize to reject a zero factor")
	}
}

func TestNegTransformBounds(t *testing.T) {
	raw := attrs.NewValue[float64]("raw", attrs.Min[float64](0), attrs.Max[float64](10))
	negated := Neg("negated", raw)
	reg := attrs.NewRegistry("Sensor").MustRegister(raw, negated).MustFinalize()
	_ = reg

	// Negation flips the interval; bounds come back ordered.
	min, max, ok := negated.FloatBounds()
	if !ok || min != -10 || max != 0 {
		t.Fatalf("expected bounds [-10, 0], got [%v, %v] (%v)", min, max, ok)
	}
}

func TestBinaryTransform(t *testing.T) {
	raw := attrs.NewValue[float64]("raw")
	offset := attrs.NewValue[float64]("offset", attrs.Default[float64](2))
	total := AddAttr("total", raw, offset)
	reg := attrs.NewRegistry("Sensor").MustRegister(raw, offset, total).MustFinalize()
	owner := newBench(t, reg)

	if err := total.Set(owner, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	base, _ := raw.Get(owner)
	if base != 8 {
		t.Fatalf("expected base 8, got %v", base)
	}
	got, err := total.Get(owner)
	if err != nil || got != 10 {
		t.Fatalf("expected 10, got %v (err %v)", got, err)
	}

	// Changing the other attribute shifts the derived reading.
	if err := offset.Set(owner, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err = total.Get(owner)
	if err != nil || got != 13 {
		t.Fatalf("expected 13, got %v (err %v)", got, err)
	}
}

func TestMulAttrZeroOtherFailsSet(t *testing.T) {
	raw := attrs.NewValue[float64]("raw")
	scale := attrs.NewValue[float64]("scale", attrs.Default[float64](0))
	scaled := MulAttr("scaled", raw, scale)
	reg := attrs.NewRegistry("Sensor").MustRegister(raw, scale, scaled).MustFinalize()
	owner := newBench(t, reg)

	if err := scaled.Set(owner, 4); err == nil {
		t.Fatalf("expected error dividing by a zero scale")
	}
}

func TestExprTransform(t *testing.T) {
	raw := attrs.NewValue[float64]("raw")
	db := NewExprTransform("db", raw, NewExprEngine(), "x * 2.0", "x / 2.0")
	reg := attrs.NewRegistry("Sensor").MustRegister(raw, db).MustFinalize()
	owner := newBench(t, reg)

	if err := db.Set(owner, 6); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	base, _ := raw.Get(owner)
	if base != 3 {
		t.Fatalf("expected base 3, got %v", base)
	}
	got, err := db.Get(owner)
	if err != nil || got != 6 {
		t.Fatalf("expected 6, got %v (err %v)", got, err)
	}
}

func TestExprTransformCompileErrorFailsFinalize(t *testing.T) {
	raw := attrs.NewValue[float64]("raw")
	broken := NewExprTransform("broken", raw, NewExprEngine(), "x +* 2", "x")
	reg := attrs.NewRegistry("Sensor")
	if err := reg.Register(raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := reg.Register(broken); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := reg.Finalize(); err == nil {
		t.Fatalf("expected finalize to reject a malformed expression")
	}
}

func TestBinaryExprTransform(t *testing.T) {
	raw := attrs.NewValue[float64]("raw")
	gain := attrs.NewValue[float64]("gain", attrs.Default[float64](3))
	out := NewBinaryExprTransform("out", raw, gain, NewExprEngine(),
		"x * other", "x / other")
	reg := attrs.NewRegistry("Sensor").MustRegister(raw, gain, out).MustFinalize()
	owner := newBench(t, reg)

	if err := out.Set(owner, 12); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	base, _ := raw.Get(owner)
	if base != 4 {
		t.Fatalf("expected base 4, got %v", base)
	}
}

func TestCELTransform(t *testing.T) {
	raw := attrs.NewValue[float64]("raw")
	scaled := NewExprTransform("scaled", raw, NewCELEngine(), "x * 2.0", "x / 2.0")
	reg := attrs.NewRegistry("Sensor").MustRegister(raw, scaled).MustFinalize()
	owner := newBench(t, reg)

	if err := scaled.Set(owner, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	base, _ := raw.Get(owner)
	if base != 5 {
		t.Fatalf("expected base 5, got %v", base)
	}
}
