package attrs

import (
	"errors"
	"testing"
)

func TestRegistryFinalizeJoinsErrors(t *testing.T) {
	bad1 := NewValue[float64]("level", Key[float64]("LVL"))
	bad2 := NewValue[float64]("gain", Min[float64](10), Max[float64](0))
	reg := NewRegistry("Amp")
	if err := reg.Register(bad1); err != nil {
		t.Fatalf("unexpected error from Register: %v", err)
	}
	if err := reg.Register(bad2); err != nil {
		t.Fatalf("unexpected error from Register: %v", err)
	}
	err := reg.Finalize()
	if err == nil {
		t.Fatalf("expected finalize to fail")
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError in chain, got %v", err)
	}
	if reg.Finalized() {
		t.Fatalf("expected registry to stay unfinalized after errors")
	}
}

func TestRegistryRefinalizeKeepsConfigError(t *testing.T) {
	freq := NewProperty[float64]("frequency",
		Key[float64]("FREQ"),
		Getter(func(Owner) (float64, error) { return 0, nil }),
	)
	adapter, err := NewMessageAdapter()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reg := NewRegistry("Synth", WithAdapter(adapter))
	if err := reg.Register(freq); err != nil {
		t.Fatalf("unexpected error from Register: %v", err)
	}
	first := reg.Finalize()
	if first == nil {
		t.Fatalf("expected finalize to fail for key plus accessor")
	}
	second := reg.Finalize()
	var cfgErr *ConfigError
	if !errors.As(second, &cfgErr) {
		t.Fatalf("expected the configuration error to persist, got %v", second)
	}
	if reg.Finalized() {
		t.Fatalf("expected registry to stay unfinalized")
	}
}

func TestRegistryRegisterAfterFinalize(t *testing.T) {
	reg := NewRegistry("Amp").MustRegister(NewValue[int]("gain")).MustFinalize()
	if err := reg.Register(NewValue[int]("level")); err == nil {
		t.Fatalf("expected registration after finalize to fail")
	}
}

func TestRegistryFinalizeIdempotent(t *testing.T) {
	reg := NewRegistry("Amp").MustRegister(NewValue[int]("gain")).MustFinalize()
	if err := reg.Finalize(); err != nil {
		t.Fatalf("unexpected error from second finalize: %v", err)
	}
}

func TestRegistryDeriveSharesDescriptors(t *testing.T) {
	gain := NewValue[int]("gain", Default(1))
	parent := NewRegistry("Amp").MustRegister(gain).MustFinalize()
	child := parent.Derive("TubeAmp").MustFinalize()

	desc, ok := child.Attr("gain")
	if !ok {
		t.Fatalf("expected inherited attribute")
	}
	if desc != Descriptor(gain) {
		t.Fatalf("expected the inherited descriptor to be shared")
	}
}

func TestRegistryDeriveOverlayDoesNotTouchParent(t *testing.T) {
	gain := NewValue[int]("gain", Default(1))
	parent := NewRegistry("Amp").MustRegister(gain).MustFinalize()

	override := NewValue[int]("gain", Default(5))
	child := parent.Derive("TubeAmp").MustRegister(override).MustFinalize()

	parentOwner := mustInstrument(parent)
	childOwner := mustInstrument(child)

	got, err := GetAttr(parentOwner, "gain")
	if err != nil || got != 1 {
		t.Fatalf("expected parent default 1, got %v (err %v)", got, err)
	}
	got, err = GetAttr(childOwner, "gain")
	if err != nil || got != 5 {
		t.Fatalf("expected child default 5, got %v (err %v)", got, err)
	}

	desc, _ := parent.Attr("gain")
	if desc != Descriptor(gain) {
		t.Fatalf("expected parent declaration untouched by the overlay")
	}
}

func TestRegistryDeriveAddsAttributes(t *testing.T) {
	parent := NewRegistry("Amp").MustRegister(NewValue[int]("gain")).MustFinalize()
	child := parent.Derive("TubeAmp").
		MustRegister(NewValue[float64]("bias")).
		MustFinalize()

	names := child.Names()
	if len(names) != 2 || names[0] != "gain" || names[1] != "bias" {
		t.Fatalf("expected declaration order [gain bias], got %v", names)
	}
	if len(parent.Names()) != 1 {
		t.Fatalf("expected parent to keep a single attribute")
	}
}

func TestGetSetAttrByName(t *testing.T) {
	reg := NewRegistry("Amp").MustRegister(NewValue[int]("gain")).MustFinalize()
	owner := mustInstrument(reg)

	if err := SetAttr(owner, "gain", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := GetAttr(owner, "gain")
	if err != nil || got != 3 {
		t.Fatalf("expected 3, got %v (err %v)", got, err)
	}
	if _, err := GetAttr(owner, "missing"); err == nil {
		t.Fatalf("expected error for unknown attribute")
	}
	if err := SetAttr(owner, "missing", 1); err == nil {
		t.Fatalf("expected error for unknown attribute")
	}
}

func TestRegistrySortedNames(t *testing.T) {
	reg := NewRegistry("Amp").
		MustRegister(NewValue[int]("zeta"), NewValue[int]("alpha")).
		MustFinalize()
	names := reg.SortedNames()
	if names[0] != "alpha" || names[1] != "zeta" {
		t.Fatalf("expected alphabetical order, got %v", names)
	}
}
