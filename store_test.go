package attrs

import (
	"testing"

	"github.com/goliatone/go-attrs/observe"
)

func TestStoreRequiresFinalizedRegistry(t *testing.T) {
	reg := NewRegistry("Amp")
	if _, err := NewStore(reg); err == nil {
		t.Fatalf("expected error for unfinalized registry")
	}
	if _, err := NewStore(nil); err == nil {
		t.Fatalf("expected error for nil registry")
	}
}

func TestStoreSeedsDefaultsWithoutNotifying(t *testing.T) {
	gain := NewValue[int]("gain", Default(3))
	level := NewValue[float64]("level")
	reg := NewRegistry("Amp").MustRegister(gain, level).MustFinalize()

	store, err := NewStore(reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value, ok := store.Cached("gain"); !ok || value != 3 {
		t.Fatalf("expected seeded gain 3, got %v", value)
	}
	if _, ok := store.Cached("level"); ok {
		t.Fatalf("expected no seed for attribute without default")
	}
}

func TestStoreIsolatedPerInstance(t *testing.T) {
	gain := NewValue[int]("gain")
	reg := NewRegistry("Amp").MustRegister(gain).MustFinalize()
	first := mustInstrument(reg)
	second := mustInstrument(reg)

	if err := gain.Set(first, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := gain.Set(second, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := gain.Get(first)
	if got != 1 {
		t.Fatalf("expected instance isolation, got %v", got)
	}
}

func TestHoldSuppressesNotifications(t *testing.T) {
	gain := NewValue[int]("gain")
	reg := NewRegistry("Amp").MustRegister(gain).MustFinalize()
	owner := mustInstrument(reg)
	events := collectEvents(owner)

	Hold(owner, func() {
		if err := gain.Set(owner, 1); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := gain.Set(owner, 2); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	if len(*events) != 0 {
		t.Fatalf("expected no events during hold, got %d", len(*events))
	}
	// Cache keeps the final value.
	got, err := gain.Get(owner)
	if err != nil || got != 2 {
		t.Fatalf("expected 2 after hold, got %v (err %v)", got, err)
	}
	// The follow-up get notifies normally again.
	if len(*events) != 1 {
		t.Fatalf("expected one event after hold, got %d", len(*events))
	}
}

func TestObserveFilterByName(t *testing.T) {
	gain := NewValue[int]("gain")
	level := NewValue[int]("level")
	reg := NewRegistry("Amp").MustRegister(gain, level).MustFinalize()
	owner := mustInstrument(reg)
	events := collectEvents(owner, observe.OnName("gain"))

	if err := gain.Set(owner, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := level.Set(owner, 9); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*events) != 1 || (*events)[0].Name != "gain" {
		t.Fatalf("expected a single gain event, got %+v", *events)
	}
}

func TestUnobserveUnknownToken(t *testing.T) {
	reg := NewRegistry("Amp").MustRegister(NewValue[int]("gain")).MustFinalize()
	owner := mustInstrument(reg)

	if err := Unobserve(owner, "no-such-token"); err == nil {
		t.Fatalf("expected error for unknown token")
	}
}
