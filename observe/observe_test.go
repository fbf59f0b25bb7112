package observe

import (
	"errors"
	"testing"
)

func TestNotifyRegistrationOrder(t *testing.T) {
	reg := NewRegistry()
	var order []string
	reg.Observe(HandlerFunc(func(Event) error {
		order = append(order, "first")
		return nil
	}))
	reg.Observe(HandlerFunc(func(Event) error {
		order = append(order, "second")
		return nil
	}))

	if err := reg.Notify(Event{Name: "gain", Type: TypeSet}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("expected registration order, got %v", order)
	}
}

func TestNotifyFillsTimestamp(t *testing.T) {
	reg := NewRegistry()
	var got Event
	reg.Observe(HandlerFunc(func(event Event) error {
		got = event
		return nil
	}))
	if err := reg.Notify(Event{Name: "gain"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.At.IsZero() {
		t.Fatalf("expected Notify to fill the timestamp")
	}
}

func TestFilterByNameAndType(t *testing.T) {
	reg := NewRegistry()
	var seen []Event
	reg.Observe(HandlerFunc(func(event Event) error {
		seen = append(seen, event)
		return nil
	}), OnName("gain"), OnType(TypeSet))

	reg.Notify(Event{Name: "gain", Type: TypeSet})
	reg.Notify(Event{Name: "gain", Type: TypeGet})
	reg.Notify(Event{Name: "level", Type: TypeSet})

	if len(seen) != 1 {
		t.Fatalf("expected one matching event, got %d", len(seen))
	}
}

func TestHandlerErrorsJoinAndLaterHandlersRun(t *testing.T) {
	reg := NewRegistry()
	errBoom := errors.New("boom")
	var ran bool
	reg.Observe(HandlerFunc(func(Event) error { return errBoom }))
	reg.Observe(HandlerFunc(func(Event) error { ran = true; return nil }))

	err := reg.Notify(Event{Name: "gain"})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected handler error to propagate, got %v", err)
	}
	if !ran {
		t.Fatalf("expected later handler to run despite earlier error")
	}
}

func TestUnobserve(t *testing.T) {
	reg := NewRegistry()
	var count int
	token := reg.Observe(HandlerFunc(func(Event) error { count++; return nil }))

	reg.Notify(Event{Name: "gain"})
	if err := reg.Unobserve(token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reg.Notify(Event{Name: "gain"})
	if count != 1 {
		t.Fatalf("expected one dispatch, got %d", count)
	}

	if err := reg.Unobserve(token); err == nil {
		t.Fatalf("expected error for already removed token")
	}
	if err := reg.Unobserve(Token("bogus")); err == nil {
		t.Fatalf("expected error for unknown token")
	}
}

func TestReentrantObserveDoesNotDisturbDispatch(t *testing.T) {
	reg := NewRegistry()
	var nested int
	reg.Observe(HandlerFunc(func(Event) error {
		reg.Observe(HandlerFunc(func(Event) error {
			nested++
			return nil
		}))
		return nil
	}))

	reg.Notify(Event{Name: "gain"})
	if nested != 0 {
		t.Fatalf("expected handler registered mid-dispatch to be skipped, got %d", nested)
	}
	reg.Notify(Event{Name: "gain"})
	if nested != 1 {
		t.Fatalf("expected nested handler on the next dispatch, got %d", nested)
	}
}

func TestHoldNests(t *testing.T) {
	reg := NewRegistry()
	var count int
	reg.Observe(HandlerFunc(func(Event) error { count++; return nil }))

	reg.Hold(func() {
		if !reg.Holding() {
			t.Fatalf("expected Holding inside Hold")
		}
		reg.Hold(func() {
			reg.Notify(Event{Name: "gain"})
		})
		// Still held after the inner hold returns.
		if !reg.Holding() {
			t.Fatalf("expected outer hold to remain active")
		}
		reg.Notify(Event{Name: "gain"})
	})

	if reg.Holding() {
		t.Fatalf("expected hold released")
	}
	if count != 0 {
		t.Fatalf("expected no dispatches during hold, got %d", count)
	}
	reg.Notify(Event{Name: "gain"})
	if count != 1 {
		t.Fatalf("expected dispatch after hold, got %d", count)
	}
}
