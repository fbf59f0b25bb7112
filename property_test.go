package attrs

import (
	"errors"
	"strings"
	"testing"

	"github.com/goliatone/go-attrs/observe"
)

func TestPropertyDecoratedDispatch(t *testing.T) {
	var stored float64
	var gets, sets int
	level := NewProperty[float64]("level",
		Getter[float64](func(Owner) (float64, error) { gets++; return stored, nil }),
		Setter[float64](func(_ Owner, v float64) error { sets++; stored = v; return nil }),
	)
	reg := NewRegistry("Amp").MustRegister(level).MustFinalize()
	owner := mustInstrument(reg)

	if err := level.Set(owner, 2.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := level.Get(owner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 2.5 {
		t.Fatalf("expected 2.5, got %v", got)
	}
	if gets != 1 || sets != 1 {
		t.Fatalf("expected one get and one set dispatch, got %d/%d", gets, sets)
	}
}

func TestPropertyCacheSkipsDispatch(t *testing.T) {
	var gets int
	level := NewProperty[float64]("level",
		Getter[float64](func(Owner) (float64, error) { gets++; return 7, nil }),
		Cache[float64](true),
	)
	reg := NewRegistry("Amp").MustRegister(level).MustFinalize()
	owner := mustInstrument(reg)

	for i := 0; i < 3; i++ {
		got, err := level.Get(owner)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 7 {
			t.Fatalf("expected 7, got %v", got)
		}
	}
	if gets != 1 {
		t.Fatalf("expected a single dispatch, got %d", gets)
	}
}

func TestPropertyCacheFlagInEvents(t *testing.T) {
	level := NewProperty[float64]("level",
		Getter[float64](func(Owner) (float64, error) { return 7, nil }),
		Cache[float64](true),
	)
	reg := NewRegistry("Amp").MustRegister(level).MustFinalize()
	owner := mustInstrument(reg)
	events := collectEvents(owner)

	if _, err := level.Get(owner); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := level.Get(owner); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*events) != 2 {
		t.Fatalf("expected two get events, got %d", len(*events))
	}
	if (*events)[0].Cache {
		t.Fatalf("expected first get to be a backend dispatch")
	}
	if !(*events)[1].Cache {
		t.Fatalf("expected second get to be served from cache")
	}
}

func TestPropertyKeyedRoundTrip(t *testing.T) {
	adapter, err := NewMessageAdapter()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	freq := NewProperty[float64]("frequency", Key[float64]("FREQ"))
	reg := NewRegistry("Synth", WithAdapter(adapter)).MustRegister(freq).MustFinalize()
	owner := mustInstrument(reg)
	owner.responses = map[string]string{"FREQ?": "5e9"}

	if err := freq.Set(owner, 4.5e9); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(owner.writes) != 1 || owner.writes[0] != "FREQ 4.5e+09" {
		t.Fatalf("unexpected writes: %v", owner.writes)
	}

	got, err := freq.Get(owner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 5e9 {
		t.Fatalf("expected 5e9, got %v", got)
	}
	if len(owner.queries) != 1 || owner.queries[0] != "FREQ?" {
		t.Fatalf("unexpected queries: %v", owner.queries)
	}
}

func TestPropertyRemapRoundTrip(t *testing.T) {
	adapter, err := NewMessageAdapter()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := NewProperty[bool]("output",
		Key[bool]("OUTP"),
		Remap(map[bool]string{true: "ON", false: "OFF"}),
	)
	reg := NewRegistry("Synth", WithAdapter(adapter)).MustRegister(output).MustFinalize()
	owner := mustInstrument(reg)
	owner.responses = map[string]string{"OUTP?": "ON"}

	if err := output.Set(owner, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owner.writes[0] != "OUTP ON" {
		t.Fatalf("expected remapped write, got %q", owner.writes[0])
	}

	got, err := output.Get(owner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != true {
		t.Fatalf("expected reverse-remapped true, got %v", got)
	}
}

func TestPropertyGetOnSet(t *testing.T) {
	adapter, err := NewMessageAdapter()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The device clamps writes to 6.0; get-on-set must capture that.
	level := NewProperty[float64]("level", Key[float64]("LVL"), GetOnSet[float64](true))
	reg := NewRegistry("Synth", WithAdapter(adapter)).MustRegister(level).MustFinalize()
	owner := mustInstrument(reg)
	owner.responses = map[string]string{"LVL?": "6.0"}

	if err := level.Set(owner, 9.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cached, ok := owner.AttrStore().Cached("level")
	if !ok || cached != 6.0 {
		t.Fatalf("expected cache to hold the device-accepted 6.0, got %v", cached)
	}
}

func TestPropertyKeyAndAccessorsConflict(t *testing.T) {
	level := NewProperty[float64]("level",
		Key[float64]("LVL"),
		Getter[float64](func(Owner) (float64, error) { return 0, nil }),
	)
	reg := NewRegistry("Synth")
	if err := reg.Register(level); err != nil {
		t.Fatalf("unexpected error from Register: %v", err)
	}
	err := reg.Finalize()
	if err == nil {
		t.Fatalf("expected finalize to reject key plus accessor")
	}
	if !strings.Contains(err.Error(), "remove one") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPropertyKeyWithoutAdapter(t *testing.T) {
	level := NewProperty[float64]("level", Key[float64]("LVL"))
	reg := NewRegistry("Synth")
	if err := reg.Register(level); err != nil {
		t.Fatalf("unexpected error from Register: %v", err)
	}
	if err := reg.Finalize(); err == nil {
		t.Fatalf("expected finalize to require an adapter for keyed attributes")
	}
}

func TestPropertyUnimplementedDegrades(t *testing.T) {
	level := NewProperty[float64]("level")
	reg := NewRegistry("Synth").MustRegister(level).MustFinalize()
	owner := mustInstrument(reg)

	var accErr *AccessError
	if _, err := level.Get(owner); !errors.As(err, &accErr) {
		t.Fatalf("expected AccessError, got %v", err)
	}
	if err := level.Set(owner, 1); !errors.As(err, &accErr) {
		t.Fatalf("expected AccessError, got %v", err)
	}
}

func TestPropertyUnimplementedExplicitAccessFailsFinalize(t *testing.T) {
	level := NewProperty[float64]("level", Gets[float64](true))
	reg := NewRegistry("Synth")
	if err := reg.Register(level); err != nil {
		t.Fatalf("unexpected error from Register: %v", err)
	}
	if err := reg.Finalize(); err == nil {
		t.Fatalf("expected finalize to reject explicit gets with nothing wired")
	}
}

func TestPropertyGetterOnlyIsReadOnly(t *testing.T) {
	serial := NewProperty[string]("serial",
		Getter[string](func(Owner) (string, error) { return "A123", nil }),
	)
	reg := NewRegistry("Synth").MustRegister(serial).MustFinalize()
	owner := mustInstrument(reg)

	got, err := serial.Get(owner)
	if err != nil || got != "A123" {
		t.Fatalf("expected A123, got %v (err %v)", got, err)
	}
	var accErr *AccessError
	if err := serial.Set(owner, "B456"); !errors.As(err, &accErr) {
		t.Fatalf("expected AccessError on set, got %v", err)
	}
}

func TestPropertySetNotifiesWithOldValue(t *testing.T) {
	var stored float64
	level := NewProperty[float64]("level",
		Getter[float64](func(Owner) (float64, error) { return stored, nil }),
		Setter[float64](func(_ Owner, v float64) error { stored = v; return nil }),
	)
	reg := NewRegistry("Amp").MustRegister(level).MustFinalize()
	owner := mustInstrument(reg)
	events := collectEvents(owner, observe.OnType(observe.TypeSet))

	if err := level.Set(owner, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := level.Set(owner, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*events) != 2 {
		t.Fatalf("expected two set events, got %d", len(*events))
	}
	second := (*events)[1]
	if second.Old != 1.0 || second.New != 2.0 {
		t.Fatalf("expected old=1 new=2, got old=%v new=%v", second.Old, second.New)
	}
}

func TestPropertyValidationBeforeDispatch(t *testing.T) {
	var sets int
	level := NewProperty[float64]("level",
		Setter[float64](func(Owner, float64) error { sets++; return nil }),
		Max[float64](10),
	)
	reg := NewRegistry("Amp").MustRegister(level).MustFinalize()
	owner := mustInstrument(reg)

	if err := level.Set(owner, 99); err == nil {
		t.Fatalf("expected validation error")
	}
	if sets != 0 {
		t.Fatalf("expected no dispatch after validation failure, got %d", sets)
	}
}
