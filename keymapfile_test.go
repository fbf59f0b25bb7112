package attrs

import (
	"os"
	"path/filepath"
	"testing"
)

const testKeyMap = `
class: Synth
adapter:
  query: "{key}?"
  write: "{key} {value}"
attributes:
  frequency:
    key: "SOUR:FREQ"
    help: carrier frequency
    label: Hz
  output:
    key: "OUTP:STAT"
    remap:
      "true": "ON"
      "false": "OFF"
`

func writeKeyMap(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "synth.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("unexpected error writing key map: %v", err)
	}
	return path
}

func TestLoadKeyMapApply(t *testing.T) {
	keyMap, err := LoadKeyMap(writeKeyMap(t, testKeyMap))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if keyMap.Class != "Synth" {
		t.Fatalf("expected class Synth, got %q", keyMap.Class)
	}

	adapter, err := keyMap.NewAdapter()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	freq := NewProperty[float64]("frequency")
	output := NewProperty[bool]("output")
	reg := NewRegistry("Synth", WithAdapter(adapter))
	if err := reg.Register(freq); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := reg.Register(output); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := keyMap.Apply(reg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := reg.Finalize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if freq.Config().Key != "SOUR:FREQ" || freq.Config().Help != "carrier frequency" {
		t.Fatalf("expected overlay applied: %+v", freq.Config())
	}

	owner := mustInstrument(reg)
	owner.responses = map[string]string{"SOUR:FREQ?": "2.4e9", "OUTP:STAT?": "ON"}

	got, err := freq.Get(owner)
	if err != nil || got != 2.4e9 {
		t.Fatalf("expected 2.4e9, got %v (err %v)", got, err)
	}
	if err := output.Set(owner, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owner.writes[0] != "OUTP:STAT ON" {
		t.Fatalf("expected file remap applied, got %q", owner.writes[0])
	}
	state, err := output.Get(owner)
	if err != nil || state != true {
		t.Fatalf("expected true, got %v (err %v)", state, err)
	}
}

func TestKeyMapUnknownAttribute(t *testing.T) {
	keyMap, err := LoadKeyMap(writeKeyMap(t, "attributes:\n  missing:\n    key: X\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reg := NewRegistry("Synth")
	if err := keyMap.Apply(reg); err == nil {
		t.Fatalf("expected error for undeclared attribute")
	}
}

func TestKeyMapApplyAfterFinalize(t *testing.T) {
	keyMap := &KeyMap{}
	reg := NewRegistry("Synth").MustFinalize()
	if err := keyMap.Apply(reg); err == nil {
		t.Fatalf("expected error for finalized registry")
	}
}

func TestLoadKeyMapMissingFile(t *testing.T) {
	if _, err := LoadKeyMap(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
