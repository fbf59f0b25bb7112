package attrs

import (
	"encoding/json"
	"testing"
)

func TestDescribe(t *testing.T) {
	level := NewValue[float64]("level",
		Help[float64]("output level"),
		Label[float64]("dB"),
		Min[float64](0), Max[float64](10),
		Default[float64](1),
	)
	serial := NewProperty[string]("serial",
		Getter[string](func(Owner) (string, error) { return "", nil }),
	)
	reg := NewRegistry("Amp").MustRegister(level, serial).MustFinalize()

	doc, err := Describe(reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Class != "Amp" {
		t.Fatalf("expected class Amp, got %q", doc.Class)
	}
	if len(doc.Fields) != 2 {
		t.Fatalf("expected two fields, got %d", len(doc.Fields))
	}

	first := doc.Fields[0]
	if first.Name != "level" || first.Role != RoleValue {
		t.Fatalf("unexpected first field: %+v", first)
	}
	if first.Help != "output level" || first.Label != "dB" {
		t.Fatalf("expected help and label carried over: %+v", first)
	}
	if first.Min == nil || *first.Min != 0 || first.Max == nil || *first.Max != 10 {
		t.Fatalf("expected bounds 0..10: %+v", first)
	}
	if first.Default != 1.0 {
		t.Fatalf("expected default 1, got %v", first.Default)
	}
	if !first.Gets || !first.Sets {
		t.Fatalf("expected read-write value attribute: %+v", first)
	}

	second := doc.Fields[1]
	if second.Role != RoleProperty || !second.Gets || second.Sets {
		t.Fatalf("expected read-only getter property: %+v", second)
	}
}

func TestDescribeRequiresFinalizedRegistry(t *testing.T) {
	reg := NewRegistry("Amp")
	if _, err := Describe(reg); err == nil {
		t.Fatalf("expected error for unfinalized registry")
	}
}

func TestSchemaDocumentToJSON(t *testing.T) {
	reg := NewRegistry("Amp").MustRegister(NewValue[int]("gain")).MustFinalize()
	doc, err := Describe(reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	payload, err := doc.ToJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unexpected error decoding: %v", err)
	}
	if decoded["class"] != "Amp" {
		t.Fatalf("unexpected document: %s", payload)
	}
}
