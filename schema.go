package attrs

import "encoding/json"

// FieldDescriptor is the documentation view of one declared attribute, used
// by UI and doc generators.
type FieldDescriptor struct {
	Name     string   `json:"name"`
	Role     Role     `json:"role"`
	Help     string   `json:"help,omitempty"`
	Label    string   `json:"label,omitempty"`
	Key      string   `json:"key,omitempty"`
	Sets     bool     `json:"sets"`
	Gets     bool     `json:"gets"`
	Cache    bool     `json:"cache,omitempty"`
	AllowNil bool     `json:"allow_nil,omitempty"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Only     []any    `json:"only,omitempty"`
	Default  any      `json:"default,omitempty"`
}

// SchemaDocument is the generated description of one owner class.
type SchemaDocument struct {
	Class  string            `json:"class"`
	Fields []FieldDescriptor `json:"fields"`
}

// AccessReporter is implemented by bound attributes that report their
// effective access policy, after wiring downgrades are applied.
type AccessReporter interface {
	AccessPolicy() (gets, sets bool)
}

// Describe generates the schema document for a finalized registry, in
// declaration order.
func Describe(reg *Registry) (SchemaDocument, error) {
	if reg == nil {
		return SchemaDocument{}, configErrorf("", "registry is required")
	}
	if !reg.Finalized() {
		return SchemaDocument{}, configErrorf("", "registry %q is not finalized", reg.name)
	}
	doc := SchemaDocument{Class: reg.name, Fields: []FieldDescriptor{}}
	for _, name := range reg.order {
		desc := reg.attrs[name]
		cfg := desc.Config()
		field := FieldDescriptor{
			Name:     name,
			Role:     desc.Role(),
			Help:     cfg.Help,
			Label:    cfg.Label,
			Key:      cfg.Key,
			Cache:    cfg.Cache,
			AllowNil: cfg.AllowNil,
			Only:     cfg.Only,
		}
		if cfg.HasDefault {
			field.Default = cfg.Default
		}
		if reporter, ok := desc.(AccessReporter); ok {
			field.Gets, field.Sets = reporter.AccessPolicy()
		}
		if bounded, ok := desc.(FloatBounded); ok {
			if min, max, has := bounded.FloatBounds(); has {
				field.Min, field.Max = &min, &max
			}
		}
		doc.Fields = append(doc.Fields, field)
	}
	return doc, nil
}

// ToJSON serializes the document for logging or transport.
func (d SchemaDocument) ToJSON() ([]byte, error) {
	return json.Marshal(d)
}
