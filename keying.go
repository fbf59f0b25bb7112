package attrs

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/goliatone/go-attrs/internal/coerce"
)

// KeyAdapter turns an opaque key template plus keyword arguments into calls
// against the owner's backend. One adapter instance serves every instance of
// an owner class; it holds no per-instance state.
type KeyAdapter interface {
	// KwargNames extracts the placeholder token names from a key template.
	KwargNames(key string) []string
	// Get dispatches a read for the expanded key and returns the decoded
	// backend value; the descriptor's pipeline casts and validates it.
	Get(owner Owner, key string, attr Descriptor, kwargs Kwargs) (any, error)
	// Set encodes value and dispatches a write for the expanded key.
	Set(owner Owner, key string, value any, attr Descriptor, kwargs Kwargs) error
}

var keyToken = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandKey substitutes brace-delimited tokens with kwargs values. Missing
// tokens raise a KeyError naming exactly the absent names.
func expandKey(attrName, key string, kwargs Kwargs) (string, error) {
	var missing []string
	expanded := keyToken.ReplaceAllStringFunc(key, func(match string) string {
		token := match[1 : len(match)-1]
		value, ok := kwargs[token]
		if !ok {
			missing = append(missing, token)
			return match
		}
		text, err := coerce.String(value)
		if err != nil {
			text = fmt.Sprintf("%v", value)
		}
		return text
	})
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", &KeyError{Attr: attrName, Key: key, Missing: dedupe(missing)}
	}
	return expanded, nil
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}

// remapTable is a validated bidirectional value↔message mapping.
type remapTable struct {
	forward map[any]string
	inverse map[string]any
}

// newRemapTable canonicalizes keys and checks both directions for
// uniqueness. Numeric keys canonicalize to float64 while bools stay bool, so
// a table declaring both true and 1 is rejected as ambiguous instead of
// silently conflating them.
func newRemapTable(attrName string, mapping map[any]string) (*remapTable, error) {
	if len(mapping) == 0 {
		return nil, nil
	}
	t := &remapTable{
		forward: make(map[any]string, len(mapping)),
		inverse: make(map[string]any, len(mapping)),
	}
	for value, message := range mapping {
		key := canonicalRemapKey(value)
		if _, dup := t.forward[key]; dup {
			return nil, configErrorf(attrName, "remap has ambiguous value %v", value)
		}
		if _, dup := t.inverse[message]; dup {
			return nil, configErrorf(attrName, "remap has duplicate message %q", message)
		}
		t.forward[key] = message
		t.inverse[message] = value
	}
	return t, nil
}

// canonicalRemapKey keeps bool identity distinct from numerics and folds all
// numeric types to float64 so a backend int and a declared float agree.
func canonicalRemapKey(value any) any {
	if _, ok := value.(bool); ok {
		return value
	}
	if f, err := coerce.Float(value); err == nil {
		return f
	}
	return value
}

func (t *remapTable) toMessage(value any) (string, bool) {
	if t == nil {
		return "", false
	}
	message, ok := t.forward[canonicalRemapKey(value)]
	return message, ok
}

func (t *remapTable) fromMessage(message string) (any, bool) {
	if t == nil {
		return nil, false
	}
	value, ok := t.inverse[message]
	return value, ok
}

// remapCarrier exposes an attribute's own remap table to the adapter.
type remapCarrier interface {
	messageRemap() *remapTable
}

// MessageAdapter is the message-based KeyAdapter: keys are template strings
// expanded into query/write messages sent over the owner's Backend, in the
// style of SCPI-like instruments ("CH{channel}:FREQ" → "CH2:FREQ?").
type MessageAdapter struct {
	queryFormat string
	writeFormat string
	remap       *remapTable
}

// MessageAdapterOption configures a MessageAdapter.
type MessageAdapterOption func(*messageAdapterConfig)

type messageAdapterConfig struct {
	queryFormat string
	writeFormat string
	remap       map[any]string
}

// QueryFormat overrides the query message template; tokens {key} is
// available. Default "{key}?".
func QueryFormat(format string) MessageAdapterOption {
	return func(cfg *messageAdapterConfig) { cfg.queryFormat = format }
}

// WriteFormat overrides the write message template; tokens {key} and {value}
// are available. Default "{key} {value}".
func WriteFormat(format string) MessageAdapterOption {
	return func(cfg *messageAdapterConfig) { cfg.writeFormat = format }
}

// AdapterRemap installs a class-wide value↔message table, consulted when an
// attribute declares no remap of its own.
func AdapterRemap(mapping map[any]string) MessageAdapterOption {
	return func(cfg *messageAdapterConfig) { cfg.remap = mapping }
}

// NewMessageAdapter validates the remap table and returns the adapter.
func NewMessageAdapter(opts ...MessageAdapterOption) (*MessageAdapter, error) {
	cfg := messageAdapterConfig{
		queryFormat: "{key}?",
		writeFormat: "{key} {value}",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	remap, err := newRemapTable("", cfg.remap)
	if err != nil {
		return nil, err
	}
	return &MessageAdapter{
		queryFormat: cfg.queryFormat,
		writeFormat: cfg.writeFormat,
		remap:       remap,
	}, nil
}

// KwargNames implements KeyAdapter.
func (m *MessageAdapter) KwargNames(key string) []string {
	matches := keyToken.FindAllStringSubmatch(key, -1)
	if len(matches) == 0 {
		return nil
	}
	names := make([]string, 0, len(matches))
	for _, match := range matches {
		names = append(names, match[1])
	}
	sort.Strings(names)
	return dedupe(names)
}

// Get implements KeyAdapter: expand, query, reverse-remap.
func (m *MessageAdapter) Get(owner Owner, key string, attr Descriptor, kwargs Kwargs) (any, error) {
	backend, err := m.backend(owner, attr)
	if err != nil {
		return nil, err
	}
	expanded, err := expandKey(attr.Name(), key, kwargs)
	if err != nil {
		return nil, err
	}
	message, err := expandKey(attr.Name(), m.queryFormat, Kwargs{"key": expanded})
	if err != nil {
		return nil, err
	}
	response, err := backend.Query(message)
	if err != nil {
		return nil, wrapAttrError(attr.Name(), err)
	}
	if value, ok := m.attrRemap(attr).fromMessage(response); ok {
		return value, nil
	}
	if value, ok := m.remap.fromMessage(response); ok {
		return value, nil
	}
	return response, nil
}

// Set implements KeyAdapter: forward-remap, expand, write.
func (m *MessageAdapter) Set(owner Owner, key string, value any, attr Descriptor, kwargs Kwargs) error {
	backend, err := m.backend(owner, attr)
	if err != nil {
		return err
	}
	expanded, err := expandKey(attr.Name(), key, kwargs)
	if err != nil {
		return err
	}
	encoded, ok := m.attrRemap(attr).toMessage(value)
	if !ok {
		encoded, ok = m.remap.toMessage(value)
	}
	if !ok {
		encoded, err = coerce.String(value)
		if err != nil {
			encoded = fmt.Sprintf("%v", value)
		}
	}
	message, err := expandKey(attr.Name(), m.writeFormat, Kwargs{"key": expanded, "value": encoded})
	if err != nil {
		return err
	}
	if err := backend.Write(message); err != nil {
		return wrapAttrError(attr.Name(), err)
	}
	return nil
}

func (m *MessageAdapter) backend(owner Owner, attr Descriptor) (Backend, error) {
	backend, ok := owner.(Backend)
	if !ok {
		return nil, configErrorf(attr.Name(), "owner %T does not implement Backend", owner)
	}
	return backend, nil
}

func (m *MessageAdapter) attrRemap(attr Descriptor) *remapTable {
	if carrier, ok := attr.(remapCarrier); ok {
		return carrier.messageRemap()
	}
	return nil
}
