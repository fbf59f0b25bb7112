package attrs

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// KeyMap is a declaration overlay loaded from a YAML file: backend key
// templates, remap tables, and documentation for already-declared
// attributes. It lets one owner class ship several instrument key maps
// without recompiling.
type KeyMap struct {
	Class      string                 `yaml:"class"`
	Adapter    KeyMapAdapter          `yaml:"adapter"`
	Attributes map[string]KeyMapEntry `yaml:"attributes"`
}

// KeyMapAdapter overrides the message adapter's formats.
type KeyMapAdapter struct {
	Query string `yaml:"query"`
	Write string `yaml:"write"`
}

// KeyMapEntry is the overlay for one attribute.
type KeyMapEntry struct {
	Key   string            `yaml:"key"`
	Help  string            `yaml:"help"`
	Label string            `yaml:"label"`
	Remap map[string]string `yaml:"remap"`
}

// LoadKeyMap reads and parses a key-map file.
func LoadKeyMap(path string) (*KeyMap, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("attrs: read key map %q: %w", path, err)
	}
	var keyMap KeyMap
	if err := yaml.Unmarshal(payload, &keyMap); err != nil {
		return nil, fmt.Errorf("attrs: parse key map %q: %w", path, err)
	}
	return &keyMap, nil
}

// Apply overlays the key map onto reg's declared attributes. It must run
// before Finalize; entries naming unknown attributes are errors so a typo in
// the file cannot silently drop a key.
func (k *KeyMap) Apply(reg *Registry) error {
	if reg == nil {
		return configErrorf("", "registry is required")
	}
	if reg.Finalized() {
		return configErrorf("", "registry %q is finalized", reg.name)
	}
	for name, entry := range k.Attributes {
		desc, ok := reg.Attr(name)
		if !ok {
			return configErrorf(name, "key map names an undeclared attribute")
		}
		cfg := desc.Config()
		if entry.Key != "" {
			cfg.Key = entry.Key
		}
		if entry.Help != "" {
			cfg.Help = entry.Help
		}
		if entry.Label != "" {
			cfg.Label = entry.Label
		}
		if len(entry.Remap) > 0 {
			remap := make(map[any]string, len(entry.Remap))
			for key, message := range entry.Remap {
				remap[parseRemapKey(key)] = message
			}
			cfg.Remap = remap
		}
	}
	return nil
}

// Adapter builds a MessageAdapter from the key map's format overrides.
func (k *KeyMap) NewAdapter(opts ...MessageAdapterOption) (*MessageAdapter, error) {
	if k.Adapter.Query != "" {
		opts = append(opts, QueryFormat(k.Adapter.Query))
	}
	if k.Adapter.Write != "" {
		opts = append(opts, WriteFormat(k.Adapter.Write))
	}
	return NewMessageAdapter(opts...)
}

// parseRemapKey recovers the declared value type from a YAML map key, which
// yaml delivers as a string: bools, then numbers, then plain strings.
func parseRemapKey(key string) any {
	if b, err := strconv.ParseBool(key); err == nil {
		return b
	}
	if f, err := strconv.ParseFloat(key, 64); err == nil {
		return f
	}
	return key
}
