package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseParams turns key=value pairs from --params into typed runtime
// parameters. Values parse as YAML scalars, so counts arrive as numbers
// and flags as booleans rather than strings. Dotted keys nest:
// train.epochs=20 becomes {"train": {"epochs": 20}}.
func ParseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]any)
	for _, pair := range pairs {
		key, raw, found := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected key=value", pair)
		}
		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil || value == nil {
			value = raw
		}
		setNested(params, strings.Split(key, "."), value)
	}
	return params, nil
}

func setNested(m map[string]any, path []string, value any) {
	if len(path) == 1 {
		m[path[0]] = value
		return
	}
	sub, ok := m[path[0]].(map[string]any)
	if !ok {
		sub = make(map[string]any)
		m[path[0]] = sub
	}
	setNested(sub, path[1:], value)
}
