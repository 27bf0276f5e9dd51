// Package config holds the values manifest templates are rendered with.
package config

import (
	"fmt"
	"maps"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vkhristenko/scaroot/domain/errors"
)

// Config represents template values as a key-value map.
type Config = map[string]any

// Load reads a YAML mapping of template values from path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Config{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &errors.ConfigError{Field: path, Err: err}
	}
	return cfg, nil
}

// ParseAssignments parses KEY=VALUE pairs. Values are read as YAML scalars
// or flow sequences, so "eager=true" yields a bool and "dirs=[a, b]" a list.
// A value that is not valid YAML is kept as a string.
func ParseAssignments(pairs []string) (Config, error) {
	cfg := make(Config, len(pairs))
	for _, p := range pairs {
		key, raw, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, errors.NewConfigError("set", "expected KEY=VALUE, got %q", p)
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil || v == nil {
			v = raw
		}
		cfg[key] = v
	}
	return cfg, nil
}

// Merge returns a new Config with the values of each override applied in
// order on top of base.
func Merge(base Config, overrides ...Config) Config {
	out := maps.Clone(base)
	if out == nil {
		out = Config{}
	}
	for _, o := range overrides {
		maps.Copy(out, o)
	}
	return out
}

// SetDefault sets key to value unless it is already present.
func SetDefault(config Config, key string, value any) {
	if _, ok := config[key]; !ok {
		config[key] = value
	}
}
