// Package template renders binding manifests before they are parsed, so
// that search paths can follow the installation (for example $ROOTSYS).
package template

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"github.com/vkhristenko/scaroot/domain/ports"
)

// templateConfig holds configuration for the GoTemplateEngine.
type templateConfig struct {
	lookupEnv func(string) (string, bool)
	strict    bool // Fail on missing keys
}

func defaultTemplateConfig() templateConfig {
	return templateConfig{
		lookupEnv: os.LookupEnv,
		strict:    true,
	}
}

// TemplateOption configures a GoTemplateEngine.
type TemplateOption func(*templateConfig)

// WithStrict enables/disables strict mode for missing keys.
// When enabled (default), template rendering fails if a referenced key or
// environment variable is missing.
func WithStrict(enabled bool) TemplateOption {
	return func(c *templateConfig) {
		c.strict = enabled
	}
}

// WithEnvLookup replaces os.LookupEnv for the env template function.
func WithEnvLookup(fn func(string) (string, bool)) TemplateOption {
	return func(c *templateConfig) {
		c.lookupEnv = fn
	}
}

// GoTemplateEngine implements TemplateEngine using standard text/template.
// Besides {{ .config.key }} it provides {{ env "NAME" }} and
// {{ default "fallback" .config.key }}.
type GoTemplateEngine struct {
	config templateConfig
}

// NewGoTemplateEngine creates a new GoTemplateEngine.
func NewGoTemplateEngine(opts ...TemplateOption) ports.TemplateEngine {
	cfg := defaultTemplateConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &GoTemplateEngine{config: cfg}
}

func (e *GoTemplateEngine) funcs() template.FuncMap {
	return template.FuncMap{
		"env": func(name string) (string, error) {
			v, ok := e.config.lookupEnv(name)
			if !ok && e.config.strict {
				return "", fmt.Errorf("environment variable %s is not set", name)
			}
			return v, nil
		},
		"default": func(fallback string, v interface{}) string {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
			return fallback
		},
	}
}

// Render processes the raw manifest bytes with the provided config.
func (e *GoTemplateEngine) Render(raw []byte, config map[string]interface{}) ([]byte, error) {
	tmpl := template.New("manifest").Funcs(e.funcs())

	if e.config.strict {
		tmpl = tmpl.Option("missingkey=error")
	}

	tmpl, err := tmpl.Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest template: %w", err)
	}

	var buf bytes.Buffer
	data := map[string]interface{}{
		"config": config,
	}

	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute manifest template: %w", err)
	}

	return buf.Bytes(), nil
}
