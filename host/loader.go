package host

import (
	"context"
	stdErrors "errors"
	"fmt"
	"sync"

	apptemplate "github.com/vkhristenko/scaroot/application/template"
	"github.com/vkhristenko/scaroot/application/validation"
	"github.com/vkhristenko/scaroot/domain/entities"
	"github.com/vkhristenko/scaroot/domain/errors"
	"github.com/vkhristenko/scaroot/domain/ports"
	"github.com/vkhristenko/scaroot/infrastructure/parser"
)

// loaderConfig holds configuration for the Loader.
type loaderConfig struct {
	templateEngine  ports.TemplateEngine
	parser          ports.ManifestParser
	validator       ports.ManifestValidator
	strictTemplates bool // Fail on missing template keys
}

func defaultLoaderConfig() loaderConfig {
	return loaderConfig{
		parser:          parser.NewYAMLParser(),
		validator:       validation.NewManifestValidator(),
		strictTemplates: true,
	}
}

// Loader reads binding manifests and applies them to a Linker.
type Loader struct {
	linker *Linker
	config loaderConfig

	mu    sync.Mutex
	paths map[string]bool // search paths already handed to the module loader
}

// LoaderOption configures the Loader.
type LoaderOption func(*loaderConfig)

// WithParser sets a custom manifest parser. The default reads YAML.
func WithParser(p ports.ManifestParser) LoaderOption {
	return func(c *loaderConfig) {
		c.parser = p
	}
}

// WithTemplateEngine sets a template engine.
func WithTemplateEngine(t ports.TemplateEngine) LoaderOption {
	return func(c *loaderConfig) {
		c.templateEngine = t
	}
}

// WithStrictTemplates enables/disables strict template mode.
// When enabled (default), template rendering fails if a referenced key is missing.
func WithStrictTemplates(enabled bool) LoaderOption {
	return func(c *loaderConfig) {
		c.strictTemplates = enabled
	}
}

// WithManifestValidator replaces the structural manifest validator.
func WithManifestValidator(v ports.ManifestValidator) LoaderOption {
	return func(c *loaderConfig) {
		c.validator = v
	}
}

// NewLoader creates a new Loader applying manifests to linker.
func NewLoader(linker *Linker, opts ...LoaderOption) *Loader {
	cfg := defaultLoaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.templateEngine == nil {
		cfg.templateEngine = apptemplate.NewGoTemplateEngine(
			apptemplate.WithStrict(cfg.strictTemplates),
		)
	}

	return &Loader{linker: linker, config: cfg, paths: make(map[string]bool)}
}

// LoadManifest renders, parses and validates a manifest. Template
// placeholders refer to config as {{ .config.key }}.
func (l *Loader) LoadManifest(raw []byte, config map[string]interface{}) (*entities.BindingManifest, error) {
	data := raw

	if l.config.templateEngine != nil {
		var err error
		data, err = l.config.templateEngine.Render(raw, config)
		if err != nil {
			return nil, fmt.Errorf("failed to render manifest: %w", err)
		}
	}

	manifest, err := l.config.parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if l.config.validator != nil {
		res, err := l.config.validator.Validate(manifest)
		if err != nil {
			return nil, fmt.Errorf("validation error: %w", err)
		}
		if !res.Valid {
			msg := "manifest validation failed:"
			for _, e := range res.Errors {
				msg += fmt.Sprintf("\n- %s: %s", e.Field, e.Message)
			}
			return nil, &errors.ConfigError{Err: fmt.Errorf("%s", msg)}
		}
	}

	return manifest, nil
}

// Apply declares every library of m and binds its classes. Search paths
// are handed to the module loader when it accepts them. Libraries are
// loaded before Apply returns when m.Eager is set (or the linker is eager).
func (l *Loader) Apply(ctx context.Context, m *entities.BindingManifest) ([]*entities.BoundType, error) {
	if len(m.SearchPaths) > 0 {
		spc, ok := l.linker.ModuleLoader().(ports.SearchPathConfigurer)
		if !ok {
			return nil, errors.NewConfigError("search_paths", "module loader %T does not accept search paths", l.linker.ModuleLoader())
		}
		if fresh := l.newSearchPaths(m.SearchPaths); len(fresh) > 0 {
			spc.AddSearchPath(fresh...)
		}
	}

	descriptors := make([]*entities.LibraryDescriptor, 0, len(m.Libraries))
	for _, lib := range m.Libraries {
		d, err := l.linker.Declare(lib.Name, lib.Dependencies...)
		if err != nil {
			return nil, fmt.Errorf("library %s: %w", lib.Name, err)
		}
		descriptors = append(descriptors, d)
	}

	var bound []*entities.BoundType
	for i, lib := range m.Libraries {
		for _, cls := range lib.Classes {
			bt, err := l.linker.Bind(ctx, cls.Name, cls.NativeName(), descriptors[i])
			if bt != nil {
				bound = append(bound, bt)
			}
			if err != nil {
				return bound, fmt.Errorf("bind %s: %w", cls.Name, err)
			}
		}
	}

	if m.Eager {
		for _, d := range descriptors {
			if err := l.linker.EnsureLoaded(ctx, d); err != nil {
				return bound, err
			}
		}
	}
	return bound, nil
}

// newSearchPaths returns the entries of paths not handed out before and
// records them.
func (l *Loader) newSearchPaths(paths []string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var fresh []string
	for _, p := range paths {
		if !l.paths[p] {
			l.paths[p] = true
			fresh = append(fresh, p)
		}
	}
	return fresh
}

// Check applies m and then tries to load every library in it, collecting
// failures instead of stopping at the first one. A module that fails is
// reported once.
func (l *Loader) Check(ctx context.Context, m *entities.BindingManifest) *entities.LoadReport {
	report := &entities.LoadReport{}
	reported := make(map[string]bool)
	record := func(err error) {
		key := err.Error()
		var loadErr *errors.LoadError
		if stdErrors.As(err, &loadErr) {
			key = "module " + loadErr.Module
		}
		if !reported[key] {
			reported[key] = true
			report.Errors = append(report.Errors, errors.ToErrorDetail(err))
		}
	}

	bound, err := l.Apply(ctx, &entities.BindingManifest{SearchPaths: m.SearchPaths, Libraries: m.Libraries})
	if err != nil {
		record(err)
	}

	for _, lib := range m.Libraries {
		d, ok := l.linker.Descriptor(lib.Name)
		if !ok {
			continue
		}
		if err := l.linker.EnsureLoaded(ctx, d); err != nil {
			record(err)
		}
	}

	seen := make(map[string]bool)
	for _, name := range l.linker.Loaded() {
		seen[name] = true
		report.Modules = append(report.Modules, entities.ModuleStatus{Name: name, State: entities.ModuleLoaded})
	}
	for _, lib := range m.Libraries {
		d, ok := l.linker.Descriptor(lib.Name)
		if !ok {
			continue
		}
		names, err := l.linker.plan(d)
		if err != nil {
			names = d.Modules()
		}
		for _, name := range names {
			if !seen[name] {
				seen[name] = true
				report.Modules = append(report.Modules, entities.ModuleStatus{Name: name, State: l.linker.State(name)})
			}
		}
	}

	for _, bt := range bound {
		report.Bindings = append(report.Bindings, entities.BindingStatus{
			Local:   bt.LocalIdentity,
			Native:  bt.NativeClassName,
			Library: bt.Descriptor.PrimaryName,
			Ready:   l.linker.IsLoaded(bt.Descriptor),
		})
	}
	return report
}
