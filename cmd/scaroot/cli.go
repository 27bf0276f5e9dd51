package main

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	appconfig "github.com/vkhristenko/scaroot/application/config"
	"github.com/vkhristenko/scaroot/application/schema"
	"github.com/vkhristenko/scaroot/domain/entities"
	"github.com/vkhristenko/scaroot/domain/ports"
	"github.com/vkhristenko/scaroot/host"
	"github.com/vkhristenko/scaroot/infrastructure/dynlib"
	"github.com/vkhristenko/scaroot/infrastructure/parser"
	"github.com/vkhristenko/scaroot/infrastructure/wazero"
	scarootlog "github.com/vkhristenko/scaroot/log"
)

// ExitError is an error carrying a specific exit code.
type ExitError struct {
	Message string
	Code    int
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

const usage = `
scaroot - load order checker for native library bindings.

Usage:
  scaroot check [options] MANIFEST
  scaroot schema

Commands:
  check   Apply a binding manifest, load every library it declares and
          print a JSON report. Exits 1 when any library fails to load.
  schema  Print the JSON schema of binding manifests.
`

func run(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return nil
	}
	switch args[0] {
	case "check":
		return runCheck(ctx, stdout, stderr, args[1:])
	case "schema":
		return runSchema(stdout)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		return &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q\n%s", args[0], usage)}
	}
}

// checkOptions are the parsed flags of the check command.
type checkOptions struct {
	manifest    string
	loader      string
	logFormat   string
	logLevel    slog.Level
	logSource   bool
	values      string
	searchPaths stringList
	sets        stringList
	wasi        bool
	noSystem    bool
}

// parseCheck processes the check arguments. It returns the options, whether
// the program should exit cleanly, or an ExitError.
func parseCheck(args []string, output io.Writer) (*checkOptions, bool, error) {
	opts := &checkOptions{}
	fs := flag.NewFlagSet("scaroot check", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprint(output, `
Usage:
  scaroot check [options] MANIFEST

Arguments:
  MANIFEST
    Path to a .yaml, .yml or .hcl binding manifest.

Options:
`)
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.loader, "loader", "native", "Module loader. Options: 'native' or 'wasm'.")
	fs.Var(&opts.searchPaths, "search-path", "Directory searched for libraries before the manifest's search_paths. Repeatable.")
	fs.Var(&opts.sets, "set", "Template value as KEY=VALUE, available as {{ .config.KEY }}. Repeatable.")
	fs.StringVar(&opts.values, "values", "", "YAML file of template values; -set overrides it.")
	fs.BoolVar(&opts.wasi, "wasi", false, "Provide WASI to WebAssembly modules (wasm loader only).")
	fs.BoolVar(&opts.noSystem, "no-system", false, "Do not fall back to the system library locations (native loader only).")
	fs.StringVar(&opts.logFormat, "log-format", scarootlog.FormatText, "Log output format. Options: 'text' or 'json'.")
	fs.BoolVar(&opts.logSource, "log-source", false, "Include source locations in log records.")
	logLevel := fs.String("log-level", "warn", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := fs.Parse(args); err != nil {
		if stdErrors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return nil, false, &ExitError{Code: 2, Message: "expected exactly one MANIFEST argument"}
	}
	opts.manifest = fs.Arg(0)

	switch opts.loader {
	case "native", "wasm":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid loader: must be 'native' or 'wasm'"}
	}
	switch opts.logFormat {
	case scarootlog.FormatText, scarootlog.FormatJSON:
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	level, err := scarootlog.ParseLevel(*logLevel)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	opts.logLevel = level

	return opts, false, nil
}

func runCheck(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	opts, exit, err := parseCheck(args, stdout)
	if err != nil || exit {
		return err
	}

	logger := slog.New(scarootlog.NewHandler(stderr,
		scarootlog.WithLevel(opts.logLevel),
		scarootlog.WithFormat(opts.logFormat),
		scarootlog.WithSource(opts.logSource),
	))

	values, err := templateValues(opts)
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}

	raw, err := os.ReadFile(opts.manifest)
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	p, err := parser.ForFile(opts.manifest)
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}

	moduleLoader, closeLoader, err := newModuleLoader(ctx, opts, logger)
	if err != nil {
		return err
	}
	defer closeLoader()

	linker := host.NewLinker(host.WithLoader(moduleLoader), host.WithLogger(logger))
	manifests := host.NewLoader(linker, host.WithParser(p))

	m, err := manifests.LoadManifest(raw, values)
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	resolveSearchPaths(m, filepath.Dir(opts.manifest))

	report := manifests.Check(ctx, m)
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if !report.OK() {
		return &ExitError{Code: 1, Message: fmt.Sprintf("%d error(s) while loading %s", len(report.Errors), opts.manifest)}
	}
	return nil
}

// templateValues merges the -values file, -set assignments and ROOTSYS.
func templateValues(opts *checkOptions) (appconfig.Config, error) {
	base := appconfig.Config{}
	if opts.values != "" {
		loaded, err := appconfig.Load(opts.values)
		if err != nil {
			return nil, err
		}
		base = loaded
	}
	sets, err := appconfig.ParseAssignments(opts.sets)
	if err != nil {
		return nil, err
	}
	values := appconfig.Merge(base, sets)
	if rootsys, ok := os.LookupEnv("ROOTSYS"); ok {
		appconfig.SetDefault(values, "rootsys", rootsys)
	}
	return values, nil
}

func newModuleLoader(ctx context.Context, opts *checkOptions, logger *slog.Logger) (ports.ModuleLoader, func(), error) {
	if opts.loader == "wasm" {
		l, err := wazero.NewLoader(ctx,
			wazero.WithSearchPaths(opts.searchPaths...),
			wazero.WithWASI(opts.wasi),
			wazero.WithLogger(logger),
		)
		if err != nil {
			return nil, nil, err
		}
		return l, func() { _ = l.Close(ctx) }, nil
	}
	return dynlib.New(
		dynlib.WithSearchPaths(opts.searchPaths...),
		dynlib.WithSystemSearch(!opts.noSystem),
		dynlib.WithLogger(logger),
	), func() {}, nil
}

// resolveSearchPaths makes relative manifest search paths relative to the
// manifest's directory.
func resolveSearchPaths(m *entities.BindingManifest, dir string) {
	for i, p := range m.SearchPaths {
		if !filepath.IsAbs(p) {
			m.SearchPaths[i] = filepath.Join(dir, p)
		}
	}
}

func runSchema(stdout io.Writer) error {
	data, err := schema.ManifestSchema()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, string(data))
	return err
}
