// Package parser decodes binding manifests from YAML or HCL.
package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vkhristenko/scaroot/domain/ports"
)

// ForFile picks a parser from the manifest file extension.
func ForFile(path string) (ports.ManifestParser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return NewYAMLParser(), nil
	case ".hcl":
		return NewHCLParser(filepath.Base(path)), nil
	default:
		return nil, fmt.Errorf("unsupported manifest format %q (want .yaml, .yml or .hcl)", ext)
	}
}
