package parser

import (
	"bytes"

	"gopkg.in/yaml.v3"

	"github.com/vkhristenko/scaroot/domain/entities"
	"github.com/vkhristenko/scaroot/domain/ports"
)

// YAMLParser implements ManifestParser for YAML.
type YAMLParser struct{}

// NewYAMLParser creates a new YAMLParser.
func NewYAMLParser() ports.ManifestParser {
	return &YAMLParser{}
}

// Parse unmarshals YAML bytes into a BindingManifest. Unknown keys are
// rejected so that a misspelled "dependencies" does not silently drop
// load-order constraints.
func (p *YAMLParser) Parse(data []byte) (*entities.BindingManifest, error) {
	var manifest entities.BindingManifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&manifest); err != nil {
		return nil, err
	}
	return &manifest, nil
}
