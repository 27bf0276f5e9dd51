package parser

import (
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vkhristenko/scaroot/domain/entities"
	"github.com/vkhristenko/scaroot/domain/ports"
)

// hclManifest is the HCL shape of a manifest:
//
//	search_paths = ["/opt/root/lib"]
//
//	library "Cling" {
//	  dependencies = ["RIO", "tinfo", "z", "Core", "stdc++", "gcc_s", "Thread"]
//
//	  class "TClingClassInfo" {}
//	}
type hclManifest struct {
	SearchPaths []string     `hcl:"search_paths,optional"`
	Eager       *bool        `hcl:"eager,optional"`
	Libraries   []hclLibrary `hcl:"library,block"`
}

type hclLibrary struct {
	Name         string     `hcl:"name,label"`
	Dependencies []string   `hcl:"dependencies,optional"`
	Classes      []hclClass `hcl:"class,block"`
}

type hclClass struct {
	Name   string  `hcl:"name,label"`
	Native *string `hcl:"native,optional"`
}

// HCLParser implements ManifestParser for HCL.
type HCLParser struct {
	filename string
}

// NewHCLParser creates a new HCLParser. filename is only used in
// diagnostics.
func NewHCLParser(filename string) ports.ManifestParser {
	if filename == "" {
		filename = "manifest.hcl"
	}
	return &HCLParser{filename: filename}
}

// Parse decodes HCL bytes into a BindingManifest.
func (p *HCLParser) Parse(data []byte) (*entities.BindingManifest, error) {
	file, diags := hclparse.NewParser().ParseHCL(data, p.filename)
	if diags.HasErrors() {
		return nil, diags
	}

	var raw hclManifest
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, diags
	}

	manifest := &entities.BindingManifest{SearchPaths: raw.SearchPaths}
	if raw.Eager != nil {
		manifest.Eager = *raw.Eager
	}
	for _, lib := range raw.Libraries {
		spec := entities.LibrarySpec{Name: lib.Name, Dependencies: lib.Dependencies}
		for _, cls := range lib.Classes {
			c := entities.ClassSpec{Name: cls.Name}
			if cls.Native != nil {
				c.Native = *cls.Native
			}
			spec.Classes = append(spec.Classes, c)
		}
		manifest.Libraries = append(manifest.Libraries, spec)
	}
	return manifest, nil
}
