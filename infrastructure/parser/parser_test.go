package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkhristenko/scaroot/domain/entities"
)

var clingManifest = &entities.BindingManifest{
	SearchPaths: []string{"/opt/root/lib"},
	Libraries: []entities.LibrarySpec{
		{
			Name:         "Cling",
			Dependencies: []string{"RIO", "tinfo", "z", "Core", "stdc++", "gcc_s", "Thread"},
			Classes: []entities.ClassSpec{
				{Name: "TClingClassInfo"},
				{Name: "RFile", Native: "ROOT::RFile"},
			},
		},
	},
}

func TestYAMLParser_Parse(t *testing.T) {
	src := `
search_paths:
  - /opt/root/lib
libraries:
  - name: Cling
    dependencies: [RIO, tinfo, z, Core, stdc++, gcc_s, Thread]
    classes:
      - name: TClingClassInfo
      - name: RFile
        native: "ROOT::RFile"
`
	got, err := NewYAMLParser().Parse([]byte(src))
	require.NoError(t, err)
	if diff := cmp.Diff(clingManifest, got); diff != "" {
		t.Errorf("manifest mismatch (-want +got):\n%s", diff)
	}
}

func TestYAMLParser_RejectsUnknownFields(t *testing.T) {
	src := `
libraries:
  - name: Cling
    dependecies: [Core]
`
	_, err := NewYAMLParser().Parse([]byte(src))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dependecies")
}

func TestYAMLParser_InvalidYAML(t *testing.T) {
	_, err := NewYAMLParser().Parse([]byte("libraries: [\n"))
	assert.Error(t, err)
}

func TestHCLParser_Parse(t *testing.T) {
	src := `
search_paths = ["/opt/root/lib"]

library "Cling" {
  dependencies = ["RIO", "tinfo", "z", "Core", "stdc++", "gcc_s", "Thread"]

  class "TClingClassInfo" {}

  class "RFile" {
    native = "ROOT::RFile"
  }
}
`
	got, err := NewHCLParser("cling.hcl").Parse([]byte(src))
	require.NoError(t, err)
	if diff := cmp.Diff(clingManifest, got); diff != "" {
		t.Errorf("manifest mismatch (-want +got):\n%s", diff)
	}
}

func TestHCLParser_Eager(t *testing.T) {
	got, err := NewHCLParser("").Parse([]byte(`
eager = true
library "Core" {}
`))
	require.NoError(t, err)
	assert.True(t, got.Eager)
	require.Len(t, got.Libraries, 1)
	assert.Equal(t, "Core", got.Libraries[0].Name)
	assert.Empty(t, got.Libraries[0].Dependencies)
}

func TestHCLParser_Errors(t *testing.T) {
	t.Run("syntax", func(t *testing.T) {
		_, err := NewHCLParser("bad.hcl").Parse([]byte(`library "Cling" {`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad.hcl")
	})

	t.Run("unknown attribute", func(t *testing.T) {
		_, err := NewHCLParser("bad.hcl").Parse([]byte(`
library "Cling" {
  depends = ["Core"]
}
`))
		assert.Error(t, err)
	})
}

func TestForFile(t *testing.T) {
	tests := []struct {
		path    string
		want    any
		wantErr bool
	}{
		{path: "bindings.yaml", want: &YAMLParser{}},
		{path: "bindings.YML", want: &YAMLParser{}},
		{path: "/etc/scaroot/cling.hcl", want: &HCLParser{filename: "cling.hcl"}},
		{path: "bindings.json", wantErr: true},
		{path: "bindings", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			p, err := ForFile(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
		})
	}
}
