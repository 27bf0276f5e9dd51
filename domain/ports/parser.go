package ports

import "github.com/vkhristenko/scaroot/domain/entities"

// ManifestParser parses raw manifest bytes into a BindingManifest.
type ManifestParser interface {
	// Parse decodes data into a BindingManifest struct.
	Parse(data []byte) (*entities.BindingManifest, error)
}
