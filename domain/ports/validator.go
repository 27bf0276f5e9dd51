package ports

import "github.com/vkhristenko/scaroot/domain/entities"

// ManifestValidator validates a decoded manifest before it is applied.
type ManifestValidator interface {
	// Validate checks structural constraints on the manifest.
	Validate(manifest *entities.BindingManifest) (*entities.ValidationResult, error)
}
