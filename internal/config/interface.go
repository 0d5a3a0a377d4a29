package config

import "context"

// Loader is the interface for a format-specific manifest loader.
type Loader interface {
	// Load reads the manifest found in projectDir and translates it into the
	// format-agnostic model.
	Load(ctx context.Context, projectDir string) (*Model, error)
}
