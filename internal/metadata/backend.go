package metadata

import (
	"fmt"

	"blip/internal/config"
)

// New returns the propagator selected by cfg.
func New(cfg *config.Config) (Propagator, error) {
	if cfg.NoMetadata {
		return Noop{}, nil
	}
	switch cfg.MetadataBackend {
	case config.BackendNative, "":
		return NewNative(), nil
	case config.BackendExiftool:
		return NewExiftool(cfg.ExiftoolPath, cfg.MetadataTimeout)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.MetadataBackend)
	}
}
