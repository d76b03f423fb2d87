package processor

import (
	"errors"
	"fmt"

	"blip/internal/codec"
	"blip/internal/geometry"
)

// Per-file failure conditions. None of them aborts a batch.
var (
	ErrDecode            = errors.New("decode failure")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrInvalidGeometry   = errors.New("invalid geometry")
	ErrMetadataCopy      = errors.New("metadata copy failure")
	ErrIO                = errors.New("io failure")
)

// Kind returns the stable label for err, or "" when err is nil or foreign.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDecode):
		return "decode_failure"
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ErrInvalidGeometry):
		return "invalid_geometry"
	case errors.Is(err, ErrMetadataCopy):
		return "metadata_copy_failure"
	case errors.Is(err, ErrIO):
		return "io_failure"
	default:
		return ""
	}
}

// classify wraps an error from a lower layer in the matching condition.
func classify(err error) error {
	if err == nil || Kind(err) != "" {
		return err
	}
	switch {
	case errors.Is(err, codec.ErrDecode):
		return fmt.Errorf("%w: %w", ErrDecode, err)
	case errors.Is(err, codec.ErrUnsupportedFormat):
		return fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	case errors.Is(err, geometry.ErrInvalidGeometry):
		return fmt.Errorf("%w: %w", ErrInvalidGeometry, err)
	default:
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
}
