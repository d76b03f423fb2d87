// Package codec maps output format labels and a quality setting to a concrete
// encoder, and decodes any supported container into a raster.
package codec

import (
	"errors"
	"fmt"
	"image/png"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupportedFormat = errors.New("codec: unsupported format")
	ErrDecode            = errors.New("codec: decode failed")
)

// Codec is the closed set of output encoders.
type Codec int

const (
	JPEG Codec = iota + 1
	PNG
	GIF
	BMP
	TIFF
)

func (c Codec) String() string {
	switch c {
	case JPEG:
		return "jpeg"
	case PNG:
		return "png"
	case GIF:
		return "gif"
	case BMP:
		return "bmp"
	case TIFF:
		return "tiff"
	default:
		return fmt.Sprintf("codec(%d)", int(c))
	}
}

// Extension is the canonical file extension written for c.
func (c Codec) Extension() string {
	switch c {
	case JPEG:
		return "jpg"
	case PNG:
		return "png"
	case GIF:
		return "gif"
	case BMP:
		return "bmp"
	case TIFF:
		return "tif"
	default:
		return ""
	}
}

// Parse converts an extension label such as "jpeg" or ".PNG" into a Codec.
func Parse(label string) (Codec, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(label), ".")) {
	case "jpg", "jpeg":
		return JPEG, nil
	case "png":
		return PNG, nil
	case "gif":
		return GIF, nil
	case "bmp":
		return BMP, nil
	case "tif", "tiff":
		return TIFF, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, label)
	}
}

// Tier is the PNG compression effort selected from the quality setting.
type Tier int

const (
	TierDefault Tier = iota
	TierFast
	TierBest
)

func (t Tier) String() string {
	switch t {
	case TierFast:
		return "fast"
	case TierBest:
		return "best"
	default:
		return "default"
	}
}

// Level converts t to the image/png compression level. The encoder always
// picks the filter per scanline adaptively, whatever the level.
func (t Tier) Level() png.CompressionLevel {
	switch t {
	case TierFast:
		return png.BestSpeed
	case TierBest:
		return png.BestCompression
	default:
		return png.DefaultCompression
	}
}

// PNGTier maps quality to a compression effort: [50,79] fast, [80,100] best,
// anything else default.
func PNGTier(quality int) Tier {
	switch {
	case quality >= 80 && quality <= 100:
		return TierBest
	case quality >= 50 && quality <= 79:
		return TierFast
	default:
		return TierDefault
	}
}

// Target is the resolved encode_extension setting.
type Target struct {
	original bool
	codec    Codec
	label    string
}

// ResolveTarget converts the configured output label once at startup.
// "original" defers the choice to each file's own extension.
func ResolveTarget(label string) (Target, error) {
	label = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(label), "."))
	if label == "original" {
		return Target{original: true}, nil
	}
	c, err := Parse(label)
	if err != nil {
		return Target{}, err
	}
	return Target{codec: c, label: label}, nil
}

// Original reports whether each file keeps its own format.
func (t Target) Original() bool {
	return t.original
}

// For returns the encoder and output extension for the source at path.
func (t Target) For(path string) (Codec, string, error) {
	if !t.original {
		return t.codec, t.label, nil
	}
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return 0, "", fmt.Errorf("%w: %s has no extension", ErrUnsupportedFormat, filepath.Base(path))
	}
	c, err := Parse(ext)
	if err != nil {
		return 0, "", err
	}
	return c, ext, nil
}

func (t Target) String() string {
	if t.original {
		return "original"
	}
	return t.label
}
