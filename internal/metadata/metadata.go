// Package metadata carries descriptive tags (EXIF, IPTC, XMP) from a source
// image to a transformed output. Width and height tags are never copied
// verbatim: they are dropped or recomputed from the output's pixels.
package metadata

import (
	"context"
	"errors"
)

var (
	ErrNoMetadata     = errors.New("metadata: source carries no metadata")
	ErrUnreadable     = errors.New("metadata: unreadable metadata")
	ErrNoContainer    = errors.New("metadata: format cannot carry metadata")
	ErrToolNotFound   = errors.New("metadata: exiftool not found")
	ErrToolFailed     = errors.New("metadata: exiftool failed")
	ErrUnknownBackend = errors.New("metadata: unknown backend")
)

// Propagator copies tags from the file at src onto the file at dst.
type Propagator interface {
	Copy(ctx context.Context, src, dst string) error
}

// Noop is used when metadata propagation is disabled.
type Noop struct{}

func (Noop) Copy(context.Context, string, string) error { return nil }

// Bundle is the metadata lifted from a source file, normalised so it can be
// written into either a JPEG or a PNG.
type Bundle struct {
	// Exif is a TIFF-structured EXIF block without the "Exif\0\0" prefix.
	Exif []byte
	// XMP is the raw XMP packet.
	XMP []byte
	// IPTC is a Photoshop "8BIM" resource block holding IPTC records.
	IPTC []byte
	// Text holds PNG textual chunks (type + payload) that only a PNG target keeps.
	Text []Chunk
}

// Chunk is a PNG chunk without length and CRC.
type Chunk struct {
	Type string
	Data []byte
}

// Empty reports whether b holds nothing worth writing.
func (b Bundle) Empty() bool {
	return len(b.Exif) == 0 && len(b.XMP) == 0 && len(b.IPTC) == 0 && len(b.Text) == 0
}
