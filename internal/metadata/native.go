package metadata

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"blip/internal/fsutil"
	"blip/pkg/imgutil"
)

// Native splices metadata between JPEG and PNG containers in-process.
type Native struct{}

func NewNative() *Native {
	return &Native{}
}

func (n *Native) Copy(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	srcData, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	dstData, err := os.ReadFile(dst)
	if err != nil {
		return err
	}

	out, err := n.Apply(srcData, dstData)
	if err != nil {
		return err
	}

	info, err := os.Stat(dst)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(dst, info.Mode().Perm(), func(w io.Writer) error {
		_, err := w.Write(out)
		return err
	})
}

// Apply returns target with src's metadata spliced in and its dimension
// tags rewritten to match target's pixels.
func (n *Native) Apply(src, target []byte) ([]byte, error) {
	bundle, err := Extract(src)
	if err != nil {
		return nil, err
	}
	if bundle.Empty() {
		return nil, ErrNoMetadata
	}

	targetKind, err := imgutil.SniffBytes(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if targetKind != imgutil.KindJPEG && targetKind != imgutil.KindPNG {
		return nil, fmt.Errorf("%w: %s", ErrNoContainer, targetKind)
	}

	if len(bundle.Exif) > 0 {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(target))
		if err != nil {
			return nil, fmt.Errorf("%w: target dimensions: %v", ErrUnreadable, err)
		}
		bundle.Exif, err = rewriteExifDimensions(bundle.Exif, cfg.Width, cfg.Height)
		if err != nil {
			return nil, err
		}
	}

	if targetKind == imgutil.KindJPEG {
		return spliceJPEG(target, bundle)
	}
	return splicePNG(target, bundle)
}

// Extract lifts the metadata bundle out of an encoded JPEG or PNG. Other
// containers yield ErrNoMetadata.
func Extract(data []byte) (Bundle, error) {
	kind, err := imgutil.SniffBytes(data)
	if err != nil {
		return Bundle{}, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	switch kind {
	case imgutil.KindJPEG:
		return readJPEGBundle(data)
	case imgutil.KindPNG:
		return readPNGBundle(data)
	default:
		return Bundle{}, ErrNoMetadata
	}
}
