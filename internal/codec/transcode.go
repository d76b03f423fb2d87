package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"io"

	"github.com/disintegration/imaging"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"blip/pkg/imgutil"
)

// Decode sniffs the container in data and decodes it into a raster.
// EXIF orientation is left alone so the copied tag still describes the pixels.
func Decode(data []byte) (image.Image, imgutil.Kind, error) {
	kind, err := imgutil.SniffBytes(data)
	if err != nil {
		return nil, imgutil.KindUnknown, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if kind == imgutil.KindUnknown {
		return nil, kind, fmt.Errorf("%w: unrecognised container", ErrDecode)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, kind, fmt.Errorf("%w: %s: %v", ErrDecode, kind, err)
	}
	return img, kind, nil
}

// Encode writes img to w with the encoder selected for c. JPEG uses quality
// directly, PNG maps it to a compression tier, the rest ignore it.
func Encode(w io.Writer, img image.Image, c Codec, quality int) error {
	var err error
	switch c {
	case JPEG:
		err = imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case PNG:
		err = imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(PNGTier(quality).Level()))
	case GIF:
		err = imaging.Encode(w, img, imaging.GIF)
	case BMP:
		err = bmp.Encode(w, img)
	case TIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, c)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", c, err)
	}
	return nil
}

// DecodeAnimation returns the decoded frames of data when it is a GIF with
// more than one frame.
func DecodeAnimation(data []byte) (*gif.GIF, bool) {
	anim, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil || len(anim.Image) < 2 {
		return nil, false
	}
	return anim, true
}

// RemuxGIF writes every frame of anim through unchanged.
func RemuxGIF(w io.Writer, anim *gif.GIF) error {
	if err := gif.EncodeAll(w, anim); err != nil {
		return fmt.Errorf("encode gif: %w", err)
	}
	return nil
}
