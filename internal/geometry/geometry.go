// Package geometry holds the pure pixel-geometry steps of a transform:
// centre-crop to an aspect ratio, then a downscale-only resize.
//
// Crop must run before resize; resizing first would frame the crop against
// downscaled pixels.
package geometry

import (
	"errors"
	"fmt"
	"image"
	"math"
	"math/big"

	"github.com/disintegration/imaging"
)

var ErrInvalidGeometry = errors.New("geometry: invalid geometry")

// ResampleFilter is the interpolation used by BoundedResize.
var ResampleFilter = imaging.CatmullRom

// Ratio returns width/height as an exact rational.
func Ratio(width, height int) (*big.Rat, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d image", ErrInvalidGeometry, width, height)
	}
	return big.NewRat(int64(width), int64(height)), nil
}

// CropRect computes the centred sub-rectangle of a width x height image whose
// ratio is target. The rectangle is relative to the image origin.
func CropRect(width, height int, current, target *big.Rat) (image.Rectangle, error) {
	if width <= 0 || height <= 0 {
		return image.Rectangle{}, fmt.Errorf("%w: %dx%d image", ErrInvalidGeometry, width, height)
	}
	if target == nil || target.Sign() <= 0 {
		return image.Rectangle{}, fmt.Errorf("%w: non-positive target ratio", ErrInvalidGeometry)
	}

	switch target.Cmp(current) {
	case -1:
		// too wide: keep height, centre horizontally
		newWidth := floorMul(height, target.Num(), target.Denom())
		if newWidth <= 0 {
			return image.Rectangle{}, fmt.Errorf("%w: crop of %dx%d to %s leaves zero width", ErrInvalidGeometry, width, height, target.RatString())
		}
		x := (width - newWidth) / 2
		return image.Rect(x, 0, x+newWidth, height), nil
	case 1:
		// too narrow: keep width, centre vertically
		newHeight := floorMul(width, target.Denom(), target.Num())
		if newHeight <= 0 {
			return image.Rectangle{}, fmt.Errorf("%w: crop of %dx%d to %s leaves zero height", ErrInvalidGeometry, width, height, target.RatString())
		}
		y := (height - newHeight) / 2
		return image.Rect(0, y, width, y+newHeight), nil
	default:
		return image.Rect(0, 0, width, height), nil
	}
}

// floorMul returns floor(n * num / den) for non-negative operands.
func floorMul(n int, num, den *big.Int) int {
	v := new(big.Int).Mul(big.NewInt(int64(n)), num)
	v.Quo(v, den)
	return int(v.Int64())
}

// CropToAspect centre-crops img from ratio current to ratio target. When the
// ratios are equal img is returned unchanged.
func CropToAspect(img image.Image, current, target *big.Rat) (image.Image, error) {
	b := img.Bounds()
	rect, err := CropRect(b.Dx(), b.Dy(), current, target)
	if err != nil {
		return nil, err
	}
	if rect.Dx() == b.Dx() && rect.Dy() == b.Dy() {
		return img, nil
	}
	return imaging.Crop(img, rect.Add(b.Min)), nil
}

// ResizeDims returns the exact output size for a bounded resize and whether a
// resize is needed at all.
func ResizeDims(width, height, maxWidth int) (int, int, bool, error) {
	if width <= 0 || height <= 0 {
		return 0, 0, false, fmt.Errorf("%w: %dx%d image", ErrInvalidGeometry, width, height)
	}
	if maxWidth <= 0 {
		return 0, 0, false, fmt.Errorf("%w: max width %d", ErrInvalidGeometry, maxWidth)
	}
	if width <= maxWidth {
		return width, height, false, nil
	}
	newHeight := int(math.Round(float64(maxWidth) / float64(width) * float64(height)))
	if newHeight <= 0 {
		return 0, 0, false, fmt.Errorf("%w: resize of %dx%d to width %d leaves zero height", ErrInvalidGeometry, width, height, maxWidth)
	}
	return maxWidth, newHeight, true, nil
}

// BoundedResize downsizes img to maxWidth, never enlarging it. The target
// height is derived from the current pixels, not from an aspect fit.
func BoundedResize(img image.Image, maxWidth int) (image.Image, error) {
	b := img.Bounds()
	w, h, needed, err := ResizeDims(b.Dx(), b.Dy(), maxWidth)
	if err != nil {
		return nil, err
	}
	if !needed {
		return img, nil
	}
	return imaging.Resize(img, w, h, ResampleFilter), nil
}
