package geometry

import (
	"image"
	"image/color"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImage(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xff})
		}
	}
	return img
}

func ratio(t *testing.T, w, h int) *big.Rat {
	t.Helper()
	r, err := Ratio(w, h)
	require.NoError(t, err)
	return r
}

func TestCropRectCentering(t *testing.T) {
	rect, err := CropRect(100, 100, ratio(t, 100, 100), big.NewRat(1, 2))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(25, 0, 75, 100), rect)
}

func TestCropRect(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		target *big.Rat
		want   image.Rectangle
	}{
		{"too wide anchors height", 1000, 500, big.NewRat(5, 7), image.Rect(321, 0, 678, 500)},
		{"too narrow anchors width", 500, 1000, big.NewRat(1, 1), image.Rect(0, 250, 500, 750)},
		{"odd remainder floors offset", 101, 50, big.NewRat(1, 1), image.Rect(25, 0, 75, 50)},
		{"vertical odd remainder", 10, 15, big.NewRat(5, 1), image.Rect(0, 6, 10, 8)},
		{"equal is no-op", 700, 980, big.NewRat(5, 7), image.Rect(0, 0, 700, 980)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rect, err := CropRect(tt.w, tt.h, ratio(t, tt.w, tt.h), tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rect)
		})
	}
}

func TestCropRectAnchoring(t *testing.T) {
	targets := []*big.Rat{big.NewRat(5, 7), big.NewRat(16, 9), big.NewRat(1, 3), big.NewRat(3, 1)}
	sizes := [][2]int{{640, 480}, {480, 640}, {1, 1000}, {999, 1}, {1234, 987}, {37, 91}}

	for _, target := range targets {
		tf, _ := target.Float64()
		for _, s := range sizes {
			w, h := s[0], s[1]
			current := ratio(t, w, h)
			rect, err := CropRect(w, h, current, target)
			if err != nil {
				assert.ErrorIs(t, err, ErrInvalidGeometry)
				continue
			}
			switch target.Cmp(current) {
			case -1:
				assert.Equal(t, h, rect.Dy())
				assert.LessOrEqual(t, abs(float64(rect.Dx())-tf*float64(h)), 1.0)
				assert.Equal(t, (w-rect.Dx())/2, rect.Min.X)
			case 1:
				assert.Equal(t, w, rect.Dx())
				assert.LessOrEqual(t, abs(float64(rect.Dy())-float64(w)/tf), 1.0)
				assert.Equal(t, (h-rect.Dy())/2, rect.Min.Y)
			}
		}
	}
}

func TestCropRectDegenerate(t *testing.T) {
	_, err := CropRect(1, 10, ratio(t, 1, 10), big.NewRat(1, 100))
	assert.ErrorIs(t, err, ErrInvalidGeometry)

	_, err = CropRect(10, 1, ratio(t, 10, 1), big.NewRat(100, 1))
	assert.ErrorIs(t, err, ErrInvalidGeometry)

	_, err = Ratio(0, 10)
	assert.ErrorIs(t, err, ErrInvalidGeometry)
}

func TestCropToAspect(t *testing.T) {
	src := newImage(100, 100)
	out, err := CropToAspect(src, ratio(t, 100, 100), big.NewRat(1, 2))
	require.NoError(t, err)
	assert.Equal(t, 50, out.Bounds().Dx())
	assert.Equal(t, 100, out.Bounds().Dy())

	// first column of the crop is source column 25
	r, _, _, _ := out.At(out.Bounds().Min.X, out.Bounds().Min.Y).RGBA()
	assert.Equal(t, uint32(25), r>>8)
}

func TestCropToAspectNoOp(t *testing.T) {
	src := newImage(70, 98)
	out, err := CropToAspect(src, ratio(t, 70, 98), big.NewRat(5, 7))
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), out.Bounds())
}

func TestCropToAspectOffsetBounds(t *testing.T) {
	src := newImage(60, 20).(*image.NRGBA).SubImage(image.Rect(10, 0, 50, 20))
	out, err := CropToAspect(src, ratio(t, 40, 20), big.NewRat(1, 1))
	require.NoError(t, err)
	assert.Equal(t, 20, out.Bounds().Dx())
	assert.Equal(t, 20, out.Bounds().Dy())

	r, _, _, _ := out.At(out.Bounds().Min.X, out.Bounds().Min.Y).RGBA()
	assert.Equal(t, uint32(20), r>>8, "crop is relative to the sub-image origin")
}

func TestResizeDims(t *testing.T) {
	w, h, needed, err := ResizeDims(2000, 1000, 1000)
	require.NoError(t, err)
	assert.True(t, needed)
	assert.Equal(t, 1000, w)
	assert.Equal(t, 500, h)

	w, h, needed, err = ResizeDims(3, 2, 2)
	require.NoError(t, err)
	assert.True(t, needed)
	assert.Equal(t, 2, w)
	assert.Equal(t, 1, h, "1.333 rounds to 1")

	w, h, needed, err = ResizeDims(800, 600, 800)
	require.NoError(t, err)
	assert.False(t, needed)
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)

	_, _, _, err = ResizeDims(10000, 1, 10)
	assert.ErrorIs(t, err, ErrInvalidGeometry)
}

func TestBoundedResize(t *testing.T) {
	out, err := BoundedResize(newImage(200, 100), 100)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 50), out.Bounds())
}

func TestBoundedResizeNeverUpscales(t *testing.T) {
	for _, s := range [][2]int{{10, 10}, {100, 30}, {99, 200}} {
		src := newImage(s[0], s[1])
		out, err := BoundedResize(src, 100)
		require.NoError(t, err)
		assert.Equal(t, src.Bounds(), out.Bounds())
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
