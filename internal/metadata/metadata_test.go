package metadata

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blip/internal/config"
)

func TestApplyJPEGToJPEGRewritesDimensions(t *testing.T) {
	src := insertJPEGSegment(t, encodeJPEG(t, 40, 20), 0xe1, append([]byte("Exif\x00\x00"), buildExifTIFF(t, 40, 20)...))
	target := encodeJPEG(t, 10, 5)

	out, err := NewNative().Apply(src, target)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Width)
	assert.Equal(t, 5, cfg.Height)

	bundle, err := Extract(out)
	require.NoError(t, err)
	tags := flatTags(t, bundle.Exif)

	assert.Equal(t, "TestCam", tags["Model"])
	assert.Equal(t, "2024:01:02 03:04:05", tags["DateTime"])
	assert.Equal(t, "10", tags["PixelXDimension"])
	assert.Equal(t, "5", tags["PixelYDimension"])
	assert.NotContains(t, tags, "ImageWidth")
	assert.NotContains(t, tags, "ImageLength")
}

func TestApplyReplacesExistingTargetMetadata(t *testing.T) {
	src := insertJPEGSegment(t, encodeJPEG(t, 8, 8), 0xe1, append([]byte("Exif\x00\x00"), buildExifTIFF(t, 8, 8)...))
	target := insertJPEGSegment(t, encodeJPEG(t, 8, 8), 0xe1, append([]byte("Exif\x00\x00"), buildExifTIFF(t, 1, 1)...))

	out, err := NewNative().Apply(src, target)
	require.NoError(t, err)

	exifSegments := 0
	err = walkJPEG(bytes.NewReader(out), func(seg jpegSegment) error {
		if seg.marker == markerAPP1 && bytes.HasPrefix(seg.payload, jpegExifHeader) {
			exifSegments++
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, exifSegments)

	_, err = jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
}

func TestApplyJPEGToPNG(t *testing.T) {
	xmp := []byte(`<x:xmpmeta xmlns:x="adobe:ns:meta/"></x:xmpmeta>`)
	src := encodeJPEG(t, 12, 12)
	src = insertJPEGSegment(t, src, 0xe1, append([]byte("Exif\x00\x00"), buildExifTIFF(t, 12, 12)...))
	src = insertJPEGSegment(t, src, 0xe1, append(append([]byte{}, jpegXmpHeader...), xmp...))
	src = insertJPEGSegment(t, src, 0xed, append(append([]byte{}, jpegPhotoshop...), []byte("8BIM\x04\x04")...))
	target := encodePNG(t, 6, 6)

	out, err := NewNative().Apply(src, target)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err, "chunk CRCs must be valid")
	assert.Equal(t, 6, img.Bounds().Dx())

	bundle, err := Extract(out)
	require.NoError(t, err)
	assert.Equal(t, xmp, bundle.XMP)
	assert.Empty(t, bundle.IPTC, "PNG cannot hold IPTC")
	assert.Equal(t, "6", flatTags(t, bundle.Exif)["PixelXDimension"])
}

func TestApplyPNGToPNGKeepsTextChunks(t *testing.T) {
	src := insertPNGChunks(t, encodePNG(t, 4, 4),
		buildPNGChunk("tEXt", []byte("Author\x00Jane")),
		buildPNGChunk("eXIf", buildExifTIFF(t, 4, 4)),
	)
	target := insertPNGChunks(t, encodePNG(t, 2, 2),
		buildPNGChunk("tEXt", []byte("Comment\x00stale")),
	)

	out, err := NewNative().Apply(src, target)
	require.NoError(t, err)

	var keys []string
	err = walkPNG(bytes.NewReader(out), func(c Chunk) error {
		if c.Type == "tEXt" {
			keys = append(keys, extractPNGTextKey(c.Data))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Author"}, keys)

	_, err = png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
}

func TestApplyPNGXMPToJPEG(t *testing.T) {
	xmp := []byte("<x:xmpmeta/>")
	src := insertPNGChunks(t, encodePNG(t, 4, 4),
		buildPNGChunk("iTXt", compressedITXt(t, xmpKeyword, xmp)),
		buildPNGChunk("tEXt", []byte("Author\x00Jane")),
	)

	out, err := NewNative().Apply(src, encodeJPEG(t, 4, 4))
	require.NoError(t, err)

	bundle, err := Extract(out)
	require.NoError(t, err)
	assert.Equal(t, xmp, bundle.XMP)
	assert.Empty(t, bundle.Text)
}

func TestApplyErrors(t *testing.T) {
	plain := encodeJPEG(t, 4, 4)
	withExif := insertJPEGSegment(t, plain, 0xe1, append([]byte("Exif\x00\x00"), buildExifTIFF(t, 4, 4)...))

	_, err := NewNative().Apply(plain, encodeJPEG(t, 2, 2))
	assert.ErrorIs(t, err, ErrNoMetadata)

	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{color.Black, color.White}), nil))
	_, err = NewNative().Apply(buf.Bytes(), encodeJPEG(t, 2, 2))
	assert.ErrorIs(t, err, ErrNoMetadata)

	_, err = NewNative().Apply(withExif, buf.Bytes())
	assert.ErrorIs(t, err, ErrNoContainer)

	_, err = NewNative().Apply([]byte{0xff, 0xd8, 0xff, 0xe1, 0x00}, plain)
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestNativeCopyOnDisk(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "dst.jpg")
	require.NoError(t, os.WriteFile(src, insertJPEGSegment(t, encodeJPEG(t, 8, 8), 0xe1, append([]byte("Exif\x00\x00"), buildExifTIFF(t, 8, 8)...)), 0o644))
	require.NoError(t, os.WriteFile(dst, encodeJPEG(t, 4, 4), 0o600))

	require.NoError(t, NewNative().Copy(context.Background(), src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	bundle, err := Extract(data)
	require.NoError(t, err)
	assert.Equal(t, "TestCam", flatTags(t, bundle.Exif)["Model"])

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestDescribe(t *testing.T) {
	src := insertJPEGSegment(t, encodeJPEG(t, 8, 8), 0xe1, append([]byte("Exif\x00\x00"), buildExifTIFF(t, 8, 8)...))

	d, err := Describe(src)
	require.NoError(t, err)
	assert.Equal(t, "TestCam", d.Model)
	assert.Equal(t, "2024:01:02 03:04:05", d.Timestamp)
	assert.False(t, d.HasGPS)
	assert.Positive(t, d.ExifTags)
}

func TestNewSelectsBackend(t *testing.T) {
	p, err := New(&config.Config{NoMetadata: true, MetadataBackend: config.BackendExiftool})
	require.NoError(t, err)
	assert.IsType(t, Noop{}, p)

	p, err = New(&config.Config{MetadataBackend: config.BackendNative})
	require.NoError(t, err)
	assert.IsType(t, &Native{}, p)

	_, err = New(&config.Config{MetadataBackend: config.BackendExiftool, ExiftoolPath: "blip-no-such-exiftool"})
	assert.ErrorIs(t, err, ErrToolNotFound)

	_, err = New(&config.Config{MetadataBackend: "sidecar"})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestExiftoolArgsExcludeDimensions(t *testing.T) {
	args := exiftoolArgs("in.jpg", "out.jpg")
	assert.Equal(t, "out.jpg", args[len(args)-1])
	assert.Contains(t, args, "in.jpg")
	for _, tag := range []string{"--ImageWidth", "--ImageHeight", "--ExifImageWidth", "--ExifImageHeight"} {
		assert.Contains(t, args, tag)
	}
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(w, h), &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(w, h)))
	return buf.Bytes()
}

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 20), G: uint8(y * 20), B: 0x80, A: 0xff})
		}
	}
	return img
}

// insertJPEGSegment places a segment directly after SOI.
func insertJPEGSegment(t *testing.T, data []byte, marker byte, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(data[:2])
	buf.Write([]byte{0xff, marker})
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(payload)+2))
	buf.Write(payload)
	buf.Write(data[2:])
	return buf.Bytes()
}

// insertPNGChunks places chunks directly before IEND.
func insertPNGChunks(t *testing.T, data []byte, chunks ...[]byte) []byte {
	t.Helper()
	require.Equal(t, "IEND", string(data[len(data)-8:len(data)-4]))

	insertAt := len(data) - 12
	out := append([]byte{}, data[:insertAt]...)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return append(out, data[insertAt:]...)
}

func buildPNGChunk(chunkType string, data []byte) []byte {
	chunkTypeBytes := []byte(chunkType)
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(data)))
	crcBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(crcBuf, crc32.ChecksumIEEE(append(chunkTypeBytes, data...)))

	chunk := make([]byte, 0, 12+len(data))
	chunk = append(chunk, lenBuf...)
	chunk = append(chunk, chunkTypeBytes...)
	chunk = append(chunk, data...)
	return append(chunk, crcBuf...)
}

func compressedITXt(t *testing.T, keyword string, text []byte) []byte {
	t.Helper()
	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	_, err := zw.Write(text)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	data := append([]byte(keyword), 0, 1, 0)
	data = append(data, "en\x00\x00"...)
	return append(data, z.Bytes()...)
}

// buildExifTIFF encodes an IFD0 with camera tags and stale dimensions plus an
// Exif sub-IFD.
func buildExifTIFF(t *testing.T, w, h int) []byte {
	t.Helper()

	im, err := exifcommon.NewIfdMappingWithStandard()
	require.NoError(t, err)
	ti := exif.NewTagIndex()

	rootIb := exif.NewIfdBuilder(im, ti, exifcommon.IfdStandardIfdIdentity, exifcommon.EncodeDefaultByteOrder)
	require.NoError(t, rootIb.SetStandardWithName("ImageWidth", []uint32{uint32(w)}))
	require.NoError(t, rootIb.SetStandardWithName("ImageLength", []uint32{uint32(h)}))
	require.NoError(t, rootIb.SetStandardWithName("Model", "TestCam"))
	require.NoError(t, rootIb.SetStandardWithName("DateTime", "2024:01:02 03:04:05"))

	exifIb, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD/Exif")
	require.NoError(t, err)
	require.NoError(t, exifIb.SetStandardWithName("PixelXDimension", []uint32{uint32(w)}))
	require.NoError(t, exifIb.SetStandardWithName("PixelYDimension", []uint32{uint32(h)}))

	raw, err := exif.NewIfdByteEncoder().EncodeToExif(rootIb)
	require.NoError(t, err)
	return raw
}

func flatTags(t *testing.T, raw []byte) map[string]string {
	t.Helper()
	tags, _, err := exif.GetFlatExifData(raw, nil)
	require.NoError(t, err)

	out := make(map[string]string, len(tags))
	for _, tag := range tags {
		out[tag.TagName] = tag.FormattedFirst
	}
	return out
}
