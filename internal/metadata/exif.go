package metadata

import (
	"fmt"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
)

const (
	tagImageWidth  = 0x0100
	tagImageLength = 0x0101
)

// rewriteExifDimensions drops the IFD0 width and height tags from raw and
// sets the Exif pixel dimensions to the output's size. raw must start with
// the TIFF byte-order header.
func rewriteExifDimensions(raw []byte, width, height int) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: exif rewrite: %v", ErrUnreadable, r)
		}
	}()

	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return nil, err
	}
	ti := exif.NewTagIndex()

	_, index, err := exif.Collect(im, ti, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	rootIb := exif.NewIfdBuilderFromExistingChain(index.RootIfd)
	if _, err := rootIb.DeleteAll(tagImageWidth); err != nil {
		return nil, err
	}
	if _, err := rootIb.DeleteAll(tagImageLength); err != nil {
		return nil, err
	}

	if _, ok := index.Lookup["IFD/Exif"]; ok {
		exifIb, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD/Exif")
		if err != nil {
			return nil, err
		}
		if err := exifIb.SetStandardWithName("PixelXDimension", []uint32{uint32(width)}); err != nil {
			return nil, err
		}
		if err := exifIb.SetStandardWithName("PixelYDimension", []uint32{uint32(height)}); err != nil {
			return nil, err
		}
	}

	return exif.NewIfdByteEncoder().EncodeToExif(rootIb)
}
