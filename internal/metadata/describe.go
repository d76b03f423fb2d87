package metadata

import (
	"errors"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
)

// Description summarises the tags a file would carry forward.
type Description struct {
	ExifTags  int
	Model     string
	Timestamp string
	HasGPS    bool
	HasXMP    bool
	HasIPTC   bool
	TextKeys  []string
}

// Describe extracts the bundle from data and summarises it.
func Describe(data []byte) (Description, error) {
	bundle, err := Extract(data)
	if err != nil {
		return Description{}, err
	}

	d := Description{
		HasXMP:  len(bundle.XMP) > 0,
		HasIPTC: len(bundle.IPTC) > 0,
	}
	for _, c := range bundle.Text {
		if key := extractPNGTextKey(c.Data); key != "" {
			d.TextKeys = append(d.TextKeys, key)
		}
	}

	if len(bundle.Exif) == 0 {
		return d, nil
	}

	tags, _, err := exif.GetFlatExifData(bundle.Exif, nil)
	if err != nil {
		if errors.Is(err, exif.ErrNoExif) {
			return d, nil
		}
		return d, err
	}

	for _, tag := range tags {
		d.ExifTags++
		name := tag.TagName

		if strings.HasPrefix(name, "GPS") || strings.Contains(tag.IfdPath, "GPS") {
			d.HasGPS = true
		}
		switch name {
		case "Model":
			d.Model = strings.TrimSpace(tag.FormattedFirst)
		case "DateTimeOriginal":
			d.Timestamp = strings.TrimSpace(tag.FormattedFirst)
		case "DateTime":
			if d.Timestamp == "" {
				d.Timestamp = strings.TrimSpace(tag.FormattedFirst)
			}
		}
	}

	return d, nil
}
