package metadata

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	markerSOI  = 0xd8
	markerEOI  = 0xd9
	markerSOS  = 0xda
	markerAPP1 = 0xe1
	markerAPPD = 0xed

	maxSegmentPayload = 0xffff - 2
)

var (
	jpegExifHeader = []byte("Exif\x00\x00")
	jpegXmpHeader  = []byte("http://ns.adobe.com/xap/1.0/\x00")
	jpegPhotoshop  = []byte("Photoshop 3.0\x00")
)

type jpegSegment struct {
	marker  byte
	payload []byte
}

// walkJPEG calls fn for every marker segment before the scan data starts.
func walkJPEG(r io.Reader, fn func(seg jpegSegment) error) error {
	br := bufio.NewReader(r)

	soi := make([]byte, 2)
	if _, err := io.ReadFull(br, soi); err != nil {
		return err
	}
	if soi[0] != 0xff || soi[1] != markerSOI {
		return fmt.Errorf("invalid JPEG SOI")
	}

	for {
		markerPrefix, err := br.ReadByte()
		if err != nil {
			return err
		}
		for markerPrefix != 0xff {
			markerPrefix, err = br.ReadByte()
			if err != nil {
				return err
			}
		}

		marker, err := br.ReadByte()
		if err != nil {
			return err
		}
		for marker == 0xff {
			marker, err = br.ReadByte()
			if err != nil {
				return err
			}
		}

		if marker == markerEOI || marker == markerSOS {
			return nil
		}
		if marker == 0x01 || (marker >= 0xd0 && marker <= 0xd7) {
			continue
		}

		lenBuf := make([]byte, 2)
		if _, err := io.ReadFull(br, lenBuf); err != nil {
			return err
		}
		segLen := int(binary.BigEndian.Uint16(lenBuf))
		if segLen < 2 {
			return fmt.Errorf("invalid JPEG segment length")
		}
		payload := make([]byte, segLen-2)
		if _, err := io.ReadFull(br, payload); err != nil {
			return err
		}
		if err := fn(jpegSegment{marker: marker, payload: payload}); err != nil {
			return err
		}
	}
}

// readJPEGBundle lifts EXIF, XMP and IPTC segments out of a JPEG.
func readJPEGBundle(data []byte) (Bundle, error) {
	var b Bundle
	err := walkJPEG(bytes.NewReader(data), func(seg jpegSegment) error {
		switch {
		case seg.marker == markerAPP1 && bytes.HasPrefix(seg.payload, jpegExifHeader) && b.Exif == nil:
			b.Exif = seg.payload[len(jpegExifHeader):]
		case seg.marker == markerAPP1 && bytes.HasPrefix(seg.payload, jpegXmpHeader) && b.XMP == nil:
			b.XMP = seg.payload[len(jpegXmpHeader):]
		case seg.marker == markerAPPD && bytes.HasPrefix(seg.payload, jpegPhotoshop) && b.IPTC == nil:
			b.IPTC = seg.payload[len(jpegPhotoshop):]
		}
		return nil
	})
	if err != nil {
		return Bundle{}, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return b, nil
}

// isMetadataSegment reports whether a target segment would be replaced by a
// bundle. ICC profiles describe the pixels and are kept.
func isMetadataSegment(marker byte, payload []byte) bool {
	switch marker {
	case markerAPP1:
		return bytes.HasPrefix(payload, jpegExifHeader) || bytes.HasPrefix(payload, jpegXmpHeader)
	case markerAPPD:
		return bytes.HasPrefix(payload, jpegPhotoshop)
	}
	return false
}

// spliceJPEG rewrites target with b's segments inserted right after SOI and
// any existing metadata segments removed.
func spliceJPEG(target []byte, b Bundle) ([]byte, error) {
	if len(target) < 4 || target[0] != 0xff || target[1] != markerSOI {
		return nil, fmt.Errorf("invalid JPEG SOI")
	}

	var out bytes.Buffer
	out.Grow(len(target) + len(b.Exif) + len(b.XMP) + len(b.IPTC) + 64)
	out.Write(target[:2])

	if len(b.Exif) > 0 {
		if err := writeJPEGSegment(&out, markerAPP1, jpegExifHeader, b.Exif); err != nil {
			return nil, err
		}
	}
	if len(b.XMP) > 0 {
		if err := writeJPEGSegment(&out, markerAPP1, jpegXmpHeader, b.XMP); err != nil {
			return nil, err
		}
	}
	if len(b.IPTC) > 0 {
		if err := writeJPEGSegment(&out, markerAPPD, jpegPhotoshop, b.IPTC); err != nil {
			return nil, err
		}
	}

	pos := 2
	for pos+4 <= len(target) {
		if target[pos] != 0xff {
			return nil, fmt.Errorf("invalid JPEG marker at offset %d", pos)
		}
		marker := target[pos+1]
		if marker == markerSOS || marker == markerEOI {
			break
		}
		if marker == 0xff {
			pos++
			continue
		}
		if marker == 0x01 || (marker >= 0xd0 && marker <= 0xd7) {
			out.Write(target[pos : pos+2])
			pos += 2
			continue
		}
		segLen := int(binary.BigEndian.Uint16(target[pos+2 : pos+4]))
		end := pos + 2 + segLen
		if segLen < 2 || end > len(target) {
			return nil, fmt.Errorf("invalid JPEG segment length")
		}
		if !isMetadataSegment(marker, target[pos+4:end]) {
			out.Write(target[pos:end])
		}
		pos = end
	}
	out.Write(target[pos:])

	return out.Bytes(), nil
}

func writeJPEGSegment(w *bytes.Buffer, marker byte, header, body []byte) error {
	n := len(header) + len(body)
	if n > maxSegmentPayload {
		return fmt.Errorf("metadata segment of %d bytes exceeds JPEG limit", n)
	}
	w.Write([]byte{0xff, marker})
	_ = binary.Write(w, binary.BigEndian, uint16(n+2))
	w.Write(header)
	w.Write(body)
	return nil
}
