package metadata

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

var pngSignature = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

const xmpKeyword = "XML:com.adobe.xmp"

// walkPNG calls fn for every chunk up to and including IEND.
func walkPNG(r io.Reader, fn func(c Chunk) error) error {
	br := bufio.NewReader(r)

	sig := make([]byte, 8)
	if _, err := io.ReadFull(br, sig); err != nil {
		return err
	}
	if !bytes.Equal(sig, pngSignature) {
		return errors.New("invalid PNG signature")
	}

	for {
		lenBuf := make([]byte, 4)
		if _, err := io.ReadFull(br, lenBuf); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		length := binary.BigEndian.Uint32(lenBuf)

		typeBuf := make([]byte, 4)
		if _, err := io.ReadFull(br, typeBuf); err != nil {
			return err
		}
		data := make([]byte, length)
		if _, err := io.ReadFull(br, data); err != nil {
			return err
		}
		if _, err := io.CopyN(io.Discard, br, 4); err != nil {
			return err
		}

		chunk := Chunk{Type: string(typeBuf), Data: data}
		if err := fn(chunk); err != nil {
			return err
		}
		if chunk.Type == "IEND" {
			return nil
		}
	}
}

// readPNGBundle lifts eXIf, XMP and textual chunks out of a PNG.
func readPNGBundle(data []byte) (Bundle, error) {
	var b Bundle
	err := walkPNG(bytes.NewReader(data), func(c Chunk) error {
		switch c.Type {
		case "eXIf":
			if b.Exif == nil {
				b.Exif = bytes.TrimPrefix(c.Data, jpegExifHeader)
			}
		case "iTXt":
			if extractPNGTextKey(c.Data) == xmpKeyword && b.XMP == nil {
				packet, err := itxtText(c.Data)
				if err != nil {
					return err
				}
				b.XMP = packet
				return nil
			}
			b.Text = append(b.Text, c)
		case "tEXt", "zTXt":
			b.Text = append(b.Text, c)
		}
		return nil
	})
	if err != nil {
		return Bundle{}, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return b, nil
}

func extractPNGTextKey(data []byte) string {
	idx := bytes.IndexByte(data, 0)
	if idx <= 0 {
		return ""
	}
	return string(data[:idx])
}

var errTruncatedITXt = errors.New("truncated iTXt chunk")

// itxtText returns the text field of an iTXt chunk, inflating it if needed.
// Layout: keyword 0 flag method language 0 translated 0 text.
func itxtText(data []byte) ([]byte, error) {
	idx := bytes.IndexByte(data, 0)
	if idx < 0 || len(data) < idx+3 {
		return nil, errTruncatedITXt
	}
	compressed := data[idx+1] == 1
	rest := data[idx+3:]

	for i := 0; i < 2; i++ {
		idx = bytes.IndexByte(rest, 0)
		if idx < 0 {
			return nil, errTruncatedITXt
		}
		rest = rest[idx+1:]
	}
	if !compressed {
		return rest, nil
	}

	zr, err := zlib.NewReader(bytes.NewReader(rest))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func xmpChunk(packet []byte) Chunk {
	data := make([]byte, 0, len(xmpKeyword)+5+len(packet))
	data = append(data, xmpKeyword...)
	data = append(data, 0, 0, 0, 0, 0)
	data = append(data, packet...)
	return Chunk{Type: "iTXt", Data: data}
}

func isMetadataChunk(name string) bool {
	switch name {
	case "tEXt", "zTXt", "iTXt", "eXIf":
		return true
	default:
		return false
	}
}

// splicePNG rewrites target with b's chunks inserted before the first IDAT
// and any existing metadata chunks removed. IPTC has no PNG home and is dropped.
func splicePNG(target []byte, b Bundle) ([]byte, error) {
	var insert []Chunk
	if len(b.Exif) > 0 {
		insert = append(insert, Chunk{Type: "eXIf", Data: b.Exif})
	}
	if len(b.XMP) > 0 {
		insert = append(insert, xmpChunk(b.XMP))
	}
	insert = append(insert, b.Text...)

	var out bytes.Buffer
	out.Grow(len(target) + 1024)
	out.Write(pngSignature)

	inserted := false
	err := walkPNG(bytes.NewReader(target), func(c Chunk) error {
		if isMetadataChunk(c.Type) {
			return nil
		}
		if !inserted && (c.Type == "IDAT" || c.Type == "IEND") {
			for _, m := range insert {
				writePNGChunk(&out, m)
			}
			inserted = true
		}
		writePNGChunk(&out, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func writePNGChunk(w *bytes.Buffer, c Chunk) {
	_ = binary.Write(w, binary.BigEndian, uint32(len(c.Data)))
	crc := crc32.NewIEEE()
	_, _ = crc.Write([]byte(c.Type))
	_, _ = crc.Write(c.Data)
	w.WriteString(c.Type)
	w.Write(c.Data)
	_ = binary.Write(w, binary.BigEndian, crc.Sum32())
}
