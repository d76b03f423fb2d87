package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"blip/internal/codec"
	"blip/internal/config"
	"blip/internal/fsutil"
	"blip/internal/geometry"
	"blip/internal/metadata"
)

// Pipeline runs one image through decode, crop, resize, encode and metadata
// copy. It is safe for concurrent use.
type Pipeline struct {
	cfg    *config.Config
	target codec.Target
	meta   metadata.Propagator
	logger zerolog.Logger
}

// NewPipeline resolves the output target up front so an unknown label fails
// before any file is touched. A nil propagator disables metadata copy.
func NewPipeline(cfg *config.Config, meta metadata.Propagator, logger zerolog.Logger) (*Pipeline, error) {
	target, err := codec.ResolveTarget(cfg.EncodeExtension)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	if meta == nil || cfg.NoMetadata {
		meta = metadata.Noop{}
	}
	return &Pipeline{cfg: cfg, target: target, meta: meta, logger: logger}, nil
}

type encoded struct {
	data   []byte
	codec  codec.Codec
	ext    string
	width  int
	height int
}

// transform is shared by both modes so their bytes match exactly.
func (p *Pipeline) transform(name string, data []byte) (encoded, State, error) {
	c, ext, err := p.target.For(name)
	if err != nil {
		return encoded{}, StateDiscovered, classify(err)
	}

	if c == codec.GIF {
		if anim, ok := codec.DecodeAnimation(data); ok {
			var buf bytes.Buffer
			if err := codec.RemuxGIF(&buf, anim); err != nil {
				return encoded{}, StateDecoded, classify(err)
			}
			return encoded{
				data:   buf.Bytes(),
				codec:  c,
				ext:    ext,
				width:  anim.Config.Width,
				height: anim.Config.Height,
			}, StateEncoded, nil
		}
	}

	img, _, err := codec.Decode(data)
	if err != nil {
		return encoded{}, StateDiscovered, classify(err)
	}
	state := StateDecoded

	if !p.cfg.NoCrop {
		b := img.Bounds()
		current, err := geometry.Ratio(b.Dx(), b.Dy())
		if err != nil {
			return encoded{}, state, classify(err)
		}
		img, err = geometry.CropToAspect(img, current, p.cfg.AspectRatio)
		if err != nil {
			return encoded{}, state, classify(err)
		}
		state = StateCropped
	}

	if !p.cfg.NoResize {
		img, err = geometry.BoundedResize(img, p.cfg.MaxWidth)
		if err != nil {
			return encoded{}, state, classify(err)
		}
		state = StateResized
	}

	var buf bytes.Buffer
	if err := codec.Encode(&buf, img, c, p.cfg.Quality); err != nil {
		return encoded{}, state, classify(err)
	}

	return encoded{
		data:   buf.Bytes(),
		codec:  c,
		ext:    ext,
		width:  img.Bounds().Dx(),
		height: img.Bounds().Dy(),
	}, StateEncoded, nil
}

// TransformFile runs the on-disk mode for path. Failures are logged and
// reported in the result; they never escape as a panic or an error return.
func (p *Pipeline) TransformFile(ctx context.Context, path string) Result {
	res := Result{Path: path, State: StateDiscovered}
	log := p.logger.With().Str("file", filepath.Base(path)).Logger()

	data, err := os.ReadFile(path)
	if err != nil {
		return p.fail(log, res, StateDiscovered, fmt.Errorf("%w: %w", ErrIO, err))
	}

	enc, state, err := p.transform(path, data)
	if err != nil {
		return p.fail(log, res, state, err)
	}

	res.Output = filepath.Join(p.cfg.OutputDir, OutputName(filepath.Base(path), enc.ext))
	res.Codec = enc.codec
	res.Width, res.Height = enc.width, enc.height

	err = fsutil.WriteFileAtomic(res.Output, 0o644, func(w io.Writer) error {
		_, err := w.Write(enc.data)
		return err
	})
	if err != nil {
		return p.fail(log, res, state, fmt.Errorf("%w: %w", ErrIO, err))
	}
	res.State = StateEncoded
	res.Bytes = int64(len(enc.data))

	if _, ok := p.meta.(metadata.Noop); ok {
		res.State = StateSkipped
	} else if err := p.meta.Copy(ctx, path, res.Output); err != nil {
		res.MetadataErr = fmt.Errorf("%w: %w", ErrMetadataCopy, err)
		ev := log.Warn()
		if errors.Is(err, metadata.ErrNoMetadata) || errors.Is(err, metadata.ErrNoContainer) {
			ev = log.Debug()
		}
		ev.Str("output", res.Output).Str("kind", Kind(res.MetadataErr)).Err(err).Msg("metadata not carried")
	} else {
		res.State = StateMetadataCopied
	}

	if info, err := os.Stat(res.Output); err == nil {
		res.Bytes = info.Size()
	}

	log.Debug().
		Str("output", res.Output).
		Str("state", res.State.String()).
		Int("width", res.Width).
		Int("height", res.Height).
		Msg("transformed")
	return res
}

func (p *Pipeline) fail(log zerolog.Logger, res Result, at State, err error) Result {
	res.State = StateFailed
	res.Err = err
	log.Error().
		Str("state", at.String()).
		Str("kind", Kind(err)).
		Err(err).
		Msg("skipping file")
	return res
}

// TransformBytes runs the in-memory mode: same crop, resize and encode as
// TransformFile, without touching the output directory or copying metadata.
func (p *Pipeline) TransformBytes(name string, data []byte) (MemoryResult, error) {
	enc, _, err := p.transform(name, data)
	if err != nil {
		return MemoryResult{}, err
	}
	return MemoryResult{
		Name:   OutputName(filepath.Base(name), enc.ext),
		Data:   enc.data,
		Codec:  enc.codec,
		Width:  enc.width,
		Height: enc.height,
	}, nil
}

// LoadImage decodes an in-memory image for preview consumers.
func LoadImage(data []byte) (image.Image, error) {
	img, _, err := codec.Decode(data)
	if err != nil {
		return nil, classify(err)
	}
	return img, nil
}

// OutputName replaces only the trailing extension of base with ext.
func OutputName(base, ext string) string {
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}
	return stem + "." + ext
}
