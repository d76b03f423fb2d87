package metadata

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Exiftool delegates tag copying to an external exiftool binary.
type Exiftool struct {
	path    string
	timeout time.Duration
}

// NewExiftool resolves path on $PATH. A zero timeout leaves each call bounded
// only by ctx.
func NewExiftool(path string, timeout time.Duration) (*Exiftool, error) {
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrToolNotFound, err)
	}
	return &Exiftool{path: resolved, timeout: timeout}, nil
}

func (e *Exiftool) Copy(ctx context.Context, src, dst string) error {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, e.path, exiftoolArgs(src, dst)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrToolFailed, ctx.Err())
		}
		return fmt.Errorf("%w: %v, stderr: %s", ErrToolFailed, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func exiftoolArgs(src, dst string) []string {
	return []string{
		"-m",
		"-overwrite_original",
		"-TagsFromFile", src,
		"-all:all",
		"--ImageWidth",
		"--ImageHeight",
		"--ExifImageWidth",
		"--ExifImageHeight",
		dst,
	}
}
