// Package report writes a machine-readable record of one batch run.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"blip/internal/config"
	"blip/internal/processor"
)

type Report struct {
	RunID    string    `yaml:"run_id"`
	Started  time.Time `yaml:"started"`
	Finished time.Time `yaml:"finished"`
	Settings Settings  `yaml:"settings"`
	Summary  Summary   `yaml:"summary"`
	Files    []File    `yaml:"files"`
}

type Settings struct {
	AspectRatio     string `yaml:"aspect_ratio"`
	BatchSize       int    `yaml:"batch_size"`
	EncodeExtension string `yaml:"encode_extension"`
	Input           string `yaml:"input"`
	Output          string `yaml:"output"`
	MaxWidth        int    `yaml:"max_width"`
	Quality         int    `yaml:"quality"`
	Workers         int    `yaml:"workers"`
	NoCrop          bool   `yaml:"no_crop"`
	NoResize        bool   `yaml:"no_resize"`
	NoMetadata      bool   `yaml:"no_metadata"`
	MetadataBackend string `yaml:"metadata_backend"`
}

type Summary struct {
	Total          int   `yaml:"total"`
	Chunks         int   `yaml:"chunks"`
	Processed      int   `yaml:"processed"`
	Failed         int   `yaml:"failed"`
	MetadataCopied int   `yaml:"metadata_copied"`
	MetadataFailed int   `yaml:"metadata_failed"`
	Bytes          int64 `yaml:"bytes_written"`
}

type File struct {
	Source   string `yaml:"source"`
	Output   string `yaml:"output,omitempty"`
	State    string `yaml:"state"`
	Width    int    `yaml:"width,omitempty"`
	Height   int    `yaml:"height,omitempty"`
	Bytes    int64  `yaml:"bytes,omitempty"`
	Error    string `yaml:"error,omitempty"`
	Kind     string `yaml:"kind,omitempty"`
	Metadata string `yaml:"metadata_error,omitempty"`
}

// NewRunID returns the identifier stamped on logs and the report.
func NewRunID() string {
	return uuid.NewString()
}

// Build assembles a report from a finished run.
func Build(runID string, cfg *config.Config, started, finished time.Time, summary processor.Summary, results []processor.Result) Report {
	r := Report{
		RunID:    runID,
		Started:  started.UTC(),
		Finished: finished.UTC(),
		Settings: Settings{
			AspectRatio:     cfg.AspectRatioRaw,
			BatchSize:       cfg.BatchSize,
			EncodeExtension: cfg.EncodeExtension,
			Input:           cfg.InputDir,
			Output:          cfg.OutputDir,
			MaxWidth:        cfg.MaxWidth,
			Quality:         cfg.Quality,
			Workers:         cfg.Workers,
			NoCrop:          cfg.NoCrop,
			NoResize:        cfg.NoResize,
			NoMetadata:      cfg.NoMetadata,
			MetadataBackend: cfg.MetadataBackend,
		},
		Summary: Summary{
			Total:          summary.Total,
			Chunks:         summary.Chunks,
			Processed:      summary.Processed,
			Failed:         summary.Failed,
			MetadataCopied: summary.MetadataCopied,
			MetadataFailed: summary.MetadataFailed,
			Bytes:          summary.Bytes,
		},
	}

	for _, res := range results {
		f := File{
			Source: res.Path,
			Output: res.Output,
			State:  res.State.String(),
			Width:  res.Width,
			Height: res.Height,
			Bytes:  res.Bytes,
		}
		if res.Err != nil {
			f.Error = res.Err.Error()
			f.Kind = processor.Kind(res.Err)
		}
		if res.MetadataErr != nil {
			f.Metadata = res.MetadataErr.Error()
		}
		r.Files = append(r.Files, f)
	}
	return r
}

// Write marshals r as YAML to path.
func Write(path string, r Report) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
