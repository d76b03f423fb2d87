// Package config builds the immutable per-run configuration from flags,
// environment and an optional config file.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. BLIP_QUALITY.
const EnvPrefix = "BLIP"

// Keys shared by the cobra flags and the viper registry.
const (
	KeyAspectRatio     = "aspect_ratio"
	KeyBatchSize       = "batch_size"
	KeyExtensions      = "extensions"
	KeyEncodeExtension = "encode_extension"
	KeyInput           = "input"
	KeyOutput          = "output"
	KeyMaxWidth        = "max_width"
	KeyQuality         = "quality"
	KeyNoCrop          = "no_crop"
	KeyNoResize        = "no_resize"
	KeyNoMetadata      = "no_metadata"
	KeyWorkers         = "workers"
	KeyMetadataBackend = "metadata_backend"
	KeyMetadataTimeout = "metadata_timeout"
	KeyExiftoolPath    = "exiftool_path"
	KeyProgress        = "progress"
	KeyReport          = "report"
	KeyLogLevel        = "log_level"
	KeyLogFile         = "log_file"
)

// OriginalExtension keeps each file's own extension and codec.
const OriginalExtension = "original"

// Metadata backends.
const (
	BackendNative   = "native"
	BackendExiftool = "exiftool"
)

// Progress display modes.
const (
	ProgressTUI  = "tui"
	ProgressBar  = "bar"
	ProgressNone = "none"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is constructed once per run and is read-only afterwards.
type Config struct {
	AspectRatio     *big.Rat
	AspectRatioRaw  string
	BatchSize       int
	Extensions      []string
	EncodeExtension string
	InputDir        string
	OutputDir       string
	MaxWidth        int
	Quality         int
	NoCrop          bool
	NoResize        bool
	NoMetadata      bool
	Workers         int
	MetadataBackend string
	MetadataTimeout time.Duration
	ExiftoolPath    string
	Progress        string
	Report          string
	LogLevel        string
	LogFile         string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyAspectRatio, "5/7")
	v.SetDefault(KeyBatchSize, 100)
	v.SetDefault(KeyExtensions, "gif|jpg|jpeg|png")
	v.SetDefault(KeyEncodeExtension, OriginalExtension)
	v.SetDefault(KeyInput, "./input/")
	v.SetDefault(KeyOutput, "./output/")
	v.SetDefault(KeyMaxWidth, 1500)
	v.SetDefault(KeyQuality, 95)
	v.SetDefault(KeyNoCrop, false)
	v.SetDefault(KeyNoResize, false)
	v.SetDefault(KeyNoMetadata, false)
	v.SetDefault(KeyWorkers, runtime.NumCPU())
	v.SetDefault(KeyMetadataBackend, BackendNative)
	v.SetDefault(KeyMetadataTimeout, time.Duration(0))
	v.SetDefault(KeyExiftoolPath, "exiftool")
	v.SetDefault(KeyProgress, ProgressTUI)
	v.SetDefault(KeyReport, "")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "")
}

// NewViper returns a viper instance with defaults, env binding and, when
// configFile is empty, the blip.yaml search path.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
		return v, nil
	}

	v.SetConfigName("blip")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/blip")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Load reads every key from v and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	raw := strings.TrimSpace(v.GetString(KeyAspectRatio))
	ratio, err := ParseAspectRatio(raw)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AspectRatio:     ratio,
		AspectRatioRaw:  raw,
		BatchSize:       v.GetInt(KeyBatchSize),
		Extensions:      SplitExtensions(v.GetString(KeyExtensions)),
		EncodeExtension: strings.ToLower(strings.TrimPrefix(strings.TrimSpace(v.GetString(KeyEncodeExtension)), ".")),
		InputDir:        v.GetString(KeyInput),
		OutputDir:       v.GetString(KeyOutput),
		MaxWidth:        v.GetInt(KeyMaxWidth),
		Quality:         v.GetInt(KeyQuality),
		NoCrop:          v.GetBool(KeyNoCrop),
		NoResize:        v.GetBool(KeyNoResize),
		NoMetadata:      v.GetBool(KeyNoMetadata),
		Workers:         v.GetInt(KeyWorkers),
		MetadataBackend: strings.ToLower(v.GetString(KeyMetadataBackend)),
		MetadataTimeout: v.GetDuration(KeyMetadataTimeout),
		ExiftoolPath:    v.GetString(KeyExiftoolPath),
		Progress:        strings.ToLower(v.GetString(KeyProgress)),
		Report:          v.GetString(KeyReport),
		LogLevel:        v.GetString(KeyLogLevel),
		LogFile:         v.GetString(KeyLogFile),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first configuration-level error.
func (c *Config) Validate() error {
	if c.AspectRatio == nil || c.AspectRatio.Sign() <= 0 {
		return fmt.Errorf("%w: aspect ratio must be positive", ErrInvalidConfig)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: batch size must be at least 1, got %d", ErrInvalidConfig, c.BatchSize)
	}
	if len(c.Extensions) == 0 {
		return fmt.Errorf("%w: no extensions to process", ErrInvalidConfig)
	}
	if c.EncodeExtension == "" {
		return fmt.Errorf("%w: encode extension is empty", ErrInvalidConfig)
	}
	if c.MaxWidth < 1 {
		return fmt.Errorf("%w: max width must be positive, got %d", ErrInvalidConfig, c.MaxWidth)
	}
	if c.Quality < 0 || c.Quality > 100 {
		return fmt.Errorf("%w: quality must be within [0,100], got %d", ErrInvalidConfig, c.Quality)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.MetadataTimeout < 0 {
		return fmt.Errorf("%w: metadata timeout must not be negative", ErrInvalidConfig)
	}
	switch c.MetadataBackend {
	case BackendNative, BackendExiftool:
	default:
		return fmt.Errorf("%w: unknown metadata backend %q", ErrInvalidConfig, c.MetadataBackend)
	}
	switch c.Progress {
	case ProgressTUI, ProgressBar, ProgressNone:
	default:
		return fmt.Errorf("%w: unknown progress mode %q", ErrInvalidConfig, c.Progress)
	}
	if c.InputDir != "" && c.OutputDir != "" && filepath.Clean(c.InputDir) == filepath.Clean(c.OutputDir) {
		return fmt.Errorf("%w: output directory must differ from input directory", ErrInvalidConfig)
	}
	return nil
}

// SplitExtensions parses a "gif|jpg|png" style list. Matching stays
// case-sensitive, so entries are kept as written.
func SplitExtensions(list string) []string {
	var out []string
	for _, ext := range strings.Split(list, "|") {
		ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
		if ext != "" {
			out = append(out, ext)
		}
	}
	return out
}

// ParseAspectRatio accepts "W/H", "W:H" or a decimal such as "1.5".
func ParseAspectRatio(s string) (*big.Rat, error) {
	s = strings.TrimSpace(strings.Replace(s, ":", "/", 1))
	if s == "" {
		return nil, fmt.Errorf("%w: aspect ratio is empty", ErrInvalidConfig)
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("%w: cannot parse aspect ratio %q", ErrInvalidConfig, s)
	}
	if r.Sign() <= 0 {
		return nil, fmt.Errorf("%w: aspect ratio %q must be positive", ErrInvalidConfig, s)
	}
	return r, nil
}
