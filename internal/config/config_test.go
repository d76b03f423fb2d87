package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAspectRatio(t *testing.T) {
	tests := []struct {
		in   string
		want *big.Rat
	}{
		{"5/7", big.NewRat(5, 7)},
		{"16:9", big.NewRat(16, 9)},
		{"1.5", big.NewRat(3, 2)},
		{" 10/20 ", big.NewRat(1, 2)},
		{"2", big.NewRat(2, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAspectRatio(tt.in)
			require.NoError(t, err)
			assert.Zero(t, got.Cmp(tt.want), "got %s want %s", got, tt.want)
		})
	}
}

func TestParseAspectRatioErrors(t *testing.T) {
	for _, in := range []string{"", "abc", "0/5", "-1/2", "5/0"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseAspectRatio(in)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Zero(t, cfg.AspectRatio.Cmp(big.NewRat(5, 7)))
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, []string{"gif", "jpg", "jpeg", "png"}, cfg.Extensions)
	assert.Equal(t, OriginalExtension, cfg.EncodeExtension)
	assert.Equal(t, 1500, cfg.MaxWidth)
	assert.Equal(t, 95, cfg.Quality)
	assert.Equal(t, BackendNative, cfg.MetadataBackend)
	assert.Equal(t, ProgressTUI, cfg.Progress)
	assert.Zero(t, cfg.MetadataTimeout)
	assert.GreaterOrEqual(t, cfg.Workers, 1)
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blip.yaml")
	body := []byte("aspect_ratio: \"4:3\"\nquality: 70\nencode_extension: .PNG\nmetadata_timeout: 30s\nbatch_size: 8\n")
	require.NoError(t, os.WriteFile(path, body, 0o644))

	t.Setenv("BLIP_BATCH_SIZE", "3")

	v, err := NewViper(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Zero(t, cfg.AspectRatio.Cmp(big.NewRat(4, 3)))
	assert.Equal(t, 70, cfg.Quality)
	assert.Equal(t, "png", cfg.EncodeExtension)
	assert.Equal(t, 30*time.Second, cfg.MetadataTimeout)
	assert.Equal(t, 3, cfg.BatchSize, "environment overrides file")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			AspectRatio:     big.NewRat(1, 1),
			BatchSize:       1,
			Extensions:      []string{"jpg"},
			EncodeExtension: "jpg",
			InputDir:        "in",
			OutputDir:       "out",
			MaxWidth:        10,
			Quality:         50,
			Workers:         1,
			MetadataBackend: BackendNative,
			Progress:        ProgressNone,
		}
	}
	require.NoError(t, base().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero batch", func(c *Config) { c.BatchSize = 0 }},
		{"quality high", func(c *Config) { c.Quality = 101 }},
		{"quality low", func(c *Config) { c.Quality = -1 }},
		{"zero width", func(c *Config) { c.MaxWidth = 0 }},
		{"no extensions", func(c *Config) { c.Extensions = nil }},
		{"backend", func(c *Config) { c.MetadataBackend = "rexiv" }},
		{"progress", func(c *Config) { c.Progress = "fancy" }},
		{"same dirs", func(c *Config) { c.OutputDir = "in/" }},
		{"workers", func(c *Config) { c.Workers = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
}

func TestSplitExtensions(t *testing.T) {
	assert.Equal(t, []string{"gif", "JPG", "png"}, SplitExtensions("gif| .JPG ||png"))
	assert.Empty(t, SplitExtensions(""))
}
