package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"blip/internal/config"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "blip",
	Short: "blip - batch crop, resize and re-encode images",
	Long: "blip normalises a directory of images to one aspect ratio and a maximum width, " +
		"re-encodes them, and carries their EXIF, IPTC and XMP tags across.",
	SilenceUsage: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default ./blip.yaml or $HOME/.config/blip/blip.yaml)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-file", "", "also write JSON logs to this file")
}

// loadConfig layers flags over env, config file and defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v, err := config.NewViper(configFile)
	if err != nil {
		return nil, err
	}
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}
	return config.Load(v)
}

// bindFlags registers every flag under its config key, "max-width" becoming
// "max_width". Only flags set on the command line override other sources.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" || bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
	return bindErr
}

// addTransformFlags declares the flags shared by transform and preview.
func addTransformFlags(fs *pflag.FlagSet) {
	fs.StringP("aspect-ratio", "a", "5/7", "target aspect ratio as W/H, W:H or a decimal")
	fs.StringP("encode-extension", "x", config.OriginalExtension, `output format label, or "original" to keep each file's own`)
	fs.IntP("max-width", "w", 1500, "maximum output width in pixels")
	fs.IntP("quality", "q", 95, "JPEG quality, also selects the PNG compression tier")
	fs.Bool("no-crop", false, "skip the aspect-ratio crop")
	fs.Bool("no-resize", false, "skip the bounded resize")
}
