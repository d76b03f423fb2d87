package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"blip/internal/config"
	"blip/internal/logging"
	"blip/internal/metadata"
	"blip/internal/processor"
	"blip/internal/report"
	"blip/internal/tui"
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Crop, resize and re-encode every matching image in the input directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		errOut := cmd.ErrOrStderr()
		sink := logging.NewSwitchWriter(errOut)
		logger, closer, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, Output: sink})
		if err != nil {
			return err
		}
		defer closer.Close()

		runID := report.NewRunID()
		logger = logger.With().Str("run", runID).Logger()

		propagator, err := metadata.New(cfg)
		if err != nil {
			return err
		}
		pipeline, err := processor.NewPipeline(cfg, propagator, logger)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, tui.Title("Settings"))
		fmt.Fprintln(out, tui.RenderSummary(settingsRows(cfg)))

		files, err := processor.Discover(cfg.InputDir, cfg.Extensions)
		if err != nil {
			return fmt.Errorf("list input directory: %w", err)
		}
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}

		chunks := len(processor.Chunks(files, cfg.BatchSize))
		fmt.Fprintf(out, "Processing %d files in %d chunks.\n", len(files), chunks)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		started := time.Now()
		updates := make(chan processor.ProgressUpdate, 64)
		term := detectTerminal(cmd)
		mode := progressMode(cfg.Progress, term)
		if mode != cfg.Progress {
			logger.Debug().Str("requested", cfg.Progress).Str("using", mode).Msg("no terminal for the live view")
		}
		uiDone := startProgress(mode, term.input, errOut, updates, len(files), cancel, sink, logger)

		summary, results, runErr := processor.Run(ctx, files, cfg, pipeline, updates)
		close(updates)
		<-uiDone
		finished := time.Now()

		fmt.Fprintln(out, tui.RenderSummary(summaryRows(summary, finished.Sub(started))))
		if abs, absErr := filepath.Abs(cfg.OutputDir); absErr == nil {
			fmt.Fprintf(out, "Output written to: %s\n", abs)
		}

		if cfg.Report != "" {
			r := report.Build(runID, cfg, started, finished, summary, results)
			if err := report.Write(cfg.Report, r); err != nil {
				logger.Error().Err(err).Str("report", cfg.Report).Msg("failed to write report")
			} else {
				logger.Info().Str("report", cfg.Report).Msg("report written")
			}
		}

		if runErr != nil && ctx.Err() != nil {
			return fmt.Errorf("interrupted after %d of %d files: %w", len(results), len(files), runErr)
		}
		return runErr
	},
}

// terminal describes the streams the live view would own.
type terminal struct {
	input  io.Reader
	inTTY  bool
	errTTY bool
}

var detectTerminal = func(cmd *cobra.Command) terminal {
	in := cmd.InOrStdin()
	return terminal{input: in, inTTY: isTerminal(in), errTTY: isTerminal(cmd.ErrOrStderr())}
}

func isTerminal(v any) bool {
	f, ok := v.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// progressMode downgrades the live view when it cannot own a terminal: a bar
// when only stderr is a terminal, nothing otherwise.
func progressMode(requested string, term terminal) string {
	if requested != config.ProgressTUI {
		return requested
	}
	switch {
	case term.inTTY && term.errTTY:
		return config.ProgressTUI
	case term.errTTY:
		return config.ProgressBar
	default:
		return config.ProgressNone
	}
}

// startProgress consumes updates in the selected display mode and closes the
// returned channel once updates is closed and drained. In tui mode ctrl+c
// calls interrupt; the run then stops at the next chunk boundary. Log lines
// are queued for the view while it runs and go straight to out afterwards.
func startProgress(mode string, in io.Reader, out io.Writer, updates <-chan processor.ProgressUpdate, total int, interrupt func(), sink *logging.SwitchWriter, logger zerolog.Logger) <-chan struct{} {
	done := make(chan struct{})

	switch mode {
	case config.ProgressTUI:
		logs := tui.NewLogWriter(out, 256)
		model := tui.NewModel(updates, total).WithInterrupt(interrupt).WithLogs(logs.Lines())
		program := tea.NewProgram(model,
			tea.WithInput(in),
			tea.WithOutput(out),
			tea.WithoutSignalHandler(),
		)

		prev := sink.Set(logs)
		go func() {
			defer close(done)
			_, err := program.Run()
			sink.Set(prev)
			_ = logs.Close()
			if err != nil {
				logger.Warn().Err(err).Msg("progress view stopped")
			}
			drain(updates)
		}()
	case config.ProgressBar:
		go func() {
			defer close(done)
			tui.RunBar(out, updates, total)
		}()
	default:
		go func() {
			defer close(done)
			drain(updates)
		}()
	}

	return done
}

func drain(updates <-chan processor.ProgressUpdate) {
	for range updates {
	}
}

func settingsRows(cfg *config.Config) []tui.SummaryRow {
	return []tui.SummaryRow{
		{Label: "aspect ratio", Value: cfg.AspectRatioRaw},
		{Label: "extensions to process", Value: fmt.Sprint(cfg.Extensions)},
		{Label: "batch size", Value: strconv.Itoa(cfg.BatchSize)},
		{Label: "workers", Value: strconv.Itoa(cfg.Workers)},
		{Label: "input directory", Value: cfg.InputDir},
		{Label: "output directory", Value: cfg.OutputDir},
		{Label: "output format", Value: cfg.EncodeExtension},
		{Label: "max image width", Value: strconv.Itoa(cfg.MaxWidth)},
		{Label: "quality", Value: strconv.Itoa(cfg.Quality)},
		{Label: "skip cropping", Value: strconv.FormatBool(cfg.NoCrop)},
		{Label: "skip resizing", Value: strconv.FormatBool(cfg.NoResize)},
		{Label: "skip metadata", Value: strconv.FormatBool(cfg.NoMetadata)},
		{Label: "metadata backend", Value: cfg.MetadataBackend},
	}
}

func summaryRows(s processor.Summary, elapsed time.Duration) []tui.SummaryRow {
	failedTone := tui.ToneNormal
	if s.Failed > 0 {
		failedTone = tui.ToneFailure
	}
	metaTone := tui.ToneNormal
	if s.MetadataFailed > 0 {
		metaTone = tui.ToneWarn
	}
	return []tui.SummaryRow{
		{Label: "Files found", Value: strconv.Itoa(s.Total)},
		{Label: "Files written", Value: strconv.Itoa(s.Processed)},
		{Label: "Files skipped on error", Value: strconv.Itoa(s.Failed), Tone: failedTone},
		{Label: "Metadata carried", Value: strconv.Itoa(s.MetadataCopied)},
		{Label: "Metadata not carried", Value: strconv.Itoa(s.MetadataFailed), Tone: metaTone},
		{Label: "Bytes written", Value: strconv.FormatInt(s.Bytes, 10)},
		{Label: "Elapsed", Value: elapsed.Round(time.Millisecond).String()},
	}
}

func init() {
	fs := transformCmd.Flags()
	addTransformFlags(fs)
	fs.IntP("batch-size", "b", 100, "files per chunk; one chunk finishes before the next starts")
	fs.StringP("extensions", "e", "gif|jpg|jpeg|png", "pipe-separated input extensions, matched case-sensitively")
	fs.StringP("input", "i", "./input/", "input directory")
	fs.StringP("output", "o", "./output/", "output directory")
	fs.Bool("no-metadata", false, "do not carry tags to the outputs")
	fs.Int("workers", 0, "parallel workers per chunk (default: number of CPUs)")
	fs.String("metadata-backend", config.BackendNative, "metadata backend: native or exiftool")
	fs.Duration("metadata-timeout", 0, "per-file timeout for the exiftool backend, 0 disables")
	fs.String("exiftool-path", "exiftool", "exiftool binary")
	fs.String("progress", config.ProgressTUI, "progress display: tui, bar or none")
	fs.String("report", "", "write a YAML run report to this path")

	rootCmd.AddCommand(transformCmd)
}
