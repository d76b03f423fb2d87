package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"blip/internal/metadata"
	"blip/internal/processor"
	"blip/internal/tui"
)

var previewWidth int

var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Show what transform would produce for one image, without writing anything",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		pipeline, err := processor.NewPipeline(cfg, metadata.Noop{}, zerolog.Nop())
		if err != nil {
			return err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		src, err := processor.LoadImage(data)
		if err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		result, err := pipeline.TransformBytes(path, data)
		if err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		thumb, err := processor.LoadImage(result.Data)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, previewFileStyle.Render(filepath.Base(path)+" -> "+result.Name))
		fmt.Fprintln(out, tui.RenderPreview(thumb, previewWidth))

		rows := []tui.SummaryRow{
			{Label: "Source size", Value: fmt.Sprintf("%dx%d", src.Bounds().Dx(), src.Bounds().Dy())},
			{Label: "Output size", Value: fmt.Sprintf("%dx%d", result.Width, result.Height)},
			{Label: "Output format", Value: result.Codec.String()},
			{Label: "Encoded bytes", Value: strconv.Itoa(len(result.Data))},
		}
		rows = append(rows, metadataRows(data)...)
		fmt.Fprintln(out, tui.RenderSummary(rows))
		return nil
	},
}

// metadataRows describes the tags that transform would carry forward.
func metadataRows(data []byte) []tui.SummaryRow {
	d, err := metadata.Describe(data)
	if err != nil {
		value := "unreadable"
		if errors.Is(err, metadata.ErrNoMetadata) {
			value = "none"
		}
		return []tui.SummaryRow{{Label: "Metadata", Value: value, Tone: tui.ToneWarn}}
	}

	rows := []tui.SummaryRow{
		{Label: "EXIF tags", Value: strconv.Itoa(d.ExifTags)},
	}
	if d.Model != "" {
		rows = append(rows, tui.SummaryRow{Label: "Camera model", Value: d.Model})
	}
	if d.Timestamp != "" {
		rows = append(rows, tui.SummaryRow{Label: "Captured", Value: d.Timestamp})
	}
	if d.HasGPS {
		rows = append(rows, tui.SummaryRow{Label: "GPS", Value: "present", Tone: tui.ToneWarn})
	}
	rows = append(rows,
		tui.SummaryRow{Label: "XMP", Value: strconv.FormatBool(d.HasXMP)},
		tui.SummaryRow{Label: "IPTC", Value: strconv.FormatBool(d.HasIPTC)},
	)
	if len(d.TextKeys) > 0 {
		rows = append(rows, tui.SummaryRow{Label: "PNG text", Value: fmt.Sprint(d.TextKeys)})
	}
	return rows
}

var previewFileStyle = lipgloss.NewStyle().Bold(true).Foreground(tui.ColorAccent)

func init() {
	addTransformFlags(previewCmd.Flags())
	previewCmd.Flags().IntVar(&previewWidth, "width", 60, "preview width in terminal cells")

	rootCmd.AddCommand(previewCmd)
}
