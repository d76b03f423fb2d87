package tui

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"blip/internal/processor"
)

// RunBar renders updates as a single-line progress bar on out until the
// channel is closed. It is the non-interactive alternative to Model.
func RunBar(out io.Writer, updates <-chan processor.ProgressUpdate, total int) {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("transforming"),
		progressbar.OptionSetWriter(out),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprint(out, "\n")
		}),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	for update := range updates {
		if update.Done {
			_ = bar.Finish()
			continue
		}
		_ = bar.Add(1)
	}
}
