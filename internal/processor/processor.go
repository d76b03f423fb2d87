package processor

import (
	"context"

	"golang.org/x/sync/errgroup"

	"blip/internal/config"
)

// Transformer runs one file end to end. *Pipeline is the production
// implementation.
type Transformer interface {
	TransformFile(ctx context.Context, path string) Result
}

// Run transforms files in consecutive chunks of cfg.BatchSize. Within a chunk
// at most cfg.Workers files are in flight; a chunk finishes completely before
// the next starts, which caps how many decoded images are held at once.
//
// Per-file failures are recorded in the returned results and never stop the
// run. Cancelling ctx stops scheduling at the next chunk boundary; files
// already in flight run to completion. Run then returns the results gathered
// so far together with ctx.Err().
func Run(ctx context.Context, files []string, cfg *config.Config, t Transformer, updates chan<- ProgressUpdate) (Summary, []Result, error) {
	chunks := Chunks(files, cfg.BatchSize)
	summary := Summary{Total: len(files), Chunks: len(chunks)}
	results := make([]Result, len(files))
	progress := NewProgress(len(files))

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	fileCtx := context.WithoutCancel(ctx)
	done := 0
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return summarize(summary, results[:done]), results[:done], err
		}

		var g errgroup.Group
		g.SetLimit(workers)
		for i, path := range chunk {
			idx := done + i
			g.Go(func() error {
				res := t.TransformFile(fileCtx, path)
				results[idx] = res
				fraction := progress.Add()
				if updates != nil {
					updates <- ProgressUpdate{
						Fraction: fraction,
						File:     path,
						State:    res.State,
						Err:      res.Err,
					}
				}
				return nil
			})
		}
		_ = g.Wait()
		done += len(chunk)
	}

	progress.Complete()
	if updates != nil {
		updates <- ProgressUpdate{Fraction: progress.Fraction(), Done: true}
	}

	return summarize(summary, results), results, nil
}

func summarize(s Summary, results []Result) Summary {
	for _, r := range results {
		s.Add(r)
	}
	return s
}
