package processor

import "blip/internal/codec"

// State is the position of one file in its transform lifecycle.
type State int

const (
	StateDiscovered State = iota
	StateDecoded
	StateCropped
	StateResized
	StateEncoded
	StateMetadataCopied
	StateSkipped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateDecoded:
		return "decoded"
	case StateCropped:
		return "cropped"
	case StateResized:
		return "resized"
	case StateEncoded:
		return "encoded"
	case StateMetadataCopied:
		return "metadata_copied"
	case StateSkipped:
		return "skipped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of one on-disk transform.
type Result struct {
	Path   string
	Output string
	State  State
	Codec  codec.Codec
	Width  int
	Height int
	Bytes  int64
	// Err is set when State is StateFailed.
	Err error
	// MetadataErr is set when the output was written but tags were not carried.
	MetadataErr error
}

// Produced reports whether an output file was written.
func (r Result) Produced() bool {
	return r.State >= StateEncoded && r.State != StateFailed
}

// MemoryResult is the outcome of an in-memory transform.
type MemoryResult struct {
	Name   string
	Data   []byte
	Codec  codec.Codec
	Width  int
	Height int
}

type Summary struct {
	Total          int
	Chunks         int
	Processed      int
	Failed         int
	MetadataCopied int
	MetadataFailed int
	Bytes          int64
}

// Add folds one result into the summary.
func (s *Summary) Add(r Result) {
	if !r.Produced() {
		s.Failed++
		return
	}
	s.Processed++
	s.Bytes += r.Bytes
	switch {
	case r.State == StateMetadataCopied:
		s.MetadataCopied++
	case r.MetadataErr != nil:
		s.MetadataFailed++
	}
}

// ProgressUpdate is sent once per finished file and once when the run ends.
// Fractions from concurrent workers may arrive out of order; consumers keep
// the largest seen.
type ProgressUpdate struct {
	Fraction float64
	File     string
	State    State
	Err      error
	Done     bool
}
