package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// LogWriter queues log lines for a Model created WithLogs(w.Lines()). Writes
// never wait on the program: once Close is called, or while the queue is full
// and the view has stopped, lines go to the fallback writer instead.
type LogWriter struct {
	mu       sync.RWMutex
	lines    chan string
	done     chan struct{}
	once     sync.Once
	closed   bool
	fallback io.Writer
}

func NewLogWriter(fallback io.Writer, buffer int) *LogWriter {
	return &LogWriter{
		lines:    make(chan string, buffer),
		done:     make(chan struct{}),
		fallback: fallback,
	}
}

// Lines is the queue the Model reads from.
func (w *LogWriter) Lines() <-chan string {
	return w.lines
}

func (w *LogWriter) Write(p []byte) (int, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	select {
	case <-w.done:
		return w.fallback.Write(p)
	default:
	}

	select {
	case w.lines <- strings.TrimRight(string(p), "\n"):
		return len(p), nil
	case <-w.done:
		return w.fallback.Write(p)
	}
}

// Close releases blocked writers, flushes queued lines to the fallback and
// routes every later write there. Call it once the program has returned.
func (w *LogWriter) Close() error {
	w.once.Do(func() { close(w.done) })

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	close(w.lines)

	var err error
	for line := range w.lines {
		if _, werr := fmt.Fprintln(w.fallback, line); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}
