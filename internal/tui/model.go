package tui

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"blip/internal/processor"
)

type Model struct {
	updates   <-chan processor.ProgressUpdate
	logs      <-chan string
	interrupt func()
	started   time.Time
	width     int
	total     int
	fraction  float64
	processed int
	failed    int
	lastFile  string
	quitting  bool
}

type doneMsg struct{}

type updateMsg processor.ProgressUpdate

type logMsg string

func NewModel(updates <-chan processor.ProgressUpdate, total int) Model {
	return Model{updates: updates, total: total, started: time.Now()}
}

// WithInterrupt sets the function called when the user presses ctrl+c. The
// view keeps draining updates until the run closes the channel.
func (m Model) WithInterrupt(fn func()) Model {
	m.interrupt = fn
	return m
}

// WithLogs prints each line received from logs above the live view.
func (m Model) WithLogs(logs <-chan string) Model {
	m.logs = logs
	return m
}

func (m Model) Init() tea.Cmd {
	if m.logs == nil {
		return listenForUpdates(m.updates)
	}
	return tea.Batch(listenForUpdates(m.updates), listenForLogs(m.logs))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		m.fraction = math.Max(m.fraction, msg.Fraction)
		if !msg.Done {
			if msg.State == processor.StateFailed {
				m.failed++
			} else {
				m.processed++
			}
			m.lastFile = filepath.Base(msg.File)
		}
		return m, listenForUpdates(m.updates)
	case logMsg:
		return m, tea.Sequence(tea.Println(string(msg)), listenForLogs(m.logs))
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && m.interrupt != nil {
			m.interrupt()
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	barWidth := 40
	if m.width > 0 {
		barWidth = int(math.Min(60, float64(m.width-10)))
		if barWidth < 20 {
			barWidth = 20
		}
	}

	elapsed := time.Since(m.started).Round(time.Millisecond)

	lines := []string{
		titleStyle.Render("blip"),
		labelStyle.Render(fmt.Sprintf("Files: %d/%d", m.processed+m.failed, m.total)) + dimStyle.Render(fmt.Sprintf("  failed:%d", m.failed)),
		dimStyle.Render(fmt.Sprintf("Last: %s", m.lastFile)),
		dimStyle.Render(fmt.Sprintf("Elapsed: %s", elapsed)),
		barStyle.Render(renderBar(barWidth, m.fraction)) + labelStyle.Render(fmt.Sprintf(" %3.0f%%", m.fraction*100)),
	}

	return strings.Join(lines, "\n")
}

// Fraction is the largest progress value seen so far.
func (m Model) Fraction() float64 {
	return m.fraction
}

func listenForUpdates(updates <-chan processor.ProgressUpdate) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return updateMsg(update)
	}
}

func listenForLogs(logs <-chan string) tea.Cmd {
	return func() tea.Msg {
		line, ok := <-logs
		if !ok {
			return nil
		}
		return logMsg(line)
	}
}

func renderBar(width int, ratio float64) string {
	filled := int(math.Round(ratio * float64(width)))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}
