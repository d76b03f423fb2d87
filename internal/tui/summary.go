package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type Tone int

const (
	ToneNormal Tone = iota
	ToneWarn
	ToneFailure
)

type SummaryRow struct {
	Label string
	Value string
	Tone  Tone
}

// RenderSummary draws rows as a two-column table. It is used for both the
// settings banner and the end-of-run summary.
func RenderSummary(rows []SummaryRow) string {
	labelWidth := 0
	valueWidth := 0
	for _, row := range rows {
		labelWidth = max(labelWidth, lipgloss.Width(row.Label))
		valueWidth = max(valueWidth, lipgloss.Width(row.Value))
	}

	hline := dimStyle.Render(strings.Repeat("-", labelWidth+valueWidth+3))
	lines := []string{hline}

	for _, row := range rows {
		label := padRight(row.Label, labelWidth)
		value := padRight(row.Value, valueWidth)
		line := fmt.Sprintf("%s | %s", labelStyle.Render(label), styleFor(row.Tone).Render(value))
		lines = append(lines, line)
	}

	lines = append(lines, hline)
	return strings.Join(lines, "\n")
}

// Title renders a section heading in the accent colour.
func Title(s string) string {
	return titleStyle.Render(s)
}

func styleFor(t Tone) lipgloss.Style {
	switch t {
	case ToneWarn:
		return warnStyle
	case ToneFailure:
		return failureStyle
	default:
		return valueStyle
	}
}

func padRight(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}
