package tui

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/disintegration/imaging"
)

const halfBlock = "▀"

// RenderPreview draws img as terminal half blocks, two pixel rows per text
// line, at most width cells wide. Images are never enlarged.
func RenderPreview(img image.Image, width int) string {
	b := img.Bounds()
	if b.Empty() || width < 1 {
		return ""
	}

	w := min(width, b.Dx())
	thumb := imaging.Resize(img, w, 0, imaging.Box)
	tb := thumb.Bounds()

	var lines []string
	for y := tb.Min.Y; y < tb.Max.Y; y += 2 {
		var line strings.Builder
		for x := tb.Min.X; x < tb.Max.X; x++ {
			style := lipgloss.NewStyle().Foreground(hex(thumb.At(x, y)))
			if y+1 < tb.Max.Y {
				style = style.Background(hex(thumb.At(x, y+1)))
			}
			line.WriteString(style.Render(halfBlock))
		}
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

func hex(c color.Color) lipgloss.Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", n.R, n.G, n.B))
}
