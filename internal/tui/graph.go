package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderMultiLineGraph draws data right-aligned as block columns over a dashed
// grid, scaled so maxVal fills the full height.
func renderMultiLineGraph(data []float64, width, height int, maxVal float64, color lipgloss.Color) string {
	if width < 1 || height < 1 {
		return ""
	}
	if maxVal <= 0 {
		maxVal = 1
	}

	gridStyle := lipgloss.NewStyle().Foreground(ColorGray)
	barStyle := lipgloss.NewStyle().Foreground(color)

	rows := make([][]string, height)
	for i := range rows {
		rows[i] = make([]string, width)
		for j := range rows[i] {
			if i%2 == 0 {
				rows[i][j] = gridStyle.Render("╌")
			} else {
				rows[i][j] = " "
			}
		}
	}

	visible := data
	if len(data) > width {
		visible = data[len(data)-width:]
	}

	blocks := []string{" ", "▂", "▃", "▄", "▅", "▆", "▇", "█"}
	offset := width - len(visible)

	for x, val := range visible {
		pct := max(val, 0) / maxVal
		if pct > 1.0 {
			pct = 1.0
		}
		subBlocks := pct * float64(height) * 8.0

		for y := 0; y < height; y++ {
			rowValue := subBlocks - float64(y*8)
			if rowValue <= 0 {
				// keep the grid
				continue
			}
			char := "█"
			if rowValue < 8 {
				char = blocks[int(rowValue)]
			}
			rows[height-1-y][offset+x] = barStyle.Render(char)
		}
	}

	var s strings.Builder
	for i, row := range rows {
		s.WriteString(strings.Join(row, ""))
		if i < height-1 {
			s.WriteRune('\n')
		}
	}
	return s.String()
}

// graphScale rounds the peak up with headroom so axis labels stay readable.
func graphScale(data []float64) float64 {
	peak := 1.0
	for _, v := range data {
		if v > peak {
			peak = v
		}
	}
	peak *= 1.1
	if peak >= 5 {
		return float64(int((peak+4.99)/5) * 5)
	}
	return float64(int(peak + 0.99))
}
