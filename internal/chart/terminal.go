package chart

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/csheth/leafscan/internal/projector"
)

const (
	fullBlock  = "█"
	emptyBlock = "░"
	minBarCols = 10
)

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	trackStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	emptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
)

// EmptyClassificationText is shown in place of an empty bar chart.
const EmptyClassificationText = "No classification data"

// cells maps a percentage onto width columns, clamped to the track.
func cells(percent float64, width int) int {
	n := int(math.Round(percent / 100 * float64(width)))
	if n < 0 {
		return 0
	}
	if n > width {
		return width
	}
	return n
}

// RenderBars draws one horizontal bar per label. width is the total line width.
func RenderBars(s projector.Series, width int) string {
	if s.Empty() {
		return emptyStyle.Render(EmptyClassificationText)
	}
	labelWidth := 0
	for _, label := range s.Labels {
		if w := lipgloss.Width(label); w > labelWidth {
			labelWidth = w
		}
	}
	const valueWidth = 9
	track := width - labelWidth - valueWidth - 2
	if track < minBarCols {
		track = minBarCols
	}

	lines := make([]string, 0, s.Len())
	for i, label := range s.Labels {
		n := cells(s.Values[i], track)
		bar := lipgloss.NewStyle().Foreground(lipgloss.Color(s.Colors[i])).Render(strings.Repeat(fullBlock, n)) +
			trackStyle.Render(strings.Repeat(emptyBlock, track-n))
		pad := strings.Repeat(" ", labelWidth-lipgloss.Width(label))
		lines = append(lines, fmt.Sprintf("%s%s %s %s", labelStyle.Render(label), pad, bar, valueStyle.Render(fmt.Sprintf("%7.2f%%", s.Values[i]))))
	}
	return strings.Join(lines, "\n")
}

// RenderDonut draws the two severity slices as one stacked bar with a legend.
func RenderDonut(s projector.Series, width int) string {
	if s.Empty() {
		return emptyStyle.Render("No severity data")
	}
	track := width
	if track < minBarCols {
		track = minBarCols
	}
	var bar strings.Builder
	used := 0
	for i := range s.Labels {
		n := cells(s.Values[i], track)
		if used+n > track {
			n = track - used
		}
		if i == len(s.Labels)-1 {
			n = track - used
		}
		bar.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(s.Colors[i])).Render(strings.Repeat(fullBlock, n)))
		used += n
	}

	legend := make([]string, 0, s.Len())
	for i, label := range s.Labels {
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(s.Colors[i])).Render("●")
		legend = append(legend, fmt.Sprintf("%s %s %s", swatch, labelStyle.Render(label), valueStyle.Render(fmt.Sprintf("%.2f%%", s.Values[i]))))
	}
	return bar.String() + "\n" + strings.Join(legend, "   ")
}
