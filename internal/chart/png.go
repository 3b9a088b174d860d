package chart

import (
	"errors"
	"io"
	"math"
	"strings"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/csheth/leafscan/internal/projector"
)

// ErrEmptySeries is returned when there is nothing to draw.
var ErrEmptySeries = errors.New("chart: empty series")

const (
	pngWidth  = 640
	pngHeight = 400
)

func fill(hex string) gochart.Style {
	c := drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
	return gochart.Style{FillColor: c, StrokeColor: c, StrokeWidth: 1}
}

// WriteBarPNG renders the classification series as a PNG bar chart.
func WriteBarPNG(w io.Writer, s projector.Series) error {
	if s.Empty() {
		return ErrEmptySeries
	}
	bars := make([]gochart.Value, 0, s.Len())
	lo, hi := 0.0, 100.0
	for i, label := range s.Labels {
		v := s.Values[i]
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		bars = append(bars, gochart.Value{Label: label, Value: v, Style: fill(s.Colors[i])})
	}
	bc := gochart.BarChart{
		Title:      "Disease classification (%)",
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Width:      pngWidth,
		Height:     pngHeight,
		BarWidth:   barWidth(s.Len()),
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: lo, Max: hi},
		},
		Bars: bars,
	}
	return bc.Render(gochart.PNG, w)
}

func barWidth(n int) int {
	w := (pngWidth - 120) / (n * 2)
	if w > 80 {
		return 80
	}
	if w < 8 {
		return 8
	}
	return w
}

// WriteDonutPNG renders the severity series as a PNG donut chart. Slices at
// or below zero are left out.
func WriteDonutPNG(w io.Writer, s projector.Series) error {
	values := make([]gochart.Value, 0, s.Len())
	total := 0.0
	for i, label := range s.Labels {
		v := s.Values[i]
		if v <= 0 {
			continue
		}
		total += v
		values = append(values, gochart.Value{Label: label, Value: v, Style: fill(s.Colors[i])})
	}
	if total == 0 {
		return ErrEmptySeries
	}
	dc := gochart.DonutChart{
		Title:  "Leaf severity (%)",
		Width:  pngHeight,
		Height: pngHeight,
		Values: values,
	}
	return dc.Render(gochart.PNG, w)
}
