// Package projector turns analysis results into chart series and display
// rows. Every function is pure and tolerates nil and partial results.
package projector

import (
	"math"
	"strings"

	"github.com/csheth/leafscan/internal/analysis"
)

// Colors shared by every renderer.
const (
	ColorHealthy  = "#4caf50"
	ColorDisease  = "#f44336"
	ColorMild     = "#ffc107"
	ColorModerate = "#ff9800"
	ColorSevere   = "#f44336"
	ColorNeutral  = "#9e9e9e"
)

const (
	SliceDiseased = "Diseased"
	SliceHealthy  = "Healthy"
)

// Series is a normalized chart input: parallel labels, values and colors.
type Series struct {
	Labels []string
	Values []float64
	Colors []string
}

// Len reports the number of points.
func (s Series) Len() int {
	return len(s.Labels)
}

// Empty reports whether the series has no points.
func (s Series) Empty() bool {
	return len(s.Labels) == 0
}

var severityColors = map[analysis.SeverityClass]string{
	analysis.SeverityMild:     ColorMild,
	analysis.SeverityModerate: ColorModerate,
	analysis.SeveritySevere:   ColorSevere,
	analysis.SeverityHealthy:  ColorHealthy,
}

// SeverityColor maps a severity class to its diseased-slice color.
func SeverityColor(class analysis.SeverityClass) string {
	if c, ok := severityColors[class]; ok {
		return c
	}
	return ColorNeutral
}

// BarColor colors the healthy label green and every disease red.
func BarColor(label string) string {
	if strings.EqualFold(strings.TrimSpace(label), "healthy") {
		return ColorHealthy
	}
	return ColorDisease
}

// Percent scales a probability to a percentage rounded to two places.
func Percent(p float64) float64 {
	return math.Round(p*100*100) / 100
}

// Bars projects the classification probabilities in document order.
func Bars(r *analysis.Result) Series {
	probs := r.Probabilities()
	s := Series{
		Labels: make([]string, 0, len(probs)),
		Values: make([]float64, 0, len(probs)),
		Colors: make([]string, 0, len(probs)),
	}
	for _, p := range probs {
		s.Labels = append(s.Labels, p.Label)
		s.Values = append(s.Values, Percent(p.Value))
		s.Colors = append(s.Colors, BarColor(p.Label))
	}
	return s
}

// Donut projects severity into a diseased and a healthy slice.
func Donut(r *analysis.Result) Series {
	severity := r.Severity()
	return Series{
		Labels: []string{SliceDiseased, SliceHealthy},
		Values: []float64{severity, 100 - severity},
		Colors: []string{SeverityColor(r.SeverityClass()), ColorHealthy},
	}
}

// Field is one labelled display row.
type Field struct {
	Label string
	Value string
}

var metricLabels = map[analysis.Metric]string{
	analysis.MetricBoundaryPixels: "Boundary pixels",
	analysis.MetricDiseasePixels:  "Disease pixels",
	analysis.MetricTotalLeafArea:  "Total leaf area",
}

// Fields lists the segmentation rows. Each row falls back to "N/A" on its own.
func Fields(r *analysis.Result) []Field {
	fields := []Field{
		{Label: "Predicted class", Value: r.PredictedClass()},
		{Label: "Severity", Value: severityText(r)},
		{Label: "Severity class", Value: r.SeverityLabel()},
	}
	for _, m := range analysis.Metrics {
		fields = append(fields, Field{Label: metricLabels[m], Value: r.MetricText(m)})
	}
	return fields
}

func severityText(r *analysis.Result) string {
	if r == nil || r.Segmentation == nil || r.Segmentation.Severity == nil {
		return analysis.NotAvailable
	}
	return analysis.FormatNumber(*r.Segmentation.Severity) + "%"
}

// ImageSlot describes one encoded image and what to show when it is missing.
type ImageSlot struct {
	Field       analysis.ImageField
	Title       string
	Encoded     string
	Present     bool
	Placeholder string
}

var imageTitles = map[analysis.ImageField]string{
	analysis.ImageOriginal:     "Original image",
	analysis.ImageDiseasedArea: "Diseased area",
	analysis.ImageAnnotated:    "Annotated image",
}

// Images lists the three expected encoded images in display order.
func Images(r *analysis.Result) []ImageSlot {
	slots := make([]ImageSlot, 0, len(analysis.ImageFields))
	for _, f := range analysis.ImageFields {
		title := imageTitles[f]
		encoded, ok := r.EncodedImage(f)
		slot := ImageSlot{Field: f, Title: title, Encoded: encoded, Present: ok}
		if !ok {
			slot.Placeholder = "No " + strings.ToLower(title) + " available"
		}
		slots = append(slots, slot)
	}
	return slots
}
