package analysis

import (
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Fallbacks used whenever an optional field is absent. Every consumer
// resolves fields through the accessors below instead of re-deriving these.
const (
	UnknownLabel    = "Unknown"
	NotAvailable    = "N/A"
	DefaultSeverity = 0.0
)

// Result is the analysis endpoint's success payload. All nested fields are
// optional.
type Result struct {
	Classification *Classification `json:"disease_classification,omitempty"`
	Segmentation   *Segmentation   `json:"disease_segmentation,omitempty"`
}

// Classification keeps probabilities in document order.
type Classification struct {
	PredictedClass *string                                 `json:"predicted_class,omitempty"`
	Probabilities  *orderedmap.OrderedMap[string, float64] `json:"probabilities,omitempty"`
}

type Segmentation struct {
	Severity          *float64 `json:"severity,omitempty"`
	Classification    *string  `json:"classification,omitempty"`
	BoundaryPixels    *float64 `json:"boundary_pixels,omitempty"`
	DiseasePixels     *float64 `json:"disease_pixels,omitempty"`
	TotalLeafArea     *float64 `json:"total_leaf_area,omitempty"`
	OriginalImage     *string  `json:"original_image,omitempty"`
	DiseasedAreaImage *string  `json:"diseased_area_image,omitempty"`
	AnnotatedImage    *string  `json:"annotated_image,omitempty"`
}

// SeverityClass is the segmentation model's coarse severity bucket.
type SeverityClass string

const (
	SeverityHealthy  SeverityClass = "Healthy"
	SeverityMild     SeverityClass = "Mild"
	SeverityModerate SeverityClass = "Moderate"
	SeveritySevere   SeverityClass = "Severe"
	SeverityUnknown  SeverityClass = "Unknown"
)

var knownSeverityClasses = []SeverityClass{SeverityHealthy, SeverityMild, SeverityModerate, SeveritySevere}

// ParseSeverityClass matches case-insensitively; anything else is Unknown.
func ParseSeverityClass(value string) SeverityClass {
	value = strings.TrimSpace(value)
	for _, class := range knownSeverityClasses {
		if strings.EqualFold(value, string(class)) {
			return class
		}
	}
	return SeverityUnknown
}

// Probability is one label of the classification distribution.
type Probability struct {
	Label string
	Value float64
}

// PredictedClass resolves the predicted disease label.
func (r *Result) PredictedClass() string {
	if r == nil || r.Classification == nil || r.Classification.PredictedClass == nil {
		return UnknownLabel
	}
	if label := strings.TrimSpace(*r.Classification.PredictedClass); label != "" {
		return label
	}
	return UnknownLabel
}

// Probabilities returns the distribution in the order the server sent it.
// Values are passed through unvalidated.
func (r *Result) Probabilities() []Probability {
	if r == nil || r.Classification == nil || r.Classification.Probabilities == nil {
		return nil
	}
	probs := r.Classification.Probabilities
	out := make([]Probability, 0, probs.Len())
	for pair := probs.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, Probability{Label: pair.Key, Value: pair.Value})
	}
	return out
}

// Severity resolves the diseased share of the leaf, 0-100.
func (r *Result) Severity() float64 {
	if r == nil || r.Segmentation == nil || r.Segmentation.Severity == nil {
		return DefaultSeverity
	}
	return *r.Segmentation.Severity
}

// SeverityLabel resolves the raw severity classification string.
func (r *Result) SeverityLabel() string {
	if r == nil || r.Segmentation == nil || r.Segmentation.Classification == nil {
		return UnknownLabel
	}
	if label := strings.TrimSpace(*r.Segmentation.Classification); label != "" {
		return label
	}
	return UnknownLabel
}

// SeverityClass resolves the severity bucket.
func (r *Result) SeverityClass() SeverityClass {
	return ParseSeverityClass(r.SeverityLabel())
}

// Metric names an optional numeric segmentation field.
type Metric string

const (
	MetricBoundaryPixels Metric = "boundary_pixels"
	MetricDiseasePixels  Metric = "disease_pixels"
	MetricTotalLeafArea  Metric = "total_leaf_area"
)

// Metrics lists the numeric segmentation fields in display order.
var Metrics = []Metric{MetricBoundaryPixels, MetricDiseasePixels, MetricTotalLeafArea}

// MetricValue returns the raw value of m, if present.
func (r *Result) MetricValue(m Metric) (float64, bool) {
	if r == nil || r.Segmentation == nil {
		return 0, false
	}
	var v *float64
	switch m {
	case MetricBoundaryPixels:
		v = r.Segmentation.BoundaryPixels
	case MetricDiseasePixels:
		v = r.Segmentation.DiseasePixels
	case MetricTotalLeafArea:
		v = r.Segmentation.TotalLeafArea
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// MetricText renders m for display, "N/A" when absent.
func (r *Result) MetricText(m Metric) string {
	v, ok := r.MetricValue(m)
	if !ok {
		return NotAvailable
	}
	return FormatNumber(v)
}

// FormatNumber prints integral values without a fraction.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ImageField names an encoded image carried by the segmentation payload.
type ImageField string

const (
	ImageOriginal     ImageField = "original_image"
	ImageDiseasedArea ImageField = "diseased_area_image"
	ImageAnnotated    ImageField = "annotated_image"
)

// ImageFields lists the encoded images in display order.
var ImageFields = []ImageField{ImageOriginal, ImageDiseasedArea, ImageAnnotated}

// EncodedImage returns the encoded image for f when it is a non-empty string.
func (r *Result) EncodedImage(f ImageField) (string, bool) {
	if r == nil || r.Segmentation == nil {
		return "", false
	}
	var v *string
	switch f {
	case ImageOriginal:
		v = r.Segmentation.OriginalImage
	case ImageDiseasedArea:
		v = r.Segmentation.DiseasedAreaImage
	case ImageAnnotated:
		v = r.Segmentation.AnnotatedImage
	}
	if v == nil || strings.TrimSpace(*v) == "" {
		return "", false
	}
	return *v, true
}
