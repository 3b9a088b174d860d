package detail

import (
	"context"
	"net/http"
	"time"

	"github.com/csheth/leafscan/internal/analysis"
	apperrors "github.com/csheth/leafscan/internal/errors"
)

const defaultDetailHTTPTimeout = 3 * time.Minute

// FallbackErrorMessage is used when a rejection body carries no error text.
const FallbackErrorMessage = "Failed to get RAG output"

// Config describes how to build a detail client.
type Config struct {
	Endpoint   string
	HTTPClient *http.Client
}

// Generator produces explanatory text for an analysis.
type Generator interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// Message is one chat turn of the request payload.
type Message struct {
	Content string `json:"content"`
}

// Request is the generation endpoint's JSON payload.
type Request struct {
	Messages       []Message `json:"messages"`
	PredictedClass string    `json:"predicted_class"`
	Severity       float64   `json:"severity"`
	SeverityClass  string    `json:"severity_class"`
}

// Result holds the generated text. An empty Text means the endpoint answered
// without content, which is not a failure.
type Result struct {
	Text string
	Key  string
}

// Empty reports whether no accepted key carried text.
func (r Result) Empty() bool {
	return r.Text == ""
}

// NewRequest derives the payload from a prior analysis using the analysis
// fallback policy for absent fields.
func NewRequest(result *analysis.Result) (Request, error) {
	if result == nil {
		return Request{}, apperrors.New(apperrors.KindValidation, "detail.request", "No analysis data available")
	}
	return Request{
		Messages:       []Message{{Content: Instruction}},
		PredictedClass: result.PredictedClass(),
		Severity:       result.Severity(),
		SeverityClass:  result.SeverityLabel(),
	}, nil
}

func pickHTTPClient(custom *http.Client) *http.Client {
	if custom != nil {
		return custom
	}
	// Generation is slow; the caller's context carries the real deadline.
	return &http.Client{Timeout: defaultDetailHTTPTimeout}
}
