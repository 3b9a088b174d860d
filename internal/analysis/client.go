package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	apperrors "github.com/csheth/leafscan/internal/errors"
	"github.com/csheth/leafscan/internal/selection"
)

const (
	// FormField is the multipart field carrying the image.
	FormField = "file"
	// FallbackErrorMessage is used when a rejection body carries no error text.
	FallbackErrorMessage = "Failed to process image"

	defaultHTTPTimeout = 2 * time.Minute
	// Responses embed base64 images, so allow a generous body.
	maxResponseBytes = 64 << 20
)

// Analyzer submits an image for classification and segmentation.
type Analyzer interface {
	Analyze(ctx context.Context, img *selection.Image) (*Result, error)
}

// Config describes how to build an analysis client.
type Config struct {
	Endpoint   string
	HTTPClient *http.Client
}

type Client struct {
	endpoint string
	client   *http.Client
}

func New(cfg Config) *Client {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{endpoint: cfg.Endpoint, client: client}
}

// Analyze uploads img as multipart/form-data and decodes the result.
func (c *Client) Analyze(ctx context.Context, img *selection.Image) (*Result, error) {
	const op = "analysis.analyze"
	if img == nil {
		return nil, apperrors.New(apperrors.KindValidation, op, "Please select an image first")
	}

	body, contentType, err := encodeUpload(img)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransport, op, "failed to encode upload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransport, op, "failed to build request", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransport, op, "request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransport, op, "failed to read response", err)
	}
	log.Printf("[analysis] POST %s %s (%d bytes, %s)", c.endpoint, resp.Status, len(raw), time.Since(started).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.Remote(op, resp.StatusCode, ErrorField(raw), FallbackErrorMessage)
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransport, op, "malformed response", fmt.Errorf("decode analysis response: %w", err))
	}
	return &result, nil
}

func encodeUpload(img *selection.Image) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FormField, escapeQuotes(img.Name)))
	header.Set("Content-Type", img.MIMEType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// ErrorField extracts a string "error" member from a JSON body, or "".
func ErrorField(raw []byte) string {
	var envelope struct {
		Error any `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return ""
	}
	if msg, ok := envelope.Error.(string); ok {
		return strings.TrimSpace(msg)
	}
	return ""
}
