package detail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/csheth/leafscan/internal/analysis"
	apperrors "github.com/csheth/leafscan/internal/errors"
)

const maxResponseBytes = 8 << 20

type Client struct {
	endpoint string
	client   *http.Client
}

func New(cfg Config) *Client {
	return &Client{
		endpoint: cfg.Endpoint,
		client:   pickHTTPClient(cfg.HTTPClient),
	}
}

// Generate posts req and resolves the response text.
func (c *Client) Generate(ctx context.Context, req Request) (Result, error) {
	const op = "detail.generate"
	buf, err := json.Marshal(req)
	if err != nil {
		return Result{}, apperrors.Wrap(apperrors.KindTransport, op, "failed to encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(buf))
	if err != nil {
		return Result{}, apperrors.Wrap(apperrors.KindTransport, op, "failed to build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Result{}, apperrors.Wrap(apperrors.KindTransport, op, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{}, apperrors.Wrap(apperrors.KindTransport, op, "failed to read response", err)
	}
	log.Printf("[detail] POST %s %s (%d bytes, %s)", c.endpoint, resp.Status, len(body), time.Since(started).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, apperrors.Remote(op, resp.StatusCode, analysis.ErrorField(body), FallbackErrorMessage)
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return Result{}, apperrors.Wrap(apperrors.KindTransport, op, "malformed response", fmt.Errorf("decode detail response: %w", err))
	}
	return pickText(payload), nil
}
