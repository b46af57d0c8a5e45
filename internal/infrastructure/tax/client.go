// Package tax provides the HTTP-backed tax calculator client.
package tax

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"fluxo/internal/core/apperror"
	"fluxo/internal/core/session"
	domaintax "fluxo/internal/domain/tax"
	"fluxo/pkg/logger"
)

const defaultTimeout = 3 * time.Second

// Client calls an external tax calculation service. Every failure maps
// to an upstream error; callers decide whether that is fatal.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
}

var _ domaintax.Calculator = (*Client)(nil)

func NewClient(baseURL string, log *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: log.WithComponent("tax.client"),
	}
}

// Calculate posts the priced lines and decodes the per-line breakdown.
// The caller's bearer credential is forwarded from the session.
func (c *Client) Calculate(ctx context.Context, req domaintax.Request) (*domaintax.Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, apperror.NewUpstream("tax", fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/calculate", bytes.NewReader(body))
	if err != nil {
		return nil, apperror.NewUpstream("tax", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if token := session.Token(ctx); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperror.NewUpstream("tax", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Read a bounded slice of the body for diagnostics.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.WithContext(ctx).Warnw("tax service returned non-200",
			"status", resp.StatusCode, "body", string(snippet))
		return nil, apperror.NewUpstream("tax", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var result domaintax.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperror.NewUpstream("tax", fmt.Errorf("decode response: %w", err))
	}
	return &result, nil
}
