package exa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/exa-search-tool/internal/search"
)

const DefaultBaseURL = "https://api.exa.ai"

type Config struct {
	APIKey  string
	BaseURL string
	// Timeout of zero leaves the request unbounded; callers bound it through ctx.
	Timeout time.Duration
}

type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

type exaRequest struct {
	Query    string      `json:"query"`
	Type     string      `json:"type,omitempty"`
	Contents exaContents `json:"contents"`
}

type exaContents struct {
	Highlights bool `json:"highlights"`
}

type exaError struct {
	Error string `json:"error"`
}

func (c *Client) SearchAndContents(ctx context.Context, req search.Request) (*search.Result, error) {
	if req.Type == "" {
		req.Type = search.TypeAuto
	}

	body, err := json.Marshal(exaRequest{
		Query:    req.Query,
		Type:     req.Type,
		Contents: exaContents{Highlights: req.Highlights},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", search.ErrSearchFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", search.ErrSearchFailed, err)
	}

	c.logger.Debug("exa response",
		zap.Int("status", resp.StatusCode),
		zap.Int("body_bytes", len(respBody)),
	)

	switch resp.StatusCode {
	case http.StatusOK:
		return search.NewResult(respBody), nil

	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, search.ErrUnauthorized

	case http.StatusTooManyRequests:
		return nil, search.ErrRateLimit

	case http.StatusBadRequest:
		if msg := providerMessage(respBody); msg != "" {
			return nil, fmt.Errorf("%w: %s", search.ErrInvalidRequest, msg)
		}
		return nil, search.ErrInvalidRequest

	default:
		c.logger.Error("exa request failed",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(respBody)),
		)
		return nil, fmt.Errorf("%w: status %d", search.ErrSearchFailed, resp.StatusCode)
	}
}

func providerMessage(body []byte) string {
	var e exaError
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	return e.Error
}
