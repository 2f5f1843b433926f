package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/translatar/gateway/domain/repositories"
)

// maxErrorBody caps how much of a failed response body is kept in the error
const maxErrorBody = 512

// Client performs JSON calls against one upstream service. Every failure is
// returned as a *repositories.UpstreamError tagged with the service name.
type Client struct {
	service    string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client for service rooted at baseURL
func NewClient(service, baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		service:    service,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Service returns the name used to tag errors
func (c *Client) Service() string {
	return c.service
}

// PostJSON sends body as JSON to path and decodes the JSON answer into out
func (c *Client) PostJSON(ctx context.Context, path string, body, out any, headers map[string]string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return c.do(req, out)
}

// PostFile uploads data as a single multipart file field and decodes the JSON answer into out
func (c *Client) PostFile(ctx context.Context, path, field, filename, contentType string, data []byte, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename)}
	header["Content-Type"] = []string{contentType}
	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("failed to write multipart part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &repositories.UpstreamError{Service: c.service, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("Upstream call finished",
		zap.String("service", c.service),
		zap.String("url", req.URL.String()),
		zap.Int("statusCode", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &repositories.UpstreamError{
			Service:    c.service,
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(errorBody))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &repositories.UpstreamError{
			Service: c.service,
			Err:     fmt.Errorf("%w: %v", repositories.ErrInvalidResponse, err),
		}
	}
	return nil
}
