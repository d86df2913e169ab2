// Package client provides HTTP client functionality for the opsbook API.
// It handles authentication, request/response serialization, and error handling.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/opsbook/opsbook/internal/config"
	"github.com/opsbook/opsbook/internal/constants"
	apperrors "github.com/opsbook/opsbook/internal/errors"
	"github.com/opsbook/opsbook/internal/logger"
)

// KeySource supplies the API key attached to each request.
// It is consulted on every call so a key changed mid-session is picked up.
type KeySource interface {
	APIKey() string
}

// StaticKey is a KeySource that always returns the same key.
type StaticKey string

// APIKey implements KeySource.
func (k StaticKey) APIKey() string { return string(k) }

// Client provides a generic HTTP client for API operations
type Client struct {
	config     *config.Config
	keys       KeySource
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a new API client. When keys is nil the key from cfg is used.
func New(cfg *config.Config, keys KeySource, log *slog.Logger) *Client {
	if keys == nil {
		keys = StaticKey(cfg.APIKey)
	}
	return &Client{
		config:     cfg,
		keys:       keys,
		httpClient: &http.Client{},
		logger:     log,
	}
}

// Request represents an API request
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	// Public requests are sent without the API key header.
	Public bool
}

// Response represents an API response
type Response struct {
	StatusCode int
	Body       []byte
}

// buildURL constructs the full API URL from path and query string
func (c *Client) buildURL(path string, query url.Values) (string, error) {
	var pathPart, queryString string
	if idx := strings.Index(path, "?"); idx != -1 {
		pathPart = path[:idx]
		queryString = path[idx+1:]
	} else {
		pathPart = path
	}

	apiURL, err := url.JoinPath(c.config.APIEndpoint, pathPart)
	if err != nil {
		return "", err
	}

	if len(query) > 0 {
		if queryString != "" {
			queryString += "&"
		}
		queryString += query.Encode()
	}

	if queryString != "" {
		apiURL = apiURL + "?" + queryString
	}

	return apiURL, nil
}

// Do makes an HTTP request to the API.
// Only failures to obtain a response are returned as errors; any status code
// is a valid Response.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	var bodyReader io.Reader
	var bodySize int
	if req.Body != nil {
		jsonData, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodySize = len(jsonData)
		bodyReader = bytes.NewReader(jsonData)
	}

	apiURL, err := c.buildURL(req.Path, req.Query)
	if err != nil {
		return nil, apperrors.NewTransportError("invalid API endpoint", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, apiURL, bodyReader)
	if err != nil {
		return nil, apperrors.NewTransportError("failed to create request", err)
	}

	httpReq.Header.Set(constants.ContentTypeHeader, "application/json")
	hasKey := false
	if !req.Public {
		if key := c.keys.APIKey(); key != "" {
			httpReq.Header.Set(constants.APIKeyHeader, key)
			hasKey = true
		}
	}

	logArgs := []any{
		"operation", "HTTP.Request",
		"method", req.Method,
		"url", apiURL,
		"hasBody", req.Body != nil,
		"bodySize", bodySize,
		"authenticated", hasKey,
	}
	logArgs = append(logArgs, logger.GetDeadlineInfo(ctx)...)
	c.logger.Debug("calling external service", logArgs...)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.NewTransportError("failed to make request", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewTransportError("failed to read response", err)
	}

	c.logger.Debug("received HTTP response",
		"status", resp.StatusCode,
		"bodySize", len(body),
		"method", req.Method,
		"url", apiURL)

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}

// DoJSON makes a request and unmarshals the response into the provided value.
// A nil result discards the response body.
func (c *Client) DoJSON(ctx context.Context, req Request, result any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}

	if resp.StatusCode >= constants.HTTPStatusBadRequest {
		return apperrors.NewBackendError(resp.StatusCode, apperrors.ParseDetail(resp.Body))
	}

	if resp.StatusCode == http.StatusNoContent || result == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}

	if err = json.Unmarshal(resp.Body, result); err != nil {
		c.logger.Debug("response body", "body", string(resp.Body))
		return apperrors.NewDecodeError("failed to parse response", err)
	}

	return nil
}
