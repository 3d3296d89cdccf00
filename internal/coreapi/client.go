package coreapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	coreapitypes "github.com/frahmantamala/ai-helper/internal/core/datamodel/coreapi"
	"github.com/frahmantamala/ai-helper/internal/metrics"
)

// ErrUpstreamUnavailable wraps every failure that happened after the request was sent.
var ErrUpstreamUnavailable = errors.New("core api unavailable")

// RequestError means the outbound request could not be built at all.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string {
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

type Config struct {
	BaseURL           string
	APIKey            string
	UseAuthentication bool
	Timeout           time.Duration
}

type Client struct {
	baseURL string
	http    *resty.Client
	logger  *slog.Logger
}

func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if config.UseAuthentication && config.APIKey != "" {
		httpClient.SetAuthToken(config.APIKey)
	}

	return &Client{
		baseURL: config.BaseURL,
		http:    httpClient,
		logger:  logger,
	}
}

// ChatCompletion posts one request to the core API and returns its body untouched.
// The body is only returned when it decodes as a completion with at least one choice.
func (c *Client) ChatCompletion(ctx context.Context, req *coreapitypes.ChatCompletionRequest) (json.RawMessage, error) {
	if err := req.Validate(); err != nil {
		return nil, &RequestError{Err: fmt.Errorf("validation error: %w", err)}
	}

	endpoint, err := url.JoinPath(c.baseURL, coreapitypes.CompletionsPath)
	if err != nil {
		return nil, &RequestError{Err: fmt.Errorf("invalid core api url: %w", err)}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &RequestError{Err: fmt.Errorf("failed to marshal chat request: %w", err)}
	}

	c.logger.Debug("core api: sending chat completion",
		"url", endpoint,
		"model", req.Model,
		"messages", len(req.Messages))

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(endpoint)
	if err != nil {
		c.observe(start, false)
		return nil, fmt.Errorf("%w: HTTP request failed: %v", ErrUpstreamUnavailable, err)
	}

	if !resp.IsSuccess() {
		c.observe(start, false)
		return nil, fmt.Errorf("%w: core api returned status %d", ErrUpstreamUnavailable, resp.StatusCode())
	}

	var completion coreapitypes.ChatCompletionResponse
	if err := json.Unmarshal(resp.Body(), &completion); err != nil {
		c.observe(start, false)
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrUpstreamUnavailable, err)
	}
	if len(completion.Choices) == 0 {
		c.observe(start, false)
		return nil, fmt.Errorf("%w: response has no choices", ErrUpstreamUnavailable)
	}

	c.observe(start, true)
	c.logger.Debug("core api: chat completion received",
		"id", completion.ID,
		"model", completion.Model,
		"status", resp.StatusCode())

	return json.RawMessage(resp.Body()), nil
}

// StreamURL builds the streaming endpoint for a user; org_id is left out when orgID is nil.
func (c *Client) StreamURL(userID int64, orgID *int64) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimRight(c.baseURL, "/"))
	sb.WriteString(coreapitypes.StreamPath)
	sb.WriteString("?user_id=")
	sb.WriteString(strconv.FormatInt(userID, 10))
	if orgID != nil {
		sb.WriteString("&org_id=")
		sb.WriteString(strconv.FormatInt(*orgID, 10))
	}
	return sb.String()
}

func (c *Client) observe(start time.Time, ok bool) {
	result := "failed"
	if ok {
		result = "ok"
	}
	metrics.UpstreamRequestDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
}
