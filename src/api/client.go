// Package api provides a client for the contact REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"mwa-review/src/contracts"
	"mwa-review/src/logger"
)

const maxErrorBody = 4 << 10

// Client is a contact API client. It satisfies contracts.ContactAPI.
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	backoffs   []time.Duration
	log        logger.Logger
}

var _ contracts.ContactAPI = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithToken sends token as a bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit limits outgoing requests to rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetryBackoffs sets the waits between retries of idempotent requests. Its length is
// the number of retries; an empty slice disables retrying.
func WithRetryBackoffs(backoffs ...time.Duration) Option {
	return func(c *Client) { c.backoffs = backoffs }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = logger.OrSilent(l) }
}

// NewClient creates a client for the API rooted at baseURL (e.g. https://mwa.example.com/api/v1).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API URL %q", baseURL)
	}
	c := &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter:  rate.NewLimiter(rate.Limit(10), 5),
		backoffs: []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second},
		log:      logger.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListContacts fetches one page of contacts.
func (c *Client) ListContacts(ctx context.Context, q contracts.ListQuery) (*contracts.ListResult, error) {
	params := url.Values{}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	if q.AgencyType != "" {
		params.Set("agency_type", string(q.AgencyType))
	}
	if q.MinConfidence != nil {
		params.Set("min_confidence", strconv.FormatFloat(*q.MinConfidence, 'f', -1, 64))
	}
	if q.MinQuality != nil {
		params.Set("min_quality", strconv.FormatFloat(*q.MinQuality, 'f', -1, 64))
	}
	if q.Status != "" {
		params.Set("status", string(q.Status))
	}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		params.Set("page_size", strconv.Itoa(q.PageSize))
	}

	var out contracts.ListResult
	if err := c.do(ctx, http.MethodGet, "/contacts", params, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetContact fetches a single contact.
func (c *Client) GetContact(ctx context.Context, id contracts.ContactID) (*contracts.Contact, error) {
	var out contracts.Contact
	if err := c.do(ctx, http.MethodGet, "/contacts/"+url.PathEscape(string(id)), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateContact applies patch and returns the updated contact.
func (c *Client) UpdateContact(ctx context.Context, id contracts.ContactID, patch contracts.ContactPatch) (*contracts.Contact, error) {
	var out contracts.Contact
	if err := c.do(ctx, http.MethodPatch, "/contacts/"+url.PathEscape(string(id)), nil, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BulkAction applies one action to many contacts. The result may mix successes and failures.
func (c *Client) BulkAction(ctx context.Context, req contracts.BulkRequest) (*contracts.BulkResult, error) {
	var out contracts.BulkResult
	if err := c.do(ctx, http.MethodPost, "/contacts/bulk", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetScoring fetches the scoring breakdown of a contact.
func (c *Client) GetScoring(ctx context.Context, id contracts.ContactID) (*contracts.ScoringResult, error) {
	var out contracts.ScoringResult
	if err := c.do(ctx, http.MethodGet, "/contacts/"+url.PathEscape(string(id))+"/scoring", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// do executes one call. GET requests are retried on 429, 5xx and transport errors; other
// methods are not idempotent and are attempted once.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	// path is already escaped; parsing keeps the escaping in RawPath.
	endpoint, err := url.Parse(c.baseURL.String() + path)
	if err != nil {
		return fmt.Errorf("invalid request path %q: %w", path, err)
	}
	if len(params) > 0 {
		endpoint.RawQuery = params.Encode()
	}

	retries := 0
	if method == http.MethodGet {
		retries = len(c.backoffs)
	}
	requestID := uuid.NewString()

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}

		respBody, wait, err := c.roundTrip(ctx, method, endpoint.String(), path, payload, requestID)
		if err == nil {
			if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
				return nil
			}
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
			}
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("request cancelled: %w", ctx.Err())
		}

		lastErr = err
		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.Temporary() || attempt == retries {
			break
		}

		delay := c.backoffs[attempt]
		if wait > 0 {
			delay = wait
		}
		c.log.Debug("retrying request", "method", method, "path", path, "attempt", attempt+1, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("request cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return lastErr
}

func (c *Client) roundTrip(ctx context.Context, method, endpoint, path string, payload []byte, requestID string) ([]byte, time.Duration, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &APIError{Method: method, Path: path, RequestID: requestID, Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, 0, &APIError{Method: method, Path: path, RequestID: requestID, Err: fmt.Errorf("%w: read response: %v", ErrNetwork, err)}
		}
		return body, 0, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return nil, retryAfter(resp), &APIError{
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Body:       string(body),
		RequestID:  requestID,
	}
}

// retryAfter honours a Retry-After header in seconds on 429, capped at 30s.
func retryAfter(resp *http.Response) time.Duration {
	if resp.StatusCode != http.StatusTooManyRequests {
		return 0
	}
	seconds, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || seconds <= 0 {
		return 0
	}
	d := time.Duration(seconds) * time.Second
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}
