// Package prediction provides a client for the external spending prediction
// service.
package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "http://localhost:5000"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// ErrEmptyResponse is returned when the service answers with no body.
var ErrEmptyResponse = errors.New("prediction service returned empty response")

// Request is the payload sent to the /predict endpoint.
type Request struct {
	UserID       string `json:"user_id"`
	DBConnString string `json:"db_conn_string"`
}

// Prediction is the forecast returned for one user.
type Prediction struct {
	UserID                    string          `json:"user_id"`
	PredictedNextMonthExpense decimal.Decimal `json:"predicted_next_month_expense"`
	ModelPath                 string          `json:"model_path,omitempty"`
	BasedOnMonth              string          `json:"based_on_month,omitempty"`
	Error                     string          `json:"error,omitempty"`
}

// Client calls the prediction service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a prediction service client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Predict asks the service for the next month's expected spend of a user.
// connString tells the service where to read the user's history from.
func (c *Client) Predict(ctx context.Context, userID, connString string) (*Prediction, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	payload, err := json.Marshal(Request{UserID: userID, DBConnString: connString})
	if err != nil {
		return nil, fmt.Errorf("marshaling prediction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting prediction: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("requesting prediction: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading prediction response: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 || string(bytes.TrimSpace(body)) == "null" {
		return nil, ErrEmptyResponse
	}

	var result Prediction
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding prediction response: %w", err)
	}
	return &result, nil
}
