package data

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"portfolio-backtest/internal/model"
)

// PriceClient downloads daily price series from an HTTP price service that
// serves SeriesDocument JSON at /v1/prices/{symbol}.
type PriceClient struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

func NewPriceClient(apiKey, baseURL string) *PriceClient {
	return &PriceClient{
		APIKey:  apiKey,
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-200 answer from the price service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter string
}

func (e *APIError) Error() string {
	return e.Message
}

// Fetch downloads symbol between start and end inclusive.
func (c *PriceClient) Fetch(ctx context.Context, symbol string, start, end time.Time) (*model.PriceSeries, error) {
	if c.BaseURL == "" {
		return nil, &APIError{Code: "MISSING_BASE_URL", Message: "price service URL is required"}
	}
	if strings.TrimSpace(symbol) == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return nil, fmt.Errorf("start must be before end")
	}

	u, err := url.Parse(c.BaseURL + "/v1/prices/" + url.PathEscape(symbol))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	if !start.IsZero() {
		q.Set("start", start.Format(model.DateLayout))
	}
	if !end.IsZero() {
		q.Set("end", end.Format(model.DateLayout))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.APIKey != "" {
		req.Header.Set("x-api-key", c.APIKey)
	}
	req.Header.Set("Accept", "application/json")

	began := time.Now()
	resp, err := c.Client.Do(req)
	if err != nil {
		log.Printf("[Prices] GET %s failed: %v (duration: %v)", u.Path, err, time.Since(began))
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	log.Printf("[Prices] GET %s: %d (duration: %v)", u.Path, resp.StatusCode, time.Since(began))

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, &APIError{StatusCode: resp.StatusCode, Code: "UNAUTHORIZED", Message: "price service rejected the API key"}
	case http.StatusNotFound:
		return nil, &APIError{StatusCode: resp.StatusCode, Code: "NOT_FOUND", Message: fmt.Sprintf("no prices for %s", symbol)}
	case http.StatusTooManyRequests:
		retryAfter := resp.Header.Get("Retry-After")
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Code:       "RATE_LIMIT_EXCEEDED",
			Message:    fmt.Sprintf("Rate limit exceeded. Retry after: %s", retryAfter),
			RetryAfter: retryAfter,
		}
	default:
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Code:       "API_ERROR",
			Message:    fmt.Sprintf("price service returned status %d", resp.StatusCode),
		}
	}
	return DecodeJSON(resp.Body, symbol)
}
