// Package provider is the REST client for the upstream odds feed and the
// conversion of its bookmaker-major payloads into cache-shaped entries.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oddsight/oddsight/internal/domain"
	"github.com/oddsight/oddsight/internal/market"
)

// Client is the REST client for the upstream odds API.
type Client struct {
	baseURL    string
	apiKey     string
	regions    string
	oddsFormat string
	httpClient *http.Client
}

// Config holds the upstream feed settings.
type Config struct {
	BaseURL string
	APIKey  string
	Regions string
	Timeout time.Duration
}

// NewClient creates a new odds feed client.
//
// baseURL is the API root, e.g. "https://api.the-odds-api.com/v4".
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	regions := cfg.Regions
	if regions == "" {
		regions = "us"
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		regions:    regions,
		oddsFormat: "american",
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetEvents returns the upcoming events for a sport.
func (c *Client) GetEvents(ctx context.Context, sport string) ([]Event, error) {
	path := fmt.Sprintf("/sports/%s/events", url.PathEscape(sport))

	body, err := c.doRequest(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("provider: get events %s: %w", sport, err)
	}

	var events []Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("provider: decode events: %w", err)
	}

	return events, nil
}

// GetEventOdds returns every requested market's prices for one event.
// Market keys are validated against the known-market allowlist before the
// request is sent; an unknown key is a caller bug, not an upstream error.
func (c *Client) GetEventOdds(ctx context.Context, sport, eventID string, marketKeys []string) (EventOdds, error) {
	for _, key := range marketKeys {
		if !market.IsValidKey(key) {
			return EventOdds{}, fmt.Errorf("provider: %w: unknown market key %q", domain.ErrInvalidMarket, key)
		}
	}

	path := fmt.Sprintf("/sports/%s/events/%s/odds", url.PathEscape(sport), url.PathEscape(eventID))
	params := url.Values{}
	params.Set("markets", strings.Join(marketKeys, ","))
	params.Set("includeLinks", "true")
	params.Set("includeSids", "true")

	body, err := c.doRequest(ctx, path, params)
	if err != nil {
		return EventOdds{}, fmt.Errorf("provider: get odds %s/%s: %w", sport, eventID, err)
	}

	var odds EventOdds
	if err := json.Unmarshal(body, &odds); err != nil {
		return EventOdds{}, fmt.Errorf("provider: decode odds: %w", err)
	}

	return odds, nil
}

// doRequest builds, sends, and reads a GET against the odds API. The API key,
// region, and odds format are appended to every request.
func (c *Client) doRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("apiKey", c.apiKey)
	params.Set("regions", c.regions)
	params.Set("oddsFormat", c.oddsFormat)

	fullURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := c.checkStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	return respBody, nil
}

// checkStatus maps non-2xx HTTP status codes to appropriate errors.
func (c *Client) checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &apiErr)

	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("not found: %s: %w", apiErr.Message, domain.ErrNotFound)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("unauthorized: %s: %w", apiErr.Message, domain.ErrUnauthorized)
	case http.StatusTooManyRequests:
		return fmt.Errorf("rate limited: %s: %w", apiErr.Message, domain.ErrRateLimited)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, apiErr.Message)
	}
}
