// Package dune fetches per-wallet OpenSea trading stats through the Dune
// Analytics execute/poll API and shapes them into wallet reports.
package dune

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/seamom/ogdrop/internal/infrastructure/httpclient"
)

var (
	// ErrNotConfigured is returned when no API key is available.
	ErrNotConfigured = errors.New("dune: api key not configured")
	// ErrExecutionTimeout is returned when polling exhausts its attempts.
	ErrExecutionTimeout = errors.New("dune: timed out waiting for execution")
)

// Config holds wallet-stats query settings
type Config struct {
	APIKey            string
	QueryID           int
	BaseURL           string
	Timeout           time.Duration
	PollInterval      time.Duration
	MaxPollAttempts   int
	RequestsPerSecond float64
}

// Client executes the wallet-stats query. Requests pass through a token
// bucket and a circuit breaker so a wedged upstream cannot stall the
// dashboard loop.
type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker

	executions atomic.Int64
	polls      atomic.Int64
}

// Stats counts upstream traffic since the client was built.
type Stats struct {
	Executions int64 `json:"executions"`
	Polls      int64 `json:"polls"`
}

func NewClient(config Config) *Client {
	if config.QueryID == 0 {
		config.QueryID = 5850749
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.dune.com"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.PollInterval == 0 {
		config.PollInterval = time.Second
	}
	if config.MaxPollAttempts == 0 {
		config.MaxPollAttempts = 15
	}
	if config.RequestsPerSecond == 0 {
		config.RequestsPerSecond = 1
	}

	burst := int(config.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "dune",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Dune circuit breaker state changed")
		},
	})

	return &Client{
		config:     config,
		httpClient: httpclient.New(config.Timeout),
		limiter:    rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst),
		breaker:    breaker,
	}
}

// Configured reports whether the client has an API key.
func (c *Client) Configured() bool {
	return c.config.APIKey != ""
}

// Stats reports how many executions the client has started and how many
// status polls those executions took.
func (c *Client) Stats() Stats {
	return Stats{Executions: c.executions.Load(), Polls: c.polls.Load()}
}

// FetchRows runs the wallet-stats query for one address and returns the raw
// result rows. An empty slice means the wallet has no OpenSea activity.
func (c *Client) FetchRows(ctx context.Context, wallet string) ([]map[string]any, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("dune: rate limit wait: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetchOnce(ctx, wallet)
	})
	if err != nil {
		return nil, err
	}
	return result.([]map[string]any), nil
}

type executeResponse struct {
	ExecutionID string `json:"execution_id"`
}

type resultsResponse struct {
	State   string `json:"state"`
	Message string `json:"message"`
	Result  struct {
		Rows []map[string]any `json:"rows"`
	} `json:"result"`
}

func (c *Client) fetchOnce(ctx context.Context, wallet string) ([]map[string]any, error) {
	executionID, err := c.startExecution(ctx, wallet)
	if err != nil {
		return nil, err
	}
	c.executions.Add(1)

	log.Debug().
		Str("wallet", wallet).
		Str("execution_id", executionID).
		Msg("Dune execution started")

	return c.pollResults(ctx, executionID)
}

func (c *Client) startExecution(ctx context.Context, wallet string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"query_parameters": map[string]string{"wallet": wallet},
	})
	if err != nil {
		return "", fmt.Errorf("dune: encode execute request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/query/%d/execute", c.config.BaseURL, c.config.QueryID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("dune: build execute request: %w", err)
	}
	req.Header.Set("X-Dune-API-Key", c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("dune: execute request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("dune: execute returned HTTP %d", resp.StatusCode)
	}

	var decoded executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("dune: decode execute response: %w", err)
	}
	if decoded.ExecutionID == "" {
		return "", fmt.Errorf("dune: failed to start execution")
	}
	return decoded.ExecutionID, nil
}

func (c *Client) pollResults(ctx context.Context, executionID string) ([]map[string]any, error) {
	url := fmt.Sprintf("%s/api/v1/execution/%s/results", c.config.BaseURL, executionID)

	for attempt := 0; attempt < c.config.MaxPollAttempts; attempt++ {
		c.polls.Add(1)
		payload, err := c.fetchResults(ctx, url)
		if err != nil {
			return nil, err
		}

		switch payload.State {
		case "QUERY_STATE_COMPLETED":
			return payload.Result.Rows, nil
		case "QUERY_STATE_FAILED", "QUERY_STATE_CANCELLED":
			message := payload.Message
			if message == "" {
				message = "execution failed"
			}
			return nil, fmt.Errorf("dune: %s", message)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.config.PollInterval):
		}
	}

	return nil, ErrExecutionTimeout
}

func (c *Client) fetchResults(ctx context.Context, url string) (*resultsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dune: build results request: %w", err)
	}
	req.Header.Set("X-Dune-API-Key", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dune: results request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dune: results returned HTTP %d", resp.StatusCode)
	}

	var decoded resultsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("dune: decode results response: %w", err)
	}
	return &decoded, nil
}
