// Package sharecard talks to the card-rendering service that turns a
// scenario projection into a shareable image, and memoizes rendered cards
// by scenario signature so repeated share-panel visits stay free.
package sharecard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/seamom/ogdrop/internal/infrastructure/httpclient"
)

// ErrNotConfigured is returned when no service URL is set.
var ErrNotConfigured = errors.New("sharecard: service URL is not configured")

// Card is a rendered share card with its URLs made absolute against the
// public base when one is configured.
type Card struct {
	ID       string         `json:"id"`
	ImageURL string         `json:"image_url"`
	ShareURL string         `json:"share_url"`
	MetaURL  string         `json:"meta_url"`
	Raw      map[string]any `json:"raw,omitempty"`
}

// Client renders share cards through the card service.
type Client struct {
	serviceURL string
	publicBase string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker

	mu    sync.Mutex
	cards map[string]*Card
}

func NewClient(serviceURL, publicBase string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 20 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "sharecard",
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
				Msg("Share card circuit breaker state changed")
		},
	})

	return &Client{
		serviceURL: strings.TrimRight(serviceURL, "/"),
		publicBase: publicBase,
		httpClient: httpclient.New(timeout),
		breaker:    breaker,
		cards:      make(map[string]*Card),
	}
}

// Configured reports whether a card service URL is set.
func (c *Client) Configured() bool {
	return c.serviceURL != ""
}

// Create renders a new card. The response must carry a card identifier;
// relative URLs in it are resolved against the public base.
func (c *Client) Create(ctx context.Context, payload Payload) (*Card, error) {
	return c.render(ctx, payload, uuid.NewString())
}

func (c *Client) render(ctx context.Context, payload Payload, idempotencyKey string) (*Card, error) {
	if c.serviceURL == "" {
		return nil, ErrNotConfigured
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.create(ctx, payload, idempotencyKey)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Card), nil
}

func (c *Client) create(ctx context.Context, payload Payload, idempotencyKey string) (*Card, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("sharecard: encode payload: %w", err)
	}

	endpoint := c.serviceURL + "/cards"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sharecard: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sharecard: create request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("sharecard: service returned HTTP %d", resp.StatusCode)
	}

	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("sharecard: invalid JSON response: %w", err)
	}

	id, _ := data["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("sharecard: response missing card identifier")
	}

	card := &Card{
		ID:       id,
		ImageURL: c.absoluteURL(stringValue(data["image_url"]), true),
		ShareURL: c.absoluteURL(stringValue(data["share_url"]), true),
		MetaURL:  c.absoluteURL(stringValue(data["meta_url"]), true),
		Raw:      data,
	}

	log.Debug().
		Str("card_id", card.ID).
		Str("wallet", payload.Wallet).
		Msg("Share card rendered")

	return card, nil
}

// Ensure returns the memoized card for a scenario signature, rendering one
// on first use. Assumption changes produce a new signature and thus a new
// card; the old one stays cached for back-navigation.
func (c *Client) Ensure(ctx context.Context, signature string, payload Payload) (*Card, error) {
	c.mu.Lock()
	if card, ok := c.cards[signature]; ok {
		c.mu.Unlock()
		return card, nil
	}
	c.mu.Unlock()

	// The idempotency key is derived from the signature, so two tabs
	// rendering the same scenario collapse to one card on the service side
	// even when both miss the local memo.
	card, err := c.render(ctx, payload, uuid.NewSHA1(uuid.NameSpaceOID, []byte(signature)).String())
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cards[signature] = card
	c.mu.Unlock()
	return card, nil
}

// Cached returns the memoized card for a signature without rendering.
func (c *Client) Cached(signature string) (*Card, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	card, ok := c.cards[signature]
	return card, ok
}

// absoluteURL resolves a service-relative path. Fully-qualified URLs pass
// through untouched. The public base wins when preferPublic is set and one
// is configured, so shared links work outside the deployment network.
func (c *Client) absoluteURL(path string, preferPublic bool) string {
	if path == "" {
		return path
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}

	base := c.serviceURL
	if preferPublic && c.publicBase != "" {
		base = c.publicBase
	}
	if base == "" {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}
