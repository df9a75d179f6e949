package sharecard

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/seamom/ogdrop/internal/infrastructure/dune"
	"github.com/seamom/ogdrop/internal/scenario"
)

// Payload is the card service request body. Key casing follows the card
// renderer's API, not this module's JSON conventions.
type Payload struct {
	Wallet          string  `json:"wallet"`
	PayoutUSD       float64 `json:"payoutUsd"`
	PayoutTokens    float64 `json:"payoutTokens"`
	TokenPrice      float64 `json:"tokenPrice"`
	CohortLabel     string  `json:"cohortLabel"`
	CohortWallets   int     `json:"cohortWallets"`
	PercentileLabel string  `json:"percentileLabel"`
	SharePct        float64 `json:"sharePct"`
	FDVBillion      float64 `json:"fdvBillion"`
	OGPoolPct       float64 `json:"ogPoolPct"`
	TradeCount      int     `json:"tradeCount"`
	TotalETH        float64 `json:"totalEth"`
	TotalUSD        float64 `json:"totalUsd"`
	AsOf            string  `json:"asOf,omitempty"`
}

// PayloadInputs collects everything a card needs: the wallet's history and
// the scenario the user just revealed.
type PayloadInputs struct {
	WalletAddress        string
	Report               *dune.WalletReport
	Result               scenario.Result
	TierPct              float64
	PrimaryLabel         string
	PrimaryCohortWallets int
	FeaturedShare        float64
	FDVBillion           float64
	OGPoolPct            float64
	TokenPrice           float64
}

// BuildPayload assembles the card request. It reports false when there is
// no wallet history to put on a card.
func BuildPayload(in PayloadInputs) (Payload, bool) {
	if in.WalletAddress == "" || in.Report == nil || in.Report.Summary == nil {
		return Payload{}, false
	}

	summary := in.Report.Summary
	asOf := summary.LastTrade
	if asOf == "" {
		asOf = summary.LastActivity
	}

	return Payload{
		Wallet:          in.WalletAddress,
		PayoutUSD:       in.Result.USDValue,
		PayoutTokens:    in.Result.TokensPerWallet,
		TokenPrice:      in.TokenPrice,
		CohortLabel:     in.PrimaryLabel,
		CohortWallets:   in.PrimaryCohortWallets,
		PercentileLabel: scenario.FormatPercentileOption(in.TierPct),
		SharePct:        in.FeaturedShare,
		FDVBillion:      in.FDVBillion,
		OGPoolPct:       in.OGPoolPct,
		TradeCount:      summary.TradeCount,
		TotalETH:        summary.TotalETH,
		TotalUSD:        summary.TotalUSD,
		AsOf:            asOf,
	}, true
}

// PrefetchResult is the outcome of pre-rendering a card ahead of the share
// panel. A failed render carries the payload and a warning so the panel can
// offer a manual retry.
type PrefetchResult struct {
	Card    *Card    `json:"card,omitempty"`
	Payload *Payload `json:"payload,omitempty"`
	Warning string   `json:"warning,omitempty"`
}

// Prefetch renders (or loads) the card for the current scenario signature.
// Wallets without history short-circuit to an empty result.
func (c *Client) Prefetch(ctx context.Context, signature string, in PayloadInputs) PrefetchResult {
	payload, ok := BuildPayload(in)
	if !ok {
		return PrefetchResult{}
	}

	card, err := c.Ensure(ctx, signature, payload)
	if err != nil {
		log.Warn().Err(err).Str("wallet", payload.Wallet).Msg("Share preview unavailable")
		return PrefetchResult{Payload: &payload, Warning: err.Error()}
	}
	return PrefetchResult{Card: card, Payload: &payload}
}

// FormatWallet shortens an address for card captions. Case is preserved.
func FormatWallet(address string) string {
	value := strings.TrimSpace(address)
	if len(value) <= 12 {
		return value
	}
	return value[:6] + "…" + value[len(value)-4:]
}
