// Package scenario implements the payout projection engine: pure arithmetic
// over economic assumptions, percentile band placement within a cohort
// distribution, slider option generation, and the multi-cohort context that
// feeds the dashboard.
package scenario

import "fmt"

// DefaultTotalSupply is the fixed SEA supply every projection assumes.
const DefaultTotalSupply = 1_000_000_000

// Params bundles the economic assumptions for one projection. Every
// percentage field is on a 0-100 scale, not a fraction.
type Params struct {
	TotalSupply float64 `json:"total_supply"`
	OGPoolPct   float64 `json:"og_pool_pct"`
	FDVBillion  float64 `json:"fdv_billion"`
	CohortSize  float64 `json:"cohort_size"`
	TierPct     float64 `json:"tier_pct"`
	SharePct    float64 `json:"share_pct"`
}

// Result is the projected outcome for a single share/FDV combination.
type Result struct {
	SharePct        float64 `json:"share_pct"`
	FDVBillion      float64 `json:"fdv_billion"`
	TokensPerWallet float64 `json:"tokens_per_wallet"`
	USDValue        float64 `json:"usd_value"`
}

// ComputeScenario projects the per-wallet payout for one parameter set.
//
// The tier head count stays fractional: it is only ever a divisor, never a
// displayed wallet count, and the max(1, n) floor keeps tiny cohorts from
// dividing by zero. A non-positive total supply is a configuration error and
// the one condition reported as a hard failure.
func ComputeScenario(p Params) (Result, error) {
	if p.TotalSupply <= 0 {
		return Result{}, fmt.Errorf("compute scenario: total supply must be positive, got %v", p.TotalSupply)
	}

	ogPoolTokens := p.TotalSupply * (p.OGPoolPct / 100)
	walletsInTier := p.CohortSize * (p.TierPct / 100)
	if walletsInTier < 1 {
		walletsInTier = 1
	}
	tokensPerWallet := ogPoolTokens * (p.SharePct / 100) / walletsInTier
	tokenPrice := TokenPrice(p.FDVBillion, p.TotalSupply)

	return Result{
		SharePct:        p.SharePct,
		FDVBillion:      p.FDVBillion,
		TokensPerWallet: tokensPerWallet,
		USDValue:        tokensPerWallet * tokenPrice,
	}, nil
}

// TokenPrice returns the implied price for an FDV expressed in billions.
// Callers must guarantee totalSupply > 0.
func TokenPrice(fdvBillion, totalSupply float64) float64 {
	return fdvBillion * 1_000_000_000 / totalSupply
}
