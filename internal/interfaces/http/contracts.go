package http

import (
	"time"

	"github.com/seamom/ogdrop/internal/cohort"
	"github.com/seamom/ogdrop/internal/distribution"
	"github.com/seamom/ogdrop/internal/infrastructure/db"
	"github.com/seamom/ogdrop/internal/infrastructure/dune"
	"github.com/seamom/ogdrop/internal/infrastructure/reportcache"
	"github.com/seamom/ogdrop/internal/scenario"
)

// ErrorResponse is the standard error envelope for all endpoints.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse reports component health for GET /health.
type HealthResponse struct {
	Status        string                  `json:"status"`
	Timestamp     time.Time               `json:"timestamp"`
	UptimeSeconds float64                 `json:"uptime_seconds"`
	Dune          DependencyHealth        `json:"dune"`
	ShareService  DependencyHealth        `json:"share_service"`
	Database      *db.HealthCheck         `json:"database,omitempty"`
	ReportCache   reportcache.Stats       `json:"report_cache"`
	Distributions distribution.CacheStats `json:"distribution_cache"`
}

// DependencyHealth describes an optional external collaborator.
type DependencyHealth struct {
	Configured bool `json:"configured"`
}

// CohortsResponse lists the configured cohorts for GET /cohorts.
type CohortsResponse struct {
	Primary string                          `json:"primary"`
	Cohorts []cohort.Summary                `json:"cohorts"`
	Sliders map[string]cohort.SliderOptions `json:"sliders"`
}

// PercentileOption pairs a tier value with its display label.
type PercentileOption struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

// PercentileOptionsResponse answers GET /options/percentiles.
type PercentileOptionsResponse struct {
	Options []PercentileOption `json:"options"`
	Default float64            `json:"default"`
}

// ConfigResponse exposes the dashboard constants the front end needs.
type ConfigResponse struct {
	TotalSupply   float64 `json:"total_supply"`
	RevealSeconds int     `json:"reveal_seconds"`
	DemoWallet    string  `json:"demo_wallet,omitempty"`
	PrimaryCohort string  `json:"primary_cohort"`
}

// ScenarioRequest carries the dashboard controls for POST /scenario.
type ScenarioRequest struct {
	Session        scenario.SessionContext `json:"session"`
	WalletTotalUSD *float64                `json:"wallet_total_usd,omitempty"`
}

// BandRequest places a USD volume inside one cohort's distribution.
type BandRequest struct {
	Cohort     string  `json:"cohort,omitempty"`
	TotalUSD   float64 `json:"total_usd"`
	CohortSize int     `json:"cohort_size,omitempty"`
}

// BandResponse answers POST /band.
type BandResponse struct {
	Cohort           string         `json:"cohort"`
	Label            string         `json:"label"`
	CohortSize       int            `json:"cohort_size"`
	Band             *scenario.Band `json:"band"`
	SuggestedTierPct *float64       `json:"suggested_tier_pct,omitempty"`
	SnappedTierPct   *float64       `json:"snapped_tier_pct,omitempty"`
	Bullet           string         `json:"bullet"`
	Note             string         `json:"note,omitempty"`
}

// WalletResponse is the personalised view for GET /wallet/{address}.
type WalletResponse struct {
	Address          string             `json:"address"`
	ShortAddress     string             `json:"short_address"`
	Cached           bool               `json:"cached"`
	Empty            bool               `json:"empty"`
	Report           *dune.WalletReport `json:"report"`
	Badge            *dune.OGBadge      `json:"badge,omitempty"`
	FeeRows          []dune.FeeRow      `json:"fee_rows"`
	FeeProfile       *dune.FeeProfile   `json:"fee_profile,omitempty"`
	Band             *scenario.Band     `json:"band,omitempty"`
	SuggestedTierPct *float64           `json:"suggested_tier_pct,omitempty"`
	SnappedTierPct   *float64           `json:"snapped_tier_pct,omitempty"`
	CohortEstimates  map[string]int     `json:"cohort_estimates"`
	Note             string             `json:"note,omitempty"`
}

// ShareCardRequest asks for a share card for the given wallet under the
// given dashboard controls.
type ShareCardRequest struct {
	Address string                  `json:"address"`
	Session scenario.SessionContext `json:"session"`
}
