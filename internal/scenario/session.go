package scenario

import "sort"

// Dashboard control defaults applied to an unset session.
const (
	DefaultTierPct    = 10.0
	DefaultCohortSize = 100_000
	DefaultOGPoolPct  = 15.0
	DefaultFDVBillion = 4.0
)

// DefaultSharePcts is the stock tier-share comparison list. The first entry
// powers the featured scenario.
func DefaultSharePcts() []float64 {
	return []float64{20, 30, 40}
}

// DefaultFDVSensitivity is the stock FDV sensitivity axis for the heatmap.
func DefaultFDVSensitivity() []float64 {
	return []float64{3, 4, 5}
}

// SessionContext is the explicit, serializable control state for one
// dashboard session. The engine only reads it; the host (HTTP client or
// WebSocket session) owns persistence between interactions.
type SessionContext struct {
	PrimaryCohort       string    `json:"primary_cohort,omitempty"`
	TierPct             float64   `json:"tier_pct"`
	CohortSize          int       `json:"cohort_size"`
	OGPoolPct           float64   `json:"og_pool_pct"`
	FDVBillion          float64   `json:"fdv_billion"`
	SharePcts           []float64 `json:"share_pcts"`
	FDVSensitivity      []float64 `json:"fdv_sensitivity"`
	WalletAddress       string    `json:"wallet_address,omitempty"`
	HasRevealedOnce     bool      `json:"has_revealed_once"`
	LastRevealSignature string    `json:"last_reveal_signature,omitempty"`
}

// DefaultSession returns a session populated with the stock control values.
func DefaultSession() SessionContext {
	return SessionContext{
		TierPct:        DefaultTierPct,
		CohortSize:     DefaultCohortSize,
		OGPoolPct:      DefaultOGPoolPct,
		FDVBillion:     DefaultFDVBillion,
		SharePcts:      DefaultSharePcts(),
		FDVSensitivity: DefaultFDVSensitivity(),
	}
}

// Normalize fills unset fields with their defaults, snaps the tier onto the
// offered percentile options, and guarantees the selected FDV appears in the
// sensitivity list (sorted and deduplicated when it has to be added).
func (s *SessionContext) Normalize() {
	if s.TierPct <= 0 {
		s.TierPct = DefaultTierPct
	}
	if s.CohortSize <= 0 {
		s.CohortSize = DefaultCohortSize
	}
	if s.OGPoolPct <= 0 {
		s.OGPoolPct = DefaultOGPoolPct
	}
	if s.FDVBillion <= 0 {
		s.FDVBillion = DefaultFDVBillion
	}
	if len(s.SharePcts) == 0 {
		s.SharePcts = DefaultSharePcts()
	}
	if len(s.FDVSensitivity) == 0 {
		s.FDVSensitivity = DefaultFDVSensitivity()
	}

	if options := PercentileOptions(); !containsFloat(options, s.TierPct) {
		s.TierPct = SnapToOption(s.TierPct, options)
	}

	if !containsFloat(s.FDVSensitivity, s.FDVBillion) {
		merged := make([]float64, 0, len(s.FDVSensitivity)+1)
		merged = append(merged, s.FDVSensitivity...)
		merged = append(merged, s.FDVBillion)
		sort.Float64s(merged)
		s.FDVSensitivity = dedupeSorted(merged)
	}
}

func containsFloat(values []float64, target float64) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func dedupeSorted(values []float64) []float64 {
	out := values[:0]
	for i, v := range values {
		if i == 0 || v != values[i-1] {
			out = append(out, v)
		}
	}
	return out
}
