package scenario

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/seamom/ogdrop/internal/distribution"
)

// CohortSpec is one cohort as the context builder sees it: display metadata
// plus the loaded distribution and its estimated population.
type CohortSpec struct {
	Key           string
	Slug          string
	Title         string
	TimelineLabel string
	Tagline       string
	Description   string
	Distribution  []distribution.Bucket
	Estimate      int
}

// CurvePoint is one charted point of a cohort's payout curve.
type CurvePoint struct {
	Scenario   string  `json:"scenario"`
	Percentile float64 `json:"percentile"`
	USD        float64 `json:"usd"`
	MinUSD     float64 `json:"min_usd"`
	MaxUSD     float64 `json:"max_usd"`
}

// CohortCard is the rendered comparison card for one cohort.
type CohortCard struct {
	Title        string       `json:"title"`
	Subtitle     string       `json:"subtitle"`
	PayoutText   string       `json:"payout_text"`
	TokensText   string       `json:"tokens_text"`
	WalletsText  string       `json:"wallets_text"`
	BandText     string       `json:"band_text,omitempty"`
	IsPrimary    bool         `json:"is_primary"`
	CohortSize   int          `json:"cohort_size"`
	USDValue     float64      `json:"usd_value"`
	TokensValue  float64      `json:"tokens_value"`
	FullLabel    string       `json:"full_label"`
	CurvePoints  []CurvePoint `json:"curve_points"`
	HighlightMid *float64     `json:"highlight_mid,omitempty"`
	HighlightUSD *float64     `json:"highlight_usd,omitempty"`
}

// BandSummary condenses a cohort's band placement for the cross-cohort
// bullet list. Start, End and Mid are nil when the wallet could not be placed.
type BandSummary struct {
	Label      string   `json:"label"`
	Start      *float64 `json:"start"`
	End        *float64 `json:"end"`
	Mid        *float64 `json:"mid"`
	CohortSize int      `json:"cohort_size"`
}

// RevealStep is one stage of the estimate reveal sequence.
type RevealStep struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Snapshot carries the derived numbers the results panel renders.
type Snapshot struct {
	TokenPrice    float64       `json:"token_price"`
	WalletsInTier int           `json:"wallets_in_tier"`
	OGPoolTokens  float64       `json:"og_pool_tokens"`
	FeaturedShare float64       `json:"featured_share"`
	TierPct       float64       `json:"tier_pct"`
	ShareTable    []ShareRow    `json:"share_table"`
	Heatmap       []HeatmapCell `json:"heatmap"`
	Steps         []RevealStep  `json:"steps"`
}

// Context is everything one dashboard render needs: per-cohort cards and
// bands, flattened curve points, the primary cohort's headline result, the
// reveal sequence, and the control signature for prefetch invalidation.
type Context struct {
	Cards                []CohortCard           `json:"scenario_cards"`
	Snapshot             Snapshot               `json:"scenario_snapshot"`
	Bands                map[string]BandSummary `json:"scenario_bands"`
	CurveRows            []CurvePoint           `json:"curve_rows"`
	PrimaryResult        Result                 `json:"primary_result"`
	PrimaryLabel         string                 `json:"primary_label"`
	PrimaryCohortWallets int                    `json:"primary_cohort_wallets"`
	Steps                []RevealStep           `json:"steps_for_reveal"`
	Signature            string                 `json:"signature"`
	FeaturedShare        float64                `json:"featured_share"`
	TokenPrice           float64                `json:"token_price"`
	TotalUSDSnapshot     float64                `json:"total_usd_snapshot"`
}

// ContextRequest carries everything one scenario build needs. A zero
// TotalSupply means DefaultTotalSupply. WalletTotalUSD nil means no wallet
// report is attached to the session; band placement is skipped entirely.
type ContextRequest struct {
	Cohorts        []CohortSpec
	PrimaryKey     string
	Session        SessionContext
	WalletTotalUSD *float64
	TotalSupply    float64
}

// BuildScenarioContext evaluates every cohort under the shared session
// controls. Non-primary cohorts run at a cohort size scaled by their
// estimated population relative to the primary's, so one slider drives
// comparable head counts everywhere.
func BuildScenarioContext(req ContextRequest) (*Context, error) {
	totalSupply := req.TotalSupply
	if totalSupply == 0 {
		totalSupply = DefaultTotalSupply
	}
	if totalSupply <= 0 {
		return nil, fmt.Errorf("build scenario context: total supply must be positive, got %v", totalSupply)
	}
	if len(req.Cohorts) == 0 {
		return nil, fmt.Errorf("build scenario context: no cohorts supplied")
	}

	var primary *CohortSpec
	for i := range req.Cohorts {
		if req.Cohorts[i].Key == req.PrimaryKey {
			primary = &req.Cohorts[i]
			break
		}
	}
	if primary == nil {
		return nil, fmt.Errorf("build scenario context: unknown primary cohort %q", req.PrimaryKey)
	}

	session := req.Session

	totalUSDSnapshot := 0.0
	if req.WalletTotalUSD != nil && len(primary.Distribution) > 0 {
		totalUSDSnapshot = *req.WalletTotalUSD
	}

	shareOptions := session.SharePcts
	if len(shareOptions) == 0 {
		shareOptions = DefaultSharePcts()
	}
	featuredShare := shareOptions[0]

	tokenPrice := TokenPrice(session.FDVBillion, totalSupply)

	baseEstimate := primary.Estimate
	if baseEstimate <= 0 {
		baseEstimate = session.CohortSize
	}
	if baseEstimate < 1 {
		baseEstimate = 1
	}

	cards := make([]CohortCard, 0, len(req.Cohorts))
	bands := make(map[string]BandSummary, len(req.Cohorts))
	curveRows := make([]CurvePoint, 0)

	var primaryResult Result
	primaryLabel := primary.Title
	if primaryLabel == "" {
		primaryLabel = primary.Key
	}
	primaryCohortWallets := session.CohortSize

	for _, spec := range req.Cohorts {
		estimate := spec.Estimate
		if estimate == 0 {
			estimate = baseEstimate
		}
		factor := float64(estimate) / float64(baseEstimate)
		scaledSize := int(math.RoundToEven(float64(session.CohortSize) * factor))
		if scaledSize < 1 {
			scaledSize = 1
		}

		result, err := ComputeScenario(Params{
			TotalSupply: totalSupply,
			OGPoolPct:   session.OGPoolPct,
			FDVBillion:  session.FDVBillion,
			CohortSize:  float64(scaledSize),
			TierPct:     session.TierPct,
			SharePct:    featuredShare,
		})
		if err != nil {
			return nil, err
		}

		bandText := ""
		var startPct, endPct, bandMid *float64
		if req.WalletTotalUSD != nil && len(spec.Distribution) > 0 {
			if band := DeterminePercentileBand(totalUSDSnapshot, spec.Distribution, scaledSize); band != nil {
				start, end := band.StartPercentile, band.EndPercentile
				mid := (start + end) / 2
				startPct, endPct, bandMid = &start, &end, &mid
				bandText = fmt.Sprintf("Wallet percentile: %.1f%% – %.1f%%", start, end)
			}
		}

		title := spec.Title
		if title == "" {
			title = spec.Key
		}
		subtitle := joinNonEmpty(" · ", spec.TimelineLabel, spec.Tagline)
		if subtitle == "" {
			subtitle = spec.Key
		}

		fullLabel := title
		if spec.TimelineLabel != "" {
			fullLabel = title + " · " + spec.TimelineLabel
		}

		walletsText := "Wallets modelled: " + Comma(scaledSize)
		if spec.Estimate != 0 {
			walletsText += " (est. " + Comma(spec.Estimate) + ")"
		}

		bands[spec.Key] = BandSummary{
			Label:      fullLabel,
			Start:      startPct,
			End:        endPct,
			Mid:        bandMid,
			CohortSize: scaledSize,
		}

		cardPoints := extractCurvePoints(fullLabel, spec.Distribution)
		curveRows = append(curveRows, cardPoints...)

		var highlightUSD *float64
		if totalUSDSnapshot > 0 {
			usd := totalUSDSnapshot
			highlightUSD = &usd
		}

		cards = append(cards, CohortCard{
			Title:      title,
			Subtitle:   subtitle,
			PayoutText: "≈ $" + Commaf(result.USDValue, 0),
			TokensText: fmt.Sprintf("Ξ%s per wallet · %s%% share",
				Commaf(result.TokensPerWallet, 0), strconv.FormatFloat(featuredShare, 'f', 0, 64)),
			WalletsText:  walletsText,
			BandText:     bandText,
			IsPrimary:    spec.Key == req.PrimaryKey,
			CohortSize:   scaledSize,
			USDValue:     result.USDValue,
			TokensValue:  result.TokensPerWallet,
			FullLabel:    fullLabel,
			CurvePoints:  cardPoints,
			HighlightMid: bandMid,
			HighlightUSD: highlightUSD,
		})

		if spec.Key == req.PrimaryKey {
			primaryResult = result
			primaryCohortWallets = scaledSize
			if fullLabel != "" {
				primaryLabel = fullLabel
			}
		}
	}

	primaryWalletsInTier := int(math.RoundToEven(float64(primaryCohortWallets) * (session.TierPct / 100)))
	if primaryWalletsInTier < 1 {
		primaryWalletsInTier = 1
	}

	steps := buildRevealSteps(session, totalSupply, tokenPrice, featuredShare, primaryWalletsInTier, primaryResult)

	fixed := Params{
		TotalSupply: totalSupply,
		OGPoolPct:   session.OGPoolPct,
		FDVBillion:  session.FDVBillion,
		CohortSize:  float64(session.CohortSize),
		TierPct:     session.TierPct,
	}
	shareTable, err := BuildShareTable(shareOptions, fixed)
	if err != nil {
		return nil, err
	}
	heatmap, err := BuildHeatmapData(shareOptions, session.FDVSensitivity, fixed)
	if err != nil {
		return nil, err
	}

	return &Context{
		Cards: cards,
		Snapshot: Snapshot{
			TokenPrice:    tokenPrice,
			WalletsInTier: primaryWalletsInTier,
			OGPoolTokens:  totalSupply * (session.OGPoolPct / 100),
			FeaturedShare: featuredShare,
			TierPct:       session.TierPct,
			ShareTable:    shareTable,
			Heatmap:       heatmap,
			Steps:         steps,
		},
		Bands:                bands,
		CurveRows:            curveRows,
		PrimaryResult:        primaryResult,
		PrimaryLabel:         primaryLabel,
		PrimaryCohortWallets: primaryCohortWallets,
		Steps:                steps,
		Signature:            Signature(session),
		FeaturedShare:        featuredShare,
		TokenPrice:           tokenPrice,
		TotalUSDSnapshot:     totalUSDSnapshot,
	}, nil
}

// Signature returns a stable identity for a control combination. Share cards
// prefetched under one signature are discarded as soon as any control moves.
func Signature(s SessionContext) string {
	return fmt.Sprintf("%v|%v|%d|%v|%v|%v",
		s.OGPoolPct, s.FDVBillion, s.CohortSize, s.TierPct, s.SharePcts, s.FDVSensitivity)
}

// extractCurvePoints flattens a distribution into chartable points. Rows with
// a non-positive percentile or USD value are skipped silently; the charts
// tolerate sparse data better than a blocked render.
func extractCurvePoints(label string, dist []distribution.Bucket) []CurvePoint {
	points := make([]CurvePoint, 0, len(dist))
	for _, bucket := range dist {
		if bucket.PercentileRank <= 0 {
			continue
		}
		usd := bucket.MaxTotalUSD
		if bucket.MinTotalUSD > usd {
			usd = bucket.MinTotalUSD
		}
		if usd <= 0 {
			continue
		}
		points = append(points, CurvePoint{
			Scenario:   label,
			Percentile: bucket.PercentileRank,
			USD:        usd,
			MinUSD:     bucket.MinTotalUSD,
			MaxUSD:     bucket.MaxTotalUSD,
		})
	}
	return points
}

func buildRevealSteps(session SessionContext, totalSupply, tokenPrice, featuredShare float64, walletsInTier int, primary Result) []RevealStep {
	return []RevealStep{
		{
			Title: "Token price",
			Text: fmt.Sprintf("FDV $%sB / %s SEA = $%s per token",
				Commaf(session.FDVBillion, 0), Comma(int(totalSupply)), Commaf(tokenPrice, 2)),
		},
		{
			Title: "OG pool allocation",
			Text: fmt.Sprintf("%g%% of supply reserved for OGs → %s SEA available to distribute",
				session.OGPoolPct, Commaf(totalSupply*(session.OGPoolPct/100), 0)),
		},
		{
			Title: "Tier sizing",
			Text: fmt.Sprintf("%s equates to roughly %s wallets competing",
				FormatPercentileOption(session.TierPct), Comma(walletsInTier)),
		},
		{
			Title: "Tier share assumption",
			Text: fmt.Sprintf("Using a %g%% slice of the OG pool for your tier gives %s SEA each",
				featuredShare, Commaf(primary.TokensPerWallet, 0)),
		},
		{
			Title: "Estimated payout",
			Text: fmt.Sprintf("At $%s/SEA that works out to ≈ $%s",
				Commaf(tokenPrice, 2), Commaf(primary.USDValue, 0)),
		},
	}
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, sep)
}
