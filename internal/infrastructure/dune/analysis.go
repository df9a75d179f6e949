package dune

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ogCutoff is the last moment of trading that still counts as OG activity.
var ogCutoff = time.Date(2023, time.December, 31, 23, 59, 59, 0, time.UTC)

// FeeRow is one line of the wallet's fee breakdown table. Values are
// decimals so the table renders with stable scale: ETH at 3 places, USD
// and percentages at 2.
type FeeRow struct {
	Kind   string          `json:"type"`
	ETH    decimal.Decimal `json:"eth"`
	USD    decimal.Decimal `json:"usd"`
	ETHPct decimal.Decimal `json:"eth_pct"`
	USDPct decimal.Decimal `json:"usd_pct"`
}

// FeeBreakdown builds the fee table for a wallet summary. Platform and
// royalty rows appear only when the wallet actually paid that fee; the net
// row appears whenever the wallet has any volume at all.
func FeeBreakdown(s *Summary) []FeeRow {
	if s == nil {
		return []FeeRow{}
	}

	rows := []FeeRow{}
	if s.PlatformFeeETH != 0 || s.PlatformFeeUSD != 0 {
		rows = append(rows, feeRow("Platform", s.PlatformFeeETH, s.PlatformFeeUSD, s.TotalETH, s.TotalUSD))
	}
	if s.RoyaltyFeeETH != 0 || s.RoyaltyFeeUSD != 0 {
		rows = append(rows, feeRow("Royalties", s.RoyaltyFeeETH, s.RoyaltyFeeUSD, s.TotalETH, s.TotalUSD))
	}
	if s.TotalETH != 0 || s.TotalUSD != 0 {
		netETH := s.TotalETH - s.PlatformFeeETH - s.RoyaltyFeeETH
		if netETH < 0 {
			netETH = 0
		}
		netUSD := s.TotalUSD - s.PlatformFeeUSD - s.RoyaltyFeeUSD
		if netUSD < 0 {
			netUSD = 0
		}
		rows = append(rows, feeRow("Net to trader", netETH, netUSD, s.TotalETH, s.TotalUSD))
	}
	return rows
}

func feeRow(kind string, eth, usd, totalETH, totalUSD float64) FeeRow {
	return FeeRow{
		Kind:   kind,
		ETH:    decimal.NewFromFloat(eth).RoundBank(3),
		USD:    decimal.NewFromFloat(usd).RoundBank(2),
		ETHPct: pctOf(eth, totalETH),
		USDPct: pctOf(usd, totalUSD),
	}
}

func pctOf(part, total float64) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(part / total * 100).RoundBank(2)
}

// FeeProfile is the headline fee split, computed on USD volume. NetPct is
// clamped so rounding noise never shows a negative take-home share.
type FeeProfile struct {
	PlatformPct decimal.Decimal `json:"platform_pct"`
	RoyaltyPct  decimal.Decimal `json:"royalty_pct"`
	NetPct      decimal.Decimal `json:"net_pct"`
	PlatformUSD decimal.Decimal `json:"platform_usd"`
	RoyaltyUSD  decimal.Decimal `json:"royalty_usd"`
	NetUSD      decimal.Decimal `json:"net_usd"`
}

// FeeProfileFor summarizes what share of the wallet's USD volume went to
// platform fees, royalties, and the trader.
func FeeProfileFor(s *Summary) FeeProfile {
	if s == nil {
		return FeeProfile{
			PlatformPct: decimal.Zero, RoyaltyPct: decimal.Zero, NetPct: decimal.NewFromInt(100),
			PlatformUSD: decimal.Zero, RoyaltyUSD: decimal.Zero, NetUSD: decimal.Zero,
		}
	}

	var platformPct, royaltyPct float64
	if s.TotalUSD != 0 {
		platformPct = s.PlatformFeeUSD / s.TotalUSD * 100
		royaltyPct = s.RoyaltyFeeUSD / s.TotalUSD * 100
	}
	netPct := 100 - platformPct - royaltyPct
	if netPct < 0 {
		netPct = 0
	}
	netUSD := s.TotalUSD - s.PlatformFeeUSD - s.RoyaltyFeeUSD
	if netUSD < 0 {
		netUSD = 0
	}

	return FeeProfile{
		PlatformPct: decimal.NewFromFloat(platformPct).RoundBank(1),
		RoyaltyPct:  decimal.NewFromFloat(royaltyPct).RoundBank(1),
		NetPct:      decimal.NewFromFloat(netPct).RoundBank(1),
		PlatformUSD: decimal.NewFromFloat(s.PlatformFeeUSD).RoundBank(0),
		RoyaltyUSD:  decimal.NewFromFloat(s.RoyaltyFeeUSD).RoundBank(0),
		NetUSD:      decimal.NewFromFloat(netUSD).RoundBank(0),
	}
}

// OGBadge states whether the wallet's first trade lands inside the OG
// qualification window.
type OGBadge struct {
	Qualified  bool   `json:"qualified"`
	Text       string `json:"text"`
	FirstTrade string `json:"first_trade"`
}

// BadgeFor evaluates the OG cutoff against the wallet's first trade. Only a
// parseable first trade at or before the cutoff qualifies; anything else,
// including a missing timestamp, shows as post-cutoff activity.
func BadgeFor(s *Summary) *OGBadge {
	if s == nil {
		return nil
	}

	badge := &OGBadge{FirstTrade: s.FirstTrade, Text: "Activity after OG cutoff"}
	if ts, ok := parseTimestamp(s.FirstTrade); ok && !ts.After(ogCutoff) {
		badge.Qualified = true
		badge.Text = "OG qualification confirmed"
	}
	return badge
}

// timestampLayouts covers the shapes Dune emits for trade timestamps.
// Naive values are treated as UTC.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05.000 MST",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// ShortAddress renders a wallet address as its first six and last four
// characters, the way the dashboard header shows it.
func ShortAddress(address string) string {
	lower := strings.ToLower(strings.TrimSpace(address))
	if len(lower) <= 10 {
		return lower
	}
	return lower[:6] + "…" + lower[len(lower)-4:]
}
