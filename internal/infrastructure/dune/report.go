package dune

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/seamom/ogdrop/internal/distribution"
)

// Summary aggregates a wallet's lifetime OpenSea activity.
type Summary struct {
	TradeCount     int     `json:"trade_count"`
	TotalETH       float64 `json:"total_eth"`
	TotalUSD       float64 `json:"total_usd"`
	PlatformFeeETH float64 `json:"platform_fee_eth"`
	PlatformFeeUSD float64 `json:"platform_fee_usd"`
	RoyaltyFeeETH  float64 `json:"royalty_fee_eth"`
	RoyaltyFeeUSD  float64 `json:"royalty_fee_usd"`
	FirstTrade     string  `json:"first_trade,omitempty"`
	LastTrade      string  `json:"last_trade,omitempty"`
	LastActivity   string  `json:"last_activity,omitempty"`
}

// CollectionRow is one collection's slice of the wallet's volume.
type CollectionRow struct {
	Name        string  `json:"collection"`
	TradeCount  int     `json:"trade_count"`
	TotalETH    float64 `json:"total_eth"`
	TotalUSD    float64 `json:"total_usd"`
	ShareUSDPct float64 `json:"share_usd_pct"`
}

// WalletReport is the shaped result of one wallet-stats query run.
type WalletReport struct {
	Wallet      string           `json:"wallet"`
	Summary     *Summary         `json:"summary"`
	BuyerSeller []map[string]any `json:"buyer_seller"`
	Collections []CollectionRow  `json:"collections"`
	FetchedAt   time.Time        `json:"fetched_at"`
}

// Empty reports whether the query produced no rows for the wallet.
func (r *WalletReport) Empty() bool {
	if r == nil {
		return true
	}
	return r.Summary == nil && len(r.BuyerSeller) == 0 && len(r.Collections) == 0
}

// TotalUSD returns the wallet's lifetime USD volume, zero when unknown.
func (r *WalletReport) TotalUSD() float64 {
	if r == nil || r.Summary == nil {
		return 0
	}
	return r.Summary.TotalUSD
}

// FetchWalletReport runs the query for one address and shapes the rows into
// a report. A wallet with no activity yields an empty report, not an error.
func (c *Client) FetchWalletReport(ctx context.Context, wallet string) (*WalletReport, error) {
	rows, err := c.FetchRows(ctx, wallet)
	if err != nil {
		return nil, err
	}
	report := BuildReport(rows)
	report.Wallet = wallet
	report.FetchedAt = time.Now().UTC()
	return report, nil
}

// BuildReport splits raw query rows into the summary, buyer/seller, and
// collection sections. The query emits one row per section, tagged by the
// "section" column; the first summary row wins.
func BuildReport(rows []map[string]any) *WalletReport {
	report := &WalletReport{
		BuyerSeller: []map[string]any{},
		Collections: []CollectionRow{},
	}

	var collections []CollectionRow
	for _, row := range rows {
		switch stringField(row, "section") {
		case "summary":
			if report.Summary == nil {
				report.Summary = parseSummary(row)
			}
		case "buyer_seller":
			report.BuyerSeller = append(report.BuyerSeller, row)
		case "collection":
			collections = append(collections, CollectionRow{
				Name:       collectionName(row),
				TradeCount: int(distribution.SafeFloat(row["trade_count"], 0)),
				TotalETH:   distribution.SafeFloat(row["total_eth"], 0),
				TotalUSD:   distribution.SafeFloat(row["total_usd"], 0),
			})
		}
	}

	report.Collections = rankCollections(collections, report.TotalUSD())
	return report
}

func parseSummary(row map[string]any) *Summary {
	return &Summary{
		TradeCount:     int(distribution.SafeFloat(row["trade_count"], 0)),
		TotalETH:       distribution.SafeFloat(row["total_eth"], 0),
		TotalUSD:       distribution.SafeFloat(row["total_usd"], 0),
		PlatformFeeETH: distribution.SafeFloat(row["platform_fee_eth"], 0),
		PlatformFeeUSD: distribution.SafeFloat(row["platform_fee_usd"], 0),
		RoyaltyFeeETH:  distribution.SafeFloat(row["royalty_fee_eth"], 0),
		RoyaltyFeeUSD:  distribution.SafeFloat(row["royalty_fee_usd"], 0),
		FirstTrade:     stringField(row, "first_trade"),
		LastTrade:      stringField(row, "last_trade"),
		LastActivity:   stringField(row, "last_activity"),
	}
}

// collectionNameKeys is the fallback order for naming a collection row.
// Dune query revisions have shipped several column spellings.
var collectionNameKeys = []string{
	"collection", "label", "collection_name", "collection_slug",
	"project", "project_slug", "name",
}

func collectionName(row map[string]any) string {
	for _, key := range collectionNameKeys {
		if name := stringField(row, key); name != "" {
			return name
		}
	}
	return "Unknown collection"
}

// rankCollections orders collections by USD volume and fills each row's
// share of the wallet's total volume. The denominator is the summary total,
// so shares can undershoot 100% when activity spans unlabelled collections.
func rankCollections(rows []CollectionRow, walletTotalUSD float64) []CollectionRow {
	if len(rows) == 0 {
		return []CollectionRow{}
	}

	for i := range rows {
		if walletTotalUSD != 0 {
			rows[i].ShareUSDPct = roundHalfEven(rows[i].TotalUSD/walletTotalUSD*100, 2)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].TotalUSD > rows[j].TotalUSD
	})
	return rows
}

func stringField(row map[string]any, key string) string {
	if value, ok := row[key].(string); ok {
		return value
	}
	return ""
}

func roundHalfEven(value float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.RoundToEven(value*scale) / scale
}
