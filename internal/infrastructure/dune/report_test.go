package dune

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReport_SectionRouting(t *testing.T) {
	rows := []map[string]any{
		{"section": "summary", "trade_count": 42.0, "total_eth": 12.5, "total_usd": 30000.0,
			"platform_fee_eth": 0.3, "platform_fee_usd": 750.0, "first_trade": "2021-05-01T10:00:00Z"},
		{"section": "summary", "trade_count": 999.0}, // only the first summary row counts
		{"section": "buyer_seller", "role": "buyer", "trade_count": 30.0},
		{"section": "buyer_seller", "role": "seller", "trade_count": 12.0},
		{"section": "collection", "collection": "CryptoPunks", "trade_count": 5.0, "total_usd": 600.0},
		{"section": "collection", "collection": "Doodles", "trade_count": 2.0, "total_usd": 300.0},
		{"section": "unrelated", "total_usd": 1e9},
	}

	report := BuildReport(rows)

	require.NotNil(t, report.Summary)
	assert.Equal(t, 42, report.Summary.TradeCount)
	assert.Equal(t, 12.5, report.Summary.TotalETH)
	assert.Equal(t, 30000.0, report.Summary.TotalUSD)
	assert.Equal(t, 750.0, report.Summary.PlatformFeeUSD)
	assert.Equal(t, "2021-05-01T10:00:00Z", report.Summary.FirstTrade)

	assert.Len(t, report.BuyerSeller, 2)
	assert.Equal(t, "buyer", report.BuyerSeller[0]["role"])

	require.Len(t, report.Collections, 2)
	assert.Equal(t, "CryptoPunks", report.Collections[0].Name)
	assert.False(t, report.Empty())
	assert.Equal(t, 30000.0, report.TotalUSD())
}

func TestBuildReport_EmptyRows(t *testing.T) {
	report := BuildReport(nil)

	assert.True(t, report.Empty())
	assert.Nil(t, report.Summary)
	assert.NotNil(t, report.BuyerSeller)
	assert.NotNil(t, report.Collections)
	assert.Equal(t, 0.0, report.TotalUSD())
}

func TestBuildReport_CoercesStringNumbers(t *testing.T) {
	rows := []map[string]any{
		{"section": "summary", "trade_count": "17", "total_usd": "1234.5", "total_eth": nil},
	}

	report := BuildReport(rows)

	require.NotNil(t, report.Summary)
	assert.Equal(t, 17, report.Summary.TradeCount)
	assert.Equal(t, 1234.5, report.Summary.TotalUSD)
	assert.Equal(t, 0.0, report.Summary.TotalETH)
}

func TestBuildReport_RanksCollectionsByVolume(t *testing.T) {
	rows := []map[string]any{
		{"section": "summary", "total_usd": 1000.0}, // shares divide by the wallet total
		{"section": "collection", "collection": "Small", "total_usd": 100.0, "trade_count": 1.0},
		{"section": "collection", "label": "Big", "total_usd": 600.0, "trade_count": 9.0},
		{"section": "collection", "project_slug": "mid-project", "total_usd": 300.0, "trade_count": 4.0},
		{"section": "collection", "total_usd": 0.0},
	}

	report := BuildReport(rows)
	require.Len(t, report.Collections, 4)

	// sorted by USD descending, names resolved through the fallback chain
	assert.Equal(t, "Big", report.Collections[0].Name)
	assert.Equal(t, "mid-project", report.Collections[1].Name)
	assert.Equal(t, "Small", report.Collections[2].Name)
	assert.Equal(t, "Unknown collection", report.Collections[3].Name)

	assert.Equal(t, 60.0, report.Collections[0].ShareUSDPct)
	assert.Equal(t, 30.0, report.Collections[1].ShareUSDPct)
	assert.Equal(t, 10.0, report.Collections[2].ShareUSDPct)
	assert.Equal(t, 0.0, report.Collections[3].ShareUSDPct)
}

func TestBuildReport_ZeroVolumeCollectionsKeepZeroShare(t *testing.T) {
	rows := []map[string]any{
		{"section": "collection", "collection": "A", "total_usd": 0.0},
		{"section": "collection", "collection": "B", "total_usd": 0.0},
	}

	report := BuildReport(rows)
	require.Len(t, report.Collections, 2)
	for _, row := range report.Collections {
		assert.Equal(t, 0.0, row.ShareUSDPct)
	}
}

func TestWalletReport_NilReceivers(t *testing.T) {
	var report *WalletReport
	assert.True(t, report.Empty())
	assert.Equal(t, 0.0, report.TotalUSD())
}
