package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedParams() Params {
	return Params{
		TotalSupply: 1_000_000_000,
		OGPoolPct:   15,
		FDVBillion:  4,
		CohortSize:  100_000,
		TierPct:     10,
	}
}

func TestBuildShareTable_RowsInInputOrder(t *testing.T) {
	rows, err := BuildShareTable([]float64{20, 30, 40}, fixedParams())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, 20.0, rows[0].SharePct)
	assert.InDelta(t, 3000.0, rows[0].TokensPerWallet, 1e-9)
	assert.InDelta(t, 12000.0, rows[0].USDValue, 1e-9)

	assert.Equal(t, 30.0, rows[1].SharePct)
	assert.InDelta(t, 4500.0, rows[1].TokensPerWallet, 1e-9)

	assert.Equal(t, 40.0, rows[2].SharePct)
	assert.InDelta(t, 24000.0, rows[2].USDValue, 1e-9)
}

func TestBuildShareTable_RoundsToTwoDecimals(t *testing.T) {
	// 70k wallets at 10% puts 7,000 in the tier; 25% of the pool does not
	// divide evenly, so display rounding kicks in.
	fixed := fixedParams()
	fixed.CohortSize = 70_000

	rows, err := BuildShareTable([]float64{25}, fixed)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 5357.14, rows[0].TokensPerWallet, 1e-9)
	assert.InDelta(t, 21428.57, rows[0].USDValue, 1e-9)
}

func TestBuildShareTable_DuplicatesCarryThrough(t *testing.T) {
	rows, err := BuildShareTable([]float64{20, 20}, fixedParams())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, rows[0], rows[1])
}

func TestBuildShareTable_PropagatesSupplyError(t *testing.T) {
	fixed := fixedParams()
	fixed.TotalSupply = 0
	_, err := BuildShareTable([]float64{20}, fixed)
	require.Error(t, err)
}

func TestBuildHeatmapData_ShareMajorOrder(t *testing.T) {
	cells, err := BuildHeatmapData([]float64{20, 30}, []float64{3, 4, 5}, fixedParams())
	require.NoError(t, err)
	require.Len(t, cells, 6)

	wantOrder := []struct{ share, fdv float64 }{
		{20, 3}, {20, 4}, {20, 5},
		{30, 3}, {30, 4}, {30, 5},
	}
	for i, want := range wantOrder {
		assert.Equal(t, want.share, cells[i].SharePct, "cell %d share", i)
		assert.Equal(t, want.fdv, cells[i].FDVBillion, "cell %d fdv", i)
	}

	assert.InDelta(t, 3000.0, cells[0].TokensPerWallet, 1e-9)
	assert.InDelta(t, 9000.0, cells[0].USDValue, 1e-9)
	assert.InDelta(t, 4500.0, cells[5].TokensPerWallet, 1e-9)
	assert.InDelta(t, 22500.0, cells[5].USDValue, 1e-9)
}

func TestBuildHeatmapData_Unrounded(t *testing.T) {
	fixed := fixedParams()
	fixed.CohortSize = 70_000

	cells, err := BuildHeatmapData([]float64{25}, []float64{4}, fixed)
	require.NoError(t, err)
	require.Len(t, cells, 1)
	// The chart consumes raw values; nothing is trimmed to cents.
	assert.InEpsilon(t, 37_500_000.0/7_000.0, cells[0].TokensPerWallet, 1e-12)
}

func TestBuildHeatmapData_PropagatesSupplyError(t *testing.T) {
	fixed := fixedParams()
	fixed.TotalSupply = -1
	_, err := BuildHeatmapData([]float64{20}, []float64{4}, fixed)
	require.Error(t, err)
}
