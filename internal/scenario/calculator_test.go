package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeScenario_Baseline(t *testing.T) {
	result, err := ComputeScenario(Params{
		TotalSupply: 1_000_000_000,
		OGPoolPct:   15,
		FDVBillion:  4,
		CohortSize:  100_000,
		TierPct:     10,
		SharePct:    20,
	})
	require.NoError(t, err)

	// 150M pool, 10k tier wallets, 20% slice => 3,000 SEA at $4.00 each
	assert.InDelta(t, 3000.0, result.TokensPerWallet, 1e-9)
	assert.InDelta(t, 12000.0, result.USDValue, 1e-9)
	assert.Equal(t, 20.0, result.SharePct)
	assert.Equal(t, 4.0, result.FDVBillion)
}

func TestComputeScenario_TierFloorPreventsDivisionBlowup(t *testing.T) {
	// 5 wallets at 10% is half a wallet; the floor hands the slice to one.
	result, err := ComputeScenario(Params{
		TotalSupply: 1_000_000_000,
		OGPoolPct:   15,
		FDVBillion:  4,
		CohortSize:  5,
		TierPct:     10,
		SharePct:    20,
	})
	require.NoError(t, err)
	assert.InDelta(t, 30_000_000.0, result.TokensPerWallet, 1e-6)
	assert.InDelta(t, 120_000_000.0, result.USDValue, 1e-6)
}

func TestComputeScenario_FractionalTierDivisor(t *testing.T) {
	// 12,345 wallets at 0.1% is 12.345 wallets and stays that way: the
	// divisor is never truncated to a whole wallet count.
	result, err := ComputeScenario(Params{
		TotalSupply: 1_000_000_000,
		OGPoolPct:   15,
		FDVBillion:  4,
		CohortSize:  12_345,
		TierPct:     0.1,
		SharePct:    20,
	})
	require.NoError(t, err)
	assert.InEpsilon(t, 30_000_000.0/12.345, result.TokensPerWallet, 1e-12)
}

func TestComputeScenario_RejectsNonPositiveSupply(t *testing.T) {
	for _, supply := range []float64{0, -1, -1_000_000_000} {
		_, err := ComputeScenario(Params{TotalSupply: supply, OGPoolPct: 15, FDVBillion: 4})
		require.Error(t, err, "supply %v must be rejected", supply)
		assert.Contains(t, err.Error(), "total supply")
	}
}

func TestComputeScenario_Monotonicity(t *testing.T) {
	base := Params{
		TotalSupply: 1_000_000_000,
		OGPoolPct:   15,
		FDVBillion:  4,
		CohortSize:  100_000,
		TierPct:     10,
		SharePct:    20,
	}

	t.Run("usd rises with share", func(t *testing.T) {
		prev := -1.0
		for share := 5.0; share <= 50; share += 5 {
			p := base
			p.SharePct = share
			result, err := ComputeScenario(p)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, result.USDValue, prev)
			prev = result.USDValue
		}
	})

	t.Run("usd rises with fdv", func(t *testing.T) {
		prev := -1.0
		for fdv := 1.0; fdv <= 7; fdv++ {
			p := base
			p.FDVBillion = fdv
			result, err := ComputeScenario(p)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, result.USDValue, prev)
			prev = result.USDValue
		}
	})

	t.Run("usd falls as cohort grows", func(t *testing.T) {
		prev := -1.0
		for _, size := range []float64{50_000, 100_000, 200_000, 500_000} {
			p := base
			p.CohortSize = size
			result, err := ComputeScenario(p)
			require.NoError(t, err)
			if prev >= 0 {
				assert.LessOrEqual(t, result.USDValue, prev)
			}
			prev = result.USDValue
		}
	})

	t.Run("usd falls as tier widens", func(t *testing.T) {
		prev := -1.0
		for _, tier := range []float64{1, 5, 10, 25, 50} {
			p := base
			p.TierPct = tier
			result, err := ComputeScenario(p)
			require.NoError(t, err)
			if prev >= 0 {
				assert.LessOrEqual(t, result.USDValue, prev)
			}
			prev = result.USDValue
		}
	})
}

func TestTokenPrice_ScaleIdentity(t *testing.T) {
	cases := []struct {
		fdvBillion  float64
		totalSupply float64
		want        float64
	}{
		{4, 1_000_000_000, 4.0},
		{2.5, 500_000_000, 5.0},
		{7, 1_000_000_000, 7.0},
		{1, 2_000_000_000, 0.5},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TokenPrice(tc.fdvBillion, tc.totalSupply),
			"fdv=%vB supply=%v", tc.fdvBillion, tc.totalSupply)
	}
}
