package scenario

import "math"

// ShareRow is one line of the tier-share comparison table. Token and USD
// figures are rounded to two decimals for display.
type ShareRow struct {
	SharePct        float64 `json:"share_pct"`
	TokensPerWallet float64 `json:"tokens_per_wallet"`
	USDValue        float64 `json:"usd_value"`
}

// HeatmapCell is one share/FDV combination, left unrounded because the chart
// consumes the raw values.
type HeatmapCell struct {
	SharePct        float64 `json:"share_pct"`
	FDVBillion      float64 `json:"fdv_billion"`
	TokensPerWallet float64 `json:"tokens_per_wallet"`
	USDValue        float64 `json:"usd_value"`
}

// BuildShareTable runs the calculator once per share percentage with the
// remaining parameters fixed. Input order and duplicates carry through.
func BuildShareTable(sharePcts []float64, fixed Params) ([]ShareRow, error) {
	rows := make([]ShareRow, 0, len(sharePcts))
	for _, share := range sharePcts {
		params := fixed
		params.SharePct = share
		result, err := ComputeScenario(params)
		if err != nil {
			return nil, err
		}
		rows = append(rows, ShareRow{
			SharePct:        result.SharePct,
			TokensPerWallet: round2(result.TokensPerWallet),
			USDValue:        round2(result.USDValue),
		})
	}
	return rows, nil
}

// BuildHeatmapData crosses share percentages with FDV points, share-major
// then FDV-minor, matching the iteration order of the inputs.
func BuildHeatmapData(sharePcts, fdvOptions []float64, fixed Params) ([]HeatmapCell, error) {
	cells := make([]HeatmapCell, 0, len(sharePcts)*len(fdvOptions))
	for _, share := range sharePcts {
		for _, fdv := range fdvOptions {
			params := fixed
			params.SharePct = share
			params.FDVBillion = fdv
			result, err := ComputeScenario(params)
			if err != nil {
				return nil, err
			}
			cells = append(cells, HeatmapCell{
				SharePct:        result.SharePct,
				FDVBillion:      result.FDVBillion,
				TokensPerWallet: result.TokensPerWallet,
				USDValue:        result.USDValue,
			})
		}
	}
	return cells, nil
}

func round2(value float64) float64 {
	return math.RoundToEven(value*100) / 100
}
