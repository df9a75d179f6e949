// Package distribution loads the precomputed percentile-bucket snapshots that
// anchor every cohort projection. Snapshots are produced offline by the Dune
// export pipeline and consumed read-only here.
package distribution

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Bucket is one row of a percentile distribution snapshot: a USD-volume range
// and the number of wallets inside it. Lower ranks sort first and hold the
// higher-volume slices of the cohort. Buckets are immutable once loaded.
type Bucket struct {
	WalletCount    int     `json:"wallet_count"`
	MinTotalUSD    float64 `json:"min_total_usd"`
	MaxTotalUSD    float64 `json:"max_total_usd"`
	PercentileRank float64 `json:"usd_percentile_rank"`
}

// Parse decodes a snapshot payload: either a bare JSON array of bucket rows
// or a Dune-style envelope with result.rows. Rows come back sorted ascending
// by usd_percentile_rank. A missing, unparseable, or zero max_total_usd is
// treated as min_total_usd.
func Parse(data []byte) ([]Bucket, error) {
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse distribution: %w", err)
	}
	return normalizeRows(extractRows(payload)), nil
}

// Load reads a snapshot file. A missing file yields an empty distribution
// with no error: an unconfigured cohort simply has no data.
func Load(path string) ([]Bucket, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read distribution %s: %w", path, err)
	}
	rows, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("distribution %s: %w", path, err)
	}
	return rows, nil
}

// EstimateCohortSize returns the total wallet count represented by a
// distribution, the anchor for the cohort-size slider.
func EstimateCohortSize(rows []Bucket) int {
	total := 0
	for _, row := range rows {
		total += row.WalletCount
	}
	return total
}

func extractRows(payload any) []any {
	switch p := payload.(type) {
	case []any:
		return p
	case map[string]any:
		result, ok := p["result"].(map[string]any)
		if !ok {
			return nil
		}
		rows, _ := result["rows"].([]any)
		return rows
	default:
		return nil
	}
}

func normalizeRows(raw []any) []Bucket {
	rows := make([]Bucket, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		minUSD := SafeFloat(obj["min_total_usd"], 0)
		maxUSD := SafeFloat(obj["max_total_usd"], 0)
		if maxUSD == 0 {
			maxUSD = minUSD
		}
		rows = append(rows, Bucket{
			WalletCount:    int(SafeFloat(obj["wallet_count"], 0)),
			MinTotalUSD:    minUSD,
			MaxTotalUSD:    maxUSD,
			PercentileRank: SafeFloat(obj["usd_percentile_rank"], 0),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].PercentileRank < rows[j].PercentileRank
	})
	return rows
}
