package scenario

import "github.com/seamom/ogdrop/internal/distribution"

// Band places a USD volume inside a cohort's percentile distribution. The
// interval [StartPercentile, EndPercentile) is expressed as percentages of
// the assumed cohort size, rank 0 being the highest-volume wallet; the end
// is clamped to 100.
type Band struct {
	StartPercentile float64             `json:"start_percentile"`
	EndPercentile   float64             `json:"end_percentile"`
	BandWallets     int                 `json:"band_wallets"`
	BandWalletsFull int                 `json:"band_wallets_full"`
	WalletsBefore   int                 `json:"wallets_before"`
	BucketIndex     int                 `json:"bucket_index"`
	Bucket          distribution.Bucket `json:"bucket_data"`
}

// DeterminePercentileBand walks the distribution in rank order, top-volume
// bucket first, and returns the band totalUSD occupies for the assumed
// cohort size. It returns nil when the distribution is empty, cohortSize is
// non-positive, or no reachable bucket's range covers the value.
//
// The walk hands out at most cohortSize ranks. A wallet poorer than the last
// reachable bucket's minimum lands in that bucket's tail instead of being
// dropped. First matching bucket wins; there is no averaging across buckets.
func DeterminePercentileBand(totalUSD float64, dist []distribution.Bucket, cohortSize int) *Band {
	if len(dist) == 0 || cohortSize <= 0 {
		return nil
	}

	remaining := cohortSize
	cumulativeBefore := 0

	for idx, bucket := range dist {
		count := bucket.WalletCount
		if count <= 0 {
			continue
		}

		take := count
		if remaining < take {
			take = remaining
		}
		if take <= 0 {
			break
		}

		minUSD := bucket.MinTotalUSD
		maxUSD := bucket.MaxTotalUSD
		if maxUSD == 0 {
			maxUSD = minUSD
		}

		inBucket := totalUSD >= minUSD && totalUSD <= maxUSD
		isLastReachable := remaining <= take

		if inBucket || (isLastReachable && totalUSD < minUSD) {
			start := float64(cumulativeBefore) / float64(cohortSize) * 100
			end := float64(cumulativeBefore+take) / float64(cohortSize) * 100
			if end > 100 {
				end = 100
			}
			return &Band{
				StartPercentile: start,
				EndPercentile:   end,
				BandWallets:     take,
				BandWalletsFull: count,
				WalletsBefore:   cumulativeBefore,
				BucketIndex:     idx,
				Bucket:          bucket,
			}
		}

		cumulativeBefore += take
		remaining -= take
		if remaining <= 0 {
			break
		}
	}

	return nil
}

// SuggestedTierPct turns a band into a tier suggestion: the band midpoint,
// clamped to the 0.1%..100% tier range. Callers usually snap the result
// onto PercentileOptions before applying it.
func SuggestedTierPct(band *Band) float64 {
	if band == nil {
		return 0
	}
	mid := (band.StartPercentile + band.EndPercentile) / 2
	if mid < 0.1 {
		mid = 0.1
	}
	if mid > 100 {
		mid = 100
	}
	return mid
}
