package scenario

import (
	"math"
	"strconv"
	"strings"
)

// Stock anchors for the cohort-size slider, overridden per cohort when a
// distribution estimate is available.
const (
	SliderMin = 50_000
	SliderMid = 100_000
	SliderMax = 500_000

	// DefaultBelowSteps and DefaultAboveSteps size the two geometric legs of
	// the cohort slider.
	DefaultBelowSteps = 31
	DefaultAboveSteps = 30

	sliderStep = 5_000
)

// CohortSliderOptions returns a non-linear ascending set of cohort sizes
// anchored at midVal: one geometric progression from minVal to midVal, a
// second from midVal to maxVal with the duplicate midpoint dropped, each
// value rounded to the nearest 5,000 and deduplicated preserving first-seen
// order. Geometric spacing keeps resolution tight near the anchor while still
// reaching the extremes.
func CohortSliderOptions(minVal, midVal, maxVal, belowSteps, aboveSteps int) []int {
	below := geomspace(float64(minVal), float64(midVal), belowSteps)
	above := geomspace(float64(midVal), float64(maxVal), aboveSteps+1)
	if len(above) > 0 {
		above = above[1:]
	}

	combined := make([]float64, 0, len(below)+len(above))
	combined = append(combined, below...)
	combined = append(combined, above...)

	seen := make(map[int]struct{}, len(combined))
	options := make([]int, 0, len(combined))
	for _, value := range combined {
		rounded := RoundToStep(value, sliderStep)
		if _, ok := seen[rounded]; ok {
			continue
		}
		seen[rounded] = struct{}{}
		options = append(options, rounded)
	}
	return options
}

// SliderAnchors derives the cohort slider bounds from a cohort's estimated
// wallet count. With no estimate the stock 50k/100k/500k anchors apply; with
// one, the midpoint snaps to the estimate and the upper bound stretches to
// cover estimate plus 20% headroom.
func SliderAnchors(estimate int) (minVal, midVal, maxVal int) {
	minVal, midVal, maxVal = SliderMin, SliderMid, SliderMax
	if estimate == 0 {
		return minVal, midVal, maxVal
	}

	anchored := estimate
	if anchored < minVal {
		anchored = minVal
	}
	midVal = RoundToStep(float64(anchored), sliderStep)
	if stretched := RoundUpToStep(float64(estimate)*1.2, sliderStep); stretched > maxVal {
		maxVal = stretched
	}
	if midVal > maxVal {
		midVal = maxVal
	}
	return minVal, midVal, maxVal
}

// PercentileOptions returns the tier breakpoints offered to users, finer
// grained near the elite end of the cohort.
func PercentileOptions() []float64 {
	return []float64{
		0.1, 0.2, 0.3, 0.5, 0.75, 1.0, 1.5, 2.0, 3.0, 5.0, 7.5, 10.0,
		12.5, 15.0, 20.0, 25.0, 30.0, 35.0, 40.0, 50.0, 60.0, 70.0, 80.0, 90.0, 100.0,
	}
}

// FormatPercentileOption renders a tier value as its "Top X%" display label,
// one decimal place with trailing zeros trimmed.
func FormatPercentileOption(value float64) string {
	formatted := strconv.FormatFloat(value, 'f', 1, 64)
	formatted = strings.TrimRight(formatted, "0")
	formatted = strings.TrimRight(formatted, ".")
	return "Top " + formatted + "%"
}

// SnapToOption returns the option closest to value by absolute difference,
// the earliest option winning ties. An empty option list returns value
// unchanged.
func SnapToOption(value float64, options []float64) float64 {
	if len(options) == 0 {
		return value
	}
	best := options[0]
	bestDiff := math.Abs(options[0] - value)
	for _, opt := range options[1:] {
		if diff := math.Abs(opt - value); diff < bestDiff {
			best = opt
			bestDiff = diff
		}
	}
	return best
}

// SnapToIntOption is SnapToOption over integer options.
func SnapToIntOption(value int, options []int) int {
	if len(options) == 0 {
		return value
	}
	best := options[0]
	bestDiff := absInt(options[0] - value)
	for _, opt := range options[1:] {
		if diff := absInt(opt - value); diff < bestDiff {
			best = opt
			bestDiff = diff
		}
	}
	return best
}

// RoundToStep rounds value to the nearest multiple of step, ties to even.
func RoundToStep(value float64, step int) int {
	return int(math.RoundToEven(value/float64(step))) * step
}

// RoundUpToStep rounds value up to the next multiple of step.
func RoundUpToStep(value float64, step int) int {
	return int(math.Ceil(value/float64(step))) * step
}

// geomspace returns steps points from start to stop inclusive, each a
// constant ratio from the previous. A single step collapses to start.
func geomspace(start, stop float64, steps int) []float64 {
	if steps <= 1 {
		return []float64{start}
	}
	ratio := math.Pow(stop/start, 1/float64(steps-1))
	values := make([]float64, steps)
	for i := range values {
		values[i] = start * math.Pow(ratio, float64(i))
	}
	return values
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
