package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSession(t *testing.T) {
	session := DefaultSession()

	assert.Equal(t, 10.0, session.TierPct)
	assert.Equal(t, 100_000, session.CohortSize)
	assert.Equal(t, 15.0, session.OGPoolPct)
	assert.Equal(t, 4.0, session.FDVBillion)
	assert.Equal(t, []float64{20, 30, 40}, session.SharePcts)
	assert.Equal(t, []float64{3, 4, 5}, session.FDVSensitivity)
}

func TestSessionNormalize_FillsDefaults(t *testing.T) {
	var session SessionContext
	session.Normalize()
	assert.Equal(t, DefaultSession(), session)

	session = SessionContext{TierPct: -2, CohortSize: -100, OGPoolPct: -1, FDVBillion: -3}
	session.Normalize()
	assert.Equal(t, DefaultSession(), session)
}

func TestSessionNormalize_SnapsTierOntoOptions(t *testing.T) {
	session := DefaultSession()
	session.TierPct = 11
	session.Normalize()
	assert.Equal(t, 10.0, session.TierPct)

	session = DefaultSession()
	session.TierPct = 13
	session.Normalize()
	assert.Equal(t, 12.5, session.TierPct)

	// Values already on the grid stay put.
	session = DefaultSession()
	session.TierPct = 0.75
	session.Normalize()
	assert.Equal(t, 0.75, session.TierPct)
}

func TestSessionNormalize_EnsuresFDVInSensitivity(t *testing.T) {
	session := DefaultSession()
	session.FDVBillion = 4.5
	session.Normalize()
	assert.Equal(t, []float64{3, 4, 4.5, 5}, session.FDVSensitivity)

	// Already present: the list keeps its original order.
	session = DefaultSession()
	session.FDVSensitivity = []float64{5, 3, 4}
	session.Normalize()
	assert.Equal(t, []float64{5, 3, 4}, session.FDVSensitivity)

	// Appending also deduplicates.
	session = DefaultSession()
	session.FDVBillion = 6
	session.FDVSensitivity = []float64{3, 3, 5}
	session.Normalize()
	assert.Equal(t, []float64{3, 5, 6}, session.FDVSensitivity)
}

func TestSessionNormalize_KeepsExplicitValues(t *testing.T) {
	session := SessionContext{
		TierPct:        25,
		CohortSize:     250_000,
		OGPoolPct:      18,
		FDVBillion:     5,
		SharePcts:      []float64{10},
		FDVSensitivity: []float64{5},
	}
	session.Normalize()

	assert.Equal(t, 25.0, session.TierPct)
	assert.Equal(t, 250_000, session.CohortSize)
	assert.Equal(t, 18.0, session.OGPoolPct)
	assert.Equal(t, 5.0, session.FDVBillion)
	assert.Equal(t, []float64{10}, session.SharePcts)
	assert.Equal(t, []float64{5}, session.FDVSensitivity)
}
