package distribution

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_BareArray(t *testing.T) {
	payload := []byte(`[
		{"wallet_count": 600, "min_total_usd": 0, "max_total_usd": 999, "usd_percentile_rank": 3},
		{"wallet_count": 100, "min_total_usd": 10000, "max_total_usd": 99999, "usd_percentile_rank": 1},
		{"wallet_count": 300, "min_total_usd": 1000, "max_total_usd": 9999, "usd_percentile_rank": 2}
	]`)

	rows, err := Parse(payload)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Sorted ascending by rank regardless of source order.
	assert.Equal(t, 1.0, rows[0].PercentileRank)
	assert.Equal(t, 100, rows[0].WalletCount)
	assert.Equal(t, 2.0, rows[1].PercentileRank)
	assert.Equal(t, 3.0, rows[2].PercentileRank)
	assert.Equal(t, 999.0, rows[2].MaxTotalUSD)
}

func TestParse_DuneEnvelope(t *testing.T) {
	payload := []byte(`{
		"execution_id": "01JD3",
		"result": {
			"rows": [
				{"wallet_count": 42, "min_total_usd": 5, "max_total_usd": 10, "usd_percentile_rank": 1}
			]
		}
	}`)

	rows, err := Parse(payload)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 42, rows[0].WalletCount)
	assert.Equal(t, 5.0, rows[0].MinTotalUSD)
}

func TestParse_CoercesStringsAndDefaults(t *testing.T) {
	payload := []byte(`[
		{"wallet_count": "250", "min_total_usd": "1250.5", "max_total_usd": "n/a", "usd_percentile_rank": 1},
		{"usd_percentile_rank": 2}
	]`)

	rows, err := Parse(payload)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 250, rows[0].WalletCount)
	assert.Equal(t, 1250.5, rows[0].MinTotalUSD)
	assert.Equal(t, 1250.5, rows[0].MaxTotalUSD, "unparseable max falls back to min")

	assert.Equal(t, 0, rows[1].WalletCount)
	assert.Equal(t, 0.0, rows[1].MinTotalUSD)
}

func TestParse_ZeroMaxFallsBackToMin(t *testing.T) {
	payload := []byte(`[{"wallet_count": 10, "min_total_usd": 750, "max_total_usd": 0, "usd_percentile_rank": 1}]`)

	rows, err := Parse(payload)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 750.0, rows[0].MaxTotalUSD)
}

func TestParse_SkipsNonObjectRows(t *testing.T) {
	payload := []byte(`[42, "junk", {"wallet_count": 1, "usd_percentile_rank": 1}, null]`)

	rows, err := Parse(payload)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].WalletCount)
}

func TestParse_EnvelopeWithoutRows(t *testing.T) {
	for _, payload := range []string{`{}`, `{"result": 17}`, `{"result": {}}`, `"scalar"`} {
		rows, err := Parse([]byte(payload))
		require.NoError(t, err, "payload %s", payload)
		assert.Empty(t, rows, "payload %s", payload)
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := Parse([]byte(`{nope`))
	require.Error(t, err)
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	rows, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLoad_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pre2022.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"wallet_count": 7, "min_total_usd": 1, "max_total_usd": 2, "usd_percentile_rank": 1}]`), 0o644))

	rows, err := Load(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 7, rows[0].WalletCount)
}

func TestLoad_CorruptFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{truncated`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestEstimateCohortSize(t *testing.T) {
	rows := []Bucket{
		{WalletCount: 600},
		{WalletCount: 300},
		{WalletCount: -50},
	}
	assert.Equal(t, 850, EstimateCohortSize(rows))
	assert.Equal(t, 0, EstimateCohortSize(nil))
}

func TestSafeFloat(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  float64
	}{
		{"nil", nil, -1},
		{"float", 3.5, 3.5},
		{"int", 42, 42},
		{"string", "12.25", 12.25},
		{"padded string", "  7 ", 7},
		{"empty string", "", -1},
		{"junk string", "n/a", -1},
		{"bool true", true, 1},
		{"bool false", false, 0},
		{"slice", []any{1}, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SafeFloat(tc.value, -1))
		})
	}
}
