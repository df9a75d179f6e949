package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCohortsConfig(t *testing.T) {
	cfg := DefaultCohortsConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "Super OG (≤2021)", cfg.Primary)
	assert.Equal(t, []string{"Super OG (≤2021)", "Uncle (≤2022)", "Cousin (≤2023)"}, cfg.Keys())

	superOG, ok := cfg.Find("Super OG (≤2021)")
	require.True(t, ok)
	assert.Equal(t, "super_og", superOG.Slug)
	assert.Equal(t, "Pre-2022 traders", superOG.Tagline)
	assert.Equal(t, "First trade on or before 31 Dec 2021", superOG.Description)
}

func TestLoadCohortsConfig_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadCohortsConfig("")
	require.NoError(t, err)
	assert.Len(t, cfg.Cohorts, 3)
}

func TestLoadCohortsConfig_File(t *testing.T) {
	manifest := `
data_dir: /srv/ogdrop/data
primary: "OG"
cohorts:
  - key: "OG"
    slug: og
    file: og.json
    title: OG
    timeline_label: "≤2020"
    tagline: Earliest traders
  - key: "Latecomer"
    slug: late
    file: late.json
    title: Latecomer
`
	path := filepath.Join(t.TempDir(), "cohorts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))

	cfg, err := LoadCohortsConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "OG", cfg.Primary)
	require.Len(t, cfg.Cohorts, 2)
	assert.Equal(t, "≤2020", cfg.Cohorts[0].TimelineLabel)
	assert.Equal(t, filepath.Join("/srv/ogdrop/data", "og.json"), cfg.FilePath(cfg.Cohorts[0]))
}

func TestLoadCohortsConfig_MissingFile(t *testing.T) {
	_, err := LoadCohortsConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadCohortsConfig_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cohorts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cohorts: [unclosed"), 0o644))
	_, err := LoadCohortsConfig(path)
	require.Error(t, err)
}

func TestCohortsConfig_Validate(t *testing.T) {
	base := func() *CohortsConfig {
		return &CohortsConfig{
			Cohorts: []CohortDefinition{
				{Key: "A", Slug: "a", File: "a.json"},
				{Key: "B", Slug: "b", File: "b.json"},
			},
		}
	}

	t.Run("empty primary defaults to first cohort", func(t *testing.T) {
		cfg := base()
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "A", cfg.Primary)
	})

	t.Run("unknown primary", func(t *testing.T) {
		cfg := base()
		cfg.Primary = "C"
		assert.Error(t, cfg.Validate())
	})

	t.Run("no cohorts", func(t *testing.T) {
		assert.Error(t, (&CohortsConfig{}).Validate())
	})

	t.Run("duplicate key", func(t *testing.T) {
		cfg := base()
		cfg.Cohorts[1].Key = "A"
		assert.Error(t, cfg.Validate())
	})

	t.Run("duplicate slug", func(t *testing.T) {
		cfg := base()
		cfg.Cohorts[1].Slug = "a"
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing slug", func(t *testing.T) {
		cfg := base()
		cfg.Cohorts[0].Slug = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing file", func(t *testing.T) {
		cfg := base()
		cfg.Cohorts[1].File = ""
		assert.Error(t, cfg.Validate())
	})
}

func TestCohortsConfig_FilePath(t *testing.T) {
	cfg := &CohortsConfig{DataDir: "data"}
	assert.Equal(t, filepath.Join("data", "x.json"), cfg.FilePath(CohortDefinition{File: "x.json"}))

	abs := string(filepath.Separator) + filepath.Join("tmp", "x.json")
	assert.Equal(t, abs, cfg.FilePath(CohortDefinition{File: abs}))

	bare := &CohortsConfig{}
	assert.Equal(t, "x.json", bare.FilePath(CohortDefinition{File: "x.json"}))
}

func TestCohortsConfig_BySlug(t *testing.T) {
	cfg := DefaultCohortsConfig()

	uncle, ok := cfg.BySlug("unc")
	require.True(t, ok)
	assert.Equal(t, "Uncle (≤2022)", uncle.Key)

	_, ok = cfg.BySlug("nobody")
	assert.False(t, ok)
}
