package config

import (
	"fmt"
	"io/ioutil"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// CohortsConfig represents the cohort manifest: which OG cohorts exist, where
// their percentile distribution snapshots live, and how they are labelled.
type CohortsConfig struct {
	DataDir string             `yaml:"data_dir"`
	Primary string             `yaml:"primary"`
	Cohorts []CohortDefinition `yaml:"cohorts"`
}

// CohortDefinition represents one cohort entry in the manifest
type CohortDefinition struct {
	Key           string `yaml:"key"`            // Display key, unique
	Slug          string `yaml:"slug"`           // Short identifier for URLs and logs
	File          string `yaml:"file"`           // Distribution snapshot, relative to data_dir
	Title         string `yaml:"title"`          // Card heading
	TimelineLabel string `yaml:"timeline_label"` // e.g. "≤2021"
	Tagline       string `yaml:"tagline"`        // Card subheading
	Description   string `yaml:"description"`    // Qualification criterion
}

// DefaultCohortsConfig returns the built-in manifest used when no file is
// supplied: the three OpenSea OG cohorts with their stock labels.
func DefaultCohortsConfig() *CohortsConfig {
	return &CohortsConfig{
		DataDir: "data",
		Primary: "Super OG (≤2021)",
		Cohorts: []CohortDefinition{
			{
				Key:           "Super OG (≤2021)",
				Slug:          "super_og",
				File:          "opensea_og_percentile_distribution_pre2022.json",
				Title:         "Super OG",
				TimelineLabel: "≤2021",
				Tagline:       "Pre-2022 traders",
				Description:   "First trade on or before 31 Dec 2021",
			},
			{
				Key:           "Uncle (≤2022)",
				Slug:          "unc",
				File:          "opensea_og_percentile_distribution_pre2023.json",
				Title:         "Uncle",
				TimelineLabel: "≤2022",
				Tagline:       "First active in 2022",
				Description:   "First trade on or before 31 Dec 2022",
			},
			{
				Key:           "Cousin (≤2023)",
				Slug:          "cuz",
				File:          "opensea_og_percentile_distribution_pre2024.json",
				Title:         "Cousin",
				TimelineLabel: "≤2023",
				Tagline:       "Joined by 2023",
				Description:   "First trade on or before 31 Dec 2023",
			},
		},
	}
}

// LoadCohortsConfig loads the cohort manifest from file. An empty path falls
// back to the built-in manifest.
func LoadCohortsConfig(configPath string) (*CohortsConfig, error) {
	if configPath == "" {
		return DefaultCohortsConfig(), nil
	}

	data, err := ioutil.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read cohorts config: %w", err)
	}

	var config CohortsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse cohorts YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cohorts config: %w", err)
	}

	return &config, nil
}

// Validate ensures the manifest is usable: at least one cohort, unique
// keys and slugs, a snapshot file per cohort, and a primary that exists.
func (c *CohortsConfig) Validate() error {
	if len(c.Cohorts) == 0 {
		return fmt.Errorf("no cohorts defined")
	}

	keys := make(map[string]bool, len(c.Cohorts))
	slugs := make(map[string]bool, len(c.Cohorts))
	for i, cohort := range c.Cohorts {
		if cohort.Key == "" {
			return fmt.Errorf("cohort %d has no key", i)
		}
		if cohort.Slug == "" {
			return fmt.Errorf("cohort '%s' has no slug", cohort.Key)
		}
		if cohort.File == "" {
			return fmt.Errorf("cohort '%s' has no distribution file", cohort.Key)
		}
		if keys[cohort.Key] {
			return fmt.Errorf("duplicate cohort key '%s'", cohort.Key)
		}
		if slugs[cohort.Slug] {
			return fmt.Errorf("duplicate cohort slug '%s'", cohort.Slug)
		}
		keys[cohort.Key] = true
		slugs[cohort.Slug] = true
	}

	if c.Primary == "" {
		c.Primary = c.Cohorts[0].Key
	}
	if !keys[c.Primary] {
		return fmt.Errorf("primary cohort '%s' not found in manifest", c.Primary)
	}

	return nil
}

// FilePath resolves a cohort's distribution snapshot against the data
// directory. Absolute file entries are used as-is.
func (c *CohortsConfig) FilePath(def CohortDefinition) string {
	if filepath.IsAbs(def.File) || c.DataDir == "" {
		return def.File
	}
	return filepath.Join(c.DataDir, def.File)
}

// Find returns the definition for a cohort key
func (c *CohortsConfig) Find(key string) (*CohortDefinition, bool) {
	for i := range c.Cohorts {
		if c.Cohorts[i].Key == key {
			return &c.Cohorts[i], true
		}
	}
	return nil, false
}

// Keys returns the cohort keys in manifest order
func (c *CohortsConfig) Keys() []string {
	keys := make([]string, 0, len(c.Cohorts))
	for _, cohort := range c.Cohorts {
		keys = append(keys, cohort.Key)
	}
	return keys
}

// BySlug returns the definition matching a slug
func (c *CohortsConfig) BySlug(slug string) (*CohortDefinition, bool) {
	for i := range c.Cohorts {
		if c.Cohorts[i].Slug == slug {
			return &c.Cohorts[i], true
		}
	}
	return nil, false
}
