// Package cohort binds the cohort manifest to loaded percentile
// distributions and derives the per-cohort slider geometry.
package cohort

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/seamom/ogdrop/internal/config"
	"github.com/seamom/ogdrop/internal/distribution"
	"github.com/seamom/ogdrop/internal/scenario"
)

// Summary is the cohort metadata exposed to clients: labels plus the
// estimated population derived from the distribution snapshot.
type Summary struct {
	Key           string `json:"key"`
	Slug          string `json:"slug"`
	Title         string `json:"title"`
	TimelineLabel string `json:"timeline_label"`
	Tagline       string `json:"tagline"`
	Description   string `json:"description"`
	Estimate      int    `json:"estimate"`
	Buckets       int    `json:"buckets"`
}

// SliderOptions is the cohort-size slider geometry for one cohort.
type SliderOptions struct {
	Key     string `json:"key"`
	Min     int    `json:"min"`
	Mid     int    `json:"mid"`
	Max     int    `json:"max"`
	Default int    `json:"default"`
	Options []int  `json:"options"`
}

// Registry resolves cohort keys to their manifest entries and cached
// distribution snapshots. Safe for concurrent use; all mutability lives in
// the snapshot cache.
type Registry struct {
	manifest *config.CohortsConfig
	cache    *distribution.SnapshotCache
}

func NewRegistry(manifest *config.CohortsConfig) *Registry {
	return &Registry{
		manifest: manifest,
		cache:    distribution.NewSnapshotCache(),
	}
}

// PrimaryKey returns the manifest's primary cohort key.
func (r *Registry) PrimaryKey() string {
	return r.manifest.Primary
}

// Keys returns the cohort keys in manifest order.
func (r *Registry) Keys() []string {
	return r.manifest.Keys()
}

// Has reports whether key names a cohort in the manifest.
func (r *Registry) Has(key string) bool {
	_, ok := r.manifest.Find(key)
	return ok
}

// Spec assembles the scenario input for one cohort, loading its distribution
// through the snapshot cache.
func (r *Registry) Spec(key string) (scenario.CohortSpec, error) {
	def, ok := r.manifest.Find(key)
	if !ok {
		return scenario.CohortSpec{}, fmt.Errorf("cohort registry: unknown cohort %q", key)
	}
	return r.specFor(*def)
}

// Specs assembles scenario inputs for every cohort in manifest order.
func (r *Registry) Specs() ([]scenario.CohortSpec, error) {
	specs := make([]scenario.CohortSpec, 0, len(r.manifest.Cohorts))
	for _, def := range r.manifest.Cohorts {
		spec, err := r.specFor(def)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func (r *Registry) specFor(def config.CohortDefinition) (scenario.CohortSpec, error) {
	snap, err := r.cache.Get(r.manifest.FilePath(def))
	if err != nil {
		return scenario.CohortSpec{}, fmt.Errorf("cohort %q: %w", def.Key, err)
	}
	return scenario.CohortSpec{
		Key:           def.Key,
		Slug:          def.Slug,
		Title:         def.Title,
		TimelineLabel: def.TimelineLabel,
		Tagline:       def.Tagline,
		Description:   def.Description,
		Distribution:  snap.Rows,
		Estimate:      snap.Estimate,
	}, nil
}

// Summaries returns client-facing metadata for every cohort in manifest
// order.
func (r *Registry) Summaries() ([]Summary, error) {
	summaries := make([]Summary, 0, len(r.manifest.Cohorts))
	for _, def := range r.manifest.Cohorts {
		snap, err := r.cache.Get(r.manifest.FilePath(def))
		if err != nil {
			return nil, fmt.Errorf("cohort %q: %w", def.Key, err)
		}
		summaries = append(summaries, Summary{
			Key:           def.Key,
			Slug:          def.Slug,
			Title:         def.Title,
			TimelineLabel: def.TimelineLabel,
			Tagline:       def.Tagline,
			Description:   def.Description,
			Estimate:      snap.Estimate,
			Buckets:       len(snap.Rows),
		})
	}
	return summaries, nil
}

// SliderOptions derives the cohort-size slider for one cohort: anchors from
// the estimated population, geometric option spacing, and the midpoint as
// the default selection.
func (r *Registry) SliderOptions(key string) (SliderOptions, error) {
	spec, err := r.Spec(key)
	if err != nil {
		return SliderOptions{}, err
	}

	minVal, midVal, maxVal := scenario.SliderAnchors(spec.Estimate)
	options := scenario.CohortSliderOptions(minVal, midVal, maxVal,
		scenario.DefaultBelowSteps, scenario.DefaultAboveSteps)

	return SliderOptions{
		Key:     key,
		Min:     minVal,
		Mid:     midVal,
		Max:     maxVal,
		Default: scenario.SnapToIntOption(midVal, options),
		Options: options,
	}, nil
}

// Warm preloads every cohort's distribution snapshot, typically at startup.
func (r *Registry) Warm() error {
	for _, def := range r.manifest.Cohorts {
		snap, err := r.cache.Get(r.manifest.FilePath(def))
		if err != nil {
			return fmt.Errorf("warm cohort %q: %w", def.Key, err)
		}
		log.Info().
			Str("cohort", def.Slug).
			Int("buckets", len(snap.Rows)).
			Int("estimate", snap.Estimate).
			Msg("Cohort distribution loaded")
	}
	return nil
}

// CacheStats exposes the snapshot cache counters for metrics export.
func (r *Registry) CacheStats() distribution.CacheStats {
	return r.cache.Stats()
}
