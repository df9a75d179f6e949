package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seamom/ogdrop/internal/application"
	"github.com/seamom/ogdrop/internal/cohort"
	"github.com/seamom/ogdrop/internal/config"
	httpapi "github.com/seamom/ogdrop/internal/interfaces/http"
	"github.com/seamom/ogdrop/internal/scenario"
)

// loadRegistry builds the cohort registry from the config the command points
// at. Snapshot files load lazily on first use.
func loadRegistry(cmd *cobra.Command) (*application.AppConfig, *cohort.Registry, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := application.LoadAppConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	manifest, err := config.LoadCohortsConfig(cfg.Cohorts.ManifestPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load cohort manifest: %w", err)
	}
	return cfg, cohort.NewRegistry(manifest), nil
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("JSON serialization failed: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// runScenario builds one scenario context from the CLI controls and prints
// the cards, share table and reveal steps.
func runScenario(cmd *cobra.Command, args []string) error {
	cfg, registry, err := loadRegistry(cmd)
	if err != nil {
		return err
	}

	session := scenario.DefaultSession()
	session.OGPoolPct, _ = cmd.Flags().GetFloat64("og-pool")
	session.FDVBillion, _ = cmd.Flags().GetFloat64("fdv")
	session.CohortSize, _ = cmd.Flags().GetInt("cohort-size")
	session.TierPct, _ = cmd.Flags().GetFloat64("tier")
	session.SharePcts, _ = cmd.Flags().GetFloat64Slice("shares")
	session.FDVSensitivity, _ = cmd.Flags().GetFloat64Slice("sensitivity")
	session.PrimaryCohort, _ = cmd.Flags().GetString("cohort")
	session.Normalize()

	var walletUSD *float64
	if v, _ := cmd.Flags().GetFloat64("wallet-usd"); v >= 0 {
		walletUSD = &v
	}

	specs, err := registry.Specs()
	if err != nil {
		return fmt.Errorf("load cohort distributions: %w", err)
	}
	primary := strings.TrimSpace(session.PrimaryCohort)
	if primary == "" {
		primary = registry.PrimaryKey()
	}

	ctx, err := scenario.BuildScenarioContext(scenario.ContextRequest{
		Cohorts:        specs,
		PrimaryKey:     primary,
		Session:        session,
		WalletTotalUSD: walletUSD,
		TotalSupply:    cfg.Scenario.TotalSupply,
	})
	if err != nil {
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		return printJSON(ctx)
	}

	snap := ctx.Snapshot
	fmt.Printf("Primary cohort: %s\n", ctx.PrimaryLabel)
	fmt.Printf("Token price $%s  ·  OG pool %s tokens  ·  top %s%% tier = %s wallets\n\n",
		scenario.Commaf(snap.TokenPrice, 4),
		scenario.Commaf(snap.OGPoolTokens, 0),
		strconv.FormatFloat(snap.TierPct, 'f', -1, 64),
		scenario.Comma(snap.WalletsInTier))

	for _, card := range ctx.Cards {
		marker := " "
		if card.IsPrimary {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, card.FullLabel)
		fmt.Printf("    %s · %s · %s\n", card.PayoutText, card.TokensText, card.WalletsText)
		if card.BandText != "" {
			fmt.Printf("    %s\n", card.BandText)
		}
	}

	fmt.Println("\nShare table:")
	for _, row := range snap.ShareTable {
		fmt.Printf("  %5.1f%% share → %s tokens ≈ $%s per wallet\n",
			row.SharePct,
			scenario.Commaf(row.TokensPerWallet, 0),
			scenario.Commaf(row.USDValue, 0))
	}

	if walletUSD != nil {
		fmt.Println("\nAcross cohorts:")
		for _, key := range registry.Keys() {
			if summary, ok := ctx.Bands[key]; ok {
				fmt.Println(httpapi.FormatBandBullet(summary))
			}
		}
	}

	fmt.Println("\nReveal sequence:")
	for i, step := range ctx.Steps {
		fmt.Printf("  %d. %s · %s\n", i+1, step.Title, step.Text)
	}

	return nil
}

// runBand places one USD volume inside a cohort's distribution.
func runBand(cmd *cobra.Command, args []string) error {
	totalUSD, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid total-usd %q: %w", args[0], err)
	}

	_, registry, err := loadRegistry(cmd)
	if err != nil {
		return err
	}

	key, _ := cmd.Flags().GetString("cohort")
	key = strings.TrimSpace(key)
	if key == "" {
		key = registry.PrimaryKey()
	}
	spec, err := registry.Spec(key)
	if err != nil {
		return err
	}

	size, _ := cmd.Flags().GetInt("cohort-size")
	if size <= 0 {
		size = spec.Estimate
	}
	if size <= 0 {
		size = scenario.DefaultCohortSize
	}

	label := spec.Title
	if label == "" {
		label = spec.Key
	}
	if spec.TimelineLabel != "" {
		label += " · " + spec.TimelineLabel
	}

	resp := httpapi.BandResponse{Cohort: key, Label: label, CohortSize: size}
	summary := scenario.BandSummary{Label: label, CohortSize: size}
	if band := scenario.DeterminePercentileBand(totalUSD, spec.Distribution, size); band != nil {
		resp.Band = band
		suggested := scenario.SuggestedTierPct(band)
		snapped := scenario.SnapToOption(suggested, scenario.PercentileOptions())
		resp.SuggestedTierPct, resp.SnappedTierPct = &suggested, &snapped
		summary.Start, summary.End = &band.StartPercentile, &band.EndPercentile
	} else {
		resp.Note = fmt.Sprintf("$%s is outside the modeled volume range for a cohort of %s wallets",
			scenario.Commaf(totalUSD, 0), scenario.Comma(size))
	}
	resp.Bullet = httpapi.FormatBandBullet(summary)

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		return printJSON(resp)
	}

	fmt.Println(resp.Bullet)
	if resp.Band != nil {
		fmt.Printf("  bucket %d · %s of %s band wallets reachable · %s ranks before\n",
			resp.Band.BucketIndex,
			scenario.Comma(resp.Band.BandWallets),
			scenario.Comma(resp.Band.BandWalletsFull),
			scenario.Comma(resp.Band.WalletsBefore))
		fmt.Printf("  suggested tier %.2f%% → snaps to %s\n",
			*resp.SuggestedTierPct, scenario.FormatPercentileOption(*resp.SnappedTierPct))
	} else {
		fmt.Println("  " + resp.Note)
	}
	return nil
}

// runOptions prints the control geometry the dashboard sliders use.
func runOptions(cmd *cobra.Command, args []string) error {
	_, registry, err := loadRegistry(cmd)
	if err != nil {
		return err
	}

	key, _ := cmd.Flags().GetString("cohort")
	key = strings.TrimSpace(key)
	if key == "" {
		key = registry.PrimaryKey()
	}
	slider, err := registry.SliderOptions(key)
	if err != nil {
		return err
	}

	percentiles := scenario.PercentileOptions()
	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		return printJSON(struct {
			Percentiles []float64            `json:"percentiles"`
			CohortSizes cohort.SliderOptions `json:"cohort_sizes"`
		}{percentiles, slider})
	}

	labels := make([]string, 0, len(percentiles))
	for _, value := range percentiles {
		labels = append(labels, scenario.FormatPercentileOption(value))
	}
	fmt.Printf("Tier percentiles: %s\n\n", strings.Join(labels, ", "))

	fmt.Printf("Cohort-size slider for %s:\n", slider.Key)
	fmt.Printf("  min %s · mid %s · max %s · default %s\n",
		scenario.Comma(slider.Min), scenario.Comma(slider.Mid),
		scenario.Comma(slider.Max), scenario.Comma(slider.Default))
	sizes := make([]string, 0, len(slider.Options))
	for _, size := range slider.Options {
		sizes = append(sizes, scenario.Comma(size))
	}
	fmt.Printf("  steps: %s\n", strings.Join(sizes, ", "))
	return nil
}

// runCohorts lists the manifest with per-cohort snapshot stats.
func runCohorts(cmd *cobra.Command, args []string) error {
	_, registry, err := loadRegistry(cmd)
	if err != nil {
		return err
	}

	summaries, err := registry.Summaries()
	if err != nil {
		return fmt.Errorf("load cohort summaries: %w", err)
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		sliders := make(map[string]cohort.SliderOptions, len(summaries))
		for _, summary := range summaries {
			opts, err := registry.SliderOptions(summary.Key)
			if err != nil {
				continue
			}
			sliders[summary.Key] = opts
		}
		return printJSON(httpapi.CohortsResponse{
			Primary: registry.PrimaryKey(),
			Cohorts: summaries,
			Sliders: sliders,
		})
	}

	for _, summary := range summaries {
		marker := " "
		if summary.Key == registry.PrimaryKey() {
			marker = "*"
		}
		fmt.Printf("%s %-22s %-10s %7s wallets  %3d buckets  %s\n",
			marker, summary.Key, summary.Slug,
			scenario.Comma(summary.Estimate), summary.Buckets, summary.Tagline)
	}
	return nil
}
