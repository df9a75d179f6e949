package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/seamom/ogdrop/internal/application"
	"github.com/seamom/ogdrop/internal/cohort"
	"github.com/seamom/ogdrop/internal/config"
	"github.com/seamom/ogdrop/internal/infrastructure/db"
	"github.com/seamom/ogdrop/internal/infrastructure/dune"
	"github.com/seamom/ogdrop/internal/infrastructure/reportcache"
	"github.com/seamom/ogdrop/internal/infrastructure/sharecard"
	httpapi "github.com/seamom/ogdrop/internal/interfaces/http"
)

// runServe wires the registry, caches and upstream clients into the
// dashboard HTTP server and blocks until SIGINT/SIGTERM.
func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := application.LoadAppConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Server.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		log.Debug().Str("flag", f.Name).Str("value", f.Value.String()).Msg("Serve flag set")
	})

	manifest, err := config.LoadCohortsConfig(cfg.Cohorts.ManifestPath)
	if err != nil {
		return fmt.Errorf("load cohort manifest: %w", err)
	}
	registry := cohort.NewRegistry(manifest)
	if err := registry.Warm(); err != nil {
		log.Warn().Err(err).Msg("Cohort snapshot preload failed; snapshots reload on next file change")
	}

	reports := reportcache.Open(reportcache.Options{
		Addr: cfg.Cache.Redis.Addr,
		DB:   cfg.Cache.Redis.DB,
		TLS:  cfg.Cache.Redis.TLS,
		TTL:  cfg.Cache.ReportTTL(),
	})

	duneClient := dune.NewClient(dune.Config{
		APIKey:            cfg.Dune.APIKey,
		QueryID:           cfg.Dune.QueryID,
		BaseURL:           cfg.Dune.BaseURL,
		Timeout:           cfg.Dune.Timeout(),
		PollInterval:      cfg.Dune.PollInterval(),
		MaxPollAttempts:   cfg.Dune.MaxPollAttempts,
		RequestsPerSecond: cfg.Dune.RequestsPerSecond,
	})
	if !duneClient.Configured() {
		log.Warn().Msg("DUNE_API_KEY not set; wallet lookups will return 503")
	}

	cards := sharecard.NewClient(cfg.Share.ServiceURL, cfg.Share.PublicBase, cfg.Share.Timeout())

	manager, err := db.NewManager(cfg.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer manager.Close()
	if manager.IsEnabled() {
		schemaCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := manager.Archive().EnsureSchema(schemaCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("ensure archive schema: %w", err)
		}
	}

	server, err := httpapi.NewServer(cfg, httpapi.Dependencies{
		Registry: registry,
		Dune:     duneClient,
		Reports:  reports,
		Cards:    cards,
		DB:       manager,
	})
	if err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	log.Info().
		Str("addr", server.GetAddress()).
		Str("primary", registry.PrimaryKey()).
		Int("cohorts", len(registry.Keys())).
		Bool("dune", duneClient.Configured()).
		Bool("share_cards", cards.Configured()).
		Bool("archive", manager.IsEnabled()).
		Msg("Dashboard API ready")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("Shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info().Msg("Dashboard API stopped")
	return nil
}
