package http

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/seamom/ogdrop/internal/application"
	"github.com/seamom/ogdrop/internal/cohort"
	"github.com/seamom/ogdrop/internal/infrastructure/db"
	"github.com/seamom/ogdrop/internal/infrastructure/dune"
	"github.com/seamom/ogdrop/internal/infrastructure/reportcache"
	"github.com/seamom/ogdrop/internal/infrastructure/sharecard"
	"github.com/seamom/ogdrop/internal/scenario"
)

// Notices surfaced to the dashboard verbatim; the front end renders them as-is.
const (
	noTradesNote      = "No OpenSea trades found for this wallet."
	outsideRangeNote  = "This wallet’s volume falls outside the cohort size you selected. Increase the cohort or adjust the OG definition to include it."
	fetchFirstMessage = "Fetch a wallet history above before generating a share card."
	staleShareMessage = "Update the estimate above and click **Estimate my airdrop** before sharing."
)

// Dependencies bundles the collaborators the handlers call out to. Reports,
// Cards, DB and Metrics may be nil; the endpoints that need them degrade
// instead of panicking.
type Dependencies struct {
	Registry *cohort.Registry
	Dune     *dune.Client
	Reports  *reportcache.Cache
	Cards    *sharecard.Client
	DB       *db.Manager
	Metrics  *MetricsRegistry
}

// Handlers owns every endpoint of the scenario API.
type Handlers struct {
	cfg      *application.AppConfig
	registry *cohort.Registry
	dune     *dune.Client
	reports  *reportcache.Cache
	cards    *sharecard.Client
	db       *db.Manager
	metrics  *MetricsRegistry
	started  time.Time
}

// NewHandlers wires the endpoint set. A nil Metrics gets a fresh registry so
// tests can construct handlers without sharing collector state.
func NewHandlers(cfg *application.AppConfig, deps Dependencies) *Handlers {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewMetricsRegistry()
	}
	if deps.Dune != nil {
		metrics.RegisterDuneStats(deps.Dune.Stats)
	}
	return &Handlers{
		cfg:      cfg,
		registry: deps.Registry,
		dune:     deps.Dune,
		reports:  deps.Reports,
		cards:    deps.Cards,
		db:       deps.DB,
		metrics:  metrics,
		started:  time.Now(),
	}
}

// Health reports component status for GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:        "healthy",
		Timestamp:     time.Now().UTC(),
		UptimeSeconds: time.Since(h.started).Seconds(),
		Dune:          DependencyHealth{Configured: h.dune != nil && h.dune.Configured()},
		ShareService:  DependencyHealth{Configured: h.cards != nil && h.cards.Configured()},
	}
	if h.reports != nil {
		resp.ReportCache = h.reports.Stats()
	}
	if h.registry != nil {
		resp.Distributions = h.registry.CacheStats()
	}
	if h.db != nil && h.db.IsEnabled() {
		check := h.db.Health().Health(r.Context())
		resp.Database = &check
		if !check.Healthy {
			resp.Status = "degraded"
		}
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

// Config exposes the dashboard constants for GET /config.
func (h *Handlers) Config(w http.ResponseWriter, r *http.Request) {
	h.writeJSONETag(w, r, ConfigResponse{
		TotalSupply:   h.cfg.Scenario.TotalSupply,
		RevealSeconds: h.cfg.Scenario.RevealSeconds,
		DemoWallet:    h.cfg.Dune.DemoWallet,
		PrimaryCohort: h.registry.PrimaryKey(),
	})
}

// Cohorts lists the configured cohorts with their cohort-size slider anchors
// for GET /cohorts.
func (h *Handlers) Cohorts(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.registry.Summaries()
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "cohorts_failed", err.Error())
		return
	}
	sliders := make(map[string]cohort.SliderOptions, len(summaries))
	for _, summary := range summaries {
		opts, err := h.registry.SliderOptions(summary.Key)
		if err != nil {
			log.Warn().Err(err).Str("cohort", summary.Key).Msg("Slider options unavailable")
			continue
		}
		sliders[summary.Key] = opts
	}
	h.writeJSONETag(w, r, CohortsResponse{
		Primary: h.registry.PrimaryKey(),
		Cohorts: summaries,
		Sliders: sliders,
	})
}

// PercentileOptions returns the tier slider values for GET /options/percentiles.
func (h *Handlers) PercentileOptions(w http.ResponseWriter, r *http.Request) {
	values := scenario.PercentileOptions()
	options := make([]PercentileOption, 0, len(values))
	for _, v := range values {
		options = append(options, PercentileOption{Value: v, Label: scenario.FormatPercentileOption(v)})
	}
	h.writeJSONETag(w, r, PercentileOptionsResponse{Options: options, Default: scenario.DefaultTierPct})
}

// CohortSizeOptions returns the cohort-size slider geometry for
// GET /options/cohort-sizes?cohort=KEY.
func (h *Handlers) CohortSizeOptions(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.URL.Query().Get("cohort"))
	if key == "" {
		key = h.registry.PrimaryKey()
	}
	opts, err := h.registry.SliderOptions(key)
	if err != nil {
		h.writeError(w, r, http.StatusNotFound, "unknown_cohort", err.Error())
		return
	}
	h.writeJSONETag(w, r, opts)
}

// Scenario evaluates the full scenario context for POST /scenario.
func (h *Handlers) Scenario(w http.ResponseWriter, r *http.Request) {
	var req ScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_request", "request body must be a scenario request: "+err.Error())
		return
	}
	start := time.Now()
	scenarioCtx, _, err := h.buildScenario(req.Session, req.WalletTotalUSD)
	if err != nil {
		h.metrics.RecordScenarioBuild("error", time.Since(start))
		if req.Session.PrimaryCohort != "" && !h.registry.Has(strings.TrimSpace(req.Session.PrimaryCohort)) {
			h.writeError(w, r, http.StatusNotFound, "unknown_cohort", err.Error())
			return
		}
		h.writeError(w, r, http.StatusUnprocessableEntity, "scenario_failed", err.Error())
		return
	}
	h.metrics.RecordScenarioBuild("ok", time.Since(start))
	h.writeJSON(w, r, http.StatusOK, scenarioCtx)
}

// Band places a USD volume inside one cohort's distribution for POST /band.
func (h *Handlers) Band(w http.ResponseWriter, r *http.Request) {
	var req BandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_request", "request body must be a band request: "+err.Error())
		return
	}
	key := strings.TrimSpace(req.Cohort)
	if key == "" {
		key = h.registry.PrimaryKey()
	}
	spec, err := h.registry.Spec(key)
	if err != nil {
		h.writeError(w, r, http.StatusNotFound, "unknown_cohort", err.Error())
		return
	}
	size := req.CohortSize
	if size <= 0 {
		size = spec.Estimate
	}
	if size <= 0 {
		size = scenario.DefaultCohortSize
	}

	resp := BandResponse{Cohort: key, Label: cohortLabel(spec), CohortSize: size}
	summary := scenario.BandSummary{Label: resp.Label, CohortSize: size}
	if band := scenario.DeterminePercentileBand(req.TotalUSD, spec.Distribution, size); band != nil {
		h.metrics.RecordBandLookup("placed")
		resp.Band = band
		suggested := scenario.SuggestedTierPct(band)
		snapped := scenario.SnapToOption(suggested, scenario.PercentileOptions())
		resp.SuggestedTierPct, resp.SnappedTierPct = &suggested, &snapped
		summary.Start, summary.End = &band.StartPercentile, &band.EndPercentile
	} else {
		h.metrics.RecordBandLookup("outside")
		resp.Note = outsideRangeNote
	}
	resp.Bullet = FormatBandBullet(summary)
	h.writeJSON(w, r, http.StatusOK, resp)
}

// Wallet fetches, caches, and analyses one wallet's OpenSea history for
// GET /wallet/{address}. ?refresh=1 bypasses the report cache, ?cohort= and
// ?cohort_size= control the percentile placement.
func (h *Handlers) Wallet(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(mux.Vars(r)["address"])
	if address == "" {
		h.writeError(w, r, http.StatusBadRequest, "invalid_request", "wallet address is required")
		return
	}
	key := strings.TrimSpace(r.URL.Query().Get("cohort"))
	if key == "" {
		key = h.registry.PrimaryKey()
	}
	spec, err := h.registry.Spec(key)
	if err != nil {
		h.writeError(w, r, http.StatusNotFound, "unknown_cohort", err.Error())
		return
	}

	var report *dune.WalletReport
	cached := false
	if h.reports != nil && !queryFlag(r, "refresh") {
		if hit, ok := h.reports.Get(r.Context(), address); ok {
			report, cached = hit, true
			h.metrics.RecordCacheHit("report")
		} else {
			h.metrics.RecordCacheMiss("report")
		}
	}
	if report == nil {
		if h.dune == nil || !h.dune.Configured() {
			h.writeError(w, r, http.StatusServiceUnavailable, "dune_not_configured", "DUNE_API_KEY not configured")
			return
		}
		fetched, err := h.dune.FetchWalletReport(r.Context(), address)
		if err != nil {
			h.metrics.RecordWalletFetch("error")
			h.writeError(w, r, http.StatusBadGateway, "dune_error", err.Error())
			return
		}
		h.metrics.RecordWalletFetch("ok")
		report = fetched
		if h.reports != nil {
			h.reports.Put(r.Context(), address, report)
		}
		h.archiveReport(r.Context(), report)
	}

	resp := WalletResponse{
		Address:      address,
		ShortAddress: dune.ShortAddress(address),
		Cached:       cached,
		Empty:        report.Empty(),
		Report:       report,
	}
	if summaries, err := h.registry.Summaries(); err == nil {
		estimates := make(map[string]int, len(summaries))
		for _, s := range summaries {
			estimates[s.Key] = s.Estimate
		}
		resp.CohortEstimates = estimates
	}
	if report.Summary == nil {
		resp.Note = noTradesNote
		h.writeJSON(w, r, http.StatusOK, resp)
		return
	}

	resp.Badge = dune.BadgeFor(report.Summary)
	resp.FeeRows = dune.FeeBreakdown(report.Summary)
	profile := dune.FeeProfileFor(report.Summary)
	resp.FeeProfile = &profile

	size := intQuery(r, "cohort_size")
	if size <= 0 {
		size = spec.Estimate
	}
	if size <= 0 {
		size = scenario.DefaultCohortSize
	}
	if band := scenario.DeterminePercentileBand(report.TotalUSD(), spec.Distribution, size); band != nil {
		h.metrics.RecordBandLookup("placed")
		resp.Band = band
		suggested := scenario.SuggestedTierPct(band)
		snapped := scenario.SnapToOption(suggested, scenario.PercentileOptions())
		resp.SuggestedTierPct, resp.SnappedTierPct = &suggested, &snapped
	} else {
		h.metrics.RecordBandLookup("outside")
		resp.Note = outsideRangeNote
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

// ShareCard renders (or returns the memoized) share card for POST /share-card.
// The wallet must have been fetched first and the submitted controls must
// match the scenario the card describes.
func (h *Handlers) ShareCard(w http.ResponseWriter, r *http.Request) {
	var req ShareCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_request", "request body must be a share card request: "+err.Error())
		return
	}
	address := strings.TrimSpace(req.Address)
	if address == "" {
		h.writeError(w, r, http.StatusBadRequest, "invalid_request", fetchFirstMessage)
		return
	}
	if h.cards == nil || !h.cards.Configured() {
		h.writeError(w, r, http.StatusServiceUnavailable, "share_not_configured", "SHARE_SERVICE_URL not configured")
		return
	}

	var report *dune.WalletReport
	if h.reports != nil {
		if hit, ok := h.reports.Get(r.Context(), address); ok {
			report = hit
		}
	}
	if report == nil || report.Summary == nil {
		h.writeError(w, r, http.StatusConflict, "wallet_not_fetched", fetchFirstMessage)
		return
	}

	total := report.TotalUSD()
	scenarioCtx, session, err := h.buildScenario(req.Session, &total)
	if err != nil {
		h.metrics.RecordShareCard("error")
		h.writeError(w, r, http.StatusUnprocessableEntity, "scenario_failed", err.Error())
		return
	}
	if session.LastRevealSignature != "" && session.LastRevealSignature != scenarioCtx.Signature {
		h.writeError(w, r, http.StatusConflict, "stale_scenario", staleShareMessage)
		return
	}

	result := h.cards.Prefetch(r.Context(), scenarioCtx.Signature, sharecard.PayloadInputs{
		WalletAddress:        address,
		Report:               report,
		Result:               scenarioCtx.PrimaryResult,
		TierPct:              session.TierPct,
		PrimaryLabel:         scenarioCtx.PrimaryLabel,
		PrimaryCohortWallets: scenarioCtx.PrimaryCohortWallets,
		FeaturedShare:        scenarioCtx.FeaturedShare,
		FDVBillion:           session.FDVBillion,
		OGPoolPct:            session.OGPoolPct,
		TokenPrice:           scenarioCtx.TokenPrice,
	})
	switch {
	case result.Card != nil:
		h.metrics.RecordShareCard("ok")
	case result.Warning != "":
		h.metrics.RecordShareCard("error")
	default:
		h.metrics.RecordShareCard("skipped")
	}
	h.writeJSON(w, r, http.StatusOK, result)
}

// NotFound answers unrouted paths with the standard error envelope.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, http.StatusNotFound, "not_found", fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path))
}

// buildScenario normalizes the session, defaults the primary cohort, and
// evaluates the scenario context against the registry's distributions. The
// returned session is the normalized copy the context was built from.
func (h *Handlers) buildScenario(session scenario.SessionContext, walletTotalUSD *float64) (*scenario.Context, scenario.SessionContext, error) {
	session.Normalize()
	session.PrimaryCohort = strings.TrimSpace(session.PrimaryCohort)
	if session.PrimaryCohort == "" {
		session.PrimaryCohort = h.registry.PrimaryKey()
	}
	specs, err := h.registry.Specs()
	if err != nil {
		return nil, session, fmt.Errorf("load cohort distributions: %w", err)
	}
	scenarioCtx, err := scenario.BuildScenarioContext(scenario.ContextRequest{
		Cohorts:        specs,
		PrimaryKey:     session.PrimaryCohort,
		Session:        session,
		WalletTotalUSD: walletTotalUSD,
		TotalSupply:    h.cfg.Scenario.TotalSupply,
	})
	return scenarioCtx, session, err
}

func (h *Handlers) archiveReport(ctx context.Context, report *dune.WalletReport) {
	if h.db == nil || !h.db.IsEnabled() || report == nil || report.Empty() {
		return
	}
	payload, err := json.Marshal(report)
	if err != nil {
		log.Warn().Err(err).Str("wallet", report.Wallet).Msg("Report archive marshal failed")
		return
	}
	archived := db.ArchivedReport{
		Wallet:    report.Wallet,
		TotalUSD:  report.TotalUSD(),
		Payload:   payload,
		FetchedAt: report.FetchedAt,
	}
	if report.Summary != nil {
		archived.TradeCount = report.Summary.TradeCount
	}
	if err := h.db.Archive().Save(ctx, archived); err != nil {
		log.Warn().Err(err).Str("wallet", report.Wallet).Msg("Report archive write failed")
	}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Failed to encode response")
	}
}

// writeJSONETag serves the mostly static catalog payloads with a strong ETag
// so the dashboard can revalidate them cheaply.
func (h *Handlers) writeJSONETag(w http.ResponseWriter, r *http.Request, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "encode_failed", err.Error())
		return
	}
	sum := fnv.New64a()
	sum.Write(body)
	etag := strconv.Quote(strconv.FormatUint(sum.Sum64(), 16))
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(append(body, '\n'))
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	h.writeJSON(w, r, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: requestIDFrom(r),
		Timestamp: time.Now().UTC(),
	})
}

// FormatBandBullet renders one line of the percentile placement list shown
// under the wallet panel.
func FormatBandBullet(summary scenario.BandSummary) string {
	label := summary.Label
	if label == "" {
		label = "Unnamed cohort"
	}
	if summary.Start != nil && summary.End != nil {
		bullet := fmt.Sprintf("- **%s** · top %.1f%% – %.1f%%", label, *summary.Start, *summary.End)
		if summary.CohortSize != 0 {
			bullet += " of " + scenario.Comma(summary.CohortSize) + " wallets"
		}
		return bullet
	}
	return fmt.Sprintf("- **%s** · below the modeled volume range", label)
}

func cohortLabel(spec scenario.CohortSpec) string {
	title := spec.Title
	if title == "" {
		title = spec.Key
	}
	if spec.TimelineLabel != "" {
		return title + " · " + spec.TimelineLabel
	}
	return title
}

func queryFlag(r *http.Request, name string) bool {
	switch strings.ToLower(r.URL.Query().Get(name)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func intQuery(r *http.Request, name string) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
