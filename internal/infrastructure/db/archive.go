package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// ArchivedReport is one persisted wallet report: the headline numbers plus
// the raw payload for offline analysis.
type ArchivedReport struct {
	ID         int64           `db:"id" json:"id"`
	Wallet     string          `db:"wallet" json:"wallet"`
	TotalUSD   float64         `db:"total_usd" json:"total_usd"`
	TradeCount int             `db:"trade_count" json:"trade_count"`
	Payload    json.RawMessage `db:"payload" json:"-"`
	FetchedAt  time.Time       `db:"fetched_at" json:"fetched_at"`
}

const reportSchema = `
CREATE TABLE IF NOT EXISTS wallet_reports (
	id          BIGSERIAL PRIMARY KEY,
	wallet      TEXT        NOT NULL,
	total_usd   DOUBLE PRECISION NOT NULL DEFAULT 0,
	trade_count INTEGER     NOT NULL DEFAULT 0,
	payload     JSONB,
	fetched_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS wallet_reports_wallet_idx ON wallet_reports (wallet, fetched_at DESC);
`

// ReportArchive stores fetched wallet reports. Every fetch appends a row, so
// the archive doubles as a history of how a wallet's stats moved over time.
type ReportArchive struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewReportArchive(db *sqlx.DB, timeout time.Duration) *ReportArchive {
	return &ReportArchive{db: db, timeout: timeout}
}

// EnsureSchema creates the archive table if it does not exist yet.
func (a *ReportArchive) EnsureSchema(ctx context.Context) error {
	execCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if _, err := a.db.ExecContext(execCtx, reportSchema); err != nil {
		return fmt.Errorf("failed to ensure wallet_reports schema: %w", err)
	}
	return nil
}

// Save appends one report row
func (a *ReportArchive) Save(ctx context.Context, report ArchivedReport) error {
	if report.FetchedAt.IsZero() {
		report.FetchedAt = time.Now().UTC()
	}

	execCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	_, err := a.db.NamedExecContext(execCtx, `
		INSERT INTO wallet_reports (wallet, total_usd, trade_count, payload, fetched_at)
		VALUES (:wallet, :total_usd, :trade_count, :payload, :fetched_at)`, report)
	if err != nil {
		return fmt.Errorf("failed to archive wallet report: %w", err)
	}

	log.Debug().
		Str("wallet", report.Wallet).
		Float64("total_usd", report.TotalUSD).
		Msg("Wallet report archived")
	return nil
}

// Latest returns the most recent archived report for a wallet, or nil when
// the wallet has never been archived.
func (a *ReportArchive) Latest(ctx context.Context, wallet string) (*ArchivedReport, error) {
	queryCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var report ArchivedReport
	err := a.db.GetContext(queryCtx, &report, `
		SELECT id, wallet, total_usd, trade_count, payload, fetched_at
		FROM wallet_reports
		WHERE wallet = $1
		ORDER BY fetched_at DESC
		LIMIT 1`, wallet)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read archived report: %w", err)
	}
	return &report, nil
}

// Recent returns the newest archived reports across all wallets
func (a *ReportArchive) Recent(ctx context.Context, limit int) ([]ArchivedReport, error) {
	if limit <= 0 {
		limit = 20
	}

	queryCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var reports []ArchivedReport
	err := a.db.SelectContext(queryCtx, &reports, `
		SELECT id, wallet, total_usd, trade_count, payload, fetched_at
		FROM wallet_reports
		ORDER BY fetched_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived reports: %w", err)
	}
	return reports, nil
}
