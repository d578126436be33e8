package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/quaydocs/corpus-assistant/internal/core/domain"
)

// BindingRepository persists channel→tenant associations. A binding is
// written durably before Upsert returns, so a restart never loses the most
// recent bind.
type BindingRepository struct {
	db *sql.DB
}

func NewBindingRepository(db *sql.DB) *BindingRepository {
	return &BindingRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *BindingRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/gateway startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS channel_bindings (
	channel_id TEXT PRIMARY KEY,
	tenant TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_channel_bindings_tenant ON channel_bindings(tenant);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Upsert overwrites any existing binding for the channel: last write wins.
func (r *BindingRepository) Upsert(ctx context.Context, channelID, tenant string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO channel_bindings (channel_id, tenant, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (channel_id) DO UPDATE SET tenant = EXCLUDED.tenant, updated_at = EXCLUDED.updated_at
`, channelID, tenant, time.Now().UTC())
	if err != nil {
		return domain.WrapError(domain.ErrStorageUnavailable, "upsert binding", err)
	}
	return nil
}

func (r *BindingRepository) Get(ctx context.Context, channelID string) (string, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT tenant FROM channel_bindings WHERE channel_id = $1
`, channelID)

	var tenant string
	if err := row.Scan(&tenant); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.WrapError(domain.ErrNotBound, "resolve binding", fmt.Errorf("channel %s", channelID))
		}
		return "", domain.WrapError(domain.ErrStorageUnavailable, "resolve binding", err)
	}
	return tenant, nil
}

func (r *BindingRepository) ListChannels(ctx context.Context, tenant string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT channel_id FROM channel_bindings WHERE tenant = $1 ORDER BY channel_id
`, tenant)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorageUnavailable, "list bound channels", err)
	}
	defer rows.Close()

	var channels []string
	for rows.Next() {
		var channelID string
		if err := rows.Scan(&channelID); err != nil {
			return nil, domain.WrapError(domain.ErrStorageUnavailable, "list bound channels", err)
		}
		channels = append(channels, channelID)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrStorageUnavailable, "list bound channels", err)
	}
	return channels, nil
}
