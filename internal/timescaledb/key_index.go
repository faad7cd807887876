package timescaledb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"elarocks/internal/kvstore"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const (
	keyIndexTableName = "sysmon_record_keys"
	colSavedTime      = "saved_time"
	colEventAction    = "event_action"
	colRecordKey      = "record_key"
)

// KeyIndex is a time-partitioned table of (event_action, saved_time, record_key)
// rows pointing into the key-value store.
type KeyIndex struct {
	pool      *pgxpool.Pool
	tableName string
}

func NewKeyIndex(ctx context.Context, dsn string) (*KeyIndex, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse TimescaleDB DSN")
		return nil, fmt.Errorf("invalid TimescaleDB DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Error().Err(err).Msg("Unable to create connection pool to TimescaleDB")
		return nil, fmt.Errorf("failed to connect to TimescaleDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		log.Error().Err(err).Msg("Failed to ping TimescaleDB")
		return nil, fmt.Errorf("failed to ping TimescaleDB: %w", err)
	}
	log.Info().Msg("TimescaleDB connection pool created and verified.")

	idx := &KeyIndex{pool: pool, tableName: keyIndexTableName}

	setupCtx, cancelSetup := context.WithTimeout(ctx, 30*time.Second)
	defer cancelSetup()
	if err := idx.ensureHypertable(setupCtx); err != nil {
		pool.Close()
		log.Error().Err(err).Msg("Failed to ensure TimescaleDB hypertable exists")
		return nil, fmt.Errorf("failed ensuring hypertable: %w", err)
	}
	return idx, nil
}

func (k *KeyIndex) ensureHypertable(ctx context.Context) error {
	createTableSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			%s TIMESTAMPTZ NOT NULL,
			%s TEXT NOT NULL,
			%s TEXT NOT NULL
		);`,
		k.tableName, colSavedTime, colEventAction, colRecordKey)
	if _, err := k.pool.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create base table %s: %w", k.tableName, err)
	}

	if _, err := k.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb;"); err != nil {
		log.Warn().Err(err).Msg("Failed to ensure timescaledb extension exists (permission issue?). Trying to proceed...")
	}
	createHyperSQL := fmt.Sprintf(
		"SELECT create_hypertable('%s', '%s', if_not_exists => TRUE, chunk_time_interval => INTERVAL '1 day');",
		k.tableName, colSavedTime)
	if _, err := k.pool.Exec(ctx, createHyperSQL); err != nil && !strings.Contains(err.Error(), "already a hypertable") {
		return fmt.Errorf("failed to create hypertable %s: %w", k.tableName, err)
	}

	indexSQL := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_action_time ON %s (%s, %s);`,
		k.tableName, k.tableName, colEventAction, colSavedTime)
	if _, err := k.pool.Exec(ctx, indexSQL); err != nil {
		log.Warn().Err(err).Msg("Failed to create index on key table (continuing)")
	}

	// Hypertable unique indexes must include the time column.
	uniqueSQL := fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS uq_%s_action_key_time ON %s (%s, %s, %s);`,
		k.tableName, k.tableName, colEventAction, colRecordKey, colSavedTime)
	if _, err := k.pool.Exec(ctx, uniqueSQL); err != nil {
		return fmt.Errorf("failed to create unique index on %s (remove duplicate rows first): %w", k.tableName, err)
	}
	log.Info().Str("table", k.tableName).Msg("Ensured key index hypertable.")
	return nil
}

func copySource(entries []kvstore.IndexEntry) pgx.CopyFromSource {
	return pgx.CopyFromSlice(len(entries), func(i int) ([]any, error) {
		e := entries[i]
		return []any{e.SavedTime.UTC(), e.Action, e.Key}, nil
	})
}

// Record bulk-inserts index rows. Rows already present are skipped, so
// reloading the same file leaves the index unchanged.
func (k *KeyIndex) Record(ctx context.Context, entries []kvstore.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := k.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("timescaledb begin failed: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stagingTable := k.tableName + "_staging"
	createSQL := fmt.Sprintf(`CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP;`, stagingTable, k.tableName)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to create staging table: %w", err)
	}

	columns := []string{colSavedTime, colEventAction, colRecordKey}
	copyCount, err := tx.CopyFrom(ctx, pgx.Identifier{stagingTable}, columns, copySource(entries))
	if err != nil {
		log.Error().Err(err).Msg("Failed to bulk copy record keys into staging table")
		return fmt.Errorf("timescaledb copyfrom failed: %w", err)
	}

	tag, err := tx.Exec(ctx, insertFromStagingSQL(k.tableName, stagingTable))
	if err != nil {
		log.Error().Err(err).Msg("Failed to merge record keys into TimescaleDB")
		return fmt.Errorf("timescaledb insert failed: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("timescaledb commit failed: %w", err)
	}
	log.Debug().Int64("copied", copyCount).Int64("inserted", tag.RowsAffected()).Msg("Recorded keys in TimescaleDB index")
	return nil
}

func insertFromStagingSQL(table, staging string) string {
	return fmt.Sprintf(
		`INSERT INTO %[1]s (%[3]s, %[4]s, %[5]s) SELECT DISTINCT %[3]s, %[4]s, %[5]s FROM %[2]s ON CONFLICT (%[4]s, %[5]s, %[3]s) DO NOTHING;`,
		table, staging, colSavedTime, colEventAction, colRecordKey)
}

// Keys returns the record keys of action saved within [start, end], oldest first.
func (k *KeyIndex) Keys(ctx context.Context, action string, start, end time.Time) ([]string, error) {
	query := fmt.Sprintf(`SELECT DISTINCT %s FROM %s WHERE %s = $1 AND %s BETWEEN $2 AND $3 ORDER BY %s`,
		colRecordKey, k.tableName, colEventAction, colSavedTime, colRecordKey)
	rows, err := k.pool.Query(ctx, query, action, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("key index query failed: %w", err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("key index scan failed: %w", err)
	}
	return keys, nil
}

func (k *KeyIndex) Close() {
	log.Info().Msg("Closing TimescaleDB connection pool...")
	k.pool.Close()
}
