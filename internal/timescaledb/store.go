package timescaledb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"vectora-backend/config"
	"vectora-backend/internal/model"
)

type MetricStore interface {
	StoreMetricEvents(ctx context.Context, events []model.MetricEvent) error
	Close()
}

type timescaleMetricStore struct {
	pool      *pgxpool.Pool
	tableName string
}

const metricEventsTableName = "analysis_metric_events"

// metricColumns is the COPY column order; metricRow must follow it.
var metricColumns = []string{"time", "metric_name", "operator", "analysis", "dataset_version", "duration_ms", "tags"}

func ProvideTimescaleDBPool(lc fx.Lifecycle, cfg *config.Config) (MetricStore, *pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.TimescaleDB.DSN)
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse TimescaleDB DSN")
		return nil, nil, fmt.Errorf("invalid TimescaleDB DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Error().Err(err).Msg("Unable to create connection pool to TimescaleDB")
		return nil, nil, fmt.Errorf("failed to connect to TimescaleDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		log.Error().Err(err).Msg("Failed to ping TimescaleDB")
		return nil, nil, fmt.Errorf("failed to ping TimescaleDB: %w", err)
	}

	store := &timescaleMetricStore{pool: pool, tableName: metricEventsTableName}

	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelSetup()
	if err := store.bootstrap(setupCtx); err != nil {
		pool.Close()
		log.Error().Err(err).Str("table", store.tableName).Msg("Failed to bootstrap analysis metrics table")
		return nil, nil, fmt.Errorf("failed bootstrapping %s: %w", store.tableName, err)
	}
	log.Info().Str("table", store.tableName).Msg("TimescaleDB analysis metrics store ready")

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Closing TimescaleDB connection pool...")
			store.Close()
			return nil
		},
	})

	return store, pool, nil
}

// schemaStatement is one bootstrap step. Optional steps only warn when they fail.
type schemaStatement struct {
	name     string
	sql      string
	optional bool
}

// metricSchema lists the statements that create the analysis metrics hypertable.
// The extension may need superuser rights, and indexes can be added later by hand,
// so neither blocks startup.
func metricSchema(table string) []schemaStatement {
	return []schemaStatement{
		{name: "extension", sql: "CREATE EXTENSION IF NOT EXISTS timescaledb;", optional: true},
		{name: "table", sql: fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			time            TIMESTAMPTZ NOT NULL,
			metric_name     TEXT NOT NULL,
			operator        TEXT NOT NULL,
			analysis        TEXT NOT NULL DEFAULT '',
			dataset_version BIGINT NOT NULL DEFAULT 0,
			duration_ms     BIGINT NOT NULL DEFAULT 0,
			tags            JSONB
		);`, table)},
		{name: "hypertable", sql: fmt.Sprintf(
			"SELECT create_hypertable('%s', 'time', if_not_exists => TRUE, chunk_time_interval => INTERVAL '1 day');", table)},
		{name: "operator index", optional: true, sql: fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS idx_%[1]s_name_op_time ON %[1]s (metric_name, operator, time DESC);", table)},
		{name: "analysis index", optional: true, sql: fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS idx_%[1]s_analysis_time ON %[1]s (analysis, time DESC);", table)},
		{name: "error index", optional: true, sql: fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS idx_%[1]s_errors ON %[1]s (time DESC) WHERE metric_name = '%[2]s';", table, model.MetricErrorEvent)},
	}
}

func (s *timescaleMetricStore) bootstrap(ctx context.Context) error {
	for _, stmt := range metricSchema(s.tableName) {
		_, err := s.pool.Exec(ctx, stmt.sql)
		if err == nil || strings.Contains(err.Error(), "already a hypertable") {
			continue
		}
		if stmt.optional {
			log.Warn().Err(err).Str("step", stmt.name).Msg("Optional metrics schema step failed (continuing)")
			continue
		}
		return fmt.Errorf("%s: %w", stmt.name, err)
	}
	return nil
}

// metricRow converts an event into COPY values in metricColumns order.
func metricRow(e model.MetricEvent) []interface{} {
	var tags []byte
	if len(e.Tags) > 0 {
		encoded, err := json.Marshal(e.Tags)
		if err != nil {
			log.Error().Err(err).Interface("tags", e.Tags).Msg("Failed to marshal metric tags to JSON, inserting null")
		} else {
			tags = encoded
		}
	}
	return []interface{}{e.Time, e.MetricName, e.Operator, e.Analysis, e.DatasetVersion, e.DurationMs, tags}
}

// StoreMetricEvents bulk inserts metric events with COPY.
func (s *timescaleMetricStore) StoreMetricEvents(ctx context.Context, events []model.MetricEvent) error {
	if len(events) == 0 {
		return nil
	}

	source := pgx.CopyFromSlice(len(events), func(i int) ([]interface{}, error) {
		return metricRow(events[i]), nil
	})
	copyCount, err := s.pool.CopyFrom(ctx, pgx.Identifier{s.tableName}, metricColumns, source)
	if err != nil {
		log.Error().Err(err).Int("count", len(events)).Msg("Failed to copy analysis metrics into TimescaleDB")
		return fmt.Errorf("timescaledb copyfrom failed: %w", err)
	}

	if int(copyCount) != len(events) {
		log.Warn().Int64("inserted", copyCount).Int("expected", len(events)).Msg("TimescaleDB CopyFrom event count mismatch")
	}
	return nil
}

func (s *timescaleMetricStore) Close() {
	s.pool.Close()
}
