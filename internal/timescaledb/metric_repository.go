package timescaledb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"vectora-backend/internal/dto"
	"vectora-backend/internal/model"
	"vectora-backend/internal/repository"
)

var ErrInvalidInterval = errors.New("invalid interval")

var allowedGroupBy = map[string]string{
	"operator": "operator",
	"analysis": "analysis",
}

var validIntervals = map[string]bool{
	"1 minute": true, "5 minute": true, "10 minute": true,
	"30 minute": true, "1 hour": true, "1 day": true,
}

type timescaleMetricRepository struct {
	pool       *pgxpool.Pool
	eventTable string
}

func NewTimescaleMetricRepository(pool *pgxpool.Pool) (repository.MetricRepository, error) {
	if pool == nil {
		return nil, errors.New("TimescaleDB connection pool is required for MetricRepository")
	}
	return &timescaleMetricRepository{
		pool:       pool,
		eventTable: metricEventsTableName,
	}, nil
}

func (r *timescaleMetricRepository) GetSummaryMetrics(ctx context.Context, req dto.MetricSummaryRequest) (*dto.MetricSummaryResponse, error) {
	querySQL, args := buildSummaryQuery(r.eventTable, req)
	log.Debug().Str("query", querySQL).Interface("args", args).Msg("Executing TimescaleDB summary query")

	rows, err := r.pool.Query(ctx, querySQL, args...)
	if err != nil {
		log.Error().Err(err).Str("query", querySQL).Msg("Failed to execute summary query")
		return nil, fmt.Errorf("summary query failed: %w", err)
	}
	defer rows.Close()

	resp := &dto.MetricSummaryResponse{ByOperator: map[string]int64{}}
	for rows.Next() {
		var metricName, operator string
		var value int64
		if err := rows.Scan(&metricName, &operator, &value); err != nil {
			log.Error().Err(err).Msg("Failed to scan summary row")
			continue
		}
		switch metricName {
		case model.MetricQueryEvent:
			resp.TotalQueries += value
			resp.ByOperator[operator] += value
		case model.MetricDegradedEvent:
			resp.TotalDegraded += value
		case model.MetricErrorEvent:
			resp.TotalErrors += value
		}
	}
	if err := rows.Err(); err != nil {
		log.Error().Err(err).Msg("Error iterating summary rows")
		return nil, fmt.Errorf("failed iterating summary results: %w", err)
	}
	return resp, nil
}

func (r *timescaleMetricRepository) GetTimeseriesMetrics(ctx context.Context, req dto.MetricTimeseriesRequest) (*dto.MetricTimeseriesResponse, error) {
	querySQL, args, err := buildTimeseriesQuery(r.eventTable, req)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("query", querySQL).Interface("args", args).Msg("Executing TimescaleDB timeseries query")

	rows, err := r.pool.Query(ctx, querySQL, args...)
	if err != nil {
		log.Error().Err(err).Str("query", querySQL).Interface("args", args).Msg("Failed to execute timeseries query")
		return nil, fmt.Errorf("timeseries query failed: %w", err)
	}
	defer rows.Close()

	seriesMap := make(map[string][]dto.TimeseriesDataPoint)
	for rows.Next() {
		var bucket time.Time
		var groupKey *string
		var value int64
		if err := rows.Scan(&bucket, &groupKey, &value); err != nil {
			log.Error().Err(err).Msg("Failed to scan timeseries row")
			continue
		}
		key := fmt.Sprintf("%s_NULL", req.GroupBy)
		if groupKey != nil {
			key = *groupKey
		}
		seriesMap[key] = append(seriesMap[key], dto.TimeseriesDataPoint{
			Timestamp: bucket.UnixMilli(),
			Value:     value,
		})
	}
	if err := rows.Err(); err != nil {
		log.Error().Err(err).Msg("Error iterating timeseries rows")
		return nil, fmt.Errorf("failed iterating query results: %w", err)
	}

	names := make([]string, 0, len(seriesMap))
	for name := range seriesMap {
		names = append(names, name)
	}
	sort.Strings(names)

	response := &dto.MetricTimeseriesResponse{Series: make([]dto.TimeseriesSeries, 0, len(names))}
	for _, name := range names {
		response.Series = append(response.Series, dto.TimeseriesSeries{Name: name, Data: seriesMap[name]})
	}
	return response, nil
}

func buildSummaryQuery(table string, req dto.MetricSummaryRequest) (string, []interface{}) {
	whereClauses := []string{"time >= $1", "time < $2"}
	args := []interface{}{req.StartTime, req.EndTime}
	if clause, opArgs := operatorFilter(req.Operators, len(args)+1); clause != "" {
		whereClauses = append(whereClauses, clause)
		args = append(args, opArgs...)
	}
	querySQL := fmt.Sprintf(
		"SELECT metric_name, operator, COUNT(*) AS value FROM %s WHERE %s GROUP BY metric_name, operator",
		table, strings.Join(whereClauses, " AND "))
	return querySQL, args
}

func buildTimeseriesQuery(table string, req dto.MetricTimeseriesRequest) (string, []interface{}, error) {
	if !validIntervals[req.Interval] {
		return "", nil, fmt.Errorf("%w: %s", ErrInvalidInterval, req.Interval)
	}
	groupBySQL, grouped := allowedGroupBy[req.GroupBy]
	if !grouped {
		groupBySQL = "'total'"
	}

	var qb strings.Builder
	args := []interface{}{req.Interval, req.MetricName, req.StartTime, req.EndTime}
	fmt.Fprintf(&qb, "SELECT time_bucket($1::interval, time) AS bucket, %s AS group_key, COUNT(*) AS value FROM %s ", groupBySQL, table)
	qb.WriteString("WHERE metric_name = $2 AND time >= $3 AND time < $4 ")
	if clause, opArgs := operatorFilter(req.Operators, len(args)+1); clause != "" {
		qb.WriteString("AND " + clause + " ")
		args = append(args, opArgs...)
	}
	qb.WriteString("GROUP BY bucket")
	if grouped {
		qb.WriteString(", group_key")
	}
	qb.WriteString(" ORDER BY bucket ASC")
	return qb.String(), args, nil
}

func operatorFilter(operators []string, firstArg int) (string, []interface{}) {
	if len(operators) == 0 {
		return "", nil
	}
	placeholders := make([]string, len(operators))
	args := make([]interface{}, len(operators))
	for i, op := range operators {
		placeholders[i] = fmt.Sprintf("$%d", firstArg+i)
		args[i] = op
	}
	return fmt.Sprintf("operator IN (%s)", strings.Join(placeholders, ",")), args
}
