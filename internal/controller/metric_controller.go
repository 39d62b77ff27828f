package controller

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"vectora-backend/internal/dto"
	"vectora-backend/internal/model"
	"vectora-backend/internal/service"
	"vectora-backend/internal/util"
)

const defaultLookback = "now-24h"

type MetricController struct {
	metricQueryService service.MetricQueryService
	now                func() time.Time
}

func NewMetricController(metricQueryService service.MetricQueryService) *MetricController {
	return &MetricController{
		metricQueryService: metricQueryService,
		now:                time.Now,
	}
}

func RegisterMetricRoutes(router *gin.Engine, controller *MetricController) {
	v1Metrics := router.Group("/api/v1/metrics")
	{
		v1Metrics.GET("/summary", controller.GetSummaryMetrics)
		v1Metrics.GET("/timeseries", controller.GetTimeseriesMetrics)
	}
}

// GetSummaryMetrics godoc
// @Summary      Get summary metrics
// @Description  Retrieves total, degraded and failed question counts within a time range, with a per-operator breakdown.
// @Tags         metrics
// @Accept       json
// @Produce      json
// @Param        startTime query string false "Start time (ISO 8601, epoch ms or now-1h style, default now-24h)"
// @Param        endTime   query string false "End time (ISO 8601, epoch ms or now, default now)"
// @Param        operators query string false "Comma-separated list of operators"
// @Success      200 {object} dto.MetricSummaryResponse "Successfully retrieved summary metrics"
// @Failure      400 {object} model.Response "Invalid query parameters"
// @Failure      500 {object} model.Response "Internal server error"
// @Router       /api/v1/metrics/summary [get]
func (c *MetricController) GetSummaryMetrics(ctx *gin.Context) {
	startTime, endTime, operators, err := parseBaseQueryParams(ctx, c.now())
	if err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse(err.Error(), nil))
		return
	}

	req := dto.MetricSummaryRequest{
		StartTime: startTime,
		EndTime:   endTime,
		Operators: operators,
	}

	result, err := c.metricQueryService.GetSummary(ctx.Request.Context(), req)
	if err != nil {
		log.Error().Err(err).Msg("Error getting summary metrics")
		ctx.JSON(http.StatusInternalServerError, model.NewResponse("Failed to get summary metrics", nil))
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// GetTimeseriesMetrics godoc
// @Summary      Get timeseries metrics
// @Description  Retrieves bucketed counts for one metric, optionally grouped by operator or analysis.
// @Tags         metrics
// @Accept       json
// @Produce      json
// @Param        startTime  query string false "Start time (ISO 8601, epoch ms or now-1h style, default now-24h)"
// @Param        endTime    query string false "End time (ISO 8601, epoch ms or now, default now)"
// @Param        operators  query string false "Comma-separated list of operators"
// @Param        metricName query string true  "Metric name" Enums(query_event, degraded_event, error_event)
// @Param        interval   query string true  "Bucket width" Enums(1 minute, 5 minute, 10 minute, 30 minute, 1 hour, 1 day)
// @Param        groupBy    query string false "Grouping (default total)" Enums(operator, analysis, total)
// @Success      200 {object} dto.MetricTimeseriesResponse "Successfully retrieved timeseries metrics"
// @Failure      400 {object} model.Response "Invalid query parameters"
// @Failure      500 {object} model.Response "Internal server error"
// @Router       /api/v1/metrics/timeseries [get]
func (c *MetricController) GetTimeseriesMetrics(ctx *gin.Context) {
	startTime, endTime, operators, err := parseBaseQueryParams(ctx, c.now())
	if err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse(err.Error(), nil))
		return
	}

	metricName := ctx.Query("metricName")
	interval := ctx.Query("interval")
	groupBy := ctx.DefaultQuery("groupBy", "total")

	if metricName == "" {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("metricName is required", nil))
		return
	}
	if interval == "" {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("interval is required", nil))
		return
	}

	req := dto.MetricTimeseriesRequest{
		StartTime:  startTime,
		EndTime:    endTime,
		Operators:  operators,
		MetricName: metricName,
		Interval:   interval,
		GroupBy:    groupBy,
	}

	result, err := c.metricQueryService.GetTimeseries(ctx.Request.Context(), req)
	if err != nil {
		log.Error().Err(err).Msg("Error getting timeseries metrics")
		if strings.Contains(err.Error(), "invalid") {
			ctx.JSON(http.StatusBadRequest, model.NewResponse(err.Error(), nil))
		} else {
			ctx.JSON(http.StatusInternalServerError, model.NewResponse("Failed to get timeseries metrics", nil))
		}
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// parseBaseQueryParams reads startTime, endTime and operators. Missing bounds
// default to the last 24 hours.
func parseBaseQueryParams(ctx *gin.Context, now time.Time) (time.Time, time.Time, []string, error) {
	startTime, errStart := util.ParseTimeInput(ctx.DefaultQuery("startTime", defaultLookback), now)
	endTime, errEnd := util.ParseTimeInput(ctx.DefaultQuery("endTime", "now"), now)
	if errStart != nil || errEnd != nil {
		return time.Time{}, time.Time{}, nil, errors.New("invalid startTime or endTime format. Use ISO 8601, epoch milliseconds or now-<n><unit>")
	}
	if endTime.Before(startTime) {
		return time.Time{}, time.Time{}, nil, errors.New("endTime cannot be before startTime")
	}

	var operators []string
	if raw := ctx.Query("operators"); raw != "" {
		for _, op := range strings.Split(raw, ",") {
			if op = strings.TrimSpace(op); op != "" {
				operators = append(operators, op)
			}
		}
	}
	return startTime, endTime, operators, nil
}
