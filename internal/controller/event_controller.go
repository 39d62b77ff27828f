package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"vectora-backend/internal/dto"
	"vectora-backend/internal/model"
	"vectora-backend/internal/service"
)

type EventController struct {
	eventQueryService service.EventQueryService
	now               func() time.Time
}

func NewEventController(eventQueryService service.EventQueryService) *EventController {
	return &EventController{
		eventQueryService: eventQueryService,
		now:               time.Now,
	}
}

func RegisterEventRoutes(router *gin.Engine, controller *EventController) {
	v1 := router.Group("/api/v1/events")
	{
		v1.GET("", controller.GetEvents)
	}
}

// GetEvents godoc
// @Summary      Search analysis events
// @Description  Retrieves indexed analysis events by time range, free text over questions and errors, operators and degraded flag. Supports pagination.
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        startTime query string false "Start time (ISO 8601, epoch ms or now-1h style, default now-24h)"
// @Param        endTime   query string false "End time (ISO 8601, epoch ms or now, default now)"
// @Param        query     query string false "Free text search query"
// @Param        operators query string false "Comma-separated operators (e.g., sum,clean)"
// @Param        degraded  query bool   false "Only degraded (true) or only normal (false) answers"
// @Param        sortOrder query string false "Sort order on @timestamp (default: desc)" Enums(asc, desc)
// @Param        page      query int    false "Page number (default: 1)" minimum(1)
// @Param        size      query int    false "Events per page (default: 100, max: 1000)" minimum(1) maximum(1000)
// @Success      200 {object} dto.EventSearchResponse
// @Failure      400 {object} model.Response "Invalid query parameters"
// @Failure      500 {object} model.Response "Internal server error"
// @Router       /api/v1/events [get]
func (c *EventController) GetEvents(ctx *gin.Context) {
	startTime, endTime, operators, err := parseBaseQueryParams(ctx, c.now())
	if err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse(err.Error(), nil))
		return
	}

	page, err := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(ctx.DefaultQuery("size", "100"))
	if err != nil || size <= 0 || size > 1000 {
		size = 100
	}

	req := dto.EventSearchRequest{
		StartTime: startTime,
		EndTime:   endTime,
		Query:     ctx.Query("query"),
		Operators: operators,
		SortOrder: ctx.DefaultQuery("sortOrder", "desc"),
		Page:      page,
		Size:      size,
	}
	if raw := ctx.Query("degraded"); raw != "" {
		degraded, err := strconv.ParseBool(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, model.NewResponse("degraded must be true or false", nil))
			return
		}
		req.Degraded = &degraded
	}

	result, err := c.eventQueryService.SearchEvents(ctx.Request.Context(), req)
	if err != nil {
		log.Error().Err(err).Msg("Error searching analysis events")
		ctx.JSON(http.StatusInternalServerError, model.NewResponse("Failed to search events", nil))
		return
	}
	ctx.JSON(http.StatusOK, result)
}
