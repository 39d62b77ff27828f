package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"vectora-backend/internal/dto"
	"vectora-backend/internal/model"
	"vectora-backend/internal/service"
	"vectora-backend/internal/store"
)

type AskController struct {
	askService service.AskService
}

func NewAskController(askService service.AskService) *AskController {
	return &AskController{
		askService: askService,
	}
}

func RegisterAskRoutes(router *gin.Engine, controller *AskController) {
	v1 := router.Group("/api/v1")
	{
		v1.POST("/ask", controller.Ask)
		v1.GET("/chats", controller.GetChats)
	}
}

// Ask godoc
// @Summary      Ask a question about the loaded dataset
// @Description  Plans the question with the LLM, runs the plan against the live dataset and returns a narrative answer with the structured result. Visualization is attached for sales diagnostics when requested.
// @Tags         ask
// @Accept       json
// @Produce      json
// @Param        request body dto.AskRequest true "Question, optional user and conversation ids"
// @Success      200 {object} dto.AskResponse "Answer, result and optional charts"
// @Failure      400 {object} model.Response "Invalid request body or no dataset loaded"
// @Failure      409 {object} model.Response "Dataset changed while cleaning"
// @Failure      500 {object} model.Response "Plan execution failed"
// @Router       /api/v1/ask [post]
func (c *AskController) Ask(ctx *gin.Context) {
	var req dto.AskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Invalid ask request body")
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid request body: "+err.Error(), nil))
		return
	}

	resp, err := c.askService.Ask(ctx.Request.Context(), req)
	if err != nil {
		status := datasetErrorStatus(err)
		if status == http.StatusInternalServerError {
			log.Error().Err(err).Str("question", req.Question).Msg("Error answering question")
		}
		ctx.JSON(status, model.NewResponse(datasetErrorMessage(err), nil))
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// GetChats godoc
// @Summary      List a user's chat history
// @Tags         ask
// @Produce      json
// @Param        user_id query string true  "User id"
// @Param        limit   query int    false "Maximum entries (default 50, max 500)"
// @Success      200 {array}  model.ChatLog
// @Failure      400 {object} model.Response "Missing user_id"
// @Failure      500 {object} model.Response "Internal server error"
// @Router       /api/v1/chats [get]
func (c *AskController) GetChats(ctx *gin.Context) {
	userID := ctx.Query("user_id")
	if userID == "" {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("user_id is required", nil))
		return
	}
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", "50"))
	if err != nil {
		limit = 0
	}

	logs, err := c.askService.History(ctx.Request.Context(), userID, limit)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Error listing chat history")
		ctx.JSON(http.StatusInternalServerError, model.NewResponse("Failed to list chat history", nil))
		return
	}
	ctx.JSON(http.StatusOK, logs)
}

func datasetErrorStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNoDataset):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrStaleVersion):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func datasetErrorMessage(err error) string {
	if errors.Is(err, store.ErrNoDataset) {
		return "No data loaded. Please upload a CSV file first."
	}
	return err.Error()
}
