package controller

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"vectora-backend/internal/dataset"
	"vectora-backend/internal/dto"
	"vectora-backend/internal/model"
	"vectora-backend/internal/service"
)

type DatasetController struct {
	datasetService service.DatasetService
	maxUploadBytes int64
}

func NewDatasetController(datasetService service.DatasetService, maxUploadBytes int64) *DatasetController {
	return &DatasetController{
		datasetService: datasetService,
		maxUploadBytes: maxUploadBytes,
	}
}

func RegisterDatasetRoutes(router *gin.Engine, controller *DatasetController) {
	v1 := router.Group("/api/v1/dataset")
	{
		v1.POST("/upload", controller.Upload)
		v1.GET("/schema", controller.GetSchema)
		v1.GET("/download", controller.Download)
		v1.POST("/clean", controller.Clean)
		v1.POST("/clean/advanced", controller.AdvancedClean)
		v1.GET("/download/advanced", controller.DownloadAdvanced)
	}
}

// Upload godoc
// @Summary      Upload a dataset
// @Description  Parses a CSV or Excel file, drops leftover index columns and incomplete rows, and makes it the live dataset.
// @Tags         dataset
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "CSV, XLSX or XLS file"
// @Success      200 {object} dto.UploadResponse
// @Failure      400 {object} model.Response "Missing or unreadable file"
// @Router       /api/v1/dataset/upload [post]
func (c *DatasetController) Upload(ctx *gin.Context) {
	if c.maxUploadBytes > 0 {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.maxUploadBytes)
	}
	header, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("file is required: "+err.Error(), nil))
		return
	}
	f, err := header.Open()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Error processing file: "+err.Error(), nil))
		return
	}
	defer f.Close()

	resp, err := c.datasetService.Upload(ctx.Request.Context(), header.Filename, f)
	if err != nil {
		log.Warn().Err(err).Str("filename", header.Filename).Msg("Upload rejected")
		ctx.JSON(http.StatusBadRequest, model.NewResponse(err.Error(), nil))
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// GetSchema godoc
// @Summary      Get the dataset schema
// @Description  Column names and the first three rows of the live dataset.
// @Tags         dataset
// @Produce      json
// @Success      200 {object} dataset.Schema
// @Failure      400 {object} model.Response "No dataset loaded"
// @Router       /api/v1/dataset/schema [get]
func (c *DatasetController) GetSchema(ctx *gin.Context) {
	schema, err := c.datasetService.Schema(ctx.Request.Context())
	if err != nil {
		ctx.JSON(datasetErrorStatus(err), model.NewResponse(datasetErrorMessage(err), nil))
		return
	}
	ctx.JSON(http.StatusOK, schema)
}

// Download godoc
// @Summary      Download the live dataset
// @Tags         dataset
// @Produce      text/csv
// @Success      200 {file} file
// @Failure      400 {object} model.Response "No dataset loaded"
// @Router       /api/v1/dataset/download [get]
func (c *DatasetController) Download(ctx *gin.Context) {
	snap, err := c.datasetService.Current(ctx.Request.Context())
	if err != nil {
		ctx.JSON(datasetErrorStatus(err), model.NewResponse(datasetErrorMessage(err), nil))
		return
	}
	writeCSVAttachment(ctx, "data.csv", snap.Dataset)
}

// Clean godoc
// @Summary      Basic clean
// @Description  Fills missing values and removes duplicate rows, replaces the live dataset and returns it as CSV.
// @Tags         dataset
// @Produce      text/csv
// @Success      200 {file} file
// @Failure      400 {object} model.Response "No dataset loaded"
// @Failure      409 {object} model.Response "Dataset changed while cleaning"
// @Router       /api/v1/dataset/clean [post]
func (c *DatasetController) Clean(ctx *gin.Context) {
	snap, err := c.datasetService.BasicClean(ctx.Request.Context())
	if err != nil {
		ctx.JSON(datasetErrorStatus(err), model.NewResponse(datasetErrorMessage(err), nil))
		return
	}
	writeCSVAttachment(ctx, "cleaned_data.csv", snap.Dataset)
}

// AdvancedClean godoc
// @Summary      Advanced clean
// @Description  Runs the problem-type aware cleaning, replaces the live dataset and returns the cleaning report.
// @Tags         dataset
// @Produce      json
// @Param        target       query string false "Target column"
// @Param        problem_type query string false "Problem type" Enums(general, sentiment_analysis, binary_classification, classification)
// @Success      200 {object} dto.AdvancedCleanResponse
// @Failure      400 {object} model.Response "No dataset loaded"
// @Failure      409 {object} model.Response "Dataset changed while cleaning"
// @Failure      500 {object} model.Response "Export failed"
// @Router       /api/v1/dataset/clean/advanced [post]
func (c *DatasetController) AdvancedClean(ctx *gin.Context) {
	var req dto.AdvancedCleanRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid query parameters: "+err.Error(), nil))
		return
	}
	resp, err := c.datasetService.AdvancedClean(ctx.Request.Context(), req)
	if err != nil {
		status := datasetErrorStatus(err)
		if status == http.StatusInternalServerError {
			log.Error().Err(err).Msg("Advanced clean failed")
		}
		ctx.JSON(status, model.NewResponse(datasetErrorMessage(err), nil))
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// DownloadAdvanced godoc
// @Summary      Download the last advanced clean export
// @Tags         dataset
// @Produce      text/csv
// @Success      200 {file} file
// @Failure      404 {object} model.Response "No export yet"
// @Router       /api/v1/dataset/download/advanced [get]
func (c *DatasetController) DownloadAdvanced(ctx *gin.Context) {
	path, err := c.datasetService.AdvancedExportPath(ctx.Request.Context())
	if errors.Is(err, service.ErrNoAdvancedExport) {
		ctx.JSON(http.StatusNotFound, model.NewResponse(err.Error(), nil))
		return
	}
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, model.NewResponse(err.Error(), nil))
		return
	}
	ctx.FileAttachment(path, "cleaned_advanced.csv")
}

func writeCSVAttachment(ctx *gin.Context, filename string, ds *dataset.Dataset) {
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	ctx.Header("Content-Type", "text/csv")
	ctx.Status(http.StatusOK)
	if err := dataset.WriteCSV(ctx.Writer, ds); err != nil {
		log.Error().Err(err).Str("filename", filename).Msg("Failed to stream CSV")
	}
}
