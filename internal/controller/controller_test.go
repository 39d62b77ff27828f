package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vectora-backend/config"
	"vectora-backend/internal/controller"
	"vectora-backend/internal/dataset"
	"vectora-backend/internal/dto"
	"vectora-backend/internal/model"
	"vectora-backend/internal/service"
	"vectora-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(router *gin.Engine, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp model.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Message
}

// --- ask ---

type stubAskService struct {
	resp *dto.AskResponse
	err  error
	got  dto.AskRequest
}

func (s *stubAskService) Ask(ctx context.Context, req dto.AskRequest) (*dto.AskResponse, error) {
	s.got = req
	return s.resp, s.err
}

func (s *stubAskService) History(ctx context.Context, userID string, limit int) ([]model.ChatLog, error) {
	return []model.ChatLog{{UserID: userID, Question: "q", Answer: "a"}}, nil
}

func newAskRouter(svc service.AskService) *gin.Engine {
	r := gin.New()
	controller.RegisterAskRoutes(r, controller.NewAskController(svc))
	return r
}

func TestAsk(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svc        *stubAskService
		wantStatus int
		wantText   string
	}{
		{
			name:       "Answer",
			body:       `{"question":"total sales?","user_id":"u1"}`,
			svc:        &stubAskService{resp: &dto.AskResponse{ConversationID: "c1", Answer: "The total is 1."}},
			wantStatus: http.StatusOK,
			wantText:   "The total is 1.",
		},
		{
			name:       "Missing question",
			body:       `{"user_id":"u1"}`,
			svc:        &stubAskService{},
			wantStatus: http.StatusBadRequest,
			wantText:   "Invalid request body",
		},
		{
			name:       "No dataset",
			body:       `{"question":"total?"}`,
			svc:        &stubAskService{err: store.ErrNoDataset},
			wantStatus: http.StatusBadRequest,
			wantText:   "No data loaded. Please upload a CSV file first.",
		},
		{
			name:       "Stale clean",
			body:       `{"question":"clean it"}`,
			svc:        &stubAskService{err: store.ErrStaleVersion},
			wantStatus: http.StatusConflict,
			wantText:   store.ErrStaleVersion.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(newAskRouter(tt.svc), http.MethodPost, "/api/v1/ask", bytes.NewBufferString(tt.body), "application/json")
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantText)
		})
	}
}

func TestAsk_PassesVisualizeFlag(t *testing.T) {
	svc := &stubAskService{resp: &dto.AskResponse{}}
	w := perform(newAskRouter(svc), http.MethodPost, "/api/v1/ask", bytes.NewBufferString(`{"question":"q","visualize":true}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.got.Visualize)
}

func TestGetChats(t *testing.T) {
	router := newAskRouter(&stubAskService{})

	w := perform(router, http.MethodGet, "/api/v1/chats?user_id=u1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var logs []model.ChatLog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "u1", logs[0].UserID)

	w = perform(router, http.MethodGet, "/api/v1/chats", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- dataset ---

func newDatasetRouter(t *testing.T) (*gin.Engine, store.DatasetStore) {
	t.Helper()
	datasets := store.NewInMemoryDatasetStore()
	svc := service.NewDatasetService(datasets, datasetTestConfig(t))
	r := gin.New()
	controller.RegisterDatasetRoutes(r, controller.NewDatasetController(svc, 1<<20))
	return r, datasets
}

func multipartFile(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestDatasetFlow(t *testing.T) {
	router, _ := newDatasetRouter(t)

	w := perform(router, http.MethodGet, "/api/v1/dataset/schema", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No data loaded. Please upload a CSV file first.", decodeMessage(t, w))

	body, contentType := multipartFile(t, "file", "sales.csv", "Region,Sales\nNorth,10\nNorth,10\nSouth,\n")
	w = perform(router, http.MethodPost, "/api/v1/dataset/upload", body, contentType)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var upload dto.UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &upload))
	assert.Equal(t, []string{"Region", "Sales"}, upload.Columns)
	assert.Equal(t, 2, upload.Rows)

	w = perform(router, http.MethodGet, "/api/v1/dataset/schema", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var schema dataset.Schema
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &schema))
	assert.Len(t, schema.SampleRows, 2)

	w = perform(router, http.MethodGet, "/api/v1/dataset/download", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Region,Sales\nNorth,10\nNorth,10\n", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="data.csv"`)

	w = perform(router, http.MethodPost, "/api/v1/dataset/clean", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Region,Sales\nNorth,10\n", w.Body.String())
}

func TestAdvancedCleanAndDownload(t *testing.T) {
	router, datasets := newDatasetRouter(t)

	w := perform(router, http.MethodGet, "/api/v1/dataset/download/advanced", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	datasets.Replace(dataset.MustNew(
		dataset.NewTextColumn("Review", "Great product, loved it!", "Terrible service..."),
		dataset.NewTextColumn("Label", "pos", "neg"),
	))

	w = perform(router, http.MethodPost, "/api/v1/dataset/clean/advanced?problem_type=sentiment_analysis", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp dto.AdvancedCleanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Data cleaned using analyst-grade logic", resp.Message)
	require.NotNil(t, resp.Report)
	assert.Equal(t, []string{"Cleaned text in column 'Review' (lowercased, removed punctuation)."}, resp.Report.ProblemTypeActions)

	w = perform(router, http.MethodGet, "/api/v1/dataset/download/advanced", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Review,Label\ngreat product loved it,pos\nterrible service,neg\n", w.Body.String())
}

func TestUpload_MissingFile(t *testing.T) {
	router, _ := newDatasetRouter(t)
	body, contentType := multipartFile(t, "other", "x.csv", "a\n1\n")
	w := perform(router, http.MethodPost, "/api/v1/dataset/upload", body, contentType)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- events & metrics ---

type stubEventQueryService struct {
	got dto.EventSearchRequest
}

func (s *stubEventQueryService) SearchEvents(ctx context.Context, req dto.EventSearchRequest) (*dto.EventSearchResponse, error) {
	s.got = req
	return &dto.EventSearchResponse{Events: []model.AnalysisEvent{{ID: "e1"}}, TotalCount: 1, Page: req.Page, Size: req.Size}, nil
}

func TestGetEvents(t *testing.T) {
	svc := &stubEventQueryService{}
	r := gin.New()
	controller.RegisterEventRoutes(r, controller.NewEventController(svc))

	w := perform(r, http.MethodGet, "/api/v1/events?startTime=2024-05-01T00:00:00Z&endTime=2024-05-02T00:00:00Z&operators=sum,%20clean&degraded=true&page=2&size=10&query=sales", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"sum", "clean"}, svc.got.Operators)
	require.NotNil(t, svc.got.Degraded)
	assert.True(t, *svc.got.Degraded)
	assert.Equal(t, 2, svc.got.Page)
	assert.Equal(t, "sales", svc.got.Query)
	assert.True(t, svc.got.EndTime.Equal(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)))

	w = perform(r, http.MethodGet, "/api/v1/events?degraded=maybe", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(r, http.MethodGet, "/api/v1/events?startTime=yesterday", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type stubMetricQueryService struct {
	err error
	got dto.MetricTimeseriesRequest
}

func (s *stubMetricQueryService) GetSummary(ctx context.Context, req dto.MetricSummaryRequest) (*dto.MetricSummaryResponse, error) {
	return &dto.MetricSummaryResponse{TotalQueries: 7, ByOperator: map[string]int64{"sum": 7}}, nil
}

func (s *stubMetricQueryService) GetTimeseries(ctx context.Context, req dto.MetricTimeseriesRequest) (*dto.MetricTimeseriesResponse, error) {
	s.got = req
	return &dto.MetricTimeseriesResponse{}, s.err
}

func TestMetricRoutes(t *testing.T) {
	svc := &stubMetricQueryService{}
	r := gin.New()
	controller.RegisterMetricRoutes(r, controller.NewMetricController(svc))

	w := perform(r, http.MethodGet, "/api/v1/metrics/summary?startTime=now-7d", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"totalQueries":7,"totalDegraded":0,"totalErrors":0,"byOperator":{"sum":7}}`, w.Body.String())

	w = perform(r, http.MethodGet, "/api/v1/metrics/timeseries?metricName=query_event&interval=1%20hour&groupBy=operator", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "operator", svc.got.GroupBy)
	assert.Equal(t, 24*time.Hour, svc.got.EndTime.Sub(svc.got.StartTime))

	w = perform(r, http.MethodGet, "/api/v1/metrics/timeseries?interval=1%20hour", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "metricName is required", decodeMessage(t, w))

	w = perform(r, http.MethodGet, "/api/v1/metrics/timeseries?startTime=now&endTime=now-1h&metricName=query_event&interval=1%20hour", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func datasetTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server:  config.ServerConfig{APIBaseURL: "http://api.test"},
		Dataset: config.DatasetConfig{ExportDir: t.TempDir()},
	}
}
