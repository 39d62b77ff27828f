package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vectora-backend/config"
	"vectora-backend/internal/cleaning"
	"vectora-backend/internal/dto"
	"vectora-backend/internal/store"
)

func newDatasetFixture(t *testing.T) (DatasetService, store.DatasetStore, string) {
	t.Helper()
	dir := t.TempDir()
	datasets := store.NewInMemoryDatasetStore()
	cfg := &config.Config{
		Server:  config.ServerConfig{APIBaseURL: "http://api.test"},
		Dataset: config.DatasetConfig{ExportDir: dir},
	}
	return NewDatasetService(datasets, cfg), datasets, dir
}

const uploadCSV = "Unnamed: 0,Region,Units-Sold\n0,North,10\n1,South,\n2,East,30\n2,East,30\n"

func TestUpload_PreparesDataset(t *testing.T) {
	svc, datasets, _ := newDatasetFixture(t)

	resp, err := svc.Upload(context.Background(), "sales.csv", strings.NewReader(uploadCSV))
	require.NoError(t, err)
	assert.Equal(t, "File uploaded and processed successfully", resp.Message)
	assert.Equal(t, []string{"Region", "Units Sold"}, resp.Columns)
	assert.Equal(t, 3, resp.Rows)
	assert.Equal(t, uint64(1), resp.Version)

	snap, err := datasets.Current()
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Dataset.NumRows())
}

func TestUpload_RejectsEmptyFile(t *testing.T) {
	svc, _, _ := newDatasetFixture(t)
	_, err := svc.Upload(context.Background(), "empty.csv", strings.NewReader(""))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	svc, _, dir := newDatasetFixture(t)
	path := filepath.Join(dir, "initial.csv")
	require.NoError(t, os.WriteFile(path, []byte(uploadCSV), 0o644))

	resp, err := svc.LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Rows)

	schema, err := svc.Schema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Region", "Units Sold"}, schema.Columns)
}

func TestBasicClean_ReplacesDataset(t *testing.T) {
	svc, _, _ := newDatasetFixture(t)
	_, err := svc.Upload(context.Background(), "sales.csv", strings.NewReader(uploadCSV))
	require.NoError(t, err)

	snap, err := svc.BasicClean(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), snap.Version)
	assert.Equal(t, 2, snap.Dataset.NumRows())
}

func TestAdvancedClean_WritesExport(t *testing.T) {
	svc, _, dir := newDatasetFixture(t)
	_, err := svc.AdvancedExportPath(context.Background())
	assert.ErrorIs(t, err, ErrNoAdvancedExport)

	_, err = svc.Upload(context.Background(), "sales.csv", strings.NewReader(uploadCSV))
	require.NoError(t, err)

	resp, err := svc.AdvancedClean(context.Background(), dto.AdvancedCleanRequest{
		ProblemType: string(cleaning.Classification),
		Target:      "Region",
	})
	require.NoError(t, err)
	assert.Equal(t, "Data cleaned using analyst-grade logic", resp.Message)
	assert.Equal(t, "http://api.test/api/v1/dataset/download/advanced", resp.Download)
	assert.Equal(t, 1, resp.Report.DuplicatesRemoved)
	assert.NotEmpty(t, resp.Summary)
	assert.Equal(t, uint64(2), resp.Version)

	path, err := svc.AdvancedExportPath(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cleaned_advanced.csv"), path)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Region,Units Sold\nNorth,10\nEast,30\n", string(content))
}

func TestDatasetService_NoDataset(t *testing.T) {
	svc, _, _ := newDatasetFixture(t)
	_, err := svc.Schema(context.Background())
	assert.ErrorIs(t, err, store.ErrNoDataset)
	_, err = svc.BasicClean(context.Background())
	assert.ErrorIs(t, err, store.ErrNoDataset)
	_, err = svc.AdvancedClean(context.Background(), dto.AdvancedCleanRequest{})
	assert.ErrorIs(t, err, store.ErrNoDataset)
}
