package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"vectora-backend/config"
	"vectora-backend/internal/cleaning"
	"vectora-backend/internal/dataset"
	"vectora-backend/internal/dto"
	"vectora-backend/internal/narrative"
	"vectora-backend/internal/parser"
	"vectora-backend/internal/store"
)

const (
	uploadMessage        = "File uploaded and processed successfully"
	advancedCleanMessage = "Data cleaned using analyst-grade logic"
	advancedExportName   = "cleaned_advanced.csv"
)

var ErrNoAdvancedExport = errors.New("no advanced clean export available")

type DatasetService interface {
	Upload(ctx context.Context, filename string, r io.Reader) (*dto.UploadResponse, error)
	// LoadFile reads a CSV/XLSX file from disk and makes it the live dataset.
	LoadFile(ctx context.Context, path string) (*dto.UploadResponse, error)
	Schema(ctx context.Context) (dataset.Schema, error)
	Current(ctx context.Context) (store.Snapshot, error)
	BasicClean(ctx context.Context) (store.Snapshot, error)
	AdvancedClean(ctx context.Context, req dto.AdvancedCleanRequest) (*dto.AdvancedCleanResponse, error)
	AdvancedExportPath(ctx context.Context) (string, error)
}

type datasetService struct {
	datasets   store.DatasetStore
	exportDir  string
	apiBaseURL string

	mu         sync.Mutex
	exportPath string
}

func NewDatasetService(datasets store.DatasetStore, cfg *config.Config) DatasetService {
	return &datasetService{
		datasets:   datasets,
		exportDir:  cfg.Dataset.ExportDir,
		apiBaseURL: cfg.Server.APIBaseURL,
	}
}

func (s *datasetService) Upload(ctx context.Context, filename string, r io.Reader) (*dto.UploadResponse, error) {
	ds, err := parser.ForFilename(filename).Parse(r)
	if err != nil {
		return nil, fmt.Errorf("error processing file: %w", err)
	}
	ds = parser.Prepare(ds)
	version := s.datasets.Replace(ds)

	log.Info().Str("filename", filename).Int("rows", ds.NumRows()).Int("columns", ds.NumCols()).Uint64("version", version).Msg("Dataset uploaded")
	return &dto.UploadResponse{
		Message: uploadMessage,
		Columns: ds.Columns(),
		Rows:    ds.NumRows(),
		Version: version,
	}, nil
}

func (s *datasetService) LoadFile(ctx context.Context, path string) (*dto.UploadResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer f.Close()
	return s.Upload(ctx, filepath.Base(path), f)
}

func (s *datasetService) Schema(ctx context.Context) (dataset.Schema, error) {
	snap, err := s.datasets.Current()
	if err != nil {
		return dataset.Schema{}, err
	}
	return dataset.ExtractSchema(snap.Dataset), nil
}

func (s *datasetService) Current(ctx context.Context) (store.Snapshot, error) {
	return s.datasets.Current()
}

func (s *datasetService) BasicClean(ctx context.Context) (store.Snapshot, error) {
	snap, err := s.datasets.Current()
	if err != nil {
		return store.Snapshot{}, err
	}
	cleaned := cleaning.Basic(snap.Dataset)
	version, err := s.datasets.ReplaceIf(snap.Version, cleaned)
	if err != nil {
		return store.Snapshot{}, err
	}
	log.Info().Int("rows_before", snap.Dataset.NumRows()).Int("rows_after", cleaned.NumRows()).Msg("Basic clean applied")
	return store.Snapshot{Dataset: cleaned, Version: version}, nil
}

func (s *datasetService) AdvancedClean(ctx context.Context, req dto.AdvancedCleanRequest) (*dto.AdvancedCleanResponse, error) {
	snap, err := s.datasets.Current()
	if err != nil {
		return nil, err
	}

	cleaned, report := cleaning.Advanced(snap.Dataset, cleaning.Options{
		ProblemType: cleaning.ProblemType(req.ProblemType),
		Target:      req.Target,
	})
	version, err := s.datasets.ReplaceIf(snap.Version, cleaned)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export dir: %w", err)
	}
	path := filepath.Join(s.exportDir, advancedExportName)
	if err := writeDatasetFile(path, cleaned); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.exportPath = path
	s.mu.Unlock()

	log.Info().
		Str("problem_type", req.ProblemType).
		Str("target", req.Target).
		Int("rows_after", cleaned.NumRows()).
		Uint64("version", version).
		Msg("Advanced clean applied")

	return &dto.AdvancedCleanResponse{
		Message:  advancedCleanMessage,
		Summary:  narrative.ExplainCleaning(report),
		Report:   report,
		Download: s.apiBaseURL + "/api/v1/dataset/download/advanced",
		Version:  version,
	}, nil
}

func (s *datasetService) AdvancedExportPath(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exportPath == "" {
		return "", ErrNoAdvancedExport
	}
	return s.exportPath, nil
}
