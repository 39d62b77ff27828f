package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"vectora-backend/internal/dataset"
	"vectora-backend/internal/filestate"
	"vectora-backend/internal/store"
)

type SnapshotService interface {
	// ExportSnapshot writes the live dataset to disk unless its version was exported already.
	// It returns the written path, or "" when nothing was written.
	ExportSnapshot(ctx context.Context) (string, error)
}

type snapshotService struct {
	datasets store.DatasetStore
	state    filestate.Manager
	dir      string
}

func NewSnapshotService(datasets store.DatasetStore, state filestate.Manager, dir string) SnapshotService {
	return &snapshotService{
		datasets: datasets,
		state:    state,
		dir:      dir,
	}
}

func SnapshotFileName(version uint64) string {
	return fmt.Sprintf("dataset-v%d.csv", version)
}

func (s *snapshotService) ExportSnapshot(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	snap, err := s.datasets.Current()
	if errors.Is(err, store.ErrNoDataset) {
		log.Debug().Msg("No dataset loaded, skipping snapshot")
		return "", nil
	}
	if err != nil {
		return "", err
	}

	state, err := s.state.LoadState()
	if err != nil {
		return "", fmt.Errorf("failed to load snapshot state: %w", err)
	}
	if state.Exported(snap.Version) {
		log.Debug().Uint64("version", snap.Version).Msg("Dataset version already exported")
		return "", nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	name := SnapshotFileName(snap.Version)
	path := filepath.Join(s.dir, name)
	if err := writeDatasetFile(path, snap.Dataset); err != nil {
		return "", err
	}

	state.Record(name, snap.Version)
	if err := s.state.SaveState(state); err != nil {
		return "", fmt.Errorf("failed to save snapshot state: %w", err)
	}

	log.Info().Str("path", path).Uint64("version", snap.Version).Int("rows", snap.Dataset.NumRows()).Msg("Exported dataset snapshot")
	return path, nil
}

func writeDatasetFile(path string, ds *dataset.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := dataset.WriteCSV(f, ds); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
