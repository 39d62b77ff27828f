package store

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"vectora-backend/internal/dataset"
)

var (
	ErrNoDataset    = errors.New("no dataset loaded")
	ErrStaleVersion = errors.New("dataset changed since it was read")
)

// Snapshot is an immutable view of the live dataset at one version.
type Snapshot struct {
	Dataset   *dataset.Dataset
	Version   uint64
	UpdatedAt time.Time
}

// DatasetStore owns the live dataset. Readers get a consistent snapshot; writers
// replace the dataset wholesale and bump the version.
type DatasetStore interface {
	Current() (Snapshot, error)
	Replace(ds *dataset.Dataset) uint64
	// ReplaceIf replaces the dataset only while the live version is still expected.
	ReplaceIf(expected uint64, ds *dataset.Dataset) (uint64, error)
}

type inMemoryDatasetStore struct {
	mu      sync.RWMutex
	current *dataset.Dataset
	version uint64
	updated time.Time
}

func NewInMemoryDatasetStore() DatasetStore {
	return &inMemoryDatasetStore{}
}

func (s *inMemoryDatasetStore) Current() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Snapshot{}, ErrNoDataset
	}
	return Snapshot{Dataset: s.current, Version: s.version, UpdatedAt: s.updated}, nil
}

func (s *inMemoryDatasetStore) Replace(ds *dataset.Dataset) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.swap(ds)
}

func (s *inMemoryDatasetStore) ReplaceIf(expected uint64, ds *dataset.Dataset) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != expected {
		log.Warn().Uint64("expected", expected).Uint64("live", s.version).Msg("Refusing to replace dataset from a stale version")
		return s.version, ErrStaleVersion
	}
	return s.swap(ds), nil
}

func (s *inMemoryDatasetStore) swap(ds *dataset.Dataset) uint64 {
	s.current = ds
	s.version++
	s.updated = time.Now().UTC()
	log.Info().Uint64("version", s.version).Int("rows", ds.NumRows()).Int("columns", ds.NumCols()).Msg("Live dataset replaced")
	return s.version
}
