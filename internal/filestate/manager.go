package filestate

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
)

// ExportState maps exported snapshot file names to the dataset version they hold.
type ExportState struct {
	LastVersion uint64            `json:"last_version"`
	Files       map[string]uint64 `json:"files"`
}

func (s *ExportState) Exported(version uint64) bool {
	return version != 0 && version <= s.LastVersion
}

func (s *ExportState) Record(file string, version uint64) {
	if s.Files == nil {
		s.Files = make(map[string]uint64)
	}
	s.Files[file] = version
	if version > s.LastVersion {
		s.LastVersion = version
	}
}

type Manager interface {
	LoadState() (*ExportState, error)
	SaveState(state *ExportState) error
	GetStateFilePath() string
}

type fileStateManager struct {
	filePath string
	mu       sync.RWMutex
}

func NewManager(filePath string) Manager {
	return &fileStateManager{
		filePath: filePath,
	}
}

func (m *fileStateManager) LoadState() (*ExportState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fresh := &ExportState{Files: make(map[string]uint64)}
	data, err := os.ReadFile(m.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("file", m.filePath).Msg("State file not found, starting fresh.")
			return fresh, nil
		}
		log.Error().Err(err).Str("file", m.filePath).Msg("Failed to read state file")
		return nil, err
	}
	if len(data) == 0 {
		log.Warn().Str("file", m.filePath).Msg("State file is empty, starting fresh.")
		return fresh, nil
	}

	var state ExportState
	if err := json.Unmarshal(data, &state); err != nil {
		log.Error().Err(err).Str("file", m.filePath).Msg("Failed to unmarshal state file")
		return nil, err
	}
	if state.Files == nil {
		state.Files = make(map[string]uint64)
	}

	log.Debug().Str("file", m.filePath).Int("files_tracked", len(state.Files)).Msg("Loaded export state")
	return &state, nil
}

// SaveState writes through a temporary file and renames it into place.
func (m *fileStateManager) SaveState(state *ExportState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal state")
		return err
	}

	tempFilePath := m.filePath + ".tmp"
	if err := os.WriteFile(tempFilePath, data, 0644); err != nil {
		log.Error().Err(err).Str("file", tempFilePath).Msg("Failed to write temporary state file")
		return err
	}

	if err := os.Rename(tempFilePath, m.filePath); err != nil {
		log.Error().Err(err).Str("from", tempFilePath).Str("to", m.filePath).Msg("Failed to rename state file")
		_ = os.Remove(tempFilePath)
		return err
	}
	log.Debug().Str("file", m.filePath).Int("files_tracked", len(state.Files)).Msg("Saved export state")
	return nil
}

func (m *fileStateManager) GetStateFilePath() string {
	return m.filePath
}
