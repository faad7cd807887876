package runstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// RunState describes the last successful run of one event code.
type RunState struct {
	LastRun time.Time `json:"last_run"`
	Records int       `json:"records"`
	File    string    `json:"file"`
	RunID   string    `json:"run_id"`
	Loaded  int       `json:"loaded"`
}

// State maps event codes to their last successful run.
type State map[string]RunState

type Manager interface {
	LoadState() (State, error)
	// Update records run for eventCode and persists the whole state.
	Update(eventCode string, run RunState) error
	GetStateFilePath() string
}

type fileStateManager struct {
	filePath string
	mu       sync.Mutex
}

func NewManager(filePath string) Manager {
	return &fileStateManager{
		filePath: filePath,
	}
}

func (m *fileStateManager) LoadState() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load()
}

func (m *fileStateManager) load() (State, error) {
	data, err := os.ReadFile(m.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("file", m.filePath).Msg("Run state file not found, starting fresh.")
			return make(State), nil
		}
		log.Error().Err(err).Str("file", m.filePath).Msg("Failed to read run state file")
		return nil, err
	}

	if len(data) == 0 {
		log.Warn().Str("file", m.filePath).Msg("Run state file is empty, starting fresh.")
		return make(State), nil
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		log.Error().Err(err).Str("file", m.filePath).Msg("Failed to unmarshal run state file")
		return nil, fmt.Errorf("corrupt run state file %s: %w", m.filePath, err)
	}
	if state == nil {
		state = make(State)
	}
	return state, nil
}

func (m *fileStateManager) Update(eventCode string, run RunState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := m.load()
	if err != nil {
		return err
	}
	state[eventCode] = run
	return m.save(state)
}

func (m *fileStateManager) save(state State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal run state")
		return err
	}

	if dir := filepath.Dir(m.filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create run state directory: %w", err)
		}
	}

	tempFilePath := m.filePath + ".tmp"
	if err := os.WriteFile(tempFilePath, data, 0644); err != nil {
		log.Error().Err(err).Str("file", tempFilePath).Msg("Failed to write temporary run state file")
		return err
	}

	if err := os.Rename(tempFilePath, m.filePath); err != nil {
		log.Error().Err(err).Str("from", tempFilePath).Str("to", m.filePath).Msg("Failed to rename run state file")
		_ = os.Remove(tempFilePath)
		return err
	}
	log.Debug().Str("file", m.filePath).Int("codes_tracked", len(state)).Msg("Saved run state")
	return nil
}

func (m *fileStateManager) GetStateFilePath() string {
	return m.filePath
}
