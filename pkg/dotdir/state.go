package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
)

const (
	stateFile = "state.json"

	devicePrefix = "device_"
)

// State is the client state persisted in .council/state.json.
type State struct {
	// DeviceID identifies this client to the backend, which scopes
	// conversation listings by it.
	DeviceID string `json:"device_id"`

	// LastConversation is the conversation the last chat session used.
	LastConversation string `json:"last_conversation,omitempty"`
}

// LoadState loads the state from the target .council/state.json.
// Returns an empty state if the file does not exist.
func (m *Manager) LoadState(overrideDir string) (*State, error) {
	path, err := m.File(overrideDir, stateFile)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &State{}, nil
		}
		return nil, fmt.Errorf("reading state: %w", err)
	}

	state := &State{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing state: %w", err)
	}

	return state, nil
}

// SaveState persists the state to the target .council/state.json.
func (m *Manager) SaveState(state *State, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil state")
	}

	path, err := m.File(overrideDir, stateFile)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}

	return nil
}

// DeviceID returns the persisted device identifier, generating and saving
// a new one on first use.
func (m *Manager) DeviceID(overrideDir string) (string, error) {
	state, err := m.LoadState(overrideDir)
	if err != nil {
		return "", err
	}
	if state.DeviceID != "" {
		return state.DeviceID, nil
	}

	state.DeviceID = NewDeviceID()
	if err := m.SaveState(state, overrideDir); err != nil {
		return "", err
	}
	return state.DeviceID, nil
}

// SetLastConversation records id as the conversation to resume.
func (m *Manager) SetLastConversation(id, overrideDir string) error {
	state, err := m.LoadState(overrideDir)
	if err != nil {
		return err
	}
	state.LastConversation = id
	return m.SaveState(state, overrideDir)
}

// NewDeviceID returns a fresh random device identifier.
func NewDeviceID() string {
	return devicePrefix + uuid.NewString()
}
