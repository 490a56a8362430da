// Package kiosk holds the collaborators of the embossing kiosk that sit
// next to the device session: persisted API settings and job submission.
package kiosk

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// SettingsKey is the key the settings object is stored under.
const SettingsKey = "embossingApiConfig"

// Mode selects which embossing API receives jobs.
type Mode string

const (
	ModeLocal Mode = "local"
	ModeWeb   Mode = "web"
)

var (
	ErrLocalURLRequired = errors.New("Local URL is required")
	ErrWebURLRequired   = errors.New("Web URL is required")
	ErrUnknownMode      = errors.New("unknown connection mode")
)

// Settings configures the embossing API and machine parameters.
type Settings struct {
	Mode              Mode   `json:"mode"`
	LocalURL          string `json:"localUrl"`
	WebURL            string `json:"webUrl"`
	EmbossingSpeed    int    `json:"embossingSpeed"`
	EmbossingDuration int    `json:"embossingDuration"`
	EmbossingDepth    int    `json:"embossingDepth"`
	Acceleration      int    `json:"acceleration"`
	Jerk              int    `json:"jerk"`
	CoolingTime       int    `json:"coolingTime"`
}

// DefaultSettings returns the factory settings.
func DefaultSettings() Settings {
	return Settings{
		Mode:              ModeLocal,
		LocalURL:          "http://localhost:5000/api/emboss",
		WebURL:            "https://embossing-api.onrender.com/api/emboss",
		EmbossingSpeed:    50,
		EmbossingDuration: 200,
		EmbossingDepth:    5,
		Acceleration:      1000,
		Jerk:              8,
		CoolingTime:       0,
	}
}

// Validate checks that the selected mode has a URL.
func (s Settings) Validate() error {
	switch s.Mode {
	case ModeLocal:
		if s.LocalURL == "" {
			return ErrLocalURLRequired
		}
	case ModeWeb:
		if s.WebURL == "" {
			return ErrWebURLRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, s.Mode)
	}
	return nil
}

// URL returns the endpoint of the selected mode.
func (s Settings) URL() string {
	if s.Mode == ModeWeb {
		return s.WebURL
	}
	return s.LocalURL
}

// Store persists settings in a JSON state file shared with other keys.
type Store struct {
	path string
}

// NewStore returns a store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the state file location.
func (s *Store) Path() string { return s.path }

// Load returns the saved settings. A missing file, a missing key or an
// unparsable value yields DefaultSettings; only I/O failures are errors.
func (s *Store) Load() (Settings, error) {
	state, err := s.readState()
	if err != nil {
		return DefaultSettings(), err
	}
	raw, ok := state[SettingsKey]
	if !ok {
		return DefaultSettings(), nil
	}
	settings := DefaultSettings()
	if err := json.Unmarshal(raw, &settings); err != nil {
		return DefaultSettings(), nil
	}
	return settings, nil
}

// Save validates and writes settings, keeping other keys in the file.
func (s *Store) Save(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	state, err := s.readState()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	state[SettingsKey] = raw

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// readState returns the top-level objects of the state file. A missing or
// corrupt file reads as empty.
func (s *Store) readState() (map[string]json.RawMessage, error) {
	state := make(map[string]json.RawMessage)
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return make(map[string]json.RawMessage), nil
	}
	return state, nil
}
