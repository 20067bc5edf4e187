package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark || t == ThemeAuto
}

// Settings are the locally persisted client preferences.
type Settings struct {
	Theme            Theme  `json:"theme"`
	AutoSaveInterval int    `json:"autoSaveInterval"` // milliseconds
	GridEnabled      bool   `json:"gridEnabled"`
	LastBoardID      string `json:"lastBoardId,omitempty"`
	Token            string `json:"token,omitempty"`
	APIBaseURL       string `json:"apiBaseUrl,omitempty"`
}

func DefaultSettings() Settings {
	return Settings{Theme: ThemeAuto, AutoSaveInterval: 5000, GridEnabled: true}
}

// SettingsStore persists Settings between runs.
type SettingsStore interface {
	Load() (Settings, error)
	Save(Settings) error
}

// FileSettings keeps settings as JSON in a single file. Missing or
// unreadable files yield the defaults; stored keys override them.
type FileSettings struct {
	Path string
	mu   sync.Mutex
}

func NewFileSettings(path string) *FileSettings {
	return &FileSettings{Path: path}
}

// DefaultSettingsPath is <user config dir>/maplify/settings.json.
func DefaultSettingsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "maplify", "settings.json"), nil
}

func (f *FileSettings) Load() (Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := DefaultSettings()
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read settings: %w", err)
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return DefaultSettings(), fmt.Errorf("parse settings: %w", err)
	}
	if !s.Theme.Valid() {
		s.Theme = ThemeAuto
	}
	return s, nil
}

// Save writes atomically via a temp file. The file holds the session token,
// so it is private to the user.
func (f *FileSettings) Save(s Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return os.Rename(tmp, f.Path)
}

// MemorySettings is an in-process SettingsStore.
type MemorySettings struct {
	mu sync.Mutex
	s  *Settings
}

func (m *MemorySettings) Load() (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.s == nil {
		return DefaultSettings(), nil
	}
	return *m.s, nil
}

func (m *MemorySettings) Save(s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = &s
	return nil
}

// updateSettings applies fn to the stored settings. A nil store is a no-op.
func updateSettings(store SettingsStore, fn func(*Settings)) error {
	if store == nil {
		return nil
	}
	s, err := store.Load()
	if err != nil {
		s = DefaultSettings()
	}
	fn(&s)
	return store.Save(s)
}
