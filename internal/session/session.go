package session

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/kobzarvs/tedit/internal/logger"
)

// MaxRecent caps the recent files list.
const MaxRecent = 10

// Session is the persisted state shared between runs.
type Session struct {
	Recent    []string  `toml:"recent"`
	LastSaved time.Time `toml:"last-saved"`
}

// Manager handles session persistence
type Manager struct {
	mu      sync.RWMutex
	session Session
	path    string
	dirty   bool
}

// NewManager loads the session from its default location.
func NewManager() (*Manager, error) {
	path, err := sessionPath()
	if err != nil {
		return nil, err
	}
	return Open(path), nil
}

// Open loads the session stored at path. A missing or unreadable file
// starts an empty session.
func Open(path string) *Manager {
	m := &Manager{path: path}
	m.load()
	return m
}

func sessionPath() (string, error) {
	// XDG state directory
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateDir, "tedit", "session.toml"), nil
}

func (m *Manager) load() {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return // No existing session, start fresh
	}
	var s Session
	if _, err := toml.Decode(string(data), &s); err != nil {
		logger.Warn("session file unreadable, starting fresh", "path", m.path, "error", err)
		return
	}
	if len(s.Recent) > MaxRecent {
		s.Recent = s.Recent[:MaxRecent]
	}
	m.session = s
}

// Path returns the session file location.
func (m *Manager) Path() string { return m.path }

// AddRecent moves path to the front of the recent list.
func (m *Manager) AddRecent(path string) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	recent := make([]string, 0, MaxRecent)
	recent = append(recent, path)
	for _, p := range m.session.Recent {
		if p != path && len(recent) < MaxRecent {
			recent = append(recent, p)
		}
	}
	m.session.Recent = recent
	m.dirty = true
}

// Recent returns the recent files, most recent first.
func (m *Manager) Recent() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.session.Recent...)
}

// Save persists the session to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.dirty {
		return nil
	}

	m.session.LastSaved = time.Now()
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m.session); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(m.path, buf.Bytes(), 0o644); err != nil {
		return err
	}

	m.dirty = false
	return nil
}
