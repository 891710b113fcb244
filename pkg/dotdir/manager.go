// Package dotdir manages the .council/ and ~/.council directories.
//
// The directory holds config.toml and the client state: the device
// identifier that owns this machine's conversations and the conversation
// last used for chat.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const dirName = ".council"

// Manager resolves the council directory for a command invocation.
type Manager struct {
	getwd   func() (string, error)
	homeDir func() (string, error)
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithWorkDir resolves the local .council/ against dir instead of the
// process working directory.
func WithWorkDir(dir string) ManagerOption {
	return func(m *Manager) {
		m.getwd = func() (string, error) { return dir, nil }
	}
}

// WithHomeDir places the fallback directory under dir instead of the
// user's home.
func WithHomeDir(dir string) ManagerOption {
	return func(m *Manager) {
		m.homeDir = func() (string, error) { return dir, nil }
	}
}

func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		getwd:   os.Getwd,
		homeDir: os.UserHomeDir,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Target returns the absolute path of the council directory, creating it
// when missing. The first match wins:
//  1. overrideDir, when not empty
//  2. .council/ in the working directory, when it exists
//  3. ~/.council/
func (m *Manager) Target(overrideDir string) (string, error) {
	dir, err := m.resolve(overrideDir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating council directory %s: %w", dir, err)
	}
	return filepath.Abs(dir)
}

// File returns the path of name inside the target directory.
func (m *Manager) File(overrideDir, name string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func (m *Manager) resolve(overrideDir string) (string, error) {
	if overrideDir != "" {
		return overrideDir, nil
	}

	if cwd, err := m.getwd(); err == nil {
		local := filepath.Join(cwd, dirName)
		if info, err := os.Stat(local); err == nil && info.IsDir() {
			return local, nil
		}
	}

	home, err := m.homeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}
