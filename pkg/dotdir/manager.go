// Package dotdir resolves the .spool/ directory that holds the active
// profile. A project-local ./.spool/ takes precedence over the user-wide
// ~/.spool/ so profiles can travel with the codebase they instrument.
package dotdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the spool directory.
	dirName = ".spool"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path to the active .spool/ directory.
// Order of precedence is as follows:
//  1. Provided override (created when missing)
//  2. Local ./.spool/ dir, when it exists
//  3. Home ~/.spool/ dir, when it exists
//
// Returns "" when no override is given and neither directory exists;
// callers then fall back to built-in defaults.
func (m *Manager) Target(overrideDir string) (string, error) {
	if overrideDir != "" {
		if err := os.MkdirAll(overrideDir, 0o755); err != nil {
			return "", fmt.Errorf("creating spool directory %s: %w", overrideDir, err)
		}
		return filepath.Abs(overrideDir)
	}

	if dir, ok := m.localDir(); ok {
		return filepath.Abs(dir)
	}

	if dir, ok := m.homeDir(); ok {
		return filepath.Abs(dir)
	}

	return "", nil
}

// Init creates a .spool/ directory under the given base directory.
// Reports whether the directory already existed.
func (m *Manager) Init(baseDir string) (string, bool, error) {
	dir := filepath.Join(baseDir, dirName)

	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		return dir, true, nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", false, fmt.Errorf("checking spool directory: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, fmt.Errorf("creating spool directory: %w", err)
	}

	return dir, false, nil
}

// localDir reports the ./.spool/ directory in the current working directory,
// when one exists.
func (m *Manager) localDir() (string, bool) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false
	}

	dir := filepath.Join(cwd, dirName)
	info, err := os.Stat(dir)
	return dir, err == nil && info.IsDir()
}

// homeDir reports the ~/.spool/ directory, when one exists.
func (m *Manager) homeDir() (string, bool) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}

	dir := filepath.Join(home, dirName)
	info, err := os.Stat(dir)
	return dir, err == nil && info.IsDir()
}
