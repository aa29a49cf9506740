// Package paths resolves where the orchestrator keeps its config file.
// Only stdlib imports; config and cmd both depend on it.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	dirName      = ".aiorchestrator"
	localConfig  = "aiorchestrator.yaml"
	globalConfig = "config.yaml"
)

// BaseDir returns the per-user base directory (~/.aiorchestrator).
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// DataPath returns a path within the base directory.
func DataPath(subpath string) (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, subpath), nil
}

// ConfigPath returns the active config file.
// Priority: ./aiorchestrator.yaml > ~/.aiorchestrator/config.yaml
// Returns ("", nil) if neither exists; the environment alone is a valid config.
func ConfigPath() (string, error) {
	if _, err := os.Stat(localConfig); err == nil {
		absPath, err := filepath.Abs(localConfig)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		return absPath, nil
	}

	globalPath, err := DataPath(globalConfig)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(globalPath); err == nil {
		return globalPath, nil
	}

	return "", nil
}

// DefaultConfigPath is where new configs are written (~/.aiorchestrator/config.yaml).
func DefaultConfigPath() (string, error) {
	return DataPath(globalConfig)
}

// EnsureParentDir creates the parent directory of a file path if it doesn't exist.
// Uses 0750 permissions.
func EnsureParentDir(filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// ExpandTilde expands a leading ~ to the user's home directory.
func ExpandTilde(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	if len(path) == 1 {
		return home, nil
	}
	return filepath.Join(home, path[1:]), nil
}
