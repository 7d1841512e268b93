// Package config provides configuration management for recall.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Paths holds the directory layout for recall.
type Paths struct {
	// ConfigDir is the directory for configuration files (~/.config/recall)
	ConfigDir string

	// DataDir is the directory for data files (~/.local/share/recall)
	DataDir string

	// CacheDir is the directory for cache files (~/.cache/recall)
	CacheDir string
}

// DefaultPaths returns the default paths based on the XDG Base Directory
// spec. On Windows it uses %APPDATA% instead.
func DefaultPaths() *Paths {
	home := homeDir()

	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			localAppData = filepath.Join(home, "AppData", "Local")
		}

		return &Paths{
			ConfigDir: filepath.Join(appData, "recall"),
			DataDir:   filepath.Join(localAppData, "recall"),
			CacheDir:  filepath.Join(localAppData, "recall", "cache"),
		}
	}

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = filepath.Join(home, ".config")
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = filepath.Join(home, ".local", "share")
	}

	cacheHome := os.Getenv("XDG_CACHE_HOME")
	if cacheHome == "" {
		cacheHome = filepath.Join(home, ".cache")
	}

	return &Paths{
		ConfigDir: filepath.Join(configHome, "recall"),
		DataDir:   filepath.Join(dataHome, "recall"),
		CacheDir:  filepath.Join(cacheHome, "recall"),
	}
}

// ConfigFile returns the path to the main configuration file.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.ConfigDir, "config.yaml")
}

// DatabaseFile returns the path to the SQLite history database.
func (p *Paths) DatabaseFile() string {
	return filepath.Join(p.DataDir, "history.db")
}

// LogFile returns the path to the log file.
func (p *Paths) LogFile() string {
	return filepath.Join(p.DataDir, "recall.log")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Last resort; keeps paths relative instead of crashing.
		return "."
	}
	return home
}
