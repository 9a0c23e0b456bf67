package config

import (
	"path/filepath"
)

var (
	// AppName is used in generating file system paths.
	AppName = "bcndb"
)

// ConfigDir returns the directory path for configuration files.
// Returns ~/.config/bcndb by default.
func ConfigDir(homeDir string) string {
	return filepath.Join(homeDir, ".config", AppName)
}

// CacheDir returns the directory path for cache files.
// Raw extraction output and the manifest ledger live here.
// Returns ~/.cache/bcndb by default.
func CacheDir(homeDir string) string {
	return filepath.Join(homeDir, ".cache", AppName)
}

// RawDir returns the directory where raw per-source extraction files
// are persisted before any transformation.
func RawDir(homeDir string) string {
	return filepath.Join(CacheDir(homeDir), "raw")
}

// ManifestPath returns the path of the SQLite manifest ledger.
func ManifestPath(homeDir string) string {
	return filepath.Join(CacheDir(homeDir), "manifest.sqlite")
}

// LogDir returns the directory path for log files.
// Returns ~/.local/share/bcndb/logs by default.
func LogDir(homeDir string) string {
	return filepath.Join(homeDir, ".local", "share", AppName, "logs")
}

// ConfigFilePath returns the full path to the config.yaml file.
// Returns ~/.config/bcndb/config.yaml by default.
func ConfigFilePath(homeDir string) string {
	return filepath.Join(ConfigDir(homeDir), "config.yaml")
}

// SourcesFilePath returns the full path to the sources.yaml file.
// Returns ~/.config/bcndb/sources.yaml by default.
func SourcesFilePath(homeDir string) string {
	return filepath.Join(ConfigDir(homeDir), "sources.yaml")
}
