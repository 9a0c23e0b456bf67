// Package iofs materializes the bcndb directory layout and the
// default configuration files on first run.
package iofs

import (
	_ "embed"
	"encoding/json"
	"os"
	"strconv"

	"github.com/barriodata/bcndb/pkg/config"
)

//go:embed config.yaml
var ConfigYAML string

//go:embed sources.yaml
var SourcesYAML string

// INECodesJSON maps neighborhood codes to the external statistical
// codes used by the national statistics institute. Consulted during
// dimension enrichment, never re-derived.
//
//go:embed ine_codes.json
var INECodesJSON []byte

func EnsureDirs(homeDir string) error {
	dirs := []string{
		config.ConfigDir(homeDir),
		config.CacheDir(homeDir),
		config.RawDir(homeDir),
		config.LogDir(homeDir),
	}
	for _, v := range dirs {
		if err := touchDir(v); err != nil {
			return err
		}
	}
	return nil
}

func touchDir(dir string) error {
	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		return nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return CreateDirError(dir, err)
	}

	return nil
}

func EnsureConfigFile(homeDir string) error {
	configPath := config.ConfigFilePath(homeDir)

	// Check if config file already exists
	if _, err := os.Stat(configPath); err == nil {
		return nil
	}

	// Write embedded config.yaml to the config directory
	if err := os.WriteFile(configPath, []byte(ConfigYAML), 0644); err != nil {
		return CopyFileError(configPath, err)
	}

	return nil
}

func EnsureSourcesFile(homeDir string) error {
	sourcesPath := config.SourcesFilePath(homeDir)

	// Check if sources file already exists
	if _, err := os.Stat(sourcesPath); err == nil {
		return nil
	}

	// Write embedded sources.yaml to the config directory
	if err := os.WriteFile(sourcesPath, []byte(SourcesYAML), 0644); err != nil {
		return CopyFileError(sourcesPath, err)
	}

	return nil
}

// INECodes decodes the embedded neighborhood-to-INE-code mapping.
func INECodes() (map[int]string, error) {
	var raw map[string]string
	if err := json.Unmarshal(INECodesJSON, &raw); err != nil {
		return nil, ReadFileError("ine_codes.json", err)
	}
	res := make(map[int]string, len(raw))
	for k, v := range raw {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, ReadFileError("ine_codes.json", err)
		}
		res[id] = v
	}
	return res, nil
}
