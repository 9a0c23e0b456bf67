package iofs

import (
	"os"

	"github.com/barriodata/bcndb/pkg/config"
	"github.com/barriodata/bcndb/pkg/errcode"
	"github.com/barriodata/bcndb/pkg/sources"
	"gopkg.in/yaml.v3"
)

type sourcesLoader struct {
	homeDir string
}

// NewSourcesLoader returns a Loader that reads sources.yaml from the
// user's config directory.
func NewSourcesLoader(homeDir string) sources.Loader {
	return sourcesLoader{homeDir: homeDir}
}

func (l sourcesLoader) Load() (*sources.SourcesConfig, error) {
	path := config.SourcesFilePath(l.homeDir)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ReadFileError(path, err)
	}

	var sc sources.SourcesConfig
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, &errcode.Error{
			Code: errcode.ExtractSourcesConfigError,
			Err:  err,
		}
	}
	if err := sc.Validate(); err != nil {
		return nil, &errcode.Error{
			Code: errcode.ExtractSourcesConfigError,
			Err:  err,
		}
	}
	return &sc, nil
}
