package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/temirov/promptcomposer/internal/utils"
)

// Environment variable names, each prefixed with utils.EnvironmentPrefix.
const (
	EnvironmentModel          = utils.EnvironmentPrefix + "MODEL"
	EnvironmentEncoding       = utils.EnvironmentPrefix + "ENCODING"
	EnvironmentWorkers        = utils.EnvironmentPrefix + "WORKERS"
	EnvironmentIgnoreStrategy = utils.EnvironmentPrefix + "IGNORE_STRATEGY"
	EnvironmentBoundary       = utils.EnvironmentPrefix + "BOUNDARY"
	EnvironmentPresetsPath    = utils.EnvironmentPrefix + "PRESETS"
	EnvironmentServerAddress  = utils.EnvironmentPrefix + "ADDRESS"
	EnvironmentSaveDirectory  = utils.EnvironmentPrefix + "SAVE_DIR"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// LoadEnvironmentFile loads workingDirectory/.env into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvironmentFile(workingDirectory string) error {
	environmentPath := filepath.Join(workingDirectory, utils.EnvironmentFileName)
	if err := godotenv.Load(environmentPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load environment file %s: %w", environmentPath, err)
	}
	return nil
}

// ConfigurationFromEnvironment builds an override layer from PROMPTCOMPOSER_* variables.
func ConfigurationFromEnvironment(lookup LookupFunc) (ApplicationConfiguration, error) {
	value := func(key string) string {
		raw, found := lookup(key)
		if !found {
			return ""
		}
		return strings.TrimSpace(raw)
	}

	var config ApplicationConfiguration
	config.Metrics.Model = value(EnvironmentModel)
	config.Metrics.Encoding = value(EnvironmentEncoding)
	if workers := value(EnvironmentWorkers); workers != "" {
		parsed, err := strconv.Atoi(workers)
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("parse %s: %w", EnvironmentWorkers, err)
		}
		config.Metrics.Workers = &parsed
	}
	config.Ignore.Strategy = value(EnvironmentIgnoreStrategy)
	config.Ignore.Boundary = value(EnvironmentBoundary)
	config.Presets.Path = value(EnvironmentPresetsPath)
	config.Server.Address = value(EnvironmentServerAddress)
	config.Prompt.SaveDirectory = value(EnvironmentSaveDirectory)
	return config, nil
}
