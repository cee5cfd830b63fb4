// Package config loads promptcomposer settings from global and local YAML files and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/temirov/promptcomposer/internal/utils"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
	// SkipEnvironment disables .env loading and PROMPTCOMPOSER_* overrides.
	SkipEnvironment bool
}

// ApplicationConfiguration holds defaults for every command.
type ApplicationConfiguration struct {
	Templates TemplateConfiguration `mapstructure:"templates"`
	Ignore    IgnoreConfiguration   `mapstructure:"ignore"`
	Listing   ListingConfiguration  `mapstructure:"listing"`
	Metrics   MetricsConfiguration  `mapstructure:"metrics"`
	Prompt    PromptConfiguration   `mapstructure:"prompt"`
	Presets   PresetConfiguration   `mapstructure:"presets"`
	Server    ServerConfiguration   `mapstructure:"server"`
}

// TemplateConfiguration overrides the built-in file and prompt templates.
type TemplateConfiguration struct {
	File   string `mapstructure:"file"`
	Prompt string `mapstructure:"prompt"`
	// FileSubstitution is "first" or "all".
	FileSubstitution string `mapstructure:"file_substitution"`
}

// IgnoreConfiguration controls rule discovery and fixed exclusions.
type IgnoreConfiguration struct {
	Files         []string `mapstructure:"files"`
	Strategy      string   `mapstructure:"strategy"`
	Boundary      string   `mapstructure:"boundary"`
	Exclude       []string `mapstructure:"exclude"`
	IncludeGit    *bool    `mapstructure:"include_git"`
	ShowRuleFiles *bool    `mapstructure:"show_rule_files"`
}

// ListingConfiguration controls directory listings.
type ListingConfiguration struct {
	Format   string `mapstructure:"format"`
	MaxDepth *int   `mapstructure:"max_depth"`
}

// MetricsConfiguration controls metrics collection.
type MetricsConfiguration struct {
	Format   string `mapstructure:"format"`
	Model    string `mapstructure:"model"`
	Encoding string `mapstructure:"encoding"`
	Workers  *int   `mapstructure:"workers"`
}

// PromptConfiguration controls prompt delivery.
type PromptConfiguration struct {
	Preset        string `mapstructure:"preset"`
	Clipboard     *bool  `mapstructure:"clipboard"`
	SaveDirectory string `mapstructure:"save_dir"`
}

// PresetConfiguration locates the preset store.
type PresetConfiguration struct {
	Path string `mapstructure:"path"`
}

// ServerConfiguration controls the operation server.
type ServerConfiguration struct {
	Address string `mapstructure:"address"`
}

// LoadApplicationConfiguration loads configuration from global and local files, then the environment.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.ConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath, resolveErr := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if resolveErr != nil {
		return ApplicationConfiguration{}, resolveErr
	}
	if localPath != "" {
		localConfig, loadErr := loadConfigurationFromPath(localPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(localConfig)
	}

	if !options.SkipEnvironment {
		if envErr := LoadEnvironmentFile(workingDirectory); envErr != nil {
			return ApplicationConfiguration{}, envErr
		}
		environmentConfig, envErr := ConfigurationFromEnvironment(os.LookupEnv)
		if envErr != nil {
			return ApplicationConfiguration{}, envErr
		}
		merged = merged.Merge(environmentConfig)
	}

	merged.Ignore.Exclude = utils.DeduplicatePatterns(merged.Ignore.Exclude)
	merged.Ignore.Files = utils.DeduplicatePatterns(merged.Ignore.Files)

	return merged, nil
}

// DefaultPresetStorePath returns the preset file inside the global configuration directory.
func DefaultPresetStorePath() (string, error) {
	homeDirectory, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for presets: %w", err)
	}
	return filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.PresetsFileName), nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) (string, error) {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath, nil
		}
		return filepath.Join(workingDirectory, explicitPath), nil
	}
	return filepath.Join(workingDirectory, utils.ConfigFileName), nil
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	result.Templates = result.Templates.merge(override.Templates)
	result.Ignore = result.Ignore.merge(override.Ignore)
	result.Listing = result.Listing.merge(override.Listing)
	result.Metrics = result.Metrics.merge(override.Metrics)
	result.Prompt = result.Prompt.merge(override.Prompt)
	result.Presets.Path = overrideString(result.Presets.Path, override.Presets.Path)
	result.Server.Address = overrideString(result.Server.Address, override.Server.Address)
	return result
}

func (config TemplateConfiguration) merge(override TemplateConfiguration) TemplateConfiguration {
	result := config
	result.File = overrideString(result.File, override.File)
	result.Prompt = overrideString(result.Prompt, override.Prompt)
	result.FileSubstitution = overrideString(result.FileSubstitution, override.FileSubstitution)
	return result
}

func (config IgnoreConfiguration) merge(override IgnoreConfiguration) IgnoreConfiguration {
	result := config
	if len(override.Files) > 0 {
		result.Files = append([]string{}, override.Files...)
	}
	result.Strategy = overrideString(result.Strategy, override.Strategy)
	result.Boundary = overrideString(result.Boundary, override.Boundary)
	if len(override.Exclude) > 0 {
		result.Exclude = append([]string{}, utils.DeduplicatePatterns(override.Exclude)...)
	}
	if override.IncludeGit != nil {
		result.IncludeGit = cloneBool(override.IncludeGit)
	}
	if override.ShowRuleFiles != nil {
		result.ShowRuleFiles = cloneBool(override.ShowRuleFiles)
	}
	return result
}

func (config ListingConfiguration) merge(override ListingConfiguration) ListingConfiguration {
	result := config
	result.Format = overrideString(result.Format, override.Format)
	if override.MaxDepth != nil {
		result.MaxDepth = cloneInt(override.MaxDepth)
	}
	return result
}

func (config MetricsConfiguration) merge(override MetricsConfiguration) MetricsConfiguration {
	result := config
	result.Format = overrideString(result.Format, override.Format)
	result.Model = overrideString(result.Model, override.Model)
	result.Encoding = overrideString(result.Encoding, override.Encoding)
	if override.Workers != nil {
		result.Workers = cloneInt(override.Workers)
	}
	return result
}

func (config PromptConfiguration) merge(override PromptConfiguration) PromptConfiguration {
	result := config
	result.Preset = overrideString(result.Preset, override.Preset)
	if override.Clipboard != nil {
		result.Clipboard = cloneBool(override.Clipboard)
	}
	result.SaveDirectory = overrideString(result.SaveDirectory, override.SaveDirectory)
	return result
}

func overrideString(current string, override string) string {
	if override != "" {
		return override
	}
	return current
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
