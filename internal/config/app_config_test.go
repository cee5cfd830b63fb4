package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/temirov/promptcomposer/internal/utils"
)

func boolPointer(value bool) *bool {
	pointer := value
	return &pointer
}

func intPointer(value int) *int {
	pointer := value
	return &pointer
}

type configTestCase struct {
	name            string
	globalContent   string
	localContent    string
	explicitPath    string
	explicitContent string
	expectFormat    string
	expectModel     string
	expectStrategy  string
	expectDepth     *int
	expectGit       *bool
	expectExclude   []string
}

func TestLoadApplicationConfigurationMergesSources(t *testing.T) {
	testCases := []configTestCase{
		{
			name:           "local_overrides_global",
			globalContent:  "listing:\n  format: json\n  max_depth: 3\nmetrics:\n  model: gpt-4\nignore:\n  include_git: true\n",
			localContent:   "listing:\n  format: xml\nignore:\n  strategy: nearest\n  exclude: ['*.lock', '*.lock', 'dist/**']\n",
			expectFormat:   "xml",
			expectModel:    "gpt-4",
			expectStrategy: "nearest",
			expectDepth:    intPointer(3),
			expectGit:      boolPointer(true),
			expectExclude:  []string{"*.lock", "dist/**"},
		},
		{
			name:            "explicit_path_replaces_local_file",
			globalContent:   "listing:\n  format: json\n",
			localContent:    "listing:\n  format: xml\n",
			explicitPath:    "custom.yaml",
			explicitContent: "listing:\n  format: raw\n  max_depth: 0\n",
			expectFormat:    "raw",
			expectDepth:     intPointer(0),
		},
		{
			name:          "global_only",
			globalContent: "metrics:\n  model: gpt-3.5-turbo\n",
			expectModel:   "gpt-3.5-turbo",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			homeDir := t.TempDir()
			workingDir := t.TempDir()
			configDir := filepath.Join(homeDir, utils.GlobalConfigDirectoryName)
			if err := os.MkdirAll(configDir, 0o755); err != nil {
				t.Fatalf("create config dir: %v", err)
			}
			if testCase.globalContent != "" {
				if err := os.WriteFile(filepath.Join(configDir, utils.ConfigFileName), []byte(testCase.globalContent), 0o600); err != nil {
					t.Fatalf("write global config: %v", err)
				}
			}
			if testCase.localContent != "" {
				if err := os.WriteFile(filepath.Join(workingDir, utils.ConfigFileName), []byte(testCase.localContent), 0o600); err != nil {
					t.Fatalf("write local config: %v", err)
				}
			}
			if testCase.explicitPath != "" {
				if err := os.WriteFile(filepath.Join(workingDir, testCase.explicitPath), []byte(testCase.explicitContent), 0o600); err != nil {
					t.Fatalf("write explicit config: %v", err)
				}
			}
			t.Setenv("HOME", homeDir)
			t.Setenv("USERPROFILE", homeDir)

			loadedConfig, err := LoadApplicationConfiguration(LoadOptions{
				WorkingDirectory: workingDir,
				ExplicitFilePath: testCase.explicitPath,
				SkipEnvironment:  true,
			})
			if err != nil {
				t.Fatalf("LoadApplicationConfiguration error: %v", err)
			}
			if loadedConfig.Listing.Format != testCase.expectFormat {
				t.Fatalf("expected format %q, got %q", testCase.expectFormat, loadedConfig.Listing.Format)
			}
			if loadedConfig.Metrics.Model != testCase.expectModel {
				t.Fatalf("expected model %q, got %q", testCase.expectModel, loadedConfig.Metrics.Model)
			}
			if loadedConfig.Ignore.Strategy != testCase.expectStrategy {
				t.Fatalf("expected strategy %q, got %q", testCase.expectStrategy, loadedConfig.Ignore.Strategy)
			}
			if testCase.expectDepth == nil {
				if loadedConfig.Listing.MaxDepth != nil {
					t.Fatalf("expected no depth override")
				}
			} else if loadedConfig.Listing.MaxDepth == nil || *loadedConfig.Listing.MaxDepth != *testCase.expectDepth {
				t.Fatalf("unexpected depth value %v", loadedConfig.Listing.MaxDepth)
			}
			if testCase.expectGit == nil {
				if loadedConfig.Ignore.IncludeGit != nil {
					t.Fatalf("expected no include_git override")
				}
			} else if loadedConfig.Ignore.IncludeGit == nil || *loadedConfig.Ignore.IncludeGit != *testCase.expectGit {
				t.Fatalf("unexpected include_git value")
			}
			if len(loadedConfig.Ignore.Exclude) != len(testCase.expectExclude) {
				t.Fatalf("expected excludes %v, got %v", testCase.expectExclude, loadedConfig.Ignore.Exclude)
			}
			for index, pattern := range testCase.expectExclude {
				if loadedConfig.Ignore.Exclude[index] != pattern {
					t.Fatalf("expected excludes %v, got %v", testCase.expectExclude, loadedConfig.Ignore.Exclude)
				}
			}
		})
	}
}

func TestLoadApplicationConfigurationRejectsDirectory(t *testing.T) {
	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)
	t.Setenv("USERPROFILE", homeDir)
	workingDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(workingDir, "dir.yaml"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, err := LoadApplicationConfiguration(LoadOptions{WorkingDirectory: workingDir, ExplicitFilePath: "dir.yaml", SkipEnvironment: true}); err == nil {
		t.Fatalf("expected error for directory configuration path")
	}
}

func TestConfigurationFromEnvironment(t *testing.T) {
	environment := map[string]string{
		EnvironmentModel:          " gpt-4o-mini ",
		EnvironmentWorkers:        "3",
		EnvironmentIgnoreStrategy: "nearest",
		EnvironmentServerAddress:  "127.0.0.1:9000",
	}
	lookup := func(key string) (string, bool) {
		value, found := environment[key]
		return value, found
	}
	config, err := ConfigurationFromEnvironment(lookup)
	if err != nil {
		t.Fatalf("ConfigurationFromEnvironment error: %v", err)
	}
	if config.Metrics.Model != "gpt-4o-mini" || config.Ignore.Strategy != "nearest" || config.Server.Address != "127.0.0.1:9000" {
		t.Fatalf("unexpected environment configuration %+v", config)
	}
	if config.Metrics.Workers == nil || *config.Metrics.Workers != 3 {
		t.Fatalf("unexpected workers %v", config.Metrics.Workers)
	}

	environment[EnvironmentWorkers] = "many"
	if _, err := ConfigurationFromEnvironment(lookup); err == nil {
		t.Fatalf("expected error for non-numeric workers")
	}
}

func TestLoadApplicationConfigurationReadsEnvironmentFile(t *testing.T) {
	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)
	t.Setenv("USERPROFILE", homeDir)
	workingDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(workingDir, utils.ConfigFileName), []byte("prompt:\n  save_dir: from-file\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workingDir, utils.EnvironmentFileName), []byte(EnvironmentSaveDirectory+"=from-dotenv\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	_ = os.Unsetenv(EnvironmentSaveDirectory)
	t.Cleanup(func() { _ = os.Unsetenv(EnvironmentSaveDirectory) })

	loaded, err := LoadApplicationConfiguration(LoadOptions{WorkingDirectory: workingDir})
	if err != nil {
		t.Fatalf("LoadApplicationConfiguration error: %v", err)
	}
	if loaded.Prompt.SaveDirectory != "from-dotenv" {
		t.Fatalf("expected environment to override file, got %q", loaded.Prompt.SaveDirectory)
	}
}

func TestMergeKeepsUnsetFields(t *testing.T) {
	base := ApplicationConfiguration{
		Prompt:  PromptConfiguration{Clipboard: boolPointer(true), Preset: "review"},
		Metrics: MetricsConfiguration{Workers: intPointer(2)},
	}
	merged := base.Merge(ApplicationConfiguration{Prompt: PromptConfiguration{SaveDirectory: "out"}})
	if merged.Prompt.Clipboard == nil || !*merged.Prompt.Clipboard || merged.Prompt.Preset != "review" || merged.Prompt.SaveDirectory != "out" {
		t.Fatalf("unexpected merge result %+v", merged.Prompt)
	}
	if merged.Metrics.Workers == nil || *merged.Metrics.Workers != 2 {
		t.Fatalf("unexpected workers %v", merged.Metrics.Workers)
	}
}
