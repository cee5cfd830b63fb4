package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/temirov/promptcomposer/internal/config"
	"github.com/temirov/promptcomposer/internal/ignore"
	"github.com/temirov/promptcomposer/internal/listing"
	"github.com/temirov/promptcomposer/internal/metrics"
	"github.com/temirov/promptcomposer/internal/presets"
	"github.com/temirov/promptcomposer/internal/prompt"
	"github.com/temirov/promptcomposer/internal/templating"
	"github.com/temirov/promptcomposer/internal/tokenizer"
	"github.com/temirov/promptcomposer/internal/types"
)

const (
	// errorAbsolutePathFormat reports failure to resolve an absolute path.
	errorAbsolutePathFormat = "abs failed for '%s': %w"
	// errorPathMissingFormat reports a missing path.
	errorPathMissingFormat = "path '%s' does not exist"
	// errorStatFormat reports failure to retrieve file statistics.
	errorStatFormat = "stat failed for '%s': %w"
	// errorNoValidPaths indicates that all paths are invalid.
	errorNoValidPaths = "no valid paths"
	// errorNotDirectoryFormat reports a directory argument that is a file.
	errorNotDirectoryFormat = "path '%s' is not a directory"
	// errorDirectoryArgumentFormat reports a file argument that is a directory.
	errorDirectoryArgumentFormat = "path '%s' is a directory"
	// errorNoVisibleFiles reports a selection whose directories hold no visible files.
	errorNoVisibleFiles = "no visible files in the selected paths"
)

// metricsOverrides are the command-line values that take precedence over configuration.
type metricsOverrides struct {
	model   string
	workers int
}

// templateOverrides are the command-line template values that take precedence over presets.
type templateOverrides struct {
	preset         string
	fileTemplate   *string
	promptTemplate *string
}

func (app *application) newFilter() (ignore.Filter, error) {
	ignoreConfiguration := app.configuration.Ignore
	strategy, strategyErr := ignore.ParseStrategy(ignoreConfiguration.Strategy)
	if strategyErr != nil {
		return ignore.Filter{}, strategyErr
	}
	return ignore.NewFilter(ignore.FilterOptions{
		Options: ignore.Options{
			BoundaryDirectory: ignoreConfiguration.Boundary,
			RuleFileNames:     ignoreConfiguration.Files,
			Strategy:          strategy,
			Logger:            app.logger,
		},
		ExcludePatterns: ignoreConfiguration.Exclude,
		IncludeGit:      derefBool(ignoreConfiguration.IncludeGit, false),
		ShowRuleFiles:   derefBool(ignoreConfiguration.ShowRuleFiles, false),
	}), nil
}

func (app *application) newLister(maxDepth *int) (listing.Lister, error) {
	filter, filterErr := app.newFilter()
	if filterErr != nil {
		return listing.Lister{}, filterErr
	}
	depth := derefInt(app.configuration.Listing.MaxDepth, listing.DefaultMaxDepth)
	if maxDepth != nil {
		depth = *maxDepth
	}
	return listing.NewLister(listing.Options{Filter: filter, MaxDepth: depth, Logger: app.logger}), nil
}

func (app *application) newCollector(overrides metricsOverrides) (metrics.Collector, string, error) {
	metricsConfiguration := app.configuration.Metrics
	tokenizerConfiguration := tokenizer.Config{Model: metricsConfiguration.Model, Encoding: metricsConfiguration.Encoding}
	if strings.TrimSpace(overrides.model) != "" {
		tokenizerConfiguration = tokenizer.Config{Model: overrides.model}
	}
	counter, resolvedName, counterErr := tokenizer.NewCounter(tokenizerConfiguration)
	if counterErr != nil {
		return metrics.Collector{}, "", counterErr
	}
	workers := derefInt(metricsConfiguration.Workers, 0)
	if overrides.workers > 0 {
		workers = overrides.workers
	}
	return metrics.NewCollector(metrics.Options{Counter: counter, Workers: workers, Logger: app.logger}), resolvedName, nil
}

func (app *application) substitutionPolicy() (templating.Policy, error) {
	return templating.ParsePolicy(app.configuration.Templates.FileSubstitution)
}

func (app *application) newComposer() (prompt.Composer, error) {
	policy, policyErr := app.substitutionPolicy()
	if policyErr != nil {
		return prompt.Composer{}, policyErr
	}
	return prompt.NewComposer(prompt.Options{Policy: policy, Logger: app.logger}), nil
}

func (app *application) presetStore() (presets.Store, error) {
	path := app.configuration.Presets.Path
	if strings.TrimSpace(path) == "" {
		defaultPath, pathErr := config.DefaultPresetStorePath()
		if pathErr != nil {
			return presets.Store{}, pathErr
		}
		path = defaultPath
	}
	return presets.NewStore(path), nil
}

// resolveTemplates picks the file and prompt templates. Flags win over the named preset,
// the preset wins over configuration, and configuration wins over the built-in defaults.
func (app *application) resolveTemplates(overrides templateOverrides) (string, string, error) {
	fileTemplate := templating.DefaultFileTemplate
	promptTemplate := templating.DefaultPromptTemplate
	if app.configuration.Templates.File != "" {
		fileTemplate = app.configuration.Templates.File
	}
	if app.configuration.Templates.Prompt != "" {
		promptTemplate = app.configuration.Templates.Prompt
	}

	presetReference := strings.TrimSpace(overrides.preset)
	if presetReference == "" {
		presetReference = strings.TrimSpace(app.configuration.Prompt.Preset)
	}
	if presetReference != "" {
		store, storeErr := app.presetStore()
		if storeErr != nil {
			return "", "", storeErr
		}
		preset, presetErr := store.Get(presetReference)
		if presetErr != nil {
			return "", "", presetErr
		}
		fileTemplate = preset.FileTemplate
		promptTemplate = preset.PromptTemplate
	}

	if overrides.fileTemplate != nil {
		fileTemplate = *overrides.fileTemplate
	}
	if overrides.promptTemplate != nil {
		promptTemplate = *overrides.promptTemplate
	}
	return fileTemplate, promptTemplate, nil
}

// resolveAndValidatePaths converts input paths to absolute form and validates their existence.
func resolveAndValidatePaths(inputs []string) ([]types.ValidatedPath, error) {
	seen := make(map[string]struct{})
	var result []types.ValidatedPath
	for _, inputPath := range inputs {
		absolutePath, absolutePathError := filepath.Abs(inputPath)
		if absolutePathError != nil {
			return nil, fmt.Errorf(errorAbsolutePathFormat, inputPath, absolutePathError)
		}
		cleanPath := filepath.Clean(absolutePath)
		if _, ok := seen[cleanPath]; ok {
			continue
		}
		info, fileStatusError := os.Stat(cleanPath)
		if fileStatusError != nil {
			if errors.Is(fileStatusError, os.ErrNotExist) {
				return nil, fmt.Errorf(errorPathMissingFormat, inputPath)
			}
			return nil, fmt.Errorf(errorStatFormat, inputPath, fileStatusError)
		}
		seen[cleanPath] = struct{}{}
		result = append(result, types.ValidatedPath{AbsolutePath: cleanPath, IsDir: info.IsDir()})
	}
	if len(result) == 0 {
		return nil, errors.New(errorNoValidPaths)
	}
	return result, nil
}

// resolveDirectory validates that input names an existing directory.
func resolveDirectory(input string) (string, error) {
	validated, err := resolveAndValidatePaths([]string{input})
	if err != nil {
		return "", err
	}
	if !validated[0].IsDir {
		return "", fmt.Errorf(errorNotDirectoryFormat, input)
	}
	return validated[0].AbsolutePath, nil
}

// resolveFileSelections validates that every input names an existing regular file.
func resolveFileSelections(inputs []string) ([]types.FileSelection, error) {
	validated, err := resolveAndValidatePaths(inputs)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(validated))
	for _, path := range validated {
		if path.IsDir {
			return nil, fmt.Errorf(errorDirectoryArgumentFormat, path.AbsolutePath)
		}
		paths = append(paths, path.AbsolutePath)
	}
	return prompt.SelectionsFromPaths(paths), nil
}

// resolveSelections validates inputs and replaces each directory with the visible files beneath it.
func (app *application) resolveSelections(inputs []string) ([]types.FileSelection, error) {
	validated, err := resolveAndValidatePaths(inputs)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(validated))
	for _, path := range validated {
		paths = append(paths, path.AbsolutePath)
	}
	selections, expandErr := app.expandDirectories(prompt.SelectionsFromPaths(paths))
	if expandErr != nil {
		return nil, expandErr
	}
	if len(selections) == 0 {
		return nil, errors.New(errorNoVisibleFiles)
	}
	return selections, nil
}

// expandDirectories replaces every directory selection with the files SelectFiles finds under it,
// so ignore rules and the depth cap match recursive listing. The first occurrence of a path wins.
// Selections that cannot be inspected are kept as given.
func (app *application) expandDirectories(selections []types.FileSelection) ([]types.FileSelection, error) {
	var lister *listing.Lister
	seen := make(map[string]struct{}, len(selections))
	expanded := make([]types.FileSelection, 0, len(selections))
	appendSelection := func(selection types.FileSelection) {
		key := filepath.Clean(absoluteOrSelf(selection.Path))
		if _, duplicate := seen[key]; duplicate {
			return
		}
		seen[key] = struct{}{}
		expanded = append(expanded, selection)
	}
	for _, selection := range selections {
		info, statErr := os.Stat(selection.Path)
		if statErr != nil || !info.IsDir() {
			appendSelection(selection)
			continue
		}
		if lister == nil {
			created, listerErr := app.newLister(nil)
			if listerErr != nil {
				return nil, listerErr
			}
			lister = &created
		}
		files, selectErr := lister.SelectFiles(selection.Path)
		if selectErr != nil {
			return nil, selectErr
		}
		for _, file := range files {
			appendSelection(file)
		}
	}
	return expanded, nil
}

// absoluteOrSelf returns the absolute form of path, or path itself when it cannot be resolved.
func absoluteOrSelf(path string) string {
	absolutePath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absolutePath
}

func derefBool(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

func derefInt(value *int, fallback int) int {
	if value == nil {
		return fallback
	}
	return *value
}
