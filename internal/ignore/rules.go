// Package ignore evaluates cascading gitignore-style rule files across a directory hierarchy.
package ignore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"

	"github.com/temirov/promptcomposer/internal/utils"
)

// Strategy selects how rules from several directory levels are combined.
type Strategy string

const (
	// StrategyAny excludes a path when any level matches it.
	StrategyAny Strategy = "any"
	// StrategyNearest lets the closest level with a definitive answer decide, so a nested "!pattern" re-includes.
	StrategyNearest Strategy = "nearest"
)

const (
	negationPrefix        = "!"
	parentDirectoryMarker = ".."
	directorySuffix       = "/"
	lineSeparator         = "\n"
	carriageReturn        = "\r"

	unsupportedStrategyFormat = "unsupported ignore strategy %q"
	logRuleFileUnreadable     = "ignore rule file unreadable; treating as empty"
	logBoundaryFallback       = "working directory unavailable; using target as boundary"
)

// ParseStrategy converts a configuration value into a Strategy. Empty selects StrategyAny.
func ParseStrategy(value string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(value))) {
	case "", StrategyAny:
		return StrategyAny, nil
	case StrategyNearest:
		return StrategyNearest, nil
	default:
		return "", fmt.Errorf(unsupportedStrategyFormat, value)
	}
}

// Options controls rule discovery.
type Options struct {
	// BoundaryDirectory stops the upward walk. Empty means the process working directory.
	BoundaryDirectory string
	// RuleFileNames lists the rule files read at each level. Empty means .gitignore only.
	RuleFileNames []string
	Strategy      Strategy
	Logger        *zap.Logger
}

// Rule is the compiled content of the rule files found in one directory.
type Rule struct {
	BaseDirectory string
	matcher       *gitignore.GitIgnore
	reinclusions  *gitignore.GitIgnore
}

// RuleSet is the ordered list of rules from the target directory outward to the boundary.
type RuleSet struct {
	rules    []Rule
	strategy Strategy
	boundary string
}

// Load walks from targetDirectory toward the boundary, compiling every rule file it meets.
// Unreadable rule files yield empty rules; Load never fails.
func Load(targetDirectory string, options Options) RuleSet {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ruleFileNames := options.RuleFileNames
	if len(ruleFileNames) == 0 {
		ruleFileNames = []string{utils.GitIgnoreFileName}
	}
	strategy := options.Strategy
	if strategy == "" {
		strategy = StrategyAny
	}

	currentDirectory := absoluteOrClean(targetDirectory)
	boundary := resolveBoundary(options.BoundaryDirectory, currentDirectory, logger)

	ruleSet := RuleSet{strategy: strategy, boundary: boundary}
	for {
		if rule, found := loadRule(currentDirectory, ruleFileNames, logger); found {
			ruleSet.rules = append(ruleSet.rules, rule)
		}
		if currentDirectory == boundary {
			break
		}
		parentDirectory := filepath.Dir(currentDirectory)
		if parentDirectory == currentDirectory {
			break
		}
		currentDirectory = parentDirectory
	}
	return ruleSet
}

// Rules returns the loaded rules, closest directory first.
func (ruleSet RuleSet) Rules() []Rule {
	return append([]Rule(nil), ruleSet.rules...)
}

// Boundary returns the directory that terminated the upward walk.
func (ruleSet RuleSet) Boundary() string {
	return ruleSet.boundary
}

// Excluded reports whether path is excluded by the loaded rules.
// Each rule only sees path relative to its own base directory.
// Under StrategyNearest a closer negation wins even below a directory an outer rule excludes;
// listings never descend into that directory, so this only shows when it is listed directly.
func (ruleSet RuleSet) Excluded(path string, isDirectory bool) bool {
	absolutePath := absoluteOrClean(path)
	for _, rule := range ruleSet.rules {
		candidate, applicable := rule.candidate(absolutePath, isDirectory)
		if !applicable {
			continue
		}
		if rule.matcher.MatchesPath(candidate) {
			return true
		}
		if ruleSet.strategy == StrategyNearest && rule.reinclusions != nil && rule.reinclusions.MatchesPath(candidate) {
			return false
		}
	}
	return false
}

func (rule Rule) candidate(absolutePath string, isDirectory bool) (string, bool) {
	relativePath, relativeErr := filepath.Rel(rule.BaseDirectory, absolutePath)
	if relativeErr != nil || relativePath == "." {
		return "", false
	}
	if relativePath == parentDirectoryMarker || strings.HasPrefix(relativePath, parentDirectoryMarker+string(filepath.Separator)) {
		return "", false
	}
	candidate := filepath.ToSlash(relativePath)
	if isDirectory {
		candidate += directorySuffix
	}
	return candidate, true
}

func loadRule(directory string, ruleFileNames []string, logger *zap.Logger) (Rule, bool) {
	var lines []string
	found := false
	for _, ruleFileName := range ruleFileNames {
		rulePath := filepath.Join(directory, ruleFileName)
		content, readErr := os.ReadFile(rulePath)
		if readErr != nil {
			if errors.Is(readErr, fs.ErrNotExist) {
				continue
			}
			found = true
			logger.Debug(logRuleFileUnreadable, zap.String("path", rulePath), zap.Error(readErr))
			continue
		}
		found = true
		for _, line := range strings.Split(string(content), lineSeparator) {
			lines = append(lines, strings.TrimSuffix(line, carriageReturn))
		}
	}
	if !found {
		return Rule{}, false
	}
	return Rule{
		BaseDirectory: directory,
		matcher:       gitignore.CompileIgnoreLines(lines...),
		reinclusions:  compileReinclusions(lines),
	}, true
}

// compileReinclusions builds a matcher from the negated lines with their "!" removed.
func compileReinclusions(lines []string) *gitignore.GitIgnore {
	var negated []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, negationPrefix) && len(trimmed) > len(negationPrefix) {
			negated = append(negated, strings.TrimPrefix(trimmed, negationPrefix))
		}
	}
	if len(negated) == 0 {
		return nil
	}
	return gitignore.CompileIgnoreLines(negated...)
}

func resolveBoundary(configured string, target string, logger *zap.Logger) string {
	if strings.TrimSpace(configured) != "" {
		return absoluteOrClean(configured)
	}
	workingDirectory, workingDirectoryErr := os.Getwd()
	if workingDirectoryErr != nil {
		logger.Debug(logBoundaryFallback, zap.Error(workingDirectoryErr))
		return target
	}
	return filepath.Clean(workingDirectory)
}

func absoluteOrClean(path string) string {
	absolutePath, absoluteErr := filepath.Abs(path)
	if absoluteErr != nil {
		return filepath.Clean(path)
	}
	return absolutePath
}
