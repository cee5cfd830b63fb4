package ignore

import (
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/temirov/promptcomposer/internal/utils"
)

const logInvalidExcludePattern = "invalid exclude pattern"

// FilterOptions extends rule discovery with fixed exclusions applied to every listing.
type FilterOptions struct {
	Options
	// ExcludePatterns are doublestar globs matched against the entry name and its boundary-relative path.
	ExcludePatterns []string
	IncludeGit      bool
	ShowRuleFiles   bool
}

// Filter produces per-directory matchers. It holds configuration only; rules are read on every Load.
type Filter struct {
	options FilterOptions
}

// NewFilter builds a Filter with deduplicated exclusion patterns.
func NewFilter(options FilterOptions) Filter {
	normalized := options
	normalized.ExcludePatterns = utils.DeduplicatePatterns(options.ExcludePatterns)
	if len(normalized.RuleFileNames) == 0 {
		normalized.RuleFileNames = []string{utils.GitIgnoreFileName}
	}
	if normalized.Logger == nil {
		normalized.Logger = zap.NewNop()
	}
	return Filter{options: normalized}
}

// Load reads the rule files that apply to entries of directory.
func (filter Filter) Load(directory string) Matcher {
	return Matcher{
		ruleSet: Load(directory, filter.options.Options),
		options: filter.options,
	}
}

// Matcher decides exclusion for the entries of a single directory.
type Matcher struct {
	ruleSet RuleSet
	options FilterOptions
}

// RuleSet exposes the underlying cascading rules.
func (matcher Matcher) RuleSet() RuleSet {
	return matcher.ruleSet
}

// Excluded reports whether the entry at path should be hidden.
func (matcher Matcher) Excluded(path string, isDirectory bool) bool {
	entryName := filepath.Base(path)
	if isDirectory && entryName == utils.GitDirectoryName && !matcher.options.IncludeGit {
		return true
	}
	if !isDirectory && !matcher.options.ShowRuleFiles && utils.ContainsString(matcher.options.RuleFileNames, entryName) {
		return true
	}
	if matcher.matchesExcludePattern(path, entryName) {
		return true
	}
	return matcher.ruleSet.Excluded(path, isDirectory)
}

func (matcher Matcher) matchesExcludePattern(path string, entryName string) bool {
	if len(matcher.options.ExcludePatterns) == 0 {
		return false
	}
	relativePath := utils.RelativePathOrSelf(absoluteOrClean(path), matcher.ruleSet.Boundary())
	for _, pattern := range matcher.options.ExcludePatterns {
		for _, candidate := range []string{entryName, relativePath} {
			matched, matchErr := doublestar.Match(pattern, candidate)
			if matchErr != nil {
				matcher.options.Logger.Debug(logInvalidExcludePattern, zap.String("pattern", pattern), zap.Error(matchErr))
				break
			}
			if matched {
				return true
			}
		}
	}
	return false
}
