// Package templating expands placeholder templates for file blocks and whole prompts.
//
// Placeholders are literal, case-sensitive tokens. Substitution never fails: a
// placeholder with no value, or a second occurrence under first-occurrence
// substitution, stays in the output verbatim.
package templating

import (
	"fmt"
	"strings"
)

// Placeholders recognised in file and prompt templates.
const (
	PlaceholderFileName    = "{{file_name}}"
	PlaceholderFilePath    = "{{file_path}}"
	PlaceholderFileContent = "{{file_content}}"
	PlaceholderFileTree    = "{{filetree}}"
	PlaceholderFiles       = "{{files}}"
)

// Default templates used when none are configured.
const (
	DefaultFileTemplate   = "File: " + PlaceholderFileName + "\nPath: " + PlaceholderFilePath + "\nContent:\n" + PlaceholderFileContent + "\n\n"
	DefaultPromptTemplate = PlaceholderFiles
)

// Policy selects how many occurrences of each placeholder are substituted.
type Policy string

const (
	// PolicyFirst substitutes only the first occurrence of each placeholder.
	PolicyFirst Policy = "first"
	// PolicyAll substitutes every occurrence of each placeholder.
	PolicyAll Policy = "all"
)

const unsupportedPolicyFormat = "unsupported substitution policy %q"

// ParsePolicy converts a configuration value into a Policy. Empty selects PolicyFirst.
func ParsePolicy(value string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(value))) {
	case "", PolicyFirst:
		return PolicyFirst, nil
	case PolicyAll:
		return PolicyAll, nil
	default:
		return "", fmt.Errorf(unsupportedPolicyFormat, value)
	}
}

// Replacement pairs a placeholder with its value.
type Replacement struct {
	Placeholder string
	Value       string
}

// ApplyFirst applies replacements in order, each replacing at most the first occurrence
// of its placeholder in the current intermediate text.
func ApplyFirst(template string, replacements ...Replacement) string {
	result := template
	for _, replacement := range replacements {
		result = strings.Replace(result, replacement.Placeholder, replacement.Value, 1)
	}
	return result
}

// ApplyAll applies replacements in order, each replacing every occurrence of its placeholder.
func ApplyAll(template string, replacements ...Replacement) string {
	result := template
	for _, replacement := range replacements {
		result = strings.ReplaceAll(result, replacement.Placeholder, replacement.Value)
	}
	return result
}

// Apply dispatches to ApplyFirst or ApplyAll according to policy.
func Apply(policy Policy, template string, replacements ...Replacement) string {
	if policy == PolicyAll {
		return ApplyAll(template, replacements...)
	}
	return ApplyFirst(template, replacements...)
}

// FileBlock carries the values substituted into a file template.
type FileBlock struct {
	Name         string
	RelativePath string
	Content      string
}

// RenderFile expands the file template for one file.
// Content is substituted last so placeholders inside it are never expanded.
func RenderFile(template string, block FileBlock, policy Policy) string {
	return Apply(policy, template,
		Replacement{Placeholder: PlaceholderFileName, Value: block.Name},
		Replacement{Placeholder: PlaceholderFilePath, Value: block.RelativePath},
		Replacement{Placeholder: PlaceholderFileContent, Value: block.Content},
	)
}

// AssemblePrompt expands the prompt template: the tree first, then the concatenated file blocks.
// Only the first occurrence of each placeholder is replaced.
func AssemblePrompt(template string, treeText string, files string) string {
	return ApplyFirst(template,
		Replacement{Placeholder: PlaceholderFileTree, Value: treeText},
		Replacement{Placeholder: PlaceholderFiles, Value: files},
	)
}
