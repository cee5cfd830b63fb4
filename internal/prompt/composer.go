// Package prompt assembles a prompt from selected files using file and prompt templates.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/promptcomposer/internal/filetree"
	"github.com/temirov/promptcomposer/internal/templating"
	"github.com/temirov/promptcomposer/internal/types"
	"github.com/temirov/promptcomposer/internal/utils"
)

const (
	promptFilePrefix    = "prompt_"
	promptFileExtension = ".txt"

	errorAbsoluteRootFormat = "getting absolute path for %s: %w"
	errorRenderTreeFormat   = "rendering file tree: %w"
	errorCreateDirFormat    = "create prompt directory %s: %w"
	errorWritePromptFormat  = "write prompt file %s: %w"

	logSkipUnreadable = "skipping unreadable file"
	logSkipInvalid    = "skipping file that is not valid UTF-8"
)

// Request describes one prompt generation.
type Request struct {
	Root           string
	Files          []types.FileSelection
	FileTemplate   string
	PromptTemplate string
}

// Options configures a Composer.
type Options struct {
	// Policy controls placeholder substitution inside file blocks.
	Policy templating.Policy
	Logger *zap.Logger
}

// Composer renders file blocks, the selection tree and the final prompt.
type Composer struct {
	policy templating.Policy
	logger *zap.Logger
}

// NewComposer constructs a Composer.
func NewComposer(options Options) Composer {
	policy := options.Policy
	if policy == "" {
		policy = templating.PolicyFirst
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return Composer{policy: policy, logger: logger}
}

// Generate builds the prompt for request. Files that cannot be read as UTF-8 text are
// left out of the file blocks but still appear in the tree.
func (composer Composer) Generate(request Request) (string, error) {
	if strings.TrimSpace(request.Root) == "" {
		return "", filetree.ErrEmptyBaseDirectory
	}
	absoluteRoot, absoluteErr := filepath.Abs(request.Root)
	if absoluteErr != nil {
		return "", fmt.Errorf(errorAbsoluteRootFormat, request.Root, absoluteErr)
	}

	var aggregated strings.Builder
	for _, selection := range request.Files {
		block, readable := composer.renderBlock(absoluteRoot, selection, request.FileTemplate)
		if !readable {
			continue
		}
		aggregated.WriteString(block)
	}

	treeText, treeErr := filetree.Render(absoluteRoot, request.Files)
	if treeErr != nil {
		return "", fmt.Errorf(errorRenderTreeFormat, treeErr)
	}
	return templating.AssemblePrompt(request.PromptTemplate, treeText, aggregated.String()), nil
}

// RenderSingle renders one file block. It reports false for files with a blocked
// extension and for files that cannot be read as UTF-8 text.
func (composer Composer) RenderSingle(root string, selection types.FileSelection, fileTemplate string) (string, bool) {
	if !utils.IsTextFileName(selection.Name) {
		return "", false
	}
	absoluteRoot, absoluteErr := filepath.Abs(root)
	if absoluteErr != nil {
		absoluteRoot = filepath.Clean(root)
	}
	return composer.renderBlock(absoluteRoot, selection, fileTemplate)
}

func (composer Composer) renderBlock(absoluteRoot string, selection types.FileSelection, fileTemplate string) (string, bool) {
	content, readErr := os.ReadFile(selection.Path)
	if readErr != nil {
		composer.logger.Warn(logSkipUnreadable, zap.String("path", selection.Path), zap.Error(readErr))
		return "", false
	}
	if !utils.IsValidText(content) {
		composer.logger.Warn(logSkipInvalid, zap.String("path", selection.Path))
		return "", false
	}
	name := selection.Name
	if name == "" {
		name = filepath.Base(selection.Path)
	}
	block := templating.FileBlock{
		Name:         name,
		RelativePath: utils.RelativePathOrSelf(selection.Path, absoluteRoot),
		Content:      string(content),
	}
	return templating.RenderFile(fileTemplate, block, composer.policy), true
}

// WritePromptFile stores content as prompt_<timestamp>.txt inside directory and returns the file path.
func WritePromptFile(directory string, content string, now time.Time) (string, error) {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return "", fmt.Errorf(errorCreateDirFormat, directory, err)
	}
	fileName := promptFilePrefix + utils.FormatFileTimestamp(now) + promptFileExtension
	destination := filepath.Join(directory, fileName)
	if err := os.WriteFile(destination, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf(errorWritePromptFormat, destination, err)
	}
	return destination, nil
}

// SelectionsFromPaths builds selections named after each path's base name.
func SelectionsFromPaths(paths []string) []types.FileSelection {
	selections := make([]types.FileSelection, 0, len(paths))
	for _, path := range paths {
		absolutePath, absoluteErr := filepath.Abs(path)
		if absoluteErr != nil {
			absolutePath = filepath.Clean(path)
		}
		selections = append(selections, types.FileSelection{Name: filepath.Base(absolutePath), Path: absolutePath})
	}
	return selections
}
