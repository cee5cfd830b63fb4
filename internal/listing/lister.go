// Package listing enumerates directory entries filtered through cascading ignore rules.
package listing

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/promptcomposer/internal/ignore"
	"github.com/temirov/promptcomposer/internal/types"
)

// DefaultMaxDepth bounds recursive listings when no depth is configured.
const DefaultMaxDepth = 8

const (
	errorAbsolutePathFormat  = "getting absolute path for %s: %w"
	errorReadDirectoryFormat = "reading directory %s: %w"

	logSkipEntry        = "skipping entry with unreadable metadata"
	logSkipSubdirectory = "skipping unreadable subdirectory"
)

// Options configures a Lister.
type Options struct {
	Filter ignore.Filter
	// MaxDepth caps recursive listings. Zero or less means unlimited.
	MaxDepth int
	Logger   *zap.Logger
}

// Lister lists directory children. Rules are reloaded for every directory it reads.
type Lister struct {
	filter   ignore.Filter
	maxDepth int
	logger   *zap.Logger
}

// NewLister constructs a Lister.
func NewLister(options Options) Lister {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return Lister{filter: options.Filter, maxDepth: options.MaxDepth, logger: logger}
}

// ListChildren returns the non-excluded immediate children of directory, directories first.
// Only a failure to read directory itself is reported; unreadable entries are skipped.
func (lister Lister) ListChildren(directory string) ([]types.PathEntry, error) {
	absoluteDirectory, absoluteErr := filepath.Abs(directory)
	if absoluteErr != nil {
		return nil, fmt.Errorf(errorAbsolutePathFormat, directory, absoluteErr)
	}
	return lister.readEntries(absoluteDirectory)
}

// ListTree returns the children of root with nested directories expanded.
// Directories at the depth cap or closing a symlink cycle are marked Truncated.
func (lister Lister) ListTree(root string) ([]types.PathEntry, error) {
	absoluteRoot, absoluteErr := filepath.Abs(root)
	if absoluteErr != nil {
		return nil, fmt.Errorf(errorAbsolutePathFormat, root, absoluteErr)
	}
	ancestors := map[string]struct{}{canonicalPath(absoluteRoot): {}}
	return lister.walk(absoluteRoot, 1, ancestors)
}

// SelectFiles returns every visible file under directory in listing order, named by base name.
// It applies the same rules and depth cap as ListTree.
func (lister Lister) SelectFiles(directory string) ([]types.FileSelection, error) {
	entries, listErr := lister.ListTree(directory)
	if listErr != nil {
		return nil, listErr
	}
	return CollectFiles(entries), nil
}

// CollectFiles flattens entries depth-first into file selections, skipping directories.
func CollectFiles(entries []types.PathEntry) []types.FileSelection {
	var selections []types.FileSelection
	for _, entry := range entries {
		if entry.IsDirectory() {
			selections = append(selections, CollectFiles(entry.Children)...)
			continue
		}
		selections = append(selections, types.FileSelection{Name: entry.Name, Path: entry.Path})
	}
	return selections
}

func (lister Lister) walk(directory string, depth int, ancestors map[string]struct{}) ([]types.PathEntry, error) {
	entries, readErr := lister.readEntries(directory)
	if readErr != nil {
		return nil, readErr
	}
	for index := range entries {
		entry := &entries[index]
		if !entry.IsDirectory() {
			continue
		}
		if lister.maxDepth > 0 && depth >= lister.maxDepth {
			entry.Truncated = true
			continue
		}
		canonical := canonicalPath(entry.Path)
		if _, cyclic := ancestors[canonical]; cyclic {
			entry.Truncated = true
			continue
		}
		ancestors[canonical] = struct{}{}
		children, childErr := lister.walk(entry.Path, depth+1, ancestors)
		delete(ancestors, canonical)
		if childErr != nil {
			lister.logger.Debug(logSkipSubdirectory, zap.String("path", entry.Path), zap.Error(childErr))
			continue
		}
		entry.Children = children
	}
	return entries, nil
}

func (lister Lister) readEntries(directory string) ([]types.PathEntry, error) {
	directoryEntries, readErr := os.ReadDir(directory)
	if readErr != nil {
		return nil, fmt.Errorf(errorReadDirectoryFormat, directory, readErr)
	}
	matcher := lister.filter.Load(directory)
	entries := make([]types.PathEntry, 0, len(directoryEntries))
	for _, directoryEntry := range directoryEntries {
		childPath := filepath.Join(directory, directoryEntry.Name())
		info, statErr := os.Stat(childPath)
		if statErr != nil {
			lister.logger.Debug(logSkipEntry, zap.String("path", childPath), zap.Error(statErr))
			continue
		}
		isDirectory := info.IsDir()
		if matcher.Excluded(childPath, isDirectory) {
			continue
		}
		kind := types.NodeTypeFile
		if isDirectory {
			kind = types.NodeTypeDirectory
		}
		entries = append(entries, types.PathEntry{
			Kind: kind,
			Name: directoryEntry.Name(),
			Path: childPath,
		})
	}
	SortEntries(entries)
	return entries, nil
}

// SortEntries orders directories before files, then by case-insensitive name with the exact name breaking ties.
func SortEntries(entries []types.PathEntry) {
	sort.SliceStable(entries, func(leftIndex, rightIndex int) bool {
		left, right := entries[leftIndex], entries[rightIndex]
		if left.IsDirectory() != right.IsDirectory() {
			return left.IsDirectory()
		}
		leftFolded, rightFolded := strings.ToLower(left.Name), strings.ToLower(right.Name)
		if leftFolded != rightFolded {
			return leftFolded < rightFolded
		}
		return left.Name < right.Name
	})
}

func canonicalPath(path string) string {
	resolved, resolveErr := filepath.EvalSymlinks(path)
	if resolveErr != nil {
		return filepath.Clean(path)
	}
	return resolved
}
