// Package filetree renders a set of selected files as an ASCII tree.
package filetree

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/temirov/promptcomposer/internal/types"
	"github.com/temirov/promptcomposer/internal/utils"
)

const (
	branchConnector = "├── "
	lastConnector   = "└── "
	branchPadding   = "│   "
	lastPadding     = "    "

	rootComponent = "/"

	errorAbsoluteBaseFormat = "getting absolute path for base directory %s: %w"
)

// ErrEmptyBaseDirectory reports a render request without a base directory.
var ErrEmptyBaseDirectory = errors.New("base directory is empty")

type node struct {
	children map[string]*node
	isFile   bool
}

func newNode() *node {
	return &node{children: map[string]*node{}}
}

// insert adds the path components beneath the node, marking the last one as a file.
// Inserting an existing path leaves the tree unchanged.
func (current *node) insert(components []string) {
	for index, component := range components {
		child, exists := current.children[component]
		if !exists {
			child = newNode()
			current.children[component] = child
		}
		if index == len(components)-1 {
			child.isFile = true
		}
		current = child
	}
}

func (current *node) render(builder *strings.Builder, prefix string) {
	names := make([]string, 0, len(current.children))
	for name := range current.children {
		names = append(names, name)
	}
	sort.Strings(names)
	for index, name := range names {
		isLast := index == len(names)-1
		connector, padding := branchConnector, branchPadding
		if isLast {
			connector, padding = lastConnector, lastPadding
		}
		builder.WriteString(prefix)
		builder.WriteString(connector)
		builder.WriteString(name)
		builder.WriteString("\n")
		current.children[name].render(builder, prefix+padding)
	}
}

// Render draws the selected files relative to baseDirectory.
// Files outside baseDirectory appear under their absolute path.
func Render(baseDirectory string, selections []types.FileSelection) (string, error) {
	if strings.TrimSpace(baseDirectory) == "" {
		return "", ErrEmptyBaseDirectory
	}
	absoluteBase, absoluteErr := filepath.Abs(baseDirectory)
	if absoluteErr != nil {
		return "", fmt.Errorf(errorAbsoluteBaseFormat, baseDirectory, absoluteErr)
	}
	root := newNode()
	for _, selection := range selections {
		components := PathComponents(selection.Path, absoluteBase)
		if len(components) == 0 {
			continue
		}
		root.insert(components)
	}
	var builder strings.Builder
	root.render(&builder, "")
	return builder.String(), nil
}

// PathComponents splits path relative to absoluteBase into its components.
// A path outside absoluteBase keeps a leading "/" component.
func PathComponents(path string, absoluteBase string) []string {
	relativePath := utils.RelativePathOrSelf(path, absoluteBase)
	if relativePath == "." {
		return nil
	}
	var components []string
	if filepath.IsAbs(relativePath) {
		components = append(components, rootComponent)
		relativePath = strings.TrimPrefix(filepath.ToSlash(relativePath), filepath.ToSlash(filepath.VolumeName(relativePath)))
	}
	for _, component := range strings.Split(filepath.ToSlash(relativePath), "/") {
		if component != "" {
			components = append(components, component)
		}
	}
	return components
}
