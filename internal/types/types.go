// Package types defines every cross‑package data structure used by the promptcomposer CLI.
package types

import "encoding/xml"

const (
	NodeTypeFile      = "file"
	NodeTypeDirectory = "directory"

	FormatRaw  = "raw"
	FormatJSON = "json"
	FormatXML  = "xml"
)

// ValidatedPath is an absolute input path that already passed existence checks.
type ValidatedPath struct {
	AbsolutePath string
	IsDir        bool
}

// PathEntry describes one listed file system entry.
// Children is only populated by recursive listings.
type PathEntry struct {
	XMLName   xml.Name    `json:"-" xml:"entry"`
	Kind      string      `json:"type" xml:"type,attr"`
	Name      string      `json:"name" xml:"name"`
	Path      string      `json:"path" xml:"path"`
	Children  []PathEntry `json:"children,omitempty" xml:"children>entry,omitempty"`
	Truncated bool        `json:"truncated,omitempty" xml:"truncated,omitempty"`
}

// IsDirectory reports whether the entry is a directory.
func (entry PathEntry) IsDirectory() bool {
	return entry.Kind == NodeTypeDirectory
}

// FileSelection is a file picked by the caller for prompt assembly.
type FileSelection struct {
	Name string `json:"name" xml:"name"`
	Path string `json:"path" xml:"path"`
}

// FileMetrics is the per-file measurement produced by the metrics collector.
// LineCount and TokenCount are zero whenever IsValid is false.
type FileMetrics struct {
	XMLName    xml.Name `json:"-" xml:"file"`
	Size       int64    `json:"size" xml:"size"`
	LineCount  int      `json:"line_count" xml:"lineCount"`
	TokenCount int      `json:"token_count" xml:"tokenCount"`
	FilePath   string   `json:"file_path" xml:"path"`
	IsValid    bool     `json:"is_valid" xml:"valid"`
}
