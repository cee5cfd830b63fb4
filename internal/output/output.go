// Package output renders listings and metrics batches as raw text, JSON or XML.
package output

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/temirov/promptcomposer/internal/metrics"
	"github.com/temirov/promptcomposer/internal/types"
	"github.com/temirov/promptcomposer/internal/utils"
)

const (
	indentPrefix = ""
	indentSpacer = "  "

	xmlHeader = xml.Header

	treeBranchConnector = "├── "
	treeLastConnector   = "└── "
	treeBranchPadding   = "│   "
	treeLastPadding     = "    "

	directoryLineFormat = "%s[Directory] %s%s\n"
	fileLineFormat      = "%s[File] %s\n"
	truncatedSuffix     = " (truncated)"

	metricsValidLineFormat   = "%s  %s  %d lines  %s tokens\n"
	metricsInvalidLineFormat = "%s  %s  (not valid UTF-8)\n"
	metricsFailureLineFormat = "error: %s: %v\n"
	metricsSummaryFormat     = "Summary: %d %s, %s, %d lines, %s tokens\n"

	errorUnsupportedFormat = "unsupported output format %q"
)

// RenderListing renders entries in the requested format. Children are nested in every format.
func RenderListing(format string, entries []types.PathEntry) (string, error) {
	switch format {
	case types.FormatRaw, "":
		var buffer bytes.Buffer
		for _, entry := range entries {
			writeListingEntry(&buffer, entry, "", true, true)
		}
		return buffer.String(), nil
	case types.FormatJSON:
		if entries == nil {
			entries = []types.PathEntry{}
		}
		encoded, jsonEncodeError := json.MarshalIndent(entries, indentPrefix, indentSpacer)
		return string(encoded), jsonEncodeError
	case types.FormatXML:
		wrapper := struct {
			XMLName xml.Name          `xml:"entries"`
			Entries []types.PathEntry `xml:"entry"`
		}{Entries: entries}
		encoded, xmlMarshalError := xml.MarshalIndent(wrapper, indentPrefix, indentSpacer)
		if xmlMarshalError != nil {
			return "", xmlMarshalError
		}
		return xmlHeader + string(encoded), nil
	default:
		return "", fmt.Errorf(errorUnsupportedFormat, format)
	}
}

func linePrefix(prefix string, isRoot bool, isLast bool) (string, string) {
	if isRoot {
		return "", ""
	}
	connector := treeBranchConnector
	childPrefix := prefix + treeBranchPadding
	if isLast {
		connector = treeLastConnector
		childPrefix = prefix + treeLastPadding
	}
	return prefix + connector, childPrefix
}

func writeListingEntry(buffer *bytes.Buffer, entry types.PathEntry, prefix string, isRoot bool, isLast bool) {
	entryPrefix, childPrefix := linePrefix(prefix, isRoot, isLast)
	if !entry.IsDirectory() {
		fmt.Fprintf(buffer, fileLineFormat, entryPrefix, entry.Name)
		return
	}
	suffix := ""
	if entry.Truncated {
		suffix = truncatedSuffix
	}
	fmt.Fprintf(buffer, directoryLineFormat, entryPrefix, entry.Name, suffix)
	for index, child := range entry.Children {
		writeListingEntry(buffer, child, childPrefix, false, index == len(entry.Children)-1)
	}
}

// MetricsFailure is the serializable form of metrics.FileFailure.
type MetricsFailure struct {
	Path    string `json:"path" xml:"path"`
	Message string `json:"error" xml:"error"`
}

// MetricsTotals is the serializable form of metrics.Totals.
type MetricsTotals struct {
	Files  int   `json:"files" xml:"files"`
	Size   int64 `json:"size" xml:"size"`
	Lines  int   `json:"lines" xml:"lines"`
	Tokens int   `json:"tokens" xml:"tokens"`
}

// MetricsReport is the structured rendering of a metrics batch.
type MetricsReport struct {
	XMLName  xml.Name            `json:"-" xml:"metrics"`
	Files    []types.FileMetrics `json:"files" xml:"files>file"`
	Failures []MetricsFailure    `json:"failures,omitempty" xml:"failures>failure,omitempty"`
	Totals   MetricsTotals       `json:"totals" xml:"totals"`
}

// NewMetricsReport converts batch into its serializable form.
func NewMetricsReport(batch metrics.Batch) MetricsReport {
	files := batch.Metrics
	if files == nil {
		files = []types.FileMetrics{}
	}
	report := MetricsReport{Files: files}
	for _, failure := range batch.Failures {
		report.Failures = append(report.Failures, MetricsFailure{Path: failure.Path, Message: failure.Err.Error()})
	}
	totals := batch.Totals()
	report.Totals = MetricsTotals{Files: totals.Files, Size: totals.Size, Lines: totals.Lines, Tokens: totals.Tokens}
	return report
}

// RenderMetrics renders batch in the requested format.
func RenderMetrics(format string, batch metrics.Batch) (string, error) {
	switch format {
	case types.FormatRaw, "":
		return renderMetricsRaw(batch), nil
	case types.FormatJSON:
		encoded, jsonEncodeError := json.MarshalIndent(NewMetricsReport(batch), indentPrefix, indentSpacer)
		return string(encoded), jsonEncodeError
	case types.FormatXML:
		encoded, xmlMarshalError := xml.MarshalIndent(NewMetricsReport(batch), indentPrefix, indentSpacer)
		if xmlMarshalError != nil {
			return "", xmlMarshalError
		}
		return xmlHeader + string(encoded), nil
	default:
		return "", fmt.Errorf(errorUnsupportedFormat, format)
	}
}

func renderMetricsRaw(batch metrics.Batch) string {
	var builder strings.Builder
	for _, record := range batch.Metrics {
		if record.IsValid {
			fmt.Fprintf(&builder, metricsValidLineFormat, record.FilePath, utils.FormatFileSize(record.Size), record.LineCount, utils.AbbreviateNumber(record.TokenCount))
			continue
		}
		fmt.Fprintf(&builder, metricsInvalidLineFormat, record.FilePath, utils.FormatFileSize(record.Size))
	}
	for _, failure := range batch.Failures {
		fmt.Fprintf(&builder, metricsFailureLineFormat, failure.Path, failure.Err)
	}
	builder.WriteString(FormatSummaryLine(batch.Totals()))
	return builder.String()
}

// FormatSummaryLine formats totals as the raw summary line.
func FormatSummaryLine(totals metrics.Totals) string {
	label := "files"
	if totals.Files == 1 {
		label = "file"
	}
	return fmt.Sprintf(metricsSummaryFormat, totals.Files, label, utils.FormatFileSize(totals.Size), totals.Lines, utils.AbbreviateNumber(totals.Tokens))
}
