// Package metrics measures selected files concurrently: size, line count and token count.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/promptcomposer/internal/tokenizer"
	"github.com/temirov/promptcomposer/internal/types"
	"github.com/temirov/promptcomposer/internal/utils"
)

const (
	lineTerminator = "\n"

	errorTokenCountFormat = "count tokens for %s: %w"

	logUnitFailed  = "metrics unit failed"
	logUnitInvalid = "file is not valid text; recording zero counts"
)

// ErrNilCounter is returned when a Collector has no tokenizer.
var ErrNilCounter = errors.New("metrics collector requires a token counter")

// StatError reports that a file's metadata could not be read.
type StatError struct {
	Path string
	Err  error
}

func (statError *StatError) Error() string {
	return fmt.Sprintf("stat failed for %s: %v", statError.Path, statError.Err)
}

func (statError *StatError) Unwrap() error {
	return statError.Err
}

// FileFailure pairs a path with the reason its unit of work failed.
type FileFailure struct {
	Path string
	Err  error
}

// Batch is the outcome of one Collect call.
// Metrics preserves input order for every path that produced a record.
type Batch struct {
	Metrics  []types.FileMetrics
	Failures []FileFailure
}

// Totals aggregates the valid records of a batch.
type Totals struct {
	Files  int
	Size   int64
	Lines  int
	Tokens int
}

// Totals sums size, lines and tokens over the valid records.
func (batch Batch) Totals() Totals {
	var totals Totals
	for _, record := range batch.Metrics {
		if !record.IsValid {
			continue
		}
		totals.Files++
		totals.Size += record.Size
		totals.Lines += record.LineCount
		totals.Tokens += record.TokenCount
	}
	return totals
}

// Options configures a Collector.
type Options struct {
	Counter tokenizer.Counter
	// Workers bounds concurrent units. Zero or less means runtime.NumCPU.
	Workers int
	Logger  *zap.Logger
}

// Collector fans out one unit of work per file and gathers every result before returning.
type Collector struct {
	counter tokenizer.Counter
	workers int
	logger  *zap.Logger
}

// NewCollector constructs a Collector.
func NewCollector(options Options) Collector {
	workers := options.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return Collector{counter: options.Counter, workers: workers, logger: logger}
}

type unitResult struct {
	record  types.FileMetrics
	failure error
}

// Collect measures every path. All units run to completion; the returned error is the
// first unit failure in completion order, and the batch carries every record and failure.
func (collector Collector) Collect(ctx context.Context, paths []string) (Batch, error) {
	if collector.counter == nil {
		return Batch{}, ErrNilCounter
	}
	results := make([]unitResult, len(paths))
	var firstFailure error
	var failureOnce sync.Once

	var group errgroup.Group
	group.SetLimit(collector.workers)
	for index, path := range paths {
		index, path := index, path
		group.Go(func() error {
			if contextErr := ctx.Err(); contextErr != nil {
				results[index].failure = contextErr
			} else {
				results[index].record, results[index].failure = collector.measure(path)
			}
			if results[index].failure != nil {
				failure := results[index].failure
				failureOnce.Do(func() { firstFailure = failure })
				collector.logger.Debug(logUnitFailed, zap.String("path", path), zap.Error(failure))
			}
			return nil
		})
	}
	// Units keep their failures in results and always return nil, so Wait has nothing to report.
	_ = group.Wait()

	batch := Batch{Metrics: make([]types.FileMetrics, 0, len(paths))}
	for index, result := range results {
		if result.failure != nil {
			batch.Failures = append(batch.Failures, FileFailure{Path: paths[index], Err: result.failure})
			continue
		}
		batch.Metrics = append(batch.Metrics, result.record)
	}
	return batch, firstFailure
}

func (collector Collector) measure(path string) (types.FileMetrics, error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		return types.FileMetrics{}, &StatError{Path: path, Err: statErr}
	}
	record := types.FileMetrics{Size: info.Size(), FilePath: path}

	content, readErr := os.ReadFile(path)
	if readErr != nil || !utils.IsValidText(content) {
		collector.logger.Debug(logUnitInvalid, zap.String("path", path), zap.Error(readErr))
		return record, nil
	}
	text := string(content)
	tokenCount, countErr := collector.counter.CountString(text)
	if countErr != nil {
		return types.FileMetrics{}, fmt.Errorf(errorTokenCountFormat, path, countErr)
	}
	record.LineCount = CountLines(text)
	record.TokenCount = tokenCount
	record.IsValid = true
	return record, nil
}

// CountLines counts lines the way a line iterator does: a final terminator does not start
// another line, and "\r\n" is a single terminator.
func CountLines(text string) int {
	if text == "" {
		return 0
	}
	count := strings.Count(text, lineTerminator)
	if !strings.HasSuffix(text, lineTerminator) {
		count++
	}
	return count
}
