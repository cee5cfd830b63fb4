package utils

import (
	"fmt"
	"strings"
)

const (
	kibibyte = 1024
	mebibyte = 1024 * kibibyte
	gibibyte = 1024 * mebibyte
)

// FormatFileSize converts a byte length into a human-readable unit string such as "1.5 KB".
func FormatFileSize(bytes int64) string {
	switch {
	case bytes < 0:
		return "0 B"
	case bytes < kibibyte:
		return fmt.Sprintf("%d B", bytes)
	case bytes < mebibyte:
		return trimTrailingZero(float64(bytes)/kibibyte) + " KB"
	case bytes < gibibyte:
		return trimTrailingZero(float64(bytes)/mebibyte) + " MB"
	default:
		return trimTrailingZero(float64(bytes)/gibibyte) + " GB"
	}
}

// AbbreviateNumber shortens large counts using k, M and B suffixes.
func AbbreviateNumber(value int) string {
	switch {
	case value < 1_000:
		return fmt.Sprintf("%d", value)
	case value < 1_000_000:
		return trimTrailingZero(float64(value)/1_000) + "k"
	case value < 1_000_000_000:
		return trimTrailingZero(float64(value)/1_000_000) + "M"
	default:
		return trimTrailingZero(float64(value)/1_000_000_000) + "B"
	}
}

func trimTrailingZero(value float64) string {
	return strings.TrimSuffix(fmt.Sprintf("%.1f", value), ".0")
}
