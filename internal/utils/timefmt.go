package utils

import (
	"time"
)

const fileTimestampLayout = "2006-01-02T15-04-05"

// FormatFileTimestamp renders value in UTC using a layout that is safe inside file names.
func FormatFileTimestamp(value time.Time) string {
	return value.UTC().Format(fileTimestampLayout)
}
