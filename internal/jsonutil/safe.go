// Package jsonutil holds JSON helpers for debug output.
package jsonutil

import (
	"encoding/json"
	"unicode/utf8"
)

// DefaultMaxLen is used when SafeStringify gets a non-positive limit
const DefaultMaxLen = 3000

const (
	truncatedSuffix = "... (truncated)"
	failedMarker    = "[Error stringifying object]"
)

// SafeStringify renders v as indented JSON, cut to maxLen bytes. It never
// fails: values that cannot be encoded yield a fixed marker.
func SafeStringify(v any, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return failedMarker
	}
	if len(data) <= maxLen {
		return string(data)
	}

	cut := maxLen
	for cut > 0 && !utf8.RuneStart(data[cut]) {
		cut--
	}
	return string(data[:cut]) + truncatedSuffix
}
