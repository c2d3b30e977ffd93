package resolver

import (
	"regexp"
	"strings"
)

var (
	copyCounter = regexp.MustCompile(`\s*\(\d+\)`)
	timestamp   = regexp.MustCompile(`-\d{14}`)
)

// NormalizeName strips download counters like " (1)" and export timestamps
// like "-20260214153349", then lower-cases the result.
//
//	"File (1)-20260214153349.xlsx" -> "file.xlsx"
func NormalizeName(name string) string {
	name = copyCounter.ReplaceAllString(name, "")
	name = timestamp.ReplaceAllString(name, "")
	return strings.ToLower(name)
}
