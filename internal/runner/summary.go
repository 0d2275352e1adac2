// Package runner – stderr error summary
//
// Failure notifications carry a short, single-line summary derived from the
// wrapped command's stderr. The heuristic scans for exception-like lines
// ("Type: message" with an optional [rankN]: prefix) and handles chained
// tracebacks: when a "during handling" or "direct cause" marker is present
// the first match (the original cause) wins, otherwise the last match (the
// innermost error of a simple traceback) does.
package runner

import (
	"regexp"
	"strings"
)

// summaryMaxLen bounds the extracted summary; longer summaries are cut and
// marked with an ellipsis.
const summaryMaxLen = 200

const (
	noOutputSentinel     = "Unknown error (no stderr output)"
	unknownErrorSentinel = "Unknown error"
)

var exceptionPattern = regexp.MustCompile(
	`^(?:\[rank\d+\]:\s*)?` + // optional rank prefix like [rank0]:
		`([A-Z][a-zA-Z0-9]*(?:Error|Exception|Interrupt))` + // exception type
		`:\s*(.+)$`, // colon and error message
)

// ExtractMainError produces a bounded single-line summary of stderr.
func ExtractMainError(stderr string) string {
	return extractMainError(stderr, summaryMaxLen)
}

func extractMainError(stderr string, maxLen int) string {
	if strings.TrimSpace(stderr) == "" {
		return noOutputSentinel
	}

	lines := strings.Split(strings.TrimSpace(stderr), "\n")

	chained := false
	for _, line := range lines {
		if strings.Contains(line, "During handling of the above exception") ||
			strings.Contains(line, "The above exception was the direct cause") {
			chained = true
			break
		}
	}

	var matches []string
	for _, line := range lines {
		if m := exceptionPattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			matches = append(matches, m[1]+": "+m[2])
		}
	}

	var summary string
	switch {
	case len(matches) == 0:
		summary = unknownErrorSentinel
	case chained:
		summary = matches[0]
	default:
		summary = matches[len(matches)-1]
	}

	if len(summary) > maxLen {
		summary = summary[:maxLen] + "..."
	}
	return summary
}
