// Package sanitize cleans machine-generated chat replies before they enter
// the chunked transport, and refuses outright any reply that still carries
// internal-reasoning markers after cleaning.
package sanitize

import (
	"errors"
	"regexp"
	"strings"
)

// ErrUnsafeOutput means the reply still contained a denylisted marker after
// cleaning. The caller must not transmit any part of it.
var ErrUnsafeOutput = errors.New("sanitize: output contains forbidden marker")

var (
	controlMarkerRE = regexp.MustCompile(`<[^>]+>\n?`)
	// "end" is the transport terminator; a standalone occurrence inside the
	// payload would make the device stop reassembly early.
	terminatorWordRE = regexp.MustCompile(`(?i)\bend\b`)
	blankLinesRE     = regexp.MustCompile(`\n{2,}`)
)

// forbidden markers checked after cleaning. This is a hard gate, not a filter:
// one hit refuses the whole reply.
var forbidden = []string{"<think>", "<system>", "<|", "<|im", "internal", "thought", "note:"}

// Clean strips bracketed control markers, removes standalone terminator words,
// and collapses repeated blank lines.
func Clean(text string) string {
	text = controlMarkerRE.ReplaceAllString(text, "")
	text = terminatorWordRE.ReplaceAllString(text, "")
	text = blankLinesRE.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}

// Check returns ErrUnsafeOutput if any denylisted marker survives in text.
func Check(text string) error {
	lower := strings.ToLower(text)
	for _, marker := range forbidden {
		if strings.Contains(lower, marker) {
			return ErrUnsafeOutput
		}
	}
	return nil
}

// Prepare cleans text and then applies the safety gate. On ErrUnsafeOutput
// the cleaned text must be discarded entirely.
func Prepare(text string) (string, error) {
	cleaned := Clean(text)
	if err := Check(cleaned); err != nil {
		return "", err
	}
	return cleaned, nil
}
