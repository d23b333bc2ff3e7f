package mistral

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	promptRE   = regexp.MustCompile(`(?i)mistral:?\s*(.+)`)
	locationRE = regexp.MustCompile(`(?i)Lat\s*([\-0-9.]+)[ ,]*Lon\s*([\-0-9.]+)`)

	// First-person location phrases, replaced with the parsed coordinates when
	// the device appended a position line to the message.
	selfLocationRE = regexp.MustCompile(`(?i)\bmy (current )?location\b|\bmy position\b|\bfrom here\b|\bfrom my coordinates\b|\bhere\b|\bI am here\b|\bI'm here\b|\bam I from\b|\bwhere am I\b|\bI'm\b|\bme\b|\bam I\b`)
)

// ExtractPrompt pulls the user prompt and an optional "lat, lon" location
// string out of a raw inReach message.
func ExtractPrompt(message string) (prompt, location string) {
	if m := promptRE.FindStringSubmatch(message); m != nil {
		prompt = strings.TrimSpace(m[1])
	}
	if m := locationRE.FindStringSubmatch(message); m != nil {
		location = fmt.Sprintf("%s, %s", m[1], m[2])
	}
	return prompt, location
}

// AugmentWithLocation substitutes first-person location phrases in prompt with
// the device position and prefixes the position, so the model can answer
// "where am I" style questions. Without a location the prompt passes through.
func AugmentWithLocation(prompt, location string) string {
	if prompt == "" || location == "" {
		return prompt
	}
	replaced := selfLocationRE.ReplaceAllString(prompt, location)
	return fmt.Sprintf("My current location is %s. %s", location, replaced)
}
