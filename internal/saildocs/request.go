// Package saildocs speaks the Saildocs weather-by-email protocol: it validates
// request strings, dispatches the query email, correlates the asynchronous
// reply, and encodes the returned GRIB file for text transport.
package saildocs

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidRequest is returned when a request string does not match the
// Saildocs grammar. Nothing is sent upstream for an invalid request.
var ErrInvalidRequest = errors.New("saildocs: invalid request format")

// Grammar (case-insensitive):
//
//	<model>:<lat><N|S>,<lat><N|S>,<lon><E|W>,<lon><E|W>|<step_lat>,<step_lon>|<from>,<to>|<param>[,<param>...]
//
// e.g. "gfs:25N,30N,70W,60W|1,1|0,72|wind,press"
var requestRE = regexp.MustCompile(`(?i)^` +
	`(?P<model>[a-z0-9_]+):` +
	`(?P<area>\d{1,3}[nsew],\d{1,3}[nsew],\d{1,3}[nsew],\d{1,3}[nsew])\|` +
	`(?P<grid>\d{1,3},\d{1,3})\|` +
	`(?P<times>\d{1,3},\d{1,3})\|` +
	`(?P<params>[a-z0-9_]+(?:,[a-z0-9_]+)*)` +
	`$`)

// Request is a validated Saildocs data request. Transient; built per
// transaction and discarded after dispatch.
type Request struct {
	Model  string
	Area   string
	Grid   string
	Times  string
	Params []string
	Raw    string
}

// Parse validates raw against the request grammar and returns the parsed
// request. The raw text is trimmed but otherwise forwarded verbatim.
func Parse(raw string) (Request, error) {
	trimmed := strings.TrimSpace(raw)
	match := requestRE.FindStringSubmatch(trimmed)
	if match == nil {
		return Request{}, fmt.Errorf("%w: %q", ErrInvalidRequest, trimmed)
	}

	groups := make(map[string]string, len(match))
	for i, name := range requestRE.SubexpNames() {
		if name != "" {
			groups[name] = match[i]
		}
	}

	return Request{
		Model:  strings.ToLower(groups["model"]),
		Area:   groups["area"],
		Grid:   groups["grid"],
		Times:  groups["times"],
		Params: strings.Split(strings.ToLower(groups["params"]), ","),
		Raw:    trimmed,
	}, nil
}
