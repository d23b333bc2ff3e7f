package inreach

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNoDestination means the reply URL carries no extId handle; nothing can
// be routed and no network call is made.
var ErrNoDestination = errors.New("inreach: destination missing extId")

// Destination is the parsed outbound endpoint: the full reply URL plus the
// extId routing handle the endpoint requires in the form body.
type Destination struct {
	URL   string
	ExtID string
}

// ParseDestination extracts the extId query parameter from a reply URL.
func ParseDestination(raw string) (Destination, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Destination{}, fmt.Errorf("inreach: empty destination url")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return Destination{}, fmt.Errorf("inreach: parse destination url: %w", err)
	}
	extID := parsed.Query().Get("extId")
	if extID == "" {
		return Destination{}, fmt.Errorf("%w: %s", ErrNoDestination, raw)
	}
	return Destination{URL: raw, ExtID: extID}, nil
}
