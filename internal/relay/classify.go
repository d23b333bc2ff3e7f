package relay

import "strings"

// Kind is the pipeline an inbound message is routed to.
type Kind int

const (
	// KindChat routes to the chat-completion pipeline.
	KindChat Kind = iota
	// KindData routes to the weather-data pipeline.
	KindData
)

func (k Kind) String() string {
	if k == KindChat {
		return "chat"
	}
	return "data"
}

// Classify routes a message: chat if and only if its first non-empty line,
// case-insensitively, starts with the token "mistral". Everything else goes
// to the data pipeline, where the request grammar decides validity.
func Classify(body string) Kind {
	line := firstNonEmptyLine(body)
	if strings.HasPrefix(strings.ToLower(line), "mistral") {
		return KindChat
	}
	return KindData
}

func firstNonEmptyLine(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}

// extractReplyURL returns the first line of body containing host, stripped of
// carriage returns and surrounding space. The inReach notification email
// embeds the reply endpoint as a bare URL on its own line.
func extractReplyURL(body, host string) string {
	for _, line := range strings.Split(body, "\n") {
		if strings.Contains(line, host) {
			return strings.TrimSpace(strings.ReplaceAll(line, "\r", ""))
		}
	}
	return ""
}
