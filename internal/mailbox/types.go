// Package mailbox is the IMAP/SMTP collaborator for the relay: it lists and
// fetches inbound mail, downloads attachments, and sends outbound mail for the
// single mailbox identity the process serves.
package mailbox

import (
	"strconv"
	"time"

	"github.com/emersion/go-imap/v2"
)

// Message is one inbound email. Read-only to callers; the relay never mutates it.
type Message struct {
	UID       imap.UID
	MessageID string
	From      string
	To        []string
	Subject   string
	Body      string
	Date      time.Time
}

// ID returns the stable identifier used by the deduplication ledger.
func (m Message) ID() string {
	if m.MessageID != "" {
		return m.MessageID
	}
	return "uid:" + strconv.FormatUint(uint64(m.UID), 10)
}
