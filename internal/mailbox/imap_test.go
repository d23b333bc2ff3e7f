package mailbox

import "testing"

// A non-peek BODY[] fetch makes the server set \Seen on every listed message,
// which would silently drop all but the first of a backlog from subsequent
// unread searches.
func TestFetchOptionsNeverMarkSeen(t *testing.T) {
	withBody := fetchOptions(true)
	if len(withBody.BodySection) != 1 {
		t.Fatalf("expected one body section, got %d", len(withBody.BodySection))
	}
	if !withBody.BodySection[0].Peek {
		t.Fatal("body section fetch must peek")
	}
	if !withBody.Envelope || !withBody.UID {
		t.Fatal("envelope and uid are required for listing")
	}

	envelopeOnly := fetchOptions(false)
	if len(envelopeOnly.BodySection) != 0 {
		t.Fatalf("envelope listing must not fetch bodies, got %d sections", len(envelopeOnly.BodySection))
	}
}
