// Package inreach implements the outbound side of the relay: framing a
// payload into bounded, ordered, explicitly terminated chunks and posting
// them to the inReach reply endpoint.
package inreach

import (
	"fmt"
)

// Chunk is one bounded slice of an outbound message. Seq runs 1..Total with
// no gaps; concatenating payloads in Seq order reconstructs the message.
type Chunk struct {
	Seq     int
	Total   int
	Payload string
}

// IsLast reports whether this chunk carries the terminator.
func (c Chunk) IsLast() bool { return c.Seq == c.Total }

// Frame renders the wire form of a chunk:
//
//	msg <seq>/<total>:
//	<payload>
//	end            (final chunk only)
//
// The receiving device treats "end" as the sole completion signal.
func (c Chunk) Frame() string {
	framed := fmt.Sprintf("msg %d/%d:\n%s", c.Seq, c.Total, c.Payload)
	if c.IsLast() {
		framed += "\nend"
	}
	return framed
}

// Split cuts payload into contiguous slices of at most size characters. There
// is no token-boundary awareness: a cut may land mid-word or mid-base64-group,
// and the receiver contract is plain concatenation.
func Split(payload string, size int) ([]Chunk, error) {
	if size < 1 {
		return nil, fmt.Errorf("inreach: chunk size must be >= 1, got %d", size)
	}
	if payload == "" {
		return nil, nil
	}

	total := (len(payload) + size - 1) / size
	chunks := make([]Chunk, 0, total)
	for i := 0; i < len(payload); i += size {
		end := i + size
		if end > len(payload) {
			end = len(payload)
		}
		chunks = append(chunks, Chunk{
			Seq:     len(chunks) + 1,
			Total:   total,
			Payload: payload[i:end],
		})
	}
	return chunks, nil
}
