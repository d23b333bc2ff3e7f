package mailbox

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message/mail"
)

// extractText returns the first inline text part of a raw RFC 5322 message.
func extractText(raw []byte) (string, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("parse message: %w", err)
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read message part: %w", err)
		}
		if _, ok := part.Header.(*mail.InlineHeader); ok {
			body, err := io.ReadAll(part.Body)
			if err != nil {
				return "", fmt.Errorf("read message body: %w", err)
			}
			return string(body), nil
		}
	}
	return "", fmt.Errorf("no inline text part")
}

// extractAttachment returns the first attachment whose filename ends in suffix
// (case-insensitive) from a raw RFC 5322 message.
func extractAttachment(raw []byte, suffix string) (string, []byte, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return "", nil, fmt.Errorf("parse message: %w", err)
	}
	suffix = strings.ToLower(suffix)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, fmt.Errorf("read message part: %w", err)
		}
		header, ok := part.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}
		filename, err := header.Filename()
		if err != nil || filename == "" {
			continue
		}
		if suffix != "" && !strings.HasSuffix(strings.ToLower(filename), suffix) {
			continue
		}
		data, err := io.ReadAll(part.Body)
		if err != nil {
			return "", nil, fmt.Errorf("read attachment %s: %w", filename, err)
		}
		return filename, data, nil
	}
	return "", nil, fmt.Errorf("no attachment matching %q", suffix)
}
