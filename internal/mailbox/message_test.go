package mailbox

import (
	"encoding/base64"
	"strings"
	"testing"
)

const plainMessage = "MIME-Version: 1.0\r\n" +
	"From: sailor@example.com\r\n" +
	"To: relay@example.com\r\n" +
	"Subject: inreach message\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"mistral: what is the capital of Chile?\r\n"

func multipartMessage(t *testing.T, filename string, payload []byte) string {
	t.Helper()
	encoded := base64.StdEncoding.EncodeToString(payload)
	return "MIME-Version: 1.0\r\n" +
		"From: query-reply@saildocs.com\r\n" +
		"To: relay@example.com\r\n" +
		"Subject: grib data\r\n" +
		"Content-Type: multipart/mixed; boundary=frontier\r\n" +
		"\r\n" +
		"--frontier\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"your grib file is attached\r\n" +
		"--frontier\r\n" +
		"Content-Type: application/octet-stream\r\n" +
		"Content-Disposition: attachment; filename=\"" + filename + "\"\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		encoded + "\r\n" +
		"--frontier--\r\n"
}

func TestExtractTextPlain(t *testing.T) {
	text, err := extractText([]byte(plainMessage))
	if err != nil {
		t.Fatalf("extractText: %v", err)
	}
	if !strings.Contains(text, "capital of Chile") {
		t.Fatalf("unexpected body: %q", text)
	}
}

func TestExtractTextMultipart(t *testing.T) {
	raw := multipartMessage(t, "wind.grb", []byte("GRIB..."))
	text, err := extractText([]byte(raw))
	if err != nil {
		t.Fatalf("extractText: %v", err)
	}
	if !strings.Contains(text, "grib file is attached") {
		t.Fatalf("unexpected body: %q", text)
	}
}

func TestExtractAttachment(t *testing.T) {
	payload := []byte{0x47, 0x52, 0x49, 0x42, 0x00, 0x01}
	raw := multipartMessage(t, "forecast.grb", payload)

	name, data, err := extractAttachment([]byte(raw), ".grb")
	if err != nil {
		t.Fatalf("extractAttachment: %v", err)
	}
	if name != "forecast.grb" {
		t.Fatalf("unexpected filename: %q", name)
	}
	if string(data) != string(payload) {
		t.Fatalf("attachment bytes mismatch: %v", data)
	}
}

func TestExtractAttachmentSuffixMismatch(t *testing.T) {
	raw := multipartMessage(t, "notes.txt", []byte("not a grib"))
	if _, _, err := extractAttachment([]byte(raw), ".grb"); err == nil {
		t.Fatal("expected error for missing .grb attachment")
	}
}

func TestMessageID(t *testing.T) {
	withID := Message{MessageID: "<abc@mail>", UID: 42}
	if withID.ID() != "<abc@mail>" {
		t.Fatalf("expected message-id, got %q", withID.ID())
	}
	withoutID := Message{UID: 42}
	if withoutID.ID() != "uid:42" {
		t.Fatalf("expected uid fallback, got %q", withoutID.ID())
	}
}
