package relay

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Kind
	}{
		{"mistral prefix", "mistral: what is the capital of France?", KindChat},
		{"uppercase prefix", "MISTRAL what is 2+2", KindChat},
		{"leading blank lines", "\n\n  Mistral: hello\n", KindChat},
		{"grib request", "gfs:25n,30n,70w,60w|1,1|0,72|wind,press", KindData},
		{"mistral not at start", "please ask mistral something", KindData},
		{"empty body", "", KindData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.body); got != tt.want {
				t.Fatalf("Classify(%q) = %v, want %v", tt.body, got, tt.want)
			}
		})
	}
}

func TestFirstNonEmptyLine(t *testing.T) {
	if got := firstNonEmptyLine("\r\n  \ngfs:...\nsecond"); got != "gfs:..." {
		t.Fatalf("got %q", got)
	}
	if got := firstNonEmptyLine("   "); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestExtractReplyURL(t *testing.T) {
	body := "gfs:25n,30n,70w,60w|1,1|0,72|wind\n\nReply to this message:\r\nhttps://explore.garmin.com/textmessage/txtmsg?extId=abc\r\n"
	got := extractReplyURL(body, "explore.garmin.com")
	if got != "https://explore.garmin.com/textmessage/txtmsg?extId=abc" {
		t.Fatalf("got %q", got)
	}
	if got := extractReplyURL("no url here", "explore.garmin.com"); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}
