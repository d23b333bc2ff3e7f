package sanitize

import (
	"errors"
	"strings"
	"testing"
)

func TestCleanStripsControlMarkersAndTerminator(t *testing.T) {
	got := Clean("<think>plan</think> The answer is 4. end")
	if strings.Contains(got, "<think>") || strings.Contains(got, "</think>") {
		t.Errorf("control markers survived: %q", got)
	}
	if terminatorWordRE.MatchString(got) {
		t.Errorf("standalone terminator survived: %q", got)
	}
	if !strings.Contains(got, "The answer is 4.") {
		t.Errorf("payload text lost: %q", got)
	}
}

func TestCleanKeepsEmbeddedEnd(t *testing.T) {
	// Only the standalone word is spoofing the terminator.
	got := Clean("weekend sender ending")
	if got != "weekend sender ending" {
		t.Errorf("embedded occurrences must survive: %q", got)
	}
}

func TestCleanCollapsesBlankLines(t *testing.T) {
	got := Clean("a\n\n\n\nb")
	if got != "a\nb" {
		t.Errorf("blank lines not collapsed: %q", got)
	}
}

func TestCheckDenylist(t *testing.T) {
	cases := []struct {
		name   string
		in     string
		unsafe bool
	}{
		{"plain answer", "Santiago", false},
		{"internal marker", "my Internal reasoning says", true},
		{"thought marker", "THOUGHT: maybe", true},
		{"note marker", "note: this is a guess", true},
		{"chat template marker", "<|im_start|>", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Check(tc.in)
			if tc.unsafe && !errors.Is(err, ErrUnsafeOutput) {
				t.Fatalf("Check(%q) = %v, want ErrUnsafeOutput", tc.in, err)
			}
			if !tc.unsafe && err != nil {
				t.Fatalf("Check(%q) = %v, want nil", tc.in, err)
			}
		})
	}
}

func TestPrepare(t *testing.T) {
	got, err := Prepare("<think>plan</think> The answer is 4. end")
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if !strings.Contains(got, "The answer is 4.") {
		t.Errorf("payload lost: %q", got)
	}

	// Cleaning strips the angle-bracket form, but a bare denylisted word
	// still refuses the whole reply.
	if _, err := Prepare("the internal plan is to answer 4"); !errors.Is(err, ErrUnsafeOutput) {
		t.Fatalf("expected refusal, got %v", err)
	}
}
