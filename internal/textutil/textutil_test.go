package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"meeting: part 1/2": "meeting- part 1-2",
		"what?.mp3":         "what.mp3",
		"  plain  ":         "plain",
		"":                  "",
	}
	for input, want := range cases {
		if got := SanitizeFileName(input); got != want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestDisplayTitle(t *testing.T) {
	if got := DisplayTitle("transcribing"); got != "Transcribing" {
		t.Fatalf("DisplayTitle = %q", got)
	}
	if got := DisplayTitle("no_speech_detected"); got != "No Speech Detected" {
		t.Fatalf("DisplayTitle = %q", got)
	}
}
