package langdetect

import "testing"

func TestDetectRejectsShortSamples(t *testing.T) {
	t.Parallel()

	for _, sample := range []string{"", "   ", "hi", "12345 !!", "ab cd"} {
		if _, ok := Detect(sample); ok {
			t.Fatalf("expected %q to be too short for detection", sample)
		}
		if got := DetectISO6391(sample); got != "" {
			t.Fatalf("DetectISO6391(%q) = %q, want empty", sample, got)
		}
	}
}

func TestLongEnoughCountsLettersOnly(t *testing.T) {
	t.Parallel()

	if longEnough("a1b2c3d4e5") {
		t.Fatalf("expected five letters to be too short")
	}
	if !longEnough("नमस्ते दुनिया") {
		t.Fatalf("expected devanagari sample to count as letters")
	}
}
