package extract

import "testing"

func TestCleanupPDFTextStripsFooters(t *testing.T) {
	in := "Intro text\n-- 1 of 12 --\nmore text\n-- 2 --\n\n\n\n\nend"
	out := cleanupPDFText(in)
	if out != "Intro text\n\nmore text\n\nend" {
		t.Fatalf("unexpected cleaned text: %q", out)
	}
}

func TestCleanupPDFTextNoArtifacts(t *testing.T) {
	in := "plain body with no footers"
	if out := cleanupPDFText(in); out != in {
		t.Fatalf("text without artifacts must pass through, got %q", out)
	}
}

func TestStripTimestamps(t *testing.T) {
	in := "[00:00:00.000 --> 00:00:04.120]  hello there\n[00:00:04.120 --> 00:00:09.000] general"
	out := stripTimestamps(in)
	if out != "hello there\ngeneral" {
		t.Fatalf("unexpected transcript after stripping: %q", out)
	}
}
