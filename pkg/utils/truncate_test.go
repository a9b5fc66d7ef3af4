package utils

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateTitleLatin(t *testing.T) {
	title := strings.Repeat("a", 50)
	got := TruncateTitle(title)
	if utf8.RuneCountInString(got) != 40 {
		t.Fatalf("expected 40 runes, got %d", utf8.RuneCountInString(got))
	}
}

func TestTruncateTitleCJK(t *testing.T) {
	title := strings.Repeat("知", 25)
	got := TruncateTitle(title)
	if utf8.RuneCountInString(got) != 20 {
		t.Fatalf("expected 20 runes, got %d", utf8.RuneCountInString(got))
	}
	if !utf8.ValidString(got) {
		t.Fatal("truncation split a codepoint")
	}
}

func TestTruncateTitleShortUnchanged(t *testing.T) {
	for _, title := range []string{"Go", "知识图谱", "Entity Resolution"} {
		if got := TruncateTitle(title); got != title {
			t.Fatalf("short title modified: %q -> %q", title, got)
		}
	}
}

func TestSmartTruncateContent(t *testing.T) {
	content := "First sentence. Second sentence. Third sentence that runs a bit longer than the budget allows."
	got := SmartTruncateContent(content, 40)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipsis suffix, got %q", got)
	}
	if len(got) > 45 {
		t.Fatalf("truncated content too long: %d", len(got))
	}
}

func TestSmartTruncateContentShort(t *testing.T) {
	content := "short"
	if got := SmartTruncateContent(content, 40); got != content {
		t.Fatalf("short content modified: %q", got)
	}
}
