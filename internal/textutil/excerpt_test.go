package textutil

import (
	"strings"
	"testing"
)

func TestNormalizeWhitespace(t *testing.T) {
	got := NormalizeWhitespace("  spread \t out\n\nlayout   text ")
	if got != "spread out layout text" {
		t.Errorf("NormalizeWhitespace() = %q", got)
	}
	if got := NormalizeWhitespace("   \n\t "); got != "" {
		t.Errorf("expected empty result for blank input, got %q", got)
	}
}

func TestExcerptShortTextUnchanged(t *testing.T) {
	if got := Excerpt("short  text", 40); got != "short text" {
		t.Errorf("Excerpt() = %q", got)
	}
}

func TestExcerptCutsAtWordBoundary(t *testing.T) {
	text := "integrated switching regulator with adjustable output voltage"
	got := Excerpt(text, 30)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected truncation marker, got %q", got)
	}
	body := strings.TrimSuffix(got, "...")
	if strings.HasSuffix(body, " ") || !strings.HasPrefix(text, body) {
		t.Errorf("expected clean word-boundary prefix, got %q", got)
	}
	if len([]rune(body)) > 30 {
		t.Errorf("excerpt body too long: %q", got)
	}
}

func TestExcerptHardCutWithoutSpaces(t *testing.T) {
	got := Excerpt(strings.Repeat("x", 50), 10)
	if got != strings.Repeat("x", 10)+"..." {
		t.Errorf("Excerpt() = %q", got)
	}
}
