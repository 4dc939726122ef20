package digest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ppiankov/tgcreative/internal/creative"
)

func TestFormat_FullDigest(t *testing.T) {
	f := NewTerminal(false)
	var buf bytes.Buffer

	d := makeDigest(
		makePost(2, "Go 1.26 released\nwith more details", 1200, 35, []byte{1, 2, 3}),
		makePost(1, "Weekly links", 300, 0, nil),
	)
	if err := f.Format(&buf, Input{Digest: d}); err != nil {
		t.Fatalf("format: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"@gonews — Go News",
		"https://t.me/gonews",
		"Weekly Go links",
		"Recent posts (2, 1 with media)",
		"[1270] 2026-03-01 14:00 [image/jpeg] — Go 1.26 released",
		"1200 views, 35 reactions",
		"[300] 2026-03-01 13:00 — Weekly links",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "with more details") {
		t.Error("only the first line of a post should be shown")
	}
	if strings.Contains(out, "Creative") {
		t.Error("creative section without a creative")
	}
}

func TestFormat_PostsKeepOrder(t *testing.T) {
	f := NewTerminal(false)
	var buf bytes.Buffer

	d := makeDigest(makePost(2, "newer", 1, 0, nil), makePost(1, "older", 999, 0, nil))
	if err := f.Format(&buf, Input{Digest: d}); err != nil {
		t.Fatalf("format: %v", err)
	}
	out := buf.String()
	if strings.Index(out, "newer") > strings.Index(out, "older") {
		t.Errorf("posts reordered:\n%s", out)
	}
}

func TestFormat_EmptyPosts(t *testing.T) {
	f := NewTerminal(false)
	var buf bytes.Buffer

	if err := f.Format(&buf, Input{Digest: makeDigest()}); err != nil {
		t.Fatalf("format: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "No posts loaded.") {
		t.Errorf("expected empty message, got:\n%s", out)
	}
	if strings.Contains(out, "Recent posts") {
		t.Error("posts section should be absent")
	}
}

func TestFormat_LongHeadlineTruncated(t *testing.T) {
	f := NewTerminal(false)
	var buf bytes.Buffer

	long := strings.Repeat("я", terminalHeadline+20)
	if err := f.Format(&buf, Input{Digest: makeDigest(makePost(0, long, 0, 0, nil))}); err != nil {
		t.Fatalf("format: %v", err)
	}
	want := strings.Repeat("я", terminalHeadline) + "…"
	if !strings.Contains(buf.String(), want) {
		t.Errorf("headline not truncated to %d runes", terminalHeadline)
	}
}

func TestFormat_Creative(t *testing.T) {
	f := NewTerminal(false)
	var buf bytes.Buffer

	res := &creative.Result{
		Text:        "Line one\nLine two",
		ImagePrompt: "a gopher",
		Image:       make([]byte, 42),
		ImageType:   "image/png",
		ImageSource: creative.ImageSourceGenerated,
	}
	if err := f.Format(&buf, Input{Digest: makeDigest(), Creative: res}); err != nil {
		t.Fatalf("format: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"--- Creative ---", "  Line one\n", "  Line two\n", "Image: image/png, 42 bytes", "Prompt: a gopher"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestFormat_CreativeImageError(t *testing.T) {
	f := NewTerminal(false)
	var buf bytes.Buffer

	res := &creative.Result{Text: "hello", ImageError: "image: quota exceeded"}
	if err := f.Format(&buf, Input{Digest: makeDigest(), Creative: res}); err != nil {
		t.Fatalf("format: %v", err)
	}
	if !strings.Contains(buf.String(), "Image: image: quota exceeded") {
		t.Errorf("image error not shown:\n%s", buf.String())
	}
}

func TestFormat_NoANSIWithoutColor(t *testing.T) {
	f := NewTerminal(false)
	var buf bytes.Buffer

	if err := f.Format(&buf, Input{Digest: makeDigest(makePost(0, "x", 1, 1, nil))}); err != nil {
		t.Fatalf("format: %v", err)
	}
	if strings.Contains(buf.String(), "\033[") {
		t.Error("ANSI escape codes present with color=false")
	}
}

func TestFormat_ANSIWithColor(t *testing.T) {
	f := NewTerminal(true)
	var buf bytes.Buffer

	if err := f.Format(&buf, Input{Digest: makeDigest(makePost(0, "x", 1, 1, nil))}); err != nil {
		t.Fatalf("format: %v", err)
	}
	if !strings.Contains(buf.String(), "\033[1m") {
		t.Error("expected bold escape with color=true")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"", "*digest.TerminalFormatter", false},
		{"terminal", "*digest.TerminalFormatter", false},
		{"JSON", "*digest.JSONFormatter", false},
		{"md", "*digest.MarkdownFormatter", false},
		{"markdown", "*digest.MarkdownFormatter", false},
		{"html", "", true},
	}
	for _, tt := range tests {
		f, err := New(tt.name, false)
		if tt.wantErr {
			if err == nil {
				t.Errorf("New(%q): expected error", tt.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("New(%q): %v", tt.name, err)
		}
		if got := typeName(f); got != tt.want {
			t.Errorf("New(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func typeName(f Formatter) string {
	switch f.(type) {
	case *TerminalFormatter:
		return "*digest.TerminalFormatter"
	case *JSONFormatter:
		return "*digest.JSONFormatter"
	case *MarkdownFormatter:
		return "*digest.MarkdownFormatter"
	}
	return "unknown"
}
