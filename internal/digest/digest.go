package digest

import (
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/tgcreative/internal/channel"
	"github.com/ppiankov/tgcreative/internal/creative"
)

// Input is everything a formatter renders.
type Input struct {
	Digest   *channel.Digest
	Creative *creative.Result // optional
}

// Formatter writes a formatted digest to w.
type Formatter interface {
	Format(w io.Writer, input Input) error
}

// New returns the formatter for name: terminal, json or markdown.
func New(name string, color bool) (Formatter, error) {
	switch strings.ToLower(name) {
	case "", "terminal":
		return NewTerminal(color), nil
	case "json":
		return NewJSON(), nil
	case "markdown", "md":
		return NewMarkdown(), nil
	default:
		return nil, fmt.Errorf("unknown format %q (want terminal, json or markdown)", name)
	}
}

// headline returns the first non-empty line of text, cut to n runes.
func headline(text string, n int) string {
	line := strings.TrimSpace(text)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	runes := []rune(line)
	if len(runes) > n {
		return string(runes[:n]) + "…"
	}
	return line
}

func engagement(p channel.Post) string {
	var parts []string
	if p.Views > 0 {
		parts = append(parts, fmt.Sprintf("%d views", p.Views))
	}
	if p.Reactions > 0 {
		parts = append(parts, fmt.Sprintf("%d reactions", p.Reactions))
	}
	return strings.Join(parts, ", ")
}
