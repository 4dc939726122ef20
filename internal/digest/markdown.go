package digest

import (
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/tgcreative/internal/creative"
)

const markdownHeadline = 200

// MarkdownFormatter formats a digest as Markdown.
type MarkdownFormatter struct{}

// NewMarkdown creates a Markdown formatter.
func NewMarkdown() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format writes the digest as Markdown to w.
func (f *MarkdownFormatter) Format(w io.Writer, input Input) error {
	d := input.Digest

	fmt.Fprintf(w, "# %s\n\n", d.Metadata.Title)
	fmt.Fprintf(w, "[@%s](%s)\n\n", d.Handle, d.Link)
	if d.Metadata.Description != "" {
		fmt.Fprintf(w, "%s\n\n", d.Metadata.Description)
	}

	if len(d.Posts) == 0 {
		fmt.Fprintln(w, "No posts loaded.")
		fmt.Fprintln(w)
	} else {
		fmt.Fprintf(w, "## Top posts by engagement (%d)\n\n", len(d.Posts))
		for _, p := range creative.RankByEngagement(d.Posts) {
			fmt.Fprintf(w, "- **[%d]** %s", creative.EngagementScore(p), headline(p.Text, markdownHeadline))
			if e := engagement(p); e != "" {
				fmt.Fprintf(w, " _(%s)_", e)
			}
			if p.HasMedia() {
				fmt.Fprintf(w, " `%s`", p.MediaType)
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w)
	}

	if r := input.Creative; r != nil {
		fmt.Fprintf(w, "## Creative\n\n")
		for _, line := range strings.Split(r.Text, "\n") {
			fmt.Fprintf(w, "> %s\n", line)
		}
		fmt.Fprintln(w)
		if r.ImagePrompt != "" {
			fmt.Fprintf(w, "Image prompt: `%s`\n\n", r.ImagePrompt)
		}
		if r.ImageError != "" {
			fmt.Fprintf(w, "*Image: %s*\n", r.ImageError)
		}
	}
	return nil
}
