package digest

import (
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/tgcreative/internal/channel"
	"github.com/ppiankov/tgcreative/internal/creative"
)

const terminalHeadline = 100

// TerminalFormatter formats a digest for terminal output.
type TerminalFormatter struct {
	color bool
}

// NewTerminal creates a terminal formatter. Set color=true for ANSI colors.
func NewTerminal(color bool) *TerminalFormatter {
	return &TerminalFormatter{color: color}
}

// Format writes channel facts, recent posts and the optional creative to w.
func (f *TerminalFormatter) Format(w io.Writer, input Input) error {
	d := input.Digest

	// Header
	fmt.Fprintln(w, f.bold(fmt.Sprintf("@%s — %s", d.Handle, d.Metadata.Title)))
	fmt.Fprintln(w, f.dim(d.Link))
	if d.Metadata.Description != "" {
		fmt.Fprintln(w, d.Metadata.Description)
	}
	fmt.Fprintln(w)

	if len(d.Posts) == 0 {
		fmt.Fprintln(w, "No posts loaded.")
	} else {
		fmt.Fprintln(w, f.green(f.bold(fmt.Sprintf("--- Recent posts (%d, %d with media) ---", len(d.Posts), d.MediaCount()))))
		fmt.Fprintln(w)
		for _, p := range d.Posts {
			f.writePost(w, p)
		}
		fmt.Fprintln(w)
	}

	if input.Creative != nil {
		f.writeCreative(w, input.Creative)
	}
	return nil
}

func (f *TerminalFormatter) writePost(w io.Writer, p channel.Post) {
	media := ""
	if p.HasMedia() {
		media = " [" + p.MediaType + "]"
	}
	fmt.Fprintf(w, "  %s %s%s — %s\n",
		f.bold(fmt.Sprintf("[%d]", creative.EngagementScore(p))),
		p.Date.Format("2006-01-02 15:04"),
		f.dim(media),
		headline(p.Text, terminalHeadline),
	)
	if e := engagement(p); e != "" {
		fmt.Fprintf(w, "      %s\n", f.dim(e))
	}
}

func (f *TerminalFormatter) writeCreative(w io.Writer, r *creative.Result) {
	fmt.Fprintln(w, f.yellow(f.bold("--- Creative ---")))
	fmt.Fprintln(w)
	for _, line := range strings.Split(r.Text, "\n") {
		fmt.Fprintf(w, "  %s\n", line)
	}
	fmt.Fprintln(w)
	switch {
	case r.HasImage():
		fmt.Fprintln(w, f.dim(fmt.Sprintf("Image: %s, %d bytes (%s)", r.ImageType, len(r.Image), r.ImageSource)))
	case r.ImageError != "":
		fmt.Fprintln(w, f.dim("Image: "+r.ImageError))
	}
	if r.ImagePrompt != "" {
		fmt.Fprintln(w, f.dim("Prompt: "+r.ImagePrompt))
	}
}

// ANSI helpers — no-op when color=false.

func (f *TerminalFormatter) bold(s string) string {
	if !f.color {
		return s
	}
	return "\033[1m" + s + "\033[0m"
}

func (f *TerminalFormatter) green(s string) string {
	if !f.color {
		return s
	}
	return "\033[32m" + s + "\033[0m"
}

func (f *TerminalFormatter) yellow(s string) string {
	if !f.color {
		return s
	}
	return "\033[33m" + s + "\033[0m"
}

func (f *TerminalFormatter) dim(s string) string {
	if !f.color {
		return s
	}
	return "\033[2m" + s + "\033[0m"
}
