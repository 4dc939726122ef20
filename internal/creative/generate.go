package creative

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/tgcreative/internal/channel"
	"github.com/ppiankov/tgcreative/internal/logging"
	"github.com/ppiankov/tgcreative/internal/privacy"
)

const (
	generateTemperature = 0.7
	editTemperature     = 0.5

	generateSystemPrompt = `You write advertising creatives for Telegram channels. Produce a short promotional post about the channel's subject.
The creative must be specific to this channel: build on its concrete posts and topics (if there is a post about "SEO in 2026", mention it: "Everything about SEO in 2026 and more, subscribe").
Always include a call to visit the channel and the channel link. Length 200-400 characters, emoji allowed. Write in the language the channel posts in.`

	editSystemPrompt = "You help edit an advertising text. Return only the final creative text, without explanations or markdown."
)

var (
	openFenceRe  = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	closeFenceRe = regexp.MustCompile("\\s*```$")
)

// Creative is a generated advertising post.
type Creative struct {
	Text        string `json:"text"`
	ImagePrompt string `json:"image_prompt,omitempty"`
}

// Generator produces and edits creatives with a Writer.
type Generator struct {
	writer   Writer
	redactor *privacy.Redactor
	log      logrus.FieldLogger
}

// NewGenerator creates a generator. A nil writer makes every call fail with ErrNotConfigured.
func NewGenerator(w Writer, r *privacy.Redactor, logger logrus.FieldLogger) *Generator {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Generator{writer: w, redactor: r, log: logger}
}

// Generate writes a creative for d. ImagePrompt is set only when withImage is true
// and the model supplied one.
func (g *Generator) Generate(ctx context.Context, d *channel.Digest, withImage bool) (Creative, error) {
	if g.writer == nil {
		return Creative{}, ErrNotConfigured
	}

	user := BuildContext(d, g.redactor) + "\n\n" + generateInstruction(withImage)
	content, err := g.writer.Complete(ctx, generateSystemPrompt, user, generateTemperature)
	if err != nil {
		return Creative{}, fmt.Errorf("creative: generate: %w", err)
	}

	c := parseCreative(content, withImage)
	logging.FromContext(ctx, g.log).WithFields(logrus.Fields{
		"handle":       d.Handle.String(),
		"chars":        len([]rune(c.Text)),
		"image_prompt": c.ImagePrompt != "",
	}).Info("creative generated")
	return c, nil
}

// Edit rewrites text according to instruction. An empty answer keeps text.
func (g *Generator) Edit(ctx context.Context, text, instruction string) (string, error) {
	if g.writer == nil {
		return "", ErrNotConfigured
	}

	user := fmt.Sprintf("Current creative text:\n%s\n\nThe user asks: %s\n\nReturn only the updated creative text.", text, instruction)
	content, err := g.writer.Complete(ctx, editSystemPrompt, user, editTemperature)
	if err != nil {
		return "", fmt.Errorf("creative: edit: %w", err)
	}

	edited := strings.TrimSpace(trimQuotes(strings.TrimSpace(content)))
	if edited == "" {
		return text, nil
	}
	return edited, nil
}

func generateInstruction(withImage bool) string {
	var b strings.Builder
	b.WriteString("Generate the creative. Answer STRICTLY as JSON, without markdown or extra text:\n")
	b.WriteString("{\n  \"text\": \"creative text with the channel link\",\n")
	b.WriteString("  \"image_prompt\": \"short English picture description for DALL-E, up to 150 characters, or null if no picture is needed\"\n}\n")
	if withImage {
		b.WriteString("A picture is needed: fill image_prompt in English.")
	} else {
		b.WriteString("No picture is needed: set image_prompt to null.")
	}
	return b.String()
}

// parseCreative reads the model answer. Anything that is not the expected JSON
// becomes the creative text as is.
func parseCreative(content string, withImage bool) Creative {
	content = strings.TrimSpace(content)
	cleaned := strings.TrimSpace(closeFenceRe.ReplaceAllString(openFenceRe.ReplaceAllString(content, ""), ""))

	var parsed struct {
		Text        string  `json:"text"`
		ImagePrompt *string `json:"image_prompt"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return Creative{Text: content}
	}

	c := Creative{Text: parsed.Text}
	if c.Text == "" {
		c.Text = content
	}
	if withImage && parsed.ImagePrompt != nil {
		prompt := strings.TrimSpace(*parsed.ImagePrompt)
		if prompt != "null" {
			c.ImagePrompt = prompt
		}
	}
	return c
}

// trimQuotes drops one quote character from each end.
func trimQuotes(s string) string {
	if s != "" && (s[0] == '"' || s[0] == '\'') {
		s = s[1:]
	}
	if n := len(s); n > 0 && (s[n-1] == '"' || s[n-1] == '\'') {
		s = s[:n-1]
	}
	return s
}
