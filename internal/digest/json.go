package digest

import (
	"encoding/json"
	"io"
)

type jsonDigest struct {
	Channel  ChannelInfo   `json:"channel"`
	Media    int           `json:"media"`
	Creative *jsonCreative `json:"creative,omitempty"`
}

type jsonCreative struct {
	Text        string `json:"text"`
	ImagePrompt string `json:"imagePrompt,omitempty"`
	ImageType   string `json:"imageType,omitempty"`
	ImageSource string `json:"imageSource,omitempty"`
	ImageBytes  int    `json:"imageBytes,omitempty"`
	ImageError  string `json:"imageError,omitempty"`
}

// JSONFormatter formats a digest as JSON. Media blobs are left out.
type JSONFormatter struct{}

// NewJSON creates a JSON formatter.
func NewJSON() *JSONFormatter {
	return &JSONFormatter{}
}

// Format writes the digest as JSON to w.
func (f *JSONFormatter) Format(w io.Writer, input Input) error {
	out := jsonDigest{
		Channel: FromDigest(input.Digest, false),
		Media:   input.Digest.MediaCount(),
	}
	if r := input.Creative; r != nil {
		out.Creative = &jsonCreative{
			Text:        r.Text,
			ImagePrompt: r.ImagePrompt,
			ImageType:   r.ImageType,
			ImageSource: r.ImageSource,
			ImageBytes:  len(r.Image),
			ImageError:  r.ImageError,
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
