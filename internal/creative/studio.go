package creative

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/tgcreative/internal/channel"
	"github.com/ppiankov/tgcreative/internal/logging"
)

const (
	ImageSourceGenerated = "generated"
	ImageSourcePost      = "post"
)

// Options select how the picture for a creative is obtained.
type Options struct {
	WithImage bool
	// ReusePostImage attaches the most engaging post picture instead of generating one.
	ReusePostImage bool
}

// Result is a creative ready for delivery. Picture problems never fail the
// result; they are reported in ImageError.
type Result struct {
	Text        string
	ImagePrompt string
	Image       []byte
	ImageType   string
	ImageSource string
	ImageError  string
}

// HasImage reports whether the result carries a picture.
func (r *Result) HasImage() bool { return len(r.Image) > 0 }

// Studio combines text generation with picture selection.
type Studio struct {
	gen    *Generator
	images *ImageGenerator
	log    logrus.FieldLogger
}

// NewStudio creates a studio. images may be nil when picture generation is not configured.
func NewStudio(gen *Generator, images *ImageGenerator, logger logrus.FieldLogger) *Studio {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Studio{gen: gen, images: images, log: logger}
}

// Generator returns the text generator, for edits.
func (s *Studio) Generator() *Generator { return s.gen }

// Create writes the creative for d and attaches a picture when requested.
func (s *Studio) Create(ctx context.Context, d *channel.Digest, opts Options) (*Result, error) {
	var reuse *channel.Post
	if opts.ReusePostImage {
		reuse = BestMediaPost(d)
	}

	c, err := s.gen.Generate(ctx, d, opts.WithImage && reuse == nil)
	if err != nil {
		return nil, err
	}
	res := &Result{Text: c.Text, ImagePrompt: c.ImagePrompt}
	log := logging.FromContext(ctx, s.log).WithField("handle", d.Handle.String())

	switch {
	case reuse != nil:
		res.Image = reuse.Media
		res.ImageType = reuse.MediaType
		res.ImageSource = ImageSourcePost
	case !opts.WithImage, c.ImagePrompt == "":
		// no picture requested or none suggested; not an error
	case s.images == nil:
		res.ImageError = ErrNotConfigured.Error()
	default:
		img, err := s.images.Generate(ctx, c.ImagePrompt)
		if err != nil {
			log.WithError(err).Warn("image generation failed; returning text only")
			res.ImageError = err.Error()
			break
		}
		res.Image = img.Data
		res.ImageType = img.MIMEType
		res.ImageSource = ImageSourceGenerated
	}
	return res, nil
}
