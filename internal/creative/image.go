package creative

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/ppiankov/tgcreative/internal/retry"
)

const (
	// DefaultImageBaseURL is the BotHub OpenAI-compatible endpoint.
	DefaultImageBaseURL = "https://bothub.chat/api/v2/openai/v1"
	DefaultImageModel   = "dall-e-3"

	imageTimeout   = 120 * time.Second
	maxImageBytes  = 20 << 20
	generatedImage = "image/png"
)

// Image is generated picture data.
type Image struct {
	Data     []byte
	MIMEType string
}

// ImageConfig configures an ImageGenerator.
type ImageConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Retry      retry.Policy
}

// ImageGenerator renders image prompts through an OpenAI-compatible images API.
type ImageGenerator struct {
	client openai.Client
	http   *http.Client
	model  string
	policy retry.Policy
}

// NewImageGenerator fails with ErrNotConfigured when the key is missing.
func NewImageGenerator(cfg ImageConfig) (*ImageGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultImageBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultImageModel
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: imageTimeout}
	}
	return &ImageGenerator{
		client: openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(strings.TrimRight(base, "/")+"/"),
			option.WithHTTPClient(hc),
			option.WithMaxRetries(0),
		),
		http:   hc,
		model:  model,
		policy: cfg.Retry,
	}, nil
}

// Generate renders one 1024x1024 picture. Base64 answers are decoded; URL
// answers are downloaded.
func (g *ImageGenerator) Generate(ctx context.Context, prompt string) (Image, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Image{}, errors.New("creative: empty image prompt")
	}

	resp, err := retry.Do(ctx, g.policy, func(ctx context.Context) (*openai.ImagesResponse, error) {
		resp, err := g.client.Images.Generate(ctx, openai.ImageGenerateParams{
			Prompt:         prompt,
			Model:          openai.ImageModel(g.model),
			N:              openai.Int(1),
			Size:           openai.ImageGenerateParamsSize1024x1024,
			ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
			Quality:        openai.ImageGenerateParamsQualityStandard,
		})
		if err != nil {
			return nil, classify(fmt.Errorf("image api error: %w", err))
		}
		return resp, nil
	})
	if err != nil {
		return Image{}, fmt.Errorf("creative: image: %w", err)
	}
	if len(resp.Data) == 0 {
		return Image{}, errors.New("creative: image api returned no image")
	}

	first := resp.Data[0]
	switch {
	case first.B64JSON != "":
		data, err := base64.StdEncoding.DecodeString(first.B64JSON)
		if err != nil {
			return Image{}, fmt.Errorf("creative: decode image: %w", err)
		}
		return Image{Data: data, MIMEType: generatedImage}, nil
	case first.URL != "":
		return g.download(ctx, first.URL)
	default:
		return Image{}, errors.New("creative: image api returned no image")
	}
}

func (g *ImageGenerator) download(ctx context.Context, url string) (Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Image{}, fmt.Errorf("creative: create image request: %w", err)
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return Image{}, fmt.Errorf("creative: download image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Image{}, fmt.Errorf("creative: download image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return Image{}, fmt.Errorf("creative: read image: %w", err)
	}
	mime := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(mime, "image/") {
		mime = generatedImage
	}
	return Image{Data: data, MIMEType: mime}, nil
}
