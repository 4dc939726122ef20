package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/tgcreative/internal/channel"
	"github.com/ppiankov/tgcreative/internal/creative"
	"github.com/ppiankov/tgcreative/internal/digest"
	"github.com/ppiankov/tgcreative/internal/logging"
)

// Analyzer runs the channel pipeline.
type Analyzer interface {
	Run(ctx context.Context, rawInput string) (*channel.Digest, error)
}

// Studio turns a digest into a creative.
type Studio interface {
	Create(ctx context.Context, d *channel.Digest, opts creative.Options) (*creative.Result, error)
}

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	analyzer Analyzer
	studio   Studio
	log      logrus.FieldLogger
}

// NewHandlers creates handlers. studio may be nil.
func NewHandlers(a Analyzer, s Studio, logger logrus.FieldLogger) *Handlers {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handlers{analyzer: a, studio: s, log: logger}
}

// AnalyzeRequest represents the arguments for channel_analyze.
type AnalyzeRequest struct {
	Link string `json:"link"`
}

// GenerateRequest represents the arguments for creative_generate.
type GenerateRequest struct {
	Link           string `json:"link"`
	WithImage      bool   `json:"with_image,omitempty"`
	ReusePostImage bool   `json:"reuse_post_image,omitempty"`
}

// AnalyzeOutput is the channel_analyze result.
type AnalyzeOutput struct {
	digest.ChannelInfo
	Media int `json:"media"`
}

// GenerateOutput is the creative_generate result. The picture, if any, is
// attached as image content next to it.
type GenerateOutput struct {
	Text        string `json:"text"`
	ImagePrompt string `json:"image_prompt,omitempty"`
	ImageSource string `json:"image_source,omitempty"`
	ImageError  string `json:"image_error,omitempty"`
}

// HandleAnalyze handles the channel_analyze tool call.
func (h *Handlers) HandleAnalyze(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AnalyzeRequest](req)
	if err != nil {
		return errorResult(codeInvalidRequest, err.Error()), nil
	}
	d, res := h.run(ctx, input.Link)
	if res != nil {
		return res, nil
	}
	return successResult(AnalyzeOutput{ChannelInfo: digest.FromDigest(d, false), Media: d.MediaCount()})
}

// HandleGenerate handles the creative_generate tool call.
func (h *Handlers) HandleGenerate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GenerateRequest](req)
	if err != nil {
		return errorResult(codeInvalidRequest, err.Error()), nil
	}
	if h.studio == nil {
		return errorResult(codeNotConfigured, "creative generation is not configured"), nil
	}
	d, res := h.run(ctx, input.Link)
	if res != nil {
		return res, nil
	}

	out, err := h.studio.Create(ctx, d, creative.Options{
		WithImage:      input.WithImage,
		ReusePostImage: input.ReusePostImage,
	})
	if err != nil {
		return h.internal("creative generation failed", err), nil
	}

	result, err := successResult(GenerateOutput{
		Text:        out.Text,
		ImagePrompt: out.ImagePrompt,
		ImageSource: out.ImageSource,
		ImageError:  out.ImageError,
	})
	if err != nil {
		return nil, err
	}
	if out.HasImage() {
		result.Content = append(result.Content, mcp.NewImageContent(base64.StdEncoding.EncodeToString(out.Image), out.ImageType))
	}
	return result, nil
}

// run executes the pipeline. A non-nil result is an error result to return as is.
func (h *Handlers) run(ctx context.Context, link string) (*channel.Digest, *mcp.CallToolResult) {
	if link == "" {
		return nil, errorResult(codeInvalidRequest, "link is required")
	}
	d, err := h.analyzer.Run(ctx, link)
	switch {
	case err == nil:
		return d, nil
	case errors.Is(err, channel.ErrNotFound):
		return nil, errorResult(codeNotFound, err.Error())
	case errors.Is(err, channel.ErrUpstreamUnavailable):
		return nil, errorResult(codeUpstreamUnavailable, err.Error())
	default:
		return nil, h.internal("channel analysis failed", err)
	}
}

func (h *Handlers) internal(msg string, err error) *mcp.CallToolResult {
	h.log.WithError(err).Warn(msg)
	return errorResult(codeInternal, msg)
}

const (
	codeInvalidRequest      = "INVALID_REQUEST"
	codeNotFound            = "NOT_FOUND"
	codeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	codeNotConfigured       = "NOT_CONFIGURED"
	codeInternal            = "INTERNAL"
)

// errorResult uses IsError so MCP clients recognize failures.
func errorResult(code, message string) *mcp.CallToolResult {
	content, _ := json.Marshal(map[string]any{
		"error": map[string]any{"code": code, "message": message},
	})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}

// decode unmarshals MCP request arguments into a typed struct.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	b, err := json.Marshal(req.GetArguments())
	if err != nil {
		return result, fmt.Errorf("marshal args: %w", err)
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, fmt.Errorf("unmarshal args: %w", err)
	}
	return result, nil
}
