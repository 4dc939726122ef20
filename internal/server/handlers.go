package server

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/singleflight"

	"github.com/ppiankov/tgcreative/internal/channel"
	"github.com/ppiankov/tgcreative/internal/creative"
	"github.com/ppiankov/tgcreative/internal/delivery"
	"github.com/ppiankov/tgcreative/internal/digest"
	"github.com/ppiankov/tgcreative/internal/logging"
)

type analyzeRequest struct {
	Link string `json:"link"`
}

type generateRequest struct {
	ChannelInfo    *digest.ChannelInfo `json:"channelInfo"`
	WithImage      bool                `json:"withImage"`
	ReusePostImage bool                `json:"reusePostImage"`
}

type generateResponse struct {
	Text        string  `json:"text"`
	ImageBase64 *string `json:"imageBase64"`
	ImagePrompt *string `json:"imagePrompt"`
	ImageError  *string `json:"imageError"`
	ImageSource string  `json:"imageSource,omitempty"`
}

type editRequest struct {
	Text        string `json:"text"`
	Instruction string `json:"instruction"`
}

type sendRequest struct {
	To          string `json:"to"`
	Text        string `json:"text"`
	ImageBase64 string `json:"imageBase64"`
}

// bind decodes the JSON body. It writes the error response and returns false on failure.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return false
	}
	return true
}

func fail(c *gin.Context, status int, err error) {
	logging.FromContext(c.Request.Context(), nil).WithError(err).WithField("path", c.FullPath()).Warn("request failed")
	c.JSON(status, gin.H{"error": err.Error()})
}

func unavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": what + " is not configured"})
}

func (s *Server) analyze(c *gin.Context) {
	var req analyzeRequest
	if !bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.Link) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "link is required: a channel link (t.me/username) or @username"})
		return
	}
	h, err := channel.ExtractHandle(req.Link)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	// Concurrent requests for the same handle share a single run. The key keeps
	// the caller's casing so every response echoes the handle it was asked for.
	// The run outlives any one caller so the others still get the result.
	ctx := c.Request.Context()
	runCtx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(h.String(), func() (any, error) {
		return s.deps.Analyzer.Run(runCtx, h.String())
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return
	}
	if res.Shared {
		analyzeShared.Inc()
	}
	if res.Err != nil {
		fail(c, http.StatusBadRequest, res.Err)
		return
	}
	c.JSON(http.StatusOK, digest.FromDigest(res.Val.(*channel.Digest), true))
}

func (s *Server) generate(c *gin.Context) {
	var req generateRequest
	if !bind(c, &req) {
		return
	}
	if req.ChannelInfo == nil || req.ChannelInfo.Title == "" || req.ChannelInfo.ChannelLink == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channelInfo is required; call /api/channel/analyze first"})
		return
	}
	d, err := req.ChannelInfo.ToDigest()
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if s.deps.Studio == nil {
		unavailable(c, "creative generation")
		return
	}

	res, err := s.deps.Studio.Create(c.Request.Context(), d, creative.Options{
		WithImage:      req.WithImage,
		ReusePostImage: req.ReusePostImage,
	})
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}

	out := generateResponse{Text: res.Text, ImageSource: res.ImageSource}
	if res.HasImage() {
		b64 := base64.StdEncoding.EncodeToString(res.Image)
		out.ImageBase64 = &b64
	}
	if res.ImagePrompt != "" {
		out.ImagePrompt = &res.ImagePrompt
	}
	if res.ImageError != "" {
		out.ImageError = &res.ImageError
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) edit(c *gin.Context) {
	var req editRequest
	if !bind(c, &req) {
		return
	}
	if req.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required: the current creative text"})
		return
	}
	if req.Instruction == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "instruction is required: what to change"})
		return
	}
	if s.deps.Editor == nil {
		unavailable(c, "creative editing")
		return
	}

	text, err := s.deps.Editor.Edit(c.Request.Context(), req.Text, req.Instruction)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

// webhook always acknowledges. A /start message is answered with the chat id.
func (s *Server) webhook(c *gin.Context) {
	var u tgbotapi.Update
	if err := c.ShouldBindJSON(&u); err != nil || s.deps.Bot == nil {
		c.Status(http.StatusOK)
		return
	}
	if _, err := s.deps.Bot.HandleStart(c.Request.Context(), u); err != nil {
		logging.FromContext(c.Request.Context(), s.log).WithError(err).Warn("reply to /start failed")
	}
	c.Status(http.StatusOK)
}

func (s *Server) updates(c *gin.Context) {
	if s.deps.Bot == nil {
		unavailable(c, "telegram bot")
		return
	}
	chats, err := s.deps.Bot.Updates(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	if chats == nil {
		chats = []delivery.Chat{}
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

func (s *Server) send(c *gin.Context) {
	var req sendRequest
	if !bind(c, &req) {
		return
	}
	if req.To == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to is required: recipient @username or chat_id"})
		return
	}
	if req.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required: the creative text"})
		return
	}
	to, err := delivery.ParseRecipient(req.To)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	var image []byte
	if req.ImageBase64 != "" {
		image, err = base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "imageBase64 is not valid base64"})
			return
		}
	}
	if s.deps.Bot == nil {
		unavailable(c, "telegram bot")
		return
	}

	if err := s.deps.Bot.Send(c.Request.Context(), to, req.Text, image); err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Sent"})
}
