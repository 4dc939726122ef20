// Package delivery sends finished creatives to Telegram chats through the Bot API.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/tgcreative/internal/logging"
	"github.com/ppiankov/tgcreative/internal/retry"
)

const (
	// DefaultPhotoTimeout bounds one Bot API request; photo uploads are the slow ones.
	DefaultPhotoTimeout = 60 * time.Second
	updatesLimit        = 20
	photoFileName       = "image.png"
)

var (
	// ErrNotConfigured means the bot token is missing.
	ErrNotConfigured = errors.New("delivery: bot token is not configured")
	// ErrNoRecipient means the recipient is neither a chat id nor a @username.
	ErrNoRecipient = errors.New("delivery: recipient must be a chat id or @username")
	// ErrPhotoTimeout is returned when a photo upload exceeds the request timeout.
	ErrPhotoTimeout = errors.New("delivery: photo upload timed out, try sending text only")

	usernameRe = regexp.MustCompile(`^@?[A-Za-z0-9_]{3,}$`)
)

// Config configures a Bot.
type Config struct {
	Token string
	// Endpoint is a Bot API URL format with two %s verbs (token, method).
	Endpoint string
	Timeout  time.Duration
	Retry    retry.Policy
	Logger   logrus.FieldLogger
}

// Bot delivers messages. The Bot API client is created on first use.
type Bot struct {
	token    string
	endpoint string
	client   *http.Client
	policy   retry.Policy
	log      logrus.FieldLogger

	mu  sync.Mutex
	api *tgbotapi.BotAPI
}

// New creates a Bot. It fails with ErrNotConfigured without a token.
func New(cfg Config) (*Bot, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultPhotoTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	return &Bot{
		token:    token,
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
		policy:   cfg.Retry,
		log:      cfg.Logger,
	}, nil
}

func (b *Bot) botAPI(ctx context.Context) (*tgbotapi.BotAPI, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.api != nil {
		return b.api, nil
	}

	api, err := retry.Do(ctx, b.policy, func(context.Context) (*tgbotapi.BotAPI, error) {
		api, err := tgbotapi.NewBotAPIWithClient(b.token, b.endpoint, b.client)
		if err != nil {
			var apiErr *tgbotapi.Error
			if errors.As(err, &apiErr) {
				return nil, retry.Permanent(err)
			}
			return nil, err
		}
		return api, nil
	})
	if err != nil {
		return nil, fmt.Errorf("delivery: connect bot: %w", err)
	}
	b.log.WithField("bot", api.Self.UserName).Debug("bot api ready")
	b.api = api
	return api, nil
}

// Recipient is a numeric chat id or a public @username.
type Recipient struct {
	ChatID   int64
	Username string
}

// ParseRecipient accepts "123456", "-100123" or "@name".
func ParseRecipient(s string) (Recipient, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Recipient{}, ErrNoRecipient
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Recipient{ChatID: id}, nil
	}
	if usernameRe.MatchString(s) {
		return Recipient{Username: "@" + strings.TrimPrefix(s, "@")}, nil
	}
	return Recipient{}, ErrNoRecipient
}

func (r Recipient) String() string {
	if r.Username != "" {
		return r.Username
	}
	return strconv.FormatInt(r.ChatID, 10)
}

func (r Recipient) baseChat() tgbotapi.BaseChat {
	if r.Username != "" {
		return tgbotapi.BaseChat{ChannelUsername: r.Username}
	}
	return tgbotapi.BaseChat{ChatID: r.ChatID}
}

// SendMessage sends HTML text with link previews enabled.
func (b *Bot) SendMessage(ctx context.Context, to Recipient, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	api, err := b.botAPI(ctx)
	if err != nil {
		return err
	}

	msg := tgbotapi.MessageConfig{
		BaseChat:              to.baseChat(),
		Text:                  html,
		ParseMode:             tgbotapi.ModeHTML,
		DisableWebPagePreview: false,
	}
	if _, err := api.Send(msg); err != nil {
		return fmt.Errorf("delivery: send message to %s: %w", to, err)
	}
	b.log.WithField("to", to.String()).Info("message delivered")
	return nil
}

// SendPhoto uploads png with an HTML caption.
func (b *Bot) SendPhoto(ctx context.Context, to Recipient, caption string, png []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	api, err := b.botAPI(ctx)
	if err != nil {
		return err
	}

	photo := tgbotapi.PhotoConfig{
		BaseFile: tgbotapi.BaseFile{
			BaseChat: to.baseChat(),
			File:     tgbotapi.FileBytes{Name: photoFileName, Bytes: png},
		},
		Caption:   caption,
		ParseMode: tgbotapi.ModeHTML,
	}
	if _, err := api.Send(photo); err != nil {
		if isTimeout(err) {
			return ErrPhotoTimeout
		}
		return fmt.Errorf("delivery: send photo to %s: %w", to, err)
	}
	b.log.WithFields(logrus.Fields{"to": to.String(), "bytes": len(png)}).Info("photo delivered")
	return nil
}

// Send delivers text alone, or as the caption of image when one is given.
func (b *Bot) Send(ctx context.Context, to Recipient, text string, image []byte) error {
	if len(image) > 0 {
		return b.SendPhoto(ctx, to, text, image)
	}
	return b.SendMessage(ctx, to, text)
}

// Chat is a conversation that recently wrote to the bot.
type Chat struct {
	ChatID   int64  `json:"chatId"`
	Username string `json:"username,omitempty"`
}

// Updates lists distinct chats from the latest updates, most recent first.
func (b *Bot) Updates(ctx context.Context) ([]Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	api, err := b.botAPI(ctx)
	if err != nil {
		return nil, err
	}

	updates, err := api.GetUpdates(tgbotapi.UpdateConfig{Limit: updatesLimit})
	if err != nil {
		return nil, fmt.Errorf("delivery: get updates: %w", err)
	}
	return distinctChats(updates), nil
}

func distinctChats(updates []tgbotapi.Update) []Chat {
	seen := make(map[int64]bool)
	var chats []Chat
	for _, u := range updates {
		if u.Message == nil || u.Message.Chat == nil {
			continue
		}
		id := u.Message.Chat.ID
		if seen[id] {
			continue
		}
		seen[id] = true
		name := u.Message.Chat.UserName
		if name == "" && u.Message.From != nil {
			name = u.Message.From.UserName
		}
		chats = append(chats, Chat{ChatID: id, Username: name})
	}
	for i, j := 0, len(chats)-1; i < j; i, j = i+1, j-1 {
		chats[i], chats[j] = chats[j], chats[i]
	}
	return chats
}

// HandleStart answers a /start message with the sender's chat id.
// It reports whether the update was a /start command.
func (b *Bot) HandleStart(ctx context.Context, u tgbotapi.Update) (bool, error) {
	if u.Message == nil || u.Message.Chat == nil || strings.TrimSpace(u.Message.Text) != "/start" {
		return false, nil
	}
	id := u.Message.Chat.ID
	text := fmt.Sprintf("Your <b>chat_id</b>: <code>%d</code>. Paste it into the \"To\" field.", id)
	return true, b.SendMessage(ctx, Recipient{ChatID: id}, text)
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
