package cli

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/tgcreative/internal/channel"
	"github.com/ppiankov/tgcreative/internal/config"
	"github.com/ppiankov/tgcreative/internal/creative"
	"github.com/ppiankov/tgcreative/internal/delivery"
	"github.com/ppiankov/tgcreative/internal/logging"
	"github.com/ppiankov/tgcreative/internal/mtproto"
	"github.com/ppiankov/tgcreative/internal/retry"
)

const landingPageTimeout = 30 * time.Second

// app is the wired set of components a command works with. Studio and Bot
// are nil when their secrets are missing.
type app struct {
	cfg      *config.Config
	log      *logrus.Entry
	pipeline *channel.Pipeline
	studio   *creative.Studio
	bot      *delivery.Bot
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(configDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func loadApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(cfg)
}

func newApp(cfg *config.Config) (*app, error) {
	log := logging.NewWithService("tgcreative", cfg.Log.Level)

	fetcher := channel.NewMetadataFetcher(cfg.Channel.BaseURL, cfg.Channel.MinPageBytes, &http.Client{Timeout: landingPageTimeout})
	aggregator := channel.NewAggregator(mtproto.NewDialer(log), cfg.Credentials(), cfg.Limits(), log)
	if !aggregator.Enabled() {
		log.Info("telegram history credentials missing; channel analysis returns metadata only")
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		pipeline: channel.NewPipeline(fetcher, aggregator, cfg.Channel.PostsTimeout.Duration, log),
	}

	policy := retry.DefaultPolicy()
	policy.MaxRetries = cfg.Creative.Retries

	studio, err := newStudio(cfg, policy, log)
	if err != nil {
		return nil, err
	}
	a.studio = studio

	bot, err := delivery.New(delivery.Config{
		Token:   cfg.Bot.Token,
		Timeout: cfg.Bot.Timeout.Duration,
		Retry:   policy,
		Logger:  log,
	})
	switch {
	case errors.Is(err, delivery.ErrNotConfigured):
		log.WithField("env", cfg.Bot.TokenEnv).Info("bot token missing; delivery disabled")
	case err != nil:
		return nil, err
	default:
		a.bot = bot
	}
	return a, nil
}

func newStudio(cfg *config.Config, policy retry.Policy, log logrus.FieldLogger) (*creative.Studio, error) {
	writer, err := creative.NewWriter(creative.ChatConfig{
		Provider:  cfg.Creative.Provider,
		APIKey:    cfg.Creative.APIKey,
		BaseURL:   cfg.Creative.BaseURL,
		Model:     cfg.Creative.Model,
		MaxTokens: cfg.Creative.MaxTokens,
		Retry:     policy,
		Logger:    log,
	})
	if errors.Is(err, creative.ErrNotConfigured) {
		log.WithField("env", cfg.Creative.APIKeyEnv).Info("chat API key missing; creative generation disabled")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	redactor, err := cfg.Redactor()
	if err != nil {
		return nil, fmt.Errorf("compile redaction patterns: %w", err)
	}

	images, err := creative.NewImageGenerator(creative.ImageConfig{
		APIKey:  cfg.Image.APIKey,
		BaseURL: cfg.Image.BaseURL,
		Model:   cfg.Image.Model,
		Retry:   policy,
	})
	if errors.Is(err, creative.ErrNotConfigured) {
		log.WithField("env", cfg.Image.APIKeyEnv).Info("image API key missing; pictures come from posts only")
		images = nil
	} else if err != nil {
		return nil, err
	}

	return creative.NewStudio(creative.NewGenerator(writer, redactor, log), images, log), nil
}

func (a *app) requireStudio() error {
	if a.studio == nil {
		return fmt.Errorf("creative generation is not configured: set %s", a.cfg.Creative.APIKeyEnv)
	}
	return nil
}

func (a *app) requireBot() error {
	if a.bot == nil {
		return fmt.Errorf("delivery is not configured: set %s", a.cfg.Bot.TokenEnv)
	}
	return nil
}
