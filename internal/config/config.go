package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/tgcreative/internal/channel"
	"github.com/ppiankov/tgcreative/internal/privacy"
)

const (
	DefaultConfigFile  = "config.yaml"
	DefaultEnvFile     = ".env"
	DefaultPort        = 3001
	DefaultWebOrigin   = "http://localhost:5173"
	DefaultMaxBody     = 10 << 20
	DefaultShutdown    = 10 * time.Second
	DefaultSessionFile = "session/session.json"
	DefaultProvider    = "openai"
	DefaultChatBaseURL = "https://api.deepseek.com/v1"
	DefaultChatModel   = "deepseek-chat"
	DefaultMaxTokens   = 1024
	DefaultRetries     = 2
	DefaultImageURL    = "https://bothub.chat/api/v2/openai/v1"
	DefaultImageModel  = "dall-e-3"
	DefaultBotTimeout  = 60 * time.Second
	DefaultLogLevel    = "info"
)

// Duration wraps time.Duration for YAML unmarshaling from strings like "180s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Telegram TelegramConfig `yaml:"telegram"`
	Channel  ChannelConfig  `yaml:"channel"`
	Creative CreativeConfig `yaml:"creative"`
	Image    ImageConfig    `yaml:"image"`
	Bot      BotConfig      `yaml:"bot"`
	Privacy  PrivacyConfig  `yaml:"privacy"`
	Log      LogConfig      `yaml:"log"`

	// Dir is the directory the config was loaded from.
	Dir string `yaml:"-"`
}

type ServerConfig struct {
	Port            int      `yaml:"port"`
	PortEnv         string   `yaml:"port_env"`
	WebOrigin       string   `yaml:"web_origin"`
	WebOriginEnv    string   `yaml:"web_origin_env"`
	MaxBodyBytes    int64    `yaml:"max_body_bytes"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// TelegramConfig holds the history credentials. All three must resolve for posts to load.
type TelegramConfig struct {
	APIIDEnv    string `yaml:"api_id_env"`
	APIHashEnv  string `yaml:"api_hash_env"`
	SessionEnv  string `yaml:"session_env"`
	SessionFile string `yaml:"session_file"`
	PhoneEnv    string `yaml:"phone_env"`

	// Resolved from env vars (and the session file) at load time.
	APIID   string `yaml:"-"`
	APIHash string `yaml:"-"`
	Session string `yaml:"-"`
	Phone   string `yaml:"-"`
}

type ChannelConfig struct {
	BaseURL      string   `yaml:"base_url"`
	MinPageBytes int      `yaml:"min_page_bytes"`
	PostsTimeout Duration `yaml:"posts_timeout"`
	MaxPosts     int      `yaml:"max_posts"`
	MediaBudget  int      `yaml:"media_budget"`
	MaxPages     int      `yaml:"max_pages"`
	PageSize     int      `yaml:"page_size"`
}

type CreativeConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	BaseURLEnv string `yaml:"base_url_env"`
	APIKeyEnv  string `yaml:"api_key_env"`
	MaxTokens  int    `yaml:"max_tokens"`
	Retries    int    `yaml:"retries"`

	// Resolved from env var at load time.
	APIKey string `yaml:"-"`
}

type ImageConfig struct {
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`

	// Resolved from env var at load time.
	APIKey string `yaml:"-"`
}

type BotConfig struct {
	TokenEnv string   `yaml:"token_env"`
	Timeout  Duration `yaml:"timeout"`

	// Resolved from env var at load time.
	Token string `yaml:"-"`
}

type PrivacyConfig struct {
	Redact RedactConfig `yaml:"redact"`
}

type RedactConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Patterns []string `yaml:"patterns"`
}

type LogConfig struct {
	Level    string `yaml:"level"`
	LevelEnv string `yaml:"level_env"`
}

// Load reads config.yaml from dir, applies defaults, resolves env vars, and validates.
// A .env file next to the config (or in the working directory) is loaded first
// without overriding variables already set.
func Load(dir string) (*Config, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("config dir is required")
	}

	path := filepath.Join(dir, DefaultConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return finish(&cfg, dir)
}

// LoadOrDefault behaves like Load but falls back to defaults and environment
// variables when config.yaml does not exist.
func LoadOrDefault(dir string) (*Config, error) {
	cfg, err := Load(dir)
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}
	return finish(&Config{}, dir)
}

func finish(cfg *Config, dir string) (*Config, error) {
	if err := loadDotEnv(dir); err != nil {
		return nil, err
	}
	cfg.Dir = dir

	applyDefaults(cfg)
	if err := resolveEnv(cfg); err != nil {
		return nil, fmt.Errorf("resolve env: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func loadDotEnv(dir string) error {
	var files []string
	for _, p := range []string{filepath.Join(dir, DefaultEnvFile), DefaultEnvFile} {
		if _, err := os.Stat(p); err == nil {
			files = append(files, p)
		}
	}
	if len(files) == 0 {
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.PortEnv == "" {
		cfg.Server.PortEnv = "API_PORT"
	}
	if cfg.Server.WebOrigin == "" {
		cfg.Server.WebOrigin = DefaultWebOrigin
	}
	if cfg.Server.WebOriginEnv == "" {
		cfg.Server.WebOriginEnv = "WEB_ORIGIN"
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBody
	}
	if cfg.Server.ShutdownTimeout.Duration == 0 {
		cfg.Server.ShutdownTimeout.Duration = DefaultShutdown
	}

	if cfg.Telegram.APIIDEnv == "" {
		cfg.Telegram.APIIDEnv = "TELEGRAM_API_ID"
	}
	if cfg.Telegram.APIHashEnv == "" {
		cfg.Telegram.APIHashEnv = "TELEGRAM_API_HASH"
	}
	if cfg.Telegram.SessionEnv == "" {
		cfg.Telegram.SessionEnv = "TELEGRAM_SESSION_STRING"
	}
	if cfg.Telegram.SessionFile == "" {
		cfg.Telegram.SessionFile = DefaultSessionFile
	}
	if cfg.Telegram.PhoneEnv == "" {
		cfg.Telegram.PhoneEnv = "TELEGRAM_PHONE"
	}

	if cfg.Channel.BaseURL == "" {
		cfg.Channel.BaseURL = channel.PublicBaseURL
	}
	if cfg.Channel.MinPageBytes == 0 {
		cfg.Channel.MinPageBytes = channel.DefaultMinPageBytes
	}
	if cfg.Channel.PostsTimeout.Duration == 0 {
		cfg.Channel.PostsTimeout.Duration = channel.DefaultPostsTimeout
	}
	limits := channel.DefaultLimits()
	if cfg.Channel.MaxPosts == 0 {
		cfg.Channel.MaxPosts = limits.MaxPosts
	}
	if cfg.Channel.MediaBudget == 0 {
		cfg.Channel.MediaBudget = limits.MediaBudget
	}
	if cfg.Channel.MaxPages == 0 {
		cfg.Channel.MaxPages = limits.MaxPages
	}
	if cfg.Channel.PageSize == 0 {
		cfg.Channel.PageSize = limits.PageSize
	}

	if cfg.Creative.Provider == "" {
		cfg.Creative.Provider = DefaultProvider
	}
	if cfg.Creative.Provider == DefaultProvider {
		if cfg.Creative.Model == "" {
			cfg.Creative.Model = DefaultChatModel
		}
		if cfg.Creative.BaseURL == "" {
			cfg.Creative.BaseURL = DefaultChatBaseURL
		}
		if cfg.Creative.BaseURLEnv == "" {
			cfg.Creative.BaseURLEnv = "DEEPSEEK_BASE_URL"
		}
		if cfg.Creative.APIKeyEnv == "" {
			cfg.Creative.APIKeyEnv = "DEEPSEEK_API_KEY"
		}
	}
	if cfg.Creative.APIKeyEnv == "" {
		cfg.Creative.APIKeyEnv = "ANTHROPIC_API_KEY"
	}
	if cfg.Creative.MaxTokens == 0 {
		cfg.Creative.MaxTokens = DefaultMaxTokens
	}
	if cfg.Creative.Retries == 0 {
		cfg.Creative.Retries = DefaultRetries
	}

	if cfg.Image.BaseURL == "" {
		cfg.Image.BaseURL = DefaultImageURL
	}
	if cfg.Image.Model == "" {
		cfg.Image.Model = DefaultImageModel
	}
	if cfg.Image.APIKeyEnv == "" {
		cfg.Image.APIKeyEnv = "BOTHUB_API_KEY"
	}

	if cfg.Bot.TokenEnv == "" {
		cfg.Bot.TokenEnv = "TELEGRAM_BOT_TOKEN"
	}
	if cfg.Bot.Timeout.Duration == 0 {
		cfg.Bot.Timeout.Duration = DefaultBotTimeout
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.LevelEnv == "" {
		cfg.Log.LevelEnv = "LOG_LEVEL"
	}
}

func resolveEnv(cfg *Config) error {
	if v := env(cfg.Server.PortEnv); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid port %q", cfg.Server.PortEnv, v)
		}
		cfg.Server.Port = port
	}
	if v := env(cfg.Server.WebOriginEnv); v != "" {
		cfg.Server.WebOrigin = v
	}

	cfg.Telegram.APIID = env(cfg.Telegram.APIIDEnv)
	cfg.Telegram.APIHash = env(cfg.Telegram.APIHashEnv)
	cfg.Telegram.Phone = env(cfg.Telegram.PhoneEnv)
	cfg.Telegram.Session = env(cfg.Telegram.SessionEnv)
	if cfg.Telegram.Session == "" {
		data, err := os.ReadFile(cfg.SessionPath())
		if err == nil {
			cfg.Telegram.Session = strings.TrimSpace(string(data))
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read session file: %w", err)
		}
	}

	if v := env(cfg.Creative.BaseURLEnv); v != "" {
		cfg.Creative.BaseURL = chatBaseURL(v)
	}
	cfg.Creative.APIKey = env(cfg.Creative.APIKeyEnv)
	cfg.Image.APIKey = env(cfg.Image.APIKeyEnv)
	cfg.Bot.Token = env(cfg.Bot.TokenEnv)

	if v := env(cfg.Log.LevelEnv); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

// chatBaseURL accepts both "https://api.deepseek.com" and ".../v1".
func chatBaseURL(v string) string {
	v = strings.TrimRight(v, "/")
	if !strings.HasSuffix(v, "/v1") {
		v += "/v1"
	}
	return v
}

func env(name string) string {
	if name == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(name))
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port: %d out of range", cfg.Server.Port)
	}
	if cfg.Server.MaxBodyBytes < 0 {
		return errors.New("server.max_body_bytes: must not be negative")
	}

	switch cfg.Creative.Provider {
	case "openai", "anthropic":
		// valid
	default:
		return fmt.Errorf("creative.provider: unknown provider %q (want openai or anthropic)", cfg.Creative.Provider)
	}

	if cfg.Channel.PostsTimeout.Duration < 0 {
		return errors.New("channel.posts_timeout: must not be negative")
	}
	for name, v := range map[string]int{
		"channel.max_posts":    cfg.Channel.MaxPosts,
		"channel.media_budget": cfg.Channel.MediaBudget,
		"channel.max_pages":    cfg.Channel.MaxPages,
		"channel.page_size":    cfg.Channel.PageSize,
	} {
		if v < 0 {
			return fmt.Errorf("%s: must not be negative", name)
		}
	}

	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	if cfg.Privacy.Redact.Enabled {
		if _, err := privacy.Compile(cfg.Privacy.Redact.Patterns); err != nil {
			return fmt.Errorf("privacy.redact: %w", err)
		}
	}
	return nil
}

// SessionPath returns the session file path; relative paths are resolved against Dir.
func (c *Config) SessionPath() string {
	p := c.Telegram.SessionFile
	if filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// Credentials returns the history credentials for the channel aggregator.
func (c *Config) Credentials() channel.Credentials {
	return channel.Credentials{
		AppID:   c.Telegram.APIID,
		AppHash: c.Telegram.APIHash,
		Session: c.Telegram.Session,
	}
}

// Limits returns the aggregation bounds.
func (c *Config) Limits() channel.Limits {
	return channel.Limits{
		MaxPosts:    c.Channel.MaxPosts,
		MediaBudget: c.Channel.MediaBudget,
		MaxPages:    c.Channel.MaxPages,
		PageSize:    c.Channel.PageSize,
	}
}

// Redactor compiles the redaction patterns; nil when redaction is disabled.
func (c *Config) Redactor() (*privacy.Redactor, error) {
	if !c.Privacy.Redact.Enabled {
		return nil, nil
	}
	return privacy.Compile(c.Privacy.Redact.Patterns)
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
