package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTestYAML(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write test yaml: %v", err)
	}
	return path
}

// clearEnv blanks every variable the defaults point at so host settings do not leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"API_PORT", "WEB_ORIGIN",
		"TELEGRAM_API_ID", "TELEGRAM_API_HASH", "TELEGRAM_SESSION_STRING", "TELEGRAM_PHONE",
		"DEEPSEEK_BASE_URL", "DEEPSEEK_API_KEY", "ANTHROPIC_API_KEY",
		"BOTHUB_API_KEY", "TELEGRAM_BOT_TOKEN", "LOG_LEVEL",
	} {
		t.Setenv(name, "")
	}
}

// --- Load tests ---

func TestLoad_FullConfig(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("TEST_TG_ID", "12345")
	t.Setenv("TEST_TG_HASH", "abcdef")
	t.Setenv("TEST_TG_SESSION", "1BVtsOK4Bu")
	t.Setenv("TEST_LLM_KEY", "sk-secret")
	t.Setenv("TEST_IMG_KEY", "bh-secret")
	t.Setenv("TEST_BOT", "123:ABC")

	writeTestYAML(t, dir, DefaultConfigFile, `
server:
  port: 8080
  web_origin: "https://creative.example"
  max_body_bytes: 1048576
  shutdown_timeout: 5s
telegram:
  api_id_env: TEST_TG_ID
  api_hash_env: TEST_TG_HASH
  session_env: TEST_TG_SESSION
channel:
  posts_timeout: 90s
  max_posts: 10
  media_budget: 2
creative:
  provider: anthropic
  model: claude-haiku-4-5
  api_key_env: TEST_LLM_KEY
  max_tokens: 600
image:
  model: dall-e-2
  api_key_env: TEST_IMG_KEY
bot:
  token_env: TEST_BOT
  timeout: 30s
privacy:
  redact:
    enabled: true
    patterns:
      - "(?i)token"
log:
  level: debug
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	// Server
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Addr() != ":8080" {
		t.Errorf("addr = %q", cfg.Addr())
	}
	if cfg.Server.WebOrigin != "https://creative.example" {
		t.Errorf("web_origin = %q", cfg.Server.WebOrigin)
	}
	if cfg.Server.MaxBodyBytes != 1<<20 {
		t.Errorf("max_body_bytes = %d", cfg.Server.MaxBodyBytes)
	}
	if cfg.Server.ShutdownTimeout.Duration != 5*time.Second {
		t.Errorf("shutdown_timeout = %v", cfg.Server.ShutdownTimeout.Duration)
	}

	// Telegram
	creds := cfg.Credentials()
	if creds.AppID != "12345" || creds.AppHash != "abcdef" || creds.Session != "1BVtsOK4Bu" {
		t.Errorf("credentials = %+v", creds)
	}
	if !creds.Present() {
		t.Error("credentials should be present")
	}

	// Channel
	if cfg.Channel.PostsTimeout.Duration != 90*time.Second {
		t.Errorf("posts_timeout = %v, want 90s", cfg.Channel.PostsTimeout.Duration)
	}
	limits := cfg.Limits()
	if limits.MaxPosts != 10 || limits.MediaBudget != 2 || limits.MaxPages != 3 || limits.PageSize != 100 {
		t.Errorf("limits = %+v", limits)
	}

	// Creative
	if cfg.Creative.Provider != "anthropic" || cfg.Creative.Model != "claude-haiku-4-5" {
		t.Errorf("creative = %+v", cfg.Creative)
	}
	if cfg.Creative.APIKey != "sk-secret" {
		t.Errorf("creative api key = %q, want sk-secret", cfg.Creative.APIKey)
	}
	if cfg.Creative.BaseURL != "" {
		t.Errorf("anthropic base url = %q, want SDK default", cfg.Creative.BaseURL)
	}
	if cfg.Creative.MaxTokens != 600 {
		t.Errorf("max_tokens = %d, want 600", cfg.Creative.MaxTokens)
	}

	// Image and bot
	if cfg.Image.Model != "dall-e-2" || cfg.Image.APIKey != "bh-secret" || cfg.Image.BaseURL != DefaultImageURL {
		t.Errorf("image = %+v", cfg.Image)
	}
	if cfg.Bot.Token != "123:ABC" || cfg.Bot.Timeout.Duration != 30*time.Second {
		t.Errorf("bot = %+v", cfg.Bot)
	}

	// Privacy
	r, err := cfg.Redactor()
	if err != nil || r.Len() != 1 {
		t.Errorf("redactor = %v, %v", r, err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeTestYAML(t, dir, DefaultConfigFile, "log:\n  level: info\n")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != DefaultPort {
		t.Errorf("port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.WebOrigin != DefaultWebOrigin {
		t.Errorf("web_origin = %q", cfg.Server.WebOrigin)
	}
	if cfg.Server.MaxBodyBytes != DefaultMaxBody {
		t.Errorf("max_body_bytes = %d", cfg.Server.MaxBodyBytes)
	}
	if cfg.Channel.BaseURL != "https://t.me" || cfg.Channel.MinPageBytes != 100 {
		t.Errorf("channel = %+v", cfg.Channel)
	}
	if cfg.Channel.PostsTimeout.Duration != 180*time.Second {
		t.Errorf("posts_timeout = %v, want 180s", cfg.Channel.PostsTimeout.Duration)
	}
	if cfg.Creative.Provider != DefaultProvider || cfg.Creative.Model != DefaultChatModel || cfg.Creative.BaseURL != DefaultChatBaseURL {
		t.Errorf("creative = %+v", cfg.Creative)
	}
	if cfg.Creative.APIKeyEnv != "DEEPSEEK_API_KEY" {
		t.Errorf("api_key_env = %q", cfg.Creative.APIKeyEnv)
	}
	if cfg.Image.Model != DefaultImageModel {
		t.Errorf("image model = %q", cfg.Image.Model)
	}
	if cfg.Bot.Timeout.Duration != DefaultBotTimeout {
		t.Errorf("bot timeout = %v", cfg.Bot.Timeout.Duration)
	}
	if cfg.Credentials().Present() {
		t.Error("credentials must be absent without env vars")
	}
	if r, err := cfg.Redactor(); err != nil || r != nil {
		t.Errorf("redactor = %v, %v, want nil when disabled", r, err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeTestYAML(t, dir, DefaultConfigFile, "server:\n  port: 4000\n")
	t.Setenv("API_PORT", "5000")
	t.Setenv("WEB_ORIGIN", "https://app.example")
	t.Setenv("DEEPSEEK_BASE_URL", "https://proxy.example/")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Server.WebOrigin != "https://app.example" {
		t.Errorf("web_origin = %q", cfg.Server.WebOrigin)
	}
	if cfg.Creative.BaseURL != "https://proxy.example/v1" {
		t.Errorf("base url = %q", cfg.Creative.BaseURL)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestLoad_InvalidPortEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeTestYAML(t, dir, DefaultConfigFile, "{}\n")
	t.Setenv("API_PORT", "http")

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestLoad_SessionFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeTestYAML(t, dir, DefaultConfigFile, "{}\n")
	writeTestYAML(t, dir, DefaultSessionFile, "{\"Version\":1}\n")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Session != `{"Version":1}` {
		t.Errorf("session = %q", cfg.Telegram.Session)
	}
	if cfg.SessionPath() != filepath.Join(dir, DefaultSessionFile) {
		t.Errorf("session path = %q", cfg.SessionPath())
	}
}

func TestLoad_SessionEnvWinsOverFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeTestYAML(t, dir, DefaultConfigFile, "{}\n")
	writeTestYAML(t, dir, DefaultSessionFile, "from-file")
	t.Setenv("TELEGRAM_SESSION_STRING", "from-env")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Session != "from-env" {
		t.Errorf("session = %q, want from-env", cfg.Telegram.Session)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeTestYAML(t, dir, DefaultConfigFile, "{}\n")
	t.Setenv("TEST_DOTENV_KEY", "")
	_ = os.Unsetenv("TEST_DOTENV_KEY") // t.Setenv restores the original value on cleanup
	t.Setenv("DEEPSEEK_API_KEY", "already-set")
	writeTestYAML(t, dir, DefaultEnvFile, "DEEPSEEK_API_KEY=from-dotenv\nTEST_DOTENV_KEY=from-dotenv\n")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if os.Getenv("TEST_DOTENV_KEY") != "from-dotenv" {
		t.Errorf("TEST_DOTENV_KEY = %q, want value from .env", os.Getenv("TEST_DOTENV_KEY"))
	}
	if cfg.Creative.APIKey != "already-set" {
		t.Errorf("api key = %q, .env must not override the environment", cfg.Creative.APIKey)
	}
}

func TestLoad_InvalidProvider(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeTestYAML(t, dir, DefaultConfigFile, "creative:\n  provider: gemini\n")

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if !strings.Contains(err.Error(), "creative.provider") {
		t.Errorf("error = %q, want mention of creative.provider", err.Error())
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeTestYAML(t, dir, DefaultConfigFile, "log:\n  level: chatty\n")

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestLoad_InvalidRedactPattern(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeTestYAML(t, dir, DefaultConfigFile, "privacy:\n  redact:\n    enabled: true\n    patterns: [\"[bad\"]\n")

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for invalid redact pattern")
	}
}

func TestLoad_NegativeLimit(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeTestYAML(t, dir, DefaultConfigFile, "channel:\n  media_budget: -1\n")

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for negative media budget")
	}
}

func TestLoad_DurationParsing(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeTestYAML(t, dir, DefaultConfigFile, "channel:\n  posts_timeout: 2m30s\n")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Channel.PostsTimeout.Duration != 150*time.Second {
		t.Errorf("posts_timeout = %v, want 2m30s", cfg.Channel.PostsTimeout.Duration)
	}

	writeTestYAML(t, dir, DefaultConfigFile, "channel:\n  posts_timeout: soon\n")
	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing config")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeTestYAML(t, dir, DefaultConfigFile, "server: [unclosed\n")

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_EmptyDir(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for empty dir")
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEEPSEEK_API_KEY", "sk-env")

	cfg, err := LoadOrDefault(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Creative.APIKey != "sk-env" {
		t.Errorf("api key = %q, want sk-env", cfg.Creative.APIKey)
	}
}

func TestLoadOrDefault_InvalidFileStillFails(t *testing.T) {
	dir := t.TempDir()
	writeTestYAML(t, dir, DefaultConfigFile, "server: [unclosed\n")

	if _, err := LoadOrDefault(dir); err == nil {
		t.Fatal("expected parse error to surface")
	}
}

func TestChatBaseURL(t *testing.T) {
	for in, want := range map[string]string{
		"https://api.deepseek.com":     "https://api.deepseek.com/v1",
		"https://api.deepseek.com/":    "https://api.deepseek.com/v1",
		"https://api.deepseek.com/v1":  "https://api.deepseek.com/v1",
		"https://api.deepseek.com/v1/": "https://api.deepseek.com/v1",
	} {
		if got := chatBaseURL(in); got != want {
			t.Errorf("chatBaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}
