package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/tgcreative/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config directory with example files",
	RunE:  initAction,
}

func initAction(_ *cobra.Command, _ []string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	created := 0

	configPath := filepath.Join(configDir, config.DefaultConfigFile)
	wrote, err := writeIfNotExists(configPath, []byte(exampleConfig), 0o644)
	if err != nil {
		return err
	}
	if wrote {
		created++
	}

	envPath := filepath.Join(configDir, config.DefaultEnvFile)
	wrote, err = writeIfNotExists(envPath, []byte(exampleEnv), 0o600)
	if err != nil {
		return err
	}
	if wrote {
		created++
	}

	if created == 0 {
		fmt.Printf("Config directory %s already initialized.\n", configDir)
	} else {
		fmt.Printf("Initialized %s with %d config files.\n", configDir, created)
	}
	return nil
}

// writeIfNotExists writes data to path if the file does not exist.
// Returns true if the file was created.
func writeIfNotExists(path string, data []byte, perm os.FileMode) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("  exists: %s\n", path)
		return false, nil
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("  created: %s\n", path)
	return true, nil
}

const exampleConfig = `# tgcreative configuration

server:
  port: 3001
  web_origin: "http://localhost:5173"
  max_body_bytes: 10485760
  shutdown_timeout: 10s

# Reading recent posts needs all three secrets; without them only the
# channel title and description are analyzed.
telegram:
  api_id_env: TELEGRAM_API_ID
  api_hash_env: TELEGRAM_API_HASH
  session_env: TELEGRAM_SESSION_STRING
  session_file: session/session.json   # written by "tgcreative login"
  phone_env: TELEGRAM_PHONE

channel:
  posts_timeout: 180s
  max_posts: 15
  media_budget: 5
  max_pages: 3
  page_size: 100

creative:
  provider: openai          # any OpenAI-compatible API; or "anthropic"
  base_url: "https://api.deepseek.com/v1"
  model: deepseek-chat
  api_key_env: DEEPSEEK_API_KEY
  max_tokens: 1024
  retries: 2

image:
  base_url: "https://bothub.chat/api/v2/openai/v1"
  model: dall-e-3
  api_key_env: BOTHUB_API_KEY

bot:
  token_env: TELEGRAM_BOT_TOKEN
  timeout: 60s

privacy:
  redact:
    enabled: false
    patterns: []
    # - "\\+?\\d[\\d\\s-]{8,}\\d"

log:
  level: info
`

const exampleEnv = `# Secrets for tgcreative. Variables already set in the environment win.
TELEGRAM_API_ID=
TELEGRAM_API_HASH=
TELEGRAM_SESSION_STRING=
DEEPSEEK_API_KEY=
BOTHUB_API_KEY=
TELEGRAM_BOT_TOKEN=
`
