package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/tgcreative/internal/mtproto"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and secrets",
	RunE:  doctorAction,
}

func doctorAction(_ *cobra.Command, _ []string) error {
	ok := true

	// Config dir
	if info, err := os.Stat(configDir); err != nil || !info.IsDir() {
		printInfo("config directory %s missing (run tgcreative init); using defaults", configDir)
	} else {
		printCheck(true, "config directory %s", configDir)
	}

	cfg, err := loadConfig()
	if err != nil {
		printCheck(false, "config: %v", err)
		return fmt.Errorf("some checks failed")
	}
	printCheck(true, "config (provider %s, model %s)", cfg.Creative.Provider, cfg.Creative.Model)

	// Telegram history credentials. Missing ones only degrade analysis.
	creds := cfg.Credentials()
	if creds.Present() {
		if _, err := mtproto.ParseAppID(creds.AppID); err != nil {
			printCheck(false, "%s: %v", cfg.Telegram.APIIDEnv, err)
			ok = false
		} else {
			printCheck(true, "telegram history credentials")
		}
	} else {
		printInfo("telegram history disabled: need %s, %s and %s (or %s from tgcreative login)",
			cfg.Telegram.APIIDEnv, cfg.Telegram.APIHashEnv, cfg.Telegram.SessionEnv, cfg.SessionPath())
	}

	// Chat model
	if cfg.Creative.APIKey == "" {
		printCheck(false, "%s not set: creative generation disabled", cfg.Creative.APIKeyEnv)
		ok = false
	} else {
		printCheck(true, "chat API key (%s)", cfg.Creative.APIKeyEnv)
	}

	// Optional services
	if cfg.Image.APIKey == "" {
		printInfo("%s not set: pictures can only be reused from posts", cfg.Image.APIKeyEnv)
	} else {
		printCheck(true, "image API key (%s)", cfg.Image.APIKeyEnv)
	}
	if cfg.Bot.Token == "" {
		printInfo("%s not set: delivery disabled", cfg.Bot.TokenEnv)
	} else {
		printCheck(true, "bot token (%s)", cfg.Bot.TokenEnv)
	}

	if cfg.Privacy.Redact.Enabled {
		printCheck(true, "redaction (%d patterns)", len(cfg.Privacy.Redact.Patterns))
	}

	if !ok {
		return fmt.Errorf("some checks failed")
	}
	fmt.Println("\nAll checks passed.")
	return nil
}

func printCheck(pass bool, format string, args ...any) {
	mark := "FAIL"
	if pass {
		mark = " OK "
	}
	fmt.Printf("[%s] %s\n", mark, fmt.Sprintf(format, args...))
}

func printInfo(format string, args ...any) {
	fmt.Printf("[INFO] %s\n", fmt.Sprintf(format, args...))
}
