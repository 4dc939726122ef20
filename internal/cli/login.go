package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/tgcreative/internal/mtproto"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to Telegram and save a session for reading channel history",
	RunE:  loginAction,
}

func loginAction(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Telegram.APIID == "" || cfg.Telegram.APIHash == "" {
		return fmt.Errorf("set %s and %s (from my.telegram.org) first", cfg.Telegram.APIIDEnv, cfg.Telegram.APIHashEnv)
	}
	appID, err := mtproto.ParseAppID(cfg.Telegram.APIID)
	if err != nil {
		return err
	}

	path := cfg.SessionPath()
	if path == "" {
		return errors.New("telegram.session_file is empty")
	}

	user, err := mtproto.Login(cmd.Context(), mtproto.LoginOptions{
		AppID:       appID,
		AppHash:     cfg.Telegram.APIHash,
		Phone:       cfg.Telegram.Phone,
		SessionPath: path,
		Prompter:    mtproto.NewLinePrompter(os.Stdin, os.Stdout),
	})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	name := user.Username
	if name == "" {
		name = user.FirstName
	}
	fmt.Printf("Signed in as %s. Session saved to %s\n", name, path)
	fmt.Printf("The session is picked up from that file; to move it elsewhere put its contents in %s.\n", cfg.Telegram.SessionEnv)
	return nil
}
