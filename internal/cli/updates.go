package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var updatesCmd = &cobra.Command{
	Use:   "updates",
	Short: "List chats that recently wrote to the bot (to find a chat id)",
	RunE:  updatesAction,
}

func updatesAction(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	if err := a.requireBot(); err != nil {
		return err
	}

	chats, err := a.bot.Updates(cmd.Context())
	if err != nil {
		return err
	}
	if len(chats) == 0 {
		fmt.Println("No chats yet. Send /start to the bot and try again.")
		return nil
	}
	for _, c := range chats {
		if c.Username != "" {
			fmt.Printf("%d\t@%s\n", c.ChatID, c.Username)
		} else {
			fmt.Printf("%d\n", c.ChatID)
		}
	}
	return nil
}
