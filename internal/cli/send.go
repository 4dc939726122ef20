package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/tgcreative/internal/delivery"
)

var (
	sendTo       string
	sendText     string
	sendTextFile string
	sendImage    string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Deliver a creative (HTML text, optional picture) through the bot",
	RunE:  sendAction,
}

func init() {
	sendCmd.Flags().StringVar(&sendTo, "to", "", "recipient chat id or @username (required)")
	sendCmd.Flags().StringVar(&sendText, "text", "", "message text (Telegram HTML)")
	sendCmd.Flags().StringVar(&sendTextFile, "text-file", "", "read message text from a file")
	sendCmd.Flags().StringVar(&sendImage, "image", "", "picture file to attach")
}

func sendAction(cmd *cobra.Command, _ []string) error {
	to, err := delivery.ParseRecipient(sendTo)
	if err != nil {
		return err
	}
	text, err := readSendText()
	if err != nil {
		return err
	}
	var image []byte
	if sendImage != "" {
		if image, err = os.ReadFile(sendImage); err != nil {
			return fmt.Errorf("read image: %w", err)
		}
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	if err := a.requireBot(); err != nil {
		return err
	}
	if err := a.bot.Send(cmd.Context(), to, text, image); err != nil {
		return err
	}
	fmt.Printf("Sent to %s\n", to)
	return nil
}

func readSendText() (string, error) {
	text := sendText
	if sendTextFile != "" {
		if text != "" {
			return "", errors.New("use either --text or --text-file")
		}
		data, err := os.ReadFile(sendTextFile)
		if err != nil {
			return "", fmt.Errorf("read text file: %w", err)
		}
		text = string(data)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("message text is required (--text or --text-file)")
	}
	return text, nil
}
