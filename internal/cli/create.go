package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/tgcreative/internal/creative"
	"github.com/ppiankov/tgcreative/internal/delivery"
	"github.com/ppiankov/tgcreative/internal/digest"
)

var (
	createWithImage bool
	createReuse     bool
	createSendTo    string
	createImageOut  string
)

var createCmd = &cobra.Command{
	Use:   "create <link>",
	Short: "Analyze a channel and write a creative in its style",
	Args:  cobra.ExactArgs(1),
	RunE:  createAction,
}

func init() {
	createCmd.Flags().BoolVar(&createWithImage, "with-image", false, "also generate a picture")
	createCmd.Flags().BoolVar(&createReuse, "reuse-post-image", false, "attach the most engaging post picture instead of generating one")
	createCmd.Flags().StringVar(&createSendTo, "send-to", "", "deliver the creative to a chat id or @username")
	createCmd.Flags().StringVar(&createImageOut, "image-out", "", "write the picture to this file")
}

func createAction(cmd *cobra.Command, args []string) error {
	formatter, err := newFormatter()
	if err != nil {
		return err
	}
	a, err := loadApp()
	if err != nil {
		return err
	}
	if err := a.requireStudio(); err != nil {
		return err
	}

	var to delivery.Recipient
	if createSendTo != "" {
		if err := a.requireBot(); err != nil {
			return err
		}
		if to, err = delivery.ParseRecipient(createSendTo); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	d, err := a.pipeline.Run(ctx, args[0])
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	res, err := a.studio.Create(ctx, d, creative.Options{
		WithImage:      createWithImage,
		ReusePostImage: createReuse,
	})
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}

	if err := formatter.Format(os.Stdout, digest.Input{Digest: d, Creative: res}); err != nil {
		return err
	}

	if createImageOut != "" && res.HasImage() {
		if err := os.WriteFile(createImageOut, res.Image, 0o644); err != nil {
			return fmt.Errorf("write image: %w", err)
		}
		fmt.Printf("Image written to %s\n", createImageOut)
	}

	if createSendTo != "" {
		if err := a.bot.Send(ctx, to, res.Text, res.Image); err != nil {
			return err
		}
		fmt.Printf("Sent to %s\n", to)
	}
	return nil
}
