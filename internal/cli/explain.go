package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/tgcreative/internal/creative"
)

var explainCmd = &cobra.Command{
	Use:   "explain <link>",
	Short: "Show the engagement ranking and the context sent to the language model",
	Args:  cobra.ExactArgs(1),
	RunE:  explainAction,
}

func init() {
	rootCmd.AddCommand(explainCmd)
}

func explainAction(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	redactor, err := a.cfg.Redactor()
	if err != nil {
		return fmt.Errorf("compile redaction patterns: %w", err)
	}

	d, err := a.pipeline.Run(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	fmt.Printf("Channel @%s: %d posts, %d with media\n\n", d.Handle, len(d.Posts), d.MediaCount())

	ranked := creative.RankByEngagement(d.Posts)
	if len(ranked) > 0 {
		fmt.Println("Ranking (views + 2 × reactions):")
		for i, p := range ranked {
			fmt.Printf("  #%-2d %6d  = %d views + 2 × %d reactions  %s\n",
				i+1, creative.EngagementScore(p), p.Views, p.Reactions, p.Date.Format("2006-01-02 15:04"))
		}
		fmt.Println()
	}

	if redactor.Len() > 0 {
		fmt.Printf("Redaction: %d patterns applied\n\n", redactor.Len())
	}
	fmt.Println("Model context:")
	fmt.Println(creative.BuildContext(d, redactor))
	return nil
}
