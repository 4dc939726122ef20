package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/tgcreative/internal/digest"
)

var (
	outputFormat string
	noColor      bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <link>",
	Short: "Analyze a channel: title, description and recent posts",
	Args:  cobra.ExactArgs(1),
	RunE:  analyzeAction,
}

func init() {
	for _, c := range []*cobra.Command{analyzeCmd, createCmd} {
		c.Flags().StringVar(&outputFormat, "format", "terminal", "output format: terminal, json, markdown")
		c.Flags().BoolVar(&noColor, "no-color", false, "disable ANSI colors")
	}
}

func analyzeAction(cmd *cobra.Command, args []string) error {
	formatter, err := newFormatter()
	if err != nil {
		return err
	}
	a, err := loadApp()
	if err != nil {
		return err
	}

	d, err := a.pipeline.Run(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	return formatter.Format(os.Stdout, digest.Input{Digest: d})
}

func newFormatter() (digest.Formatter, error) {
	color := !noColor && isTerminal(os.Stdout)
	return digest.New(outputFormat, color)
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
