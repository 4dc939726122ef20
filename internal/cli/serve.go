package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/tgcreative/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  serveAction,
}

func serveAction(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	deps := server.Deps{Analyzer: a.pipeline}
	if a.studio != nil {
		deps.Studio = a.studio
		deps.Editor = a.studio.Generator()
	}
	if a.bot != nil {
		deps.Bot = a.bot
	}

	srv := server.New(server.Config{
		Addr:            a.cfg.Addr(),
		WebOrigin:       a.cfg.Server.WebOrigin,
		MaxBodyBytes:    a.cfg.Server.MaxBodyBytes,
		ShutdownTimeout: a.cfg.Server.ShutdownTimeout.Duration,
	}, deps, a.log)

	fmt.Printf("API: http://localhost%s\n", a.cfg.Addr())
	return srv.Run(cmd.Context())
}
