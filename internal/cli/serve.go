package cli

import (
	"github.com/spf13/cobra"

	"github.com/returnsdesk/oem-returns/internal/config"
	"github.com/returnsdesk/oem-returns/internal/observability"
	"github.com/returnsdesk/oem-returns/internal/server"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the returns API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := observability.NewLogger(cfg.Logger)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			return server.Run(cmd.Context(), cfg, logger)
		},
	}
}
