// Package cli provides the oemctl command-line interface.
package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/returnsdesk/oem-returns/internal/client"
)

// Version is set at build time.
var Version = "dev"

type globalOptions struct {
	apiURL  string
	token   string
	timeout time.Duration
}

func (o *globalOptions) client() *client.Client {
	return client.New(o.apiURL, client.WithToken(o.token), client.WithTimeout(o.timeout))
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:   "oemctl",
		Short: "Browse and edit OEM return records",
		Long: `oemctl lists OEM return records as a table and edits their status,
OM update notes and designated OM agent. Edits send only the fields that
changed.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api-url", envOr("OEMCTL_API_URL", "http://127.0.0.1:8080"), "Base URL of the returns API")
	flags.StringVar(&opts.token, "token", os.Getenv("OEMCTL_TOKEN"), "Bearer token used for edits")
	flags.DurationVar(&opts.timeout, "timeout", 15*time.Second, "Request timeout")

	rootCmd.AddCommand(
		newListCommand(opts),
		newEditCommand(opts),
		newHistoryCommand(opts),
		newTokenCommand(),
		newServeCommand(),
	)
	return rootCmd
}

func envOr(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
