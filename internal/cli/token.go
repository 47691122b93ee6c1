package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/returnsdesk/oem-returns/internal/auth"
	"github.com/returnsdesk/oem-returns/internal/config"
	"github.com/returnsdesk/oem-returns/internal/domain"
)

func newTokenCommand() *cobra.Command {
	agent := domain.Agent{}
	var role string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with AUTH_JWT_SECRET",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			agent.Role = domain.AgentRole(role)
			tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
			token, expiresAt, err := tokens.GenerateToken(agent)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.Format("2006-01-02 15:04 MST"))
			return nil
		},
	}
	cmd.Flags().StringVar(&agent.ID, "agent-id", "", "Agent identifier (token subject)")
	cmd.Flags().StringVar(&agent.Name, "name", "", "Agent display name recorded in history")
	cmd.Flags().StringVar(&role, "role", string(domain.AgentRoleAgent), "Agent role")
	_ = cmd.MarkFlagRequired("agent-id")
	return cmd
}
