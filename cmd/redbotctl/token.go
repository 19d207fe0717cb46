package main

import (
	"github.com/spf13/cobra"

	"github.com/Rrens/redbot/internal/security"
	"github.com/Rrens/redbot/internal/service"
)

func NewTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue access tokens",
	}

	agent := &cobra.Command{
		Use:   "agent <public-key>",
		Short: "Issue a live-chat agent token for a bot",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			tokens := security.NewTokenManager(
				a.cfg.Auth.SecretKey,
				a.cfg.Auth.TokenTTL,
				a.cfg.Auth.NotBeforeSkew,
				a.cfg.TokenLeeway(),
				security.WithAgentTTL(a.cfg.Auth.AgentTokenTTL),
			)
			issued, err := service.NewAuthService(a.botRepo(), tokens).IssueAgent(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), issued)
		}),
	}

	cmd.AddCommand(agent)
	return cmd
}
