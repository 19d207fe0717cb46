package main

import (
	"github.com/spf13/cobra"

	"github.com/Rrens/redbot/internal/llm/providers"
)

func NewProvidersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the AI providers a bot can use and their default models",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printJSON(cmd.OutOrStdout(), providers.NewRouter().GetProvidersInfo())
		},
	}
}
