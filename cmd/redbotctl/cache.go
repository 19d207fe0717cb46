package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the shared bot lookup cache",
	}

	flush := &cobra.Command{
		Use:   "flush",
		Short: "Drop every cached bot so servers reload them from the store",
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			if a.bots == nil {
				return errors.New("redis is not enabled or not reachable")
			}
			n, err := a.bots.FlushAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d cached bot entries removed\n", n)
			return nil
		}),
	}

	cmd.AddCommand(flush)
	return cmd
}
