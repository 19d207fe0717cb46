package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Rrens/redbot/internal/domain"
)

func NewPlanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage workspace plans",
	}

	var (
		workspace, bundle, term, start, end string
		active                              bool
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a plan; an active plan replaces the current one",
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			wsID, err := uuid.Parse(workspace)
			if err != nil {
				return fmt.Errorf("invalid workspace id: %w", err)
			}
			input := domain.PlanCreate{
				WorkspaceID: wsID,
				Bundle:      domain.Bundle(strings.ToUpper(bundle)),
				Term:        domain.Term(strings.ToUpper(term)),
				Active:      active,
			}
			if start != "" {
				if input.StartAt, err = time.Parse(time.RFC3339, start); err != nil {
					return fmt.Errorf("invalid --start: %w", err)
				}
			}
			if end != "" {
				t, err := time.Parse(time.RFC3339, end)
				if err != nil {
					return fmt.Errorf("invalid --end: %w", err)
				}
				input.EndAt = &t
			}

			plan, err := a.entitlements.CreatePlan(cmd.Context(), input)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), plan)
		}),
	}
	create.Flags().StringVar(&workspace, "workspace", "", "workspace id")
	create.Flags().StringVar(&bundle, "bundle", "", "FULL, LIVE_QA, AI_ONLY, LIVE_ONLY or QA_ONLY")
	create.Flags().StringVar(&term, "term", string(domain.TermLifetime), "LIFETIME or LIMITED")
	create.Flags().StringVar(&start, "start", "", "start time, RFC 3339 (default now)")
	create.Flags().StringVar(&end, "end", "", "end time, RFC 3339 (LIMITED plans)")
	create.Flags().BoolVar(&active, "active", true, "activate the plan")
	_ = create.MarkFlagRequired("workspace")
	_ = create.MarkFlagRequired("bundle")

	activate := &cobra.Command{
		Use:   "activate <plan-id>",
		Short: "Make a plan the workspace's only active plan",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}
			plan, err := a.entitlements.ActivatePlan(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), plan)
		}),
	}

	deactivate := &cobra.Command{
		Use:   "deactivate <plan-id>",
		Short: "Clear a plan's active flag",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}
			return a.entitlements.DeactivatePlan(cmd.Context(), id)
		}),
	}

	list := &cobra.Command{
		Use:   "list <workspace-id>",
		Short: "List a workspace's plans and its current entitlement",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}
			plans, err := a.entitlements.ListPlans(cmd.Context(), id)
			if err != nil {
				return err
			}
			snap, err := a.entitlements.Snapshot(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"plans":        plans,
				"current":      snap.Plan,
				"operational":  snap.Operational(),
				"capabilities": snap.Capabilities,
			})
		}),
	}

	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Deactivate LIMITED plans whose window has closed",
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			n, err := a.entitlements.SweepExpired(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d plan(s) deactivated\n", n)
			return nil
		}),
	}

	cmd.AddCommand(create, activate, deactivate, list, sweep)
	return cmd
}
