package main

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Rrens/redbot/internal/domain"
	"github.com/Rrens/redbot/internal/service"
)

func NewWorkspaceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Manage workspaces",
	}

	var input domain.WorkspaceCreate
	var mode string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a workspace (unapproved)",
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			if mode != "" {
				m, ok := domain.ParseMode(mode)
				if !ok {
					return domain.ErrInvalidMode
				}
				input.DefaultBotMode = &m
			}
			ws, err := service.NewWorkspaceService(a.store.Workspaces).Create(cmd.Context(), input)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ws)
		}),
	}
	create.Flags().StringVar(&input.Name, "name", "", "workspace name")
	create.Flags().BoolVar(&input.EnableEnquiryForm, "enquiry-form", false, "enable the enquiry form")
	create.Flags().StringVar(&input.WhatsAppNumber, "whatsapp", "", "WhatsApp contact number")
	create.Flags().StringVar(&mode, "default-mode", "", "default bot mode (AI, LIVE or QA)")
	_ = create.MarkFlagRequired("name")

	var revoke bool
	approve := &cobra.Command{
		Use:   "approve <workspace-id>",
		Short: "Approve a workspace (or revoke approval)",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}
			ws, err := service.NewWorkspaceService(a.store.Workspaces).SetApproved(cmd.Context(), id, !revoke)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ws)
		}),
	}
	approve.Flags().BoolVar(&revoke, "revoke", false, "withdraw approval")

	var update domain.WorkspaceUpdate
	var (
		footer, defaultMode, whatsapp string
		enquiry, reset, whatsappOn    bool
	)
	set := &cobra.Command{
		Use:   "set <workspace-id>",
		Short: "Change workspace settings",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("footer") {
				update.BotFooter = &footer
			}
			if flags.Changed("default-mode") {
				update.DefaultBotMode = &defaultMode
			}
			if flags.Changed("enquiry-form") {
				update.EnableEnquiryForm = &enquiry
			}
			if flags.Changed("reset-button") {
				update.EnableResetButton = &reset
			}
			if flags.Changed("whatsapp") {
				update.WhatsAppNumber = &whatsapp
			}
			if flags.Changed("whatsapp-enabled") {
				update.WhatsAppEnabled = &whatsappOn
			}
			ws, err := service.NewWorkspaceService(a.store.Workspaces).Update(cmd.Context(), id, update)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ws)
		}),
	}
	set.Flags().StringVar(&footer, "footer", "", "widget footer text")
	set.Flags().StringVar(&defaultMode, "default-mode", "", "default bot mode (AI, LIVE, QA or NONE)")
	set.Flags().BoolVar(&enquiry, "enquiry-form", false, "enable the enquiry form")
	set.Flags().BoolVar(&reset, "reset-button", true, "show the chat reset button")
	set.Flags().StringVar(&whatsapp, "whatsapp", "", "WhatsApp contact number")
	set.Flags().BoolVar(&whatsappOn, "whatsapp-enabled", false, "offer the WhatsApp contact link")

	cmd.AddCommand(create, approve, set)
	return cmd
}
