package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Rrens/redbot/internal/domain"
	"github.com/Rrens/redbot/internal/service"
)

func NewBotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Manage bots",
	}

	var input domain.BotCreate
	var workspace, mode string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a bot in a workspace",
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			id, err := uuid.Parse(workspace)
			if err != nil {
				return fmt.Errorf("invalid workspace id: %w", err)
			}
			input.WorkspaceID = id
			if mode != "" {
				m, ok := domain.ParseMode(mode)
				if !ok {
					return domain.ErrInvalidMode
				}
				input.PreferredMode = m
			}

			bots := service.NewBotService(a.botRepo(), a.entitlements, a.cipher)
			bot, err := bots.Create(cmd.Context(), input)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), bot)
		}),
	}
	create.Flags().StringVar(&workspace, "workspace", "", "workspace id")
	create.Flags().StringVar(&input.Name, "name", "", "display name")
	create.Flags().StringVar(&mode, "mode", "", "preferred mode: AI, LIVE or QA")
	create.Flags().StringVar(&input.AIProvider, "provider", "", "AI provider")
	create.Flags().StringVar(&input.AIModel, "model", "", "AI model")
	create.Flags().StringVar(&input.AIKey, "api-key", "", "AI provider API key, stored encrypted")
	create.Flags().StringVar(&input.AllowedDomains, "domains", "", "comma separated allowed domains")
	create.Flags().StringVar(&input.Appearance.WelcomeText, "welcome", "", "widget welcome text")
	create.Flags().StringVar(&input.Appearance.PrimaryColor, "color", "", "widget primary color")
	_ = create.MarkFlagRequired("workspace")

	show := &cobra.Command{
		Use:   "show <bot-id|public-key>",
		Short: "Show a bot",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			bots := service.NewBotService(a.botRepo(), a.entitlements, a.cipher)
			var (
				bot *domain.Bot
				err error
			)
			if id, perr := uuid.Parse(args[0]); perr == nil {
				bot, err = bots.GetByID(cmd.Context(), id)
			} else {
				bot, err = bots.GetByPublicKey(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), bot)
		}),
	}

	list := &cobra.Command{
		Use:   "list <workspace-id>",
		Short: "List a workspace's bots",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}
			bots, err := service.NewBotService(a.botRepo(), a.entitlements, a.cipher).ListByWorkspace(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), bots)
		}),
	}

	var (
		name, setMode, provider, model, apiKey, domains string
		enabled                                        bool
	)
	set := &cobra.Command{
		Use:   "set <bot-id>",
		Short: "Change a bot's settings",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}
			var update domain.BotUpdate
			flags := cmd.Flags()
			if flags.Changed("name") {
				update.Name = &name
			}
			if flags.Changed("mode") {
				m, ok := domain.ParseMode(setMode)
				if !ok {
					return domain.ErrInvalidMode
				}
				update.PreferredMode = &m
			}
			if flags.Changed("provider") {
				update.AIProvider = &provider
			}
			if flags.Changed("model") {
				update.AIModel = &model
			}
			if flags.Changed("api-key") {
				update.AIKey = &apiKey
			}
			if flags.Changed("domains") {
				update.AllowedDomains = &domains
			}
			if flags.Changed("enabled") {
				update.Enabled = &enabled
			}

			bot, err := service.NewBotService(a.botRepo(), a.entitlements, a.cipher).Update(cmd.Context(), id, update)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), bot)
		}),
	}
	set.Flags().StringVar(&name, "name", "", "display name")
	set.Flags().StringVar(&setMode, "mode", "", "preferred mode: AI, LIVE or QA")
	set.Flags().StringVar(&provider, "provider", "", "AI provider")
	set.Flags().StringVar(&model, "model", "", "AI model")
	set.Flags().StringVar(&apiKey, "api-key", "", "AI provider API key")
	set.Flags().StringVar(&domains, "domains", "", "comma separated allowed domains")
	set.Flags().BoolVar(&enabled, "enabled", true, "serve the bot")

	cmd.AddCommand(create, show, list, set)
	return cmd
}
