package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Rrens/redbot/internal/domain"
	"github.com/Rrens/redbot/internal/service"
)

func NewQACommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qa",
		Short: "Manage a bot's Q&A tree",
	}

	var (
		bot, parent      string
		question, answer string
		order            int
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a question node",
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			botID, err := uuid.Parse(bot)
			if err != nil {
				return fmt.Errorf("invalid bot id: %w", err)
			}
			parentID, err := optionalID(parent)
			if err != nil {
				return err
			}
			node, err := service.NewQAService(a.store.QA).Add(cmd.Context(), domain.QANodeCreate{
				BotID:    botID,
				ParentID: parentID,
				Question: question,
				Answer:   answer,
				Order:    order,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), node)
		}),
	}
	add.Flags().StringVar(&bot, "bot", "", "bot id")
	add.Flags().StringVar(&parent, "parent", "", "parent node id")
	add.Flags().StringVar(&question, "question", "", "question text")
	add.Flags().StringVar(&answer, "answer", "", "answer text")
	add.Flags().IntVar(&order, "order", 0, "position among siblings")
	_ = add.MarkFlagRequired("bot")
	_ = add.MarkFlagRequired("question")

	var (
		moveParent string
		moveOrder  int
	)
	move := &cobra.Command{
		Use:   "move <node-id>",
		Short: "Re-parent or re-order a node (omit --parent for the root)",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}
			parentID, err := optionalID(moveParent)
			if err != nil {
				return err
			}
			return service.NewQAService(a.store.QA).Move(cmd.Context(), id, parentID, moveOrder)
		}),
	}
	move.Flags().StringVar(&moveParent, "parent", "", "new parent node id")
	move.Flags().IntVar(&moveOrder, "order", 0, "position among siblings")

	tree := &cobra.Command{
		Use:   "tree <bot-id>",
		Short: "Print a bot's Q&A tree",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}
			nodes, err := service.NewQAService(a.store.QA).Tree(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), nodes)
		}),
	}

	cmd.AddCommand(add, move, tree)
	return cmd
}

func optionalID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return &id, nil
}
