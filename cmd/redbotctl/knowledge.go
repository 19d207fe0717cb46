package main

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Rrens/redbot/internal/domain"
	"github.com/Rrens/redbot/internal/retrieval"
	"github.com/Rrens/redbot/internal/service"
)

func NewKnowledgeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "knowledge",
		Short: "Manage the sources a bot answers from",
	}

	var bot, title, kind, file string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add and index a knowledge source (reads stdin when --file is -)",
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			botID, err := uuid.Parse(bot)
			if err != nil {
				return fmt.Errorf("invalid bot id: %w", err)
			}
			content, err := readContent(cmd, file)
			if err != nil {
				return err
			}
			svc, err := knowledgeService(cmd, a)
			if err != nil {
				return err
			}

			source, err := svc.Add(cmd.Context(), domain.KnowledgeSourceCreate{
				BotID:   botID,
				Title:   title,
				Type:    domain.SourceType(kind),
				Content: content,
			})
			if source != nil {
				if perr := printJSON(cmd.OutOrStdout(), source); perr != nil {
					return perr
				}
			}
			return err
		}),
	}
	add.Flags().StringVar(&bot, "bot", "", "bot id")
	add.Flags().StringVar(&title, "title", "", "source title")
	add.Flags().StringVar(&kind, "type", string(domain.SourceText), "TEXT or JSON")
	add.Flags().StringVar(&file, "file", "-", "file to read")
	_ = add.MarkFlagRequired("bot")
	_ = add.MarkFlagRequired("title")

	var reindexFile string
	reindex := &cobra.Command{
		Use:   "reindex <source-id>",
		Short: "Replace a source's content and rebuild its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}
			content, err := readContent(cmd, reindexFile)
			if err != nil {
				return err
			}
			svc, err := knowledgeService(cmd, a)
			if err != nil {
				return err
			}
			source, err := svc.Reindex(cmd.Context(), id, content)
			if source != nil {
				if perr := printJSON(cmd.OutOrStdout(), source); perr != nil {
					return perr
				}
			}
			return err
		}),
	}
	reindex.Flags().StringVar(&reindexFile, "file", "-", "file to read")

	del := &cobra.Command{
		Use:   "delete <source-id>",
		Short: "Delete a source and its indexed chunks",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}
			svc, err := knowledgeService(cmd, a)
			if err != nil {
				return err
			}
			return svc.Delete(cmd.Context(), id)
		}),
	}

	cmd.AddCommand(add, reindex, del)
	return cmd
}

func readContent(cmd *cobra.Command, file string) (string, error) {
	var (
		raw []byte
		err error
	)
	if file == "" || file == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(file)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read content: %w", err)
	}
	return string(raw), nil
}

// knowledgeService connects the embedder and vector index for the app
func knowledgeService(cmd *cobra.Command, a *app) (*service.KnowledgeService, error) {
	embedder, err := retrieval.NewEmbedder(cmd.Context(), a.cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	if c, ok := embedder.(io.Closer); ok {
		a.closers = append(a.closers, c.Close)
	}
	pool := retrieval.NewPool(retrieval.QdrantFactory(a.cfg.Vector.APIKey))
	a.closers = append(a.closers, func() error { pool.CloseAll(); return nil })

	indexer := retrieval.NewIndexer(a.store.Knowledge, pool, embedder, domain.IndexLocation{
		Host:   a.cfg.Vector.Host,
		Port:   a.cfg.Vector.Port,
		UseTLS: a.cfg.Vector.UseTLS,
	}, a.cfg.Vector.ChunkWords)
	return service.NewKnowledgeService(a.store.Knowledge, a.botRepo(), indexer), nil
}
