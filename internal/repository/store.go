package repository

import (
	"context"
	"fmt"

	"github.com/Rrens/redbot/internal/config"
	"github.com/Rrens/redbot/internal/domain"
	"github.com/Rrens/redbot/internal/repository/postgres"
	"github.com/Rrens/redbot/internal/repository/sqlite"
)

// Store groups the repositories of one backing database
type Store struct {
	Workspaces    domain.WorkspaceRepository
	Plans         domain.PlanRepository
	Bots          domain.BotRepository
	Conversations domain.ConversationRepository
	Knowledge     domain.KnowledgeRepository
	QA            domain.QARepository
	Enquiries     domain.EnquiryRepository

	ping  func(ctx context.Context) error
	close func() error
}

// Ping verifies database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases the database
func (s *Store) Close() error {
	return s.close()
}

// Open connects to the configured database driver
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres, "":
		db, err := postgres.NewDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewPostgresStore(db), nil
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return NewSQLiteStore(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// NewPostgresStore wires the Postgres repositories
func NewPostgresStore(db *postgres.DB) *Store {
	return &Store{
		Workspaces:    postgres.NewWorkspaceRepository(db),
		Plans:         postgres.NewPlanRepository(db),
		Bots:          postgres.NewBotRepository(db),
		Conversations: postgres.NewConversationRepository(db),
		Knowledge:     postgres.NewKnowledgeRepository(db),
		QA:            postgres.NewQARepository(db),
		Enquiries:     postgres.NewEnquiryRepository(db),
		ping:          db.Ping,
		close: func() error {
			db.Close()
			return nil
		},
	}
}

// NewSQLiteStore wires the SQLite repositories
func NewSQLiteStore(db *sqlite.DB) *Store {
	return &Store{
		Workspaces:    sqlite.NewWorkspaceRepository(db),
		Plans:         sqlite.NewPlanRepository(db),
		Bots:          sqlite.NewBotRepository(db),
		Conversations: sqlite.NewConversationRepository(db),
		Knowledge:     sqlite.NewKnowledgeRepository(db),
		QA:            sqlite.NewQARepository(db),
		Enquiries:     sqlite.NewEnquiryRepository(db),
		ping:          db.Ping,
		close:         db.Close,
	}
}
