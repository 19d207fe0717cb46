package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/Rrens/redbot/internal/domain"
)

// MockQARepository mocks the QARepository interface
type MockQARepository struct {
	mock.Mock
}

func (m *MockQARepository) Create(ctx context.Context, node *domain.QANode) error {
	args := m.Called(ctx, node)
	return args.Error(0)
}

func (m *MockQARepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.QANode, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QANode), args.Error(1)
}

func (m *MockQARepository) ListByBot(ctx context.Context, botID uuid.UUID) ([]domain.QANode, error) {
	args := m.Called(ctx, botID)
	return args.Get(0).([]domain.QANode), args.Error(1)
}

func (m *MockQARepository) Move(ctx context.Context, id uuid.UUID, parentID *uuid.UUID, order int) error {
	args := m.Called(ctx, id, parentID, order)
	return args.Error(0)
}

// MockEnquiryRepository mocks the EnquiryRepository interface
type MockEnquiryRepository struct {
	mock.Mock
}

func (m *MockEnquiryRepository) Create(ctx context.Context, enquiry *domain.Enquiry) error {
	args := m.Called(ctx, enquiry)
	return args.Error(0)
}

// MockIndexer mocks the Indexer interface
type MockIndexer struct {
	mock.Mock
}

func (m *MockIndexer) IndexSource(ctx context.Context, source *domain.KnowledgeSource) error {
	args := m.Called(ctx, source)
	return args.Error(0)
}

func (m *MockIndexer) DeleteSource(ctx context.Context, sourceID uuid.UUID) error {
	args := m.Called(ctx, sourceID)
	return args.Error(0)
}
