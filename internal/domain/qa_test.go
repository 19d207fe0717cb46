package domain_test

import (
	"testing"
	"time"

	"github.com/Rrens/redbot/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWouldCycle(t *testing.T) {
	root := uuid.New()
	child := uuid.New()
	grandchild := uuid.New()
	other := uuid.New()

	nodes := []domain.QANode{
		{ID: root},
		{ID: child, ParentID: &root},
		{ID: grandchild, ParentID: &child},
		{ID: other},
	}

	assert.True(t, domain.WouldCycle(nodes, root, &grandchild), "parent is a descendant")
	assert.True(t, domain.WouldCycle(nodes, child, &child), "parent is itself")
	assert.False(t, domain.WouldCycle(nodes, other, &grandchild))
	assert.False(t, domain.WouldCycle(nodes, grandchild, &root))
	assert.False(t, domain.WouldCycle(nodes, child, nil))
}

func TestCheckPlacement(t *testing.T) {
	root := uuid.New()
	child := uuid.New()
	leaf := uuid.New()
	nodes := []domain.QANode{
		{ID: root},
		{ID: child, ParentID: &root},
		{ID: leaf, ParentID: &child},
	}
	foreign := uuid.New()

	require.NoError(t, domain.CheckPlacement(nodes, leaf, &root))
	require.NoError(t, domain.CheckPlacement(nodes, child, nil))
	assert.ErrorIs(t, domain.CheckPlacement(nodes, root, &leaf), domain.ErrQACycle)
	assert.ErrorIs(t, domain.CheckPlacement(nodes, child, &foreign), domain.ErrNotFound)
	assert.ErrorIs(t, domain.CheckPlacement(nodes, uuid.New(), nil), domain.ErrNotFound)
}

func TestBuildQATree(t *testing.T) {
	base := time.Now()
	root := uuid.New()
	a := uuid.New()
	b := uuid.New()
	orphanParent := uuid.New()

	nodes := []domain.QANode{
		{ID: b, ParentID: &root, Question: "B", Order: 2, CreatedAt: base},
		{ID: a, ParentID: &root, Question: "A", Order: 1, CreatedAt: base.Add(time.Second)},
		{ID: root, Question: "Root", CreatedAt: base},
		{ID: uuid.New(), ParentID: &orphanParent, Question: "Orphan", Order: 5, CreatedAt: base},
	}

	tree := domain.BuildQATree(nodes)
	require.Len(t, tree, 2)
	assert.Equal(t, "Root", tree[0].Question)
	assert.Equal(t, "Orphan", tree[1].Question)

	require.Len(t, tree[0].Children, 2)
	assert.Equal(t, "A", tree[0].Children[0].Question)
	assert.Equal(t, "B", tree[0].Children[1].Question)
}
