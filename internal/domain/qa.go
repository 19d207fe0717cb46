package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// QANode is one question/answer entry in a bot's Q&A tree
type QANode struct {
	ID        uuid.UUID  `json:"id"`
	BotID     uuid.UUID  `json:"bot_id"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	Question  string     `json:"question"`
	Answer    string     `json:"answer,omitempty"`
	Order     int        `json:"order"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// QANodeCreate represents Q&A node creation data
type QANodeCreate struct {
	BotID    uuid.UUID  `json:"bot_id" validate:"required"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
	Question string     `json:"question" validate:"required,max=500"`
	Answer   string     `json:"answer,omitempty"`
	Order    int        `json:"order" validate:"min=0"`
}

// QATreeNode is a QANode with its resolved children
type QATreeNode struct {
	ID       uuid.UUID     `json:"id"`
	Question string        `json:"question"`
	Answer   string        `json:"answer,omitempty"`
	Children []*QATreeNode `json:"children"`
}

// WouldCycle reports whether setting node's parent to parent would make
// node its own ancestor. nodes must contain every node of the bot.
func WouldCycle(nodes []QANode, node uuid.UUID, parent *uuid.UUID) bool {
	if parent == nil {
		return false
	}
	parents := make(map[uuid.UUID]*uuid.UUID, len(nodes))
	for i := range nodes {
		parents[nodes[i].ID] = nodes[i].ParentID
	}
	seen := make(map[uuid.UUID]bool)
	for cur := parent; cur != nil; cur = parents[*cur] {
		if *cur == node {
			return true
		}
		if seen[*cur] {
			return true
		}
		seen[*cur] = true
	}
	return false
}

// CheckPlacement validates moving node id under parent, given every node
// of the bot. A missing node or a parent outside the bot is ErrNotFound;
// a parent that is the node or one of its descendants is ErrQACycle.
func CheckPlacement(nodes []QANode, id uuid.UUID, parent *uuid.UUID) error {
	found := false
	parentFound := parent == nil
	for i := range nodes {
		if nodes[i].ID == id {
			found = true
		}
		if parent != nil && nodes[i].ID == *parent {
			parentFound = true
		}
	}
	if !found {
		return ErrNotFound
	}
	if !parentFound {
		return fmt.Errorf("parent node: %w", ErrNotFound)
	}
	if WouldCycle(nodes, id, parent) {
		return ErrQACycle
	}
	return nil
}

// BuildQATree nests nodes under their parents ordered by (Order, CreatedAt).
// Nodes whose parent is missing are treated as roots.
func BuildQATree(nodes []QANode) []*QATreeNode {
	sorted := make([]QANode, len(nodes))
	copy(sorted, nodes)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Order != sorted[j].Order {
			return sorted[i].Order < sorted[j].Order
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	index := make(map[uuid.UUID]*QATreeNode, len(sorted))
	for _, n := range sorted {
		index[n.ID] = &QATreeNode{ID: n.ID, Question: n.Question, Answer: n.Answer, Children: []*QATreeNode{}}
	}

	roots := []*QATreeNode{}
	for _, n := range sorted {
		tn := index[n.ID]
		if n.ParentID != nil {
			if p, ok := index[*n.ParentID]; ok {
				p.Children = append(p.Children, tn)
				continue
			}
		}
		roots = append(roots, tn)
	}
	return roots
}
