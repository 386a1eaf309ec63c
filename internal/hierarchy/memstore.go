package hierarchy

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is the in-memory Store adapter. It backs tests and the CLI's
// ephemeral mode and is safe for concurrent use.
type MemStore struct {
	tenantID string
	mu       sync.RWMutex
	nodes    map[string]*AgentNode // node id -> node
	byOwner  map[string]string     // owner id -> node id
}

// NewMemStore creates an empty in-memory store scoped to one tenant.
func NewMemStore(tenantID string) *MemStore {
	return &MemStore{
		tenantID: tenantID,
		nodes:    make(map[string]*AgentNode),
		byOwner:  make(map[string]string),
	}
}

func (s *MemStore) All(ctx context.Context) ([]AgentNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AgentNode, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *MemStore) ByOwner(ctx context.Context, ownerID string) (AgentNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byOwner[ownerID]
	if !ok {
		return AgentNode{}, fmt.Errorf("owner %s: %w", ownerID, ErrNotFound)
	}
	return *s.nodes[id], nil
}

func (s *MemStore) ByID(ctx context.Context, nodeID string) (AgentNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[nodeID]
	if !ok {
		return AgentNode{}, fmt.Errorf("node %s: %w", nodeID, ErrNotFound)
	}
	return *n, nil
}

func (s *MemStore) Subtree(ctx context.Context, prefix string) ([]AgentNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []AgentNode
	for _, n := range s.nodes {
		if HasPathPrefix(n.Path, prefix) {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *MemStore) InsertRoot(ctx context.Context, ownerID string, attrs Attributes) (AgentNode, error) {
	seg, err := EncodeSegment(ownerID)
	if err != nil {
		return AgentNode{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.byOwner[ownerID]; dup {
		return AgentNode{}, fmt.Errorf("owner %s: %w", ownerID, ErrDuplicateOwner)
	}
	n := s.newNode(ownerID, "", seg, 0, attrs)
	s.nodes[n.ID] = n
	s.byOwner[ownerID] = n.ID
	return *n, nil
}

func (s *MemStore) InsertUnder(ctx context.Context, ownerID, parentNodeID string, attrs Attributes) (AgentNode, error) {
	seg, err := EncodeSegment(ownerID)
	if err != nil {
		return AgentNode{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	parent, ok := s.nodes[parentNodeID]
	if !ok {
		return AgentNode{}, fmt.Errorf("parent %s: %w", parentNodeID, ErrParentNotFound)
	}
	if _, dup := s.byOwner[ownerID]; dup {
		return AgentNode{}, fmt.Errorf("owner %s: %w", ownerID, ErrDuplicateOwner)
	}
	n := s.newNode(ownerID, parent.ID, AppendSegment(parent.Path, seg), parent.Depth+1, attrs)
	s.nodes[n.ID] = n
	s.byOwner[ownerID] = n.ID
	return *n, nil
}

func (s *MemStore) UpdateAttributes(ctx context.Context, nodeID string, upd AttributeUpdate) (AgentNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[nodeID]
	if !ok {
		return AgentNode{}, fmt.Errorf("node %s: %w", nodeID, ErrNotFound)
	}
	applyUpdate(n, upd)
	n.UpdatedAt = time.Now()
	return *n, nil
}

func (s *MemStore) CommitMove(ctx context.Context, move SubtreeMove) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Validate the whole batch before touching anything so a bad rewrite
	// cannot leave a partial move behind.
	if _, ok := s.nodes[move.NodeID]; !ok {
		return fmt.Errorf("node %s: %w", move.NodeID, ErrNotFound)
	}
	if _, ok := s.nodes[move.NewParentID]; !ok {
		return fmt.Errorf("parent %s: %w", move.NewParentID, ErrParentNotFound)
	}
	for _, rw := range move.Rewrites {
		if _, ok := s.nodes[rw.NodeID]; !ok {
			return fmt.Errorf("node %s: %w", rw.NodeID, ErrNotFound)
		}
	}
	now := time.Now()
	for _, rw := range move.Rewrites {
		n := s.nodes[rw.NodeID]
		n.Path = rw.NewPath
		n.Depth = rw.NewDepth
		n.UpdatedAt = now
	}
	s.nodes[move.NodeID].ParentID = move.NewParentID
	return nil
}

func (s *MemStore) Close() error { return nil }

func (s *MemStore) newNode(ownerID, parentID, path string, depth int, attrs Attributes) *AgentNode {
	now := time.Now()
	if attrs.JoinedAt.IsZero() {
		attrs.JoinedAt = now
	}
	return &AgentNode{
		ID:        uuid.NewString(),
		TenantID:  s.tenantID,
		OwnerID:   ownerID,
		ParentID:  parentID,
		Path:      path,
		Depth:     depth,
		Status:    StatusActive,
		Attrs:     attrs,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func applyUpdate(n *AgentNode, upd AttributeUpdate) {
	if upd.Status != nil {
		n.Status = *upd.Status
	}
	if upd.Tier != nil {
		n.Tier = *upd.Tier
	}
	if upd.MonthlyGoal != nil {
		n.Attrs.MonthlyGoal = *upd.MonthlyGoal
	}
	if upd.YTDPremium != nil {
		n.Attrs.YTDPremium = *upd.YTDPremium
	}
	if upd.LastActivityAt != nil {
		n.Attrs.LastActivityAt = upd.LastActivityAt
	}
	if upd.LastLoginAt != nil {
		n.Attrs.LastLoginAt = upd.LastLoginAt
	}
	if upd.VerificationComplete != nil {
		n.Attrs.VerificationComplete = *upd.VerificationComplete
	}
	if upd.ContractsPending != nil {
		n.Attrs.ContractsPending = *upd.ContractsPending
	}
	if upd.ResidentLicenseExpiry != nil {
		n.Attrs.ResidentLicenseExpiry = upd.ResidentLicenseExpiry
	}
	if upd.TotalLeadSpend != nil {
		n.Attrs.TotalLeadSpend = *upd.TotalLeadSpend
	}
	if upd.LastBusinessDate != nil {
		n.Attrs.LastBusinessDate = upd.LastBusinessDate
	}
}
