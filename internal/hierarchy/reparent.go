package hierarchy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultMoveLockTimeout bounds how long a move waits for the structural
// lock before giving up with ErrBusy.
const DefaultMoveLockTimeout = 5 * time.Second

// Mover performs subtree reparenting. Structural writes for a tenant are
// serialized behind a single mutex: the cycle check and the subtree rewrite
// are only valid if no other structural change lands between them. Member
// inserts take the same lock (via acquire/release), since a node created
// under the moving subtree mid-move would keep its stale path prefix. Reads
// are not blocked; the store's atomic commit keeps them from ever seeing a
// half rewritten subtree.
type Mover struct {
	store       Store
	notifier    *Notifier
	tenantID    string
	lockTimeout time.Duration
	mu          sync.Mutex
}

// NewMover creates a mover over the given store. A non-positive lockTimeout
// falls back to DefaultMoveLockTimeout.
func NewMover(store Store, notifier *Notifier, tenantID string, lockTimeout time.Duration) *Mover {
	if lockTimeout <= 0 {
		lockTimeout = DefaultMoveLockTimeout
	}
	return &Mover{store: store, notifier: notifier, tenantID: tenantID, lockTimeout: lockTimeout}
}

// Move reparents the node nodeID (and its whole subtree) under the node
// owned by newParentOwnerID. Either every node in the subtree is rewritten
// or nothing changes. On success a single SubtreeMoved event is published.
func (m *Mover) Move(ctx context.Context, nodeID, newParentOwnerID string) error {
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()

	moving, err := m.store.ByID(ctx, nodeID)
	if err != nil {
		return err
	}
	parent, err := m.store.ByOwner(ctx, newParentOwnerID)
	if err != nil {
		return err
	}
	if parent.ID == moving.ID {
		return fmt.Errorf("node %s: %w", nodeID, ErrSelfParent)
	}
	// The correctness-critical check: a parent inside the moving subtree
	// would detach it into a cycle. Materialized paths make this a prefix
	// test instead of a graph walk.
	if HasPathPrefix(parent.Path, moving.Path) {
		return fmt.Errorf("parent %s under node %s: %w", parent.ID, moving.ID, ErrDescendantCycle)
	}

	seg, err := EncodeSegment(moving.OwnerID)
	if err != nil {
		return err
	}
	oldPrefix := moving.Path
	newPrefix := AppendSegment(parent.Path, seg)
	depthDelta := PathDepth(newPrefix) - PathDepth(oldPrefix)

	subtree, err := m.store.Subtree(ctx, oldPrefix)
	if err != nil {
		return err
	}
	rewrites := make([]PathRewrite, 0, len(subtree))
	for _, n := range subtree {
		rewrites = append(rewrites, PathRewrite{
			NodeID:   n.ID,
			NewPath:  newPrefix + strings.TrimPrefix(n.Path, oldPrefix),
			NewDepth: n.Depth + depthDelta,
		})
	}

	if err := m.store.CommitMove(ctx, SubtreeMove{
		NodeID:      moving.ID,
		NewParentID: parent.ID,
		Rewrites:    rewrites,
	}); err != nil {
		return err
	}

	slog.Info("Subtree moved", "tenant", m.tenantID, "node", moving.ID,
		"new_parent", parent.ID, "nodes_rewritten", len(rewrites))
	if m.notifier != nil {
		m.notifier.Publish(EventSubtreeMoved, m.tenantID)
	}
	return nil
}

// release drops the structural lock taken by acquire.
func (m *Mover) release() {
	m.mu.Unlock()
}

// acquire takes the structural lock, giving up with ErrBusy once the
// timeout elapses or ctx is done.
func (m *Mover) acquire(ctx context.Context) error {
	deadline := time.Now().Add(m.lockTimeout)
	for {
		if m.mu.TryLock() {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrBusy
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrBusy, ctx.Err())
		case <-time.After(5 * time.Millisecond):
		}
	}
}
