package hierarchy

import "context"

// Store is the authoritative node set for one tenant. All reads and writes
// pass through it so the path/depth invariants are enforced in one place.
//
// Two implementations exist: MemStore for tests and ephemeral CLI use, and
// SQLiteStore backed by a transactional database for production.
type Store interface {
	// All returns every node ordered by path, which is a pre-order walk of
	// the tree.
	All(ctx context.Context) ([]AgentNode, error)

	// ByOwner resolves a node by the person it represents.
	// Returns ErrNotFound if the owner has no membership.
	ByOwner(ctx context.Context, ownerID string) (AgentNode, error)

	// ByID resolves a node by membership id. Returns ErrNotFound if absent.
	ByID(ctx context.Context, nodeID string) (AgentNode, error)

	// Subtree returns the node whose path equals prefix plus all its
	// descendants, ordered by path.
	Subtree(ctx context.Context, prefix string) ([]AgentNode, error)

	// InsertRoot creates a depth-0 node with a single-segment path.
	// Returns ErrDuplicateOwner if the owner already has a node.
	InsertRoot(ctx context.Context, ownerID string, attrs Attributes) (AgentNode, error)

	// InsertUnder creates a child of parentNodeID. Returns ErrParentNotFound
	// or ErrDuplicateOwner on validation failure.
	InsertUnder(ctx context.Context, ownerID, parentNodeID string, attrs Attributes) (AgentNode, error)

	// UpdateAttributes applies a partial attribute update. Structural fields
	// are never touched here. Returns ErrNotFound if the node is absent.
	UpdateAttributes(ctx context.Context, nodeID string, upd AttributeUpdate) (AgentNode, error)

	// CommitMove applies a precomputed subtree rewrite as one atomic unit:
	// either every rewrite lands and the moved node's parent changes, or
	// nothing does.
	CommitMove(ctx context.Context, move SubtreeMove) error

	Close() error
}

// SubtreeMove is the atomic unit committed by a reparenting operation.
// Rewrites covers the moved node and every descendant.
type SubtreeMove struct {
	NodeID      string
	NewParentID string
	Rewrites    []PathRewrite
}

// PathRewrite is one node's new placement after a move.
type PathRewrite struct {
	NodeID   string
	NewPath  string
	NewDepth int
}
