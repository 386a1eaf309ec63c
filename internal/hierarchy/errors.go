package hierarchy

import "errors"

// Sentinel errors for the engine. Callers branch with errors.Is; wrapped
// storage errors pass through unchanged so infrastructure failures stay
// distinguishable from validation failures.
var (
	// ErrInvalidSegment: an owner id cannot be encoded as a path segment.
	ErrInvalidSegment = errors.New("invalid path segment")
	// ErrDuplicateOwner: the owner already has a membership node.
	ErrDuplicateOwner = errors.New("owner already in hierarchy")
	// ErrParentNotFound: the referenced parent node does not exist.
	ErrParentNotFound = errors.New("parent node not found")
	// ErrNotFound: the referenced node does not exist.
	ErrNotFound = errors.New("node not found")
	// ErrSelfParent: a node cannot be moved under itself.
	ErrSelfParent = errors.New("node cannot be its own parent")
	// ErrDescendantCycle: the target parent is inside the moving subtree.
	ErrDescendantCycle = errors.New("target parent is a descendant of the moving node")
	// ErrBusy: the move lock could not be acquired in time; safe to retry.
	ErrBusy = errors.New("hierarchy busy, retry later")
)

// ErrorCode returns a stable machine-readable code for an engine error, or
// "internal" for anything else (storage failures included).
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidSegment):
		return "invalid_segment"
	case errors.Is(err, ErrDuplicateOwner):
		return "duplicate_owner"
	case errors.Is(err, ErrParentNotFound):
		return "parent_not_found"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrSelfParent):
		return "self_parent"
	case errors.Is(err, ErrDescendantCycle):
		return "descendant_cycle"
	case errors.Is(err, ErrBusy):
		return "busy"
	default:
		return "internal"
	}
}
