package hierarchy

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Path segments are the 32 lowercase hex characters of the owner UUID with
// hyphens dropped, joined by PathDelimiter. The encoding is reversible, so
// ancestry can be resolved back to owner ids without a side index, and
// fixed-length segments make raw string prefix comparison safe across
// segment boundaries.
const (
	PathDelimiter = "."
	SegmentLen    = 32

	// MaxOwnerIDLen bounds accepted owner identifiers; canonical UUIDs are
	// 36 characters.
	MaxOwnerIDLen = 64
)

// EncodeSegment derives the path segment for an owner id.
func EncodeSegment(ownerID string) (string, error) {
	if ownerID == "" || len(ownerID) > MaxOwnerIDLen {
		return "", fmt.Errorf("%w: owner id length %d", ErrInvalidSegment, len(ownerID))
	}
	if strings.Contains(ownerID, PathDelimiter) {
		return "", fmt.Errorf("%w: owner id contains %q", ErrInvalidSegment, PathDelimiter)
	}
	u, err := uuid.Parse(ownerID)
	if err != nil {
		return "", fmt.Errorf("%w: owner id is not a UUID: %v", ErrInvalidSegment, err)
	}
	return strings.ReplaceAll(u.String(), "-", ""), nil
}

// DecodeSegment is the inverse of EncodeSegment, restoring the canonical
// UUID string.
func DecodeSegment(segment string) (string, error) {
	if len(segment) != SegmentLen {
		return "", fmt.Errorf("%w: segment length %d", ErrInvalidSegment, len(segment))
	}
	u, err := uuid.Parse(segment)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSegment, err)
	}
	return u.String(), nil
}

// AppendSegment extends a parent path with one segment. An empty parent path
// yields a single-segment root path.
func AppendSegment(parentPath, segment string) string {
	if parentPath == "" {
		return segment
	}
	return parentPath + PathDelimiter + segment
}

// SplitPath returns the segments of a path in root-to-node order.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, PathDelimiter)
}

// PathDepth returns the depth implied by a path (segment count minus one).
func PathDepth(path string) int {
	return len(SplitPath(path)) - 1
}

// HasPathPrefix reports whether prefix is path itself or a proper ancestor
// prefix of it. The comparison is segment-aligned: because every segment has
// the same length, checking for the delimiter after the prefix suffices.
func HasPathPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+PathDelimiter)
}

// ValidatePath checks that every segment of a path decodes and that no
// segment repeats (a repeated segment would mean a cycle).
func ValidatePath(path string) error {
	segs := SplitPath(path)
	if len(segs) == 0 {
		return fmt.Errorf("%w: empty path", ErrInvalidSegment)
	}
	seen := make(map[string]bool, len(segs))
	for _, s := range segs {
		if _, err := DecodeSegment(s); err != nil {
			return err
		}
		if seen[s] {
			return fmt.Errorf("%w: repeated segment %s", ErrInvalidSegment, s)
		}
		seen[s] = true
	}
	return nil
}
