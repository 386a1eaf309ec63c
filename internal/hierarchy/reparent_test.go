package hierarchy

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fixture struct {
	store *MemStore
	mover *Mover
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := NewMemStore("tenant-a")
	return &fixture{store: store, mover: NewMover(store, NewNotifier(), "tenant-a", 0)}
}

func (f *fixture) root(t *testing.T) AgentNode {
	t.Helper()
	n, err := f.store.InsertRoot(context.Background(), uuid.NewString(), Attributes{})
	if err != nil {
		t.Fatalf("insert root: %v", err)
	}
	return n
}

func (f *fixture) child(t *testing.T, parent AgentNode) AgentNode {
	t.Helper()
	n, err := f.store.InsertUnder(context.Background(), uuid.NewString(), parent.ID, Attributes{})
	if err != nil {
		t.Fatalf("insert under: %v", err)
	}
	return n
}

func (f *fixture) snapshot(t *testing.T) []AgentNode {
	t.Helper()
	nodes, err := f.store.All(context.Background())
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	return nodes
}

func TestMoveSubtreeRewritesPathsAndDepths(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// R -> M -> N, plus a separate root S.
	r := f.root(t)
	m := f.child(t, r)
	n := f.child(t, m)
	s := f.root(t)

	if err := f.mover.Move(ctx, m.ID, s.OwnerID); err != nil {
		t.Fatalf("move: %v", err)
	}

	mAfter, _ := f.store.ByID(ctx, m.ID)
	nAfter, _ := f.store.ByID(ctx, n.ID)
	rAfter, _ := f.store.ByID(ctx, r.ID)

	mSeg, _ := EncodeSegment(m.OwnerID)
	nSeg, _ := EncodeSegment(n.OwnerID)
	if want := AppendSegment(s.Path, mSeg); mAfter.Path != want {
		t.Errorf("moved node path: got %s, want %s", mAfter.Path, want)
	}
	if want := AppendSegment(AppendSegment(s.Path, mSeg), nSeg); nAfter.Path != want {
		t.Errorf("descendant path: got %s, want %s", nAfter.Path, want)
	}
	if mAfter.Depth != 1 || nAfter.Depth != 2 {
		t.Errorf("depths: got %d and %d, want 1 and 2", mAfter.Depth, nAfter.Depth)
	}
	if mAfter.ParentID != s.ID {
		t.Errorf("moved node parent: got %s, want %s", mAfter.ParentID, s.ID)
	}
	if rAfter.Path != r.Path || rAfter.Depth != 0 {
		t.Errorf("unrelated root was touched")
	}
	checkInvariants(t, f.snapshot(t))
}

func TestMoveDeepensSubtree(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	r := f.root(t)
	a := f.child(t, r)
	b := f.child(t, a) // r -> a -> b
	c := f.child(t, r) // sibling of a

	// Move a (with b) under c: depths grow by one.
	if err := f.mover.Move(ctx, a.ID, c.OwnerID); err != nil {
		t.Fatalf("move: %v", err)
	}
	aAfter, _ := f.store.ByID(ctx, a.ID)
	bAfter, _ := f.store.ByID(ctx, b.ID)
	if aAfter.Depth != 2 || bAfter.Depth != 3 {
		t.Errorf("depths after deepening move: got %d and %d", aAfter.Depth, bAfter.Depth)
	}
	checkInvariants(t, f.snapshot(t))
}

func TestMoveRejectsSelfParent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.root(t)

	before := f.snapshot(t)
	err := f.mover.Move(ctx, r.ID, r.OwnerID)
	if !errors.Is(err, ErrSelfParent) {
		t.Errorf("expected ErrSelfParent, got %v", err)
	}
	if !reflect.DeepEqual(before, f.snapshot(t)) {
		t.Errorf("failed move mutated the tree")
	}
}

func TestMoveRejectsDescendantCycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	r := f.root(t)
	m := f.child(t, r)
	n := f.child(t, m) // grandchild of r

	before := f.snapshot(t)
	// Moving the root under its own grandchild must fail.
	err := f.mover.Move(ctx, r.ID, n.OwnerID)
	if !errors.Is(err, ErrDescendantCycle) {
		t.Errorf("expected ErrDescendantCycle, got %v", err)
	}
	// Direct child as target fails the same way.
	if err := f.mover.Move(ctx, r.ID, m.OwnerID); !errors.Is(err, ErrDescendantCycle) {
		t.Errorf("expected ErrDescendantCycle for direct child, got %v", err)
	}
	if !reflect.DeepEqual(before, f.snapshot(t)) {
		t.Errorf("failed move mutated the tree")
	}
}

func TestMoveMissingNodes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.root(t)

	if err := f.mover.Move(ctx, "no-such-node", r.OwnerID); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing node: expected ErrNotFound, got %v", err)
	}
	if err := f.mover.Move(ctx, r.ID, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing parent owner: expected ErrNotFound, got %v", err)
	}
}

func TestMovePublishesSingleEvent(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore("tenant-a")
	notifier := NewNotifier()
	mover := NewMover(store, notifier, "tenant-a", 0)

	r, _ := store.InsertRoot(ctx, uuid.NewString(), Attributes{})
	m, _ := store.InsertUnder(ctx, uuid.NewString(), r.ID, Attributes{})
	store.InsertUnder(ctx, uuid.NewString(), m.ID, Attributes{})
	s, _ := store.InsertRoot(ctx, uuid.NewString(), Attributes{})

	var events []ChangeEvent
	notifier.Subscribe(func(ev ChangeEvent) { events = append(events, ev) })

	if err := mover.Move(ctx, m.ID, s.OwnerID); err != nil {
		t.Fatalf("move: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected exactly 1 event for a subtree move, got %d", len(events))
	}
	if events[0].Kind != EventSubtreeMoved {
		t.Errorf("expected %s, got %s", EventSubtreeMoved, events[0].Kind)
	}
}

func TestMoveBusyWhenLockHeld(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.mover.lockTimeout = 20 * time.Millisecond

	r := f.root(t)
	s := f.root(t)
	m := f.child(t, r)

	f.mover.mu.Lock()
	defer f.mover.mu.Unlock()

	before := f.snapshot(t)
	if err := f.mover.Move(ctx, m.ID, s.OwnerID); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
	if !reflect.DeepEqual(before, f.snapshot(t)) {
		t.Errorf("busy move mutated the tree")
	}
}
