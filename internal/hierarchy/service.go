package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Service is the facade exposed to collaborators: path-ordered tree reads,
// member add/move/update, and zone classification. One Service instance
// serves one tenant; tenant scoping is fixed at construction.
type Service struct {
	tenantID string
	store    Store
	notifier *Notifier
	mover    *Mover
	profiles ProfileLookup // optional, decorates reads
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithProfileLookup attaches a directory used to decorate tree reads with
// display names. Lookup failures are logged and ignored.
func WithProfileLookup(p ProfileLookup) ServiceOption {
	return func(s *Service) { s.profiles = p }
}

// WithMoveLockTimeout overrides the structural lock timeout for moves.
// Non-positive values keep the default.
func WithMoveLockTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.mover.lockTimeout = d
		}
	}
}

// NewService wires a store, notifier and mover into a tenant-scoped facade.
func NewService(tenantID string, store Store, opts ...ServiceOption) *Service {
	notifier := NewNotifier()
	s := &Service{
		tenantID: tenantID,
		store:    store,
		notifier: notifier,
		mover:    NewMover(store, notifier, tenantID, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notifier exposes the change feed for subscribers (gateway SSE, relay).
func (s *Service) Notifier() *Notifier { return s.notifier }

// TenantID returns the tenant this service is scoped to.
func (s *Service) TenantID() string { return s.tenantID }

// ListTree returns every node ordered by path (a pre-order traversal), each
// classified against now and decorated with directory profiles when a
// lookup is attached.
func (s *Service) ListTree(ctx context.Context) ([]AgentNode, error) {
	nodes, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	for i := range nodes {
		nodes[i].Zone = Classify(nodes[i], now)
	}
	s.decorate(ctx, nodes)
	return nodes, nil
}

// AddMember creates a membership for ownerID, as a root when parentOwnerID
// is empty or under the parent's node otherwise. Inserts hold the same
// structural lock as moves, so a child cannot be created under a subtree
// whose paths are being rewritten; when a move holds the lock past the
// timeout, AddMember returns ErrBusy.
func (s *Service) AddMember(ctx context.Context, ownerID, parentOwnerID string, attrs Attributes) (AgentNode, error) {
	if err := s.mover.acquire(ctx); err != nil {
		return AgentNode{}, err
	}
	defer s.mover.release()

	var (
		n   AgentNode
		err error
	)
	if parentOwnerID == "" {
		n, err = s.store.InsertRoot(ctx, ownerID, attrs)
	} else {
		var parent AgentNode
		parent, err = s.store.ByOwner(ctx, parentOwnerID)
		if errors.Is(err, ErrNotFound) {
			return AgentNode{}, fmt.Errorf("parent owner %s: %w", parentOwnerID, ErrParentNotFound)
		}
		if err != nil {
			return AgentNode{}, err
		}
		n, err = s.store.InsertUnder(ctx, ownerID, parent.ID, attrs)
	}
	if err != nil {
		return AgentNode{}, err
	}
	slog.Info("Member added", "tenant", s.tenantID, "owner", ownerID, "depth", n.Depth)
	s.notifier.Publish(EventNodeChanged, s.tenantID)
	n.Zone = Classify(n, time.Now())
	return n, nil
}

// MoveMember reparents the member owned by ownerID (with its entire
// downline) under newParentOwnerID.
func (s *Service) MoveMember(ctx context.Context, ownerID, newParentOwnerID string) error {
	n, err := s.store.ByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	return s.mover.Move(ctx, n.ID, newParentOwnerID)
}

// UpdateMemberAttributes applies a partial attribute update to the member
// owned by ownerID. Structural fields are out of reach here.
func (s *Service) UpdateMemberAttributes(ctx context.Context, ownerID string, upd AttributeUpdate) (AgentNode, error) {
	n, err := s.store.ByOwner(ctx, ownerID)
	if err != nil {
		return AgentNode{}, err
	}
	updated, err := s.store.UpdateAttributes(ctx, n.ID, upd)
	if err != nil {
		return AgentNode{}, err
	}
	s.notifier.Publish(EventNodeChanged, s.tenantID)
	updated.Zone = Classify(updated, time.Now())
	return updated, nil
}

// ClassifyMember classifies the member owned by ownerID as of the given
// instant.
func (s *Service) ClassifyMember(ctx context.Context, ownerID string, at time.Time) (Zone, error) {
	n, err := s.store.ByOwner(ctx, ownerID)
	if err != nil {
		return "", err
	}
	return Classify(n, at), nil
}

func (s *Service) decorate(ctx context.Context, nodes []AgentNode) {
	if s.profiles == nil || len(nodes) == 0 {
		return
	}
	owners := make([]string, 0, len(nodes))
	for _, n := range nodes {
		owners = append(owners, n.OwnerID)
	}
	found, err := s.profiles.Profiles(ctx, owners)
	if err != nil {
		slog.Warn("Profile lookup failed", "tenant", s.tenantID, "error", err)
		return
	}
	for i := range nodes {
		if p, ok := found[nodes[i].OwnerID]; ok {
			nodes[i].Name = p.Name
			nodes[i].Email = p.Email
		}
	}
}
