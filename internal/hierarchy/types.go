// Package hierarchy implements the agent hierarchy engine: a materialized-path
// tree of agent memberships with zone classification and atomic subtree moves.
package hierarchy

import (
	"context"
	"time"
)

// Membership status values.
const (
	StatusActive     = "active"
	StatusInactive   = "inactive"
	StatusTerminated = "terminated"
)

// AgentNode is one agent's membership record in the hierarchy.
// ID identifies the membership, OwnerID the person behind it; a person has
// at most one node per tenant.
type AgentNode struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	OwnerID  string `json:"owner_id"`
	ParentID string `json:"parent_id,omitempty"` // empty for root nodes
	Path     string `json:"path"`                // delimiter-joined segments, root..self
	Depth    int    `json:"depth"`               // ancestor count, root = 0
	Status   string `json:"status"`
	Tier     string `json:"tier,omitempty"`

	Attrs Attributes `json:"attrs"`

	// Decorations filled on read; not persisted by the store.
	Zone  Zone   `json:"zone,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Attributes are the classification inputs carried by every node.
// Pointer fields distinguish "never" from a zero timestamp.
type Attributes struct {
	MonthlyGoal           float64    `json:"monthly_goal"`
	YTDPremium            float64    `json:"ytd_premium"`
	LastActivityAt        *time.Time `json:"last_activity_at,omitempty"`
	LastLoginAt           *time.Time `json:"last_login_at,omitempty"`
	JoinedAt              time.Time  `json:"joined_at"`
	VerificationComplete  bool       `json:"verification_complete"`
	ContractsPending      int        `json:"contracts_pending"`
	ResidentLicenseExpiry *time.Time `json:"resident_license_expiry,omitempty"`
	TotalLeadSpend        float64    `json:"total_lead_spend"`
	LastBusinessDate      *time.Time `json:"last_business_date,omitempty"`
}

// AttributeUpdate is a partial update of classification-relevant fields.
// Nil fields are left untouched. Structural fields (parent, path, depth) are
// owned by the move operation and cannot be updated here.
type AttributeUpdate struct {
	Status                *string    `json:"status,omitempty"`
	Tier                  *string    `json:"tier,omitempty"`
	MonthlyGoal           *float64   `json:"monthly_goal,omitempty"`
	YTDPremium            *float64   `json:"ytd_premium,omitempty"`
	LastActivityAt        *time.Time `json:"last_activity_at,omitempty"`
	LastLoginAt           *time.Time `json:"last_login_at,omitempty"`
	VerificationComplete  *bool      `json:"verification_complete,omitempty"`
	ContractsPending      *int       `json:"contracts_pending,omitempty"`
	ResidentLicenseExpiry *time.Time `json:"resident_license_expiry,omitempty"`
	TotalLeadSpend        *float64   `json:"total_lead_spend,omitempty"`
	LastBusinessDate      *time.Time `json:"last_business_date,omitempty"`
}

// EventKind discriminates change events. Events are level-triggered refetch
// signals; they carry no node payload.
type EventKind string

const (
	EventNodeChanged  EventKind = "node_changed"
	EventSubtreeMoved EventKind = "subtree_moved"
)

// ChangeEvent is published after every successful mutation.
type ChangeEvent struct {
	Kind      EventKind `json:"kind"`
	TenantID  string    `json:"tenant_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Profile is presentation metadata for an owner, resolved externally.
type Profile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ProfileLookup resolves display metadata for a set of owner ids. Missing
// owners are simply absent from the result; lookup failures do not fail
// tree reads.
type ProfileLookup interface {
	Profiles(ctx context.Context, ownerIDs []string) (map[string]Profile, error)
}
