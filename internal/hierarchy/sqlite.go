package hierarchy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// schema for the hierarchy table. One row per membership; the
// (tenant_id, owner_id) and (tenant_id, path) unique indexes back the
// DuplicateOwner check and the pre-order path scan respectively.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS agent_nodes (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	owner_id TEXT NOT NULL,
	parent_id TEXT,
	path TEXT NOT NULL,
	depth INTEGER NOT NULL,
	status TEXT NOT NULL DEFAULT 'active',
	tier TEXT NOT NULL DEFAULT '',
	monthly_goal REAL NOT NULL DEFAULT 0,
	ytd_premium REAL NOT NULL DEFAULT 0,
	last_activity_at DATETIME,
	last_login_at DATETIME,
	joined_at DATETIME NOT NULL,
	verification_complete BOOLEAN NOT NULL DEFAULT 0,
	contracts_pending INTEGER NOT NULL DEFAULT 0,
	resident_license_expiry DATETIME,
	total_lead_spend REAL NOT NULL DEFAULT 0,
	last_business_date DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE(tenant_id, owner_id),
	UNIQUE(tenant_id, path)
);
CREATE INDEX IF NOT EXISTS idx_agent_nodes_tenant_path ON agent_nodes(tenant_id, path);
CREATE INDEX IF NOT EXISTS idx_agent_nodes_parent ON agent_nodes(tenant_id, parent_id);
`

const nodeColumns = `id, tenant_id, owner_id, parent_id, path, depth, status, tier,
	monthly_goal, ytd_premium, last_activity_at, last_login_at, joined_at,
	verification_complete, contracts_pending, resident_license_expiry,
	total_lead_spend, last_business_date, created_at, updated_at`

// SQLiteStore is the production Store adapter. All multi-row writes run
// inside a transaction so a partially applied move is never visible.
type SQLiteStore struct {
	tenantID string
	db       *sql.DB
}

// OpenSQLite opens (creating if needed) the hierarchy database at dbPath,
// scoped to one tenant.
func OpenSQLite(dbPath, tenantID string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open hierarchy db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLiteStore{tenantID: tenantID, db: db}, nil
}

func (s *SQLiteStore) All(ctx context.Context) ([]AgentNode, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+nodeColumns+` FROM agent_nodes WHERE tenant_id = ? ORDER BY path`, s.tenantID)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

func (s *SQLiteStore) ByOwner(ctx context.Context, ownerID string) (AgentNode, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+nodeColumns+` FROM agent_nodes WHERE tenant_id = ? AND owner_id = ?`, s.tenantID, ownerID)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return AgentNode{}, fmt.Errorf("owner %s: %w", ownerID, ErrNotFound)
	}
	return n, err
}

func (s *SQLiteStore) ByID(ctx context.Context, nodeID string) (AgentNode, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+nodeColumns+` FROM agent_nodes WHERE tenant_id = ? AND id = ?`, s.tenantID, nodeID)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return AgentNode{}, fmt.Errorf("node %s: %w", nodeID, ErrNotFound)
	}
	return n, err
}

// Subtree does a prefix-range scan on path. Segments are hex, so the prefix
// needs no LIKE escaping.
func (s *SQLiteStore) Subtree(ctx context.Context, prefix string) ([]AgentNode, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+nodeColumns+` FROM agent_nodes
		 WHERE tenant_id = ? AND (path = ? OR path LIKE ?)
		 ORDER BY path`,
		s.tenantID, prefix, prefix+PathDelimiter+"%")
	if err != nil {
		return nil, fmt.Errorf("subtree scan: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

func (s *SQLiteStore) InsertRoot(ctx context.Context, ownerID string, attrs Attributes) (AgentNode, error) {
	seg, err := EncodeSegment(ownerID)
	if err != nil {
		return AgentNode{}, err
	}
	return s.insert(ctx, ownerID, "", seg, 0, attrs)
}

func (s *SQLiteStore) InsertUnder(ctx context.Context, ownerID, parentNodeID string, attrs Attributes) (AgentNode, error) {
	seg, err := EncodeSegment(ownerID)
	if err != nil {
		return AgentNode{}, err
	}
	parent, err := s.ByID(ctx, parentNodeID)
	if errors.Is(err, ErrNotFound) {
		return AgentNode{}, fmt.Errorf("parent %s: %w", parentNodeID, ErrParentNotFound)
	}
	if err != nil {
		return AgentNode{}, err
	}
	return s.insert(ctx, ownerID, parent.ID, AppendSegment(parent.Path, seg), parent.Depth+1, attrs)
}

func (s *SQLiteStore) insert(ctx context.Context, ownerID, parentID, path string, depth int, attrs Attributes) (AgentNode, error) {
	now := time.Now().UTC()
	if attrs.JoinedAt.IsZero() {
		attrs.JoinedAt = now
	}
	n := AgentNode{
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
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agent_nodes (`+nodeColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.TenantID, n.OwnerID, nullStr(n.ParentID), n.Path, n.Depth, n.Status, n.Tier,
		n.Attrs.MonthlyGoal, n.Attrs.YTDPremium, nullTime(n.Attrs.LastActivityAt),
		nullTime(n.Attrs.LastLoginAt), n.Attrs.JoinedAt, n.Attrs.VerificationComplete,
		n.Attrs.ContractsPending, nullTime(n.Attrs.ResidentLicenseExpiry),
		n.Attrs.TotalLeadSpend, nullTime(n.Attrs.LastBusinessDate), n.CreatedAt, n.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return AgentNode{}, fmt.Errorf("owner %s: %w", ownerID, ErrDuplicateOwner)
		}
		return AgentNode{}, fmt.Errorf("insert node: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) UpdateAttributes(ctx context.Context, nodeID string, upd AttributeUpdate) (AgentNode, error) {
	n, err := s.ByID(ctx, nodeID)
	if err != nil {
		return AgentNode{}, err
	}
	applyUpdate(&n, upd)
	n.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`UPDATE agent_nodes SET status = ?, tier = ?, monthly_goal = ?, ytd_premium = ?,
		 last_activity_at = ?, last_login_at = ?, verification_complete = ?,
		 contracts_pending = ?, resident_license_expiry = ?, total_lead_spend = ?,
		 last_business_date = ?, updated_at = ?
		 WHERE tenant_id = ? AND id = ?`,
		n.Status, n.Tier, n.Attrs.MonthlyGoal, n.Attrs.YTDPremium,
		nullTime(n.Attrs.LastActivityAt), nullTime(n.Attrs.LastLoginAt),
		n.Attrs.VerificationComplete, n.Attrs.ContractsPending,
		nullTime(n.Attrs.ResidentLicenseExpiry), n.Attrs.TotalLeadSpend,
		nullTime(n.Attrs.LastBusinessDate), n.UpdatedAt, s.tenantID, nodeID)
	if err != nil {
		return AgentNode{}, fmt.Errorf("update attributes: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) CommitMove(ctx context.Context, move SubtreeMove) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin move tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, rw := range move.Rewrites {
		res, err := tx.ExecContext(ctx,
			`UPDATE agent_nodes SET path = ?, depth = ?, updated_at = ? WHERE tenant_id = ? AND id = ?`,
			rw.NewPath, rw.NewDepth, now, s.tenantID, rw.NodeID)
		if err != nil {
			return fmt.Errorf("rewrite path: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rewrite path: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("node %s: %w", rw.NodeID, ErrNotFound)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE agent_nodes SET parent_id = ?, updated_at = ? WHERE tenant_id = ? AND id = ?`,
		move.NewParentID, now, s.tenantID, move.NodeID); err != nil {
		return fmt.Errorf("set parent: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit move: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func scanNodes(rows *sql.Rows) ([]AgentNode, error) {
	var out []AgentNode
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (AgentNode, error) {
	var n AgentNode
	var parent sql.NullString
	var lastActivity, lastLogin, licenseExpiry, lastBusiness sql.NullTime
	err := row.Scan(&n.ID, &n.TenantID, &n.OwnerID, &parent, &n.Path, &n.Depth,
		&n.Status, &n.Tier, &n.Attrs.MonthlyGoal, &n.Attrs.YTDPremium,
		&lastActivity, &lastLogin, &n.Attrs.JoinedAt, &n.Attrs.VerificationComplete,
		&n.Attrs.ContractsPending, &licenseExpiry, &n.Attrs.TotalLeadSpend,
		&lastBusiness, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return AgentNode{}, err
	}
	n.ParentID = parent.String
	n.Attrs.LastActivityAt = timePtr(lastActivity)
	n.Attrs.LastLoginAt = timePtr(lastLogin)
	n.Attrs.ResidentLicenseExpiry = timePtr(licenseExpiry)
	n.Attrs.LastBusinessDate = timePtr(lastBusiness)
	return n, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
