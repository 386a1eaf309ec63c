package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/uplinehq/upline/internal/config"
	"github.com/uplinehq/upline/internal/hierarchy"
)

func newTestServer(t *testing.T, cfg config.GatewayConfig) (*httptest.Server, *hierarchy.Service) {
	t.Helper()
	svc := hierarchy.NewService("tenant-a", hierarchy.NewMemStore("tenant-a"))
	ts := httptest.NewServer(New(cfg, svc).Handler())
	t.Cleanup(ts.Close)
	return ts, svc
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("encode body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func decodeError(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code
}

func TestAddAndListOverHTTP(t *testing.T) {
	ts, _ := newTestServer(t, config.GatewayConfig{})

	rootOwner := uuid.NewString()
	childOwner := uuid.NewString()

	resp := postJSON(t, ts.URL+"/api/v1/members", map[string]any{"owner_id": rootOwner})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add root: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/api/v1/members", map[string]any{
		"owner_id":        childOwner,
		"parent_owner_id": rootOwner,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add child: status %d", resp.StatusCode)
	}
	var child hierarchy.AgentNode
	if err := json.NewDecoder(resp.Body).Decode(&child); err != nil {
		t.Fatalf("decode child: %v", err)
	}
	resp.Body.Close()
	if child.Depth != 1 {
		t.Errorf("child depth: got %d", child.Depth)
	}

	treeResp, err := http.Get(ts.URL + "/api/v1/tree")
	if err != nil {
		t.Fatalf("get tree: %v", err)
	}
	defer treeResp.Body.Close()
	var tree struct {
		Nodes []hierarchy.AgentNode `json:"nodes"`
	}
	if err := json.NewDecoder(treeResp.Body).Decode(&tree); err != nil {
		t.Fatalf("decode tree: %v", err)
	}
	if len(tree.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(tree.Nodes))
	}
	if tree.Nodes[0].Zone == "" {
		t.Error("tree nodes not zone-decorated")
	}
}

func TestMoveOverHTTP(t *testing.T) {
	ts, _ := newTestServer(t, config.GatewayConfig{})

	rootOwner := uuid.NewString()
	midOwner := uuid.NewString()
	newRootOwner := uuid.NewString()

	postJSON(t, ts.URL+"/api/v1/members", map[string]any{"owner_id": rootOwner}).Body.Close()
	postJSON(t, ts.URL+"/api/v1/members", map[string]any{
		"owner_id": midOwner, "parent_owner_id": rootOwner,
	}).Body.Close()
	postJSON(t, ts.URL+"/api/v1/members", map[string]any{"owner_id": newRootOwner}).Body.Close()

	resp := postJSON(t, fmt.Sprintf("%s/api/v1/members/%s/move", ts.URL, midOwner),
		map[string]any{"new_parent_owner_id": newRootOwner})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("move: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Cycle attempt maps to 422 with a stable code.
	resp = postJSON(t, fmt.Sprintf("%s/api/v1/members/%s/move", ts.URL, newRootOwner),
		map[string]any{"new_parent_owner_id": midOwner})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("cycle move: status %d", resp.StatusCode)
	}
	if code := decodeError(t, resp); code != "descendant_cycle" {
		t.Errorf("cycle move code: got %s", code)
	}
}

func TestErrorMapping(t *testing.T) {
	ts, _ := newTestServer(t, config.GatewayConfig{})
	owner := uuid.NewString()
	postJSON(t, ts.URL+"/api/v1/members", map[string]any{"owner_id": owner}).Body.Close()

	// Duplicate owner -> 409.
	resp := postJSON(t, ts.URL+"/api/v1/members", map[string]any{"owner_id": owner})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate: status %d", resp.StatusCode)
	}
	if code := decodeError(t, resp); code != "duplicate_owner" {
		t.Errorf("duplicate code: got %s", code)
	}

	// Unknown owner -> 404.
	resp = postJSON(t, fmt.Sprintf("%s/api/v1/members/%s/move", ts.URL, uuid.NewString()),
		map[string]any{"new_parent_owner_id": owner})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Bad owner id -> 422 invalid_segment.
	resp = postJSON(t, ts.URL+"/api/v1/members", map[string]any{"owner_id": "not-a-uuid"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("invalid segment: status %d", resp.StatusCode)
	}
	if code := decodeError(t, resp); code != "invalid_segment" {
		t.Errorf("invalid segment code: got %s", code)
	}
}

func TestZoneEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, config.GatewayConfig{})
	owner := uuid.NewString()
	postJSON(t, ts.URL+"/api/v1/members", map[string]any{"owner_id": owner}).Body.Close()

	resp, err := http.Get(fmt.Sprintf("%s/api/v1/members/%s/zone", ts.URL, owner))
	if err != nil {
		t.Fatalf("get zone: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("zone: status %d", resp.StatusCode)
	}
	var body struct {
		Zone hierarchy.Zone `json:"zone"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode zone: %v", err)
	}
	// Fresh unverified member classifies blue.
	if body.Zone != hierarchy.ZoneBlue {
		t.Errorf("expected blue for a fresh member, got %s", body.Zone)
	}
}

func TestAuthToken(t *testing.T) {
	ts, _ := newTestServer(t, config.GatewayConfig{AuthToken: "sekrit"})

	resp, err := http.Get(ts.URL + "/api/v1/tree")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("missing token: status %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/tree", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get with token: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("with token: status %d", resp.StatusCode)
	}

	// Status endpoint stays open for health checks.
	resp, err = http.Get(ts.URL + "/api/v1/status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status endpoint: status %d", resp.StatusCode)
	}
}
