package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// PermissionView is the only permission the backend grants today.
const PermissionView = "view"

// sharedReportsKey wraps list responses from the original backend.
const sharedReportsKey = "sharedReports"

// ShareGrant is an authorization record letting one recipient view one report
// (ReportID set) or all reports the owner had at grant time (ReportID nil).
type ShareGrant struct {
	ID              string    `json:"id,omitempty"`
	OwnerID         string    `json:"ownerId"`
	ReportID        *string   `json:"reportId"`
	ReportIDs       []string  `json:"reportIds,omitempty"`
	SharedWithID    string    `json:"sharedWithId,omitempty"`
	SharedWithEmail string    `json:"sharedWithEmail,omitempty"`
	PermissionType  string    `json:"permissionType"`
	SharedAt        time.Time `json:"sharedAt"`
	Revoked         bool      `json:"revoked"`

	// Presentation-only fields some backends attach.
	Name             string `json:"name,omitempty"`
	FileName         string `json:"fileName,omitempty"`
	RelationshipType string `json:"relationshipType,omitempty"`
}

// UnmarshalJSON accepts "_id" as an alias for "id".
func (g *ShareGrant) UnmarshalJSON(data []byte) error {
	type plain ShareGrant
	aux := struct {
		*plain
		MongoID string `json:"_id"`
	}{plain: (*plain)(g)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if g.ID == "" {
		g.ID = aux.MongoID
	}
	return nil
}

// IsBulk reports whether the grant covers all of the owner's reports.
func (g *ShareGrant) IsBulk() bool {
	return g.ReportID == nil
}

// ReportKey returns the report id, or "*" for a bulk grant.
func (g *ShareGrant) ReportKey() string {
	if g.ReportID == nil {
		return "*"
	}
	return *g.ReportID
}

// Recipient returns the populated recipient identifier.
func (g *ShareGrant) Recipient() string {
	if g.SharedWithID != "" {
		return g.SharedWithID
	}
	return g.SharedWithEmail
}

// DisplayName picks a human-readable label for the shared report. Uploaded
// file names carry a "<timestamp>-" prefix and a ".pdf" suffix which are
// stripped.
func (g *ShareGrant) DisplayName() string {
	if n := strings.TrimSpace(g.Name); n != "" {
		return n
	}
	if g.FileName != "" {
		name := g.FileName
		if _, rest, ok := strings.Cut(name, "-"); ok && rest != "" {
			name = rest
		}
		if n := strings.TrimSpace(strings.TrimSuffix(name, ".pdf")); n != "" {
			return n
		}
	}
	if g.ReportID == nil {
		return "All reports"
	}
	return *g.ReportID
}

// ShareReportRequest creates a single-report grant. SharedWith is an internal
// user id or an email address; the backend resolves it.
type ShareReportRequest struct {
	OwnerID        string `json:"ownerId"`
	SharedWith     string `json:"sharedWith"`
	ReportID       string `json:"reportId"`
	PermissionType string `json:"permissionType"`
}

// ShareAllRequest creates a bulk grant over the owner's current reports.
type ShareAllRequest struct {
	OwnerID        string `json:"ownerId"`
	SharedWith     string `json:"sharedWith"`
	PermissionType string `json:"permissionType"`
}

// RevokeRequest revokes a grant. Exactly one of SharedWithID and
// SharedWithEmail is set. A nil ReportID targets the bulk grant.
type RevokeRequest struct {
	OwnerID         string  `json:"ownerId"`
	ReportID        *string `json:"reportId"`
	SharedWithID    string  `json:"sharedWithId,omitempty"`
	SharedWithEmail string  `json:"sharedWithEmail,omitempty"`
}

// ShareReport creates a grant for one report.
func (c *Client) ShareReport(ctx context.Context, req *ShareReportRequest) (*ShareGrant, error) {
	return createResource[ShareGrant](ctx, c, "/share/share-report", req)
}

// ShareAllReports creates a bulk grant.
func (c *Client) ShareAllReports(ctx context.Context, req *ShareAllRequest) (*ShareGrant, error) {
	return createResource[ShareGrant](ctx, c, "/share/share-all", req)
}

// RevokeShare revokes a grant. The backend answers 404 for grants that are
// already revoked or never existed.
func (c *Client) RevokeShare(ctx context.Context, req *RevokeRequest) error {
	return c.do(ctx, call{method: http.MethodPost, route: "/share/revoke", path: "/share/revoke", body: req, auth: true})
}

// ListSharedBy returns the grants owned by userID.
func (c *Client) ListSharedBy(ctx context.Context, userID string) ([]ShareGrant, error) {
	return listResources[ShareGrant](ctx, c, "/share/shared-by/:userId",
		resourcePath("/share/shared-by/%s", userID), sharedReportsKey)
}

// ListSharedWith returns the grants whose recipient is userID.
func (c *Client) ListSharedWith(ctx context.Context, userID string) ([]ShareGrant, error) {
	return listResources[ShareGrant](ctx, c, "/share/shared-with/:userId",
		resourcePath("/share/shared-with/%s", userID), sharedReportsKey)
}
