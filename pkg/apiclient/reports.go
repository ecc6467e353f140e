package apiclient

import (
	"context"
	"encoding/json"
)

// Report is a capability target. Everything but the identifiers is kept as
// raw JSON and never interpreted.
type Report struct {
	ID      string          `json:"reportId"`
	OwnerID string          `json:"ownerId"`
	Raw     json.RawMessage `json:"-"`
}

// UnmarshalJSON reads the identifiers under their various backend spellings
// and keeps the full payload in Raw.
func (r *Report) UnmarshalJSON(data []byte) error {
	var ids struct {
		ID       string `json:"_id"`
		ReportID string `json:"reportId"`
		OwnerID  string `json:"ownerId"`
		UserID   string `json:"userId"`
	}
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	r.ID = ids.ReportID
	if r.ID == "" {
		r.ID = ids.ID
	}
	r.OwnerID = ids.OwnerID
	if r.OwnerID == "" {
		r.OwnerID = ids.UserID
	}
	r.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON writes the original payload back unchanged.
func (r Report) MarshalJSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	type plain Report
	return json.Marshal(plain(r))
}

// ListReports returns the reports owned by userID.
func (c *Client) ListReports(ctx context.Context, userID string) ([]Report, error) {
	return listResources[Report](ctx, c, "/reports/:userId", resourcePath("/reports/%s", userID), "reports")
}
