package share

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/marmos91/reportshare/pkg/share"
)

func ptr(s string) *string { return &s }

func TestGrantListRows(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	grants := []share.Grant{
		{
			OwnerID:         "Niki002",
			ReportID:        ptr("R1"),
			SharedWithEmail: "bob@x.com",
			PermissionType:  "view",
			SharedAt:        now.Add(-2 * time.Hour),
			FileName:        "1712-blood-panel.pdf",
		},
		{
			OwnerID:      "Niki002",
			ReportIDs:    []string{"R1", "R2"},
			SharedWithID: "bob",
			SharedAt:     now.Add(-30 * time.Second),
			Revoked:      true,
		},
	}

	t.Run("shared by me", func(t *testing.T) {
		list := GrantList{Grants: grants, Direction: SharedByMe, Now: now}
		assert.Equal(t, "RECIPIENT", list.Headers()[1])
		assert.Equal(t, [][]string{
			{"blood-panel", "bob@x.com (invite sent)", "view", "2h ago", "active"},
			{"All reports (2)", "bob", "view", "30s ago", "revoked"},
		}, list.Rows())
	})

	t.Run("shared with me", func(t *testing.T) {
		list := GrantList{Grants: grants[:1], Direction: SharedWithMe, Now: now}
		assert.Equal(t, "OWNER", list.Headers()[1])
		assert.Equal(t, "Niki002", list.Rows()[0][1])
	})
}

func TestReportLabel(t *testing.T) {
	assert.Equal(t, "R9", ReportLabel(&share.Grant{ReportID: ptr("R9")}))
	assert.Equal(t, "All reports", ReportLabel(&share.Grant{}))
}

func TestRecipientLabel(t *testing.T) {
	assert.Equal(t, "bob", RecipientLabel(&share.Grant{SharedWithID: "bob", SharedWithEmail: "bob@x.com"}))
	assert.Equal(t, "bob@x.com (invite sent)", RecipientLabel(&share.Grant{SharedWithEmail: "bob@x.com"}))
}
