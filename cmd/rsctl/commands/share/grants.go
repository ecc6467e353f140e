package share

import (
	"fmt"
	"time"

	"github.com/marmos91/reportshare/cmd/rsctl/cmdutil"
	"github.com/marmos91/reportshare/internal/cli/timeutil"
	"github.com/marmos91/reportshare/pkg/share"
)

// inviteSuffix marks recipients that were addressed by email only.
const inviteSuffix = " (invite sent)"

// Direction selects which side of a grant a listing is about.
type Direction int

const (
	// SharedByMe lists grants the user owns.
	SharedByMe Direction = iota
	// SharedWithMe lists grants the user is the recipient of.
	SharedWithMe
)

// GrantList renders grants as a table.
type GrantList struct {
	Grants    []share.Grant
	Direction Direction
	Now       time.Time
}

// Headers implements TableRenderer.
func (gl GrantList) Headers() []string {
	if gl.Direction == SharedWithMe {
		return []string{"REPORT", "OWNER", "PERMISSION", "SHARED", "STATUS"}
	}
	return []string{"REPORT", "RECIPIENT", "PERMISSION", "SHARED", "STATUS"}
}

// Rows implements TableRenderer.
func (gl GrantList) Rows() [][]string {
	now := gl.Now
	if now.IsZero() {
		now = time.Now()
	}

	rows := make([][]string, 0, len(gl.Grants))
	for i := range gl.Grants {
		g := &gl.Grants[i]
		who := g.OwnerID
		if gl.Direction == SharedByMe {
			who = RecipientLabel(g)
		}
		rows = append(rows, []string{
			ReportLabel(g),
			who,
			cmdutil.EmptyOr(g.PermissionType, "view"),
			timeutil.Ago(g.SharedAt, now),
			grantStatus(g),
		})
	}
	return rows
}

// ReportLabel names the report a grant is for. Bulk grants show how many
// reports they captured.
func ReportLabel(g *share.Grant) string {
	if g.IsBulk() {
		if len(g.ReportIDs) > 0 {
			return fmt.Sprintf("All reports (%d)", len(g.ReportIDs))
		}
		return "All reports"
	}
	return g.DisplayName()
}

// RecipientLabel names the recipient, flagging email-only invitations.
func RecipientLabel(g *share.Grant) string {
	r := share.RecipientOf(g)
	if r.IsEmail() {
		return r.Email + inviteSuffix
	}
	return r.String()
}

func grantStatus(g *share.Grant) string {
	if g.Revoked {
		return "revoked"
	}
	return "active"
}
