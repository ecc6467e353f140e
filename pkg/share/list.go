package share

import (
	"slices"
	"sort"

	"github.com/marmos91/reportshare/pkg/apiclient"
)

// Grant is a share grant as returned by the backend.
type Grant = apiclient.ShareGrant

type listOptions struct {
	includeRevoked bool
}

// ListOption tunes a list projection.
type ListOption func(*listOptions)

// IncludeRevoked keeps revoked grants in the projection. A revoked grant is
// only shown for a tuple that has no active grant.
func IncludeRevoked() ListOption {
	return func(o *listOptions) { o.includeRevoked = true }
}

// TupleKey identifies the (owner, report, recipient) tuple a grant targets.
// Bulk grants use "*" as the report.
func TupleKey(g *Grant) string {
	return g.OwnerID + "\x00" + g.ReportKey() + "\x00" + RecipientOf(g).Key()
}

// Covers reports whether an active grant gives access to reportID. A bulk
// grant covers the reports captured when it was created.
func Covers(g *Grant, reportID string) bool {
	if g == nil || g.Revoked || reportID == "" {
		return false
	}
	if !g.IsBulk() {
		return *g.ReportID == reportID
	}
	return slices.Contains(g.ReportIDs, reportID)
}

// Dedupe collapses grants targeting the same tuple into one. The most
// recently created active grant wins; a revoked grant is kept only when the
// tuple has no active grant and includeRevoked is set. The result is ordered
// newest first.
func Dedupe(grants []Grant, includeRevoked bool) []Grant {
	best := make(map[string]int, len(grants))
	out := make([]Grant, 0, len(grants))

	for _, g := range grants {
		key := TupleKey(&g)
		i, seen := best[key]
		if !seen {
			best[key] = len(out)
			out = append(out, g)
			continue
		}
		if supersedes(&g, &out[i]) {
			out[i] = g
		}
	}

	if !includeRevoked {
		out = slices.DeleteFunc(out, func(g Grant) bool { return g.Revoked })
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SharedAt.After(out[j].SharedAt)
	})
	return out
}

// supersedes reports whether candidate should replace current for the same
// tuple. On equal timestamps the later record in server order wins.
func supersedes(candidate, current *Grant) bool {
	if candidate.Revoked != current.Revoked {
		return !candidate.Revoked
	}
	return !candidate.SharedAt.Before(current.SharedAt)
}

// Active returns the first active grant for the tuple of (ownerID, reportID,
// recipient), or nil. An empty reportID looks up the bulk grant.
func Active(grants []Grant, ownerID, reportID string, r Recipient) *Grant {
	key := r.Key()
	for i := range grants {
		g := &grants[i]
		if g.Revoked || g.OwnerID != ownerID || RecipientOf(g).Key() != key {
			continue
		}
		if reportID == "" && g.IsBulk() {
			return g
		}
		if reportID != "" && !g.IsBulk() && *g.ReportID == reportID {
			return g
		}
	}
	return nil
}
