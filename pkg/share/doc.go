// Package share creates, revokes and lists report share grants.
//
// Every call is a single request against the backend grant store, which is
// authoritative. Share and revoke are never retried: on failure the caller
// sees the normalized error and nothing is changed locally. The two list
// projections are fetched independently and are only eventually consistent
// with each other and with push notifications.
//
// # Recipient identity
//
// A grant names its recipient either by internal user id or by email. Two
// recipients are the same when their Key matches: ids compare exactly, emails
// compare after trimming and lowercasing. The raw value passed to ShareReport
// is never rewritten; classification only happens for revoke input and for
// deduplicating lists.
//
// # Bulk grants
//
// ShareAllReports creates one grant with a nil report id. The backend
// captures the owner's reports at that moment in ReportIDs and Covers checks
// against that snapshot, so reports uploaded later need a new grant.
package share
