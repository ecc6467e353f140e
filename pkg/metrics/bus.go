package metrics

// BusMetrics observes the notification bus.
//
// Implementations must be safe for concurrent use. Pass nil to disable
// collection.
type BusMetrics interface {
	// SetState records the current connection state
	// ("connecting", "connected", "reconnecting", "disconnected").
	SetState(state string)

	// ObserveReconnect counts a reconnect attempt.
	ObserveReconnect()

	// ObserveEvent counts a delivered push event by type
	// ("report-shared", "report-revoked").
	ObserveEvent(kind string)

	// ObserveDropped counts an event a slow subscriber missed.
	ObserveDropped()
}
