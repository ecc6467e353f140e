package metrics

import "time"

// APIMetrics observes REST calls made by the API client.
//
// Implementations must be safe for concurrent use. Pass nil to disable
// collection.
//
// Example usage:
//
//	metrics.InitRegistry()
//	client := apiclient.New(baseURL, apiclient.WithMetrics(prometheus.NewAPIMetrics()))
type APIMetrics interface {
	// ObserveRequest records one completed call.
	//
	// Parameters:
	//   - method: HTTP method
	//   - route: path template such as "/share/shared-by/:userId", never the
	//     expanded path, to keep label cardinality bounded
	//   - outcome: "ok" or the error class (e.g. "TimeoutError", "NotFoundError")
	//   - duration: wall time including reading the body
	ObserveRequest(method, route, outcome string, duration time.Duration)
}
