package domain

// NodeSnapshot is a consistent point-in-time view of one routing target.
// Snapshots are value copies; mutating one never affects the router.
type NodeSnapshot struct {
	ID       string  `json:"id"`
	Capacity int     `json:"capacity"`
	Load     int     `json:"load"`
	// AvgLatencyMs is an exponential moving average of observed stage
	// latency in milliseconds.
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	// ErrorRate is an exponential moving average of the failure
	// indicator (1 on failure, 0 on success), in [0, 1].
	ErrorRate float64 `json:"error_rate"`
}

// HasCapacity reports whether the node can accept one more unit of work.
func (n NodeSnapshot) HasCapacity() bool {
	return n.Load < n.Capacity
}

// Utilization returns load as a fraction of capacity.
func (n NodeSnapshot) Utilization() float64 {
	if n.Capacity <= 0 {
		return 1
	}
	return float64(n.Load) / float64(n.Capacity)
}
