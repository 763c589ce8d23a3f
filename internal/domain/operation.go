package domain

import "time"

// TrackedOperation is one in-flight sub-investigation operation. It is owned
// exclusively by the operation tracker and never shared beyond its registry.
type TrackedOperation struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"` // subagent type, e.g. pattern-detector
	ScopeID   string    `json:"scope_id"`
	StartedAt time.Time `json:"started_at"`
}

// Age returns the elapsed time since the operation was registered
func (o *TrackedOperation) Age(now time.Time) time.Duration {
	return now.Sub(o.StartedAt)
}

// CategoryMetrics is the running aggregate per operation category
type CategoryMetrics struct {
	SpawnCount      int64   `json:"spawn_count"`
	TotalDuration   float64 `json:"total_duration"`   // seconds
	AverageDuration float64 `json:"average_duration"` // seconds
}

// TrackerMetrics is a point-in-time snapshot of the operation tracker
type TrackerMetrics struct {
	ActiveOperations int                        `json:"active_operations"`
	AgentMetrics     map[string]CategoryMetrics `json:"agent_metrics"`
}
