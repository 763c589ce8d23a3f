package tracker

import (
	"sync"
	"time"

	"github.com/flagflow/ml-service/internal/domain"
	"github.com/flagflow/ml-service/internal/pkg/logger"
)

// Tracker is a concurrency-safe registry of in-flight sub-investigation
// operations. All mutations happen under one mutex; metrics reads take a
// copy so callers never observe the registry mid-update.
type Tracker struct {
	mu         sync.Mutex
	operations map[string]domain.TrackedOperation
	metrics    map[string]*domain.CategoryMetrics

	log *logger.Logger
	now func() time.Time
}

// New creates an empty operation tracker
func New(log *logger.Logger) *Tracker {
	return &Tracker{
		operations: make(map[string]domain.TrackedOperation),
		metrics:    make(map[string]*domain.CategoryMetrics),
		log:        log.Named("operation_tracker"),
		now:        time.Now,
	}
}

// TrackOperation registers the start of an operation and counts the spawn
// against its category
func (t *Tracker) TrackOperation(opID, category, scopeID string) bool {
	op := domain.TrackedOperation{
		ID:        opID,
		Category:  category,
		ScopeID:   scopeID,
		StartedAt: t.now(),
	}

	t.mu.Lock()
	t.operations[opID] = op
	m := t.metrics[category]
	if m == nil {
		m = &domain.CategoryMetrics{}
		t.metrics[category] = m
	}
	m.SpawnCount++
	t.mu.Unlock()

	t.log.OperationTracked(opID, category)
	return true
}

// CompleteOperation removes an operation and folds its duration into the
// category's running totals. An unknown id is an expected race (already
// completed, or never registered) and returns false with a logged warning.
// Category may be empty, in which case the category recorded at tracking
// time is used.
func (t *Tracker) CompleteOperation(opID, content, scopeID, category string) bool {
	t.mu.Lock()
	op, ok := t.operations[opID]
	if !ok {
		t.mu.Unlock()
		t.log.Warn("no tracked operation found",
			logger.StringField("operation_id", opID))
		return false
	}
	delete(t.operations, opID)

	duration := t.now().Sub(op.StartedAt).Seconds()
	if category == "" {
		category = op.Category
	}
	if m, ok := t.metrics[category]; ok {
		m.TotalDuration += duration
		if m.SpawnCount > 0 {
			m.AverageDuration = m.TotalDuration / float64(m.SpawnCount)
		}
	}
	t.mu.Unlock()

	t.log.OperationCompleted(opID, category, duration)
	return true
}

// Metrics returns a point-in-time snapshot of active operations and
// per-category aggregates
func (t *Tracker) Metrics() domain.TrackerMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	agentMetrics := make(map[string]domain.CategoryMetrics, len(t.metrics))
	for category, m := range t.metrics {
		agentMetrics[category] = *m
	}

	return domain.TrackerMetrics{
		ActiveOperations: len(t.operations),
		AgentMetrics:     agentMetrics,
	}
}

// CleanupStaleOperations removes every operation whose age strictly exceeds
// the timeout, guarding against leaked tracking entries when a sub-task
// never reports completion. Operations at exactly the boundary are retained.
// Returns the number of operations removed.
func (t *Tracker) CleanupStaleOperations(timeout time.Duration) int {
	now := t.now()

	t.mu.Lock()
	var stale []domain.TrackedOperation
	for id, op := range t.operations {
		if op.Age(now) > timeout {
			stale = append(stale, op)
			delete(t.operations, id)
		}
	}
	t.mu.Unlock()

	for _, op := range stale {
		t.log.StaleOperationRemoved(op.ID, op.Category, op.Age(now).Seconds())
	}
	return len(stale)
}

// ActiveCount returns the number of currently tracked operations
func (t *Tracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.operations)
}
