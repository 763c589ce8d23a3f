package domain

import "time"

// PatternType tags the category of a stored pattern
type PatternType string

const (
	PatternTypeTransaction PatternType = "transaction"
	PatternTypeRoute       PatternType = "route"
	PatternTypeStructuring PatternType = "structuring"
)

// StoredPattern is a persisted pattern record, keyed by "{type}:{fingerprint}".
// Confidence and success rate evolve via EMA updates and are always clamped
// to [0.01, 0.99].
type StoredPattern struct {
	Key            string      `json:"key"`
	Type           PatternType `json:"type"`
	Features       string      `json:"pattern"` // serialized feature mapping
	Confidence     float64     `json:"confidence"`
	SuccessRate    float64     `json:"success_rate"`
	DetectionCount int64       `json:"detection_count"`
	LastSeen       time.Time   `json:"last_seen"`
}

// SimilarPattern is one advisory match returned by a similarity lookup
type SimilarPattern struct {
	Type        PatternType `json:"type"`
	Pattern     string      `json:"pattern,omitempty"`
	Confidence  float64     `json:"confidence"`
	SuccessRate float64     `json:"success_rate,omitempty"`
}

// EntityReputation is the sidecar reputation record kept per entity name
type EntityReputation struct {
	EntityName         string    `json:"entity_name"`
	RiskScore          float64   `json:"risk_score"`
	SanctionsStatus    string    `json:"sanctions_status"`
	AdverseMedia       string    `json:"adverse_media"`
	InvestigationCount int64     `json:"investigation_count"`
	LastUpdated        time.Time `json:"last_updated"`
}

// InvestigationMetrics summarizes one completed investigation for the
// short-retention metrics record
type InvestigationMetrics struct {
	DurationSeconds float64   `json:"duration_seconds"`
	AgentsSpawned   int       `json:"agents_spawned"`
	PatternsMatched int       `json:"patterns_matched"`
	RiskLevel       RiskLevel `json:"risk_level"`
	Timestamp       time.Time `json:"timestamp"`
}
