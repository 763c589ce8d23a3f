package domain

import "context"

// PatternMemory is the pattern-memory store consulted before scoring and
// updated after it. All writes return a success flag instead of an error:
// pattern memory is advisory, and a failed write or lookup must never block
// risk scoring. Implementations log the underlying cause.
type PatternMemory interface {
	StorePattern(ctx context.Context, patternType PatternType, features map[string]any, confidence, successRate float64) bool
	GetSimilarPatterns(ctx context.Context, transactions []Transaction, threshold float64) []SimilarPattern
	UpdatePatternConfidence(ctx context.Context, fingerprint string, success bool) bool
	GetAllPatterns(ctx context.Context) []StoredPattern

	StoreEntityReputation(ctx context.Context, entityName string, reputation EntityReputation) bool
	GetEntityReputation(ctx context.Context, entityName string) (*EntityReputation, bool)

	StoreSuccessfulQuery(ctx context.Context, queryType, queryTemplate string, effectiveness float64) bool
	GetBestQueries(ctx context.Context, queryType string, limit int) []string

	StoreInvestigationMetrics(ctx context.Context, investigationID string, metrics InvestigationMetrics) bool

	Ping(ctx context.Context) error
}

// AssessmentRepository persists completed risk assessments for audit.
// Persistence failures are reported but do not fail the investigation.
type AssessmentRepository interface {
	SaveAssessment(ctx context.Context, result *InvestigationResult) error
}

// EventPublisher emits assessment events to downstream consumers
type EventPublisher interface {
	PublishAssessment(ctx context.Context, result *InvestigationResult) error
	PublishAlert(ctx context.Context, result *InvestigationResult) error
}
