package domain

import (
	"time"

	"github.com/google/uuid"
)

// RiskLevel represents the risk severity of an assessment.
// The four-tier scale below is the canonical one; the six-tier display scale
// used by some reporting surfaces is intentionally not modeled here.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// SARRecommendation is the filing recommendation derived from the overall score
type SARRecommendation string

const (
	SARMonitor            SARRecommendation = "monitor"
	SAREnhancedMonitoring SARRecommendation = "enhanced_monitoring"
	SARFile               SARRecommendation = "file_sar"
)

// ConfidenceLevel rates how consistently the indicators support the verdict
type ConfidenceLevel string

const (
	ConfidenceLow        ConfidenceLevel = "low"
	ConfidenceLowMedium  ConfidenceLevel = "low-medium"
	ConfidenceMedium     ConfidenceLevel = "medium"
	ConfidenceMediumHigh ConfidenceLevel = "medium-high"
	ConfidenceHigh       ConfidenceLevel = "high"
)

// RiskAssessment is the aggregate verdict for one investigation
type RiskAssessment struct {
	OverallRiskScore   float64                    `json:"overall_risk_score"` // 0-100, weighted
	RiskLevel          RiskLevel                  `json:"risk_level"`
	SARRecommendation  SARRecommendation          `json:"sar_filing_recommendation"`
	ConfidenceLevel    ConfidenceLevel            `json:"confidence_level"`
	CategoryScores     map[AnalysisFamily]float64 `json:"category_scores"`
	RiskFactorsSummary []string                   `json:"risk_factors_summary"`
}

// InvestigationResult is what one full investigation run produces: the
// analysis bundle, the aggregate assessment, and any pattern-memory context
// that informed it
type InvestigationResult struct {
	ID              uuid.UUID              `json:"id"`
	Bundle          *PatternAnalysisBundle `json:"analysis"`
	Assessment      *RiskAssessment        `json:"assessment"`
	SimilarPatterns []SimilarPattern       `json:"similar_patterns,omitempty"`
	DurationMs      int64                  `json:"duration_ms"`
	CreatedAt       time.Time              `json:"created_at"`
}

// CalculateRiskLevel returns the risk level for a score on the canonical scale
func CalculateRiskLevel(score float64) RiskLevel {
	switch {
	case score >= 95:
		return RiskLevelCritical
	case score >= 80:
		return RiskLevelHigh
	case score >= 60:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// CalculateSARRecommendation returns the filing recommendation for a score
func CalculateSARRecommendation(score float64) SARRecommendation {
	switch {
	case score >= 75:
		return SARFile
	case score >= 60:
		return SAREnhancedMonitoring
	default:
		return SARMonitor
	}
}

// CalculateConfidenceLevel maps the consistency ratio (fraction of indicators
// scoring at or above 70) combined with the overall score to a confidence
// rating
func CalculateConfidenceLevel(consistencyRatio, score float64) ConfidenceLevel {
	switch {
	case consistencyRatio >= 0.6 && score >= 75:
		return ConfidenceHigh
	case consistencyRatio >= 0.4 && score >= 60:
		return ConfidenceMediumHigh
	case consistencyRatio >= 0.25:
		return ConfidenceMedium
	case consistencyRatio >= 0.1:
		return ConfidenceLowMedium
	default:
		return ConfidenceLow
	}
}
