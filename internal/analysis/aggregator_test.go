package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagflow/ml-service/internal/config"
	"github.com/flagflow/ml-service/internal/domain"
)

func testScoringConfig() *config.ScoringConfig {
	return &config.ScoringConfig{
		TransactionalWeight:    0.30,
		BehavioralWeight:       0.25,
		NetworkWeight:          0.25,
		TypologyWeight:         0.20,
		HighIndicatorThreshold: 70,
		TopRiskFactors:         5,
		MaxScoringLatency:      200 * time.Millisecond,
	}
}

func TestAggregate_EmptyBundle(t *testing.T) {
	agg := NewAggregator(testScoringConfig())

	for _, bundle := range []*domain.PatternAnalysisBundle{nil, {}} {
		assessment := agg.Aggregate(bundle)
		require.NotNil(t, assessment)
		assert.Zero(t, assessment.OverallRiskScore)
		assert.Equal(t, domain.RiskLevelLow, assessment.RiskLevel)
		assert.Equal(t, domain.SARMonitor, assessment.SARRecommendation)
		assert.Equal(t, domain.ConfidenceLow, assessment.ConfidenceLevel)
		assert.Empty(t, assessment.RiskFactorsSummary)
	}
}

func TestAggregate_WeightedFamilyMaxima(t *testing.T) {
	agg := NewAggregator(testScoringConfig())

	bundle := &domain.PatternAnalysisBundle{
		Transactional: domain.FamilyResult{
			"structuring_indicators": {"threshold_proximity": 95, "pattern_consistency": 10},
		},
		Behavioral: domain.FamilyResult{
			"first_time_analysis": {"amount_risk_for_first_time": 40},
		},
		Network: domain.FamilyResult{
			"geographic_patterns": {"jurisdiction_risk_score": 80},
		},
		Typology: domain.FamilyResult{
			"fincen_typologies": {"layering_scheme_score": 60},
		},
	}

	assessment := agg.Aggregate(bundle)

	// 95*0.30 + 40*0.25 + 80*0.25 + 60*0.20 = 70.5
	assert.Equal(t, 70.5, assessment.OverallRiskScore)
	assert.Equal(t, 95.0, assessment.CategoryScores[domain.FamilyTransactional])
	assert.Equal(t, 40.0, assessment.CategoryScores[domain.FamilyBehavioral])
	assert.Equal(t, 80.0, assessment.CategoryScores[domain.FamilyNetwork])
	assert.Equal(t, 60.0, assessment.CategoryScores[domain.FamilyTypology])
	assert.Equal(t, domain.RiskLevelMedium, assessment.RiskLevel)
	assert.Equal(t, domain.SAREnhancedMonitoring, assessment.SARRecommendation)
}

func TestAggregate_Monotonicity(t *testing.T) {
	agg := NewAggregator(testScoringConfig())

	low := agg.Aggregate(&domain.PatternAnalysisBundle{
		Transactional: domain.FamilyResult{"amount_patterns": {"threshold_avoidance": 50}},
	})
	high := agg.Aggregate(&domain.PatternAnalysisBundle{
		Transactional: domain.FamilyResult{"amount_patterns": {"threshold_avoidance": 90}},
	})

	assert.Greater(t, high.OverallRiskScore, low.OverallRiskScore,
		"raising an indicator must never lower the overall score")
}

func TestAggregate_RiskFactorsSummary(t *testing.T) {
	agg := NewAggregator(testScoringConfig())

	bundle := &domain.PatternAnalysisBundle{
		Transactional: domain.FamilyResult{
			"structuring_indicators": {"threshold_proximity": 95},
			"crypto_fiat_patterns":   {"cash_out_pattern_score": 85, "round_amount_indicator": 40},
		},
		Network: domain.FamilyResult{
			"geographic_patterns": {"jurisdiction_risk_score": 90},
		},
	}

	assessment := agg.Aggregate(bundle)

	require.Len(t, assessment.RiskFactorsSummary, 3, "indicators below 70 are excluded")
	assert.Equal(t, "structuring_indicators: threshold_proximity (Score: 95)", assessment.RiskFactorsSummary[0])
	assert.Equal(t, "geographic_patterns: jurisdiction_risk_score (Score: 90)", assessment.RiskFactorsSummary[1])
	assert.Equal(t, "crypto_fiat_patterns: cash_out_pattern_score (Score: 85)", assessment.RiskFactorsSummary[2])
}

func TestAggregate_RiskFactorsSummaryTopLimit(t *testing.T) {
	cfg := testScoringConfig()
	cfg.TopRiskFactors = 2
	agg := NewAggregator(cfg)

	bundle := &domain.PatternAnalysisBundle{
		Transactional: domain.FamilyResult{
			"crypto_fiat_patterns": {"a": 95, "b": 90, "c": 85, "d": 80},
		},
	}

	assessment := agg.Aggregate(bundle)
	require.Len(t, assessment.RiskFactorsSummary, 2)
	assert.Equal(t, "crypto_fiat_patterns: a (Score: 95)", assessment.RiskFactorsSummary[0])
	assert.Equal(t, "crypto_fiat_patterns: b (Score: 90)", assessment.RiskFactorsSummary[1])
}

func TestEndToEnd_SuspiciousTransaction(t *testing.T) {
	d := newTestDetector()
	agg := NewAggregator(testScoringConfig())

	bundle := d.AnalyzeAll(suspiciousFeatures())
	assessment := agg.Aggregate(bundle)

	assert.Equal(t, 90.0, assessment.OverallRiskScore)
	assert.Equal(t, domain.RiskLevelHigh, assessment.RiskLevel)
	assert.Equal(t, domain.SARFile, assessment.SARRecommendation)
	assert.Equal(t, domain.ConfidenceMediumHigh, assessment.ConfidenceLevel)
	assert.Len(t, assessment.RiskFactorsSummary, 5)
}

func TestEndToEnd_BenignTransaction(t *testing.T) {
	d := newTestDetector()
	agg := NewAggregator(testScoringConfig())

	bundle := d.AnalyzeAll(&domain.TransactionFeatures{
		Amount:             5000,
		TransactionType:    "cash_deposit",
		ToJurisdictionRisk: domain.JurisdictionRiskLow,
		ClaimedExperience:  domain.ExperienceExperienced,
		CustomerExperience: domain.ExperienceExperienced,
	})
	assessment := agg.Aggregate(bundle)

	assert.Less(t, assessment.OverallRiskScore, 60.0)
	assert.Equal(t, domain.RiskLevelLow, assessment.RiskLevel)
	assert.Equal(t, domain.SARMonitor, assessment.SARRecommendation)
	assert.Empty(t, assessment.RiskFactorsSummary)
}
