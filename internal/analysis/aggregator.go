package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/flagflow/ml-service/internal/config"
	"github.com/flagflow/ml-service/internal/domain"
)

// Aggregator reduces a pattern analysis bundle to a single risk assessment.
// A family's representative score is the maximum indicator score found
// anywhere within it: for compliance screening the worst single signal
// dominates, an average would dilute it.
type Aggregator struct {
	cfg *config.ScoringConfig
}

// NewAggregator creates an aggregator with the given scoring configuration
func NewAggregator(cfg *config.ScoringConfig) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// Aggregate computes the overall risk assessment for a bundle. It is total
// and deterministic: missing families or indicators contribute 0 and an empty
// bundle yields a zero score at the low risk level.
func (a *Aggregator) Aggregate(bundle *domain.PatternAnalysisBundle) *domain.RiskAssessment {
	if bundle == nil {
		bundle = &domain.PatternAnalysisBundle{}
	}

	weights := map[domain.AnalysisFamily]float64{
		domain.FamilyTransactional: a.cfg.TransactionalWeight,
		domain.FamilyBehavioral:    a.cfg.BehavioralWeight,
		domain.FamilyNetwork:       a.cfg.NetworkWeight,
		domain.FamilyTypology:      a.cfg.TypologyWeight,
	}

	categoryScores := make(map[domain.AnalysisFamily]float64, 4)
	var overall float64
	for _, family := range bundle.Families() {
		max := family.Result.MaxScore()
		categoryScores[family.Name] = max
		overall += max * weights[family.Name]
	}
	overall = math.Round(overall*100) / 100

	highIndicators, totalIndicators := a.countIndicators(bundle)
	var consistencyRatio float64
	if totalIndicators > 0 {
		consistencyRatio = float64(highIndicators) / float64(totalIndicators)
	}

	return &domain.RiskAssessment{
		OverallRiskScore:   overall,
		RiskLevel:          domain.CalculateRiskLevel(overall),
		SARRecommendation:  domain.CalculateSARRecommendation(overall),
		ConfidenceLevel:    domain.CalculateConfidenceLevel(consistencyRatio, overall),
		CategoryScores:     categoryScores,
		RiskFactorsSummary: a.summarizeRiskFactors(bundle),
	}
}

// countIndicators counts all indicators across all families and how many of
// them score at or above the high-indicator threshold
func (a *Aggregator) countIndicators(bundle *domain.PatternAnalysisBundle) (high, total int) {
	for _, family := range bundle.Families() {
		for _, indicators := range family.Result {
			for _, score := range indicators {
				total++
				if score >= a.cfg.HighIndicatorThreshold {
					high++
				}
			}
		}
	}
	return high, total
}

type rankedIndicator struct {
	label string
	score float64
}

// summarizeRiskFactors collects every indicator at or above the high
// threshold, sorted by score descending, and formats the top entries
func (a *Aggregator) summarizeRiskFactors(bundle *domain.PatternAnalysisBundle) []string {
	var ranked []rankedIndicator
	for _, family := range bundle.Families() {
		for subAnalysis, indicators := range family.Result {
			for indicator, score := range indicators {
				if score >= a.cfg.HighIndicatorThreshold {
					ranked = append(ranked, rankedIndicator{
						label: fmt.Sprintf("%s: %s", subAnalysis, indicator),
						score: score,
					})
				}
			}
		}
	}

	// Secondary sort by label keeps output deterministic across map
	// iteration orders
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].label < ranked[j].label
	})

	limit := a.cfg.TopRiskFactors
	if limit <= 0 || limit > len(ranked) {
		limit = len(ranked)
	}

	summary := make([]string, 0, limit)
	for _, r := range ranked[:limit] {
		summary = append(summary, fmt.Sprintf("%s (Score: %g)", r.label, r.score))
	}
	return summary
}
