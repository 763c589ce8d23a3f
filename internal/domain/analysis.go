package domain

// AnalysisFamily identifies one of the four analysis families
type AnalysisFamily string

const (
	FamilyTransactional AnalysisFamily = "transactional_patterns"
	FamilyBehavioral    AnalysisFamily = "behavioral_patterns"
	FamilyNetwork       AnalysisFamily = "network_patterns"
	FamilyTypology      AnalysisFamily = "typology_scores"
)

// IndicatorScores maps a named risk indicator to its score in [0,100].
// Every analyzer returns its full predeclared indicator set; a score of 0
// means the triggering condition is absent, never a missing key.
type IndicatorScores map[string]float64

// FamilyResult maps a sub-analysis name (e.g. "crypto_fiat_patterns") to its
// indicator scores
type FamilyResult map[string]IndicatorScores

// MaxScore returns the highest indicator score anywhere in the family.
// Empty families contribute 0.
func (r FamilyResult) MaxScore() float64 {
	var max float64
	for _, indicators := range r {
		for _, score := range indicators {
			if score > max {
				max = score
			}
		}
	}
	return max
}

// PatternAnalysisBundle is the combined output of the four analyzer families
// for one transaction
type PatternAnalysisBundle struct {
	Transactional FamilyResult `json:"transactional_patterns"`
	Behavioral    FamilyResult `json:"behavioral_patterns"`
	Network       FamilyResult `json:"network_patterns"`
	Typology      FamilyResult `json:"typology_scores"`
}

// Families returns the bundle contents keyed by family name, in the fixed
// aggregation order
func (b *PatternAnalysisBundle) Families() []struct {
	Name   AnalysisFamily
	Result FamilyResult
} {
	return []struct {
		Name   AnalysisFamily
		Result FamilyResult
	}{
		{FamilyTransactional, b.Transactional},
		{FamilyBehavioral, b.Behavioral},
		{FamilyNetwork, b.Network},
		{FamilyTypology, b.Typology},
	}
}
