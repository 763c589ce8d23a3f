package analysis

import (
	"math"
	"strings"

	"github.com/flagflow/ml-service/internal/domain"
)

// Detector is the feature-analysis engine. It maps a transaction's feature
// record to per-family indicator scores using the table-driven rules in its
// Ruleset. Every method is pure and side-effect free: identical input yields
// identical output, all predeclared indicator keys are always present, and
// missing optional fields score 0 rather than erroring. Safe for unbounded
// concurrent use.
type Detector struct {
	rules Ruleset
}

// NewDetector creates a detector with the given rule table
func NewDetector(rules Ruleset) *Detector {
	return &Detector{rules: rules}
}

// AnalyzeTransactionPatterns analyzes transactional patterns for money
// laundering indicators
func (d *Detector) AnalyzeTransactionPatterns(f *domain.TransactionFeatures) domain.FamilyResult {
	return domain.FamilyResult{
		"crypto_fiat_patterns":   d.cryptoFiatPatterns(f),
		"timing_patterns":        d.timingPatterns(f),
		"amount_patterns":        d.amountPatterns(f),
		"structuring_indicators": d.structuringIndicators(f),
	}
}

// AssessBehavioralPatterns assesses behavioral patterns for customer due
// diligence and suspicious activity detection
func (d *Detector) AssessBehavioralPatterns(f *domain.TransactionFeatures) domain.FamilyResult {
	return domain.FamilyResult{
		"first_time_analysis":          d.firstTimeAnalysis(f),
		"charitable_donation_patterns": d.charitableDonationPatterns(f),
		"customer_profile_consistency": d.customerProfileConsistency(f),
		"sophistication_mismatch":      d.sophisticationMismatch(f),
	}
}

// DetectNetworkPatterns analyzes the transaction for coordinated activity and
// hidden entity relationships
func (d *Detector) DetectNetworkPatterns(f *domain.TransactionFeatures) domain.FamilyResult {
	return domain.FamilyResult{
		"clustering_analysis":     d.clusteringAnalysis(f),
		"entity_relationships":    d.entityRelationships(f),
		"geographic_patterns":     d.geographicPatterns(f),
		"coordination_indicators": d.coordinationIndicators(f),
	}
}

// ScoreAgainstTypologies scores the transaction against known money
// laundering typologies
func (d *Detector) ScoreAgainstTypologies(f *domain.TransactionFeatures) domain.FamilyResult {
	return domain.FamilyResult{
		"fincen_typologies":          d.fincenTypologies(f),
		"fatf_virtual_asset_flags":   d.fatfVirtualAssetFlags(f),
		"sanctions_evasion_patterns": d.sanctionsEvasionPatterns(f),
		"trade_based_ml_indicators":  d.tradeBasedMLIndicators(f),
	}
}

// AnalyzeAll runs all four families and returns the combined bundle
func (d *Detector) AnalyzeAll(f *domain.TransactionFeatures) *domain.PatternAnalysisBundle {
	return &domain.PatternAnalysisBundle{
		Transactional: d.AnalyzeTransactionPatterns(f),
		Behavioral:    d.AssessBehavioralPatterns(f),
		Network:       d.DetectNetworkPatterns(f),
		Typology:      d.ScoreAgainstTypologies(f),
	}
}

func (d *Detector) cryptoFiatPatterns(f *domain.TransactionFeatures) domain.IndicatorScores {
	scores := domain.IndicatorScores{
		"conversion_velocity_risk": 0,
		"round_amount_indicator":   0,
		"cash_out_pattern_score":   0,
		"layering_indicators":      0,
	}

	// Round amounts suggest artificial structuring
	if math.Mod(f.Amount, d.rules.RoundAmountUnit) == 0 && f.Amount >= d.rules.RoundAmountMin {
		scores["round_amount_indicator"] = d.rules.RoundAmountScore
	}

	// Wire transfer with a crypto wallet attached is a cash-out signature
	if f.TransactionType == d.rules.WireTransferType && f.HasWallet() {
		scores["cash_out_pattern_score"] = d.rules.CashOutPatternScore
	}

	if f.Amount >= d.rules.HighValueAmount {
		scores["conversion_velocity_risk"] = d.rules.ConversionVelocityScore
	}

	return scores
}

func (d *Detector) timingPatterns(f *domain.TransactionFeatures) domain.IndicatorScores {
	scores := domain.IndicatorScores{
		"automation_indicators": 0,
		"coordination_signals":  0,
		"unusual_timing_score":  0,
		"velocity_risk":         0,
	}

	if f.IsHighRiskJurisdiction() {
		scores["unusual_timing_score"] = d.rules.UnusualTimingScore
	}

	// Large amounts with immediate processing suggest pre-planning
	if f.Amount >= d.rules.HighValueAmount {
		scores["velocity_risk"] = d.rules.TimingVelocityScore
	}

	return scores
}

func (d *Detector) amountPatterns(f *domain.TransactionFeatures) domain.IndicatorScores {
	scores := domain.IndicatorScores{
		"threshold_avoidance":       0,
		"statistical_anomaly_score": 0,
		"benford_law_deviation":     0,
		"amount_sophistication":     0,
	}

	// Amounts just below a reporting threshold
	for _, threshold := range d.rules.ReportingThresholds {
		if f.Amount >= threshold*d.rules.ReportingBandRatio && f.Amount < threshold {
			scores["threshold_avoidance"] = d.rules.ThresholdAvoidanceScore
			break
		}
	}

	// First-digit heuristic loosely derived from Benford's law. This is a
	// documented approximation, not a statistically validated distribution
	// test.
	digit := firstDigit(f.Amount)
	if digit > 0 {
		expected := math.Log10(1 + 1/float64(digit))
		if (digit == 1 || digit == 2) && expected < 0.2 {
			scores["benford_law_deviation"] = d.rules.BenfordDeviationScore
		}
	}

	// Large round amounts suggest artificial structuring
	if f.Amount >= d.rules.HighValueAmount && math.Mod(f.Amount, d.rules.SophisticationUnit) == 0 {
		scores["amount_sophistication"] = d.rules.AmountSophistication
	}

	return scores
}

func (d *Detector) structuringIndicators(f *domain.TransactionFeatures) domain.IndicatorScores {
	scores := domain.IndicatorScores{
		"threshold_proximity":     0,
		"pattern_consistency":     0,
		"coordination_likelihood": 0,
		"structuring_risk_score":  0,
	}

	// Proximity to the $10K CTR threshold
	switch {
	case f.Amount >= d.rules.StructuringTightLow && f.Amount <= d.rules.StructuringTightHigh:
		scores["threshold_proximity"] = d.rules.StructuringTightScore
	case f.Amount >= d.rules.StructuringWideLow && f.Amount <= d.rules.StructuringWideHigh:
		scores["threshold_proximity"] = d.rules.StructuringWideScore
	}

	// Exactly at the higher reporting threshold
	if f.Amount == d.rules.HighValueAmount {
		scores["pattern_consistency"] = d.rules.PatternConsistencyScore
	}

	scores["structuring_risk_score"] = maxScore(scores)

	return scores
}

func (d *Detector) firstTimeAnalysis(f *domain.TransactionFeatures) domain.IndicatorScores {
	scores := domain.IndicatorScores{
		"complexity_mismatch":        0,
		"amount_risk_for_first_time": 0,
		"sophistication_indicators":  0,
		"experience_consistency":     0,
	}

	if f.Amount >= d.rules.HighValueAmount {
		scores["amount_risk_for_first_time"] = d.rules.FirstTimeAmountScore
	}

	// Complex cryptocurrency transactions are unusual for beginners
	if f.HasWallet() && f.TransactionType == d.rules.WireTransferType {
		scores["complexity_mismatch"] = d.rules.ComplexityMismatchScore
	}

	if f.IsFirstTime() {
		scores["sophistication_indicators"] = d.rules.SophisticationClaimScore
	}

	return scores
}

func (d *Detector) charitableDonationPatterns(f *domain.TransactionFeatures) domain.IndicatorScores {
	scores := domain.IndicatorScores{
		"amount_legitimacy":      0,
		"timing_validation":      0,
		"recipient_verification": 0,
		"pattern_consistency":    0,
	}

	if f.ClaimsCharitablePurpose() {
		// Large amounts require higher scrutiny for charitable claims
		if f.Amount >= d.rules.HighValueAmount {
			scores["amount_legitimacy"] = d.rules.CharitableAmountScore
		}

		// High-risk jurisdiction for charitable work increases suspicion
		if f.IsHighRiskJurisdiction() {
			scores["recipient_verification"] = d.rules.CharitableRecipientScore
		}
	}

	return scores
}

func (d *Detector) customerProfileConsistency(f *domain.TransactionFeatures) domain.IndicatorScores {
	scores := domain.IndicatorScores{
		"business_purpose_match":    0,
		"complexity_profile_match":  0,
		"amount_profile_match":      0,
		"overall_consistency_score": 0,
	}

	// High complexity transaction with a simple stated purpose
	if f.HasWallet() && strings.ToLower(f.StatedPurpose) == d.rules.CharitableDonationPurpose {
		scores["complexity_profile_match"] = d.rules.ComplexityProfileScore
	}

	// Large amount inconsistent with a first-time user profile
	if f.Amount >= d.rules.HighValueAmount && f.CustomerExperience == domain.ExperienceFirstTime {
		scores["amount_profile_match"] = d.rules.AmountProfileScore
	}

	scores["overall_consistency_score"] = maxScore(scores)

	return scores
}

func (d *Detector) sophisticationMismatch(f *domain.TransactionFeatures) domain.IndicatorScores {
	scores := domain.IndicatorScores{
		"technical_complexity_score": 0,
		"claimed_experience_match":   0,
		"preparation_indicators":     0,
		"mismatch_risk_score":        0,
	}

	// Wallet usage indicates technical sophistication
	if f.HasWallet() {
		scores["technical_complexity_score"] = d.rules.TechnicalComplexityScore
	}

	// Large amounts suggest significant preparation and research
	if f.Amount >= d.rules.HighValueAmount {
		scores["preparation_indicators"] = d.rules.PreparationScore
	}

	if scores["technical_complexity_score"] > d.rules.MismatchTechnicalTrigger && f.IsFirstTime() {
		scores["mismatch_risk_score"] = d.rules.MismatchRiskScore
	}

	return scores
}

func (d *Detector) clusteringAnalysis(f *domain.TransactionFeatures) domain.IndicatorScores {
	scores := domain.IndicatorScores{
		"potential_cluster_membership": 0,
		"coordination_probability":     0,
		"network_centrality":           0,
		"isolation_score":              0,
	}

	if f.Amount >= d.rules.HighValueAmount && f.HasWallet() {
		scores["potential_cluster_membership"] = d.rules.ClusterMembershipScore
	}

	if f.IsHighRiskJurisdiction() {
		scores["coordination_probability"] = d.rules.CoordinationProbabilityScore
	}

	return scores
}

func (d *Detector) entityRelationships(f *domain.TransactionFeatures) domain.IndicatorScores {
	scores := domain.IndicatorScores{
		"entity_complexity_score":   0,
		"beneficial_ownership_risk": 0,
		"corporate_structure_risk":  0,
		"relationship_obscurity":    0,
	}

	if f.IsHighRiskJurisdiction() {
		scores["entity_complexity_score"] = d.rules.EntityComplexityScore
	}

	// Cryptocurrency usage obscures traditional entity relationships
	if f.HasWallet() {
		scores["beneficial_ownership_risk"] = d.rules.BeneficialOwnershipScore
	}

	return scores
}

func (d *Detector) geographicPatterns(f *domain.TransactionFeatures) domain.IndicatorScores {
	scores := domain.IndicatorScores{
		"jurisdiction_risk_score":     0,
		"routing_complexity":          0,
		"geographic_consistency":      0,
		"sanctions_jurisdiction_risk": 0,
	}

	if f.IsHighRiskJurisdiction() {
		scores["jurisdiction_risk_score"] = d.rules.JurisdictionRiskScore
		scores["sanctions_jurisdiction_risk"] = d.rules.SanctionsJurisdictionScore
	}

	// Geographic inconsistency with the stated purpose
	if f.IsHighRiskJurisdiction() && f.ClaimsCharitablePurpose() {
		scores["geographic_consistency"] = d.rules.GeographicConsistencyScore
	}

	return scores
}

func (d *Detector) coordinationIndicators(f *domain.TransactionFeatures) domain.IndicatorScores {
	scores := domain.IndicatorScores{
		"timing_coordination":       0,
		"amount_coordination":       0,
		"method_coordination":       0,
		"overall_coordination_risk": 0,
	}

	if f.Amount == d.rules.HighValueAmount {
		scores["amount_coordination"] = d.rules.AmountCoordinationScore
	}

	if f.HasWallet() && f.TransactionType == d.rules.WireTransferType {
		scores["method_coordination"] = d.rules.MethodCoordinationScore
	}

	scores["overall_coordination_risk"] = maxScore(scores)

	return scores
}

func (d *Detector) fincenTypologies(f *domain.TransactionFeatures) domain.IndicatorScores {
	scores := domain.IndicatorScores{
		"layering_scheme_score":         0,
		"integration_pattern_score":     0,
		"cash_intensive_business_score": 0,
		"shell_company_indicators":      0,
	}

	// Layering scheme indicators (crypto to fiat conversion)
	if f.HasWallet() && f.TransactionType == d.rules.WireTransferType {
		scores["layering_scheme_score"] = d.rules.LayeringSchemeScore
	}

	// Integration pattern (large amounts to high-risk jurisdictions)
	if f.Amount >= d.rules.HighValueAmount && f.IsHighRiskJurisdiction() {
		scores["integration_pattern_score"] = d.rules.IntegrationPatternScore
	}

	return scores
}

func (d *Detector) fatfVirtualAssetFlags(f *domain.TransactionFeatures) domain.IndicatorScores {
	scores := domain.IndicatorScores{
		"rapid_exchange_score":  0,
		"geographic_risk_score": 0,
		"mixing_service_risk":   0,
		"p2p_trading_risk":      0,
	}

	// Rapid conversion from crypto to fiat
	if f.HasWallet() && f.TransactionType == d.rules.WireTransferType {
		scores["rapid_exchange_score"] = d.rules.RapidExchangeScore
	}

	if f.HasWallet() && f.IsHighRiskJurisdiction() {
		scores["geographic_risk_score"] = d.rules.VAGeographicRiskScore
	}

	return scores
}

func (d *Detector) sanctionsEvasionPatterns(f *domain.TransactionFeatures) domain.IndicatorScores {
	scores := domain.IndicatorScores{
		"geographic_routing_score":     0,
		"asset_conversion_score":       0,
		"front_company_risk":           0,
		"third_party_facilitator_risk": 0,
	}

	if f.IsHighRiskJurisdiction() {
		scores["geographic_routing_score"] = d.rules.GeographicRoutingScore
	}

	// Asset conversion to evade detection
	if f.HasWallet() {
		scores["asset_conversion_score"] = d.rules.AssetConversionScore
	}

	return scores
}

func (d *Detector) tradeBasedMLIndicators(f *domain.TransactionFeatures) domain.IndicatorScores {
	scores := domain.IndicatorScores{
		"invoice_manipulation_risk":  0,
		"over_under_invoicing_score": 0,
		"commodity_risk_score":       0,
		"trade_finance_risk":         0,
	}

	if f.Amount >= d.rules.HighValueAmount && f.IsHighRiskJurisdiction() {
		scores["over_under_invoicing_score"] = d.rules.OverUnderInvoicingScore
	}

	return scores
}

// firstDigit returns the leading decimal digit of amount, or 0 for
// non-positive amounts
func firstDigit(amount float64) int {
	if amount <= 0 {
		return 0
	}
	for amount >= 10 {
		amount /= 10
	}
	return int(amount)
}

func maxScore(scores domain.IndicatorScores) float64 {
	var max float64
	for _, s := range scores {
		if s > max {
			max = s
		}
	}
	return max
}
