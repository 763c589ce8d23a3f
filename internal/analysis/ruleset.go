package analysis

// Ruleset is the versioned scoring rule table. Every threshold and score
// constant used by the analyzers lives here so that regulatory rule changes
// are auditable in one place. The default values are the regulatory contract
// and must not drift without compliance sign-off.
type Ruleset struct {
	Version string

	// Amount thresholds
	HighValueAmount     float64   // large-transaction cut point ($50K)
	ReportingThresholds []float64 // CTR-adjacent reporting thresholds
	ReportingBandRatio  float64   // "just below threshold" band start (0.95)

	// Structuring bands around the $10K CTR threshold
	StructuringTightLow  float64 // 9000
	StructuringTightHigh float64 // 9999
	StructuringWideLow   float64 // 8000
	StructuringWideHigh  float64 // 10000

	// Round-amount detection
	RoundAmountUnit    float64 // 1000
	RoundAmountMin     float64 // 10000
	SophisticationUnit float64 // 10000

	// Transactional scores
	RoundAmountScore        float64
	CashOutPatternScore     float64
	ConversionVelocityScore float64
	UnusualTimingScore      float64
	TimingVelocityScore     float64
	ThresholdAvoidanceScore float64
	BenfordDeviationScore   float64
	AmountSophistication    float64
	StructuringTightScore   float64
	StructuringWideScore    float64
	PatternConsistencyScore float64

	// Behavioral scores
	FirstTimeAmountScore      float64
	ComplexityMismatchScore   float64
	SophisticationClaimScore  float64
	CharitableAmountScore     float64
	CharitableRecipientScore  float64
	ComplexityProfileScore    float64
	AmountProfileScore        float64
	TechnicalComplexityScore  float64
	PreparationScore          float64
	MismatchRiskScore         float64
	MismatchTechnicalTrigger  float64 // technical complexity above this triggers mismatch
	CharitableDonationPurpose string  // exact stated purpose matched by profile consistency

	// Network scores
	ClusterMembershipScore       float64
	CoordinationProbabilityScore float64
	EntityComplexityScore        float64
	BeneficialOwnershipScore     float64
	JurisdictionRiskScore        float64
	SanctionsJurisdictionScore   float64
	GeographicConsistencyScore   float64
	AmountCoordinationScore      float64
	MethodCoordinationScore      float64

	// Typology scores
	LayeringSchemeScore     float64
	IntegrationPatternScore float64
	RapidExchangeScore      float64
	VAGeographicRiskScore   float64
	GeographicRoutingScore  float64
	AssetConversionScore    float64
	OverUnderInvoicingScore float64

	// Wire-transfer type literal matched by the crypto cash-out rules
	WireTransferType string
}

// DefaultRuleset returns the current rule table
func DefaultRuleset() Ruleset {
	return Ruleset{
		Version: "2024.1",

		HighValueAmount:     50000,
		ReportingThresholds: []float64{10000, 50000, 100000},
		ReportingBandRatio:  0.95,

		StructuringTightLow:  9000,
		StructuringTightHigh: 9999,
		StructuringWideLow:   8000,
		StructuringWideHigh:  10000,

		RoundAmountUnit:    1000,
		RoundAmountMin:     10000,
		SophisticationUnit: 10000,

		RoundAmountScore:        75,
		CashOutPatternScore:     85,
		ConversionVelocityScore: 90,
		UnusualTimingScore:      70,
		TimingVelocityScore:     80,
		ThresholdAvoidanceScore: 85,
		BenfordDeviationScore:   60,
		AmountSophistication:    75,
		StructuringTightScore:   95,
		StructuringWideScore:    70,
		PatternConsistencyScore: 60,

		FirstTimeAmountScore:      90,
		ComplexityMismatchScore:   85,
		SophisticationClaimScore:  80,
		CharitableAmountScore:     70,
		CharitableRecipientScore:  85,
		ComplexityProfileScore:    75,
		AmountProfileScore:        85,
		TechnicalComplexityScore:  80,
		PreparationScore:          75,
		MismatchRiskScore:         85,
		MismatchTechnicalTrigger:  70,
		CharitableDonationPurpose: "charitable donation",

		ClusterMembershipScore:       75,
		CoordinationProbabilityScore: 70,
		EntityComplexityScore:        80,
		BeneficialOwnershipScore:     75,
		JurisdictionRiskScore:        90,
		SanctionsJurisdictionScore:   85,
		GeographicConsistencyScore:   70,
		AmountCoordinationScore:      70,
		MethodCoordinationScore:      75,

		LayeringSchemeScore:     85,
		IntegrationPatternScore: 80,
		RapidExchangeScore:      80,
		VAGeographicRiskScore:   90,
		GeographicRoutingScore:  85,
		AssetConversionScore:    75,
		OverUnderInvoicingScore: 70,

		WireTransferType: "wire_transfer",
	}
}
