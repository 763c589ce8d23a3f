package domain

import "strings"

// JurisdictionRisk is the coarse risk tag attached to a destination jurisdiction
type JurisdictionRisk string

const (
	JurisdictionRiskLow    JurisdictionRisk = "low"
	JurisdictionRiskMedium JurisdictionRisk = "medium"
	JurisdictionRiskHigh   JurisdictionRisk = "high"
)

// ExperienceLevel describes a customer's claimed or observed experience
type ExperienceLevel string

const (
	ExperienceFirstTime   ExperienceLevel = "first_time"
	ExperienceOccasional  ExperienceLevel = "occasional"
	ExperienceExperienced ExperienceLevel = "experienced"
)

// TransactionFeatures is the feature record describing one transaction under
// review. It is the immutable input to every analyzer; analyzers never mutate
// it. Optional fields are zero-valued when unknown and analyzers must treat
// them as absent.
type TransactionFeatures struct {
	Amount          float64 `json:"amount"`
	TransactionType string  `json:"transaction_type"` // wire_transfer, cash_deposit, ...

	// Crypto involvement
	BitcoinWallet string `json:"bitcoin_wallet,omitempty"`

	// Routing
	FromEntity   string `json:"from_entity,omitempty"`
	ToEntity     string `json:"to_entity,omitempty"`
	FromLocation string `json:"from_location,omitempty"`
	ToLocation   string `json:"to_location,omitempty"`

	// Risk context
	ToJurisdictionRisk JurisdictionRisk `json:"to_jurisdiction_risk,omitempty"`
	StatedPurpose      string           `json:"stated_purpose,omitempty"`

	// Customer profile
	ClaimedExperience  ExperienceLevel `json:"claimed_experience,omitempty"`
	CustomerExperience ExperienceLevel `json:"customer_experience,omitempty"`

	// Open extension map for contextual flags not modeled above
	Context map[string]string `json:"context,omitempty"`
}

// HasWallet returns true if a cryptocurrency wallet is associated
func (f *TransactionFeatures) HasWallet() bool {
	return f.BitcoinWallet != ""
}

// IsHighRiskJurisdiction returns true if the destination carries a high risk tag
func (f *TransactionFeatures) IsHighRiskJurisdiction() bool {
	return f.ToJurisdictionRisk == JurisdictionRiskHigh
}

// ClaimsCharitablePurpose returns true if the stated purpose mentions a
// charitable donation
func (f *TransactionFeatures) ClaimsCharitablePurpose() bool {
	purpose := strings.ToLower(f.StatedPurpose)
	return strings.Contains(purpose, "charitable") || strings.Contains(purpose, "donation")
}

// IsFirstTime returns true if the customer claims first-time experience
func (f *TransactionFeatures) IsFirstTime() bool {
	return f.ClaimedExperience == ExperienceFirstTime
}

// Transaction is the lightweight record used for pattern-memory similarity
// lookups and pattern learning. It carries only the attributes the memory
// layer fingerprints on.
type Transaction struct {
	Amount       float64 `json:"amount"`
	FromEntity   string  `json:"from_entity,omitempty"`
	ToEntity     string  `json:"to_entity,omitempty"`
	FromLocation string  `json:"from_location,omitempty"`
	ToLocation   string  `json:"to_location,omitempty"`
}

// Route returns the "{from}-{to}" routing key for this transaction
func (t *Transaction) Route() string {
	return t.FromLocation + "-" + t.ToLocation
}

// LearnableFeatures returns the feature mapping persisted when this
// transaction contributes to pattern memory
func (t *Transaction) LearnableFeatures() map[string]any {
	return map[string]any{
		"amount":        t.Amount,
		"from_location": t.FromLocation,
		"to_location":   t.ToLocation,
		"routing":       t.Route(),
	}
}
