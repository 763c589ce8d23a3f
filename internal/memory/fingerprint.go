package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Fingerprint returns the content-addressed key fragment for a feature
// mapping: the first 16 hex characters of a SHA-256 over the canonical JSON
// serialization. json.Marshal sorts map keys, so identical features produce
// identical fingerprints regardless of insertion order.
func Fingerprint(features map[string]any) string {
	serialized, err := json.Marshal(features)
	if err != nil {
		// Feature mappings are plain JSON-able values; a marshal failure
		// means a caller passed something exotic. Fingerprint it as empty.
		serialized = []byte("{}")
	}
	sum := sha256.Sum256(serialized)
	return hex.EncodeToString(sum[:])[:16]
}

// emaUpdate applies an exponential moving average step: the new observation
// (1 for success, 0 for failure) is blended into the previous rate with
// smoothing factor alpha.
func emaUpdate(previous float64, success bool, alpha float64) float64 {
	observation := 0.0
	if success {
		observation = 1.0
	}
	return alpha*observation + (1-alpha)*previous
}

// clampConfidence bounds a confidence value to [0.01, 0.99]. Stored
// confidence never reaches absolute certainty in either direction.
func clampConfidence(v float64) float64 {
	if v < 0.01 {
		return 0.01
	}
	if v > 0.99 {
		return 0.99
	}
	return v
}
