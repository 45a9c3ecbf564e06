// Package matcher pairs statement transactions with message transactions.
//
// Every candidate pair is scored on three signals with fixed weights that
// sum to 100:
//   - merchant: exact normalized equality, or containment scaled by
//     Levenshtein similarity; no overlap disqualifies the pair
//   - amount: exact, or within an absolute tolerance scaled linearly;
//     anything beyond the tolerance disqualifies the pair
//   - date: same day, one day apart, within tolerance, or nothing
//
// Assignment is greedy: statement transactions are visited in input order
// and each takes the best-scoring message transaction still in the pool.
// The result depends on statement order; this is deliberate and tested.
//
// Example usage:
//
//	config := matcher.DefaultMatchingConfig()
//	config.DateToleranceDays = 2
//
//	engine, err := matcher.NewEngine(config)
//	outcome := engine.Reconcile(statementTxns, messageTxns)
//	if err := outcome.Verify(); err != nil { ... }
package matcher

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Signal weights. Their maxima sum to 100.
const (
	MerchantExactPoints   = 40.0
	MerchantContainsMin   = 20.0
	MerchantContainsMax   = 30.0
	AmountExactPoints     = 40.0
	AmountWithinMaxPoints = 30.0
	DateSameDayPoints     = 20.0
	DateOneDayPoints      = 15.0
	DateWithinPoints      = 8.0
	MaxScore              = MerchantExactPoints + AmountExactPoints + DateSameDayPoints
)

// MatchingConfig holds the tolerances and thresholds of one reconciliation
type MatchingConfig struct {
	// DateToleranceDays is the largest day difference still scored, and
	// the boundary past which a pair is classified as a date mismatch
	DateToleranceDays int `json:"date_tolerance_days" mapstructure:"date_tolerance_days"`

	// AmountTolerance is an absolute difference in the transaction currency
	AmountTolerance decimal.Decimal `json:"amount_tolerance" mapstructure:"amount_tolerance"`

	// MinCandidateScore is the lowest score a pair needs to be assigned
	MinCandidateScore float64 `json:"min_candidate_score" mapstructure:"min_candidate_score"`

	HighConfidence   float64 `json:"high_confidence" mapstructure:"high_confidence"`
	MediumConfidence float64 `json:"medium_confidence" mapstructure:"medium_confidence"`
}

// DefaultMatchingConfig returns a configuration with sensible defaults
func DefaultMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		DateToleranceDays: 3,
		AmountTolerance:   decimal.NewFromInt(1),
		MinCandidateScore: 50,
		HighConfidence:    90,
		MediumConfidence:  70,
	}
}

// StrictMatchingConfig only accepts same-day exact amounts as clean matches
func StrictMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		DateToleranceDays: 0,
		AmountTolerance:   decimal.Zero,
		MinCandidateScore: 70,
		HighConfidence:    95,
		MediumConfidence:  80,
	}
}

// RelaxedMatchingConfig tolerates posting delays and fee-sized differences
func RelaxedMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		DateToleranceDays: 7,
		AmountTolerance:   decimal.NewFromInt(100),
		MinCandidateScore: 45,
		HighConfidence:    85,
		MediumConfidence:  65,
	}
}

// Validate checks if the matching configuration is valid
func (mc *MatchingConfig) Validate() error {
	if mc.DateToleranceDays < 0 {
		return fmt.Errorf("date tolerance days cannot be negative: %d", mc.DateToleranceDays)
	}

	if mc.AmountTolerance.IsNegative() {
		return fmt.Errorf("amount tolerance cannot be negative: %s", mc.AmountTolerance)
	}

	if mc.MinCandidateScore < 0 || mc.MinCandidateScore > MaxScore {
		return fmt.Errorf("minimum candidate score must be between 0 and %.0f: %.2f", MaxScore, mc.MinCandidateScore)
	}

	if mc.HighConfidence < mc.MediumConfidence {
		return fmt.Errorf("high confidence threshold %.2f is below medium %.2f", mc.HighConfidence, mc.MediumConfidence)
	}

	if mc.MediumConfidence < 0 || mc.HighConfidence > MaxScore {
		return fmt.Errorf("confidence thresholds must be between 0 and %.0f", MaxScore)
	}

	return nil
}

// Clone creates a copy of the matching configuration
func (mc *MatchingConfig) Clone() *MatchingConfig {
	if mc == nil {
		return nil
	}
	clone := *mc
	return &clone
}

// IsWithinDateTolerance reports whether a day difference is inside the tolerance
func (mc *MatchingConfig) IsWithinDateTolerance(days int) bool {
	if days < 0 {
		days = -days
	}
	return days <= mc.DateToleranceDays
}

// String returns a human-readable description of the configuration
func (mc *MatchingConfig) String() string {
	return fmt.Sprintf("MatchingConfig{DateTolerance: %d days, AmountTolerance: %s, MinScore: %.0f, High: %.0f, Medium: %.0f}",
		mc.DateToleranceDays, mc.AmountTolerance.StringFixed(2), mc.MinCandidateScore, mc.HighConfidence, mc.MediumConfidence)
}
