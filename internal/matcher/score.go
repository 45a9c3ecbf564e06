package matcher

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"bank-ledger-reconciler/internal/models"

	"github.com/shopspring/decimal"
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// pairScore is the full scoring of one statement/message pair
type pairScore struct {
	total      float64
	reasons    []string
	amountDiff decimal.Decimal
	dayDiff    int
}

// scorePair scores a pair. It returns false when any signal disqualifies
// the pair; disqualified pairs are never candidates.
func (e *Engine) scorePair(stmt, msg *models.CanonicalTransaction) (*pairScore, bool) {
	if stmt.Currency != msg.Currency || stmt.Direction != msg.Direction {
		return nil, false
	}

	merchant, merchantReason, ok := merchantScore(stmt.CounterpartyNormalized, msg.CounterpartyNormalized)
	if !ok {
		return nil, false
	}

	diff := stmt.Amount.Sub(msg.Amount)
	amount, amountReason, ok := amountScore(diff.Abs(), e.config.AmountTolerance)
	if !ok {
		return nil, false
	}

	days := dayDifference(stmt.OccurredAt, msg.OccurredAt)
	date, dateReason := dateScore(days, e.config.DateToleranceDays)

	return &pairScore{
		total:      merchant + amount + date,
		reasons:    []string{merchantReason, amountReason, dateReason},
		amountDiff: diff,
		dayDiff:    days,
	}, true
}

// merchantScore compares normalized counterparties
func merchantScore(a, b string) (float64, string, bool) {
	if a == "" || b == "" {
		return 0, "", false
	}

	if a == b {
		return MerchantExactPoints, "Exact merchant match", true
	}

	if strings.Contains(a, b) || strings.Contains(b, a) || tokenSubset(a, b) || tokenSubset(b, a) {
		sim := similarity(a, b)
		points := MerchantContainsMin + (MerchantContainsMax-MerchantContainsMin)*sim
		return points, fmt.Sprintf("Merchant containment (similarity %.2f)", sim), true
	}

	return 0, "", false
}

// tokenSubset reports whether every word of a appears in b
func tokenSubset(a, b string) bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(b) {
		words[w] = true
	}
	fields := strings.Fields(a)
	if len(fields) == 0 {
		return false
	}
	for _, w := range fields {
		if !words[w] {
			return false
		}
	}
	return true
}

// similarity is 1 - distance/len(longer), clamped to [0, 1]
func similarity(a, b string) float64 {
	longer := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longer {
		longer = n
	}
	if longer == 0 {
		return 1
	}

	distance := levenshtein.DistanceForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
	return math.Max(0, math.Min(1, 1-float64(distance)/float64(longer)))
}

// amountScore scores the absolute difference between two amounts
func amountScore(diff, tolerance decimal.Decimal) (float64, string, bool) {
	if diff.IsZero() {
		return AmountExactPoints, "Exact amount match", true
	}

	if tolerance.IsPositive() && diff.LessThanOrEqual(tolerance) {
		// Linear decay based on difference relative to tolerance
		ratio := diff.Div(tolerance).InexactFloat64()
		points := AmountWithinMaxPoints * math.Max(0, 1-ratio)
		return points, fmt.Sprintf("Amount within tolerance (off by %s)", diff.StringFixed(2)), true
	}

	return 0, "", false
}

// dateScore never disqualifies: a far date only contributes nothing
func dateScore(days, tolerance int) (float64, string) {
	if days < 0 {
		days = -days
	}

	switch {
	case days == 0:
		return DateSameDayPoints, "Same date"
	case days == 1:
		return DateOneDayPoints, "Dates one day apart"
	case days <= tolerance:
		return DateWithinPoints, fmt.Sprintf("Dates %d days apart, within tolerance", days)
	default:
		return 0, fmt.Sprintf("Dates %d days apart, beyond tolerance", days)
	}
}

// dayDifference returns the signed calendar-day difference a - b, each
// day taken in its own location
func dayDifference(a, b time.Time) int {
	return int(math.Round(civilDay(a).Sub(civilDay(b)).Hours() / 24))
}

func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
