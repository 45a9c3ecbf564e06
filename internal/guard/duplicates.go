package guard

import (
	"fmt"

	"bank-ledger-reconciler/internal/models"
)

type softKey struct {
	merchant string
	amount   string
	currency models.Currency
	day      string
}

// FlagSoftDuplicates warns about transactions in txns that share
// normalized merchant, amount, currency and calendar day with another
// transaction in txns or existing. Nothing is rejected: two same-day
// purchases of the same amount at the same merchant are legitimate.
func (g *Guard) FlagSoftDuplicates(txns, existing []*models.CanonicalTransaction) []string {
	warnings := FlagSoftDuplicates(txns, existing)
	if len(warnings) > 0 {
		g.logger.WithField("groups", len(warnings)).Warn("Possible duplicate transactions")
	}
	return warnings
}

// FlagSoftDuplicates is the pure form of Guard.FlagSoftDuplicates.
// Warnings are ordered by first appearance in txns.
func FlagSoftDuplicates(txns, existing []*models.CanonicalTransaction) []string {
	groups := make(map[softKey]int)
	seen := make(map[*models.CanonicalTransaction]bool)

	add := func(t *models.CanonicalTransaction) {
		if t == nil || seen[t] {
			return
		}
		seen[t] = true
		groups[keyOf(t)]++
	}
	for _, t := range existing {
		add(t)
	}

	var order []softKey
	newCount := make(map[softKey]int)
	for _, t := range txns {
		if t == nil || seen[t] {
			continue
		}
		add(t)
		k := keyOf(t)
		if newCount[k] == 0 {
			order = append(order, k)
		}
		newCount[k]++
	}

	var warnings []string
	for _, k := range order {
		if groups[k] < 2 {
			continue
		}
		warnings = append(warnings, fmt.Sprintf("possible duplicate: %d transactions at %q for %s %s on %s",
			groups[k], k.merchant, k.amount, k.currency, k.day))
	}
	return warnings
}

func keyOf(t *models.CanonicalTransaction) softKey {
	return softKey{
		merchant: t.CounterpartyNormalized,
		amount:   t.Amount.StringFixed(2),
		currency: t.Currency,
		day:      t.Day(),
	}
}
