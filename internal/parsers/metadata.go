package parsers

import (
	"regexp"
	"strings"

	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/internal/normalizer"
)

var (
	accountLine  = regexp.MustCompile(`\bCUENTA\b(?:\s+(?:CORRIENTE|DE AHORROS?))?(?:\s+N[O°º]?\.?)?\s*:?\s*([0-9][0-9\-]{5,})`)
	currencyLine = regexp.MustCompile(`\bMONEDA\b\s*:?\s*([A-Z$₡¢]+)`)
	metadataLine = regexp.MustCompile(`^(FECHA DE CORTE|SALDO ANTERIOR|SALDO FINAL|TOTAL (?:DE )?DEBITOS|TOTAL (?:DE )?CREDITOS)\b\s*:?\s*(.+)$`)
	amountInLine = regexp.MustCompile(`-?\(?[₡$¢]?\s*\d+(?:[.,]\d{3})*[.,]\d{2}\)?-?`)
)

// upperFold upper-cases and strips accents so "DÉBITOS" matches "DEBITOS"
func upperFold(s string) string {
	return strings.ToUpper(normalizer.StripDiacritics(strings.TrimSpace(s)))
}

// applyContext updates the active account and currency from a context
// declaration line. It reports whether the line was one.
func applyContext(upper string, state *parseState, meta *models.StatementMetadata) bool {
	matched := false

	if m := accountLine.FindStringSubmatch(upper); m != nil {
		state.account = m[1]
		if meta.AccountID == "" {
			meta.AccountID = m[1]
		}
		if !containsString(meta.Accounts, m[1]) {
			meta.Accounts = append(meta.Accounts, m[1])
		}
		matched = true
	}

	if m := currencyLine.FindStringSubmatch(upper); m != nil {
		if c := normalizer.ParseCurrency(m[1]); c != models.CurrencyUnknown {
			state.currency = c
			if meta.Currency == models.CurrencyUnknown {
				meta.Currency = c
			}
			matched = true
		}
	}

	return matched
}

// applyMetadata records cut-off date, balances and totals. Values that do
// not parse are ignored; metadata never fails a document.
func (p *StatementParser) applyMetadata(upper string, state *parseState, meta *models.StatementMetadata) bool {
	m := metadataLine.FindStringSubmatch(upper)
	if m == nil {
		return false
	}
	label, value := m[1], strings.TrimSpace(m[2])

	if label == "FECHA DE CORTE" {
		if cutoff, err := p.dates.ParseDate(value); err == nil && meta.CutoffDate.IsZero() {
			meta.CutoffDate = cutoff
			state.cutoff = cutoff
		}
		return true
	}

	token := amountInLine.FindString(value)
	if token == "" {
		return true
	}
	amount, err := normalizer.ParseAmount(token, p.layout.Locale)
	if err != nil {
		return true
	}

	switch {
	case label == "SALDO ANTERIOR":
		meta.OpeningBalance = amount.Value
	case label == "SALDO FINAL":
		meta.ClosingBalance = amount.Value
	case strings.HasSuffix(label, "DEBITOS"):
		meta.TotalDebits = amount.Value.Abs()
	case strings.HasSuffix(label, "CREDITOS"):
		meta.TotalCredits = amount.Value.Abs()
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
