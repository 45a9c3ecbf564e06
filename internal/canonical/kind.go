package canonical

import (
	"regexp"
	"strings"

	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/internal/normalizer"
)

type kindFamily struct {
	pattern *regexp.Regexp
	kind    func(models.Direction) models.Kind
}

func fixed(k models.Kind) func(models.Direction) models.Kind {
	return func(models.Direction) models.Kind { return k }
}

// kindFamilies are checked in order; the first family present wins
var kindFamilies = []kindFamily{
	{regexp.MustCompile(`\bPAGO (?:TARJETA|TC)\b`), fixed(models.KindCardPayment)},
	{regexp.MustCompile(`\bINTERES\w*\b`), fixed(models.KindFeeInterest)},
	{regexp.MustCompile(`\b(?:COMISION\w*|CARGO|MEMBRESIA|IVA)\b`), fixed(models.KindFeeInterest)},
	{regexp.MustCompile(`\b(?:RETIRO|ATM|CAJERO)\b`), fixed(models.KindWithdrawal)},
	{regexp.MustCompile(`\b(?:SINPE|TRANSF\w*|TEF|TRASPASO)\b`), func(d models.Direction) models.Kind {
		if d == models.DirectionCredit {
			return models.KindTransferIn
		}
		return models.KindTransferOut
	}},
}

// InferKind classifies free text by keyword family. Text with no marker is
// a purchase when it debits the account and an incoming transfer otherwise.
func InferKind(text string, direction models.Direction) models.Kind {
	upper := strings.ToUpper(normalizer.StripDiacritics(normalizer.Unescape(text)))
	for _, f := range kindFamilies {
		if f.pattern.MatchString(upper) {
			return f.kind(direction)
		}
	}
	if direction == models.DirectionCredit {
		return models.KindTransferIn
	}
	return models.KindPurchase
}
