package parsers

import (
	"fmt"
	"strings"

	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/internal/normalizer"
	"bank-ledger-reconciler/pkg/errors"

	"github.com/shopspring/decimal"
)

// positionalRow classifies a reconstructed line by its zones. It returns
// (nil, nil) for lines that are not table rows, and a RowError for lines
// whose reference zone claims a row that then fails to parse.
func (p *StatementParser) positionalRow(line textLine, state *parseState, docID string) (*Row, *errors.RowError) {
	reference := line.Zones[ZoneReference]
	if !p.layout.referenceRe.MatchString(reference) {
		return nil, nil
	}

	at := &errors.RowContext{DocumentID: docID, Page: line.Page, Line: line.Number}

	date := strings.ToUpper(line.Zones[ZoneDate])
	if !p.layout.dateRe.MatchString(date) {
		at.Zone, at.Value = ZoneDate.String(), date
		return nil, errors.RowSkipped(at, "date zone is not MON/DD", nil).WithLineContent(line.Text)
	}

	occurred, err := p.dates.ParseShortDate(date, state.cutoff)
	if err != nil {
		at.Zone, at.Value = ZoneDate.String(), date
		return nil, errors.RowSkipped(at, "invalid date", err).WithLineContent(line.Text)
	}

	amount, direction, zone, err := resolveAmount(line.Zones[ZoneDebit], line.Zones[ZoneCredit], p.layout.Locale)
	if err != nil {
		at.Zone = zone.String()
		return nil, errors.RowSkipped(at, "unusable amount", err).WithLineContent(line.Text)
	}

	return &Row{
		Reference:   reference,
		OccurredAt:  occurred,
		Description: line.Zones[ZoneDescription],
		Amount:      amount,
		Direction:   direction,
		Currency:    state.currency,
		AccountID:   state.account,
		Page:        line.Page,
		Line:        line.Number,
	}, nil
}

// resolveAmount picks amount and sign from the debit and credit columns.
// Exactly one non-empty column decides both; when both are present the
// larger magnitude wins (debit on a tie); when neither is, the row is
// rejected. Zero amounts count as empty.
func resolveAmount(debitToken, creditToken string, locale normalizer.Locale) (decimal.Decimal, models.Direction, Zone, error) {
	debit, err := columnAmount(debitToken, locale)
	if err != nil {
		return decimal.Zero, "", ZoneDebit, err
	}
	credit, err := columnAmount(creditToken, locale)
	if err != nil {
		return decimal.Zero, "", ZoneCredit, err
	}

	switch {
	case debit.IsZero() && credit.IsZero():
		return decimal.Zero, "", ZoneDebit, fmt.Errorf("no amount in debit or credit column")
	case credit.IsZero():
		return debit, models.DirectionDebit, ZoneDebit, nil
	case debit.IsZero():
		return credit, models.DirectionCredit, ZoneCredit, nil
	case credit.GreaterThan(debit):
		return credit, models.DirectionCredit, ZoneCredit, nil
	default:
		return debit, models.DirectionDebit, ZoneDebit, nil
	}
}

func columnAmount(token string, locale normalizer.Locale) (decimal.Decimal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return decimal.Zero, nil
	}
	amount, err := normalizer.ParseAmount(token, locale)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Value.Abs(), nil
}
