package parsers

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/pkg/errors"

	"github.com/shopspring/decimal"
)

const amountPattern = `-?\(?[₡$¢]?\d+(?:[.,]\d{3})*[.,]\d{2}\)?-?`

var (
	// primaryRowPattern is the fixed row grammar:
	// reference, date, description, one or two amounts.
	primaryRowPattern = regexp.MustCompile(`^\s*(\S+)\s+(\S+)\s+(.+?)\s+(` + amountPattern + `)(?:\s+(` + amountPattern + `))?\s*$`)
	amountToken       = regexp.MustCompile(`^` + amountPattern + `$`)
	tokenPattern      = regexp.MustCompile(`\S+`)
)

// fallbackRow recovers a row from plain line text. The fixed grammar is
// tried first, then the permissive tokenizer. Lines without a reference
// prefix are not rows; lines with one that cannot be completed are skipped.
func (p *StatementParser) fallbackRow(line textLine, state *parseState, docID string) (*Row, *errors.RowError) {
	text := line.Text
	at := &errors.RowContext{DocumentID: docID, Line: line.Number}

	if m := primaryRowPattern.FindStringSubmatchIndex(text); m != nil {
		reference := text[m[2]:m[3]]
		date := strings.ToUpper(text[m[4]:m[5]])
		if p.layout.referenceRe.MatchString(reference) && p.layout.dateRe.MatchString(date) {
			amounts := []positionedAmount{{token: text[m[8]:m[9]], column: columnOf(text, m[8])}}
			if m[10] >= 0 {
				amounts = append(amounts, positionedAmount{token: text[m[10]:m[11]], column: columnOf(text, m[10])})
			}
			return p.buildFallbackRow(line, state, at, reference, date, text[m[6]:m[7]], amounts)
		}
	}

	return p.tokenizeRow(line, state, at)
}

type positionedAmount struct {
	token  string
	column int
}

// tokenizeRow locates the reference prefix, scans forward for a date token
// and then for monetary tokens. Everything between the date and the first
// monetary token is the description.
func (p *StatementParser) tokenizeRow(line textLine, state *parseState, at *errors.RowContext) (*Row, *errors.RowError) {
	text := line.Text
	spans := tokenPattern.FindAllStringIndex(text, -1)
	if len(spans) == 0 {
		return nil, nil
	}

	reference := text[spans[0][0]:spans[0][1]]
	if !p.layout.referenceRe.MatchString(reference) {
		return nil, nil
	}

	dateIdx := -1
	for i := 1; i < len(spans); i++ {
		tok := strings.ToUpper(strings.Trim(text[spans[i][0]:spans[i][1]], ".,;:"))
		if p.layout.dateRe.MatchString(tok) {
			dateIdx = i
			break
		}
	}
	if dateIdx < 0 {
		at.Zone = ZoneDate.String()
		return nil, errors.RowSkipped(at, "no date token after reference", nil).WithLineContent(strings.TrimSpace(text))
	}
	date := strings.ToUpper(strings.Trim(text[spans[dateIdx][0]:spans[dateIdx][1]], ".,;:"))

	var description []string
	var amounts []positionedAmount
	for i := dateIdx + 1; i < len(spans); i++ {
		tok := text[spans[i][0]:spans[i][1]]
		if amountToken.MatchString(tok) {
			if len(amounts) < 2 {
				amounts = append(amounts, positionedAmount{token: tok, column: columnOf(text, spans[i][0])})
			}
			continue
		}
		if len(amounts) == 0 && strings.Trim(tok, "-|*:") != "" {
			description = append(description, tok)
		}
	}
	if len(amounts) == 0 {
		at.Zone = ZoneDebit.String()
		return nil, errors.RowSkipped(at, "no monetary token after date", nil).WithLineContent(strings.TrimSpace(text))
	}

	return p.buildFallbackRow(line, state, at, reference, date, strings.Join(description, " "), amounts)
}

// buildFallbackRow resolves the sign. Two amounts are the debit and credit
// columns. A single amount is a credit when it starts at or past
// FallbackCreditCol, or when the description carries a credit keyword.
func (p *StatementParser) buildFallbackRow(line textLine, state *parseState, at *errors.RowContext, reference, date, description string, amounts []positionedAmount) (*Row, *errors.RowError) {
	content := strings.TrimSpace(line.Text)

	occurred, err := p.dates.ParseShortDate(date, state.cutoff)
	if err != nil {
		at.Zone, at.Value = ZoneDate.String(), date
		return nil, errors.RowSkipped(at, "invalid date", err).WithLineContent(content)
	}

	description = collapse(description)

	var amount decimal.Decimal
	var direction models.Direction
	var zone Zone

	if len(amounts) == 2 {
		amount, direction, zone, err = resolveAmount(amounts[0].token, amounts[1].token, p.layout.Locale)
	} else {
		debit, credit := amounts[0].token, ""
		if (p.layout.FallbackCreditCol > 0 && amounts[0].column >= p.layout.FallbackCreditCol) ||
			p.layout.HasCreditKeyword(upperFold(description)) {
			debit, credit = "", amounts[0].token
		}
		amount, direction, zone, err = resolveAmount(debit, credit, p.layout.Locale)
	}
	if err != nil {
		at.Zone = zone.String()
		return nil, errors.RowSkipped(at, "unusable amount", err).WithLineContent(content)
	}

	return &Row{
		Reference:   reference,
		OccurredAt:  occurred,
		Description: description,
		Amount:      amount,
		Direction:   direction,
		Currency:    state.currency,
		AccountID:   state.account,
		Line:        line.Number,
	}, nil
}

// columnOf converts a byte offset into a character column
func columnOf(text string, offset int) int {
	return utf8.RuneCountInString(text[:offset])
}
