// Package normalizer turns raw amount and date tokens from bank documents
// into typed values.
//
// Two separator conventions coexist across document sub-formats:
// period-thousands/comma-decimal ("2.500,00") and comma-thousands/
// period-decimal ("12,500.00"). When both separators appear the rightmost
// one is the decimal point. When a single separator appears once and is
// followed by exactly two digits it is the decimal point; otherwise it is a
// thousands grouping and every group after the first must have three digits.
// A Locale hint overrides the single-separator rule for formats whose
// convention is known.
package normalizer

import (
	"strings"

	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/pkg/errors"

	"github.com/shopspring/decimal"
)

// Locale hints which separator is the decimal point
type Locale int

const (
	LocaleAuto Locale = iota
	LocaleDecimalComma
	LocaleDecimalPoint
)

// String returns the locale name
func (l Locale) String() string {
	switch l {
	case LocaleDecimalComma:
		return "decimal_comma"
	case LocaleDecimalPoint:
		return "decimal_point"
	default:
		return "auto"
	}
}

// Amount is a parsed monetary token
type Amount struct {
	Value    decimal.Decimal
	Currency models.Currency
}

// currencyMarkers is checked in order; longer markers shadow their suffixes.
var currencyMarkers = []struct {
	marker   string
	currency models.Currency
}{
	{"US$", models.CurrencyUSD},
	{"USD", models.CurrencyUSD},
	{"DÓLARES", models.CurrencyUSD},
	{"DOLARES", models.CurrencyUSD},
	{"CRC", models.CurrencyCRC},
	{"COLONES", models.CurrencyCRC},
	{"₡", models.CurrencyCRC},
	{"¢", models.CurrencyCRC},
	{"$", models.CurrencyUSD},
}

// DetectCurrency returns the first currency marker found in text
func DetectCurrency(text string) models.Currency {
	upper := strings.ToUpper(text)
	for _, m := range currencyMarkers {
		if strings.Contains(upper, m.marker) {
			return m.currency
		}
	}
	return models.CurrencyUnknown
}

// ParseCurrency maps a currency word or code onto the supported set
func ParseCurrency(word string) models.Currency {
	return DetectCurrency(strings.TrimSpace(word))
}

// ParseAmount parses a monetary token such as "2.500,00 CRC" or "$12.50".
// The sign is preserved for "-" prefixes/suffixes and parentheses.
func ParseAmount(token string, hint Locale) (Amount, error) {
	var result Amount

	body := strings.ToUpper(strings.TrimSpace(token))
	for _, m := range currencyMarkers {
		if strings.Contains(body, m.marker) {
			if result.Currency == models.CurrencyUnknown {
				result.Currency = m.currency
			}
			body = strings.ReplaceAll(body, m.marker, "")
		}
	}
	body = strings.Map(func(r rune) rune {
		switch r {
		case ' ', ' ', '\t':
			return -1
		}
		return r
	}, body)

	if body == "" {
		return result, errors.NumberError(errors.CodeInvalidNumber, token, "no digits")
	}

	negative := false
	switch {
	case strings.HasPrefix(body, "(") && strings.HasSuffix(body, ")"):
		negative = true
		body = body[1 : len(body)-1]
	case strings.HasPrefix(body, "-"):
		negative = true
		body = body[1:]
	case strings.HasSuffix(body, "-"):
		negative = true
		body = body[:len(body)-1]
	case strings.HasPrefix(body, "+"):
		body = body[1:]
	}

	if body == "" || !isDigit(body[0]) || !isDigit(body[len(body)-1]) {
		return result, errors.NumberError(errors.CodeInvalidNumber, token, "must start and end with a digit")
	}
	for i := 0; i < len(body); i++ {
		if !isDigit(body[i]) && body[i] != '.' && body[i] != ',' {
			return result, errors.NumberError(errors.CodeInvalidNumber, token, "unexpected character "+string(body[i]))
		}
	}

	integer, fraction, err := splitSeparators(body, hint)
	if err != nil {
		return result, errors.NumberError(errors.CodeAmbiguousNumberFormat, token, err.Error())
	}

	literal := integer
	if fraction != "" {
		literal += "." + fraction
	}
	value, err := decimal.NewFromString(literal)
	if err != nil {
		return result, errors.NumberError(errors.CodeInvalidNumber, token, err.Error())
	}
	if negative {
		value = value.Neg()
	}
	result.Value = value
	return result, nil
}

type separatorError string

func (e separatorError) Error() string { return string(e) }

// splitSeparators returns the integer digits and fraction digits of body,
// which contains only digits, '.' and ','.
func splitSeparators(body string, hint Locale) (string, string, error) {
	dots := strings.Count(body, ".")
	commas := strings.Count(body, ",")

	switch {
	case dots == 0 && commas == 0:
		return body, "", nil

	case dots > 0 && commas > 0:
		decimalSep, groupSep := byte('.'), byte(',')
		if strings.LastIndexByte(body, ',') > strings.LastIndexByte(body, '.') {
			decimalSep, groupSep = ',', '.'
		}
		if strings.Count(body, string(decimalSep)) != 1 {
			return "", "", separatorError("decimal separator appears more than once")
		}
		idx := strings.IndexByte(body, decimalSep)
		integer, err := ungroup(body[:idx], groupSep)
		if err != nil {
			return "", "", err
		}
		return integer, body[idx+1:], nil
	}

	sep := byte('.')
	count := dots
	if commas > 0 {
		sep = ','
		count = commas
	}

	isDecimal := false
	switch {
	case hint == LocaleDecimalComma && sep == ',', hint == LocaleDecimalPoint && sep == '.':
		if count > 1 {
			return "", "", separatorError("decimal separator appears more than once")
		}
		isDecimal = true
	case hint == LocaleDecimalComma || hint == LocaleDecimalPoint:
		isDecimal = false
	default:
		isDecimal = count == 1 && len(body)-strings.IndexByte(body, sep)-1 == 2
	}

	if isDecimal {
		idx := strings.IndexByte(body, sep)
		return body[:idx], body[idx+1:], nil
	}

	integer, err := ungroup(body, sep)
	return integer, "", err
}

// ungroup validates thousands grouping and strips the separator
func ungroup(s string, sep byte) (string, error) {
	if strings.IndexByte(s, sep) < 0 {
		return s, nil
	}
	groups := strings.Split(s, string(sep))
	if len(groups[0]) == 0 || len(groups[0]) > 3 {
		return "", separatorError("leading group must have one to three digits")
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return "", separatorError("thousands group " + g + " is not three digits")
		}
	}
	return strings.Join(groups, ""), nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
