package parsers

import (
	"fmt"
	"regexp"
	"strings"

	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/internal/normalizer"
)

// Zone is a horizontal band of the statement table
type Zone int

const (
	ZoneReference Zone = iota
	ZoneDate
	ZoneDescription
	ZoneDebit
	ZoneCredit
	zoneCount
)

var zoneNames = [...]string{"reference", "date", "description", "debit", "credit"}

// String returns the zone name
func (z Zone) String() string {
	if z < 0 || z >= zoneCount {
		return "unknown"
	}
	return zoneNames[z]
}

// StatementLayout describes where the columns of a statement table sit.
// Thresholds are x-coordinates in PDF points: a character with
// x0 < ReferenceMax is in the reference zone, x0 < DateMax in the date
// zone, and so on; anything past DebitMax is credit.
type StatementLayout struct {
	Name              string            `json:"name" mapstructure:"name"`
	YTolerance        float64           `json:"y_tolerance" mapstructure:"y_tolerance"`
	WordGap           float64           `json:"word_gap" mapstructure:"word_gap"`
	ReferenceMax      float64           `json:"reference_max" mapstructure:"reference_max"`
	DateMax           float64           `json:"date_max" mapstructure:"date_max"`
	DescriptionMax    float64           `json:"description_max" mapstructure:"description_max"`
	DebitMax          float64           `json:"debit_max" mapstructure:"debit_max"`
	ReferencePattern  string            `json:"reference_pattern" mapstructure:"reference_pattern"`
	DatePattern       string            `json:"date_pattern" mapstructure:"date_pattern"`
	Locale            normalizer.Locale `json:"locale" mapstructure:"locale"`
	DefaultCurrency   models.Currency   `json:"default_currency" mapstructure:"default_currency"`
	FallbackCreditCol int               `json:"fallback_credit_column" mapstructure:"fallback_credit_column"`
	Blacklist         []string          `json:"blacklist" mapstructure:"blacklist"`
	CreditKeywords    []string          `json:"credit_keywords" mapstructure:"credit_keywords"`
	Description       string            `json:"description,omitempty" mapstructure:"description"`

	referenceRe *regexp.Regexp
	dateRe      *regexp.Regexp
}

// Validate checks the layout and compiles its patterns
func (l *StatementLayout) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("layout name cannot be empty")
	}

	if l.YTolerance <= 0 {
		return fmt.Errorf("y tolerance must be positive, got %v", l.YTolerance)
	}

	if !(0 < l.ReferenceMax && l.ReferenceMax < l.DateMax && l.DateMax < l.DescriptionMax && l.DescriptionMax < l.DebitMax) {
		return fmt.Errorf("zone thresholds must increase: %v < %v < %v < %v",
			l.ReferenceMax, l.DateMax, l.DescriptionMax, l.DebitMax)
	}

	if l.FallbackCreditCol < 0 {
		return fmt.Errorf("fallback credit column cannot be negative, got %d", l.FallbackCreditCol)
	}

	if l.DefaultCurrency != models.CurrencyUnknown && !l.DefaultCurrency.IsValid() {
		return fmt.Errorf("unsupported default currency %q", l.DefaultCurrency)
	}

	var err error
	if l.referenceRe, err = regexp.Compile(l.ReferencePattern); err != nil {
		return fmt.Errorf("invalid reference pattern: %w", err)
	}
	if l.dateRe, err = regexp.Compile(l.DatePattern); err != nil {
		return fmt.Errorf("invalid date pattern: %w", err)
	}

	return nil
}

// ZoneFor classifies an x-coordinate
func (l *StatementLayout) ZoneFor(x float64) Zone {
	switch {
	case x < l.ReferenceMax:
		return ZoneReference
	case x < l.DateMax:
		return ZoneDate
	case x < l.DescriptionMax:
		return ZoneDescription
	case x < l.DebitMax:
		return ZoneDebit
	default:
		return ZoneCredit
	}
}

// IsBlacklisted reports whether an upper-cased line is boilerplate
func (l *StatementLayout) IsBlacklisted(upper string) bool {
	for _, word := range l.Blacklist {
		if strings.Contains(upper, word) {
			return true
		}
	}
	return false
}

// HasCreditKeyword reports whether an upper-cased description reads as a credit
func (l *StatementLayout) HasCreditKeyword(upper string) bool {
	for _, word := range l.CreditKeywords {
		if strings.Contains(upper, word) {
			return true
		}
	}
	return false
}

// DefaultStatementLayout returns the layout of the standard account statement
func DefaultStatementLayout() *StatementLayout {
	return &StatementLayout{
		Name:              "standard",
		YTolerance:        3,
		WordGap:           7,
		ReferenceMax:      90,
		DateMax:           140,
		DescriptionMax:    360,
		DebitMax:          460,
		ReferencePattern:  `^\d{9}$`,
		DatePattern:       `^[A-Z]{3}/\d{2}$`,
		Locale:            normalizer.LocaleAuto,
		DefaultCurrency:   models.CurrencyCRC,
		FallbackCreditCol: 80,
		Blacklist: []string{
			"SALDO",
			"TOTAL",
			"PAGINA",
			"ESTADO DE CUENTA",
			"FECHA DE CORTE",
			"REFERENCIA FECHA",
			"CONTINUA",
		},
		CreditKeywords: []string{
			"DEPOSITO",
			"ABONO",
			"CREDITO",
			"RECIBID",
			"INTERESES GANADOS",
			"DEVOLUCION",
		},
		Description: "Account statement with reference, MON/DD date, description, debit and credit columns",
	}
}

// CompactStatementLayout is the narrower layout used for USD sub-accounts
func CompactStatementLayout() *StatementLayout {
	l := DefaultStatementLayout()
	l.Name = "compact"
	l.ReferenceMax = 80
	l.DateMax = 125
	l.DescriptionMax = 320
	l.DebitMax = 410
	l.FallbackCreditCol = 70
	l.DefaultCurrency = models.CurrencyUSD
	l.Description = "Narrow statement layout for USD accounts"
	return l
}

// GetStatementLayout returns a predefined layout by name
func GetStatementLayout(name string) *StatementLayout {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "standard":
		return DefaultStatementLayout()
	case "compact":
		return CompactStatementLayout()
	default:
		return nil
	}
}

// ListAvailableLayouts returns the names of the predefined layouts
func ListAvailableLayouts() []string {
	return []string{"standard", "compact"}
}
