package extractors

import (
	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/internal/normalizer"
)

var withdrawalPhrases = []string{
	"retiro sin tarjeta",
	"retiro de efectivo sin tarjeta",
	"codigo de retiro",
	"retiro en cajero",
}

// defaultWithdrawalCounterparty names cash withdrawals with no ATM anchor
const defaultWithdrawalCounterparty = "RETIRO SIN TARJETA"

// CardlessWithdrawal extracts ATM withdrawals authorized by code
type CardlessWithdrawal struct {
	base
}

// NewCardlessWithdrawal creates the cardless withdrawal extractor
func NewCardlessWithdrawal(dates *normalizer.DateParser) *CardlessWithdrawal {
	return &CardlessWithdrawal{base{name: "cardless_withdrawal", dates: dates, locale: normalizer.LocaleDecimalPoint}}
}

// Detect matches withdrawal notifications
func (w *CardlessWithdrawal) Detect(doc *models.RawDocument) bool {
	return w.isMessage(doc) && containsAny(normalizer.Fold(messageText(doc)), withdrawalPhrases)
}

// Extract reads a withdrawal. The ATM location is optional.
func (w *CardlessWithdrawal) Extract(doc *models.RawDocument) (*Extraction, error) {
	ex, a, err := w.start(doc, models.KindWithdrawal, models.DirectionDebit)
	if err != nil {
		return nil, err
	}

	ex.Counterparty = optional(a, "cajero")
	if ex.Counterparty == "" {
		ex.Counterparty = defaultWithdrawalCounterparty
	}
	ex.Memo = optional(a, "concepto")
	return ex, nil
}
