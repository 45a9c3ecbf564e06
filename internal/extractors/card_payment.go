package extractors

import (
	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/internal/normalizer"
)

var cardPaymentPhrases = []string{
	"pago de tarjeta",
	"pago a tarjeta",
	"pago a su tarjeta",
	"pago tarjeta",
	"pago de tc",
	"pago recibido a su tarjeta",
}

// cardPaymentCounterparty is the counterparty for every card payment; the
// card suffix goes to AccountHint.
const cardPaymentCounterparty = "PAGO TARJETA"

// CardPayment extracts payments to a credit card. The payment leaves the
// paying account, so the direction is debit.
type CardPayment struct {
	base
}

// NewCardPayment creates the card payment extractor
func NewCardPayment(dates *normalizer.DateParser) *CardPayment {
	return &CardPayment{base{name: "card_payment", dates: dates, locale: normalizer.LocaleDecimalComma}}
}

// Detect matches card payment notifications
func (c *CardPayment) Detect(doc *models.RawDocument) bool {
	return c.isMessage(doc) && containsAny(normalizer.Fold(messageText(doc)), cardPaymentPhrases)
}

// Extract reads a card payment
func (c *CardPayment) Extract(doc *models.RawDocument) (*Extraction, error) {
	ex, a, err := c.start(doc, models.KindCardPayment, models.DirectionDebit)
	if err != nil {
		return nil, err
	}

	ex.Counterparty = cardPaymentCounterparty
	ex.Memo = optional(a, "concepto")
	return ex, nil
}
