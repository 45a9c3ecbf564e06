package extractors

import (
	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/internal/normalizer"
)

var purchasePhrases = []string{
	"compra",
	"transaccion aprobada",
	"notificacion de transaccion",
	"comercio:",
	"establecimiento:",
}

// Purchase extracts card purchases: "Comercio:", "Monto:", "Fecha:",
// "Tarjeta:", "Autorización:".
type Purchase struct {
	base
}

// NewPurchase creates the purchase extractor. Purchase notifications
// mix "USD 12.50" and "3.000,00 CRC", so amounts keep the automatic rule.
func NewPurchase(dates *normalizer.DateParser) *Purchase {
	return &Purchase{base{name: "purchase", dates: dates}}
}

// Detect matches purchase notifications
func (p *Purchase) Detect(doc *models.RawDocument) bool {
	return p.isMessage(doc) && containsAny(normalizer.Fold(messageText(doc)), purchasePhrases)
}

// Extract reads a purchase. The merchant is mandatory.
func (p *Purchase) Extract(doc *models.RawDocument) (*Extraction, error) {
	ex, a, err := p.start(doc, models.KindPurchase, models.DirectionDebit)
	if err != nil {
		return nil, err
	}

	merchant, err := p.required(doc, a, "comercio", "comercio")
	if err != nil {
		return nil, err
	}
	ex.Counterparty = merchant
	ex.Memo = optional(a, "concepto", "tipo")
	return ex, nil
}
