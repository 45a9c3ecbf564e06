package extractors

import (
	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/internal/normalizer"
)

var (
	transferInPhrases = []string{
		"transferencia recibida",
		"ha recibido una transferencia",
		"recibio una transferencia",
		"sinpe movil recibido",
		"deposito recibido",
		"credito a su cuenta",
		"remitente:",
		"ordenante:",
	}

	transferOutPhrases = []string{
		"transferencia enviada",
		"transferencia realizada",
		"ha realizado una transferencia",
		"sinpe movil enviado",
		"transferencia a terceros",
		"beneficiario:",
		"destinatario:",
	}
)

// TransferOut extracts transfers sent to a beneficiary
type TransferOut struct {
	base
}

// NewTransferOut creates the outgoing transfer extractor
func NewTransferOut(dates *normalizer.DateParser) *TransferOut {
	return &TransferOut{base{name: "transfer_out", dates: dates, locale: normalizer.LocaleDecimalComma}}
}

// Detect matches outgoing transfer notifications
func (t *TransferOut) Detect(doc *models.RawDocument) bool {
	return t.isMessage(doc) && containsAny(normalizer.Fold(messageText(doc)), transferOutPhrases)
}

// Extract reads the beneficiary, memo and reference of a sent transfer
func (t *TransferOut) Extract(doc *models.RawDocument) (*Extraction, error) {
	ex, a, err := t.start(doc, models.KindTransferOut, models.DirectionDebit)
	if err != nil {
		return nil, err
	}

	beneficiary, err := t.required(doc, a, "beneficiario", "beneficiario")
	if err != nil {
		return nil, err
	}
	ex.Counterparty = beneficiary
	ex.Memo = optional(a, "concepto")
	return ex, nil
}

// TransferIn extracts transfers received from a sender
type TransferIn struct {
	base
}

// NewTransferIn creates the incoming transfer extractor
func NewTransferIn(dates *normalizer.DateParser) *TransferIn {
	return &TransferIn{base{name: "transfer_in", dates: dates, locale: normalizer.LocaleDecimalComma}}
}

// Detect matches incoming transfer notifications
func (t *TransferIn) Detect(doc *models.RawDocument) bool {
	return t.isMessage(doc) && containsAny(normalizer.Fold(messageText(doc)), transferInPhrases)
}

// Extract reads the sender, memo and reference of a received transfer
func (t *TransferIn) Extract(doc *models.RawDocument) (*Extraction, error) {
	ex, a, err := t.start(doc, models.KindTransferIn, models.DirectionCredit)
	if err != nil {
		return nil, err
	}

	sender, err := t.required(doc, a, "remitente", "remitente")
	if err != nil {
		return nil, err
	}
	ex.Counterparty = sender
	ex.Memo = optional(a, "concepto")
	return ex, nil
}
