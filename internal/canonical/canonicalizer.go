// Package canonical turns extractor output and statement rows into
// CanonicalTransaction records. Normalization never fails: fields that
// cannot be improved pass through cleaned but unmapped, and record
// validity is checked by the caller before persisting.
package canonical

import (
	"bank-ledger-reconciler/internal/extractors"
	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/internal/parsers"

	"github.com/google/uuid"
)

// Context carries the section-level defaults that apply to a record
type Context struct {
	DocumentID string
	AccountID  string
	Currency   models.Currency
}

// Canonicalizer normalizes merchants, infers kinds and fills defaults
type Canonicalizer struct {
	merchants       *MerchantNormalizer
	defaultCurrency models.Currency
	newID           func() string
}

// New creates a Canonicalizer. A nil normalizer uses the built-in aliases.
func New(merchants *MerchantNormalizer, defaultCurrency models.Currency) *Canonicalizer {
	if merchants == nil {
		merchants = NewMerchantNormalizer(DefaultAliases())
	}
	if !defaultCurrency.IsValid() {
		defaultCurrency = models.CurrencyCRC
	}
	return &Canonicalizer{
		merchants:       merchants,
		defaultCurrency: defaultCurrency,
		newID:           uuid.NewString,
	}
}

// Merchants returns the merchant normalizer
func (c *Canonicalizer) Merchants() *MerchantNormalizer {
	return c.merchants
}

// Normalize builds a message-sourced transaction from an extraction
func (c *Canonicalizer) Normalize(ex *extractors.Extraction, ctx Context) *models.CanonicalTransaction {
	if ctx.DocumentID == "" {
		ctx.DocumentID = ex.DocumentID
	}
	if ctx.AccountID == "" {
		ctx.AccountID = ex.AccountHint
	}

	txn := &models.CanonicalTransaction{
		OccurredAt:      ex.OccurredAt,
		Amount:          ex.Amount.Abs(),
		Direction:       ex.Direction,
		Currency:        ex.Currency,
		CounterpartyRaw: ex.Counterparty,
		Kind:            ex.Kind,
		Reference:       ex.Reference,
		Memo:            ex.Memo,
		Source:          models.SourceMessage,
		SourceMessageID: ex.MessageID,
	}
	return c.finish(txn, ctx, ex.Counterparty+" "+ex.Memo)
}

// NormalizeRow builds a statement-sourced transaction. Rows carry their own
// section currency and account; meta supplies the document defaults.
func (c *Canonicalizer) NormalizeRow(row *parsers.Row, meta *models.StatementMetadata) *models.CanonicalTransaction {
	ctx := Context{}
	if meta != nil {
		ctx = Context{DocumentID: meta.DocumentID, AccountID: meta.AccountID, Currency: meta.Currency}
	}
	if row.AccountID != "" {
		ctx.AccountID = row.AccountID
	}

	txn := &models.CanonicalTransaction{
		OccurredAt:      row.OccurredAt,
		Amount:          row.Amount.Abs(),
		Direction:       row.Direction,
		Currency:        row.Currency,
		CounterpartyRaw: row.Description,
		Reference:       row.Reference,
		Source:          models.SourceStatement,
	}
	return c.finish(txn, ctx, row.Description)
}

func (c *Canonicalizer) finish(txn *models.CanonicalTransaction, ctx Context, kindText string) *models.CanonicalTransaction {
	txn.ID = c.newID()
	txn.OriginDocumentID = ctx.DocumentID
	txn.AccountID = ctx.AccountID
	txn.CounterpartyNormalized = c.merchants.Normalize(txn.CounterpartyRaw)

	if !txn.Currency.IsValid() {
		txn.Currency = ctx.Currency
	}
	if !txn.Currency.IsValid() {
		txn.Currency = c.defaultCurrency
	}

	if !txn.Kind.IsValid() {
		txn.Kind = InferKind(kindText, txn.Direction)
	}
	txn.IsTransfer = txn.Kind.IsTransfer()
	txn.IsFeeOrInterest = txn.Kind == models.KindFeeInterest

	return txn
}
