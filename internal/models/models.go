package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentKind discriminates the two document sources
type DocumentKind string

const (
	DocumentMessage   DocumentKind = "message"
	DocumentStatement DocumentKind = "statement"
)

// IsValid checks if the document kind is known
func (k DocumentKind) IsValid() bool {
	return k == DocumentMessage || k == DocumentStatement
}

// Envelope is the minimal metadata delivered alongside a raw document.
// Statements usually carry none of it.
type Envelope struct {
	ReceivedAt time.Time `json:"received_at"`
	Sender     string    `json:"sender,omitempty"`
	Subject    string    `json:"subject,omitempty"`
	MessageID  string    `json:"message_id,omitempty"`
}

// RawDocument holds the bytes of one fetched document. The content is
// copied on construction and never exposed mutably.
type RawDocument struct {
	ID       string       `json:"id"`
	Kind     DocumentKind `json:"kind"`
	Envelope Envelope     `json:"envelope"`
	content  []byte
}

// NewRawDocument creates a document with a fresh ID
func NewRawDocument(kind DocumentKind, content []byte, envelope Envelope) *RawDocument {
	buf := make([]byte, len(content))
	copy(buf, content)
	return &RawDocument{
		ID:       uuid.NewString(),
		Kind:     kind,
		Envelope: envelope,
		content:  buf,
	}
}

// Bytes returns a copy of the document content
func (d *RawDocument) Bytes() []byte {
	buf := make([]byte, len(d.content))
	copy(buf, d.content)
	return buf
}

// Text returns the content as a string
func (d *RawDocument) Text() string {
	return string(d.content)
}

// Len returns the content length in bytes
func (d *RawDocument) Len() int {
	return len(d.content)
}

// ContentHash returns the hex SHA-256 of the content
func (d *RawDocument) ContentHash() string {
	sum := sha256.Sum256(d.content)
	return hex.EncodeToString(sum[:])
}

// Direction is the sign of a transaction from the account holder's view
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// IsValid checks if the direction is valid
func (d Direction) IsValid() bool {
	return d == DirectionDebit || d == DirectionCredit
}

// Currency is the closed set of supported currencies
type Currency string

const (
	CurrencyUnknown Currency = ""
	CurrencyCRC     Currency = "CRC"
	CurrencyUSD     Currency = "USD"
)

// IsValid checks if the currency is supported
func (c Currency) IsValid() bool {
	return c == CurrencyCRC || c == CurrencyUSD
}

// Kind is the transaction kind
type Kind string

const (
	KindPurchase    Kind = "purchase"
	KindWithdrawal  Kind = "withdrawal"
	KindTransferOut Kind = "transfer_out"
	KindTransferIn  Kind = "transfer_in"
	KindCardPayment Kind = "card_payment"
	KindFeeInterest Kind = "fee_interest"
)

// IsValid checks if the kind is known
func (k Kind) IsValid() bool {
	switch k {
	case KindPurchase, KindWithdrawal, KindTransferOut, KindTransferIn, KindCardPayment, KindFeeInterest:
		return true
	}
	return false
}

// IsTransfer reports whether the kind moves money between accounts
func (k Kind) IsTransfer() bool {
	return k == KindTransferIn || k == KindTransferOut
}

// Source identifies which document family produced a transaction
type Source string

const (
	SourceMessage   Source = "message"
	SourceStatement Source = "statement"
)

// CanonicalTransaction is the single record shape produced by every
// extractor and by the statement parser.
type CanonicalTransaction struct {
	ID                     string          `json:"id"`
	OccurredAt             time.Time       `json:"occurred_at"`
	Amount                 decimal.Decimal `json:"amount"`
	Direction              Direction       `json:"direction"`
	Currency               Currency        `json:"currency"`
	CounterpartyRaw        string          `json:"counterparty_raw"`
	CounterpartyNormalized string          `json:"counterparty_normalized"`
	Kind                   Kind            `json:"kind"`
	Reference              string          `json:"reference,omitempty"`
	Memo                   string          `json:"memo,omitempty"`
	AccountID              string          `json:"account_id,omitempty"`
	Source                 Source          `json:"source"`
	OriginDocumentID       string          `json:"origin_document_id"`
	SourceMessageID        string          `json:"source_message_id,omitempty"`
	IsTransfer             bool            `json:"is_transfer"`
	IsFeeOrInterest        bool            `json:"is_fee_or_interest"`
}

// Validate enforces the record invariants. A record failing validation is
// never persisted.
func (t *CanonicalTransaction) Validate() error {
	if !t.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive, got %s", t.Amount.String())
	}
	if !t.Direction.IsValid() {
		return fmt.Errorf("invalid direction: %q", t.Direction)
	}
	if !t.Currency.IsValid() {
		return fmt.Errorf("invalid currency: %q", t.Currency)
	}
	if !t.Kind.IsValid() {
		return fmt.Errorf("invalid kind: %q", t.Kind)
	}
	if t.OccurredAt.IsZero() {
		return fmt.Errorf("occurred_at cannot be zero")
	}
	if t.Source != SourceMessage && t.Source != SourceStatement {
		return fmt.Errorf("invalid source: %q", t.Source)
	}
	if strings.TrimSpace(t.OriginDocumentID) == "" {
		return fmt.Errorf("origin document ID cannot be empty")
	}
	return nil
}

// SignedAmount returns the amount negated for debits
func (t *CanonicalTransaction) SignedAmount() decimal.Decimal {
	if t.Direction == DirectionDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Day returns the calendar day of the transaction in its own location
func (t *CanonicalTransaction) Day() string {
	return t.OccurredAt.Format("2006-01-02")
}

// String returns a string representation of the transaction
func (t *CanonicalTransaction) String() string {
	return fmt.Sprintf("%s{%s %s %s %s %q}", t.Source, t.Day(), t.Direction, t.Amount.StringFixed(2), t.Currency, t.CounterpartyNormalized)
}

// MarshalJSON renders the amount with two decimals
func (t *CanonicalTransaction) MarshalJSON() ([]byte, error) {
	type Alias CanonicalTransaction
	return json.Marshal(&struct {
		Amount string `json:"amount"`
		*Alias
	}{
		Amount: t.Amount.StringFixed(2),
		Alias:  (*Alias)(t),
	})
}

// StatementMetadata is produced once per statement and shared by all of
// its transactions through the document ID.
type StatementMetadata struct {
	DocumentID     string          `json:"document_id"`
	AccountID      string          `json:"account_id"`
	Currency       Currency        `json:"currency"`
	CutoffDate     time.Time       `json:"cutoff_date"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	TotalDebits    decimal.Decimal `json:"total_debits"`
	TotalCredits   decimal.Decimal `json:"total_credits"`
	Accounts       []string        `json:"accounts,omitempty"`
	RowsParsed     int             `json:"rows_parsed"`
	RowsSkipped    int             `json:"rows_skipped"`
}

// BalanceCheck reports whether opening - debits + credits equals closing.
// It returns false when any figure is missing.
func (m *StatementMetadata) BalanceCheck() bool {
	if m.OpeningBalance.IsZero() && m.ClosingBalance.IsZero() {
		return false
	}
	expected := m.OpeningBalance.Sub(m.TotalDebits).Add(m.TotalCredits)
	return expected.Equal(m.ClosingBalance)
}
