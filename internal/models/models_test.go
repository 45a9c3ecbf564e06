package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validTransaction() *CanonicalTransaction {
	return &CanonicalTransaction{
		ID:                     "tx-1",
		OccurredAt:             time.Date(2025, 9, 27, 14, 32, 0, 0, time.UTC),
		Amount:                 decimal.RequireFromString("2500.00"),
		Direction:              DirectionDebit,
		Currency:               CurrencyCRC,
		CounterpartyRaw:        "LUIS MENA MATA",
		CounterpartyNormalized: "LUIS MENA MATA",
		Kind:                   KindTransferOut,
		Source:                 SourceMessage,
		OriginDocumentID:       "doc-1",
	}
}

func TestRawDocument_Immutable(t *testing.T) {
	content := []byte("abc")
	doc := NewRawDocument(DocumentStatement, content, Envelope{})

	content[0] = 'x'
	if doc.Text() != "abc" {
		t.Errorf("Expected document to keep its own copy, got %q", doc.Text())
	}

	out := doc.Bytes()
	out[0] = 'y'
	if doc.Text() != "abc" {
		t.Errorf("Expected Bytes to return a copy, got %q", doc.Text())
	}

	if doc.ID == "" {
		t.Error("Expected document ID to be assigned")
	}
	if doc.Len() != 3 {
		t.Errorf("Expected length 3, got %d", doc.Len())
	}
}

func TestRawDocument_ContentHash(t *testing.T) {
	a := NewRawDocument(DocumentStatement, []byte("abc"), Envelope{})
	b := NewRawDocument(DocumentStatement, []byte("abc"), Envelope{Subject: "different envelope"})

	expected := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if a.ContentHash() != expected {
		t.Errorf("Expected SHA-256 %s, got %s", expected, a.ContentHash())
	}
	if a.ContentHash() != b.ContentHash() {
		t.Error("Expected hash to depend on content only")
	}
	if a.ID == b.ID {
		t.Error("Expected distinct document IDs")
	}
}

func TestCanonicalTransaction_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CanonicalTransaction)
		wantErr bool
	}{
		{"valid", func(*CanonicalTransaction) {}, false},
		{"zero amount", func(tx *CanonicalTransaction) { tx.Amount = decimal.Zero }, true},
		{"negative amount", func(tx *CanonicalTransaction) { tx.Amount = decimal.NewFromInt(-5) }, true},
		{"bad direction", func(tx *CanonicalTransaction) { tx.Direction = "sideways" }, true},
		{"unknown currency", func(tx *CanonicalTransaction) { tx.Currency = CurrencyUnknown }, true},
		{"bad kind", func(tx *CanonicalTransaction) { tx.Kind = "gift" }, true},
		{"zero time", func(tx *CanonicalTransaction) { tx.OccurredAt = time.Time{} }, true},
		{"bad source", func(tx *CanonicalTransaction) { tx.Source = "fax" }, true},
		{"missing origin", func(tx *CanonicalTransaction) { tx.OriginDocumentID = " " }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validTransaction()
			tt.mutate(tx)
			err := tx.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCanonicalTransaction_SignedAmount(t *testing.T) {
	tx := validTransaction()
	if !tx.SignedAmount().Equal(decimal.RequireFromString("-2500")) {
		t.Errorf("Expected -2500 for debit, got %s", tx.SignedAmount())
	}

	tx.Direction = DirectionCredit
	if !tx.SignedAmount().Equal(decimal.RequireFromString("2500")) {
		t.Errorf("Expected 2500 for credit, got %s", tx.SignedAmount())
	}
}

func TestCanonicalTransaction_MarshalJSON(t *testing.T) {
	tx := validTransaction()
	tx.Amount = decimal.RequireFromString("2500")

	data, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded["amount"] != "2500.00" {
		t.Errorf("Expected amount \"2500.00\", got %v", decoded["amount"])
	}
	if decoded["kind"] != "transfer_out" {
		t.Errorf("Expected kind transfer_out, got %v", decoded["kind"])
	}
}

func TestConfidenceForScore(t *testing.T) {
	tests := []struct {
		score    float64
		expected Confidence
	}{
		{100, ConfidenceHigh},
		{90, ConfidenceHigh},
		{89.9, ConfidenceMedium},
		{70, ConfidenceMedium},
		{69.99, ConfidenceLow},
		{0, ConfidenceLow},
	}

	for _, tt := range tests {
		if got := ConfidenceForScore(tt.score, 90, 70); got != tt.expected {
			t.Errorf("ConfidenceForScore(%v) = %s, want %s", tt.score, got, tt.expected)
		}
	}
}

func TestReconciliationReport_CheckConservation(t *testing.T) {
	report := &ReconciliationReport{
		StatementCount: 4,
		MessageCount:   3,
		Counts: map[ResultKind]int{
			ResultMatched:        1,
			ResultAmountMismatch: 1,
			ResultDateMismatch:   0,
			ResultStatementOnly:  2,
			ResultMessageOnly:    1,
		},
	}
	if err := report.CheckConservation(); err != nil {
		t.Errorf("Expected conservation to hold, got %v", err)
	}

	report.Counts[ResultMessageOnly] = 2
	if err := report.CheckConservation(); err == nil {
		t.Error("Expected message-side violation")
	}
}

func TestPeriod_Contains(t *testing.T) {
	p := Period{
		Start: time.Date(2024, 12, 16, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
	}

	if !p.Contains(time.Date(2025, 1, 15, 23, 59, 0, 0, time.UTC)) {
		t.Error("Expected end day to be inclusive")
	}
	if !p.Contains(time.Date(2024, 12, 28, 0, 0, 0, 0, time.UTC)) {
		t.Error("Expected December row inside period")
	}
	if p.Contains(time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC)) {
		t.Error("Expected day after end to be outside")
	}
	if p.String() != "2024-12-16..2025-01-15" {
		t.Errorf("Unexpected period string %s", p.String())
	}
}

func TestStatementMetadata_BalanceCheck(t *testing.T) {
	meta := &StatementMetadata{
		OpeningBalance: decimal.RequireFromString("1000.00"),
		TotalDebits:    decimal.RequireFromString("150.00"),
		TotalCredits:   decimal.RequireFromString("50.00"),
		ClosingBalance: decimal.RequireFromString("900.00"),
	}
	if !meta.BalanceCheck() {
		t.Error("Expected balances to reconcile")
	}

	meta.ClosingBalance = decimal.RequireFromString("901.00")
	if meta.BalanceCheck() {
		t.Error("Expected balance mismatch")
	}

	if (&StatementMetadata{}).BalanceCheck() {
		t.Error("Expected missing figures to fail the check")
	}
}
