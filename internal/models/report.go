package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Confidence is a discretization of a continuous match score
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ConfidenceForScore maps a 0-100 score onto a tier
func ConfidenceForScore(score, high, medium float64) Confidence {
	switch {
	case score >= high:
		return ConfidenceHigh
	case score >= medium:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// MatchCandidate is a scored pairing of one statement transaction with one
// message transaction.
type MatchCandidate struct {
	Score      float64    `json:"score"`
	Reasons    []string   `json:"reasons"`
	Confidence Confidence `json:"confidence"`
}

// ResultKind classifies a reconciliation outcome
type ResultKind string

const (
	ResultMatched        ResultKind = "matched"
	ResultAmountMismatch ResultKind = "amount_mismatch"
	ResultDateMismatch   ResultKind = "date_mismatch"
	ResultStatementOnly  ResultKind = "statement_only"
	ResultMessageOnly    ResultKind = "message_only"
)

// AllResultKinds lists the kinds in report order
var AllResultKinds = []ResultKind{
	ResultMatched,
	ResultAmountMismatch,
	ResultDateMismatch,
	ResultStatementOnly,
	ResultMessageOnly,
}

// MatchResult carries at most one transaction from each source
type MatchResult struct {
	Kind             ResultKind            `json:"kind"`
	Statement        *CanonicalTransaction `json:"statement,omitempty"`
	Message          *CanonicalTransaction `json:"message,omitempty"`
	Candidate        *MatchCandidate       `json:"candidate,omitempty"`
	AmountDifference decimal.Decimal       `json:"amount_difference"`
	DayDifference    int                   `json:"day_difference"`
}

// Period is an inclusive pair of calendar days
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls on a day inside the period
func (p Period) Contains(t time.Time) bool {
	day := t.Format("2006-01-02")
	return day >= p.Start.Format("2006-01-02") && day <= p.End.Format("2006-01-02")
}

// String formats the period as start..end
func (p Period) String() string {
	return fmt.Sprintf("%s..%s", p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"))
}

// ReconciliationReport is the immutable output of one reconciliation run.
// A new report is produced for every run.
type ReconciliationReport struct {
	ID             string                       `json:"id"`
	ProfileID      string                       `json:"profile_id"`
	Period         Period                       `json:"period"`
	CreatedAt      time.Time                    `json:"created_at"`
	StatementCount int                          `json:"statement_count"`
	MessageCount   int                          `json:"message_count"`
	Counts         map[ResultKind]int           `json:"counts"`
	StatementTotal map[Currency]decimal.Decimal `json:"statement_total"`
	MessageTotal   map[Currency]decimal.Decimal `json:"message_total"`
	Matched        []*MatchResult               `json:"matched,omitempty"`
	Discrepancies  []*MatchResult               `json:"discrepancies"`
	Warnings       []string                     `json:"warnings,omitempty"`
}

// CheckConservation verifies that every transaction of both sources is
// classified exactly once.
func (r *ReconciliationReport) CheckConservation() error {
	stmtSide := r.Counts[ResultMatched] + r.Counts[ResultAmountMismatch] + r.Counts[ResultDateMismatch] + r.Counts[ResultStatementOnly]
	if stmtSide != r.StatementCount {
		return fmt.Errorf("statement side classified %d of %d transactions", stmtSide, r.StatementCount)
	}
	msgSide := r.Counts[ResultMatched] + r.Counts[ResultAmountMismatch] + r.Counts[ResultDateMismatch] + r.Counts[ResultMessageOnly]
	if msgSide != r.MessageCount {
		return fmt.Errorf("message side classified %d of %d transactions", msgSide, r.MessageCount)
	}
	return nil
}
