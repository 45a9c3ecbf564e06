// Package parsers reconstructs the transaction table of a bank statement.
//
// Statements arrive either as a JSON character dump (one record per glyph
// with its x0/top coordinates, as produced by the PDF text collaborator) or
// as plain text. The positional path groups characters into lines by their
// quantized vertical coordinate and assigns each character to one of five
// column zones by its horizontal coordinate. The fallback path recovers the
// same rows from plain line text with a fixed-grammar regular expression and
// then a permissive tokenizer.
//
// Rows are independent: a malformed row is counted in ParseStats and the
// rest of the document continues.
//
// Example usage:
//
//	parser, err := NewStatementParser(DefaultStatementLayout(), normalizer.NewDateParser(""))
//	result, err := parser.Parse(doc)
//	fmt.Println(result.Stats)
package parsers

import (
	"fmt"
	"time"

	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/pkg/errors"

	"github.com/shopspring/decimal"
)

// ParsePath records which strategy produced the rows
type ParsePath string

const (
	PathPositional ParsePath = "positional"
	PathFallback   ParsePath = "fallback"
)

// Row is one accepted statement table row
type Row struct {
	Reference   string           `json:"reference"`
	OccurredAt  time.Time        `json:"occurred_at"`
	Description string           `json:"description"`
	Amount      decimal.Decimal  `json:"amount"`
	Direction   models.Direction `json:"direction"`
	Currency    models.Currency  `json:"currency"`
	AccountID   string           `json:"account_id,omitempty"`
	Page        int              `json:"page,omitempty"`
	Line        int              `json:"line"`
}

// StatementResult is everything one parse produces
type StatementResult struct {
	Metadata *models.StatementMetadata
	Rows     []*Row
	Stats    *ParseStats
}

// parseState is the mutable context of one parse. Context declaration lines
// update it; every accepted row reads it. It is created per call and never
// shared between parses.
type parseState struct {
	account  string
	currency models.Currency
	cutoff   time.Time
}

// ParseStats holds statistics about a parsing operation
type ParseStats struct {
	Path        ParsePath
	LinesSeen   int
	RowsParsed  int
	RowsSkipped int
	Skipped     *errors.RowErrorCollector
	Warnings    []string
}

// NewParseStats creates a new ParseStats instance
func NewParseStats() *ParseStats {
	return &ParseStats{
		Skipped: errors.NewRowErrorCollector(10),
	}
}

// Skip counts a malformed row
func (ps *ParseStats) Skip(err *errors.RowError) {
	ps.RowsSkipped++
	ps.Skipped.Add(err)
}

// HasSkips returns true if any row was dropped
func (ps *ParseStats) HasSkips() bool {
	return ps.RowsSkipped > 0
}

// String returns a human-readable summary of parsing statistics
func (ps *ParseStats) String() string {
	return fmt.Sprintf("%s path: %d lines, %d rows parsed, %d skipped",
		ps.Path, ps.LinesSeen, ps.RowsParsed, ps.RowsSkipped)
}

// GetSampleErrors returns a sample of the skipped rows for logging/debugging
func (ps *ParseStats) GetSampleErrors(maxSamples int) []string {
	samples := ps.Skipped.Samples()
	if maxSamples > 0 && maxSamples < len(samples) {
		samples = samples[:maxSamples]
	}

	out := make([]string, 0, len(samples))
	for _, s := range samples {
		out = append(out, s.Error())
	}
	return out
}
