package errors

import (
	"fmt"
	"strings"
)

// RowContext locates a statement line that failed to parse
type RowContext struct {
	DocumentID string `json:"document_id"`
	Page       int    `json:"page,omitempty"`
	Line       int    `json:"line"`
	Zone       string `json:"zone,omitempty"`
	Value      string `json:"value,omitempty"`
}

// RowError is a RowParseSkipped error enriched with the offending line.
// Row errors are always recoverable: the row is dropped, the document continues.
type RowError struct {
	*ReconcilerError
	Row         *RowContext `json:"row"`
	LineContent string      `json:"line_content,omitempty"`
}

// Error implements the error interface with location information
func (e *RowError) Error() string {
	if e.Row == nil {
		return e.ReconcilerError.Error()
	}
	location := fmt.Sprintf("at line %d", e.Row.Line)
	if e.Row.Page > 0 {
		location = fmt.Sprintf("at page %d line %d", e.Row.Page, e.Row.Line)
	}
	if e.Row.Zone != "" {
		location += fmt.Sprintf(" zone '%s'", e.Row.Zone)
	}
	return e.ReconcilerError.Error() + " " + location
}

// GetDetailedError returns a multi-line description of the skipped row
func (e *RowError) GetDetailedError() string {
	lines := []string{fmt.Sprintf("SKIPPED: %s", e.Message)}
	if e.Row != nil {
		lines = append(lines, fmt.Sprintf("  → Document: %s", e.Row.DocumentID))
		lines = append(lines, fmt.Sprintf("  → Line: %d", e.Row.Line))
		if e.Row.Zone != "" {
			lines = append(lines, fmt.Sprintf("  → Zone: %s", e.Row.Zone))
		}
		if e.Row.Value != "" {
			lines = append(lines, fmt.Sprintf("  → Value: '%s'", e.Row.Value))
		}
	}
	if e.LineContent != "" {
		lines = append(lines, fmt.Sprintf("  → Content: %s", e.LineContent))
	}
	if e.Cause != nil {
		lines = append(lines, fmt.Sprintf("  → Cause: %v", e.Cause))
	}
	return strings.Join(lines, "\n")
}

// RowSkipped creates a RowParseSkipped error
func RowSkipped(row *RowContext, reason string, cause error) *RowError {
	base := build(CategoryParse, CodeRowParseSkipped, "row skipped: "+reason, cause)
	if row != nil {
		base.WithContext("document_id", row.DocumentID).
			WithContext("line", row.Line)
		if row.Zone != "" {
			base.WithContext("zone", row.Zone)
		}
	}
	return &RowError{ReconcilerError: base, Row: row}
}

// WithLineContent adds the reconstructed line text to the error
func (e *RowError) WithLineContent(content string) *RowError {
	e.LineContent = content
	return e
}

// RowErrorCollector counts skipped rows and keeps a bounded sample of them.
type RowErrorCollector struct {
	samples    []*RowError
	maxSamples int
	count      int
}

// NewRowErrorCollector creates a collector retaining at most maxSamples errors
func NewRowErrorCollector(maxSamples int) *RowErrorCollector {
	if maxSamples < 0 {
		maxSamples = 0
	}
	return &RowErrorCollector{maxSamples: maxSamples}
}

// Add records a skipped row
func (c *RowErrorCollector) Add(err *RowError) {
	if err == nil {
		return
	}
	c.count++
	if len(c.samples) < c.maxSamples {
		c.samples = append(c.samples, err)
	}
}

// Count returns the number of skipped rows, including unsampled ones
func (c *RowErrorCollector) Count() int {
	return c.count
}

// HasErrors returns true if any rows were skipped
func (c *RowErrorCollector) HasErrors() bool {
	return c.count > 0
}

// Samples returns the retained errors
func (c *RowErrorCollector) Samples() []*RowError {
	return c.samples
}

// GetSummary returns an error summary over the retained samples
func (c *RowErrorCollector) GetSummary() *ErrorSummary {
	base := make([]*ReconcilerError, len(c.samples))
	for i, err := range c.samples {
		base[i] = err.ReconcilerError
	}
	return NewErrorSummary(base)
}

// FormatRowErrorsForUser formats skipped rows for verbose CLI output
func FormatRowErrorsForUser(errs []*RowError, total int) string {
	if total == 0 {
		return "No rows skipped"
	}

	lines := []string{fmt.Sprintf("%d statement rows skipped:", total)}
	for _, err := range errs {
		lines = append(lines, "", err.GetDetailedError())
	}
	if total > len(errs) {
		lines = append(lines, "", fmt.Sprintf("... and %d more", total-len(errs)))
	}
	return strings.Join(lines, "\n")
}
