package reconciler

import (
	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/pkg/errors"
)

// OutcomeStatus is the fate of one document in a batch
type OutcomeStatus string

const (
	OutcomeOK               OutcomeStatus = "ok"
	OutcomeAlreadyProcessed OutcomeStatus = "already_processed"
	OutcomeDuplicate        OutcomeStatus = "duplicate"
	OutcomeNotATransaction  OutcomeStatus = "not_a_transaction"
	OutcomeUnrecognized     OutcomeStatus = "unrecognized"
	OutcomeFailed           OutcomeStatus = "failed"
)

// AllOutcomeStatuses lists statuses in reporting order
var AllOutcomeStatuses = []OutcomeStatus{
	OutcomeOK,
	OutcomeAlreadyProcessed,
	OutcomeDuplicate,
	OutcomeNotATransaction,
	OutcomeUnrecognized,
	OutcomeFailed,
}

// DocumentOutcome is what happened to one document
type DocumentOutcome struct {
	DocumentID   string                         `json:"document_id"`
	Status       OutcomeStatus                  `json:"status"`
	Transactions []*models.CanonicalTransaction `json:"transactions,omitempty"`
	Metadata     *models.StatementMetadata      `json:"metadata,omitempty"`
	RowsSkipped  int                            `json:"rows_skipped,omitempty"`
	Warnings     []string                       `json:"warnings,omitempty"`
	Err          error                          `json:"-"`
}

// IsNoOp reports whether the document was intentionally ignored
func (o *DocumentOutcome) IsNoOp() bool {
	switch o.Status {
	case OutcomeAlreadyProcessed, OutcomeDuplicate, OutcomeNotATransaction:
		return true
	}
	return false
}

// outcomeFor maps a processing error to the status it implies
func outcomeFor(documentID string, err error) *DocumentOutcome {
	status := OutcomeFailed
	switch {
	case errors.HasCode(err, errors.CodeAlreadyProcessed):
		status = OutcomeAlreadyProcessed
	case errors.HasCode(err, errors.CodeDuplicateMessage):
		status = OutcomeDuplicate
	case errors.HasCode(err, errors.CodeNotATransaction):
		status = OutcomeNotATransaction
	case errors.HasCode(err, errors.CodeUnrecognizedDocument):
		status = OutcomeUnrecognized
	}
	return &DocumentOutcome{DocumentID: documentID, Status: status, Err: err}
}

// BatchResult holds one outcome per input document, in input order
type BatchResult struct {
	Outcomes []*DocumentOutcome `json:"outcomes"`
}

// Counts tallies outcomes by status
func (b *BatchResult) Counts() map[OutcomeStatus]int {
	counts := make(map[OutcomeStatus]int, len(AllOutcomeStatuses))
	for _, o := range b.Outcomes {
		counts[o.Status]++
	}
	return counts
}

// Transactions returns the transactions of every successful document
func (b *BatchResult) Transactions() []*models.CanonicalTransaction {
	var txns []*models.CanonicalTransaction
	for _, o := range b.Outcomes {
		if o.Status == OutcomeOK {
			txns = append(txns, o.Transactions...)
		}
	}
	return txns
}

// Metadata returns the statement metadata of every successful document
func (b *BatchResult) Metadata() []*models.StatementMetadata {
	var metas []*models.StatementMetadata
	for _, o := range b.Outcomes {
		if o.Status == OutcomeOK && o.Metadata != nil {
			metas = append(metas, o.Metadata)
		}
	}
	return metas
}

// Warnings returns the warnings of every document, prefixed with its ID
func (b *BatchResult) Warnings() []string {
	var warnings []string
	for _, o := range b.Outcomes {
		for _, w := range o.Warnings {
			warnings = append(warnings, o.DocumentID+": "+w)
		}
	}
	return warnings
}

// Errors returns the errors of failed and unrecognized documents
func (b *BatchResult) Errors() []*errors.ReconcilerError {
	var errs []*errors.ReconcilerError
	for _, o := range b.Outcomes {
		if o.Err == nil || o.IsNoOp() {
			continue
		}
		errs = append(errs, errors.WrapIfNeeded(o.Err, errors.CategoryInternal, errors.CodeUnexpectedError, "document failed"))
	}
	return errs
}

// HasFailures reports whether any document failed outright
func (b *BatchResult) HasFailures() bool {
	for _, o := range b.Outcomes {
		if o.Status == OutcomeFailed {
			return true
		}
	}
	return false
}
