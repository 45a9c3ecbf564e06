package reconciler

import (
	"context"

	"bank-ledger-reconciler/internal/models"
)

//go:generate mockgen -destination=mocks/mock_sink.go -source=sink.go Sink

// Sink is the persistence boundary of the pipeline. Only records that
// passed validation reach it.
type Sink interface {
	// SaveStatement stores a statement and its transactions atomically:
	// either both are persisted or neither is
	SaveStatement(ctx context.Context, profileID string, meta *models.StatementMetadata, txns []*models.CanonicalTransaction) error
	SaveTransactions(ctx context.Context, profileID string, txns []*models.CanonicalTransaction) error

	// SaveReport appends a report; reports are never overwritten
	SaveReport(ctx context.Context, report *models.ReconciliationReport) error

	// ListTransactions returns stored transactions whose day falls in period
	ListTransactions(ctx context.Context, profileID string, period models.Period) ([]*models.CanonicalTransaction, error)
}
