// Package reconciler drives documents through the ingestion pipeline and
// assembles reconciliation reports.
//
// Statements flow through the guard, the positional parser and the
// canonicalization layer; messages flow through the extractor registry,
// the guard and the same canonicalization. Each document yields exactly
// one DocumentOutcome and a failed document never affects its siblings.
//
// Example usage:
//
//	pipeline, err := reconciler.NewPipeline(deps, reconciler.DefaultConfig())
//	statements := pipeline.IngestStatements(ctx, "profile-1", statementDocs)
//	messages := pipeline.IngestMessages(ctx, "profile-1", messageDocs)
//	report, err := pipeline.Reconcile(ctx, "profile-1", statements, messages)
package reconciler

import (
	"context"
	"fmt"

	"bank-ledger-reconciler/internal/canonical"
	"bank-ledger-reconciler/internal/extractors"
	"bank-ledger-reconciler/internal/guard"
	"bank-ledger-reconciler/internal/matcher"
	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/internal/parsers"
	"bank-ledger-reconciler/pkg/errors"
	"bank-ledger-reconciler/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// Dependencies are the collaborators of a Pipeline. Sink may be nil, in
// which case nothing is persisted.
type Dependencies struct {
	Store         guard.Store
	Parser        *parsers.StatementParser
	Registry      *extractors.Registry
	Canonicalizer *canonical.Canonicalizer
	Engine        *matcher.Engine
	Sink          Sink
}

// Pipeline runs ingestion batches and reconciliation
type Pipeline struct {
	guard         *guard.Guard
	parser        *parsers.StatementParser
	registry      *extractors.Registry
	canonicalizer *canonical.Canonicalizer
	engine        *matcher.Engine
	sink          Sink
	config        *Config
	logger        logger.Logger
}

// NewPipeline creates a Pipeline. Missing parser, registry, canonicalizer
// and engine are built with defaults; a missing store is an error.
func NewPipeline(deps Dependencies, config *Config) (*Pipeline, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "pipeline", config, err)
	}
	if deps.Store == nil {
		return nil, errors.ValidationError(errors.CodeMissingField, "store", nil, nil).
			WithSuggestion("provide a guard store, e.g. guard.NewMemoryStore()")
	}

	var err error
	if deps.Parser == nil {
		if deps.Parser, err = parsers.NewStatementParser(nil, nil); err != nil {
			return nil, err
		}
	}
	if deps.Registry == nil {
		deps.Registry = extractors.NewRegistry(nil)
	}
	if deps.Canonicalizer == nil {
		deps.Canonicalizer = canonical.New(nil, deps.Parser.Layout().DefaultCurrency)
	}
	if deps.Engine == nil {
		if deps.Engine, err = matcher.NewEngine(nil); err != nil {
			return nil, err
		}
	}

	log := logger.GetGlobalLogger().WithComponent("pipeline")
	log.WithFields(logger.Fields{
		"max_concurrent": config.MaxConcurrentDocuments,
		"persist":        deps.Sink != nil,
		"layout":         deps.Parser.Layout().Name,
	}).Debug("Created pipeline")

	return &Pipeline{
		guard:         guard.New(deps.Store),
		parser:        deps.Parser,
		registry:      deps.Registry,
		canonicalizer: deps.Canonicalizer,
		engine:        deps.Engine,
		sink:          deps.Sink,
		config:        config,
		logger:        log,
	}, nil
}

// Engine returns the matching engine
func (p *Pipeline) Engine() *matcher.Engine {
	return p.engine
}

type docFunc func(ctx context.Context, g *guard.Guard, sink Sink, profileID string, doc *models.RawDocument) *DocumentOutcome

// run is the per-batch driver shared by both document kinds. Outcomes are
// stored by index, and workers never return errors so one failure cannot
// cancel the rest.
func (p *Pipeline) run(ctx context.Context, operation string, g *guard.Guard, sink Sink, profileID string, docs []*models.RawDocument, fn docFunc) *BatchResult {
	result := &BatchResult{Outcomes: make([]*DocumentOutcome, len(docs))}
	if len(docs) == 0 {
		return result
	}

	var progress *logger.ProgressTracker
	if p.config.ProgressReporting {
		progress = logger.NewProgressTracker(logger.ProgressConfig{
			Operation:   operation,
			Total:       int64(len(docs)),
			LogInterval: p.config.ProgressInterval,
			Logger:      p.logger,
		})
	}

	var group errgroup.Group
	group.SetLimit(p.config.MaxConcurrentDocuments)

	for i, doc := range docs {
		i, doc := i, doc
		group.Go(func() error {
			var outcome *DocumentOutcome
			switch {
			case ctx.Err() != nil:
				outcome = &DocumentOutcome{DocumentID: docID(doc), Status: OutcomeFailed, Err: ctx.Err()}
			case doc == nil:
				outcome = outcomeFor("", errors.DocumentError(errors.CodeUnrecognizedDocument, "", nil))
			default:
				outcome = fn(ctx, g, sink, profileID, doc)
			}
			result.Outcomes[i] = outcome
			if progress != nil {
				progress.Increment(outcome.Status == OutcomeFailed)
			}
			return nil
		})
	}
	_ = group.Wait()

	if progress != nil {
		progress.Complete()
	}

	counts := result.Counts()
	fields := logger.Fields{"operation": operation, "profile_id": profileID, "documents": len(docs)}
	for _, status := range AllOutcomeStatuses {
		if counts[status] > 0 {
			fields[string(status)] = counts[status]
		}
	}
	p.logger.WithFields(fields).Info("Batch processed")
	return result
}

// IngestStatements reserves, parses and persists statements. Statements
// already ingested for the profile are reported as AlreadyProcessed and
// never parsed.
func (p *Pipeline) IngestStatements(ctx context.Context, profileID string, docs []*models.RawDocument) *BatchResult {
	return p.run(ctx, "ingest_statements", p.guard, p.sink, profileID, docs, p.ingestStatement)
}

// IngestMessages extracts, admits and persists messages
func (p *Pipeline) IngestMessages(ctx context.Context, profileID string, docs []*models.RawDocument) *BatchResult {
	return p.run(ctx, "ingest_messages", p.guard, p.sink, profileID, docs, p.ingestMessage)
}

// CollectStatements parses statements without persisting anything.
// Duplicate bytes within the batch are still reported once.
func (p *Pipeline) CollectStatements(ctx context.Context, profileID string, docs []*models.RawDocument) *BatchResult {
	return p.run(ctx, "collect_statements", guard.New(guard.NewMemoryStore()), nil, profileID, docs, p.ingestStatement)
}

// CollectMessages extracts messages without persisting anything.
// Duplicate message IDs within the batch are still reported once.
func (p *Pipeline) CollectMessages(ctx context.Context, profileID string, docs []*models.RawDocument) *BatchResult {
	return p.run(ctx, "collect_messages", guard.New(guard.NewMemoryStore()), nil, profileID, docs, p.ingestMessage)
}

func (p *Pipeline) ingestStatement(ctx context.Context, g *guard.Guard, sink Sink, profileID string, doc *models.RawDocument) *DocumentOutcome {
	reservation, err := g.BeginStatement(ctx, profileID, doc)
	if err != nil {
		return outcomeFor(doc.ID, err)
	}

	outcome, err := p.processStatement(ctx, sink, profileID, doc)
	if err != nil {
		if releaseErr := reservation.Release(ctx); releaseErr != nil {
			p.logger.WithError(releaseErr).WithField("document_id", doc.ID).Error("Failed to release statement reservation")
		}
		return outcomeFor(doc.ID, err)
	}

	if err := reservation.Complete(ctx); err != nil {
		return outcomeFor(doc.ID, err)
	}
	return outcome
}

func (p *Pipeline) processStatement(ctx context.Context, sink Sink, profileID string, doc *models.RawDocument) (*DocumentOutcome, error) {
	parsed, err := p.parser.Parse(doc)
	if err != nil {
		return nil, err
	}

	outcome := &DocumentOutcome{
		DocumentID:  doc.ID,
		Status:      OutcomeOK,
		Metadata:    parsed.Metadata,
		RowsSkipped: parsed.Stats.RowsSkipped,
		Warnings:    append([]string(nil), parsed.Stats.Warnings...),
	}

	for _, row := range parsed.Rows {
		txn := p.canonicalizer.NormalizeRow(row, parsed.Metadata)
		if err := txn.Validate(); err != nil {
			outcome.RowsSkipped++
			outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("line %d: %v", row.Line, err))
			continue
		}
		outcome.Transactions = append(outcome.Transactions, txn)
	}

	if sink != nil {
		if err := sink.SaveStatement(ctx, profileID, parsed.Metadata, outcome.Transactions); err != nil {
			return nil, err
		}
	}
	return outcome, nil
}

// ingestMessage classifies before claiming the message key, so
// informational and unrecognized messages never consume one
func (p *Pipeline) ingestMessage(ctx context.Context, g *guard.Guard, sink Sink, profileID string, doc *models.RawDocument) *DocumentOutcome {
	ex, err := p.registry.Extract(doc)
	if err != nil {
		return outcomeFor(doc.ID, err)
	}

	key := guard.MessageKey(doc)
	if ex.MessageID == "" {
		ex.MessageID = key
	}

	txn := p.canonicalizer.Normalize(ex, canonical.Context{DocumentID: doc.ID})
	if err := txn.Validate(); err != nil {
		return outcomeFor(doc.ID, errors.ExtractionError(ex.Extractor, doc.ID, "transaction", err))
	}

	if err := g.AdmitMessage(ctx, profileID, key, doc.ID); err != nil {
		return outcomeFor(doc.ID, err)
	}

	if sink != nil {
		if err := sink.SaveTransactions(ctx, profileID, []*models.CanonicalTransaction{txn}); err != nil {
			if releaseErr := g.ReleaseMessage(ctx, profileID, key); releaseErr != nil {
				p.logger.WithError(releaseErr).WithField("document_id", doc.ID).Error("Failed to release message key")
			}
			return outcomeFor(doc.ID, err)
		}
	}

	return &DocumentOutcome{
		DocumentID:   doc.ID,
		Status:       OutcomeOK,
		Transactions: []*models.CanonicalTransaction{txn},
	}
}

func docID(doc *models.RawDocument) string {
	if doc == nil {
		return ""
	}
	return doc.ID
}
