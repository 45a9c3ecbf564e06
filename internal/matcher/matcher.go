package matcher

import (
	"fmt"

	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/pkg/errors"
	"bank-ledger-reconciler/pkg/logger"
)

// Engine scores and assigns transaction pairs. It holds no state between
// calls and is safe for concurrent use.
type Engine struct {
	config *MatchingConfig
	logger logger.Logger
}

// NewEngine creates a new matching engine with the specified configuration
func NewEngine(config *MatchingConfig) (*Engine, error) {
	if config == nil {
		config = DefaultMatchingConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "matching", config.String(), err)
	}

	return &Engine{
		config: config.Clone(),
		logger: logger.GetGlobalLogger().WithComponent("matcher"),
	}, nil
}

// GetConfiguration returns a copy of the current configuration
func (e *Engine) GetConfiguration() *MatchingConfig {
	return e.config.Clone()
}

// Score scores one pair. The second result is false when the pair is
// disqualified by currency, direction, merchant or amount.
func (e *Engine) Score(stmt, msg *models.CanonicalTransaction) (*models.MatchCandidate, bool) {
	p, ok := e.scorePair(stmt, msg)
	if !ok {
		return nil, false
	}
	return e.candidate(p), true
}

func (e *Engine) candidate(p *pairScore) *models.MatchCandidate {
	return &models.MatchCandidate{
		Score:      p.total,
		Reasons:    p.reasons,
		Confidence: models.ConfidenceForScore(p.total, e.config.HighConfidence, e.config.MediumConfidence),
	}
}

// Reconcile assigns message transactions to statement transactions
// greedily. Statement transactions are visited in input order; each takes
// the highest-scoring message transaction still unassigned whose score
// reaches MinCandidateScore, ties going to the earlier message.
func (e *Engine) Reconcile(statements, messages []*models.CanonicalTransaction) *Outcome {
	index := NewAmountIndex(messages)
	return e.reconcile(statements, messages, func(stmt *models.CanonicalTransaction) []int {
		return index.Candidates(stmt, e.config.AmountTolerance)
	})
}

// reconcile runs the greedy assignment over the positions candidates
// returns for each statement transaction
func (e *Engine) reconcile(statements, messages []*models.CanonicalTransaction, candidates func(*models.CanonicalTransaction) []int) *Outcome {
	outcome := &Outcome{StatementCount: len(statements), MessageCount: len(messages)}
	consumed := make([]bool, len(messages))
	scored := 0

	for _, stmt := range statements {
		bestPos := -1
		var best *pairScore

		for _, pos := range candidates(stmt) {
			if consumed[pos] {
				continue
			}
			p, ok := e.scorePair(stmt, messages[pos])
			scored++
			if !ok || p.total < e.config.MinCandidateScore {
				continue
			}
			if best == nil || p.total > best.total {
				best, bestPos = p, pos
			}
		}

		if best == nil {
			outcome.Results = append(outcome.Results, &models.MatchResult{
				Kind:      models.ResultStatementOnly,
				Statement: stmt,
			})
			continue
		}

		result := e.classify(stmt, messages[bestPos], best)
		if result.Kind != models.ResultStatementOnly {
			consumed[bestPos] = true
		}
		outcome.Results = append(outcome.Results, result)
	}

	for pos, msg := range messages {
		if !consumed[pos] {
			outcome.Results = append(outcome.Results, &models.MatchResult{
				Kind:    models.ResultMessageOnly,
				Message: msg,
			})
		}
	}

	counts := outcome.Counts()
	e.logger.WithFields(logger.Fields{
		"statements":      len(statements),
		"messages":        len(messages),
		"pairs_scored":    scored,
		"matched":         counts[models.ResultMatched],
		"amount_mismatch": counts[models.ResultAmountMismatch],
		"date_mismatch":   counts[models.ResultDateMismatch],
		"statement_only":  counts[models.ResultStatementOnly],
		"message_only":    counts[models.ResultMessageOnly],
	}).Info("Reconciliation completed")

	return outcome
}

// classify turns an assigned pair into a result. An amount difference
// outranks a date difference. Only a pair reaching HighConfidence is
// matched; a weaker exact-amount pair on a different day is a date
// mismatch, and a weaker same-day pair leaves the statement transaction
// unmatched with the candidate attached and the message free for later
// statement transactions.
func (e *Engine) classify(stmt, msg *models.CanonicalTransaction, p *pairScore) *models.MatchResult {
	result := &models.MatchResult{
		Statement:        stmt,
		Message:          msg,
		Candidate:        e.candidate(p),
		AmountDifference: p.amountDiff,
		DayDifference:    p.dayDiff,
	}

	switch {
	case !p.amountDiff.IsZero():
		result.Kind = models.ResultAmountMismatch
	case !e.config.IsWithinDateTolerance(p.dayDiff):
		result.Kind = models.ResultDateMismatch
	case p.total >= e.config.HighConfidence:
		result.Kind = models.ResultMatched
	case p.dayDiff != 0:
		result.Kind = models.ResultDateMismatch
	default:
		result.Kind = models.ResultStatementOnly
		result.Message = nil
	}
	return result
}

// Outcome is every result of one reconciliation. Statement-side results
// come first in statement order, then message-only results in message
// order.
type Outcome struct {
	Results        []*models.MatchResult
	StatementCount int
	MessageCount   int
}

// Counts returns the number of results per kind
func (o *Outcome) Counts() map[models.ResultKind]int {
	counts := make(map[models.ResultKind]int, len(models.AllResultKinds))
	for _, k := range models.AllResultKinds {
		counts[k] = 0
	}
	for _, r := range o.Results {
		counts[r.Kind]++
	}
	return counts
}

// ByKind returns the results of one kind in outcome order
func (o *Outcome) ByKind(kind models.ResultKind) []*models.MatchResult {
	var out []*models.MatchResult
	for _, r := range o.Results {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// Verify checks conservation: every statement and every message
// transaction appears in exactly one result, on the side its kind allows.
func (o *Outcome) Verify() error {
	statements := make(map[*models.CanonicalTransaction]bool)
	messages := make(map[*models.CanonicalTransaction]bool)

	for i, r := range o.Results {
		wantStmt := r.Kind != models.ResultMessageOnly
		wantMsg := r.Kind != models.ResultStatementOnly
		if (r.Statement != nil) != wantStmt || (r.Message != nil) != wantMsg {
			return errors.ReconciliationError(errors.CodeDataInconsistent, "verify",
				fmt.Errorf("result %d of kind %s has statement=%t message=%t", i, r.Kind, r.Statement != nil, r.Message != nil))
		}

		if r.Statement != nil {
			if statements[r.Statement] {
				return errors.ReconciliationError(errors.CodeDataInconsistent, "verify",
					fmt.Errorf("statement transaction %s classified twice", r.Statement.ID))
			}
			statements[r.Statement] = true
		}
		if r.Message != nil {
			if messages[r.Message] {
				return errors.ReconciliationError(errors.CodeDataInconsistent, "verify",
					fmt.Errorf("message transaction %s classified twice", r.Message.ID))
			}
			messages[r.Message] = true
		}
	}

	if len(statements) != o.StatementCount {
		return errors.ReconciliationError(errors.CodeDataInconsistent, "verify",
			fmt.Errorf("classified %d of %d statement transactions", len(statements), o.StatementCount))
	}
	if len(messages) != o.MessageCount {
		return errors.ReconciliationError(errors.CodeDataInconsistent, "verify",
			fmt.Errorf("classified %d of %d message transactions", len(messages), o.MessageCount))
	}
	return nil
}
