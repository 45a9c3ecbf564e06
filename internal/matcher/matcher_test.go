package matcher

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/pkg/errors"

	"github.com/shopspring/decimal"
)

var baseDay = time.Date(2025, 9, 27, 10, 0, 0, 0, time.UTC)

func txn(source models.Source, id, merchant, amount string, dayOffset int) *models.CanonicalTransaction {
	return &models.CanonicalTransaction{
		ID:                     id,
		OccurredAt:             baseDay.AddDate(0, 0, dayOffset),
		Amount:                 decimal.RequireFromString(amount),
		Direction:              models.DirectionDebit,
		Currency:               models.CurrencyCRC,
		CounterpartyRaw:        merchant,
		CounterpartyNormalized: merchant,
		Kind:                   models.KindPurchase,
		Source:                 source,
		OriginDocumentID:       "doc-" + id,
	}
}

func stmt(id, merchant, amount string, dayOffset int) *models.CanonicalTransaction {
	return txn(models.SourceStatement, id, merchant, amount, dayOffset)
}

func msg(id, merchant, amount string, dayOffset int) *models.CanonicalTransaction {
	return txn(models.SourceMessage, id, merchant, amount, dayOffset)
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(DefaultMatchingConfig())
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return engine
}

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine(nil)
	if err != nil {
		t.Fatalf("Expected default engine, got error: %v", err)
	}
	if engine.GetConfiguration().MinCandidateScore != 50 {
		t.Errorf("Expected default min score 50, got %v", engine.GetConfiguration().MinCandidateScore)
	}

	bad := DefaultMatchingConfig()
	bad.DateToleranceDays = -1
	if _, err := NewEngine(bad); !errors.HasCode(err, errors.CodeInvalidConfig) {
		t.Errorf("Expected invalid config error, got %v", err)
	}
}

func TestMatchingConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*MatchingConfig)
		expectError bool
	}{
		{"default", func(*MatchingConfig) {}, false},
		{"strict preset", func(c *MatchingConfig) { *c = *StrictMatchingConfig() }, false},
		{"relaxed preset", func(c *MatchingConfig) { *c = *RelaxedMatchingConfig() }, false},
		{"negative days", func(c *MatchingConfig) { c.DateToleranceDays = -1 }, true},
		{"negative amount", func(c *MatchingConfig) { c.AmountTolerance = decimal.NewFromInt(-1) }, true},
		{"score above max", func(c *MatchingConfig) { c.MinCandidateScore = 101 }, true},
		{"high below medium", func(c *MatchingConfig) { c.HighConfidence = 60 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultMatchingConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.expectError && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestEngine_Score(t *testing.T) {
	engine := newTestEngine(t)

	usd := msg("m", "UBER", "100.00", 0)
	usd.Currency = models.CurrencyUSD
	credit := msg("m", "UBER", "100.00", 0)
	credit.Direction = models.DirectionCredit

	tests := []struct {
		name       string
		stmt       *models.CanonicalTransaction
		msg        *models.CanonicalTransaction
		qualifies  bool
		score      float64
		minScore   float64
		maxScore   float64
		confidence models.Confidence
	}{
		{"perfect", stmt("s", "UBER", "100.00", 0), msg("m", "UBER", "100.00", 0), true, 100, 0, 0, models.ConfidenceHigh},
		{"one day apart", stmt("s", "UBER", "100.00", 1), msg("m", "UBER", "100.00", 0), true, 95, 0, 0, models.ConfidenceHigh},
		{"within date tolerance", stmt("s", "UBER", "100.00", 3), msg("m", "UBER", "100.00", 0), true, 88, 0, 0, models.ConfidenceMedium},
		{"beyond date tolerance", stmt("s", "UBER", "100.00", 10), msg("m", "UBER", "100.00", 0), true, 80, 0, 0, models.ConfidenceMedium},
		{"amount within tolerance", stmt("s", "UBER", "100.50", 0), msg("m", "UBER", "100.00", 0), true, 75, 0, 0, models.ConfidenceMedium},
		{"merchant containment", stmt("s", "AUTOMERCADO ESCAZU", "100.00", 0), msg("m", "AUTOMERCADO", "100.00", 0), true, 0, 80, 90, ""},
		{"word subset", stmt("s", "PEREZ ROJAS MARIA", "100.00", 0), msg("m", "MARIA PEREZ", "100.00", 0), true, 0, 80, 90, ""},
		{"no merchant overlap", stmt("s", "NETFLIX", "100.00", 0), msg("m", "UBER", "100.00", 0), false, 0, 0, 0, ""},
		{"empty merchant", stmt("s", "", "100.00", 0), msg("m", "UBER", "100.00", 0), false, 0, 0, 0, ""},
		{"amount beyond tolerance", stmt("s", "UBER", "102.00", 0), msg("m", "UBER", "100.00", 0), false, 0, 0, 0, ""},
		{"currency mismatch", stmt("s", "UBER", "100.00", 0), usd, false, 0, 0, 0, ""},
		{"direction mismatch", stmt("s", "UBER", "100.00", 0), credit, false, 0, 0, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate, ok := engine.Score(tt.stmt, tt.msg)
			if ok != tt.qualifies {
				t.Fatalf("Expected qualifies=%t, got %t", tt.qualifies, ok)
			}
			if !ok {
				return
			}

			if tt.score > 0 && candidate.Score != tt.score {
				t.Errorf("Expected score %v, got %v", tt.score, candidate.Score)
			}
			if tt.maxScore > 0 && (candidate.Score < tt.minScore || candidate.Score > tt.maxScore) {
				t.Errorf("Expected score in [%v, %v], got %v", tt.minScore, tt.maxScore, candidate.Score)
			}
			if tt.confidence != "" && candidate.Confidence != tt.confidence {
				t.Errorf("Expected confidence %s, got %s", tt.confidence, candidate.Confidence)
			}
			if len(candidate.Reasons) != 3 {
				t.Errorf("Expected merchant, amount and date reasons, got %v", candidate.Reasons)
			}
		})
	}
}

func TestReconcile_PrefersExactDateOverInputOrder(t *testing.T) {
	engine := newTestEngine(t)

	s := stmt("s1", "TIENDA", "5000", 0)
	later := msg("m1", "TIENDA", "5000", 1)
	sameDay := msg("m2", "TIENDA", "5000", 0)

	outcome := engine.Reconcile([]*models.CanonicalTransaction{s}, []*models.CanonicalTransaction{later, sameDay})
	if err := outcome.Verify(); err != nil {
		t.Fatalf("Conservation violated: %v", err)
	}

	matched := outcome.ByKind(models.ResultMatched)
	if len(matched) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(matched))
	}
	if matched[0].Message != sameDay {
		t.Errorf("Expected the same-day message, got %s", matched[0].Message.ID)
	}

	only := outcome.ByKind(models.ResultMessageOnly)
	if len(only) != 1 || only[0].Message != later {
		t.Errorf("Expected the later message to be message_only, got %v", only)
	}
}

func TestReconcile_TieGoesToEarlierMessage(t *testing.T) {
	engine := newTestEngine(t)

	s := stmt("s1", "TIENDA", "5000", 0)
	first := msg("m1", "TIENDA", "5000", 0)
	second := msg("m2", "TIENDA", "5000", 0)

	outcome := engine.Reconcile([]*models.CanonicalTransaction{s}, []*models.CanonicalTransaction{first, second})
	matched := outcome.ByKind(models.ResultMatched)
	if len(matched) != 1 || matched[0].Message != first {
		t.Errorf("Expected tie to go to the first message")
	}
}

func TestReconcile_GreedyStatementOrder(t *testing.T) {
	engine := newTestEngine(t)

	near := stmt("s-near", "UBER", "100.00", 1)
	exact := stmt("s-exact", "UBER", "100.00", 0)
	m := msg("m1", "UBER", "100.00", 0)

	outcome := engine.Reconcile([]*models.CanonicalTransaction{near, exact}, []*models.CanonicalTransaction{m})
	matched := outcome.ByKind(models.ResultMatched)
	if len(matched) != 1 || matched[0].Statement != near {
		t.Errorf("Expected the first statement transaction to take the message")
	}
	if only := outcome.ByKind(models.ResultStatementOnly); len(only) != 1 || only[0].Statement != exact {
		t.Errorf("Expected the second statement transaction to be statement_only")
	}

	outcome = engine.Reconcile([]*models.CanonicalTransaction{exact, near}, []*models.CanonicalTransaction{m})
	matched = outcome.ByKind(models.ResultMatched)
	if len(matched) != 1 || matched[0].Statement != exact {
		t.Errorf("Expected reversed order to change the assignment")
	}
}

func TestReconcile_Classification(t *testing.T) {
	engine := newTestEngine(t)

	statements := []*models.CanonicalTransaction{
		stmt("s-match", "COMPASS RUTA 32", "150.00", 0),
		stmt("s-amount", "AUTOMERCADO", "12500.50", 0),
		stmt("s-date", "FARMACIA FISCHEL", "8900.00", 10),
		stmt("s-weak", "SODA TAPIA", "3000.00", 0),
		stmt("s-none", "NETFLIX", "7000.00", 0),
	}
	messages := []*models.CanonicalTransaction{
		msg("m-date", "FARMACIA FISCHEL", "8900.00", 0),
		msg("m-match", "COMPASS RUTA 32", "150.00", 0),
		msg("m-amount", "AUTOMERCADO", "12500.00", 0),
		msg("m-weak", "SODA TAPIA LA SABANA CENTRO COMERCIAL", "3000.90", 9),
		msg("m-none", "SPOTIFY", "5000.00", 0),
	}

	outcome := engine.Reconcile(statements, messages)
	if err := outcome.Verify(); err != nil {
		t.Fatalf("Conservation violated: %v", err)
	}

	kinds := make(map[string]models.ResultKind)
	for _, r := range outcome.Results {
		if r.Statement != nil {
			kinds[r.Statement.ID] = r.Kind
		}
		if r.Message != nil {
			kinds[r.Message.ID] = r.Kind
		}
	}

	expected := map[string]models.ResultKind{
		"s-match":  models.ResultMatched,
		"m-match":  models.ResultMatched,
		"s-amount": models.ResultAmountMismatch,
		"m-amount": models.ResultAmountMismatch,
		"s-date":   models.ResultDateMismatch,
		"m-date":   models.ResultDateMismatch,
		"s-weak":   models.ResultStatementOnly,
		"m-weak":   models.ResultMessageOnly,
		"s-none":   models.ResultStatementOnly,
		"m-none":   models.ResultMessageOnly,
	}
	for id, want := range expected {
		if kinds[id] != want {
			t.Errorf("%s: expected %s, got %s", id, want, kinds[id])
		}
	}

	amount := outcome.ByKind(models.ResultAmountMismatch)[0]
	if !amount.AmountDifference.Equal(decimal.RequireFromString("0.50")) {
		t.Errorf("Expected amount difference 0.50, got %s", amount.AmountDifference)
	}
	date := outcome.ByKind(models.ResultDateMismatch)[0]
	if date.DayDifference != 10 {
		t.Errorf("Expected day difference 10, got %d", date.DayDifference)
	}

	counts := outcome.Counts()
	if counts[models.ResultMatched] != 1 || counts[models.ResultStatementOnly] != 2 || counts[models.ResultMessageOnly] != 2 {
		t.Errorf("Unexpected counts: %v", counts)
	}
}

func TestReconcile_LowConfidenceExactAmount(t *testing.T) {
	engine := newTestEngine(t)

	// containment merchant, exact amount, three days apart
	yoses := stmt("s-yoses", "AUTOMERCADO LOS YOSES", "5000", 0)
	late := msg("m-late", "AUTOMERCADO", "5000", 3)

	outcome := engine.Reconcile([]*models.CanonicalTransaction{yoses}, []*models.CanonicalTransaction{late})
	if err := outcome.Verify(); err != nil {
		t.Fatalf("Conservation violated: %v", err)
	}
	if len(outcome.Results) != 1 {
		t.Fatalf("Expected a single paired result, got %d", len(outcome.Results))
	}
	result := outcome.Results[0]
	if result.Candidate.Score >= engine.GetConfiguration().HighConfidence {
		t.Fatalf("Expected a score below the high threshold, got %v", result.Candidate.Score)
	}
	if result.Kind != models.ResultDateMismatch || result.DayDifference != -3 {
		t.Errorf("Expected date_mismatch with -3 days, got %s with %d", result.Kind, result.DayDifference)
	}

	// same-day containment leaves the message for a later exact match
	escazu := stmt("s-escazu", "AUTOMERCADO ESCAZU", "5000", 0)
	exact := stmt("s-exact", "AUTOMERCADO", "5000", 0)
	sameDay := msg("m-same", "AUTOMERCADO", "5000", 0)

	outcome = engine.Reconcile([]*models.CanonicalTransaction{escazu, exact}, []*models.CanonicalTransaction{sameDay})
	if err := outcome.Verify(); err != nil {
		t.Fatalf("Conservation violated: %v", err)
	}

	only := outcome.ByKind(models.ResultStatementOnly)
	if len(only) != 1 || only[0].Statement != escazu || only[0].Message != nil {
		t.Fatalf("Expected the containment statement to be statement_only, got %v", only)
	}
	if only[0].Candidate == nil || only[0].Candidate.Score >= engine.GetConfiguration().HighConfidence {
		t.Errorf("Expected the weak candidate to be kept for review, got %v", only[0].Candidate)
	}
	matched := outcome.ByKind(models.ResultMatched)
	if len(matched) != 1 || matched[0].Statement != exact || matched[0].Message != sameDay {
		t.Errorf("Expected the exact statement to take the freed message")
	}

	outcome = engine.Reconcile([]*models.CanonicalTransaction{escazu}, []*models.CanonicalTransaction{sameDay})
	if counts := outcome.Counts(); counts[models.ResultStatementOnly] != 1 || counts[models.ResultMessageOnly] != 1 {
		t.Errorf("Expected an unpaired statement and message, got %v", counts)
	}
}

func TestReconcile_EmptyInputs(t *testing.T) {
	engine := newTestEngine(t)

	outcome := engine.Reconcile(nil, nil)
	if err := outcome.Verify(); err != nil {
		t.Errorf("Empty reconciliation should verify: %v", err)
	}

	outcome = engine.Reconcile(nil, []*models.CanonicalTransaction{msg("m1", "UBER", "1", 0)})
	if outcome.Counts()[models.ResultMessageOnly] != 1 {
		t.Errorf("Expected the message to be message_only")
	}
}

func randomDataset(r *rand.Rand, prefix string, source models.Source, n int) []*models.CanonicalTransaction {
	merchants := []string{"UBER", "UBER EATS", "AUTOMERCADO", "AUTOMERCADO ESCAZU", "NETFLIX", "SODA TAPIA"}
	amounts := []string{"100.00", "100.50", "101.00", "2500.00", "5000.00", "5000.75"}

	out := make([]*models.CanonicalTransaction, n)
	for i := range out {
		t := txn(source, fmt.Sprintf("%s%d", prefix, i), merchants[r.Intn(len(merchants))], amounts[r.Intn(len(amounts))], r.Intn(12)-6)
		if r.Intn(5) == 0 {
			t.Direction = models.DirectionCredit
		}
		if r.Intn(7) == 0 {
			t.Currency = models.CurrencyUSD
		}
		out[i] = t
	}
	return out
}

func TestReconcile_ConservationAndIndexEquivalence(t *testing.T) {
	engine := newTestEngine(t)
	r := rand.New(rand.NewSource(42))

	for round := 0; round < 20; round++ {
		statements := randomDataset(r, "s", models.SourceStatement, 20+r.Intn(60))
		messages := randomDataset(r, "m", models.SourceMessage, 20+r.Intn(60))

		indexed := engine.Reconcile(statements, messages)
		if err := indexed.Verify(); err != nil {
			t.Fatalf("Round %d: conservation violated: %v", round, err)
		}

		all := make([]int, len(messages))
		for i := range all {
			all[i] = i
		}
		exhaustive := engine.reconcile(statements, messages, func(*models.CanonicalTransaction) []int { return all })

		if len(indexed.Results) != len(exhaustive.Results) {
			t.Fatalf("Round %d: indexed produced %d results, exhaustive %d", round, len(indexed.Results), len(exhaustive.Results))
		}
		for i := range indexed.Results {
			a, b := indexed.Results[i], exhaustive.Results[i]
			if a.Kind != b.Kind || a.Statement != b.Statement || a.Message != b.Message {
				t.Fatalf("Round %d: result %d differs between indexed and exhaustive scoring", round, i)
			}
		}

		counts := indexed.Counts()
		stmtSide := counts[models.ResultMatched] + counts[models.ResultAmountMismatch] + counts[models.ResultDateMismatch] + counts[models.ResultStatementOnly]
		if stmtSide != len(statements) {
			t.Errorf("Round %d: statement side %d != %d", round, stmtSide, len(statements))
		}
	}
}

func TestOutcome_VerifyDetectsViolations(t *testing.T) {
	s := stmt("s1", "UBER", "1", 0)
	m := msg("m1", "UBER", "1", 0)

	tests := []struct {
		name    string
		outcome *Outcome
	}{
		{"statement twice", &Outcome{StatementCount: 1, Results: []*models.MatchResult{
			{Kind: models.ResultStatementOnly, Statement: s},
			{Kind: models.ResultStatementOnly, Statement: s},
		}}},
		{"missing message", &Outcome{StatementCount: 1, MessageCount: 1, Results: []*models.MatchResult{
			{Kind: models.ResultStatementOnly, Statement: s},
		}}},
		{"wrong side", &Outcome{MessageCount: 1, Results: []*models.MatchResult{
			{Kind: models.ResultMatched, Message: m},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.outcome.Verify()
			if !errors.HasCode(err, errors.CodeDataInconsistent) {
				t.Errorf("Expected data inconsistency, got %v", err)
			}
		})
	}
}

func TestReconcile_Concurrent(t *testing.T) {
	engine := newTestEngine(t)
	r := rand.New(rand.NewSource(7))
	statements := randomDataset(r, "s", models.SourceStatement, 200)
	messages := randomDataset(r, "m", models.SourceMessage, 200)

	expected := engine.Reconcile(statements, messages).Counts()

	var wg sync.WaitGroup
	results := make([]map[models.ResultKind]int, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = engine.Reconcile(statements, messages).Counts()
		}(i)
	}
	wg.Wait()

	for i, counts := range results {
		for _, k := range models.AllResultKinds {
			if counts[k] != expected[k] {
				t.Errorf("Run %d: %s count %d, expected %d", i, k, counts[k], expected[k])
			}
		}
	}
}
