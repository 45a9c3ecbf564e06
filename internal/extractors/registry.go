package extractors

import (
	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/internal/normalizer"
	"bank-ledger-reconciler/pkg/errors"
	"bank-ledger-reconciler/pkg/logger"
)

// Registry dispatches messages to extractors in a fixed priority order.
// The informational detector always runs first; the first transactional
// extractor whose Detect returns true owns the document, and its failure is
// final.
type Registry struct {
	informational Informational
	extractors    []Extractor
	logger        logger.Logger
}

// NewRegistry creates a registry with the default priority:
// card_payment, transfer_in, transfer_out, cardless_withdrawal, purchase.
func NewRegistry(dates *normalizer.DateParser) *Registry {
	if dates == nil {
		dates = normalizer.NewDateParser("")
	}
	return NewRegistryWith(
		NewCardPayment(dates),
		NewTransferIn(dates),
		NewTransferOut(dates),
		NewCardlessWithdrawal(dates),
		NewPurchase(dates),
	)
}

// NewRegistryWith creates a registry with an explicit extractor order
func NewRegistryWith(extractors ...Extractor) *Registry {
	return &Registry{
		extractors: extractors,
		logger:     logger.GetGlobalLogger().WithComponent("extractors"),
	}
}

// SetLogger replaces the registry logger
func (r *Registry) SetLogger(l logger.Logger) {
	r.logger = l.WithComponent("extractors")
}

// Names returns the detector names in evaluation order
func (r *Registry) Names() []string {
	names := []string{r.informational.Name()}
	for _, e := range r.extractors {
		names = append(names, e.Name())
	}
	return names
}

// Classify returns the extractor that claims doc. Informational documents
// yield NotATransaction; unclaimed documents yield UnrecognizedDocument.
func (r *Registry) Classify(doc *models.RawDocument) (Extractor, error) {
	if doc == nil || doc.Kind != models.DocumentMessage {
		id := ""
		if doc != nil {
			id = doc.ID
		}
		return nil, errors.DocumentError(errors.CodeUnrecognizedDocument, id, nil)
	}

	if r.informational.Detect(doc) {
		return nil, errors.DocumentError(errors.CodeNotATransaction, doc.ID, nil)
	}

	for _, e := range r.extractors {
		if e.Detect(doc) {
			return e, nil
		}
	}
	return nil, errors.DocumentError(errors.CodeUnrecognizedDocument, doc.ID, nil).
		WithSuggestion("add an extractor for this message sub-format")
}

// Extract classifies doc and runs the owning extractor
func (r *Registry) Extract(doc *models.RawDocument) (*Extraction, error) {
	e, err := r.Classify(doc)
	if err != nil {
		r.logger.WithField("document_id", docID(doc)).Debugf("message not extracted: %v", err)
		return nil, err
	}

	ex, err := e.Extract(doc)
	if err != nil {
		r.logger.WithFields(logger.Fields{
			"document_id": doc.ID,
			"extractor":   e.Name(),
		}).WithError(err).Warn("extraction failed")
		return nil, err
	}
	return ex, nil
}

func docID(doc *models.RawDocument) string {
	if doc == nil {
		return ""
	}
	return doc.ID
}
