// Package guard keeps ingestion idempotent. Statements are keyed by the
// SHA-256 of their bytes and rejected before parsing when already seen;
// messages are keyed by their source message ID. Probable duplicates that
// share no key are only flagged.
package guard

import (
	"context"
	"strings"
	"sync"

	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/pkg/errors"
	"bank-ledger-reconciler/pkg/logger"
)

// Guard wraps a Store with the statement reservation lifecycle
type Guard struct {
	store  Store
	logger logger.Logger
}

// New creates a Guard over store
func New(store Store) *Guard {
	return &Guard{
		store:  store,
		logger: logger.GetGlobalLogger().WithComponent("guard"),
	}
}

// Reservation is a claimed statement. Exactly one of Complete or Release
// should be called; later calls are no-ops.
type Reservation struct {
	ProfileID   string
	ContentHash string
	DocumentID  string

	guard *Guard
	once  sync.Once
}

// BeginStatement reserves a statement for ingestion. A statement seen
// before for the same profile yields AlreadyProcessed and must not be parsed.
func (g *Guard) BeginStatement(ctx context.Context, profileID string, doc *models.RawDocument) (*Reservation, error) {
	if strings.TrimSpace(profileID) == "" {
		return nil, errors.ValidationError(errors.CodeMissingField, "profile_id", profileID, nil)
	}

	hash := doc.ContentHash()
	log := g.logger.WithFields(logger.Fields{
		"profile_id":   profileID,
		"content_hash": hash[:12],
		"document_id":  doc.ID,
	})

	if err := g.store.ReserveStatement(ctx, profileID, hash, doc.ID); err != nil {
		if errors.HasCode(err, errors.CodeAlreadyProcessed) {
			log.Info("Statement already processed, skipping")
		} else {
			log.WithError(err).Error("Failed to reserve statement")
		}
		return nil, err
	}

	log.Debug("Statement reserved")
	return &Reservation{
		ProfileID:   profileID,
		ContentHash: hash,
		DocumentID:  doc.ID,
		guard:       g,
	}, nil
}

// Complete marks the statement as ingested
func (r *Reservation) Complete(ctx context.Context) error {
	var err error
	r.once.Do(func() {
		err = r.guard.store.CompleteStatement(ctx, r.ProfileID, r.ContentHash)
	})
	return err
}

// Release gives the statement back so a failed ingestion can be retried
func (r *Reservation) Release(ctx context.Context) error {
	var err error
	r.once.Do(func() {
		err = r.guard.store.ReleaseStatement(ctx, r.ProfileID, r.ContentHash)
		r.guard.logger.WithField("document_id", r.DocumentID).Debug("Statement reservation released")
	})
	return err
}

// AdmitMessage claims a message's natural key. A repeat yields
// DuplicateMessage, which callers treat as a no-op.
func (g *Guard) AdmitMessage(ctx context.Context, profileID, messageID, documentID string) error {
	if strings.TrimSpace(profileID) == "" {
		return errors.ValidationError(errors.CodeMissingField, "profile_id", profileID, nil)
	}
	if strings.TrimSpace(messageID) == "" {
		return errors.ValidationError(errors.CodeMissingField, "message_id", messageID, nil)
	}

	err := g.store.ReserveMessage(ctx, profileID, messageID, documentID)
	if err != nil && errors.HasCode(err, errors.CodeDuplicateMessage) {
		g.logger.WithFields(logger.Fields{
			"profile_id": profileID,
			"message_id": messageID,
		}).Debug("Duplicate message ignored")
	}
	return err
}

// ReleaseMessage gives a claimed message key back after its transaction
// failed to persist, so the message can be ingested again
func (g *Guard) ReleaseMessage(ctx context.Context, profileID, messageID string) error {
	err := g.store.ReleaseMessage(ctx, profileID, messageID)
	g.logger.WithFields(logger.Fields{
		"profile_id": profileID,
		"message_id": messageID,
	}).Debug("Message key released")
	return err
}

// MessageKey returns the natural key of a message document: its source
// message ID, or its content hash when the envelope carries none
func MessageKey(doc *models.RawDocument) string {
	if id := strings.TrimSpace(doc.Envelope.MessageID); id != "" {
		return id
	}
	return "sha256:" + doc.ContentHash()
}
