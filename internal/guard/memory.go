package guard

import (
	"context"
	"sync"

	"bank-ledger-reconciler/pkg/errors"
)

type statementState int

const (
	stateReserved statementState = iota + 1
	stateCompleted
)

type profileKey struct {
	profile string
	key     string
}

// MemoryStore is a Store for tests and single-process runs. One mutex
// serializes every check-then-act.
type MemoryStore struct {
	mu         sync.Mutex
	statements map[profileKey]statementState
	messages   map[profileKey]string
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		statements: make(map[profileKey]statementState),
		messages:   make(map[profileKey]string),
	}
}

// ReserveStatement implements Store
func (s *MemoryStore) ReserveStatement(_ context.Context, profileID, contentHash, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := profileKey{profileID, contentHash}
	if _, exists := s.statements[key]; exists {
		return errors.IdempotencyError(errors.CodeAlreadyProcessed, profileID, contentHash)
	}
	s.statements[key] = stateReserved
	return nil
}

// CompleteStatement implements Store
func (s *MemoryStore) CompleteStatement(_ context.Context, profileID, contentHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := profileKey{profileID, contentHash}
	if _, exists := s.statements[key]; !exists {
		return errors.New(errors.CategoryIdempotency, errors.CodeDataInconsistent, "completing a statement that was never reserved")
	}
	s.statements[key] = stateCompleted
	return nil
}

// ReleaseStatement implements Store. Completed statements are never released.
func (s *MemoryStore) ReleaseStatement(_ context.Context, profileID, contentHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := profileKey{profileID, contentHash}
	if s.statements[key] == stateReserved {
		delete(s.statements, key)
	}
	return nil
}

// ReserveMessage implements Store
func (s *MemoryStore) ReserveMessage(_ context.Context, profileID, messageID, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := profileKey{profileID, messageID}
	if _, exists := s.messages[key]; exists {
		return errors.IdempotencyError(errors.CodeDuplicateMessage, profileID, messageID)
	}
	s.messages[key] = documentID
	return nil
}

// ReleaseMessage implements Store
func (s *MemoryStore) ReleaseMessage(_ context.Context, profileID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.messages, profileKey{profileID, messageID})
	return nil
}

// IsCompleted reports whether a statement finished ingestion
func (s *MemoryStore) IsCompleted(profileID, contentHash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statements[profileKey{profileID, contentHash}] == stateCompleted
}
