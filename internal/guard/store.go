package guard

import "context"

//go:generate mockgen -destination=mocks/mock_store.go -source=store.go Store

// Store is the persistence side of the guard. Reservations must be atomic
// check-then-act operations: two concurrent reservations of the same key
// must never both succeed.
type Store interface {
	// ReserveStatement claims (profileID, contentHash). It fails with
	// AlreadyProcessed when the key is reserved or completed.
	ReserveStatement(ctx context.Context, profileID, contentHash, documentID string) error

	// CompleteStatement marks a reservation as successfully ingested
	CompleteStatement(ctx context.Context, profileID, contentHash string) error

	// ReleaseStatement drops a reservation that was never completed
	ReleaseStatement(ctx context.Context, profileID, contentHash string) error

	// ReserveMessage claims (profileID, messageID). It fails with
	// DuplicateMessage when the key already exists.
	ReserveMessage(ctx context.Context, profileID, messageID, documentID string) error

	// ReleaseMessage drops a message key whose transaction was never stored
	ReleaseMessage(ctx context.Context, profileID, messageID string) error
}
