package repository

import (
	"context"
)

// TransactionManager defines the interface for managing database transactions.
// It abstracts the underlying database implementation from the use case layer.
type TransactionManager interface {
	// Execute runs the given function within a single database transaction.
	// The function receives a RepositoryFactory bound to that transaction, so
	// every repository it hands out shares the same transactional context.
	// If the function returns an error, the transaction is rolled back.
	// Otherwise, the transaction is committed.
	Execute(ctx context.Context, fn func(repoFactory RepositoryFactory) error) error
}

// RepositoryFactory provides access to all repositories within a transaction.
type RepositoryFactory interface {
	UserRepo() UserRepository
	SessionRepo() SessionRepository
	ModerationRepo() ModerationRepository
	OAuthStateRepo() OAuthStateRepository
	OAuthPendingRepo() OAuthPendingRepository
	OAuthIdentityRepo() OAuthIdentityRepository
	AuditRepo() AuditRepository
	SecretRepo() SecretRepository
}
