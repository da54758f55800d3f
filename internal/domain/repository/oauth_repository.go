package repository

import (
	"context"
	"time"

	"bazaar/internal/domain/entity"
	"bazaar/internal/errors"
)

// Sentinel errors shared by the OAuth repository implementations.
var (
	ErrOAuthStateNotFound    = errors.New("oauth state not found")
	ErrOAuthPendingNotFound  = errors.New("oauth pending not found")
	ErrOAuthIdentityNotFound = errors.New("oauth identity not found")
)

// OAuthStateRepository persists one-shot authorization state records.
type OAuthStateRepository interface {
	Create(ctx context.Context, state *entity.OAuthState) error

	// FindByStateForUpdate loads a state with a row-level lock so a replayed
	// callback cannot consume the same state twice. Must be called inside a
	// transaction.
	FindByStateForUpdate(ctx context.Context, state string) (*entity.OAuthState, error)

	MarkConsumed(ctx context.Context, state string, at time.Time) error
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// OAuthPendingRepository persists profiles awaiting signup completion.
type OAuthPendingRepository interface {
	Create(ctx context.Context, pending *entity.OAuthPending) error
	FindByState(ctx context.Context, state string) (*entity.OAuthPending, error)
	Delete(ctx context.Context, state string) error
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// OAuthIdentityRepository persists provider-to-user links.
type OAuthIdentityRepository interface {
	Create(ctx context.Context, identity *entity.OAuthIdentity) error
	FindByProviderUserID(ctx context.Context, provider entity.ProviderType, providerUserID string) (*entity.OAuthIdentity, error)
	FindByUserID(ctx context.Context, userID int64) ([]*entity.OAuthIdentity, error)
	DeleteByUserAndProvider(ctx context.Context, userID int64, provider entity.ProviderType) error
}
