// Package usecase contains the application-specific business rules.
package usecase

import (
	"context"

	"bazaar/internal/domain/entity"
)

// BeginOAuthInput defines the data required to start an authorization round-trip.
type BeginOAuthInput struct {
	Provider entity.ProviderType
	Intent   entity.OAuthIntent
	// Next is the relative path to return the browser to afterwards.
	Next string
	Meta entity.ClientMeta
}

// OAuthCallbackInput defines the data the provider sends back.
type OAuthCallbackInput struct {
	State string
	Code  string
	// CurrentUserID is the authenticated user for link intent, zero otherwise.
	CurrentUserID int64
	Meta          entity.ClientMeta
}

// OAuthCallbackOutput is the outcome of a provider callback. Exactly one of
// Login or PendingState is set when Linked is false.
type OAuthCallbackOutput struct {
	// Login is set when an existing identity signed in.
	Login *LoginOutput
	// PendingState is set when signup completion is required; the client
	// finishes with CompleteSignup.
	PendingState string
	// Linked is true when a link intent attached the identity to the
	// current user.
	Linked bool
	// Next is the path the browser should be returned to.
	Next string
}

// CompleteSignupInput finishes a pending external signup. Email is the
// address the user confirmed on the completion form; when empty the
// provider-reported one is used.
type CompleteSignupInput struct {
	State    string
	Username string
	Email    string
	Meta     entity.ClientMeta
}

// OAuthUsecase defines the interface for external identity operations.
type OAuthUsecase interface {
	// Begin persists state and PKCE material and returns the provider
	// authorization URL to redirect the browser to.
	Begin(ctx context.Context, input BeginOAuthInput) (string, error)

	// HandleCallback consumes the state exactly once and advances the flow:
	// sign-in for a known identity, a pending record for a new one, or a
	// link for an authenticated user.
	HandleCallback(ctx context.Context, input OAuthCallbackInput) (*OAuthCallbackOutput, error)

	// CompleteSignup creates the account, links the identity, and opens a
	// session, consuming the pending record.
	CompleteSignup(ctx context.Context, input CompleteSignupInput) (*LoginOutput, error)

	ListIdentities(ctx context.Context, userID int64) ([]*entity.OAuthIdentity, error)

	// Unlink detaches a provider identity. The last sign-in method cannot
	// be removed.
	Unlink(ctx context.Context, userID int64, provider entity.ProviderType) error
}
