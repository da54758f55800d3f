// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"github.com/google/uuid"

	"bazaar/internal/domain/entity"
)

// --- Input DTOs ---

// RegisterInput defines the data required to register a new account.
type RegisterInput struct {
	Email    string
	Username string
	Password string
	Meta     entity.ClientMeta
}

// LoginInput defines the data required to log in.
type LoginInput struct {
	Email    string
	Password string
	Meta     entity.ClientMeta
}

// --- Output DTOs ---

// AuthTokens carries a freshly issued token pair and the session it belongs to.
type AuthTokens struct {
	AccessToken  string
	RefreshToken string
	SessionID    uuid.UUID
}

// LoginOutput returns the generated tokens after a successful login.
type LoginOutput struct {
	Tokens *AuthTokens
	User   *entity.User
}

// AuthUsecase defines the interface for credential and session lifecycle operations.
// This is the contract that the delivery layer (e.g., API handlers) will depend on.
type AuthUsecase interface {
	Register(ctx context.Context, input RegisterInput) (*LoginOutput, error)
	Login(ctx context.Context, input LoginInput) (*LoginOutput, error)

	// Refresh rotates the session's refresh token and returns a new pair.
	// Presenting a stale refresh token revokes the whole session.
	Refresh(ctx context.Context, refreshToken string, meta entity.ClientMeta) (*AuthTokens, error)

	// Logout revokes the session the refresh token belongs to. Unknown or
	// already revoked tokens are not an error.
	Logout(ctx context.Context, refreshToken string) error

	// ResolvePrincipal turns a raw access token into an authenticated
	// principal, enforcing session liveness and moderation standing.
	ResolvePrincipal(ctx context.Context, accessToken string) (*entity.Principal, error)

	// ResolveOptional is the lenient variant for routes that personalize
	// without requiring login: token verification plus a user lookup, with
	// every failure collapsing to "no principal".
	ResolveOptional(ctx context.Context, accessToken string) *entity.Principal

	// StepUp re-verifies the principal's password and issues a short-lived
	// reauth token for sensitive operations.
	StepUp(ctx context.Context, principal *entity.Principal, password string) (string, error)

	// ConsumeReauth verifies a reauth token for the principal and burns it.
	// A second presentation of the same token fails.
	ConsumeReauth(ctx context.Context, principal *entity.Principal, reauthToken string) error

	ChangePassword(ctx context.Context, principal *entity.Principal, currentPassword, newPassword string) error
}
