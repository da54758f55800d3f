package service

import (
	"context"

	"bazaar/internal/domain/entity"
)

// ExternalProfile is the normalized profile returned by an identity
// provider after a successful code exchange.
type ExternalProfile struct {
	Provider       entity.ProviderType
	ProviderUserID string
	Email          string
	EmailVerified  bool
	Name           string
	Picture        string
}

// ProviderClient talks to one external identity provider.
type ProviderClient interface {
	// AuthCodeURL builds the provider authorization URL for the given state
	// and PKCE verifier.
	AuthCodeURL(state, pkceVerifier string) string

	// Exchange trades the authorization code for the provider profile,
	// completing the PKCE handshake with the stored verifier.
	Exchange(ctx context.Context, code, pkceVerifier string) (*ExternalProfile, error)
}
