package entity

import "time"

// ProviderType identifies an external identity provider.
type ProviderType string

const (
	// ProviderTypeGoogle is Google Sign-In.
	ProviderTypeGoogle ProviderType = "google"
)

// OAuthIntent records why an external-login attempt was started.
type OAuthIntent string

const (
	// IntentSignup creates a new local account on completion.
	IntentSignup OAuthIntent = "signup"

	// IntentSignin logs into an existing linked account.
	IntentSignin OAuthIntent = "signin"

	// IntentLink attaches an identity to the already-authenticated account.
	IntentLink OAuthIntent = "link"
)

// OAuthState is the ephemeral CSRF/PKCE anchor for a single external-login
// attempt. It is single-use: ConsumedAt is set on first successful use and
// the row is never accepted again, even before expiry.
type OAuthState struct {
	State        string
	Provider     ProviderType
	Intent       OAuthIntent
	Next         string
	PKCEVerifier string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	ConsumedAt   *time.Time
	UserAgent    string
	IP           string
}

// Consumed reports whether the state has already been redeemed.
func (s *OAuthState) Consumed() bool {
	return s.ConsumedAt != nil
}

// OAuthPending holds a provider-verified profile that is not yet bound to a
// local account, keyed by the same state value, awaiting the user to confirm
// a username and email on the completion form.
type OAuthPending struct {
	State          string
	Provider       ProviderType
	ProviderUserID string
	ProfileJSON    string
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// OAuthIdentity is the durable link between one provider account and one
// local user. The (Provider, ProviderUserID) pair is unique; many identities
// may reference the same user.
type OAuthIdentity struct {
	ID             int64
	UserID         int64
	Provider       ProviderType
	ProviderUserID string
	Email          string
	CreatedAt      time.Time
}
