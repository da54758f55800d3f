package service

import (
	"time"

	"github.com/google/uuid"

	"bazaar/internal/errors"
)

// TokenKind discriminates the three token flavors the codec issues. A token
// of one kind never verifies as another.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
	TokenKindReauth  TokenKind = "reauth"
)

// Verification errors. Expiry is reported distinctly because callers treat
// an expired access token as "try refresh" rather than "re-login".
var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// TokenClaims is the verified content of a token. Email is only present on
// access tokens; the other kinds never carry it.
type TokenClaims struct {
	UserID    int64
	Email     string
	SessionID uuid.UUID
	Kind      TokenKind
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenCodec signs and verifies the service's bearer tokens. Each Verify
// method accepts only its own kind; a refresh token handed to VerifyAccess
// fails with ErrTokenInvalid, not ErrTokenExpired.
type TokenCodec interface {
	SignAccess(userID int64, email string, sessionID uuid.UUID) (string, error)
	SignRefresh(userID int64, sessionID uuid.UUID) (string, error)
	SignReauth(userID int64, sessionID uuid.UUID) (string, error)

	VerifyAccess(token string) (*TokenClaims, error)
	VerifyRefresh(token string) (*TokenClaims, error)
	VerifyReauth(token string) (*TokenClaims, error)

	// HashToken produces the digest stored server-side in place of the raw
	// token. The raw token never touches the database.
	HashToken(token string) string
}
