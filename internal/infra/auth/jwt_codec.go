// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"bazaar/config"
	"bazaar/internal/domain/service"
)

// jwtCodec is a concrete implementation of the TokenCodec interface using the JWT standard.
type jwtCodec struct {
	issuer        string
	audience      string
	accessSecret  string        // Secret key for access and reauth tokens.
	refreshSecret string        // Secret key for refresh tokens.
	accessTTL     time.Duration
	refreshTTL    time.Duration
	reauthTTL     time.Duration

	now func() time.Time
}

// NewJWTCodec is the constructor for jwtCodec.
// Reauth tokens share the access secret; their kind claim keeps them apart.
func NewJWTCodec(cfg *config.Config) (service.TokenCodec, error) {
	auth := cfg.Auth
	if auth == nil || auth.SecretKey.Access == "" || auth.SecretKey.Refresh == "" {
		return nil, errors.New("jwt secrets must be provided")
	}

	reauthTTL := auth.ReauthTTL
	if reauthTTL < 30*time.Second {
		reauthTTL = 30 * time.Second
	}

	return &jwtCodec{
		issuer:        auth.Issuer,
		audience:      auth.Audience,
		accessSecret:  auth.SecretKey.Access,
		refreshSecret: auth.SecretKey.Refresh,
		accessTTL:     auth.AccessTTL,
		refreshTTL:    auth.RefreshTTL,
		reauthTTL:     reauthTTL,
		now:           time.Now,
	}, nil
}

// SignAccess embeds the email so handlers can render the principal without a
// user lookup. Refresh and reauth tokens never carry it.
func (s *jwtCodec) SignAccess(userID int64, email string, sessionID uuid.UUID) (string, error) {
	return s.sign(userID, email, sessionID, service.TokenKindAccess, s.accessTTL, s.accessSecret)
}

func (s *jwtCodec) SignRefresh(userID int64, sessionID uuid.UUID) (string, error) {
	return s.sign(userID, "", sessionID, service.TokenKindRefresh, s.refreshTTL, s.refreshSecret)
}

func (s *jwtCodec) SignReauth(userID int64, sessionID uuid.UUID) (string, error) {
	return s.sign(userID, "", sessionID, service.TokenKindReauth, s.reauthTTL, s.accessSecret)
}

func (s *jwtCodec) VerifyAccess(token string) (*service.TokenClaims, error) {
	return s.verify(token, service.TokenKindAccess, s.accessSecret)
}

func (s *jwtCodec) VerifyRefresh(token string) (*service.TokenClaims, error) {
	return s.verify(token, service.TokenKindRefresh, s.refreshSecret)
}

func (s *jwtCodec) VerifyReauth(token string) (*service.TokenClaims, error) {
	return s.verify(token, service.TokenKindReauth, s.accessSecret)
}

// HashToken digests a raw token for server-side storage and comparison.
func (s *jwtCodec) HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))

	return hex.EncodeToString(sum[:])
}

// sign creates a JWT with the claims every token kind carries.
func (s *jwtCodec) sign(userID int64, email string, sessionID uuid.UUID, kind service.TokenKind, ttl time.Duration, secret string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"iss":  s.issuer,
		"aud":  s.audience,
		"sub":  strconv.FormatInt(userID, 10),
		"sid":  sessionID.String(),
		"jti":  uuid.NewString(),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
		"kind": string(kind),
	}
	if email != "" {
		claims["email"] = email
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}

	return signed, nil
}

// verify parses and validates a token, then checks the kind claim so a token
// of one flavor never passes as another.
func (s *jwtCodec) verify(tokenString string, wantKind service.TokenKind, secret string) (*service.TokenClaims, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		// Ensure the signing method is what we expect.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}

		return []byte(secret), nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, service.ErrTokenExpired
		}

		return nil, service.ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, service.ErrTokenInvalid
	}

	kind, _ := claims["kind"].(string)
	if service.TokenKind(kind) != wantKind {
		return nil, service.ErrTokenInvalid
	}

	sub, _ := claims["sub"].(string)
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, service.ErrTokenInvalid
	}

	sid, _ := claims["sid"].(string)
	sessionID, err := uuid.Parse(sid)
	if err != nil {
		return nil, service.ErrTokenInvalid
	}

	tokenID, _ := claims["jti"].(string)
	email, _ := claims["email"].(string)

	iat, err := claims.GetIssuedAt()
	if err != nil || iat == nil {
		return nil, service.ErrTokenInvalid
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, service.ErrTokenInvalid
	}

	return &service.TokenClaims{
		UserID:    userID,
		Email:     email,
		SessionID: sessionID,
		Kind:      wantKind,
		TokenID:   tokenID,
		IssuedAt:  iat.Time,
		ExpiresAt: exp.Time,
	}, nil
}
