package impl

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"bazaar/internal/domain/entity"
	"bazaar/internal/domain/repository"
	"bazaar/internal/domain/service"
	"bazaar/internal/usecase"
)

// openSessionTokens creates a session row and signs the access/refresh pair
// bound to it. Only the hash of the refresh token is persisted.
func openSessionTokens(
	ctx context.Context,
	sessionRepo repository.SessionRepository,
	codec service.TokenCodec,
	refreshTTL time.Duration,
	now time.Time,
	userID int64,
	email string,
	meta entity.ClientMeta,
) (*usecase.AuthTokens, error) {
	sessionID := uuid.New()

	refresh, err := codec.SignRefresh(userID, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign refresh token")
	}

	session := &entity.Session{
		ID:               sessionID,
		UserID:           userID,
		RefreshTokenHash: codec.HashToken(refresh),
		LastUsedAt:       now,
		ExpiresAt:        now.Add(refreshTTL),
		UserAgent:        meta.UserAgent,
		IP:               meta.IP,
	}
	if err := sessionRepo.Create(ctx, session); err != nil {
		return nil, errors.Wrap(err, "failed to create session")
	}

	access, err := codec.SignAccess(userID, email, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign access token")
	}

	return &usecase.AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		SessionID:    sessionID,
	}, nil
}
