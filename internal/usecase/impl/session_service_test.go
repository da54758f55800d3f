package impl

import (
	"context"
	"testing"
	"time"

	"bazaar/internal/domain/entity"
	domainerrors "bazaar/internal/domain/errors"
	"bazaar/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionService(t *testing.T, store *fakeStore) usecase.SessionUsecase {
	t.Helper()

	return NewSessionService(&fakeTxManager{store: store}, newDiscardLogger())
}

func seedSession(store *fakeStore, userID int64, expiresAt time.Time) uuid.UUID {
	id := uuid.New()
	store.sessions[id] = &entity.Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
	}

	return id
}

func TestSessionService_GetActiveSessions(t *testing.T) {
	store := newFakeStore()
	svc := newTestSessionService(t, store)

	live := seedSession(store, 1, time.Now().Add(time.Hour))
	expired := seedSession(store, 1, time.Now().Add(-time.Hour))
	revoked := seedSession(store, 1, time.Now().Add(time.Hour))
	now := time.Now()
	store.sessions[revoked].RevokedAt = &now
	seedSession(store, 2, time.Now().Add(time.Hour))

	sessions, err := svc.GetActiveSessions(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, sessions, 1)
	assert.Equal(t, live, sessions[0].ID)
	assert.NotEqual(t, expired, sessions[0].ID)
}

func TestSessionService_RevokeSession(t *testing.T) {
	store := newFakeStore()
	svc := newTestSessionService(t, store)

	id := seedSession(store, 1, time.Now().Add(time.Hour))

	require.NoError(t, svc.RevokeSession(context.Background(), 1, id))
	assert.NotNil(t, store.sessions[id].RevokedAt)
}

func TestSessionService_RevokeSessionOwnershipEnforced(t *testing.T) {
	store := newFakeStore()
	svc := newTestSessionService(t, store)

	id := seedSession(store, 1, time.Now().Add(time.Hour))

	err := svc.RevokeSession(context.Background(), 2, id)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
	assert.Nil(t, store.sessions[id].RevokedAt)
}

func TestSessionService_RevokeSessionUnknown(t *testing.T) {
	store := newFakeStore()
	svc := newTestSessionService(t, store)

	err := svc.RevokeSession(context.Background(), 1, uuid.New())
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestSessionService_RevokeAllOtherSessions(t *testing.T) {
	store := newFakeStore()
	svc := newTestSessionService(t, store)

	current := seedSession(store, 1, time.Now().Add(time.Hour))
	other1 := seedSession(store, 1, time.Now().Add(time.Hour))
	other2 := seedSession(store, 1, time.Now().Add(time.Hour))
	foreign := seedSession(store, 2, time.Now().Add(time.Hour))

	require.NoError(t, svc.RevokeAllOtherSessions(context.Background(), 1, current))

	assert.Nil(t, store.sessions[current].RevokedAt)
	assert.NotNil(t, store.sessions[other1].RevokedAt)
	assert.NotNil(t, store.sessions[other2].RevokedAt)
	assert.Nil(t, store.sessions[foreign].RevokedAt)
}

func TestSessionService_CleanupExpired(t *testing.T) {
	store := newFakeStore()
	svc := newTestSessionService(t, store)

	seedSession(store, 1, time.Now().Add(-time.Hour))
	live := seedSession(store, 1, time.Now().Add(time.Hour))

	store.oauthStates["stale"] = &entity.OAuthState{
		State:     "stale",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	store.oauthPendings["stale"] = &entity.OAuthPending{
		State:     "stale",
		ExpiresAt: time.Now().Add(-time.Minute),
	}

	removed, err := svc.CleanupExpired(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), removed)
	assert.Contains(t, store.sessions, live)
	assert.Empty(t, store.oauthStates)
	assert.Empty(t, store.oauthPendings)
}
