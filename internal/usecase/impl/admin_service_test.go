package impl

import (
	"context"
	"strconv"
	"testing"
	"time"

	"bazaar/internal/domain/entity"
	domainerrors "bazaar/internal/domain/errors"
	"bazaar/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdminService(t *testing.T, store *fakeStore) usecase.AdminUsecase {
	t.Helper()

	return NewAdminService(&fakeTxManager{store: store}, newDiscardLogger())
}

func adminPrincipal(user *entity.User) *entity.Principal {
	return &entity.Principal{
		ID:           user.ID,
		Email:        user.Email,
		Username:     user.Username,
		IsAdmin:      user.IsAdmin,
		IsSuperadmin: user.IsSuperadmin,
		SessionID:    uuid.New(),
	}
}

func TestAdminService_NonAdminForbidden(t *testing.T) {
	store := newFakeStore()
	svc := newTestAdminService(t, store)

	regular := store.seedUser(&entity.User{Email: "bob@example.com", Username: "bob"})
	target := store.seedUser(&entity.User{Email: "carol@example.com", Username: "carol"})

	err := svc.BanUser(context.Background(), adminPrincipal(regular), target.ID, "spam")
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
	assert.Empty(t, store.moderations)
}

func TestAdminService_SelfModerationForbidden(t *testing.T) {
	store := newFakeStore()
	svc := newTestAdminService(t, store)

	admin := store.seedUser(&entity.User{Email: "admin@example.com", Username: "admin", IsAdmin: true})

	err := svc.BanUser(context.Background(), adminPrincipal(admin), admin.ID, "oops")
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
}

func TestAdminService_AdminCannotTouchAdmin(t *testing.T) {
	store := newFakeStore()
	svc := newTestAdminService(t, store)

	admin := store.seedUser(&entity.User{Email: "admin@example.com", Username: "admin", IsAdmin: true})
	peer := store.seedUser(&entity.User{Email: "peer@example.com", Username: "peer", IsAdmin: true})

	err := svc.BanUser(context.Background(), adminPrincipal(admin), peer.ID, "rivalry")
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
}

func TestAdminService_SuperadminUntouchable(t *testing.T) {
	store := newFakeStore()
	svc := newTestAdminService(t, store)

	root := store.seedUser(&entity.User{Email: "root@example.com", Username: "root", IsAdmin: true, IsSuperadmin: true})
	other := store.seedUser(&entity.User{Email: "other@example.com", Username: "other", IsAdmin: true, IsSuperadmin: true})

	err := svc.BanUser(context.Background(), adminPrincipal(root), other.ID, "coup")
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	err = svc.DemoteAdmin(context.Background(), adminPrincipal(root), other.ID)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
}

func TestAdminService_PromoteRequiresSuperadmin(t *testing.T) {
	store := newFakeStore()
	svc := newTestAdminService(t, store)

	admin := store.seedUser(&entity.User{Email: "admin@example.com", Username: "admin", IsAdmin: true})
	target := store.seedUser(&entity.User{Email: "carol@example.com", Username: "carol"})

	err := svc.PromoteAdmin(context.Background(), adminPrincipal(admin), target.ID)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
	assert.False(t, store.users[target.ID].IsAdmin)
}

func TestAdminService_PromoteAndDemote(t *testing.T) {
	store := newFakeStore()
	svc := newTestAdminService(t, store)

	root := store.seedUser(&entity.User{Email: "root@example.com", Username: "root", IsAdmin: true, IsSuperadmin: true})
	target := store.seedUser(&entity.User{Email: "carol@example.com", Username: "carol"})

	require.NoError(t, svc.PromoteAdmin(context.Background(), adminPrincipal(root), target.ID))
	assert.True(t, store.users[target.ID].IsAdmin)

	require.NoError(t, svc.DemoteAdmin(context.Background(), adminPrincipal(root), target.ID))
	assert.False(t, store.users[target.ID].IsAdmin)

	require.Len(t, store.audits, 2)
	assert.Equal(t, "admin.promote", store.audits[0].Action)
	assert.Equal(t, "admin.demote", store.audits[1].Action)
}

func TestAdminService_SuspendRevokesSessionsAndAudits(t *testing.T) {
	store := newFakeStore()
	svc := newTestAdminService(t, store)

	admin := store.seedUser(&entity.User{Email: "admin@example.com", Username: "admin", IsAdmin: true})
	target := store.seedUser(&entity.User{Email: "carol@example.com", Username: "carol"})

	sessionID := uuid.New()
	store.sessions[sessionID] = &entity.Session{
		ID:        sessionID,
		UserID:    target.ID,
		ExpiresAt: time.Now().Add(time.Hour),
	}

	until := time.Now().Add(48 * time.Hour)
	err := svc.SuspendUser(context.Background(), adminPrincipal(admin), usecase.SuspendUserInput{
		TargetUserID: target.ID,
		Until:        &until,
		Reason:       "listing fraud",
	})
	require.NoError(t, err)

	record, ok := store.moderations[target.ID]
	require.True(t, ok)
	assert.Equal(t, entity.ModerationSuspended, record.Status)
	require.NotNil(t, record.SuspendedUntil)
	assert.Equal(t, "listing fraud", record.Reason)

	assert.NotNil(t, store.sessions[sessionID].RevokedAt)

	require.Len(t, store.audits, 1)
	entry := store.audits[0]
	assert.Equal(t, admin.ID, entry.ActorUserID)
	assert.Equal(t, "admin.suspend", entry.Action)
	assert.Equal(t, "user", entry.TargetKind)
	assert.Equal(t, strconv.FormatInt(target.ID, 10), entry.TargetID)
	assert.Contains(t, entry.Metadata, "listing fraud")
}

func TestAdminService_BanAndReinstate(t *testing.T) {
	store := newFakeStore()
	svc := newTestAdminService(t, store)

	admin := store.seedUser(&entity.User{Email: "admin@example.com", Username: "admin", IsAdmin: true})
	target := store.seedUser(&entity.User{Email: "carol@example.com", Username: "carol"})

	require.NoError(t, svc.BanUser(context.Background(), adminPrincipal(admin), target.ID, "spam"))
	assert.Equal(t, entity.ModerationBanned, store.moderations[target.ID].Status)

	require.NoError(t, svc.ReinstateUser(context.Background(), adminPrincipal(admin), target.ID))
	assert.NotContains(t, store.moderations, target.ID)

	require.Len(t, store.audits, 2)
	assert.Equal(t, "admin.ban", store.audits[0].Action)
	assert.Equal(t, "admin.reinstate", store.audits[1].Action)
}

func TestAdminService_DeleteUser(t *testing.T) {
	store := newFakeStore()
	svc := newTestAdminService(t, store)

	admin := store.seedUser(&entity.User{Email: "admin@example.com", Username: "admin", IsAdmin: true})
	target := store.seedUser(&entity.User{Email: "carol@example.com", Username: "carol"})

	sessionID := uuid.New()
	store.sessions[sessionID] = &entity.Session{
		ID:        sessionID,
		UserID:    target.ID,
		ExpiresAt: time.Now().Add(time.Hour),
	}

	require.NoError(t, svc.DeleteUser(context.Background(), adminPrincipal(admin), target.ID))

	assert.NotContains(t, store.users, target.ID)
	assert.NotNil(t, store.sessions[sessionID].RevokedAt)
}

func TestAdminService_DeleteUnknownTarget(t *testing.T) {
	store := newFakeStore()
	svc := newTestAdminService(t, store)

	admin := store.seedUser(&entity.User{Email: "admin@example.com", Username: "admin", IsAdmin: true})

	err := svc.DeleteUser(context.Background(), adminPrincipal(admin), 9999)
	assert.ErrorIs(t, err, domainerrors.ErrUserNotFound)
}

func TestAdminService_AuditFailureDoesNotFailAction(t *testing.T) {
	store := newFakeStore()
	svc := newTestAdminService(t, store)

	admin := store.seedUser(&entity.User{Email: "admin@example.com", Username: "admin", IsAdmin: true})
	target := store.seedUser(&entity.User{Email: "carol@example.com", Username: "carol"})

	store.auditErr = errors.New("audit table is on fire")

	require.NoError(t, svc.BanUser(context.Background(), adminPrincipal(admin), target.ID, "spam"))

	// The mutation committed even though the audit write did not.
	assert.Equal(t, entity.ModerationBanned, store.moderations[target.ID].Status)
	assert.Empty(t, store.audits)
}

func TestAdminService_ListAuditByTarget(t *testing.T) {
	store := newFakeStore()
	svc := newTestAdminService(t, store)

	admin := store.seedUser(&entity.User{Email: "admin@example.com", Username: "admin", IsAdmin: true})
	target := store.seedUser(&entity.User{Email: "carol@example.com", Username: "carol"})
	bystander := store.seedUser(&entity.User{Email: "dave@example.com", Username: "dave"})

	require.NoError(t, svc.BanUser(context.Background(), adminPrincipal(admin), target.ID, "spam"))
	require.NoError(t, svc.BanUser(context.Background(), adminPrincipal(admin), bystander.ID, "also spam"))

	entries, err := svc.ListAuditByTarget(context.Background(), adminPrincipal(admin), "user", strconv.FormatInt(target.ID, 10), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "admin.ban", entries[0].Action)

	_, err = svc.ListAuditByTarget(context.Background(), adminPrincipal(target), "user", "1", 10)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
}

func TestAdminService_ListAuditByActor(t *testing.T) {
	store := newFakeStore()
	svc := newTestAdminService(t, store)

	admin := store.seedUser(&entity.User{Email: "admin@example.com", Username: "admin", IsAdmin: true})
	otherAdmin := store.seedUser(&entity.User{Email: "root@example.com", Username: "root", IsAdmin: true})
	target := store.seedUser(&entity.User{Email: "carol@example.com", Username: "carol"})
	bystander := store.seedUser(&entity.User{Email: "dave@example.com", Username: "dave"})

	require.NoError(t, svc.BanUser(context.Background(), adminPrincipal(admin), target.ID, "spam"))
	require.NoError(t, svc.BanUser(context.Background(), adminPrincipal(otherAdmin), bystander.ID, "also spam"))

	entries, err := svc.ListAuditByActor(context.Background(), adminPrincipal(admin), admin.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "admin.ban", entries[0].Action)
	assert.Equal(t, admin.ID, entries[0].ActorUserID)

	_, err = svc.ListAuditByActor(context.Background(), adminPrincipal(target), admin.ID, 10)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
}
