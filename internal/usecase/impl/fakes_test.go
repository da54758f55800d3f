package impl

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"bazaar/config"
	"bazaar/internal/domain/entity"
	domainerrors "bazaar/internal/domain/errors"
	"bazaar/internal/domain/repository"

	"github.com/google/uuid"
)

// In-memory store backing the fake repositories. Mimics the behavior the
// postgres layer exhibits, including its sentinel errors.
type fakeStore struct {
	mu sync.Mutex

	users      map[int64]*entity.User
	nextUserID int64

	sessions    map[uuid.UUID]*entity.Session
	moderations map[int64]*entity.UserModeration

	// moderationDeleteErr, when set, makes moderation deletes fail.
	moderationDeleteErr error

	oauthStates   map[string]*entity.OAuthState
	oauthPendings map[string]*entity.OAuthPending

	identities     map[int64]*entity.OAuthIdentity
	nextIdentityID int64

	audits   []*entity.AdminAuditEntry
	auditErr error

	secrets map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         make(map[int64]*entity.User),
		sessions:      make(map[uuid.UUID]*entity.Session),
		moderations:   make(map[int64]*entity.UserModeration),
		oauthStates:   make(map[string]*entity.OAuthState),
		oauthPendings: make(map[string]*entity.OAuthPending),
		identities:    make(map[int64]*entity.OAuthIdentity),
		secrets:       make(map[string]string),
	}
}

// fakeTxManager hands every closure a factory over the shared store. Set err
// to simulate a transaction that fails outright.
type fakeTxManager struct {
	store *fakeStore
	err   error
}

func (m *fakeTxManager) Execute(ctx context.Context, fn func(repoFactory repository.RepositoryFactory) error) error {
	if m.err != nil {
		return m.err
	}

	return fn(&fakeFactory{store: m.store})
}

type fakeFactory struct {
	store *fakeStore
}

func (f *fakeFactory) UserRepo() repository.UserRepository         { return &fakeUserRepo{s: f.store} }
func (f *fakeFactory) SessionRepo() repository.SessionRepository   { return &fakeSessionRepo{s: f.store} }
func (f *fakeFactory) ModerationRepo() repository.ModerationRepository {
	return &fakeModerationRepo{s: f.store}
}
func (f *fakeFactory) OAuthStateRepo() repository.OAuthStateRepository {
	return &fakeOAuthStateRepo{s: f.store}
}
func (f *fakeFactory) OAuthPendingRepo() repository.OAuthPendingRepository {
	return &fakeOAuthPendingRepo{s: f.store}
}
func (f *fakeFactory) OAuthIdentityRepo() repository.OAuthIdentityRepository {
	return &fakeOAuthIdentityRepo{s: f.store}
}
func (f *fakeFactory) AuditRepo() repository.AuditRepository { return &fakeAuditRepo{s: f.store} }
func (f *fakeFactory) SecretRepo() repository.SecretRepository {
	return &fakeSecretRepo{s: f.store}
}

// --- users ---

type fakeUserRepo struct {
	s *fakeStore
}

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return nil, domainerrors.ErrUserAlreadyExists
		}
	}

	r.s.nextUserID++
	stored := *user
	stored.ID = r.s.nextUserID
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.s.users[stored.ID] = &stored

	out := stored

	return &out, nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	out := *user

	return &out, nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, user := range r.s.users {
		if user.Email == email {
			out := *user

			return &out, nil
		}
	}

	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, user := range r.s.users {
		if user.Username == username {
			out := *user

			return &out, nil
		}
	}

	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.PasswordHash = &hash
	user.UpdatedAt = time.Now()

	return nil
}

func (r *fakeUserRepo) UpdateRoles(ctx context.Context, id int64, isAdmin, isSuperadmin bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.IsAdmin = isAdmin
	user.IsSuperadmin = isSuperadmin

	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(r.s.users, id)

	return nil
}

// --- sessions ---

type fakeSessionRepo struct {
	s *fakeStore
}

func (r *fakeSessionRepo) Create(ctx context.Context, session *entity.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored := *session
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	r.s.sessions[stored.ID] = &stored
	session.CreatedAt = stored.CreatedAt

	return nil
}

func (r *fakeSessionRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeSessionRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	session, ok := r.s.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	out := *session

	return &out, nil
}

func (r *fakeSessionRepo) FindActiveByUser(ctx context.Context, userID int64) ([]*entity.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now()
	var sessions []*entity.Session
	for _, session := range r.s.sessions {
		if session.UserID == userID && session.RevokedAt == nil && session.ExpiresAt.After(now) {
			out := *session
			sessions = append(sessions, &out)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})

	return sessions, nil
}

func (r *fakeSessionRepo) Rotate(ctx context.Context, id uuid.UUID, newHash string, expiresAt, lastUsedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	session, ok := r.s.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	session.RefreshTokenHash = newHash
	session.ExpiresAt = expiresAt
	session.LastUsedAt = lastUsedAt

	return nil
}

func (r *fakeSessionRepo) Revoke(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	session, ok := r.s.sessions[id]
	if ok && session.RevokedAt == nil {
		revokedAt := at
		session.RevokedAt = &revokedAt
	}

	return nil
}

func (r *fakeSessionRepo) RevokeAllByUser(ctx context.Context, userID int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, session := range r.s.sessions {
		if session.UserID == userID && session.RevokedAt == nil {
			revokedAt := at
			session.RevokedAt = &revokedAt
		}
	}

	return nil
}

func (r *fakeSessionRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var removed int64
	for id, session := range r.s.sessions {
		if session.ExpiresAt.Before(cutoff) {
			delete(r.s.sessions, id)
			removed++
		}
	}

	return removed, nil
}

// --- moderation ---

type fakeModerationRepo struct {
	s *fakeStore
}

func (r *fakeModerationRepo) FindByUserID(ctx context.Context, userID int64) (*entity.UserModeration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	record, ok := r.s.moderations[userID]
	if !ok {
		return nil, repository.ErrModerationNotFound
	}
	out := *record

	return &out, nil
}

func (r *fakeModerationRepo) Upsert(ctx context.Context, record *entity.UserModeration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[record.UserID]; !ok {
		return repository.ErrUserNotFound
	}
	stored := *record
	r.s.moderations[record.UserID] = &stored

	return nil
}

func (r *fakeModerationRepo) Delete(ctx context.Context, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.moderationDeleteErr != nil {
		return r.s.moderationDeleteErr
	}

	delete(r.s.moderations, userID)

	return nil
}

// --- oauth states ---

type fakeOAuthStateRepo struct {
	s *fakeStore
}

func (r *fakeOAuthStateRepo) Create(ctx context.Context, state *entity.OAuthState) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored := *state
	r.s.oauthStates[state.State] = &stored

	return nil
}

func (r *fakeOAuthStateRepo) FindByStateForUpdate(ctx context.Context, state string) (*entity.OAuthState, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	record, ok := r.s.oauthStates[state]
	if !ok {
		return nil, repository.ErrOAuthStateNotFound
	}
	out := *record

	return &out, nil
}

func (r *fakeOAuthStateRepo) MarkConsumed(ctx context.Context, state string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	record, ok := r.s.oauthStates[state]
	if !ok || record.ConsumedAt != nil {
		return repository.ErrOAuthStateNotFound
	}
	consumedAt := at
	record.ConsumedAt = &consumedAt

	return nil
}

func (r *fakeOAuthStateRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var removed int64
	for key, record := range r.s.oauthStates {
		if record.ExpiresAt.Before(cutoff) {
			delete(r.s.oauthStates, key)
			removed++
		}
	}

	return removed, nil
}

// --- oauth pendings ---

type fakeOAuthPendingRepo struct {
	s *fakeStore
}

func (r *fakeOAuthPendingRepo) Create(ctx context.Context, pending *entity.OAuthPending) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored := *pending
	r.s.oauthPendings[pending.State] = &stored

	return nil
}

func (r *fakeOAuthPendingRepo) FindByState(ctx context.Context, state string) (*entity.OAuthPending, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	pending, ok := r.s.oauthPendings[state]
	if !ok {
		return nil, repository.ErrOAuthPendingNotFound
	}
	out := *pending

	return &out, nil
}

func (r *fakeOAuthPendingRepo) Delete(ctx context.Context, state string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.oauthPendings, state)

	return nil
}

func (r *fakeOAuthPendingRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var removed int64
	for key, pending := range r.s.oauthPendings {
		if pending.ExpiresAt.Before(cutoff) {
			delete(r.s.oauthPendings, key)
			removed++
		}
	}

	return removed, nil
}

// --- oauth identities ---

type fakeOAuthIdentityRepo struct {
	s *fakeStore
}

func (r *fakeOAuthIdentityRepo) Create(ctx context.Context, identity *entity.OAuthIdentity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.identities {
		if existing.Provider == identity.Provider && existing.ProviderUserID == identity.ProviderUserID {
			return domainerrors.ErrOAuthIdentityConflict
		}
	}

	r.s.nextIdentityID++
	stored := *identity
	stored.ID = r.s.nextIdentityID
	stored.CreatedAt = time.Now()
	r.s.identities[stored.ID] = &stored
	identity.ID = stored.ID

	return nil
}

func (r *fakeOAuthIdentityRepo) FindByProviderUserID(ctx context.Context, provider entity.ProviderType, providerUserID string) (*entity.OAuthIdentity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, identity := range r.s.identities {
		if identity.Provider == provider && identity.ProviderUserID == providerUserID {
			out := *identity

			return &out, nil
		}
	}

	return nil, repository.ErrOAuthIdentityNotFound
}

func (r *fakeOAuthIdentityRepo) FindByUserID(ctx context.Context, userID int64) ([]*entity.OAuthIdentity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var identities []*entity.OAuthIdentity
	for _, identity := range r.s.identities {
		if identity.UserID == userID {
			out := *identity
			identities = append(identities, &out)
		}
	}

	return identities, nil
}

func (r *fakeOAuthIdentityRepo) DeleteByUserAndProvider(ctx context.Context, userID int64, provider entity.ProviderType) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, identity := range r.s.identities {
		if identity.UserID == userID && identity.Provider == provider {
			delete(r.s.identities, id)

			return nil
		}
	}

	return repository.ErrOAuthIdentityNotFound
}

// --- audits ---

type fakeAuditRepo struct {
	s *fakeStore
}

func (r *fakeAuditRepo) Create(ctx context.Context, entry *entity.AdminAuditEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.auditErr != nil {
		return r.s.auditErr
	}

	stored := *entry
	stored.ID = int64(len(r.s.audits) + 1)
	r.s.audits = append(r.s.audits, &stored)

	return nil
}

func (r *fakeAuditRepo) ListByActor(ctx context.Context, actorUserID int64, limit int) ([]*entity.AdminAuditEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var entries []*entity.AdminAuditEntry
	for _, entry := range r.s.audits {
		if entry.ActorUserID == actorUserID {
			out := *entry
			entries = append(entries, &out)
		}
		if len(entries) == limit {
			break
		}
	}

	return entries, nil
}

func (r *fakeAuditRepo) ListByTarget(ctx context.Context, targetKind, targetID string, limit int) ([]*entity.AdminAuditEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var entries []*entity.AdminAuditEntry
	for _, entry := range r.s.audits {
		if entry.TargetKind == targetKind && entry.TargetID == targetID {
			out := *entry
			entries = append(entries, &out)
		}
		if len(entries) == limit {
			break
		}
	}

	return entries, nil
}

// --- secrets ---

type fakeSecretRepo struct {
	s *fakeStore
}

func (r *fakeSecretRepo) Upsert(ctx context.Context, name, sealed string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.secrets[name] = sealed

	return nil
}

func (r *fakeSecretRepo) Find(ctx context.Context, name string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sealed, ok := r.s.secrets[name]
	if !ok {
		return "", repository.ErrSecretNotFound
	}

	return sealed, nil
}

func (r *fakeSecretRepo) Delete(ctx context.Context, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.secrets[name]; !ok {
		return repository.ErrSecretNotFound
	}
	delete(r.s.secrets, name)

	return nil
}

func (r *fakeSecretRepo) ListNames(ctx context.Context) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	names := make([]string, 0, len(r.s.secrets))
	for name := range r.s.secrets {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

// --- shared helpers ---

// seedUser inserts a user row directly, bypassing registration.
func (s *fakeStore) seedUser(user *entity.User) *entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextUserID++
	stored := *user
	stored.ID = s.nextUserID
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	s.users[stored.ID] = &stored

	return &stored
}

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAuthConfig() *config.Config {
	authCfg := &config.AuthConfig{
		Issuer:          "bazaar",
		Audience:        "bazaar:web",
		AccessTTL:       15 * time.Minute,
		RefreshTTL:      24 * time.Hour,
		ReauthTTL:       5 * time.Minute,
		OAuthStateTTL:   10 * time.Minute,
		OAuthPendingTTL: time.Hour,
	}
	authCfg.SecretKey.Access = "test_access_secret_key_very_long_for_testing"
	authCfg.SecretKey.Refresh = "test_refresh_secret_key_very_long_for_testing"
	authCfg.Argon2 = config.Argon2Config{
		Memory:      16 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}

	return &config.Config{
		Auth: authCfg,
		PasswordStrength: &config.PasswordStrengthConfig{
			MinLength: 8,
			MaxLength: 128,
		},
	}
}
