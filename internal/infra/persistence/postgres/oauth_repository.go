// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"
	"time"

	"bazaar/internal/domain/entity"
	domainerrors "bazaar/internal/domain/errors"
	"bazaar/internal/domain/repository"
	"bazaar/internal/infra/persistence/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// oauthStateRepository implements the domain.OAuthStateRepository interface using GORM.
type oauthStateRepository struct {
	db *gorm.DB
}

// NewOAuthStateRepository is the constructor for oauthStateRepository.
func NewOAuthStateRepository(db *gorm.DB) repository.OAuthStateRepository {
	return &oauthStateRepository{db: db}
}

// Create persists a new authorization state row.
func (repo *oauthStateRepository) Create(ctx context.Context, state *entity.OAuthState) error {
	stateM := fromOAuthStateDomain(state)

	if err := repo.db.WithContext(ctx).Create(stateM).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to create oauth state")
	}

	return nil
}

// FindByStateForUpdate loads a state row under SELECT ... FOR UPDATE so a
// replayed callback serializes behind the first one.
func (repo *oauthStateRepository) FindByStateForUpdate(ctx context.Context, state string) (*entity.OAuthState, error) {
	var stateM model.OAuthStateModel
	err := repo.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("state = ?", state).
		First(&stateM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrOAuthStateNotFound
		}

		return nil, errors.Wrap(err, "failed to lock oauth state")
	}

	return toOAuthStateDomain(&stateM), nil
}

// MarkConsumed stamps the state as spent.
func (repo *oauthStateRepository) MarkConsumed(ctx context.Context, state string, at time.Time) error {
	result := repo.db.WithContext(ctx).Model(&model.OAuthStateModel{}).
		Where("state = ? AND consumed_at IS NULL", state).
		Update("consumed_at", at)
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to consume oauth state")
	}
	if result.RowsAffected == 0 {
		return repository.ErrOAuthStateNotFound
	}

	return nil
}

// DeleteExpiredBefore removes states whose expiry predates the cutoff.
func (repo *oauthStateRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := repo.db.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Delete(&model.OAuthStateModel{})
	if result.Error != nil {
		return 0, domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete expired oauth states")
	}

	return result.RowsAffected, nil
}

// oauthPendingRepository implements the domain.OAuthPendingRepository interface using GORM.
type oauthPendingRepository struct {
	db *gorm.DB
}

// NewOAuthPendingRepository is the constructor for oauthPendingRepository.
func NewOAuthPendingRepository(db *gorm.DB) repository.OAuthPendingRepository {
	return &oauthPendingRepository{db: db}
}

// Create persists a pending signup profile.
func (repo *oauthPendingRepository) Create(ctx context.Context, pending *entity.OAuthPending) error {
	pendingM := fromOAuthPendingDomain(pending)

	if err := repo.db.WithContext(ctx).Create(pendingM).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to create oauth pending")
	}

	return nil
}

// FindByState retrieves a pending signup by the state that produced it.
func (repo *oauthPendingRepository) FindByState(ctx context.Context, state string) (*entity.OAuthPending, error) {
	var pendingM model.OAuthPendingModel
	if err := repo.db.WithContext(ctx).Where("state = ?", state).First(&pendingM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrOAuthPendingNotFound
		}

		return nil, errors.Wrap(err, "failed to find oauth pending")
	}

	return toOAuthPendingDomain(&pendingM), nil
}

// Delete removes a pending signup after completion or abandonment.
func (repo *oauthPendingRepository) Delete(ctx context.Context, state string) error {
	err := repo.db.WithContext(ctx).
		Where("state = ?", state).
		Delete(&model.OAuthPendingModel{}).Error
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to delete oauth pending")
	}

	return nil
}

// DeleteExpiredBefore removes pendings whose expiry predates the cutoff.
func (repo *oauthPendingRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := repo.db.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Delete(&model.OAuthPendingModel{})
	if result.Error != nil {
		return 0, domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete expired oauth pendings")
	}

	return result.RowsAffected, nil
}

// oauthIdentityRepository implements the domain.OAuthIdentityRepository interface using GORM.
type oauthIdentityRepository struct {
	db *gorm.DB
}

// NewOAuthIdentityRepository is the constructor for oauthIdentityRepository.
func NewOAuthIdentityRepository(db *gorm.DB) repository.OAuthIdentityRepository {
	return &oauthIdentityRepository{db: db}
}

// Create persists a provider-to-user link.
func (repo *oauthIdentityRepository) Create(ctx context.Context, identity *entity.OAuthIdentity) error {
	identityM := fromOAuthIdentityDomain(identity)

	if err := repo.db.WithContext(ctx).Create(identityM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return domainerrors.ErrOAuthIdentityConflict.WrapMessage("identity already linked")
		}
		if isForeignKeyConstraintViolation(err) {
			return repository.ErrUserNotFound
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create oauth identity")
	}

	identity.ID = identityM.ID
	identity.CreatedAt = identityM.CreatedAt

	return nil
}

// FindByProviderUserID retrieves a link by the provider's subject identifier.
func (repo *oauthIdentityRepository) FindByProviderUserID(ctx context.Context, provider entity.ProviderType, providerUserID string) (*entity.OAuthIdentity, error) {
	var identityM model.OAuthIdentityModel
	err := repo.db.WithContext(ctx).
		Where("provider = ? AND provider_user_id = ?", string(provider), providerUserID).
		First(&identityM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrOAuthIdentityNotFound
		}

		return nil, errors.Wrap(err, "failed to find oauth identity")
	}

	return toOAuthIdentityDomain(&identityM), nil
}

// FindByUserID retrieves all links a user has.
func (repo *oauthIdentityRepository) FindByUserID(ctx context.Context, userID int64) ([]*entity.OAuthIdentity, error) {
	var identityModels []model.OAuthIdentityModel
	err := repo.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&identityModels).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list oauth identities")
	}

	identities := make([]*entity.OAuthIdentity, 0, len(identityModels))
	for i := range identityModels {
		identities = append(identities, toOAuthIdentityDomain(&identityModels[i]))
	}

	return identities, nil
}

// DeleteByUserAndProvider removes the link between a user and a provider.
func (repo *oauthIdentityRepository) DeleteByUserAndProvider(ctx context.Context, userID int64, provider entity.ProviderType) error {
	result := repo.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, string(provider)).
		Delete(&model.OAuthIdentityModel{})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete oauth identity")
	}
	if result.RowsAffected == 0 {
		return repository.ErrOAuthIdentityNotFound
	}

	return nil
}

func toOAuthStateDomain(m *model.OAuthStateModel) *entity.OAuthState {
	return &entity.OAuthState{
		State:        m.State,
		Provider:     entity.ProviderType(m.Provider),
		Intent:       entity.OAuthIntent(m.Intent),
		Next:         m.Next,
		PKCEVerifier: m.PKCEVerifier,
		CreatedAt:    m.CreatedAt,
		ExpiresAt:    m.ExpiresAt,
		ConsumedAt:   m.ConsumedAt,
		UserAgent:    m.UserAgent,
		IP:           m.IP,
	}
}

func fromOAuthStateDomain(s *entity.OAuthState) *model.OAuthStateModel {
	return &model.OAuthStateModel{
		State:        s.State,
		Provider:     string(s.Provider),
		Intent:       string(s.Intent),
		Next:         s.Next,
		PKCEVerifier: s.PKCEVerifier,
		CreatedAt:    s.CreatedAt,
		ExpiresAt:    s.ExpiresAt,
		ConsumedAt:   s.ConsumedAt,
		UserAgent:    s.UserAgent,
		IP:           s.IP,
	}
}

func toOAuthPendingDomain(m *model.OAuthPendingModel) *entity.OAuthPending {
	return &entity.OAuthPending{
		State:          m.State,
		Provider:       entity.ProviderType(m.Provider),
		ProviderUserID: m.ProviderUserID,
		ProfileJSON:    m.ProfileJSON,
		CreatedAt:      m.CreatedAt,
		ExpiresAt:      m.ExpiresAt,
	}
}

func fromOAuthPendingDomain(p *entity.OAuthPending) *model.OAuthPendingModel {
	return &model.OAuthPendingModel{
		State:          p.State,
		Provider:       string(p.Provider),
		ProviderUserID: p.ProviderUserID,
		ProfileJSON:    p.ProfileJSON,
		CreatedAt:      p.CreatedAt,
		ExpiresAt:      p.ExpiresAt,
	}
}

func toOAuthIdentityDomain(m *model.OAuthIdentityModel) *entity.OAuthIdentity {
	return &entity.OAuthIdentity{
		ID:             m.ID,
		UserID:         m.UserID,
		Provider:       entity.ProviderType(m.Provider),
		ProviderUserID: m.ProviderUserID,
		Email:          m.Email,
		CreatedAt:      m.CreatedAt,
	}
}

func fromOAuthIdentityDomain(i *entity.OAuthIdentity) *model.OAuthIdentityModel {
	return &model.OAuthIdentityModel{
		ID:             i.ID,
		UserID:         i.UserID,
		Provider:       string(i.Provider),
		ProviderUserID: i.ProviderUserID,
		Email:          i.Email,
		CreatedAt:      i.CreatedAt,
	}
}
