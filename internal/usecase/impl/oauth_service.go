// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"time"

	"bazaar/config"
	deliverycontext "bazaar/internal/delivery/context"
	"bazaar/internal/domain/entity"
	domainerrors "bazaar/internal/domain/errors"
	"bazaar/internal/domain/repository"
	"bazaar/internal/domain/service"
	"bazaar/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"golang.org/x/oauth2"
)

// oauthService implements the OAuthUsecase interface.
type oauthService struct {
	txManager  repository.TransactionManager
	provider   service.ProviderClient
	tokenCodec service.TokenCodec
	refreshTTL time.Duration
	stateTTL   time.Duration
	pendingTTL time.Duration
	logger     *slog.Logger

	now func() time.Time
}

// OAuthServiceParams holds dependencies for oauthService, injected by Fx.
type OAuthServiceParams struct {
	fx.In

	TxManager  repository.TransactionManager
	Provider   service.ProviderClient
	TokenCodec service.TokenCodec
	Config     *config.Config
	Logger     *slog.Logger
}

// NewOAuthService is the constructor for oauthService.
func NewOAuthService(params OAuthServiceParams) usecase.OAuthUsecase {
	return &oauthService{
		txManager:  params.TxManager,
		provider:   params.Provider,
		tokenCodec: params.TokenCodec,
		refreshTTL: params.Config.Auth.RefreshTTL,
		stateTTL:   params.Config.Auth.OAuthStateTTL,
		pendingTTL: params.Config.Auth.OAuthPendingTTL,
		logger:     params.Logger,
		now:        time.Now,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *oauthService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Begin persists a one-shot state with PKCE material and returns the
// provider authorization URL.
func (srv *oauthService) Begin(ctx context.Context, input usecase.BeginOAuthInput) (string, error) {
	state, err := generateStateValue()
	if err != nil {
		return "", errors.Wrap(err, "failed to generate state")
	}
	verifier := oauth2.GenerateVerifier()

	now := srv.now()
	record := &entity.OAuthState{
		State:        state,
		Provider:     input.Provider,
		Intent:       input.Intent,
		Next:         input.Next,
		PKCEVerifier: verifier,
		CreatedAt:    now,
		ExpiresAt:    now.Add(srv.stateTTL),
		UserAgent:    input.Meta.UserAgent,
		IP:           input.Meta.IP,
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		return repoFactory.OAuthStateRepo().Create(ctx, record)
	})
	if err != nil {
		srv.log(ctx).Error("Failed to persist oauth state", slog.Any("error", err))

		return "", errors.Wrap(err, "failed to persist oauth state")
	}

	srv.log(ctx).Debug("OAuth flow started", slog.String("provider", string(input.Provider)), slog.String("intent", string(input.Intent)))

	return srv.provider.AuthCodeURL(state, verifier), nil
}

// HandleCallback consumes the state exactly once, exchanges the code, and
// advances the flow according to intent and what is already linked.
func (srv *oauthService) HandleCallback(ctx context.Context, input usecase.OAuthCallbackInput) (*usecase.OAuthCallbackOutput, error) {
	// Phase one: consume the state before talking to the provider. Even if
	// the exchange fails afterwards, the state is spent and cannot be
	// replayed.
	var stateRecord *entity.OAuthState
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		stateRepo := repoFactory.OAuthStateRepo()

		record, err := stateRepo.FindByStateForUpdate(ctx, input.State)
		if err != nil {
			if errors.Is(err, repository.ErrOAuthStateNotFound) {
				return errors.Wrap(domainerrors.ErrOAuthStateNotFound, "unknown state")
			}

			return errors.Wrap(err, "failed to lock oauth state")
		}

		now := srv.now()
		if record.Consumed() {
			return errors.Wrap(domainerrors.ErrOAuthStateConsumed, "state replayed")
		}
		if !record.ExpiresAt.After(now) {
			return errors.Wrap(domainerrors.ErrOAuthStateExpired, "state expired")
		}

		if err := stateRepo.MarkConsumed(ctx, record.State, now); err != nil {
			return errors.Wrap(err, "failed to consume state")
		}

		stateRecord = record

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("OAuth callback rejected", slog.Any("error", err))

		return nil, err
	}

	profile, err := srv.provider.Exchange(ctx, input.Code, stateRecord.PKCEVerifier)
	if err != nil {
		srv.log(ctx).Error("Provider exchange failed", slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrOAuthProviderError, "code exchange failed")
	}

	switch stateRecord.Intent {
	case entity.IntentLink:
		return srv.completeLink(ctx, stateRecord, profile, input.CurrentUserID)
	default:
		return srv.completeSignin(ctx, stateRecord, profile, input.Meta)
	}
}

// completeLink attaches the provider identity to the authenticated user.
func (srv *oauthService) completeLink(ctx context.Context, state *entity.OAuthState, profile *service.ExternalProfile, currentUserID int64) (*usecase.OAuthCallbackOutput, error) {
	if currentUserID == 0 {
		return nil, errors.Wrap(domainerrors.ErrUnauthenticated, "link requires an authenticated user")
	}

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		identityRepo := repoFactory.OAuthIdentityRepo()

		existing, err := identityRepo.FindByProviderUserID(ctx, profile.Provider, profile.ProviderUserID)
		if err == nil {
			if existing.UserID == currentUserID {
				return errors.Wrap(domainerrors.ErrOAuthIdentityConflict, "identity already linked to this account")
			}

			return errors.Wrap(domainerrors.ErrOAuthIdentityConflict, "identity linked to another account")
		}
		if !errors.Is(err, repository.ErrOAuthIdentityNotFound) {
			return errors.Wrap(err, "failed to find oauth identity")
		}

		return identityRepo.Create(ctx, &entity.OAuthIdentity{
			UserID:         currentUserID,
			Provider:       profile.Provider,
			ProviderUserID: profile.ProviderUserID,
			Email:          entity.NormalizeEmail(profile.Email),
		})
	})
	if err != nil {
		srv.log(ctx).Warn("Identity link failed", slog.Int64("userID", currentUserID), slog.Any("error", err))

		return nil, err
	}

	srv.log(ctx).Info("Identity linked", slog.Int64("userID", currentUserID), slog.String("provider", string(profile.Provider)))

	return &usecase.OAuthCallbackOutput{Linked: true, Next: state.Next}, nil
}

// completeSignin signs in a known identity or parks a new one as pending.
// An unlinked identity whose email already belongs to a local account is
// blocked; linking must happen from inside that account.
func (srv *oauthService) completeSignin(ctx context.Context, state *entity.OAuthState, profile *service.ExternalProfile, meta entity.ClientMeta) (*usecase.OAuthCallbackOutput, error) {
	var output *usecase.OAuthCallbackOutput
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		identityRepo := repoFactory.OAuthIdentityRepo()
		userRepo := repoFactory.UserRepo()

		identity, err := identityRepo.FindByProviderUserID(ctx, profile.Provider, profile.ProviderUserID)
		if err == nil {
			user, err := userRepo.FindByID(ctx, identity.UserID)
			if err != nil {
				return errors.Wrap(err, "failed to load linked user")
			}

			if err := checkStandingTx(ctx, srv.log(ctx), repoFactory.ModerationRepo(), user.ID, srv.now()); err != nil {
				return err
			}

			tokens, err := openSessionTokens(ctx, repoFactory.SessionRepo(), srv.tokenCodec, srv.refreshTTL, srv.now(), user.ID, user.Email, meta)
			if err != nil {
				return err
			}

			output = &usecase.OAuthCallbackOutput{
				Login: &usecase.LoginOutput{Tokens: tokens, User: user},
				Next:  state.Next,
			}

			return nil
		}
		if !errors.Is(err, repository.ErrOAuthIdentityNotFound) {
			return errors.Wrap(err, "failed to find oauth identity")
		}

		email := entity.NormalizeEmail(profile.Email)
		if email != "" {
			if _, err := userRepo.FindByEmail(ctx, email); err == nil {
				return errors.Wrap(domainerrors.ErrOAuthEmailExists, "email belongs to an existing account")
			} else if !errors.Is(err, repository.ErrUserNotFound) {
				return errors.Wrap(err, "failed to check email")
			}
		}

		profileJSON, err := json.Marshal(profile)
		if err != nil {
			return errors.Wrap(err, "failed to marshal profile")
		}

		now := srv.now()
		pending := &entity.OAuthPending{
			State:          state.State,
			Provider:       profile.Provider,
			ProviderUserID: profile.ProviderUserID,
			ProfileJSON:    string(profileJSON),
			CreatedAt:      now,
			ExpiresAt:      now.Add(srv.pendingTTL),
		}
		if err := repoFactory.OAuthPendingRepo().Create(ctx, pending); err != nil {
			return errors.Wrap(err, "failed to create pending signup")
		}

		output = &usecase.OAuthCallbackOutput{PendingState: state.State, Next: state.Next}

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("OAuth sign-in failed", slog.String("provider", string(profile.Provider)), slog.Any("error", err))

		return nil, err
	}

	return output, nil
}

// CompleteSignup turns a pending external profile into a real account with
// a linked identity and an open session. The pending row is deleted in the
// same transaction, so completion happens at most once.
func (srv *oauthService) CompleteSignup(ctx context.Context, input usecase.CompleteSignupInput) (*usecase.LoginOutput, error) {
	var output *usecase.LoginOutput
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		pendingRepo := repoFactory.OAuthPendingRepo()

		pending, err := pendingRepo.FindByState(ctx, input.State)
		if err != nil {
			if errors.Is(err, repository.ErrOAuthPendingNotFound) {
				return errors.Wrap(domainerrors.ErrOAuthPendingNotFound, "no pending signup")
			}

			return errors.Wrap(err, "failed to find pending signup")
		}

		now := srv.now()
		if !pending.ExpiresAt.After(now) {
			return errors.Wrap(domainerrors.ErrOAuthStateExpired, "pending signup expired")
		}

		var profile service.ExternalProfile
		if err := json.Unmarshal([]byte(pending.ProfileJSON), &profile); err != nil {
			return errors.Wrap(err, "failed to unmarshal pending profile")
		}

		// The confirmed email from the completion form wins over whatever
		// the provider reported; some providers report none at all, and the
		// account needs one either way.
		email := entity.NormalizeEmail(input.Email)
		if email == "" {
			email = entity.NormalizeEmail(profile.Email)
		}
		if email == "" {
			return errors.Wrap(domainerrors.ErrValidationFailed, "an email address is required to finish signup")
		}

		// A taken email leaves the pending row in place for a retry with a
		// different address.
		userRepo := repoFactory.UserRepo()
		if _, err := userRepo.FindByEmail(ctx, email); err == nil {
			return errors.Wrap(domainerrors.ErrOAuthEmailExists, "email belongs to an existing account")
		} else if !errors.Is(err, repository.ErrUserNotFound) {
			return errors.Wrap(err, "failed to check email")
		}

		user, err := userRepo.Create(ctx, &entity.User{
			Email:    email,
			Username: input.Username,
		})
		if err != nil {
			return errors.Wrap(err, "failed to create user")
		}

		err = repoFactory.OAuthIdentityRepo().Create(ctx, &entity.OAuthIdentity{
			UserID:         user.ID,
			Provider:       pending.Provider,
			ProviderUserID: pending.ProviderUserID,
			Email:          entity.NormalizeEmail(profile.Email),
		})
		if err != nil {
			return errors.Wrap(err, "failed to link identity")
		}

		if err := pendingRepo.Delete(ctx, pending.State); err != nil {
			return errors.Wrap(err, "failed to delete pending signup")
		}

		tokens, err := openSessionTokens(ctx, repoFactory.SessionRepo(), srv.tokenCodec, srv.refreshTTL, now, user.ID, user.Email, input.Meta)
		if err != nil {
			return err
		}

		output = &usecase.LoginOutput{Tokens: tokens, User: user}

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("Signup completion failed", slog.Any("error", err))

		return nil, err
	}

	srv.log(ctx).Info("External signup completed", slog.Int64("userID", output.User.ID))

	return output, nil
}

// ListIdentities returns all provider identities linked to the user.
func (srv *oauthService) ListIdentities(ctx context.Context, userID int64) ([]*entity.OAuthIdentity, error) {
	var identities []*entity.OAuthIdentity
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		var err error
		identities, err = repoFactory.OAuthIdentityRepo().FindByUserID(ctx, userID)

		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list identities")
	}

	return identities, nil
}

// Unlink detaches a provider identity, refusing to strand the account
// without any way to sign in.
func (srv *oauthService) Unlink(ctx context.Context, userID int64, provider entity.ProviderType) error {
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		user, err := repoFactory.UserRepo().FindByID(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "failed to find user")
		}

		identities, err := repoFactory.OAuthIdentityRepo().FindByUserID(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "failed to list identities")
		}

		if !user.HasPassword() && len(identities) <= 1 {
			return errors.Wrap(domainerrors.ErrConflict, "cannot remove the last sign-in method")
		}

		if err := repoFactory.OAuthIdentityRepo().DeleteByUserAndProvider(ctx, userID, provider); err != nil {
			if errors.Is(err, repository.ErrOAuthIdentityNotFound) {
				return errors.Wrap(domainerrors.ErrNotFound, "identity not linked")
			}

			return errors.Wrap(err, "failed to delete identity")
		}

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("Unlink failed", slog.Int64("userID", userID), slog.Any("error", err))

		return err
	}

	srv.log(ctx).Info("Identity unlinked", slog.Int64("userID", userID), slog.String("provider", string(provider)))

	return nil
}

// generateStateValue draws a 32-byte random state encoded base64url.
func generateStateValue() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
