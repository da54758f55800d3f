// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"sync"
	"time"
	"unicode"

	"bazaar/config"
	deliverycontext "bazaar/internal/delivery/context"
	"bazaar/internal/domain/entity"
	domainerrors "bazaar/internal/domain/errors"
	"bazaar/internal/domain/repository"
	"bazaar/internal/domain/service"
	"bazaar/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// authService implements the AuthUsecase interface.
type authService struct {
	txManager  repository.TransactionManager
	hasher     service.PasswordHasher
	tokenCodec service.TokenCodec
	refreshTTL time.Duration
	strength   *config.PasswordStrengthConfig
	logger     *slog.Logger

	// consumedReauth tracks burnt reauth token IDs until they expire on
	// their own, so a step-up token is honored at most once.
	consumedReauth   map[string]time.Time
	consumedReauthMu sync.Mutex

	now func() time.Time
}

// AuthServiceParams holds dependencies for authService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	TxManager  repository.TransactionManager
	Hasher     service.PasswordHasher
	TokenCodec service.TokenCodec
	Config     *config.Config
	Logger     *slog.Logger
}

// NewAuthService is the constructor for authService. It receives all dependencies as interfaces.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	return &authService{
		txManager:      params.TxManager,
		hasher:         params.Hasher,
		tokenCodec:     params.TokenCodec,
		refreshTTL:     params.Config.Auth.RefreshTTL,
		strength:       params.Config.PasswordStrength,
		logger:         params.Logger,
		consumedReauth: make(map[string]time.Time),
		now:            time.Now,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Register creates a new account with a password credential and opens its
// first session.
func (srv *authService) Register(ctx context.Context, input usecase.RegisterInput) (*usecase.LoginOutput, error) {
	srv.log(ctx).Info("Starting registration", slog.String("email", input.Email))

	if err := srv.validatePasswordStrength(input.Password); err != nil {
		return nil, err
	}

	hashed, err := srv.hasher.Hash(input.Password)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password during registration")
	}

	var output *usecase.LoginOutput
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()

		newUser := &entity.User{
			Email:        entity.NormalizeEmail(input.Email),
			Username:     input.Username,
			PasswordHash: &hashed,
		}

		created, err := userRepo.Create(ctx, newUser)
		if err != nil {
			return errors.Wrap(err, "failed to create user during registration")
		}

		tokens, err := srv.openSession(ctx, repoFactory.SessionRepo(), created, input.Meta)
		if err != nil {
			return err
		}

		output = &usecase.LoginOutput{Tokens: tokens, User: created}

		return nil
	})
	if err != nil {
		srv.log(ctx).Error("Failed to execute registration transaction", slog.String("email", input.Email), slog.Any("error", err))

		return nil, err
	}

	srv.log(ctx).Debug("Registration completed", slog.Int64("userID", output.User.ID))

	return output, nil
}

// Login verifies the password credential and opens a new session.
func (srv *authService) Login(ctx context.Context, input usecase.LoginInput) (*usecase.LoginOutput, error) {
	srv.log(ctx).Info("Login attempt", slog.String("email", input.Email))

	var output *usecase.LoginOutput
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()

		user, err := userRepo.FindByEmail(ctx, entity.NormalizeEmail(input.Email))
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return errors.Wrap(domainerrors.ErrInvalidCredentials, "unknown email")
			}

			return errors.Wrap(err, "failed to find user by email")
		}

		if !user.HasPassword() {
			return errors.Wrap(domainerrors.ErrInvalidCredentials, "account has no password credential")
		}

		match, err := srv.hasher.Compare(*user.PasswordHash, input.Password)
		if err != nil {
			return errors.Wrap(err, "failed to compare password")
		}
		if !match {
			return errors.Wrap(domainerrors.ErrInvalidCredentials, "password mismatch")
		}

		if err := srv.checkStanding(ctx, repoFactory.ModerationRepo(), user.ID); err != nil {
			return err
		}

		tokens, err := srv.openSession(ctx, repoFactory.SessionRepo(), user, input.Meta)
		if err != nil {
			return err
		}

		output = &usecase.LoginOutput{Tokens: tokens, User: user}

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("Login failed", slog.String("email", input.Email), slog.Any("error", err))

		return nil, err
	}

	srv.log(ctx).Debug("Login completed", slog.Int64("userID", output.User.ID), slog.Any("sessionID", output.Tokens.SessionID))

	return output, nil
}

// Refresh rotates the refresh token. The stored hash must match the
// presented token; a mismatch means an older token is being replayed, so the
// whole session is revoked.
func (srv *authService) Refresh(ctx context.Context, refreshToken string, meta entity.ClientMeta) (*usecase.AuthTokens, error) {
	claims, err := srv.tokenCodec.VerifyRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, service.ErrTokenExpired) {
			return nil, errors.Wrap(domainerrors.ErrSessionExpired, "refresh token expired")
		}

		return nil, errors.Wrap(domainerrors.ErrUnauthenticated, "refresh token invalid")
	}

	// A revoke triggered by a failure inside the transaction must survive
	// that transaction's rollback, so it is flushed separately afterwards.
	var revokeSessionID uuid.UUID

	var tokens *usecase.AuthTokens
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		sessionRepo := repoFactory.SessionRepo()

		session, err := sessionRepo.FindByIDForUpdate(ctx, claims.SessionID)
		if err != nil {
			if errors.Is(err, repository.ErrSessionNotFound) {
				return errors.Wrap(domainerrors.ErrSessionNotFound, "session gone")
			}

			return errors.Wrap(err, "failed to lock session")
		}

		now := srv.now()
		if session.Revoked() {
			return errors.Wrap(domainerrors.ErrSessionRevoked, "session revoked")
		}
		if session.Expired(now) {
			// Lazy cleanup: an expired session presented for rotation is
			// marked revoked so it stops looking live.
			revokeSessionID = session.ID

			return errors.Wrap(domainerrors.ErrSessionExpired, "session expired")
		}

		if session.RefreshTokenHash != srv.tokenCodec.HashToken(refreshToken) {
			// A token that once belonged to this session but no longer
			// matches means the rotation chain forked. Kill the session.
			revokeSessionID = session.ID

			srv.log(ctx).Warn("Refresh token reuse detected",
				slog.Int64("userID", session.UserID),
				slog.Any("sessionID", session.ID),
			)

			return errors.Wrap(domainerrors.ErrRefreshReuseDetected, "stale refresh token presented")
		}

		user, err := repoFactory.UserRepo().FindByID(ctx, session.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return errors.Wrap(domainerrors.ErrUnauthenticated, "user gone")
			}

			return errors.Wrap(err, "failed to find user")
		}

		if err := srv.checkStanding(ctx, repoFactory.ModerationRepo(), session.UserID); err != nil {
			return err
		}

		newRefresh, err := srv.tokenCodec.SignRefresh(session.UserID, session.ID)
		if err != nil {
			return errors.Wrap(err, "failed to sign refresh token")
		}

		expiresAt := now.Add(srv.refreshTTL)
		if err := sessionRepo.Rotate(ctx, session.ID, srv.tokenCodec.HashToken(newRefresh), expiresAt, now); err != nil {
			return errors.Wrap(err, "failed to rotate session")
		}

		access, err := srv.tokenCodec.SignAccess(user.ID, user.Email, session.ID)
		if err != nil {
			return errors.Wrap(err, "failed to sign access token")
		}

		tokens = &usecase.AuthTokens{
			AccessToken:  access,
			RefreshToken: newRefresh,
			SessionID:    session.ID,
		}

		return nil
	})
	if err != nil {
		if revokeSessionID != uuid.Nil {
			srv.revokeSession(ctx, revokeSessionID)
		}

		srv.log(ctx).Warn("Refresh failed", slog.Any("sessionID", claims.SessionID), slog.Any("error", err))

		return nil, err
	}

	return tokens, nil
}

// revokeSession marks a session revoked in its own transaction. Failure is
// logged only; the caller's error is the one that matters.
func (srv *authService) revokeSession(ctx context.Context, sessionID uuid.UUID) {
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		return repoFactory.SessionRepo().Revoke(ctx, sessionID, srv.now())
	})
	if err != nil {
		srv.log(ctx).Error("Failed to revoke session", slog.Any("sessionID", sessionID), slog.Any("error", err))
	}
}

// Logout revokes the session the refresh token points at. Invalid tokens are
// ignored so logout always succeeds from the client's point of view.
func (srv *authService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := srv.tokenCodec.VerifyRefresh(refreshToken)
	if err != nil {
		return nil
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		return repoFactory.SessionRepo().Revoke(ctx, claims.SessionID, srv.now())
	})
	if err != nil {
		srv.log(ctx).Error("Failed to revoke session on logout", slog.Any("sessionID", claims.SessionID), slog.Any("error", err))

		return errors.Wrap(err, "failed to revoke session")
	}

	srv.log(ctx).Debug("Logout completed", slog.Any("sessionID", claims.SessionID))

	return nil
}

// ResolvePrincipal authenticates a request: the access token must verify,
// its session must still be live, the user must exist, and the account must
// be in good standing. A lapsed suspension is healed on the way through.
func (srv *authService) ResolvePrincipal(ctx context.Context, accessToken string) (*entity.Principal, error) {
	claims, err := srv.tokenCodec.VerifyAccess(accessToken)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrUnauthenticated, "access token invalid")
	}

	var principal *entity.Principal
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		session, err := repoFactory.SessionRepo().FindByID(ctx, claims.SessionID)
		if err != nil {
			if errors.Is(err, repository.ErrSessionNotFound) {
				return errors.Wrap(domainerrors.ErrUnauthenticated, "session gone")
			}

			return errors.Wrap(err, "failed to find session")
		}
		// Revoked and expired are reported distinctly: the guard clears
		// every auth cookie for these, not just the access cookie.
		if session.Revoked() {
			return errors.Wrap(domainerrors.ErrSessionRevoked, "session revoked")
		}
		if session.Expired(srv.now()) {
			return errors.Wrap(domainerrors.ErrSessionExpired, "session expired")
		}

		user, err := repoFactory.UserRepo().FindByID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return errors.Wrap(domainerrors.ErrUnauthenticated, "user gone")
			}

			return errors.Wrap(err, "failed to find user")
		}

		if err := srv.checkStanding(ctx, repoFactory.ModerationRepo(), user.ID); err != nil {
			return err
		}

		principal = &entity.Principal{
			ID:           user.ID,
			Email:        user.Email,
			Username:     user.Username,
			IsAdmin:      user.IsAdmin,
			IsSuperadmin: user.IsSuperadmin,
			SessionID:    session.ID,
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return principal, nil
}

// ResolveOptional is the lenient counterpart of ResolvePrincipal for routes
// that personalize but stay open to anonymous callers. It verifies the token
// and looks up the user only; any failure yields no principal rather than an
// error.
func (srv *authService) ResolveOptional(ctx context.Context, accessToken string) *entity.Principal {
	claims, err := srv.tokenCodec.VerifyAccess(accessToken)
	if err != nil {
		return nil
	}

	var principal *entity.Principal
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		user, err := repoFactory.UserRepo().FindByID(ctx, claims.UserID)
		if err != nil {
			return err
		}

		principal = &entity.Principal{
			ID:           user.ID,
			Email:        user.Email,
			Username:     user.Username,
			IsAdmin:      user.IsAdmin,
			IsSuperadmin: user.IsSuperadmin,
			SessionID:    claims.SessionID,
		}

		return nil
	})
	if err != nil {
		return nil
	}

	return principal
}

// StepUp re-verifies the password and issues a short-lived reauth token.
func (srv *authService) StepUp(ctx context.Context, principal *entity.Principal, password string) (string, error) {
	var token string
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		user, err := repoFactory.UserRepo().FindByID(ctx, principal.ID)
		if err != nil {
			return errors.Wrap(err, "failed to find user")
		}

		if !user.HasPassword() {
			return errors.Wrap(domainerrors.ErrInvalidCredentials, "account has no password credential")
		}

		match, err := srv.hasher.Compare(*user.PasswordHash, password)
		if err != nil {
			return errors.Wrap(err, "failed to compare password")
		}
		if !match {
			return errors.Wrap(domainerrors.ErrInvalidCredentials, "password mismatch")
		}

		token, err = srv.tokenCodec.SignReauth(user.ID, principal.SessionID)
		if err != nil {
			return errors.Wrap(err, "failed to sign reauth token")
		}

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("Step-up failed", slog.Int64("userID", principal.ID), slog.Any("error", err))

		return "", err
	}

	srv.log(ctx).Info("Step-up granted", slog.Int64("userID", principal.ID))

	return token, nil
}

// ConsumeReauth verifies a reauth token for the principal and burns its ID.
// Presenting the same token twice fails the second time.
func (srv *authService) ConsumeReauth(ctx context.Context, principal *entity.Principal, reauthToken string) error {
	claims, err := srv.tokenCodec.VerifyReauth(reauthToken)
	if err != nil {
		return errors.Wrap(domainerrors.ErrReauthRequired, "reauth token invalid")
	}

	if claims.UserID != principal.ID || claims.SessionID != principal.SessionID {
		return errors.Wrap(domainerrors.ErrReauthRequired, "reauth token does not match principal")
	}

	if !srv.burnReauth(claims.TokenID, claims.ExpiresAt) {
		srv.log(ctx).Warn("Reauth token replayed", slog.Int64("userID", principal.ID))

		return errors.Wrap(domainerrors.ErrReauthRequired, "reauth token already used")
	}

	return nil
}

// ChangePassword swaps the password credential and revokes every other
// session so stolen refresh tokens die with the old password.
func (srv *authService) ChangePassword(ctx context.Context, principal *entity.Principal, currentPassword, newPassword string) error {
	if err := srv.validatePasswordStrength(newPassword); err != nil {
		return err
	}

	hashed, err := srv.hasher.Hash(newPassword)
	if err != nil {
		return errors.Wrap(err, "failed to hash new password")
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()

		user, err := userRepo.FindByID(ctx, principal.ID)
		if err != nil {
			return errors.Wrap(err, "failed to find user")
		}

		if user.HasPassword() {
			match, err := srv.hasher.Compare(*user.PasswordHash, currentPassword)
			if err != nil {
				return errors.Wrap(err, "failed to compare password")
			}
			if !match {
				return errors.Wrap(domainerrors.ErrInvalidCredentials, "current password mismatch")
			}
		}

		if err := userRepo.UpdatePasswordHash(ctx, user.ID, hashed); err != nil {
			return errors.Wrap(err, "failed to update password hash")
		}

		sessionRepo := repoFactory.SessionRepo()
		sessions, err := sessionRepo.FindActiveByUser(ctx, user.ID)
		if err != nil {
			return errors.Wrap(err, "failed to list sessions")
		}

		now := srv.now()
		for _, session := range sessions {
			if session.ID == principal.SessionID {
				continue
			}
			if err := sessionRepo.Revoke(ctx, session.ID, now); err != nil {
				return errors.Wrap(err, "failed to revoke session")
			}
		}

		return nil
	})
	if err != nil {
		srv.log(ctx).Error("Password change failed", slog.Int64("userID", principal.ID), slog.Any("error", err))

		return err
	}

	srv.log(ctx).Info("Password changed", slog.Int64("userID", principal.ID))

	return nil
}

// checkStanding enforces moderation status for this service's flows.
func (srv *authService) checkStanding(ctx context.Context, moderationRepo repository.ModerationRepository, userID int64) error {
	return checkStandingTx(ctx, srv.log(ctx), moderationRepo, userID, srv.now())
}

// openSession creates a session row and signs the token pair bound to it.
func (srv *authService) openSession(ctx context.Context, sessionRepo repository.SessionRepository, user *entity.User, meta entity.ClientMeta) (*usecase.AuthTokens, error) {
	return openSessionTokens(ctx, sessionRepo, srv.tokenCodec, srv.refreshTTL, srv.now(), user.ID, user.Email, meta)
}

// burnReauth records the token ID as consumed. Returns false when it was
// already burnt. Expired entries are swept opportunistically.
func (srv *authService) burnReauth(tokenID string, expiresAt time.Time) bool {
	srv.consumedReauthMu.Lock()
	defer srv.consumedReauthMu.Unlock()

	now := srv.now()
	for id, expiry := range srv.consumedReauth {
		if now.After(expiry) {
			delete(srv.consumedReauth, id)
		}
	}

	if _, used := srv.consumedReauth[tokenID]; used {
		return false
	}
	srv.consumedReauth[tokenID] = expiresAt

	return true
}

// validatePasswordStrength applies the configured complexity rules.
func (srv *authService) validatePasswordStrength(password string) error {
	rules := srv.strength
	if rules == nil {
		rules = &config.PasswordStrengthConfig{MinLength: 8, MaxLength: 128}
	}

	if len(password) < rules.MinLength {
		return errors.Wrap(domainerrors.ErrPasswordStrength, "password too short")
	}
	if rules.MaxLength > 0 && len(password) > rules.MaxLength {
		return errors.Wrap(domainerrors.ErrPasswordStrength, "password too long")
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}

	if rules.RequireUppercase && !hasUpper {
		return errors.Wrap(domainerrors.ErrPasswordStrength, "password needs an uppercase letter")
	}
	if rules.RequireLowercase && !hasLower {
		return errors.Wrap(domainerrors.ErrPasswordStrength, "password needs a lowercase letter")
	}
	if rules.RequireNumbers && !hasDigit {
		return errors.Wrap(domainerrors.ErrPasswordStrength, "password needs a digit")
	}
	if rules.RequireSpecial && !hasSpecial {
		return errors.Wrap(domainerrors.ErrPasswordStrength, "password needs a special character")
	}

	return nil
}
