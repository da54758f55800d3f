// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"

	deliverycontext "bazaar/internal/delivery/context"
	domainerrors "bazaar/internal/domain/errors"
	"bazaar/internal/domain/repository"
	"bazaar/internal/domain/service"
	"bazaar/internal/usecase"

	"github.com/pkg/errors"
)

// secretService implements the SecretUsecase interface. Values are sealed
// before they reach the repository and opened after they leave it.
type secretService struct {
	txManager repository.TransactionManager
	box       service.SecretBox
	logger    *slog.Logger
}

// NewSecretService is the constructor for secretService.
func NewSecretService(
	txManager repository.TransactionManager,
	box service.SecretBox,
	logger *slog.Logger,
) usecase.SecretUsecase {
	return &secretService{
		txManager: txManager,
		box:       box,
		logger:    logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *secretService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// PutSecret seals the plaintext and stores it under the name.
func (srv *secretService) PutSecret(ctx context.Context, name string, plaintext []byte) error {
	sealed, err := srv.box.Seal(plaintext)
	if err != nil {
		return errors.Wrap(err, "failed to seal secret")
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		return repoFactory.SecretRepo().Upsert(ctx, name, sealed)
	})
	if err != nil {
		srv.log(ctx).Error("Failed to store secret", slog.String("name", name), slog.Any("error", err))

		return err
	}

	srv.log(ctx).Info("Secret stored", slog.String("name", name))

	return nil
}

// GetSecret loads and opens the secret. A value that fails to open is an
// error, never a default.
func (srv *secretService) GetSecret(ctx context.Context, name string) ([]byte, error) {
	var sealed string
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		var err error
		sealed, err = repoFactory.SecretRepo().Find(ctx, name)

		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrSecretNotFound) {
			return nil, errors.Wrap(domainerrors.ErrNotFound, "secret not found")
		}

		return nil, errors.Wrap(err, "failed to load secret")
	}

	plaintext, err := srv.box.Open(sealed)
	if err != nil {
		srv.log(ctx).Error("Failed to open secret", slog.String("name", name), slog.Any("error", err))

		return nil, err
	}

	return plaintext, nil
}

// DeleteSecret removes the secret.
func (srv *secretService) DeleteSecret(ctx context.Context, name string) error {
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		return repoFactory.SecretRepo().Delete(ctx, name)
	})
	if err != nil {
		if errors.Is(err, repository.ErrSecretNotFound) {
			return errors.Wrap(domainerrors.ErrNotFound, "secret not found")
		}

		return errors.Wrap(err, "failed to delete secret")
	}

	srv.log(ctx).Info("Secret deleted", slog.String("name", name))

	return nil
}

// ListSecretNames returns the stored secret names, never the values.
func (srv *secretService) ListSecretNames(ctx context.Context) ([]string, error) {
	var names []string
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		var err error
		names, err = repoFactory.SecretRepo().ListNames(ctx)

		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list secret names")
	}

	return names, nil
}
