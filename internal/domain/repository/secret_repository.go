package repository

import (
	"context"

	"bazaar/internal/errors"
)

// ErrSecretNotFound is returned when no secret is stored under the name.
var ErrSecretNotFound = errors.New("secret not found")

// SecretRepository persists service secrets in their encrypted transport
// form. Values are opaque to the repository; sealing happens above it.
type SecretRepository interface {
	Upsert(ctx context.Context, name, sealed string) error
	Find(ctx context.Context, name string) (string, error)
	Delete(ctx context.Context, name string) error
	ListNames(ctx context.Context) ([]string, error)
}
