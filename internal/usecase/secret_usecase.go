// Package usecase contains the application-specific business rules.
package usecase

import (
	"context"
)

// SecretUsecase defines the interface for service secrets stored encrypted
// at rest. Plaintext only exists in memory on either side of the store.
type SecretUsecase interface {
	PutSecret(ctx context.Context, name string, plaintext []byte) error
	GetSecret(ctx context.Context, name string) ([]byte, error)
	DeleteSecret(ctx context.Context, name string) error
	ListSecretNames(ctx context.Context) ([]string, error)
}
