package postgres

import (
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// SQLSTATE codes surfaced by the Postgres driver inside error text.
const (
	sqlstateUniqueViolation     = "23505"
	sqlstateForeignKeyViolation = "23503"
	sqlstateNotNullViolation    = "23502"
)

// Constraint checks fall back to message matching because the driver error
// is flattened by the time it crosses the gorm boundary.

func isUniqueConstraintViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		matchesAny(err, "duplicate key", "unique constraint", sqlstateUniqueViolation)
}

func isForeignKeyConstraintViolation(err error) bool {
	return errors.Is(err, gorm.ErrForeignKeyViolated) ||
		matchesAny(err, "foreign key", sqlstateForeignKeyViolation)
}

func isNotNullConstraintViolation(err error) bool {
	return matchesAny(err, "null value", "not null", sqlstateNotNullViolation)
}

func matchesAny(err error, needles ...string) bool {
	msg := strings.ToLower(err.Error())
	for _, needle := range needles {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
