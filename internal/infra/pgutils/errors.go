package pgutils

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the repositories react to.
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
	CodeCheckViolation      = "23514"
	CodeRaiseException      = "P0001"
	CodeObjectInUse         = "55006"
	CodeDuplicateDatabase   = "42P04"
)

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}

	return false
}

func IsUniqueViolation(err error) bool { return hasCode(err, CodeUniqueViolation) }

func IsForeignKeyViolation(err error) bool { return hasCode(err, CodeForeignKeyViolation) }

func IsCheckViolation(err error) bool { return hasCode(err, CodeCheckViolation) }

// IsRaisedException matches errors raised from PL/pgSQL, such as the
// append-only triggers.
func IsRaisedException(err error) bool { return hasCode(err, CodeRaiseException) }

func IsObjectInUse(err error) bool { return hasCode(err, CodeObjectInUse) }

func IsDuplicateDatabase(err error) bool { return hasCode(err, CodeDuplicateDatabase) }

// ConstraintName returns the violated constraint, if err is a PgError.
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}

	return ""
}
