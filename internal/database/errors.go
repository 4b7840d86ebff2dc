package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"

	constraintEntryCode   = "idx_entry_code"
	constraintEntryPeriod = "idx_entry_period"
)

func pgError(err error) *pgconn.PgError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr
	}
	return nil
}

// uniqueViolation возвращает имя нарушенного уникального индекса или ""
func uniqueViolation(err error) string {
	if pgErr := pgError(err); pgErr != nil && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName
	}
	return ""
}

func foreignKeyViolation(err error) bool {
	pgErr := pgError(err)
	return pgErr != nil && pgErr.Code == pgForeignKeyViolation
}

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
