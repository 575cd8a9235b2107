package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// SQLSTATE classes the services branch on.
const (
	sqlStateUniqueViolation     = "23505"
	sqlStateForeignKeyViolation = "23503"
)

// sqlState digs the SQLSTATE out of either postgres driver's error.
func sqlState(err error) (string, bool) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), true
	}
	return "", false
}

// IsUniqueViolation reports a duplicate key. A non-empty constraint
// narrows the match to errors naming that constraint or column.
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	dup := errors.Is(err, gorm.ErrDuplicatedKey)
	if !dup {
		if code, ok := sqlState(err); ok {
			dup = code == sqlStateUniqueViolation
		} else {
			// sqlite, used by the tests
			dup = strings.Contains(err.Error(), "UNIQUE constraint failed")
		}
	}
	return dup && (constraint == "" || strings.Contains(err.Error(), constraint))
}

// IsForeignKeyViolation reports a delete or insert blocked by a reference,
// such as removing a product that order items still point at.
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	if code, ok := sqlState(err); ok {
		return code == sqlStateForeignKeyViolation
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
