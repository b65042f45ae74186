package repositories

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Коды ошибок PostgreSQL, которые репозитории переводят в свои ошибки.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError
	}
	return nil
}

// asPQError unwraps err into a *pq.Error when the driver produced one.
func asPQError(err error) (*pq.Error, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr, true
	}
	return nil, false
}

// isViolation reports whether err is a pq error with the given code, and,
// when constraint is not empty, on that constraint.
func isViolation(err error, code, constraint string) bool {
	pqErr, ok := asPQError(err)
	if !ok || string(pqErr.Code) != code {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// pqUUIDArray encodes ids as a text[] parameter; queries cast it with ::uuid[].
func pqUUIDArray(ids []uuid.UUID) driver.Valuer {
	return pq.StringArray(uuidStrings(ids))
}
