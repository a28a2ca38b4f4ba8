package db

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned by point lookups that matched no row.
	ErrNotFound = errors.New("not found")
	// ErrConstraintViolation is returned when a uniqueness invariant would be broken.
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrConnection is returned when the storage engine cannot be reached.
	ErrConnection = errors.New("connection error")
)

// sqlite result code for constraint failures, extended codes share the low byte
const sqliteConstraintCode = 19

// classifyError maps driver errors onto the store's error kinds. The
// original error stays in the chain.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConstraintViolation) || errors.Is(err, ErrConnection) {
		return err
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if isConstraintError(err) {
		return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
	}
	if isConnectionError(err) {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
	return err
}

func isConstraintError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "23")
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "23"
	}

	var codeErr interface{ Code() int }
	if errors.As(err, &codeErr) {
		return codeErr.Code()&0xff == sqliteConstraintCode
	}

	return strings.Contains(err.Error(), "constraint failed")
}

func isConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func wrapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return classifyError(fmt.Errorf(format+": %w", append(args, err)...))
}
