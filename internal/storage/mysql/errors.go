package mysql

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	mysqldrv "github.com/go-sql-driver/mysql"

	"review_dashboard/internal/domain"
)

const (
	erDupEntry        = 1062
	erLockWaitTimeout = 1205
	erLockDeadlock    = 1213
)

// classify maps driver errors onto the domain taxonomy. Duplicate keys become
// domain.ErrConflict; everything else is a StorageError marked transient or not.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var me *mysqldrv.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case erDupEntry:
			return fmt.Errorf("%s: %w", op, domain.ErrConflict)
		case erLockWaitTimeout, erLockDeadlock:
			return &domain.StorageError{Op: op, Err: err, Retryable: true}
		}
		return &domain.StorageError{Op: op, Err: err}
	}

	var ne net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysqldrv.ErrInvalidConn) || errors.As(err, &ne) {
		return &domain.StorageError{Op: op, Err: err, Retryable: true}
	}
	return &domain.StorageError{Op: op, Err: err}
}
