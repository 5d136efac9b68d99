package dao

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
)

// classify tags a driver error with its Row Store kind. Errors that fit no
// kind are returned wrapped but unclassified, so they are never retried.
func classify(op, table string, err error) error {
	if err == nil {
		return nil
	}

	if kind := kindOf(err); kind != nil {
		return rowstore.NewError(kind, op, table, err)
	}
	return &rowstore.Error{Op: op, Table: table, Err: err}
}

func kindOf(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgerrcode.InsufficientPrivilege,
			pgerrcode.IsInvalidAuthorizationSpecification(pgErr.Code):
			return rowstore.ErrPermissionDenied
		case pgerrcode.IsIntegrityConstraintViolation(pgErr.Code):
			return rowstore.ErrConstraintViolation
		case pgerrcode.IsConnectionException(pgErr.Code),
			pgerrcode.IsTransactionRollback(pgErr.Code),
			pgerrcode.IsInsufficientResources(pgErr.Code),
			pgerrcode.IsOperatorIntervention(pgErr.Code):
			return rowstore.ErrTransient
		}
		return nil
	}

	var netErr net.Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return rowstore.ErrNotFound
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, driver.ErrBadConn),
		pgconn.Timeout(err),
		pgconn.SafeToRetry(err),
		errors.As(err, &netErr):
		return rowstore.ErrTransient
	}
	return nil
}
