package dao

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "unique violation", err: &pgconn.PgError{Code: pgerrcode.UniqueViolation}, want: rowstore.ErrConstraintViolation},
		{name: "check violation", err: &pgconn.PgError{Code: pgerrcode.CheckViolation}, want: rowstore.ErrConstraintViolation},
		{name: "insufficient privilege", err: &pgconn.PgError{Code: pgerrcode.InsufficientPrivilege}, want: rowstore.ErrPermissionDenied},
		{name: "connection failure", err: &pgconn.PgError{Code: pgerrcode.ConnectionFailure}, want: rowstore.ErrTransient},
		{name: "serialization failure", err: &pgconn.PgError{Code: pgerrcode.SerializationFailure}, want: rowstore.ErrTransient},
		{name: "admin shutdown", err: &pgconn.PgError{Code: pgerrcode.AdminShutdown}, want: rowstore.ErrTransient},
		{name: "too many connections", err: &pgconn.PgError{Code: pgerrcode.TooManyConnections}, want: rowstore.ErrTransient},
		{name: "record not found", err: gorm.ErrRecordNotFound, want: rowstore.ErrNotFound},
		{name: "deadline", err: context.DeadlineExceeded, want: rowstore.ErrTransient},
		{name: "dial refused", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, want: rowstore.ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("select", rowstore.TableSchools, tt.err)

			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestClassify_Unclassified(t *testing.T) {
	for _, cause := range []error{
		&pgconn.PgError{Code: pgerrcode.SyntaxError},
		errors.New("boom"),
		context.Canceled,
	} {
		err := classify("insert", rowstore.TableSubmissions, cause)

		var se *rowstore.Error
		require.ErrorAs(t, err, &se)
		assert.Nil(t, se.Kind)
		assert.False(t, rowstore.IsTransient(err), cause.Error())
		assert.False(t, rowstore.IsPermissionDenied(err), cause.Error())
		assert.NotErrorIs(t, err, rowstore.ErrNotFound)
	}
}

func TestClassify_Nil(t *testing.T) {
	assert.NoError(t, classify("select", rowstore.TableSchools, nil))
}
