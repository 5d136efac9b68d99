package response

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ecobox-ge/ecobox-api/internal/domain"
	"github.com/ecobox-ge/ecobox-api/internal/repository/mapper"
	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
)

// Err is the body of every failed request.
type Err struct {
	HTTPStatusCode int    `json:"-"`
	StatusText     string `json:"status"`
	ErrorText      string `json:"error,omitempty"`

	cause error
}

func (e *Err) Error() string {
	return fmt.Sprintf("%d %s: %s", e.HTTPStatusCode, e.StatusText, e.ErrorText)
}

func (e *Err) Unwrap() error {
	return e.cause
}

// RenderErr aborts the request with e. Server side failures are logged with
// their cause; the client only sees the status text.
func RenderErr(ctx *gin.Context, e *Err) {
	if e.HTTPStatusCode >= http.StatusInternalServerError {
		zap.L().Error(e.StatusText,
			zap.String("request_id", requestid.Get(ctx)),
			zap.String("path", ctx.FullPath()),
			zap.Error(e.cause),
		)
		_ = ctx.Error(e.cause)
	}

	ctx.AbortWithStatusJSON(e.HTTPStatusCode, e)
}

func newErr(status int, err error) *Err {
	e := &Err{HTTPStatusCode: status, StatusText: http.StatusText(status), cause: err}
	if err != nil {
		e.ErrorText = err.Error()
	}
	return e
}

func ErrBadRequest(err error) *Err {
	return newErr(http.StatusBadRequest, err)
}

func ErrWrongCredentials(err error) *Err {
	return newErr(http.StatusUnauthorized, err)
}

func ErrUnauthorized(err error) *Err {
	return newErr(http.StatusUnauthorized, err)
}

func ErrPermissionDenied(err error) *Err {
	return newErr(http.StatusForbidden, err)
}

func ErrNotFound(resource, field string, value any) *Err {
	return newErr(http.StatusNotFound, fmt.Errorf("%s with %s %v not found", resource, field, value))
}

func ErrConflict(err error) *Err {
	return newErr(http.StatusConflict, err)
}

// ErrServiceUnavailable hides the cause; the client should simply retry later.
func ErrServiceUnavailable(err error) *Err {
	e := newErr(http.StatusServiceUnavailable, err)
	e.ErrorText = "storage is temporarily unavailable"
	return e
}

func ErrInternalServerError(err error) *Err {
	e := newErr(http.StatusInternalServerError, err)
	e.ErrorText = ""
	return e
}

// FromError picks the status for an error surfaced by the services.
func FromError(err error) *Err {
	var (
		authErr      *domain.AuthError
		submitErr    *domain.SubmissionError
		malformedErr *mapper.MalformedRowError
	)

	switch {
	case errors.As(err, &authErr):
		return ErrUnauthorized(authErr.Err)
	case errors.As(err, &submitErr) && submitErr.IsValidation():
		return ErrBadRequest(submitErr.Reason)
	case errors.As(err, &malformedErr):
		return ErrInternalServerError(err)
	case rowstore.IsTransient(err):
		return ErrServiceUnavailable(err)
	case rowstore.IsPermissionDenied(err):
		return ErrPermissionDenied(errors.New("not allowed by row level policy"))
	case errors.Is(err, rowstore.ErrNotFound):
		return newErr(http.StatusNotFound, errors.New("not found"))
	case errors.Is(err, rowstore.ErrConstraintViolation):
		return ErrConflict(errors.New("conflicts with existing data"))
	}

	return ErrInternalServerError(err)
}
