package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ecobox-ge/ecobox-api/internal/api/handler/v1/response"
	"github.com/ecobox-ge/ecobox-api/internal/domain"
)

const (
	identityKey = "identity"
	tokenKey    = "token"
)

var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid or expired token")
	errForbidden    = errors.New("role is not allowed to access this resource")
)

type SessionVerifier interface {
	CurrentSession(token string) (domain.Identity, bool)
}

type Authenticator struct {
	sessions SessionVerifier
}

func NewAuthenticator(sessions SessionVerifier) *Authenticator {
	return &Authenticator{sessions: sessions}
}

// VerifyJWT resolves the bearer token to an identity. Websocket clients
// cannot set headers, so a token query parameter is accepted as well.
func (a *Authenticator) VerifyJWT() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := BearerToken(ctx)
		if token == "" {
			response.RenderErr(ctx, response.ErrUnauthorized(errMissingToken))
			return
		}

		identity, ok := a.sessions.CurrentSession(token)
		if !ok {
			response.RenderErr(ctx, response.ErrUnauthorized(errInvalidToken))
			return
		}

		ctx.Set(identityKey, identity)
		ctx.Set(tokenKey, token)
		ctx.Next()
	}
}

// RequireRole must run after VerifyJWT.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		identity, ok := IdentityFrom(ctx)
		if !ok {
			response.RenderErr(ctx, response.ErrUnauthorized(errMissingToken))
			return
		}
		for _, r := range roles {
			if identity.Role == r {
				ctx.Next()
				return
			}
		}
		response.RenderErr(ctx, response.ErrPermissionDenied(errForbidden))
	}
}

func BearerToken(ctx *gin.Context) string {
	header := ctx.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ctx.Query("token")
}

func IdentityFrom(ctx *gin.Context) (domain.Identity, bool) {
	v, ok := ctx.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	identity, ok := v.(domain.Identity)
	return identity, ok
}

func TokenFrom(ctx *gin.Context) string {
	return ctx.GetString(tokenKey)
}
