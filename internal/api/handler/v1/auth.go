package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ecobox-ge/ecobox-api/internal/api/handler/v1/request"
	"github.com/ecobox-ge/ecobox-api/internal/api/handler/v1/response"
	"github.com/ecobox-ge/ecobox-api/internal/api/middleware"
	"github.com/ecobox-ge/ecobox-api/internal/domain"
	"github.com/ecobox-ge/ecobox-api/internal/query"
	"github.com/ecobox-ge/ecobox-api/internal/service"
)

type AuthService interface {
	Login(ctx context.Context, email, password, userAgent string) (service.Session, error)
	Register(ctx context.Context, reg service.Registration, userAgent string) (service.Session, error)
	Refresh(ctx context.Context, token, userAgent string) (service.Session, error)
	Logout(token string) error
}

type ProfileReader interface {
	Profile(ctx context.Context, userID string, refetch bool) (query.Result[domain.UserProfile], error)
}

type AuthHandler struct {
	svc      AuthService
	profiles ProfileReader
}

func NewAuthHandler(svc AuthService, profiles ProfileReader) *AuthHandler {
	return &AuthHandler{
		svc:      svc,
		profiles: profiles,
	}
}

// HandleRegister godoc
// @Summary      Register a new student
// @Tags         auth
// @Produce      json
// @Param        request   body      request.RegisterRequest true "request body"
// @Success      201      {object}   response.LoginResponse
// @Failure      400      {object}   response.Err
// @Failure      409      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /auth/register [post]
func (h *AuthHandler) HandleRegister(ctx *gin.Context) {
	var req request.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	session, err := h.svc.Register(ctx.Request.Context(), service.Registration{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		SchoolID:  req.SchoolID,
		ClassID:   req.ClassID,
	}, ctx.Request.UserAgent())
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			response.RenderErr(ctx, response.ErrConflict(domain.ErrEmailTaken))
			return
		}
		response.RenderErr(ctx, response.FromError(fmt.Errorf("v1.HandleRegister -> h.svc.Register -> %w", err)))
		return
	}

	ctx.JSON(http.StatusCreated, loginResponse(session))
}

// HandleLogin godoc
// @Summary      Login a user
// @Tags         auth
// @Produce      json
// @Param        request   body      request.LoginRequest true "request body"
// @Success      200      {object}   response.LoginResponse
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /auth/login [post]
func (h *AuthHandler) HandleLogin(ctx *gin.Context) {
	req := request.LoginRequest{}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	session, err := h.svc.Login(ctx.Request.Context(), req.Email, req.Password, ctx.Request.UserAgent())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			response.RenderErr(ctx, response.ErrWrongCredentials(domain.ErrInvalidCredentials))

			return
		}

		err = fmt.Errorf("v1.HandleLogin -> h.svc.Login -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	ctx.JSON(http.StatusOK, loginResponse(session))
}

// HandleRefresh godoc
// @Summary      Exchange a valid token for a new one
// @Tags         auth
// @Produce      json
// @Success      200      {object}   response.LoginResponse
// @Failure      401      {object}   response.Err
// @Router       /auth/refresh [post]
// @Security     BearerAuth
func (h *AuthHandler) HandleRefresh(ctx *gin.Context) {
	session, err := h.svc.Refresh(ctx.Request.Context(), middleware.TokenFrom(ctx), ctx.Request.UserAgent())
	if err != nil {
		response.RenderErr(ctx, response.FromError(fmt.Errorf("v1.HandleRefresh -> h.svc.Refresh -> %w", err)))
		return
	}

	ctx.JSON(http.StatusOK, loginResponse(session))
}

// HandleLogout godoc
// @Summary      Revoke the current token
// @Tags         auth
// @Success      204
// @Failure      401      {object}   response.Err
// @Router       /auth/logout [post]
// @Security     BearerAuth
func (h *AuthHandler) HandleLogout(ctx *gin.Context) {
	if err := h.svc.Logout(middleware.TokenFrom(ctx)); err != nil {
		response.RenderErr(ctx, response.FromError(fmt.Errorf("v1.HandleLogout -> h.svc.Logout -> %w", err)))
		return
	}

	ctx.Status(http.StatusNoContent)
}

// HandleMe godoc
// @Summary      Get the signed in identity and profile
// @Tags         auth
// @Produce      json
// @Success      200      {object}   response.MeResponse
// @Failure      401      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Router       /auth/me [get]
// @Security     BearerAuth
func (h *AuthHandler) HandleMe(ctx *gin.Context) {
	identity, ok := middleware.IdentityFrom(ctx)
	if !ok {
		response.RenderErr(ctx, response.ErrUnauthorized(domain.ErrSessionExpired))
		return
	}

	res, err := h.profiles.Profile(ctx.Request.Context(), identity.UserID, false)
	if err != nil {
		response.RenderErr(ctx, response.FromError(fmt.Errorf("v1.HandleMe -> h.profiles.Profile -> %w", err)))
		return
	}
	if res.IsError && res.UpdatedAt == nil {
		renderQueryErr(ctx, "profile", identity.UserID, res.Err)
		return
	}

	ctx.JSON(http.StatusOK, response.MeResponse{Identity: identity, Profile: res.Data})
}

func loginResponse(s service.Session) response.LoginResponse {
	return response.LoginResponse{
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
		User:      s.User,
	}
}
