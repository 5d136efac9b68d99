package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ecobox-ge/ecobox-api/internal/aggregate"
	"github.com/ecobox-ge/ecobox-api/internal/api/handler/v1/request"
	"github.com/ecobox-ge/ecobox-api/internal/api/handler/v1/response"
	"github.com/ecobox-ge/ecobox-api/internal/api/middleware"
	"github.com/ecobox-ge/ecobox-api/internal/domain"
	"github.com/ecobox-ge/ecobox-api/internal/service"
)

type ActivityService interface {
	SubmitPapers(ctx context.Context, identity domain.Identity, userID, deviceID string, count int) (domain.PaperSubmission, error)
	MarkNotificationRead(ctx context.Context, identity domain.Identity, id string) error
	JoinChallenge(ctx context.Context, identity domain.Identity, challengeID string) error
}

type ActivityHandler struct {
	svc ActivityService
}

func NewActivityHandler(svc ActivityService) *ActivityHandler {
	return &ActivityHandler{svc: svc}
}

// HandleSubmitPapers godoc
// @Summary      Record papers dropped into an EcoBox
// @Description  userId defaults to the signed in user and must match it when set.
// @Tags         activity
// @Produce      json
// @Param        request   body      request.SubmitPapersRequest true "request body"
// @Success      201      {object}   response.SubmitPapersResponse
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      503      {object}   response.Err
// @Router       /submissions [post]
// @Security     BearerAuth
func (h *ActivityHandler) HandleSubmitPapers(ctx *gin.Context) {
	identity, ok := middleware.IdentityFrom(ctx)
	if !ok {
		response.RenderErr(ctx, response.ErrUnauthorized(domain.ErrSessionExpired))
		return
	}

	var req request.SubmitPapersRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if req.UserID == "" {
		req.UserID = identity.UserID
	}

	sub, err := h.svc.SubmitPapers(ctx.Request.Context(), identity, req.UserID, req.EcoBoxID, req.PapersCount)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityMismatch) {
			response.RenderErr(ctx, response.ErrPermissionDenied(domain.ErrIdentityMismatch))
			return
		}
		response.RenderErr(ctx, response.FromError(fmt.Errorf("v1.HandleSubmitPapers -> h.svc.SubmitPapers -> %w", err)))
		return
	}

	ctx.JSON(http.StatusCreated, response.SubmitPapersResponse{
		Submission: sub,
		Impact:     aggregate.ImpactOf(sub.PapersCount),
	})
}

// HandleMarkNotificationRead godoc
// @Summary      Mark one of the signed in user's notifications as read
// @Tags         me
// @Param        notificationID   path   string  true  "Notification ID"
// @Success      204
// @Failure      401      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Router       /me/notifications/{notificationID}/read [patch]
// @Security     BearerAuth
func (h *ActivityHandler) HandleMarkNotificationRead(ctx *gin.Context) {
	identity, ok := middleware.IdentityFrom(ctx)
	if !ok {
		response.RenderErr(ctx, response.ErrUnauthorized(domain.ErrSessionExpired))
		return
	}

	id := ctx.Param("notificationID")
	if err := h.svc.MarkNotificationRead(ctx.Request.Context(), identity, id); err != nil {
		if errors.Is(err, service.ErrNotificationNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("notification", "id", id))
			return
		}
		response.RenderErr(ctx, response.FromError(fmt.Errorf("v1.HandleMarkNotificationRead -> h.svc.MarkNotificationRead -> %w", err)))
		return
	}

	ctx.Status(http.StatusNoContent)
}

// HandleJoinChallenge godoc
// @Summary      Join a challenge
// @Tags         gamification
// @Param        challengeID   path   string  true  "Challenge ID"
// @Success      204
// @Failure      401      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      409      {object}   response.Err
// @Router       /challenges/{challengeID}/join [post]
// @Security     BearerAuth
func (h *ActivityHandler) HandleJoinChallenge(ctx *gin.Context) {
	identity, ok := middleware.IdentityFrom(ctx)
	if !ok {
		response.RenderErr(ctx, response.ErrUnauthorized(domain.ErrSessionExpired))
		return
	}

	id := ctx.Param("challengeID")
	err := h.svc.JoinChallenge(ctx.Request.Context(), identity, id)
	switch {
	case err == nil:
		ctx.Status(http.StatusNoContent)
	case errors.Is(err, service.ErrChallengeNotFound):
		response.RenderErr(ctx, response.ErrNotFound("challenge", "id", id))
	case errors.Is(err, service.ErrAlreadyJoined), errors.Is(err, service.ErrChallengeEnded):
		response.RenderErr(ctx, response.ErrConflict(err))
	default:
		response.RenderErr(ctx, response.FromError(fmt.Errorf("v1.HandleJoinChallenge -> h.svc.JoinChallenge -> %w", err)))
	}
}
