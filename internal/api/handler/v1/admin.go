package v1

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ecobox-ge/ecobox-api/internal/api/handler/v1/request"
	"github.com/ecobox-ge/ecobox-api/internal/api/handler/v1/response"
	"github.com/ecobox-ge/ecobox-api/internal/domain"
)

type SnapshotService interface {
	Take(ctx context.Context, board domain.BoardType) (domain.Snapshot, error)
	TakeAll(ctx context.Context) ([]domain.Snapshot, error)
}

type AdminHandler struct {
	snapshots SnapshotService
}

func NewAdminHandler(snapshots SnapshotService) *AdminHandler {
	return &AdminHandler{snapshots: snapshots}
}

// HandleTakeSnapshot godoc
// @Summary      Persist the current leaderboard ranks
// @Description  Later leaderboard reads report change and trend against the latest snapshot. Without a board every board is snapshotted.
// @Tags         admin
// @Produce      json
// @Param        request   body      request.SnapshotRequest false "request body"
// @Success      201      {object}   response.SnapshotResponse
// @Failure      400      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Router       /admin/leaderboard/snapshots [post]
// @Security     BearerAuth
func (h *AdminHandler) HandleTakeSnapshot(ctx *gin.Context) {
	var req request.SnapshotRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.RenderErr(ctx, response.ErrBadRequest(err))
			return
		}
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	var (
		taken []domain.Snapshot
		err   error
	)
	if req.Board == "" {
		taken, err = h.snapshots.TakeAll(ctx.Request.Context())
	} else {
		var snap domain.Snapshot
		snap, err = h.snapshots.Take(ctx.Request.Context(), req.Board)
		taken = []domain.Snapshot{snap}
	}
	if err != nil {
		response.RenderErr(ctx, response.FromError(fmt.Errorf("v1.HandleTakeSnapshot -> %w", err)))
		return
	}

	ctx.JSON(http.StatusCreated, response.SnapshotResponse{Snapshots: taken})
}

// HandleHealthcheck godoc
// @Summary      Health check
// @Tags         health
// @Produce      json
// @Success      200      {object}   response.Healthcheck
// @Router       / [get]
func HandleHealthcheck(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, response.Healthcheck{Status: "ok"})
}

func HandleNoRoute(ctx *gin.Context) {
	response.RenderErr(ctx, response.ErrNotFound("route", "path", ctx.Request.URL.Path))
}
