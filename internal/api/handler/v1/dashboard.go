package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ecobox-ge/ecobox-api/internal/api/handler/v1/response"
	"github.com/ecobox-ge/ecobox-api/internal/api/middleware"
	"github.com/ecobox-ge/ecobox-api/internal/domain"
	"github.com/ecobox-ge/ecobox-api/internal/query"
	"github.com/ecobox-ge/ecobox-api/internal/repository"
	"github.com/ecobox-ge/ecobox-api/internal/service"
)

type DashboardService interface {
	Schools(ctx context.Context, refetch bool) (query.Result[[]domain.School], error)
	Devices(ctx context.Context, refetch bool) (query.Result[[]domain.EcoBoxDevice], error)
	Achievements(ctx context.Context, refetch bool) (query.Result[[]domain.Achievement], error)
	UserAchievements(ctx context.Context, userID string, refetch bool) (query.Result[[]domain.AchievementProgress], error)
	Challenges(ctx context.Context, refetch bool) (query.Result[[]domain.Challenge], error)
	UserChallenges(ctx context.Context, userID string, refetch bool) (query.Result[[]domain.UserChallenge], error)
	Statistics(ctx context.Context, refetch bool) (query.Result[domain.Statistics], error)
	Leaderboard(ctx context.Context, board domain.BoardType, refetch bool) (query.Result[[]domain.LeaderboardEntry], error)
	EcoTips(ctx context.Context, category string, refetch bool) (query.Result[[]domain.EcoTip], error)
	Notifications(ctx context.Context, userID string, refetch bool) (query.Result[[]domain.Notification], error)
	Profile(ctx context.Context, userID string, refetch bool) (query.Result[domain.UserProfile], error)
}

// DashboardHandler serves the cached reads. Every response is the query
// envelope; a read that failed but still has data answers 200 with
// isError set, so clients keep rendering the last good value.
type DashboardHandler struct {
	svc DashboardService
}

func NewDashboardHandler(svc DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// HandleGetStatistics godoc
// @Summary      Get program wide statistics
// @Tags         dashboard
// @Produce      json
// @Param        refetch   query     bool  false  "bypass the cache"
// @Success      200      {object}   query.Result[domain.Statistics]
// @Failure      503      {object}   response.Err
// @Router       /statistics [get]
// @Security     BearerAuth
func (h *DashboardHandler) HandleGetStatistics(ctx *gin.Context) {
	serve(ctx, "statistics", "", func(c context.Context, refetch bool) (query.Result[domain.Statistics], error) {
		return h.svc.Statistics(c, refetch)
	})
}

// HandleGetSchools godoc
// @Summary      List schools with their devices and classes
// @Tags         dashboard
// @Produce      json
// @Param        refetch   query     bool  false  "bypass the cache"
// @Success      200      {object}   query.Result[[]domain.School]
// @Failure      503      {object}   response.Err
// @Router       /schools [get]
// @Security     BearerAuth
func (h *DashboardHandler) HandleGetSchools(ctx *gin.Context) {
	serve(ctx, "schools", "", h.svc.Schools)
}

// HandleGetDevices godoc
// @Summary      List EcoBox devices
// @Tags         dashboard
// @Produce      json
// @Param        refetch   query     bool  false  "bypass the cache"
// @Success      200      {object}   query.Result[[]domain.EcoBoxDevice]
// @Failure      503      {object}   response.Err
// @Router       /devices [get]
// @Security     BearerAuth
func (h *DashboardHandler) HandleGetDevices(ctx *gin.Context) {
	serve(ctx, "devices", "", h.svc.Devices)
}

// HandleGetAchievements godoc
// @Summary      List the achievement catalog
// @Tags         gamification
// @Produce      json
// @Param        refetch   query     bool  false  "bypass the cache"
// @Success      200      {object}   query.Result[[]domain.Achievement]
// @Router       /achievements [get]
// @Security     BearerAuth
func (h *DashboardHandler) HandleGetAchievements(ctx *gin.Context) {
	serve(ctx, "achievements", "", h.svc.Achievements)
}

// HandleGetChallenges godoc
// @Summary      List challenges
// @Tags         gamification
// @Produce      json
// @Param        refetch   query     bool  false  "bypass the cache"
// @Success      200      {object}   query.Result[[]domain.Challenge]
// @Router       /challenges [get]
// @Security     BearerAuth
func (h *DashboardHandler) HandleGetChallenges(ctx *gin.Context) {
	serve(ctx, "challenges", "", h.svc.Challenges)
}

// HandleGetLeaderboard godoc
// @Summary      Get a leaderboard
// @Tags         gamification
// @Produce      json
// @Param        type      query     string  false  "student, class or school"
// @Param        refetch   query     bool    false  "bypass the cache"
// @Success      200      {object}   query.Result[[]domain.LeaderboardEntry]
// @Failure      400      {object}   response.Err
// @Router       /leaderboard [get]
// @Security     BearerAuth
func (h *DashboardHandler) HandleGetLeaderboard(ctx *gin.Context) {
	board := domain.BoardType(ctx.DefaultQuery("type", string(domain.BoardStudent)))
	serve(ctx, "leaderboard", string(board), func(c context.Context, refetch bool) (query.Result[[]domain.LeaderboardEntry], error) {
		return h.svc.Leaderboard(c, board, refetch)
	})
}

// HandleGetEcoTips godoc
// @Summary      List eco tips
// @Tags         content
// @Produce      json
// @Param        category  query     string  false  "tip category"
// @Param        refetch   query     bool    false  "bypass the cache"
// @Success      200      {object}   query.Result[[]domain.EcoTip]
// @Failure      400      {object}   response.Err
// @Router       /eco-tips [get]
// @Security     BearerAuth
func (h *DashboardHandler) HandleGetEcoTips(ctx *gin.Context) {
	category := ctx.Query("category")
	serve(ctx, "eco tips", category, func(c context.Context, refetch bool) (query.Result[[]domain.EcoTip], error) {
		return h.svc.EcoTips(c, category, refetch)
	})
}

// HandleGetUserProfile godoc
// @Summary      Get a user's profile
// @Tags         users
// @Produce      json
// @Param        userID    path      string  true   "User ID"
// @Param        refetch   query     bool    false  "bypass the cache"
// @Success      200      {object}   query.Result[domain.UserProfile]
// @Failure      404      {object}   response.Err
// @Router       /users/{userID} [get]
// @Security     BearerAuth
func (h *DashboardHandler) HandleGetUserProfile(ctx *gin.Context) {
	userID := ctx.Param("userID")
	serve(ctx, "user", userID, func(c context.Context, refetch bool) (query.Result[domain.UserProfile], error) {
		return h.svc.Profile(c, userID, refetch)
	})
}

// HandleGetMyAchievements godoc
// @Summary      Get the signed in user's achievement progress
// @Tags         me
// @Produce      json
// @Param        refetch   query     bool  false  "bypass the cache"
// @Success      200      {object}   query.Result[[]domain.AchievementProgress]
// @Failure      401      {object}   response.Err
// @Router       /me/achievements [get]
// @Security     BearerAuth
func (h *DashboardHandler) HandleGetMyAchievements(ctx *gin.Context) {
	serveOwn(ctx, "achievements", h.svc.UserAchievements)
}

// HandleGetMyChallenges godoc
// @Summary      Get the challenges the signed in user joined
// @Tags         me
// @Produce      json
// @Param        refetch   query     bool  false  "bypass the cache"
// @Success      200      {object}   query.Result[[]domain.UserChallenge]
// @Failure      401      {object}   response.Err
// @Router       /me/challenges [get]
// @Security     BearerAuth
func (h *DashboardHandler) HandleGetMyChallenges(ctx *gin.Context) {
	serveOwn(ctx, "challenges", h.svc.UserChallenges)
}

// HandleGetMyNotifications godoc
// @Summary      Get the signed in user's notifications
// @Tags         me
// @Produce      json
// @Param        refetch   query     bool  false  "bypass the cache"
// @Success      200      {object}   query.Result[[]domain.Notification]
// @Failure      401      {object}   response.Err
// @Router       /me/notifications [get]
// @Security     BearerAuth
func (h *DashboardHandler) HandleGetMyNotifications(ctx *gin.Context) {
	serveOwn(ctx, "notifications", h.svc.Notifications)
}

// HandleGetMyProfile godoc
// @Summary      Get the signed in user's profile
// @Tags         me
// @Produce      json
// @Param        refetch   query     bool  false  "bypass the cache"
// @Success      200      {object}   query.Result[domain.UserProfile]
// @Failure      401      {object}   response.Err
// @Router       /me/profile [get]
// @Security     BearerAuth
func (h *DashboardHandler) HandleGetMyProfile(ctx *gin.Context) {
	serveOwn(ctx, "profile", h.svc.Profile)
}

func serve[T any](ctx *gin.Context, resource, id string, read func(context.Context, bool) (query.Result[T], error)) {
	refetch, err := strconv.ParseBool(ctx.DefaultQuery("refetch", "false"))
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("refetch: %w", err)))
		return
	}

	res, err := read(ctx.Request.Context(), refetch)
	if err != nil {
		if errors.Is(err, service.ErrUnknownBoard) || errors.Is(err, service.ErrUnknownCategory) {
			response.RenderErr(ctx, response.ErrBadRequest(err))
			return
		}
		response.RenderErr(ctx, response.ErrInternalServerError(fmt.Errorf("v1.serve(%s) -> %w", resource, err)))
		return
	}

	if res.IsError && res.UpdatedAt == nil {
		renderQueryErr(ctx, resource, id, res.Err)
		return
	}

	ctx.JSON(http.StatusOK, res)
}

func serveOwn[T any](ctx *gin.Context, resource string, read func(context.Context, string, bool) (query.Result[T], error)) {
	identity, ok := middleware.IdentityFrom(ctx)
	if !ok {
		response.RenderErr(ctx, response.ErrUnauthorized(domain.ErrSessionExpired))
		return
	}

	serve(ctx, resource, identity.UserID, func(c context.Context, refetch bool) (query.Result[T], error) {
		return read(c, identity.UserID, refetch)
	})
}

func renderQueryErr(ctx *gin.Context, resource, id string, err error) {
	if errors.Is(err, repository.ErrUserNotFound) {
		response.RenderErr(ctx, response.ErrNotFound(resource, "id", id))
		return
	}
	response.RenderErr(ctx, response.FromError(err))
}
