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

type QuizService interface {
	Questions(ctx context.Context, category string, refetch bool) (query.Result[[]domain.QuizQuestion], error)
	Grade(ctx context.Context, userID string, answers []domain.QuizAnswer) (domain.QuizResult, error)
}

type QuizHandler struct {
	svc QuizService
}

func NewQuizHandler(svc QuizService) *QuizHandler {
	return &QuizHandler{svc: svc}
}

// HandleGetQuestions godoc
// @Summary      List quiz questions without their answers
// @Tags         quiz
// @Produce      json
// @Param        category  query     string  false  "recycling, energy, water or general"
// @Param        refetch   query     bool    false  "bypass the cache"
// @Success      200      {object}   query.Result[[]domain.QuizQuestion]
// @Failure      400      {object}   response.Err
// @Failure      503      {object}   response.Err
// @Router       /quiz/questions [get]
// @Security     BearerAuth
func (h *QuizHandler) HandleGetQuestions(ctx *gin.Context) {
	category := ctx.Query("category")
	serve(ctx, "quiz questions", category, func(c context.Context, refetch bool) (query.Result[[]domain.QuizQuestion], error) {
		return h.svc.Questions(c, category, refetch)
	})
}

// HandleSubmitAnswers godoc
// @Summary      Grade a set of quiz answers
// @Tags         quiz
// @Accept       json
// @Produce      json
// @Param        request   body      request.SubmitQuizRequest true "request body"
// @Success      200      {object}   domain.QuizResult
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      503      {object}   response.Err
// @Router       /quiz/answers [post]
// @Security     BearerAuth
func (h *QuizHandler) HandleSubmitAnswers(ctx *gin.Context) {
	identity, ok := middleware.IdentityFrom(ctx)
	if !ok {
		response.RenderErr(ctx, response.ErrUnauthorized(domain.ErrSessionExpired))
		return
	}

	var req request.SubmitQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	res, err := h.svc.Grade(ctx.Request.Context(), identity.UserID, req.DomainAnswers())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoAnswers),
			errors.Is(err, domain.ErrUnknownQuestion),
			errors.Is(err, domain.ErrAnswerOutOfRange),
			errors.Is(err, domain.ErrDuplicateAnswer):
			response.RenderErr(ctx, response.ErrBadRequest(err))
		default:
			response.RenderErr(ctx, response.FromError(fmt.Errorf("v1.HandleSubmitAnswers -> h.svc.Grade -> %w", err)))
		}
		return
	}

	ctx.JSON(http.StatusOK, res)
}
