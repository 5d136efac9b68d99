package api

import (
	"context"
	"fmt"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ecobox-ge/ecobox-api/docs"
	v1 "github.com/ecobox-ge/ecobox-api/internal/api/handler/v1"
	"github.com/ecobox-ge/ecobox-api/internal/api/middleware"
	"github.com/ecobox-ge/ecobox-api/internal/config"
	"github.com/ecobox-ge/ecobox-api/internal/domain"
	"github.com/ecobox-ge/ecobox-api/internal/logger"
	"github.com/ecobox-ge/ecobox-api/internal/query"
	"github.com/ecobox-ge/ecobox-api/internal/realtime"
	"github.com/ecobox-ge/ecobox-api/internal/repository"
	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
	"github.com/ecobox-ge/ecobox-api/internal/service"
)

const basePath = "/api/v1"

type Server struct {
	Config *config.AppConfig
	Router *gin.Engine

	Client    *query.Client
	Bridge    *realtime.Bridge
	Auth      *service.AuthService
	Dashboard *service.DashboardService
	Snapshots *service.SnapshotService
	Quiz      *service.QuizService
	Hub       *v1.RealtimeHub

	store      rowstore.Store
	subs       []*realtime.Subscription
	bcryptCost int
}

type Option func(*Server)

// WithBcryptCost lets tests skip the expensive default.
func WithBcryptCost(cost int) Option {
	return func(s *Server) { s.bcryptCost = cost }
}

func NewServer(conf *config.AppConfig, store rowstore.Store, stream realtime.Stream, opts ...Option) (*Server, error) {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	s := &Server{
		Config:     conf,
		Router:     engine,
		store:      store,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.Client = query.NewClient(CachePolicy(conf.Cache), RetryPolicy(conf.Cache), query.WithFetchTimeout(conf.Cache.FetchTimeout))
	s.Bridge = realtime.NewBridge(stream, service.NewInvalidator(s.Client))

	s.MountMiddlewares()

	authHandler := s.initAuthHandler()
	dashboardHandler := s.initDashboardHandler()
	activityHandler := s.initActivityHandler()
	adminHandler := s.initAdminHandler()
	quizHandler := s.initQuizHandler()
	s.Hub = v1.NewRealtimeHub(s.Bridge, s.Auth, conf.API.AllowedCORSDomains)
	s.MountHandlers(authHandler, dashboardHandler, activityHandler, adminHandler, quizHandler, s.Hub)

	if err := s.subscribe(); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

// CachePolicy converts the cache section into the query staleness table.
func CachePolicy(c *config.CacheConfig) query.Policy {
	return query.Policy{Default: c.DefaultStaleTime, StaleTimes: c.StaleTimes}
}

// RetryPolicy retries transient storage failures only.
func RetryPolicy(c *config.CacheConfig) query.RetryPolicy {
	return query.RetryPolicy{Attempts: c.RetryAttempts, Backoff: c.RetryBackoff, Retryable: rowstore.IsTransient}
}

func (s *Server) initAuthHandler() *v1.AuthHandler {
	repo := repository.NewUserRepository(s.store)
	s.Auth = service.NewAuthService(repo, service.AuthConfig{
		SigningKey: s.Config.API.JWTSigningKey,
		TokenTTL:   s.Config.API.TokenTTL,
		BcryptCost: s.bcryptCost,
	})
	s.Auth.OnSessionChange(func(ev service.SessionEvent) {
		// A new sign-in may see rows the previous session could not.
		if ev.Type == service.SessionSignedIn || ev.Type == service.SessionSignedOut {
			s.Client.Invalidate(query.NewKey(query.KeyUserProfile, ev.Identity.UserID))
		}
	})

	return v1.NewAuthHandler(s.Auth, s.dashboard())
}

func (s *Server) dashboard() *service.DashboardService {
	if s.Dashboard != nil {
		return s.Dashboard
	}

	schools := repository.NewSchoolRepository(s.store)
	s.Dashboard = service.NewDashboardService(s.Client, service.Repositories{
		Schools:      schools,
		Profiles:     repository.NewUserRepository(s.store),
		Gamification: repository.NewGamificationRepository(s.store),
		Ledger:       repository.NewSubmissionRepository(s.store),
		Content:      repository.NewContentRepository(s.store),
		Snapshots:    repository.NewSnapshotRepository(s.store),
	}, service.DashboardConfig{
		PapersPerLevel:       s.Config.Gamification.PapersPerLevel,
		DeviceStaleThreshold: s.Config.Gamification.DeviceStaleThreshold,
		LeaderboardLimit:     s.Config.Leaderboard.Limit,
	})
	return s.Dashboard
}

func (s *Server) initDashboardHandler() *v1.DashboardHandler {
	return v1.NewDashboardHandler(s.dashboard())
}

func (s *Server) initActivityHandler() *v1.ActivityHandler {
	schools := repository.NewSchoolRepository(s.store)
	submissions := repository.NewSubmissionRepository(s.store)
	content := repository.NewContentRepository(s.store)
	game := repository.NewGamificationRepository(s.store)
	svc := service.NewActivityService(s.Client, schools, submissions, content, game)

	return v1.NewActivityHandler(svc)
}

func (s *Server) initAdminHandler() *v1.AdminHandler {
	s.Snapshots = service.NewSnapshotService(s.Client, s.dashboard().Boards(), repository.NewSnapshotRepository(s.store))

	return v1.NewAdminHandler(s.Snapshots)
}

func (s *Server) initQuizHandler() *v1.QuizHandler {
	s.Quiz = service.NewQuizService(s.Client, repository.NewContentRepository(s.store))

	return v1.NewQuizHandler(s.Quiz)
}

// subscribe opens the app wide change subscriptions. Each change reaches the
// cache through the same invalidation path local writes use.
func (s *Server) subscribe() error {
	specs := []struct {
		table string
		event realtime.Event
	}{
		{rowstore.TableSubmissions, realtime.EventInsert},
		{rowstore.TableDevices, realtime.EventUpdate},
		{rowstore.TableProfiles, realtime.EventUpdate},
		{rowstore.TableSchools, realtime.EventUpdate},
		{rowstore.TableClasses, realtime.EventUpdate},
		{rowstore.TableUserAchieve, realtime.EventAll},
		{rowstore.TableUserChallenge, realtime.EventAll},
		{rowstore.TableChallenges, realtime.EventAll},
		{rowstore.TableEcoTips, realtime.EventAll},
		{rowstore.TableQuiz, realtime.EventAll},
	}

	for _, spec := range specs {
		sub, err := s.Bridge.Open(spec.table, spec.event, "", nil)
		if err != nil {
			return fmt.Errorf("s.Bridge.Open(%s) -> %w", spec.table, err)
		}
		s.subs = append(s.subs, sub)
	}

	return nil
}

// Start runs the realtime hub until ctx is done.
func (s *Server) Start(ctx context.Context) {
	cancel := s.Hub.Forward(s.Client)
	go func() {
		s.Hub.Run(ctx)
		cancel()
	}()
}

func (s *Server) Close() {
	for _, sub := range s.subs {
		if err := sub.Close(); err != nil {
			zap.L().Warn("closing subscription", zap.Error(err))
		}
	}
	s.Bridge.Close()
	s.Client.Wait()
}

func (s *Server) MountMiddlewares() {
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(logger.GinAccessLog())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
}

func (s *Server) MountHandlers(
	authHandler *v1.AuthHandler,
	dashboardHandler *v1.DashboardHandler,
	activityHandler *v1.ActivityHandler,
	adminHandler *v1.AdminHandler,
	quizHandler *v1.QuizHandler,
	hub *v1.RealtimeHub,
) {
	authenticated := middleware.NewAuthenticator(s.Auth).VerifyJWT()

	auth := s.Router.Group(basePath)
	{
		auth.POST("/auth/register", authHandler.HandleRegister)
		auth.POST("/auth/login", authHandler.HandleLogin)
	}

	session := s.Router.Group(basePath, authenticated)
	{
		session.POST("/auth/refresh", authHandler.HandleRefresh)
		session.POST("/auth/logout", authHandler.HandleLogout)
		session.GET("/auth/me", authHandler.HandleMe)
	}

	dashboard := s.Router.Group(basePath, authenticated)
	{
		dashboard.GET("/statistics", dashboardHandler.HandleGetStatistics)
		dashboard.GET("/schools", dashboardHandler.HandleGetSchools)
		dashboard.GET("/devices", dashboardHandler.HandleGetDevices)
		dashboard.GET("/achievements", dashboardHandler.HandleGetAchievements)
		dashboard.GET("/challenges", dashboardHandler.HandleGetChallenges)
		dashboard.GET("/leaderboard", dashboardHandler.HandleGetLeaderboard)
		dashboard.GET("/eco-tips", dashboardHandler.HandleGetEcoTips)
		dashboard.GET("/users/:userID", dashboardHandler.HandleGetUserProfile)
	}

	me := s.Router.Group(basePath+"/me", authenticated)
	{
		me.GET("/profile", dashboardHandler.HandleGetMyProfile)
		me.GET("/achievements", dashboardHandler.HandleGetMyAchievements)
		me.GET("/challenges", dashboardHandler.HandleGetMyChallenges)
		me.GET("/notifications", dashboardHandler.HandleGetMyNotifications)
		me.PATCH("/notifications/:notificationID/read", activityHandler.HandleMarkNotificationRead)
	}

	activity := s.Router.Group(basePath, authenticated)
	{
		activity.POST("/submissions", activityHandler.HandleSubmitPapers)
		activity.POST("/challenges/:challengeID/join", activityHandler.HandleJoinChallenge)
		activity.GET("/realtime", hub.HandleWebSocket)
	}

	quiz := s.Router.Group(basePath+"/quiz", authenticated)
	{
		quiz.GET("/questions", quizHandler.HandleGetQuestions)
		quiz.POST("/answers", quizHandler.HandleSubmitAnswers)
	}

	admin := s.Router.Group(basePath+"/admin", authenticated, middleware.RequireRole(domain.RoleAdmin))
	{
		admin.POST("/leaderboard/snapshots", adminHandler.HandleTakeSnapshot)
	}

	s.Router.GET("/", v1.HandleHealthcheck)
	s.Router.NoRoute(v1.HandleNoRoute)

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "EcoBox API"
	docs.SwaggerInfo.Description = "Paper recycling gamification for Georgian schools."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}
