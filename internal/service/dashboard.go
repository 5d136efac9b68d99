package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ecobox-ge/ecobox-api/internal/aggregate"
	"github.com/ecobox-ge/ecobox-api/internal/domain"
	"github.com/ecobox-ge/ecobox-api/internal/query"
)

type SchoolRepository interface {
	SchoolStandingRepository
	List(ctx context.Context) ([]domain.School, error)
	ListDevices(ctx context.Context) ([]domain.EcoBoxDevice, error)
}

type ProfileRepository interface {
	StudentStandingRepository
	FindByID(ctx context.Context, id string) (domain.UserProfile, error)
	CountStudents(ctx context.Context) (int, error)
}

type GamificationRepository interface {
	Achievements(ctx context.Context) ([]domain.Achievement, error)
	UserAchievements(ctx context.Context, userID string) ([]domain.AchievementProgress, error)
	Challenges(ctx context.Context) ([]domain.Challenge, error)
	UserChallenges(ctx context.Context, userID string) ([]domain.UserChallenge, error)
}

type LedgerRepository interface {
	Ledger(ctx context.Context, userID string) ([]domain.PaperSubmission, error)
}

type ContentRepository interface {
	EcoTips(ctx context.Context, category *domain.TipCategory) ([]domain.EcoTip, error)
	Notifications(ctx context.Context, userID string) ([]domain.Notification, error)
}

type SnapshotRepository interface {
	Latest(ctx context.Context, board domain.BoardType) (*domain.Snapshot, error)
}

type Repositories struct {
	Schools      SchoolRepository
	Profiles     ProfileRepository
	Gamification GamificationRepository
	Ledger       LedgerRepository
	Content      ContentRepository
	Snapshots    SnapshotRepository
}

type DashboardConfig struct {
	PapersPerLevel       int
	DeviceStaleThreshold time.Duration
	LeaderboardLimit     int
	// Location decides where a streak day starts and ends.
	Location *time.Location
}

// DashboardService is the read side. Every read goes through the query
// client under its cache key; the fetchers defined here do the mapping and
// aggregation.
type DashboardService struct {
	client *query.Client
	repos  Repositories
	boards *Boards
	conf   DashboardConfig
	now    func() time.Time
}

type DashboardOption func(*DashboardService)

func WithDashboardClock(now func() time.Time) DashboardOption {
	return func(s *DashboardService) { s.now = now }
}

func NewDashboardService(client *query.Client, repos Repositories, conf DashboardConfig, opts ...DashboardOption) *DashboardService {
	if conf.PapersPerLevel <= 0 {
		conf.PapersPerLevel = aggregate.DefaultPapersPerLevel
	}
	if conf.DeviceStaleThreshold <= 0 {
		conf.DeviceStaleThreshold = 30 * time.Minute
	}
	if conf.Location == nil {
		conf.Location = time.UTC
	}

	s := &DashboardService{
		client: client,
		repos:  repos,
		boards: NewBoards(repos.Profiles, repos.Schools, conf.LeaderboardLimit),
		conf:   conf,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.define()

	return s
}

func (s *DashboardService) Boards() *Boards {
	return s.boards
}

func (s *DashboardService) define() {
	s.client.Define(query.KeySchools, func(string) query.Fetcher { return s.fetchSchools })
	s.client.Define(query.KeyDevices, func(string) query.Fetcher { return s.fetchDevices })
	s.client.Define(query.KeyAchievements, func(string) query.Fetcher {
		return func(ctx context.Context) (any, error) { return s.repos.Gamification.Achievements(ctx) }
	})
	s.client.Define(query.KeyUserAchievements, func(uid string) query.Fetcher {
		return func(ctx context.Context) (any, error) { return s.fetchUserAchievements(ctx, uid) }
	})
	s.client.Define(query.KeyChallenges, func(string) query.Fetcher {
		return func(ctx context.Context) (any, error) { return s.repos.Gamification.Challenges(ctx) }
	})
	s.client.Define(query.KeyUserChallenges, func(uid string) query.Fetcher {
		return func(ctx context.Context) (any, error) { return s.fetchUserChallenges(ctx, uid) }
	})
	s.client.Define(query.KeyStatistics, func(string) query.Fetcher { return s.fetchStatistics })
	s.client.Define(query.KeyLeaderboard, func(board string) query.Fetcher {
		return func(ctx context.Context) (any, error) { return s.fetchLeaderboard(ctx, domain.BoardType(board)) }
	})
	s.client.Define(query.KeyEcoTips, func(category string) query.Fetcher {
		return func(ctx context.Context) (any, error) {
			if category == "" {
				return s.repos.Content.EcoTips(ctx, nil)
			}
			c := domain.TipCategory(category)
			return s.repos.Content.EcoTips(ctx, &c)
		}
	})
	s.client.Define(query.KeyUserNotifications, func(uid string) query.Fetcher {
		return func(ctx context.Context) (any, error) { return s.repos.Content.Notifications(ctx, uid) }
	})
	s.client.Define(query.KeyUserProfile, func(uid string) query.Fetcher {
		return func(ctx context.Context) (any, error) { return s.fetchProfile(ctx, uid) }
	})
}

func read[T any](ctx context.Context, c *query.Client, key query.Key, refetch bool) (query.Result[T], error) {
	if !refetch {
		return query.Get[T](ctx, c, key)
	}

	st, err := c.Refetch(ctx, key)
	if err != nil {
		return query.Result[T]{}, err
	}
	return query.ResultOf[T](st)
}

func (s *DashboardService) Schools(ctx context.Context, refetch bool) (query.Result[[]domain.School], error) {
	return read[[]domain.School](ctx, s.client, query.NewKey(query.KeySchools), refetch)
}

func (s *DashboardService) Devices(ctx context.Context, refetch bool) (query.Result[[]domain.EcoBoxDevice], error) {
	return read[[]domain.EcoBoxDevice](ctx, s.client, query.NewKey(query.KeyDevices), refetch)
}

func (s *DashboardService) Achievements(ctx context.Context, refetch bool) (query.Result[[]domain.Achievement], error) {
	return read[[]domain.Achievement](ctx, s.client, query.NewKey(query.KeyAchievements), refetch)
}

func (s *DashboardService) UserAchievements(ctx context.Context, userID string, refetch bool) (query.Result[[]domain.AchievementProgress], error) {
	return read[[]domain.AchievementProgress](ctx, s.client, query.NewKey(query.KeyUserAchievements, userID), refetch)
}

func (s *DashboardService) Challenges(ctx context.Context, refetch bool) (query.Result[[]domain.Challenge], error) {
	return read[[]domain.Challenge](ctx, s.client, query.NewKey(query.KeyChallenges), refetch)
}

func (s *DashboardService) UserChallenges(ctx context.Context, userID string, refetch bool) (query.Result[[]domain.UserChallenge], error) {
	return read[[]domain.UserChallenge](ctx, s.client, query.NewKey(query.KeyUserChallenges, userID), refetch)
}

func (s *DashboardService) Statistics(ctx context.Context, refetch bool) (query.Result[domain.Statistics], error) {
	return read[domain.Statistics](ctx, s.client, query.NewKey(query.KeyStatistics), refetch)
}

func (s *DashboardService) Leaderboard(ctx context.Context, board domain.BoardType, refetch bool) (query.Result[[]domain.LeaderboardEntry], error) {
	if board != "" && !board.Valid() {
		return query.Result[[]domain.LeaderboardEntry]{}, fmt.Errorf("%w: %q", ErrUnknownBoard, board)
	}
	return read[[]domain.LeaderboardEntry](ctx, s.client, LeaderboardKey(board), refetch)
}

func (s *DashboardService) EcoTips(ctx context.Context, category string, refetch bool) (query.Result[[]domain.EcoTip], error) {
	if category != "" && !domain.TipCategory(category).Valid() {
		return query.Result[[]domain.EcoTip]{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	return read[[]domain.EcoTip](ctx, s.client, query.NewKey(query.KeyEcoTips, category), refetch)
}

func (s *DashboardService) Notifications(ctx context.Context, userID string, refetch bool) (query.Result[[]domain.Notification], error) {
	return read[[]domain.Notification](ctx, s.client, query.NewKey(query.KeyUserNotifications, userID), refetch)
}

func (s *DashboardService) Profile(ctx context.Context, userID string, refetch bool) (query.Result[domain.UserProfile], error) {
	return read[domain.UserProfile](ctx, s.client, query.NewKey(query.KeyUserProfile, userID), refetch)
}

func (s *DashboardService) fetchSchools(ctx context.Context) (any, error) {
	schools, err := s.repos.Schools.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("s.repos.Schools.List -> %w", err)
	}

	now := s.now()
	for i := range schools {
		schools[i] = aggregate.DecorateSchool(schools[i], now, s.conf.DeviceStaleThreshold)
	}
	return schools, nil
}

func (s *DashboardService) fetchDevices(ctx context.Context) (any, error) {
	devices, err := s.repos.Schools.ListDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("s.repos.Schools.ListDevices -> %w", err)
	}

	now := s.now()
	for i := range devices {
		devices[i] = aggregate.DecorateDevice(devices[i], now, s.conf.DeviceStaleThreshold)
	}
	return devices, nil
}

// progressInputs loads what achievement projection needs for one user.
type progressInputs struct {
	profile domain.UserProfile
	catalog []domain.Achievement
	owned   []domain.AchievementProgress
	ledger  []domain.PaperSubmission
}

func (s *DashboardService) loadProgress(ctx context.Context, userID string) (progressInputs, error) {
	var in progressInputs

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		in.profile, err = s.repos.Profiles.FindByID(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		in.catalog, err = s.repos.Gamification.Achievements(gctx)
		return err
	})
	g.Go(func() (err error) {
		in.owned, err = s.repos.Gamification.UserAchievements(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		in.ledger, err = s.repos.Ledger.Ledger(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return progressInputs{}, err
	}

	return in, nil
}

func (s *DashboardService) project(in progressInputs, now time.Time) (streak int, achievements []domain.AchievementProgress) {
	streak = aggregate.Streak(in.ledger, now, s.conf.Location)
	achievements = aggregate.ProjectAchievements(in.profile.ID, in.catalog, in.owned, aggregate.ProgressInput{
		TotalPapers: in.profile.TotalPapers,
		Streak:      streak,
		Ledger:      in.ledger,
		Anchor:      progressAnchor(in, now),
		Location:    s.conf.Location,
	})
	return streak, achievements
}

// progressAnchor dates progress the ledger cannot place: the join date, else
// the first submission, else now.
func progressAnchor(in progressInputs, now time.Time) time.Time {
	if in.profile.JoinedDate != nil {
		return *in.profile.JoinedDate
	}
	anchor := now
	for _, s := range in.ledger {
		if s.SubmissionDate != nil && s.SubmissionDate.Before(anchor) {
			anchor = *s.SubmissionDate
		}
	}
	return anchor
}

func (s *DashboardService) fetchUserAchievements(ctx context.Context, userID string) (any, error) {
	in, err := s.loadProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("s.loadProgress -> %w", err)
	}

	_, achievements := s.project(in, s.now())
	return achievements, nil
}

func (s *DashboardService) fetchProfile(ctx context.Context, userID string) (any, error) {
	in, err := s.loadProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("s.loadProgress -> %w", err)
	}

	p := in.profile
	p.Level = aggregate.Level(p.TotalPapers, s.conf.PapersPerLevel)
	p.LevelProgressPercent = aggregate.LevelProgressPercent(p.TotalPapers, s.conf.PapersPerLevel)
	p.Streak, p.Achievements = s.project(in, s.now())

	return p, nil
}

// fetchUserChallenges takes progress from the ledger inside each challenge
// window, never below what was stored.
func (s *DashboardService) fetchUserChallenges(ctx context.Context, userID string) (any, error) {
	var (
		joined []domain.UserChallenge
		ledger []domain.PaperSubmission
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		joined, err = s.repos.Gamification.UserChallenges(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		ledger, err = s.repos.Ledger.Ledger(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("g.Wait -> %w", err)
	}

	for i, uc := range joined {
		if p := aggregate.ChallengeProgress(uc.Challenge, ledger); p > uc.Progress {
			uc.Progress = p
		}
		joined[i] = aggregate.ReconcileChallenge(uc)
	}
	return joined, nil
}

func (s *DashboardService) fetchStatistics(ctx context.Context) (any, error) {
	in := aggregate.StatisticsInput{Now: s.now()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		in.Schools, err = s.repos.Schools.Standings(gctx)
		return err
	})
	g.Go(func() (err error) {
		in.Students, err = s.repos.Profiles.CountStudents(gctx)
		return err
	})
	g.Go(func() (err error) {
		in.Ledger, err = s.repos.Ledger.Ledger(gctx, "")
		return err
	})
	g.Go(func() (err error) {
		in.Challenges, err = s.repos.Gamification.Challenges(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("g.Wait -> %w", err)
	}

	return aggregate.Statistics(in), nil
}

func (s *DashboardService) fetchLeaderboard(ctx context.Context, board domain.BoardType) (any, error) {
	if board == "" {
		board = domain.BoardStudent
	}

	var (
		current  []domain.Standing
		previous *domain.Snapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		current, err = s.boards.Standings(gctx, board)
		return err
	})
	g.Go(func() (err error) {
		previous, err = s.repos.Snapshots.Latest(gctx, board)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("g.Wait -> %w", err)
	}

	return aggregate.ComputeRanking(current, previous), nil
}
