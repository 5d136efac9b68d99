package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ecobox-ge/ecobox-api/internal/aggregate"
	"github.com/ecobox-ge/ecobox-api/internal/domain"
	"github.com/ecobox-ge/ecobox-api/internal/query"
)

type SnapshotWriter interface {
	Save(ctx context.Context, s domain.Snapshot) (domain.Snapshot, error)
}

// SnapshotService persists rankings so later reads can report trend and change.
type SnapshotService struct {
	client *query.Client
	boards *Boards
	repo   SnapshotWriter
	now    func() time.Time
}

func NewSnapshotService(client *query.Client, boards *Boards, repo SnapshotWriter) *SnapshotService {
	return &SnapshotService{
		client: client,
		boards: boards,
		repo:   repo,
		now:    time.Now,
	}
}

func (s *SnapshotService) Take(ctx context.Context, board domain.BoardType) (domain.Snapshot, error) {
	if !board.Valid() {
		return domain.Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownBoard, board)
	}

	standings, err := s.boards.Standings(ctx, board)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("s.boards.Standings -> %w", err)
	}

	var saved domain.Snapshot
	err = s.client.Mutate(ctx, func(ctx context.Context) (err error) {
		saved, err = s.repo.Save(ctx, domain.Snapshot{
			Board:   board,
			TakenAt: s.now(),
			Ranks:   aggregate.RankMap(aggregate.ComputeRanking(standings, nil)),
		})
		return err
	}, LeaderboardKey(board))
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("s.repo.Save -> %w", err)
	}

	return saved, nil
}

// TakeAll snapshots every board and reports every failure.
func (s *SnapshotService) TakeAll(ctx context.Context) ([]domain.Snapshot, error) {
	var (
		taken []domain.Snapshot
		errs  []error
	)
	for _, board := range []domain.BoardType{domain.BoardStudent, domain.BoardClass, domain.BoardSchool} {
		snap, err := s.Take(ctx, board)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		taken = append(taken, snap)
	}

	return taken, errors.Join(errs...)
}

// Schedule runs TakeAll on a cron spec, skipping a tick while the previous
// run is still going. The caller stops the returned cron.
func (s *SnapshotService) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		taken, err := s.TakeAll(ctx)
		if err != nil {
			zap.L().Error("scheduled leaderboard snapshot failed", zap.Error(err))
		}
		zap.L().Info("leaderboard snapshots taken", zap.Int("boards", len(taken)))
	})
	if err != nil {
		return nil, fmt.Errorf("c.AddFunc -> %w", err)
	}

	c.Start()
	return c, nil
}
