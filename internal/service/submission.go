package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecobox-ge/ecobox-api/internal/domain"
	"github.com/ecobox-ge/ecobox-api/internal/query"
	"github.com/ecobox-ge/ecobox-api/internal/repository"
)

var (
	ErrUnknownCategory      = errors.New("unknown category")
	ErrChallengeNotFound    = repository.ErrChallengeNotFound
	ErrAlreadyJoined        = repository.ErrAlreadyJoined
	ErrChallengeEnded       = errors.New("challenge has ended")
	ErrNotificationNotFound = repository.ErrNotificationNotFound
)

type DeviceRepository interface {
	FindDevice(ctx context.Context, id string) (domain.EcoBoxDevice, error)
}

type SubmissionRepository interface {
	Insert(ctx context.Context, s domain.PaperSubmission) (domain.PaperSubmission, error)
}

type NotificationRepository interface {
	MarkRead(ctx context.Context, userID, id string) error
}

type ChallengeRepository interface {
	FindChallenge(ctx context.Context, id string) (domain.Challenge, error)
	JoinChallenge(ctx context.Context, uc domain.UserChallenge) error
}

// ActivityService is the write side. Every write runs through the query
// client so the keys it affects are invalidated once it succeeds.
type ActivityService struct {
	client        *query.Client
	devices       DeviceRepository
	submissions   SubmissionRepository
	notifications NotificationRepository
	challenges    ChallengeRepository
	now           func() time.Time
}

func NewActivityService(
	client *query.Client,
	devices DeviceRepository,
	submissions SubmissionRepository,
	notifications NotificationRepository,
	challenges ChallengeRepository,
) *ActivityService {
	return &ActivityService{
		client:        client,
		devices:       devices,
		submissions:   submissions,
		notifications: notifications,
		challenges:    challenges,
		now:           time.Now,
	}
}

// SubmitPapers records count papers dropped by userID into deviceID. Checks
// run in order (count, identity, device) and all of them before any write.
// Totals on the profile, school and class are kept by the store. The ledger
// id is fixed before the first attempt so a retried insert cannot append a
// second row.
func (s *ActivityService) SubmitPapers(ctx context.Context, identity domain.Identity, userID, deviceID string, count int) (domain.PaperSubmission, error) {
	if count <= 0 {
		return domain.PaperSubmission{}, &domain.SubmissionError{Reason: domain.ErrNonPositiveCount}
	}
	if identity.IsZero() || identity.UserID != userID {
		return domain.PaperSubmission{}, &domain.SubmissionError{Reason: domain.ErrIdentityMismatch}
	}

	if _, err := s.devices.FindDevice(ctx, deviceID); err != nil {
		if errors.Is(err, domain.ErrUnknownDevice) {
			return domain.PaperSubmission{}, &domain.SubmissionError{Reason: domain.ErrUnknownDevice}
		}
		return domain.PaperSubmission{}, &domain.SubmissionError{Reason: domain.ErrStorageFailure, Err: fmt.Errorf("s.devices.FindDevice -> %w", err)}
	}

	var stored domain.PaperSubmission
	id := uuid.NewString()
	err := s.client.Mutate(ctx, func(ctx context.Context) (err error) {
		stored, err = s.submissions.Insert(ctx, domain.PaperSubmission{
			ID:          id,
			UserID:      userID,
			EcoBoxID:    deviceID,
			PapersCount: count,
		})
		return err
	}, SubmissionKeys(userID)...)
	if err != nil {
		zap.L().Warn("paper submission failed",
			zap.String("user_id", userID), zap.String("ecobox_id", deviceID), zap.Int("papers", count), zap.Error(err))
		return domain.PaperSubmission{}, &domain.SubmissionError{Reason: domain.ErrStorageFailure, Err: fmt.Errorf("s.submissions.Insert -> %w", err)}
	}

	zap.L().Info("papers submitted",
		zap.String("user_id", userID), zap.String("ecobox_id", deviceID), zap.Int("papers", count), zap.String("submission_id", stored.ID))

	return stored, nil
}

func (s *ActivityService) MarkNotificationRead(ctx context.Context, identity domain.Identity, id string) error {
	err := s.client.Mutate(ctx, func(ctx context.Context) error {
		return s.notifications.MarkRead(ctx, identity.UserID, id)
	}, query.NewKey(query.KeyUserNotifications, identity.UserID))
	if err != nil {
		return fmt.Errorf("s.notifications.MarkRead -> %w", err)
	}

	return nil
}

func (s *ActivityService) JoinChallenge(ctx context.Context, identity domain.Identity, challengeID string) error {
	challenge, err := s.challenges.FindChallenge(ctx, challengeID)
	if err != nil {
		return fmt.Errorf("s.challenges.FindChallenge -> %w", err)
	}

	now := s.now()
	if !challenge.EndDate.After(now) {
		return ErrChallengeEnded
	}

	err = s.client.Mutate(ctx, func(ctx context.Context) error {
		return s.challenges.JoinChallenge(ctx, domain.UserChallenge{
			UserID:     identity.UserID,
			Challenge:  challenge,
			JoinedDate: &now,
		})
	},
		query.NewKey(query.KeyUserChallenges, identity.UserID),
		query.NewKey(query.KeyChallenges),
	)
	if err != nil {
		return fmt.Errorf("s.challenges.JoinChallenge -> %w", err)
	}

	return nil
}
