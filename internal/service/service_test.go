package service_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ecobox-ge/ecobox-api/internal/query"
	"github.com/ecobox-ge/ecobox-api/internal/realtime"
	"github.com/ecobox-ge/ecobox-api/internal/realtime/memstream"
	"github.com/ecobox-ge/ecobox-api/internal/repository"
	"github.com/ecobox-ge/ecobox-api/internal/repository/fixture"
	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
	"github.com/ecobox-ge/ecobox-api/internal/service"
)

type harness struct {
	now       time.Time
	store     *fixture.Store
	stream    *memstream.Stream
	client    *query.Client
	dashboard *service.DashboardService
	activity  *service.ActivityService
	snapshots *service.SnapshotService
	auth      *service.AuthService
	quiz      *service.QuizService

	mu          sync.Mutex
	invalidated []query.Key
}

func retryPolicy() query.RetryPolicy {
	return query.RetryPolicy{Attempts: 1, Backoff: time.Millisecond, Retryable: rowstore.IsTransient}
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{now: time.Now().UTC().Truncate(time.Second), stream: memstream.New()}

	store, err := fixture.NewSeeded(h.stream, h.now, bcrypt.MinCost)
	require.NoError(t, err)
	h.store = store

	h.client = query.NewClient(query.Policy{Default: time.Minute}, retryPolicy())
	t.Cleanup(h.client.Wait)
	h.client.OnInvalidate(func(k query.Key) {
		h.mu.Lock()
		h.invalidated = append(h.invalidated, k)
		h.mu.Unlock()
	})

	schools := repository.NewSchoolRepository(store)
	users := repository.NewUserRepository(store)
	game := repository.NewGamificationRepository(store)
	ledger := repository.NewSubmissionRepository(store)
	content := repository.NewContentRepository(store)
	snaps := repository.NewSnapshotRepository(store)

	h.dashboard = service.NewDashboardService(h.client, service.Repositories{
		Schools:      schools,
		Profiles:     users,
		Gamification: game,
		Ledger:       ledger,
		Content:      content,
		Snapshots:    snaps,
	}, service.DashboardConfig{PapersPerLevel: 100, LeaderboardLimit: 20})
	h.activity = service.NewActivityService(h.client, schools, ledger, content, game)
	h.snapshots = service.NewSnapshotService(h.client, h.dashboard.Boards(), snaps)
	h.quiz = service.NewQuizService(h.client, content)
	h.auth = service.NewAuthService(users, service.AuthConfig{SigningKey: "test", TokenTTL: time.Hour, BcryptCost: bcrypt.MinCost})

	return h
}

func (h *harness) seen() []query.Key {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]query.Key(nil), h.invalidated...)
}

func (h *harness) resetSeen() {
	h.mu.Lock()
	h.invalidated = nil
	h.mu.Unlock()
}

// bridge wires the memstream into the cache the way the app does.
func (h *harness) bridge(t *testing.T) *realtime.Bridge {
	t.Helper()

	b := realtime.NewBridge(h.stream, service.NewInvalidator(h.client))
	t.Cleanup(b.Close)
	return b
}
