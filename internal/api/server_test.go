package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ecobox-ge/ecobox-api/internal/api"
	v1 "github.com/ecobox-ge/ecobox-api/internal/api/handler/v1"
	"github.com/ecobox-ge/ecobox-api/internal/config"
	"github.com/ecobox-ge/ecobox-api/internal/domain"
	"github.com/ecobox-ge/ecobox-api/internal/repository/fixture"
	"github.com/ecobox-ge/ecobox-api/internal/realtime/memstream"
	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
)

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		API: &config.APIConfig{
			Environment:   "test",
			Port:          "0",
			BaseURL:       "localhost",
			JWTSigningKey: "test-key",
			TokenTTL:      time.Hour,
		},
		Gin:      &config.GinConfig{Mode: gin.TestMode},
		Postgres: &config.PostgresConfig{},
		Store:    &config.StoreConfig{Driver: config.StoreDriverFixture},
		Cache: &config.CacheConfig{
			DefaultStaleTime: time.Minute,
			FetchTimeout:     5 * time.Second,
			RetryAttempts:    1,
			RetryBackoff:     time.Millisecond,
		},
		Realtime:     &config.RealtimeConfig{},
		Leaderboard:  &config.LeaderboardConfig{Limit: 20},
		Gamification: &config.GamificationConfig{PapersPerLevel: 100, DeviceStaleThreshold: 30 * time.Minute},
	}
}

type testServer struct {
	*api.Server
	store *fixture.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	stream := memstream.New()
	store, err := fixture.NewSeeded(stream, time.Now().UTC().Truncate(time.Second), bcrypt.MinCost)
	require.NoError(t, err)

	s, err := api.NewServer(testConfig(), store, stream, api.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	t.Cleanup(s.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s.Start(ctx)

	return &testServer{Server: s, store: store}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": fixture.DemoPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res.Token
}

type envelope[T any] struct {
	Data      T          `json:"data"`
	IsLoading bool       `json:"isLoading"`
	IsError   bool       `json:"isError"`
	Error     string     `json:"error"`
	UpdatedAt *time.Time `json:"updatedAt"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const (
	student = "nika.kartvelishvili@student.edu.ge"
	admin   = "admin@ecobox.ge"
)

func TestHealthcheck(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuth(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		path string
		body any
		want int
	}{
		{"wrong password", "/api/v1/auth/login", map[string]string{"email": student, "password": "wrong-pass1"}, http.StatusUnauthorized},
		{"unknown email", "/api/v1/auth/login", map[string]string{"email": "ghost@edu.ge", "password": "wrong-pass1"}, http.StatusUnauthorized},
		{"malformed email", "/api/v1/auth/login", map[string]string{"email": "ghost", "password": "x"}, http.StatusBadRequest},
		{"weak password", "/api/v1/auth/register", map[string]string{
			"email": "new@edu.ge", "password": "abcdefgh", "confirm_password": "abcdefgh", "first_name": "a", "last_name": "b",
		}, http.StatusBadRequest},
		{"password mismatch", "/api/v1/auth/register", map[string]string{
			"email": "new@edu.ge", "password": "abcdefg1", "confirm_password": "abcdefg2", "first_name": "a", "last_name": "b",
		}, http.StatusBadRequest},
		{"email taken", "/api/v1/auth/register", map[string]string{
			"email": student, "password": "abcdefg1", "confirm_password": "abcdefg1", "first_name": "a", "last_name": "b",
		}, http.StatusConflict},
		{"registered", "/api/v1/auth/register", map[string]string{
			"email": "new@edu.ge", "password": "abcdefg1", "confirm_password": "abcdefg1", "first_name": "a", "last_name": "b", "school_id": "2",
		}, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, tt.path, "", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, student)

	rec := s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[struct {
		Identity domain.Identity    `json:"identity"`
		Profile  domain.UserProfile `json:"profile"`
	}](t, rec)
	assert.Equal(t, "user1", me.Identity.UserID)
	assert.Equal(t, 156, me.Profile.TotalPapers)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/refresh", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	refreshed := decode[struct {
		Token string `json:"token"`
	}](t, rec).Token

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodPost, "/api/v1/auth/logout", refreshed, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/v1/auth/me", refreshed, nil).Code)
}

func TestReadsNeedAToken(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/v1/statistics", "/api/v1/me/profile", "/api/v1/leaderboard"} {
		assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, path, "", nil).Code, path)
		assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, path, "garbage", nil).Code, path)
	}
}

func TestDashboardReads(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, student)

	rec := s.do(t, http.MethodGet, "/api/v1/statistics", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[envelope[domain.Statistics]](t, rec)
	assert.False(t, stats.IsError)
	assert.NotNil(t, stats.UpdatedAt)
	assert.Equal(t, 156, stats.Data.TotalPapers)
	assert.Equal(t, 5, stats.Data.TotalSchools)

	rec = s.do(t, http.MethodGet, "/api/v1/leaderboard?type=school", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	board := decode[envelope[[]domain.LeaderboardEntry]](t, rec)
	require.Len(t, board.Data, 5)
	assert.Equal(t, "1", board.Data[0].ID)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/v1/leaderboard?type=galaxy", token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/v1/eco-tips?category=space", token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/v1/statistics?refetch=maybe", token, nil).Code)

	rec = s.do(t, http.MethodGet, "/api/v1/eco-tips?category=water&refetch=true", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tips := decode[envelope[[]domain.EcoTip]](t, rec)
	require.Len(t, tips.Data, 1)
	assert.Equal(t, "tip3", tips.Data[0].ID)

	rec = s.do(t, http.MethodGet, "/api/v1/me/notifications", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[envelope[[]domain.Notification]](t, rec).Data, 2)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/users/nobody", token, nil).Code)
}

func TestSubmitPapers(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, student)

	// Warm the profile so the submission has something to invalidate.
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/me/profile", token, nil).Code)

	rec := s.do(t, http.MethodPost, "/api/v1/submissions", token, map[string]any{"ecoboxId": "eco1", "papersCount": 20})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[struct {
		Submission domain.PaperSubmission `json:"submission"`
		Impact     struct {
			SavedTrees float64 `json:"savedTrees"`
		} `json:"impact"`
	}](t, rec)
	assert.Equal(t, "user1", res.Submission.UserID)
	assert.Equal(t, 20, res.Submission.PapersCount)
	assert.InDelta(t, 0.2, res.Impact.SavedTrees, 0.0001)

	rec = s.do(t, http.MethodGet, "/api/v1/me/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 176, decode[envelope[domain.UserProfile]](t, rec).Data.TotalPapers)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"zero papers", map[string]any{"ecoboxId": "eco1", "papersCount": 0}, http.StatusBadRequest},
		{"someone else", map[string]any{"userId": "s1", "ecoboxId": "eco1", "papersCount": 3}, http.StatusForbidden},
		{"unknown device", map[string]any{"ecoboxId": "eco99", "papersCount": 3}, http.StatusBadRequest},
		{"missing device", map[string]any{"papersCount": 3}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/v1/submissions", token, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestNotificationsAndChallenges(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, student)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodPatch, "/api/v1/me/notifications/n1/read", token, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPatch, "/api/v1/me/notifications/n404/read", token, nil).Code)

	other := s.login(t, "ana.tovlidze@student.edu.ge")
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPatch, "/api/v1/me/notifications/n2/read", other, nil).Code,
		"another user's notification looks missing")

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodPost, "/api/v1/challenges/ch2/join", token, nil).Code)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/api/v1/challenges/ch2/join", token, nil).Code)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/api/v1/challenges/ch3/join", token, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/api/v1/challenges/ch9/join", token, nil).Code)

	rec := s.do(t, http.MethodGet, "/api/v1/me/challenges", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[envelope[[]domain.UserChallenge]](t, rec).Data, 2)
}

func TestAdminSnapshot(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusForbidden,
		s.do(t, http.MethodPost, "/api/v1/admin/leaderboard/snapshots", s.login(t, student), nil).Code)

	token := s.login(t, admin)
	assert.Equal(t, http.StatusBadRequest,
		s.do(t, http.MethodPost, "/api/v1/admin/leaderboard/snapshots", token, map[string]string{"board": "galaxy"}).Code)

	rec := s.do(t, http.MethodPost, "/api/v1/admin/leaderboard/snapshots", token, map[string]string{"board": "school"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	one := decode[struct {
		Snapshots []domain.Snapshot `json:"snapshots"`
	}](t, rec)
	require.Len(t, one.Snapshots, 1)
	assert.Equal(t, 1, one.Snapshots[0].Ranks["1"])

	rec = s.do(t, http.MethodPost, "/api/v1/admin/leaderboard/snapshots", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Len(t, decode[struct {
		Snapshots []domain.Snapshot `json:"snapshots"`
	}](t, rec).Snapshots, 3)
}

func TestRealtimeSocket(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, student)

	srv := httptest.NewServer(s.Router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/realtime?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	next := func() v1.Message {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
		var m v1.Message
		require.NoError(t, conn.ReadJSON(&m))
		return m
	}
	until := func(match func(v1.Message) bool) v1.Message {
		t.Helper()
		for {
			if m := next(); match(m) {
				return m
			}
		}
	}

	status := until(func(m v1.Message) bool { return m.Type == v1.MessageStatus })
	assert.Equal(t, v1.MessageStatus, status.Type)
	assert.Equal(t, "open", status.State)
	assert.Equal(t, "user1", status.UserID)

	rec := s.do(t, http.MethodPost, "/api/v1/submissions", token, map[string]any{"ecoboxId": "eco2", "papersCount": 4})
	require.Equal(t, http.StatusCreated, rec.Code)
	until(func(m v1.Message) bool { return m.Type == v1.MessageInvalidate && m.Key == "user-profile:user1" })

	_, err = s.store.Insert(context.Background(), rowstore.TableNotifications, rowstore.Row{
		"user_id": "user1", "type": "system", "title": "hi", "title_georgian": "hi", "message": "m", "message_georgian": "m",
	})
	require.NoError(t, err)
	note := until(func(m v1.Message) bool { return m.Type == v1.MessageNotification })
	require.NotNil(t, note.Change)
	assert.Equal(t, "user1", note.Change.New["user_id"])

	// Switching users moves the notification subscription.
	require.NoError(t, conn.WriteJSON(v1.Message{Type: v1.MessageAuth, Token: s.login(t, "ana.tovlidze@student.edu.ge")}))
	switched := until(func(m v1.Message) bool { return m.Type == v1.MessageStatus })
	assert.Equal(t, "s1", switched.UserID)

	require.NoError(t, conn.WriteJSON(v1.Message{Type: v1.MessageAuth, Token: "garbage"}))
	assert.Equal(t, v1.MessageError, until(func(m v1.Message) bool { return m.Type != v1.MessageInvalidate }).Type)
}

func TestQuiz(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, student)

	rec := s.do(t, http.MethodGet, "/api/v1/quiz/questions", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "correctAnswer")
	assert.Len(t, decode[envelope[[]domain.QuizQuestion]](t, rec).Data, 5)

	rec = s.do(t, http.MethodGet, "/api/v1/quiz/questions?category=energy", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[envelope[[]domain.QuizQuestion]](t, rec).Data, 1)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/v1/quiz/questions?category=space", token, nil).Code)

	answers := []map[string]any{
		{"questionId": "q1", "selected": 2},
		{"questionId": "q2", "selected": 1},
		{"questionId": "q3", "selected": 2},
		{"questionId": "q4", "selected": 2},
		{"questionId": "q5", "selected": 3},
	}
	rec = s.do(t, http.MethodPost, "/api/v1/quiz/answers", token, map[string]any{"answers": answers})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[domain.QuizResult](t, rec)
	assert.Equal(t, 4, res.Correct)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, domain.BandExcellent, res.Band)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"no answers", map[string]any{"answers": []any{}}},
		{"unknown question", map[string]any{"answers": []map[string]any{{"questionId": "q99", "selected": 0}}}},
		{"option out of range", map[string]any{"answers": []map[string]any{{"questionId": "q1", "selected": 7}}}},
		{"answered twice", map[string]any{"answers": []map[string]any{{"questionId": "q1", "selected": 0}, {"questionId": "q1", "selected": 2}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/v1/quiz/answers", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/api/v1/quiz/answers", "", map[string]any{"answers": answers}).Code)
}
