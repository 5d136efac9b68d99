package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ecobox-ge/ecobox-api/internal/domain"
	"github.com/ecobox-ge/ecobox-api/internal/pkg/jwthelper"
	"github.com/ecobox-ge/ecobox-api/internal/repository"
)

type AuthUserRepository interface {
	FindByID(ctx context.Context, id string) (domain.UserProfile, error)
	FindCredential(ctx context.Context, email string) (domain.Credential, error)
	Create(ctx context.Context, profile domain.UserProfile, passwordHash string) (domain.UserProfile, error)
}

type Session struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expiresAt"`
	User      domain.UserProfile `json:"user"`
}

type SessionEventType string

const (
	SessionSignedIn  SessionEventType = "SIGNED_IN"
	SessionSignedOut SessionEventType = "SIGNED_OUT"
	SessionRefreshed SessionEventType = "TOKEN_REFRESHED"
)

type SessionEvent struct {
	Type     SessionEventType
	Identity domain.Identity
}

type Registration struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	SchoolID  string
	ClassID   string
}

type AuthConfig struct {
	SigningKey string
	TokenTTL   time.Duration
	BcryptCost int
}

// AuthService is the session provider: it issues and checks tokens and
// tells listeners when the signed-in identity changes.
type AuthService struct {
	repo AuthUserRepository
	key  []byte
	ttl  time.Duration
	cost int
	now  func() time.Time

	mu        sync.Mutex
	revoked   map[string]time.Time
	listeners map[int]func(SessionEvent)
	nextID    int
}

func NewAuthService(repo AuthUserRepository, conf AuthConfig) *AuthService {
	if conf.TokenTTL <= 0 {
		conf.TokenTTL = 24 * time.Hour
	}
	if conf.BcryptCost == 0 {
		conf.BcryptCost = bcrypt.DefaultCost
	}

	return &AuthService{
		repo:      repo,
		key:       []byte(conf.SigningKey),
		ttl:       conf.TokenTTL,
		cost:      conf.BcryptCost,
		now:       time.Now,
		revoked:   map[string]time.Time{},
		listeners: map[int]func(SessionEvent){},
	}
}

// Login never reveals whether the email or the password was wrong.
func (s *AuthService) Login(ctx context.Context, email, password, userAgent string) (Session, error) {
	cred, err := s.repo.FindCredential(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return Session{}, &domain.AuthError{Err: domain.ErrInvalidCredentials}
		}
		return Session{}, &domain.AuthError{Err: fmt.Errorf("s.repo.FindCredential -> %w", err)}
	}

	if err = bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return Session{}, &domain.AuthError{Err: domain.ErrInvalidCredentials}
	}

	profile, err := s.repo.FindByID(ctx, cred.UserID)
	if err != nil {
		return Session{}, &domain.AuthError{Err: fmt.Errorf("s.repo.FindByID -> %w", err)}
	}

	return s.open(profile, userAgent, SessionSignedIn)
}

// Register creates a student account and signs it in.
func (s *AuthService) Register(ctx context.Context, reg Registration, userAgent string) (Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.cost)
	if err != nil {
		return Session{}, fmt.Errorf("bcrypt.GenerateFromPassword -> %w", err)
	}

	profile := domain.UserProfile{
		ID:        uuid.NewString(),
		Email:     strings.ToLower(reg.Email),
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
		Role:      domain.RoleStudent,
	}
	if reg.SchoolID != "" {
		profile.School = &domain.SchoolRef{ID: reg.SchoolID}
	}
	if reg.ClassID != "" {
		profile.Class = &domain.ClassRef{ID: reg.ClassID}
	}
	joined := s.now()
	profile.JoinedDate = &joined

	created, err := s.repo.Create(ctx, profile, string(hash))
	if err != nil {
		return Session{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	return s.open(created, userAgent, SessionSignedIn)
}

// CurrentSession resolves a bearer token to the identity it was issued for.
func (s *AuthService) CurrentSession(token string) (domain.Identity, bool) {
	claims, err := s.parse(token)
	if err != nil {
		return domain.Identity{}, false
	}
	return claims.Identity(), true
}

// Refresh swaps a still valid token for a new one and revokes the old.
func (s *AuthService) Refresh(ctx context.Context, token, userAgent string) (Session, error) {
	claims, err := s.parse(token)
	if err != nil {
		return Session{}, &domain.AuthError{Err: err}
	}

	profile, err := s.repo.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return Session{}, &domain.AuthError{Err: domain.ErrSessionExpired}
		}
		return Session{}, &domain.AuthError{Err: fmt.Errorf("s.repo.FindByID -> %w", err)}
	}

	s.revoke(claims.ID, claims.ExpiresAt.Time)
	return s.open(profile, userAgent, SessionRefreshed)
}

func (s *AuthService) Logout(token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return &domain.AuthError{Err: err}
	}

	s.revoke(claims.ID, claims.ExpiresAt.Time)
	s.emit(SessionEvent{Type: SessionSignedOut, Identity: claims.Identity()})

	return nil
}

// OnSessionChange registers fn for sign-in, sign-out and refresh events.
func (s *AuthService) OnSessionChange(fn func(SessionEvent)) (cancel func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *AuthService) open(profile domain.UserProfile, userAgent string, ev SessionEventType) (Session, error) {
	identity := domain.Identity{UserID: profile.ID, Email: profile.Email, Role: profile.Role}
	issued := s.now()
	expires := issued.Add(s.ttl)

	token, err := jwthelper.GenerateToken(s.key, identity, userAgent, issued, expires)
	if err != nil {
		return Session{}, fmt.Errorf("jwthelper.GenerateToken -> %w", err)
	}

	s.emit(SessionEvent{Type: ev, Identity: identity})

	return Session{Token: token, ExpiresAt: expires, User: profile}, nil
}

func (s *AuthService) parse(token string) (*jwthelper.Claims, error) {
	claims, err := jwthelper.ParseToken(s.key, token, s.now())
	if err != nil {
		if errors.Is(err, jwthelper.ErrTokenExpired) {
			return nil, domain.ErrSessionExpired
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrSessionExpired, err)
	}

	s.mu.Lock()
	_, revoked := s.revoked[claims.ID]
	s.mu.Unlock()
	if revoked {
		return nil, domain.ErrSessionExpired
	}

	return claims, nil
}

// revoke remembers a token id until it would have expired anyway.
func (s *AuthService) revoke(id string, until time.Time) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, k)
		}
	}
	s.revoked[id] = until
}

func (s *AuthService) emit(ev SessionEvent) {
	s.mu.Lock()
	listeners := make([]func(SessionEvent), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	zap.L().Debug("session changed", zap.String("event", string(ev.Type)), zap.String("user_id", ev.Identity.UserID))
	for _, fn := range listeners {
		fn(ev)
	}
}
