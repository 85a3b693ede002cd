package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/baharkarakas/imagegen-backend/internal/apperr"
	"github.com/baharkarakas/imagegen-backend/internal/auth"
	"github.com/baharkarakas/imagegen-backend/internal/metrics"
	"github.com/baharkarakas/imagegen-backend/internal/models"
	repo "github.com/baharkarakas/imagegen-backend/internal/repository"
)

const (
	invalidCredentials = "Invalid email or password"
	minUsernameLength  = 3
	maxUsernameLength  = 32
	passwordTooLong    = "Password must be at most 72 bytes"
)

// Session is a user together with a freshly issued token.
type Session struct {
	User      models.User
	Token     string
	ExpiresAt time.Time
}

type UserService struct {
	users  repo.Users
	audit  repo.AuditLogs
	tokens *auth.TokenManager
}

func NewUserService(u repo.Users, a repo.AuditLogs, tm *auth.TokenManager) *UserService {
	return &UserService{users: u, audit: a, tokens: tm}
}

// Register creates a user with role user. A taken username or email is a
// Conflict.
func (s *UserService) Register(ctx context.Context, username, email, password string) (Session, error) {
	username, email = strings.TrimSpace(username), strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return Session{}, apperr.New(apperr.ErrInvalidArgument, "Please provide username, email and password")
	}
	if n := utf8.RuneCountInString(username); n < minUsernameLength || n > maxUsernameLength {
		return Session{}, apperr.New(apperr.ErrInvalidArgument, "Username must be 3 to 32 characters")
	}
	if len(password) > auth.MaxPasswordBytes {
		return Session{}, apperr.New(apperr.ErrInvalidArgument, passwordTooLong)
	}

	taken, err := s.users.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return Session{}, apperr.Wrap(apperr.ErrUnavailable, "could not check existing users", err)
	}
	if taken {
		return Session{}, apperr.New(apperr.ErrConflict, "User already exists")
	}

	hash, err := auth.HashPassword(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return Session{}, apperr.Wrap(apperr.ErrInvalidArgument, passwordTooLong, err)
	}
	if err != nil {
		return Session{}, apperr.Wrap(apperr.ErrInternal, "could not hash password", err)
	}
	u, err := s.users.Create(ctx, models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	})
	if err != nil {
		return Session{}, storeErr(err, "could not create user")
	}

	metrics.UsersRegistered.Inc()
	writeAudit(ctx, s.audit, models.AuditLog{
		EntityType: "user",
		EntityID:   u.ID,
		ActorID:    &u.ID,
		Action:     models.AuditUserRegistered,
	})
	return s.session(u)
}

func (s *UserService) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			metrics.AuthFailures.WithLabelValues("unknown_email").Inc()
			return Session{}, apperr.New(apperr.ErrUnauthorized, invalidCredentials)
		}
		return Session{}, apperr.Wrap(apperr.ErrUnavailable, "could not look up user", err)
	}
	if err := auth.VerifyPassword(password, u.PasswordHash); err != nil {
		metrics.AuthFailures.WithLabelValues("bad_password").Inc()
		return Session{}, apperr.New(apperr.ErrUnauthorized, invalidCredentials)
	}
	return s.session(u)
}

func (s *UserService) Profile(ctx context.Context, id string) (models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return models.User{}, storeErr(err, "could not load user")
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, storeErr(err, "could not list users")
	}
	return users, nil
}

func (s *UserService) session(u models.User) (Session, error) {
	token, exp, err := s.tokens.Issue(u.ID)
	if err != nil {
		return Session{}, apperr.Wrap(apperr.ErrInternal, "could not issue token", err)
	}
	return Session{User: u, Token: token, ExpiresAt: exp}, nil
}

// writeAudit records l and only logs on failure.
func writeAudit(ctx context.Context, logs repo.AuditLogs, l models.AuditLog) {
	if logs == nil {
		return
	}
	if err := logs.Create(ctx, l); err != nil {
		slog.WarnContext(ctx, "audit write failed", "action", l.Action, "entity_id", l.EntityID, "err", err)
	}
}
