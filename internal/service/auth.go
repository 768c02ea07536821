package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/NhaLeTruc/todo-sync/internal/model"
	"github.com/NhaLeTruc/todo-sync/internal/repo"
)

const (
	minPasswordLength = 8
	defaultTokenTTL   = 7 * 24 * time.Hour
)

type AuthService struct {
	users    repo.UserRepository
	logger   *zap.Logger
	tokenTTL time.Duration
	cost     int
	now      func() time.Time
}

type AuthOption func(*AuthService)

// WithBcryptCost overrides bcrypt.DefaultCost; tests use bcrypt.MinCost.
func WithBcryptCost(cost int) AuthOption {
	return func(s *AuthService) { s.cost = cost }
}

func WithTokenTTL(ttl time.Duration) AuthOption {
	return func(s *AuthService) { s.tokenTTL = ttl }
}

func NewAuthService(users repo.UserRepository, logger *zap.Logger, opts ...AuthOption) *AuthService {
	s := &AuthService{
		users:    users,
		logger:   logger,
		tokenTTL: defaultTokenTTL,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return model.User{}, err
	}
	if len(req.Password) < minPasswordLength {
		return model.User{}, invalid("password must be at least %d characters", minPasswordLength)
	}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		req.FullName = &name
		if name == "" {
			req.FullName = nil
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return model.User{}, err
	}
	u, err := s.users.Create(ctx, email, string(hash), req.FullName)
	if err != nil {
		return u, err
	}
	s.logger.Info("user registered", zap.Int64("user_id", u.ID))
	return u, nil
}

// Login issues a new opaque bearer token.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.LoginResponse, error) {
	u, hash, err := s.users.ByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, repo.ErrorNotFound) {
		return model.LoginResponse{}, ErrUnauthorized
	}
	if err != nil {
		return model.LoginResponse{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		return model.LoginResponse{}, ErrUnauthorized
	}
	if !u.IsActive {
		return model.LoginResponse{}, ErrForbidden
	}

	token := uuid.NewString()
	if err := s.users.CreateToken(ctx, token, u.ID, s.now().Add(s.tokenTTL)); err != nil {
		return model.LoginResponse{}, err
	}
	if err := s.users.TouchLogin(ctx, u.ID); err != nil {
		s.logger.Warn("failed to record login", zap.Int64("user_id", u.ID), zap.Error(err))
	}
	return model.LoginResponse{Token: token, Email: u.Email, FullName: u.FullName, UserID: u.ID}, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.users.DeleteToken(ctx, token)
}

// Authenticate resolves a bearer token to a user id.
func (s *AuthService) Authenticate(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrUnauthorized
	}
	id, err := s.users.UserByToken(ctx, token)
	if errors.Is(err, repo.ErrorNotFound) {
		return 0, ErrUnauthorized
	}
	return id, err
}

func (s *AuthService) Me(ctx context.Context, userID int64) (model.User, error) {
	return s.users.Get(ctx, userID)
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Name != "" {
		return "", invalid("invalid email address")
	}
	return strings.ToLower(addr.Address), nil
}
