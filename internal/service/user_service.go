package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"harmonia/internal/domain"
	"harmonia/internal/repository"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email taken")
	ErrUsernameTaken      = errors.New("username taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("weak password")
	ErrRateLimited        = errors.New("rate limited")
)

const minPasswordLength = 8

// UserService coordina reglas de negocio para usuarios.
type UserService struct {
	logger       *zap.Logger
	users        repository.UserRepository
	loginLimiter LoginRateLimiter
}

func NewUserService(logger *zap.Logger, users repository.UserRepository, loginLimiter LoginRateLimiter) *UserService {
	if loginLimiter == nil {
		loginLimiter = NewLoginRateLimiter(time.Minute, 5)
	}
	return &UserService{
		logger:       logger,
		users:        users,
		loginLimiter: loginLimiter,
	}
}

type RegisterInput struct {
	Email            string
	Username         string
	Password         string
	Gender           string
	PreferenceTarget string
}

func (s *UserService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	emailAddr := normalizeEmail(input.Email)
	username := strings.TrimSpace(input.Username)
	password := strings.TrimSpace(input.Password)

	if emailAddr == "" || !strings.Contains(emailAddr, "@") {
		return domain.User{}, ErrInvalidEmail
	}
	if username == "" {
		username = emailAddr[:strings.Index(emailAddr, "@")]
	}
	if len(password) < minPasswordLength {
		return domain.User{}, ErrWeakPassword
	}

	if _, err := s.users.GetByEmail(ctx, emailAddr); err == nil {
		return domain.User{}, ErrEmailTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return domain.User{}, ErrUsernameTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:               uuid.NewString(),
		Email:            emailAddr,
		Username:         username,
		PasswordHash:     string(hashBytes),
		Gender:           strings.TrimSpace(input.Gender),
		PreferenceTarget: strings.TrimSpace(input.PreferenceTarget),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, err
	}

	if s.logger != nil {
		s.logger.Info("user registered", zap.String("user_id", user.ID))
	}
	return user, nil
}

func (s *UserService) Authenticate(ctx context.Context, emailAddr, password string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	emailAddr = normalizeEmail(emailAddr)
	password = strings.TrimSpace(password)
	if emailAddr == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}

	if s.loginLimiter != nil && !s.loginLimiter.Allow(emailAddr) {
		return domain.User{}, ErrRateLimited
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if user.PasswordHash == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
