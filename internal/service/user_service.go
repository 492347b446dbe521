package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"user-manager/internal/domain"
	"user-manager/internal/repository"
)

var (
	// ErrUserNotFound indicates that no user matches the given id or username.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned when creating or renaming a user to an existing username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrWrongCredentials indicates that the submitted name does not match the stored one.
	ErrWrongCredentials = errors.New("wrong credentials")
)

// UserService describes user lifecycle operations.
type UserService interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	CheckLoginCredentials(ctx context.Context, username, name string) (*domain.User, error)
	UpdateStatus(ctx context.Context, user *domain.User, status domain.UserStatus) error
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) (*domain.User, error)
}

type userService struct {
	users       repository.UserRepository
	tokenSecret string
	tokenTTL    time.Duration
}

func NewUserService(users repository.UserRepository, tokenSecret string, tokenTTL time.Duration) UserService {
	return &userService{
		users:       users,
		tokenSecret: strings.TrimSpace(tokenSecret),
		tokenTTL:    tokenTTL,
	}
}

func (s *userService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

// CreateUser persists a new user. The caller is expected to have set
// CreationDate already; CreateUser assigns the id, the session token, and the
// initial ONLINE status.
func (s *userService) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	user.Username = strings.TrimSpace(user.Username)
	if user.Username == "" {
		return nil, errors.New("username is required")
	}
	if strings.TrimSpace(user.Name) == "" {
		return nil, errors.New("name is required")
	}

	token, err := s.mintToken(user.Username)
	if err != nil {
		return nil, fmt.Errorf("mint token: %w", err)
	}
	user.Token = token
	user.Status = domain.UserStatusOnline

	if _, err := s.users.Create(ctx, user); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "already exists") {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	return user, nil
}

// CheckLoginCredentials looks the user up by username and compares the
// submitted name against the stored one. The name field is the shared secret
// of this API; the comparison is verbatim and constant-time.
func (s *userService) CheckLoginCredentials(ctx context.Context, username, name string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(name), []byte(user.Name)) != 1 {
		return nil, ErrWrongCredentials
	}

	return user, nil
}

func (s *userService) UpdateStatus(ctx context.Context, user *domain.User, status domain.UserStatus) error {
	if user == nil {
		return ErrUserNotFound
	}
	if err := s.users.UpdateStatus(ctx, user.ID, status); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return ErrUserNotFound
		}
		return err
	}
	user.Status = status
	return nil
}

func (s *userService) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) UpdateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if user == nil {
		return nil, ErrUserNotFound
	}
	user.Username = strings.TrimSpace(user.Username)
	if user.Username == "" {
		return nil, errors.New("username is required")
	}

	if err := s.users.Update(ctx, user); err != nil {
		lower := strings.ToLower(err.Error())
		switch {
		case strings.Contains(lower, "already exists"):
			return nil, ErrUsernameTaken
		case strings.Contains(lower, "not found"):
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return user, nil
}

// mintToken issues the session token handed out at registration. It is a
// signed JWT but the API treats it as an opaque string and never rotates it.
func (s *userService) mintToken(username string) (string, error) {
	if s.tokenSecret == "" {
		return "", errors.New("token secret is not configured")
	}

	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:  username,
		ID:       uuid.NewString(),
		IssuedAt: jwt.NewNumericDate(now),
	}
	if s.tokenTTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.tokenTTL))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.tokenSecret))
}
