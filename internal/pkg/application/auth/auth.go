package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smartfarm/farm-mgmt/internal/pkg/infrastructure/repositories/database"
	"github.com/smartfarm/farm-mgmt/pkg/types"
)

var ErrUsernameTaken = fmt.Errorf("username already exists")
var ErrInvalidCredentials = fmt.Errorf("invalid credentials")
var ErrUserNotFound = fmt.Errorf("user not found")

type Service interface {
	Register(ctx context.Context, username, password, userType string) (types.TokenResponse, error)
	Login(ctx context.Context, username, password string) (types.TokenResponse, error)

	// Refresh validates a refresh token and issues a new access token
	// whose role reflects the user's current stored role, not the one
	// captured at issue time. The refresh token is not rotated.
	Refresh(ctx context.Context, refreshToken string) (string, error)

	CheckUsername(ctx context.Context, username string) (bool, error)
	UpdateProfile(ctx context.Context, username, displayName, email string) error

	Tokens() *Tokens
}

type service struct {
	users  database.UserRepository
	tokens *Tokens
}

func New(users database.UserRepository, tokens *Tokens) Service {
	return &service{users: users, tokens: tokens}
}

func (s *service) Tokens() *Tokens {
	return s.tokens
}

func (s *service) Register(ctx context.Context, username, password, userType string) (types.TokenResponse, error) {
	if username == "" || password == "" {
		return types.TokenResponse{}, fmt.Errorf("username and password are required")
	}
	if userType == "" {
		userType = "user"
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return types.TokenResponse{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := database.User{
		Username:  username,
		Password:  hashed,
		UserType:  userType,
		CreatedAt: time.Now(),
	}

	err = s.users.Create(ctx, &user)
	if err != nil {
		if errors.Is(err, database.ErrUserAlreadyExists) {
			return types.TokenResponse{}, ErrUsernameTaken
		}
		return types.TokenResponse{}, err
	}

	access, refresh, err := s.tokens.Issue(user.UserID, user.Username, user.UserType)
	if err != nil {
		return types.TokenResponse{}, err
	}

	return types.TokenResponse{
		Success:      true,
		AccessToken:  access,
		RefreshToken: refresh,
		User: &types.User{
			UserID:   user.UserID,
			Username: user.Username,
			UserType: user.UserType,
		},
		Message: "User registered successfully",
	}, nil
}

func (s *service) Login(ctx context.Context, username, password string) (types.TokenResponse, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			// Same error as a bad password, so the response does not
			// leak which usernames exist.
			return types.TokenResponse{}, ErrInvalidCredentials
		}
		return types.TokenResponse{}, err
	}

	if !VerifyPassword(password, user.Password) {
		return types.TokenResponse{}, ErrInvalidCredentials
	}

	access, refresh, err := s.tokens.Issue(user.UserID, user.Username, user.UserType)
	if err != nil {
		return types.TokenResponse{}, err
	}

	return types.TokenResponse{
		Success:      true,
		AccessToken:  access,
		RefreshToken: refresh,
		User: &types.User{
			UserID:   user.UserID,
			Username: user.Username,
			UserType: user.UserType,
		},
	}, nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.Verify(refreshToken, KindRefresh)
	if err != nil {
		return "", err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	access, _, err := s.tokens.Issue(user.UserID, user.Username, user.UserType)
	if err != nil {
		return "", err
	}

	return access, nil
}

func (s *service) CheckUsername(ctx context.Context, username string) (bool, error) {
	return s.users.Exists(ctx, username)
}

func (s *service) UpdateProfile(ctx context.Context, username, displayName, email string) error {
	err := s.users.UpdateProfile(ctx, username, displayName, email)
	if errors.Is(err, database.ErrUserNotFound) {
		return ErrUserNotFound
	}
	return err
}
