package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/avoronkov/authcore/internal/logger"
	"github.com/avoronkov/authcore/internal/model"
	"github.com/avoronkov/authcore/internal/password"
)

// Auth handles user registration and credential verification. Session
// issuance is delegated to the Session service.
type Auth struct {
	users    model.UserStore
	sessions *Session
	hasher   *password.Hasher
	logger   *logger.Logger
}

func NewAuth(users model.UserStore, sessions *Session, hasher *password.Hasher, logger *logger.Logger) *Auth {
	return &Auth{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		logger:   logger,
	}
}

// Register creates a user with an argon2id password hash. Username and email
// must both be unused.
func (a *Auth) Register(ctx context.Context, username, email, plainPassword string) (model.User, error) {
	a.logger.Debug("Auth service: starting user registration",
		"username", username)

	existing, err := a.users.GetByUsernameOrEmail(ctx, username, email)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		a.logger.Error("Auth service: failed to check existing user",
			"username", username,
			"error", err.Error())
		return model.User{}, fmt.Errorf("failed to get user by username or email: %w", err)
	}
	if err == nil && existing.ID != uuid.Nil {
		a.logger.Info("Auth service: user already exists",
			"username", username)
		return model.User{}, model.ErrUserExists
	}

	hash, err := a.hasher.Hash(plainPassword)
	if err != nil {
		a.logger.Error("Auth service: failed to hash password",
			"username", username,
			"error", err.Error())
		return model.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := a.users.Create(ctx, model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		a.logger.Error("Auth service: failed to create user",
			"username", username,
			"error", err.Error())
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	a.logger.Info("Auth service: user registered",
		"username", username,
		"user_id", user.ID)

	return user, nil
}

// Login verifies the password and issues a token pair through the session
// service. The presented access token, if any, causes rejection there.
func (a *Auth) Login(ctx context.Context, username, plainPassword, presentedAccess string) (model.TokenPair, error) {
	a.logger.Debug("Auth service: starting user login",
		"username", username)

	user, err := a.users.GetByUsername(ctx, username)
	if errors.Is(err, model.ErrNotFound) {
		return model.TokenPair{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to get user by username: %w", err)
	}

	ok, err := a.hasher.Verify(plainPassword, user.PasswordHash)
	if err != nil {
		a.logger.Error("Auth service: failed to verify password",
			"username", username,
			"error", err.Error())
		return model.TokenPair{}, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		a.logger.Info("Auth service: invalid credentials",
			"username", username)
		return model.TokenPair{}, model.ErrInvalidCredentials
	}

	pair, err := a.sessions.Login(ctx, user.Identity(), presentedAccess)
	if err != nil {
		return model.TokenPair{}, err
	}

	a.logger.Info("Auth service: user logged in",
		"username", username,
		"user_id", user.ID)

	return pair, nil
}

// ListUsers returns a page of users for the admin surface.
func (a *Auth) ListUsers(ctx context.Context, page, pageSize int) ([]model.User, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	users, err := a.users.List(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
