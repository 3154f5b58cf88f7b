package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/counselcms/server/internal/audit"
	"github.com/counselcms/server/internal/auth"
	"github.com/counselcms/server/internal/domain/ids"
	"github.com/counselcms/server/internal/validation"
	"github.com/rs/zerolog"
)

// DefaultRole is the role assigned when none is given.
const DefaultRole = string(auth.RoleEditor)

// CreateUserParams contains parameters for creating a new user
type CreateUserParams struct {
	Username string `json:"username" validate:"required,min=3,max=60,alphanum"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=admin editor viewer"`
}

// Service handles admin account management and credential checks.
type Service struct {
	repo        Repository
	auditLogger *audit.Logger
	logger      zerolog.Logger
	hash        func(string) (string, error)
	now         func() time.Time
}

// NewService creates a new user service instance
func NewService(repo Repository, auditLogger *audit.Logger, logger zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		auditLogger: auditLogger,
		logger:      logger.With().Str("component", "users").Logger(),
		hash:        auth.HashPassword,
		now:         time.Now,
	}
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// Create adds an account with a hashed password. actor names who performed
// the action in the audit log.
func (s *Service) Create(ctx context.Context, params CreateUserParams, actor string) (*User, error) {
	params.Username = strings.ToLower(strings.TrimSpace(params.Username))
	params.Email = strings.TrimSpace(params.Email)
	if params.Role == "" {
		params.Role = DefaultRole
	}
	if err := validation.Struct(params); err != nil {
		return nil, err
	}
	if err := auth.ValidatePassword(params.Password); err != nil {
		return nil, validation.NewFieldError("password", err.Error())
	}

	if _, err := s.repo.GetByUsername(ctx, params.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}

	hash, err := s.hash(params.Password)
	if err != nil {
		return nil, err
	}
	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate user id: %w", err)
	}
	user := &User{
		ID:           id,
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: hash,
		Role:         params.Role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.auditLogger.Log(audit.Entry{
		Action:       "user.created",
		AdminUser:    actor,
		ResourceType: "user",
		ResourceID:   user.ID,
		Details:      map[string]string{"username": user.Username, "role": user.Role},
	})
	s.logger.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user created")
	return user, nil
}

// Authenticate checks credentials and records the login time. Unknown users
// and wrong passwords return the same error.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.GetByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	now := s.now().UTC()
	if err := s.repo.TouchLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record login time")
	} else {
		user.LastLoginAt = &now
	}
	return user, nil
}

// ChangePassword replaces a user's password.
func (s *Service) ChangePassword(ctx context.Context, id, password, actor string) error {
	if err := auth.ValidatePassword(password); err != nil {
		return validation.NewFieldError("password", err.Error())
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}
	s.auditLogger.Log(audit.Entry{
		Action:       "user.password_changed",
		AdminUser:    actor,
		ResourceType: "user",
		ResourceID:   user.ID,
		Details:      map[string]string{"username": user.Username},
	})
	return nil
}

// ChangePasswordByUsername is ChangePassword keyed by username, for the CLI.
func (s *Service) ChangePasswordByUsername(ctx context.Context, username, password, actor string) error {
	user, err := s.repo.GetByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		return err
	}
	return s.ChangePassword(ctx, user.ID, password, actor)
}

// Delete removes an account. The last remaining admin cannot be deleted.
func (s *Service) Delete(ctx context.Context, id, actor string) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if auth.IsAdmin(user.Role) {
		count, err := s.repo.CountByRole(ctx, string(auth.RoleAdmin))
		if err != nil {
			return fmt.Errorf("count admins: %w", err)
		}
		if count <= 1 {
			return ErrLastAdmin
		}
	}
	if err := s.repo.Delete(ctx, user.ID); err != nil {
		return err
	}
	s.auditLogger.Log(audit.Entry{
		Action:       "user.deleted",
		AdminUser:    actor,
		ResourceType: "user",
		ResourceID:   user.ID,
		Details:      map[string]string{"username": user.Username},
	})
	return nil
}

// EnsureAdmin creates the bootstrap admin account when no admin exists yet.
// It does nothing when username or password is empty.
func (s *Service) EnsureAdmin(ctx context.Context, username, password, email string) (bool, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return false, nil
	}
	count, err := s.repo.CountByRole(ctx, string(auth.RoleAdmin))
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	_, err = s.Create(ctx, CreateUserParams{
		Username: username,
		Email:    email,
		Password: password,
		Role:     string(auth.RoleAdmin),
	}, "bootstrap")
	if err != nil {
		return false, err
	}
	return true, nil
}
