package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bizdesk/internal/apperrors"
	"bizdesk/internal/config"
	"bizdesk/internal/models"
	"bizdesk/internal/repositories"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UpdateProfileInput is a partial patch: nil fields are left untouched.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
}

// UserService covers the self-service account operations.
type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.UserView, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*models.UserView, error)
	// ChangePassword requires the current password: a mismatch is treated as
	// unauthorized, not a validation error.
	ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error
}

type userService struct {
	userRepo    repositories.UserRepository
	companyRepo repositories.CompanyRepository
	tokenCfg    config.TokenConfig
}

// NewUserService creates a new user service.
func NewUserService(
	userRepo repositories.UserRepository,
	companyRepo repositories.CompanyRepository,
	tokenCfg config.TokenConfig,
) UserService {
	return &userService{
		userRepo:    userRepo,
		companyRepo: companyRepo,
		tokenCfg:    tokenCfg,
	}
}

func (s *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.UserView, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, user)
}

func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*models.UserView, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.Phone != nil {
		user.Phone = input.Phone
	}
	user.UpdatedAt = time.Now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return s.view(ctx, user)
}

func (s *userService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return fmt.Errorf("current password is incorrect: %w", apperrors.ErrUnauthorized)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.tokenCfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = string(passwordHash)
	user.UpdatedAt = time.Now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

func (s *userService) view(ctx context.Context, user *models.User) (*models.UserView, error) {
	var company *models.Company
	if user.CompanyID != nil {
		var err error
		company, err = s.companyRepo.GetByID(ctx, *user.CompanyID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("failed to load company: %w", err)
		}
	}
	view := models.NewUserView(user, company)
	return &view, nil
}
