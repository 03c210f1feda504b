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

// UpdateCompanyInput is a partial patch: nil fields are left untouched.
type UpdateCompanyInput struct {
	Name        *string
	INN         *string
	Description *string
	Address     *string
}

// InvitationResult reports the outcome of an invite. Token is the raw
// invitation token for delivery; it is empty when the address already
// belongs to the company.
type InvitationResult struct {
	Message string
	Token   string
}

// InvitationStatus is the public view of an outstanding invitation.
type InvitationStatus struct {
	Valid   bool                `json:"valid"`
	Email   string              `json:"email"`
	Company *models.CompanyView `json:"company"`
}

// AcceptInvitationInput completes a dormant employee account.
type AcceptInvitationInput struct {
	Token     string
	FirstName string
	LastName  string
	Password  string
}

// CompanyService manages company data and the employee membership lifecycle.
type CompanyService interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateCompanyInput) (*models.Company, error)
	InviteEmployee(ctx context.Context, companyID uuid.UUID, email string) (*InvitationResult, error)
	GetEmployees(ctx context.Context, companyID uuid.UUID) ([]models.EmployeeView, error)
	RemoveEmployee(ctx context.Context, companyID, employeeID uuid.UUID) error
	CheckInvitation(ctx context.Context, token string) (*InvitationStatus, error)
	AcceptInvitation(ctx context.Context, input AcceptInvitationInput) (*models.UserView, error)
}

type companyService struct {
	userRepo    repositories.UserRepository
	companyRepo repositories.CompanyRepository
	tokens      *TokenService
	tokenCfg    config.TokenConfig
}

// NewCompanyService creates a new company service.
func NewCompanyService(
	userRepo repositories.UserRepository,
	companyRepo repositories.CompanyRepository,
	tokens *TokenService,
	tokenCfg config.TokenConfig,
) CompanyService {
	return &companyService{
		userRepo:    userRepo,
		companyRepo: companyRepo,
		tokens:      tokens,
		tokenCfg:    tokenCfg,
	}
}

func (s *companyService) GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	return s.companyRepo.GetByID(ctx, id)
}

func (s *companyService) Update(ctx context.Context, id uuid.UUID, input UpdateCompanyInput) (*models.Company, error) {
	company, err := s.companyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		company.Name = *input.Name
	}
	if input.INN != nil {
		company.INN = input.INN
	}
	if input.Description != nil {
		company.Description = input.Description
	}
	if input.Address != nil {
		company.Address = input.Address
	}
	company.UpdatedAt = time.Now()

	if err := s.companyRepo.Update(ctx, company); err != nil {
		return nil, fmt.Errorf("failed to update company: %w", err)
	}
	return company, nil
}

// InviteEmployee attaches an invitation to the address. Inviting an address
// that already belongs to the company succeeds without issuing a new token;
// an address bound to another company is a conflict. Unknown addresses get a
// dormant account activated on acceptance.
func (s *companyService) InviteEmployee(ctx context.Context, companyID uuid.UUID, email string) (*InvitationResult, error) {
	if _, err := s.companyRepo.GetByID(ctx, companyID); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up invitee: %w", err)
	}

	if existing != nil {
		if existing.CompanyID != nil && *existing.CompanyID != companyID {
			return nil, fmt.Errorf("user is already attached to another company: %w", apperrors.ErrConflict)
		}
		if existing.CompanyID != nil && existing.MembershipStatus() == models.MembershipActiveEmployee {
			return &InvitationResult{Message: "user is already an employee of the company"}, nil
		}
	}

	raw, hash, err := s.tokens.NewOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invitation token: %w", err)
	}
	expiresAt := time.Now().Add(s.tokenCfg.InvitationTTL)

	if existing != nil {
		// Re-inviting overwrites any stale token.
		existing.Invite(companyID, hash, expiresAt)
		existing.UpdatedAt = time.Now()
		if err := s.userRepo.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to update invitee: %w", err)
		}
	} else {
		now := time.Now()
		invitee := &models.User{
			ID:        uuid.New(),
			Email:     email,
			CreatedAt: now,
			UpdatedAt: now,
		}
		invitee.Invite(companyID, hash, expiresAt)
		// A concurrent registration for the same email loses the unique
		// index race and surfaces here as a conflict.
		if err := s.userRepo.Create(ctx, invitee); err != nil {
			return nil, fmt.Errorf("failed to create invitee: %w", err)
		}
	}

	return &InvitationResult{
		Message: fmt.Sprintf("invitation sent to %s", email),
		Token:   raw,
	}, nil
}

func (s *companyService) GetEmployees(ctx context.Context, companyID uuid.UUID) ([]models.EmployeeView, error) {
	if _, err := s.companyRepo.GetByID(ctx, companyID); err != nil {
		return nil, err
	}

	employees, err := s.userRepo.ListEmployees(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}

	views := make([]models.EmployeeView, 0, len(employees))
	for _, e := range employees {
		views = append(views, models.NewEmployeeView(e))
	}
	return views, nil
}

// RemoveEmployee detaches the employee from the company. The account is kept
// and drops back to an unaffiliated CLIENT.
func (s *companyService) RemoveEmployee(ctx context.Context, companyID, employeeID uuid.UUID) error {
	if _, err := s.companyRepo.GetByID(ctx, companyID); err != nil {
		return err
	}

	employee, err := s.userRepo.GetByID(ctx, employeeID)
	if err != nil {
		return err
	}
	if employee.CompanyID == nil || *employee.CompanyID != companyID {
		return fmt.Errorf("employee does not belong to the company: %w", apperrors.ErrConflict)
	}

	employee.Detach()
	employee.UpdatedAt = time.Now()
	if err := s.userRepo.Update(ctx, employee); err != nil {
		return fmt.Errorf("failed to detach employee: %w", err)
	}
	return nil
}

// CheckInvitation resolves a raw invitation token without consuming it. An
// absent (or already accepted) token is not found; a present but expired one
// is a bad request.
func (s *companyService) CheckInvitation(ctx context.Context, token string) (*InvitationStatus, error) {
	user, err := s.findInvitee(ctx, token)
	if err != nil {
		return nil, err
	}

	status := &InvitationStatus{Valid: true, Email: user.Email}
	if user.CompanyID != nil {
		company, err := s.companyRepo.GetByID(ctx, *user.CompanyID)
		if err != nil {
			return nil, fmt.Errorf("failed to load inviting company: %w", err)
		}
		status.Company = &models.CompanyView{ID: company.ID, Name: company.Name}
	}
	return status, nil
}

// AcceptInvitation consumes the token, activates the account and sets the
// real name and credentials.
func (s *companyService) AcceptInvitation(ctx context.Context, input AcceptInvitationInput) (*models.UserView, error) {
	user, err := s.findInvitee(ctx, input.Token)
	if err != nil {
		return nil, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.tokenCfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user.AcceptInvitation(input.FirstName, input.LastName, string(passwordHash))
	user.UpdatedAt = time.Now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to activate invitee: %w", err)
	}

	var company *models.Company
	if user.CompanyID != nil {
		company, err = s.companyRepo.GetByID(ctx, *user.CompanyID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("failed to load company: %w", err)
		}
	}

	view := models.NewUserView(user, company)
	return &view, nil
}

func (s *companyService) findInvitee(ctx context.Context, token string) (*models.User, error) {
	user, err := s.userRepo.GetByInvitationTokenHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("invitation not found or already accepted: %w", apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to look up invitation: %w", err)
	}
	if user.InvitationExpired(time.Now()) {
		return nil, fmt.Errorf("invitation has expired: %w", apperrors.ErrBadRequest)
	}
	return user, nil
}
