package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bizdesk/internal/apperrors"
	"bizdesk/internal/caching"
	"bizdesk/internal/config"
	"bizdesk/internal/models"
	"bizdesk/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// RegisterInput carries the combined account and company payload for the
// registration flow.
type RegisterInput struct {
	Email              string
	Password           string
	FirstName          string
	LastName           string
	Phone              *string
	CompanyName        string
	CompanyINN         *string
	CompanyDescription *string
	CompanyAddress     *string
}

// AuthService covers registration, credential validation, session token
// issuance and the password recovery flow.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.TokenPair, error)
	// ValidateUser checks credentials and returns the user on success. It
	// returns nil for any failure so callers cannot distinguish an unknown
	// email from a wrong password.
	ValidateUser(ctx context.Context, email, password string) *models.User
	Login(ctx context.Context, user *models.User) (*models.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	// ForgotPassword issues a reset token for the account and returns the raw
	// token. Only its hash is persisted.
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
	// Logout denylists the presented access token until its natural expiry.
	Logout(ctx context.Context, accessToken string) error
}

type authService struct {
	db          repositories.Database
	userRepo    repositories.UserRepository
	companyRepo repositories.CompanyRepository
	tokens      *TokenService
	cache       caching.CacheService
	tokenCfg    config.TokenConfig
	logger      *zap.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	db repositories.Database,
	userRepo repositories.UserRepository,
	companyRepo repositories.CompanyRepository,
	tokens *TokenService,
	cache caching.CacheService,
	tokenCfg config.TokenConfig,
	logger *zap.Logger,
) AuthService {
	return &authService{
		db:          db,
		userRepo:    userRepo,
		companyRepo: companyRepo,
		tokens:      tokens,
		cache:       cache,
		tokenCfg:    tokenCfg,
		logger:      logger,
	}
}

// Register creates the company and its owner account atomically, then logs
// the new owner in. A duplicate email fails before anything is written.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.TokenPair, error) {
	_, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err == nil {
		return nil, fmt.Errorf("user with this email already exists: %w", apperrors.ErrConflict)
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.tokenCfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	company := &models.Company{
		ID:          uuid.New(),
		Name:        input.CompanyName,
		INN:         input.CompanyINN,
		Description: input.CompanyDescription,
		Address:     input.CompanyAddress,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	user := &models.User{
		ID:           uuid.New(),
		Email:        input.Email,
		PasswordHash: string(passwordHash),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		Role:         models.RoleClient,
		CompanyID:    &company.ID,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.companyRepo.CreateTx(ctx, tx, company); err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	if err := s.userRepo.CreateTx(ctx, tx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit registration: %w", err)
	}

	return s.Login(ctx, user)
}

// ValidateUser resolves credentials to a user. Unexpected repository errors
// are logged and swallowed so the caller's response stays uniform.
func (s *authService) ValidateUser(ctx context.Context, email, password string) *models.User {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Error("credential lookup failed", zap.String("email", email), zap.Error(err))
		}
		return nil
	}
	if !user.IsActive {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil
	}
	return user
}

// Login issues a fresh token pair for an already-authenticated user.
func (s *authService) Login(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	var company *models.Company
	if user.CompanyID != nil {
		var err error
		company, err = s.companyRepo.GetByID(ctx, *user.CompanyID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("failed to load company: %w", err)
		}
	}

	accessToken, refreshToken, err := s.tokens.GeneratePair(user)
	if err != nil {
		return nil, err
	}

	return &models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         models.NewUserView(user, company),
	}, nil
}

// RefreshToken verifies a refresh token, re-resolves its subject and issues a
// new pair. Any failure along the way reads as unauthorized.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", apperrors.ErrUnauthorized)
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token subject: %w", apperrors.ErrUnauthorized)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("user no longer exists: %w", apperrors.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("account is deactivated: %w", apperrors.ErrUnauthorized)
	}

	return s.Login(ctx, user)
}

// ForgotPassword attaches a one-hour reset token to the account and returns
// the raw token for delivery.
func (s *authService) ForgotPassword(ctx context.Context, email string) (string, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	raw, hash, err := s.tokens.NewOpaqueToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}

	user.SetResetToken(hash, time.Now().Add(s.tokenCfg.ResetTTL))
	if err := s.userRepo.Update(ctx, user); err != nil {
		return "", fmt.Errorf("failed to store reset token: %w", err)
	}
	return raw, nil
}

// ResetPassword consumes a reset token and sets the new password. An unknown
// or expired token is a bad request, never a hint about which it was.
func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	user, err := s.userRepo.GetByResetTokenHash(ctx, HashToken(token), time.Now())
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("invalid or expired reset token: %w", apperrors.ErrBadRequest)
		}
		return fmt.Errorf("failed to look up reset token: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.tokenCfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = string(passwordHash)
	user.ClearResetToken()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// Logout denylists the access token's hash for the remainder of its lifetime.
// An already-invalid token is a no-op success.
func (s *authService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.cache.DenylistToken(ctx, HashToken(accessToken), ttl); err != nil {
		s.logger.Warn("failed to denylist token on logout", zap.Error(err))
	}
	return nil
}
