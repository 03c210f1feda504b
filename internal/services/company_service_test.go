package services

import (
	"context"
	"testing"
	"time"

	"bizdesk/internal/apperrors"
	"bizdesk/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

type CompanyServiceTestSuite struct {
	suite.Suite
	userRepo    *MockUserRepository
	companyRepo *MockCompanyRepository
	tokens      *TokenService
	service     CompanyService

	company *models.Company
}

func (suite *CompanyServiceTestSuite) SetupTest() {
	suite.userRepo = &MockUserRepository{}
	suite.companyRepo = &MockCompanyRepository{}
	suite.tokens = NewTokenService(testJWTConfig())
	suite.service = NewCompanyService(suite.userRepo, suite.companyRepo, suite.tokens, testTokenConfig())

	suite.company = &models.Company{ID: uuid.New(), Name: "Acme LLC"}

	suite.userRepo.Test(suite.T())
	suite.companyRepo.Test(suite.T())
}

func (suite *CompanyServiceTestSuite) TearDownTest() {
	suite.userRepo.AssertExpectations(suite.T())
	suite.companyRepo.AssertExpectations(suite.T())
}

func TestCompanyServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CompanyServiceTestSuite))
}

func (suite *CompanyServiceTestSuite) expectCompany() {
	suite.companyRepo.On("GetByID", mock.Anything, suite.company.ID).Return(suite.company, nil)
}

func (suite *CompanyServiceTestSuite) TestUpdate_PartialPatch() {
	ctx := context.Background()
	inn := "7701234567"
	suite.company.Description = ptr("old description")
	suite.expectCompany()

	var updated *models.Company
	suite.companyRepo.On("Update", ctx, mock.AnythingOfType("*models.Company")).Return(nil).Run(func(args mock.Arguments) {
		updated = args.Get(1).(*models.Company)
	}).Once()

	name := "Acme Group"
	company, err := suite.service.Update(ctx, suite.company.ID, UpdateCompanyInput{Name: &name, INN: &inn})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), "Acme Group", company.Name)
	suite.Require().NotNil(company.INN)
	assert.Equal(suite.T(), inn, *company.INN)
	// Untouched fields survive the patch.
	suite.Require().NotNil(company.Description)
	assert.Equal(suite.T(), "old description", *company.Description)
	assert.Same(suite.T(), company, updated)
}

func (suite *CompanyServiceTestSuite) TestUpdate_CompanyNotFound() {
	ctx := context.Background()
	missing := uuid.New()
	suite.companyRepo.On("GetByID", ctx, missing).Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.service.Update(ctx, missing, UpdateCompanyInput{})
	assert.ErrorIs(suite.T(), err, apperrors.ErrNotFound)
}

func (suite *CompanyServiceTestSuite) TestInviteEmployee_NewAddressCreatesDormantAccount() {
	ctx := context.Background()
	email := "new.hire@example.com"
	suite.expectCompany()
	suite.userRepo.On("GetByEmail", ctx, email).Return(nil, apperrors.ErrNotFound).Once()

	var invitee *models.User
	suite.userRepo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(nil).Run(func(args mock.Arguments) {
		invitee = args.Get(1).(*models.User)
	}).Once()

	result, err := suite.service.InviteEmployee(ctx, suite.company.ID, email)
	suite.Require().NoError(err)
	assert.NotEmpty(suite.T(), result.Token)
	assert.Contains(suite.T(), result.Message, email)

	suite.Require().NotNil(invitee)
	assert.Equal(suite.T(), email, invitee.Email)
	assert.Equal(suite.T(), models.RoleEmployee, invitee.Role)
	assert.False(suite.T(), invitee.IsActive)
	assert.Empty(suite.T(), invitee.PasswordHash)
	suite.Require().NotNil(invitee.CompanyID)
	assert.Equal(suite.T(), suite.company.ID, *invitee.CompanyID)
	suite.Require().NotNil(invitee.InvitationTokenHash)
	assert.Equal(suite.T(), HashToken(result.Token), *invitee.InvitationTokenHash)
	suite.Require().NotNil(invitee.InvitationExpiresAt)
	assert.WithinDuration(suite.T(), time.Now().Add(24*time.Hour), *invitee.InvitationExpiresAt, time.Minute)
	assert.Equal(suite.T(), models.MembershipInvited, invitee.MembershipStatus())
}

func (suite *CompanyServiceTestSuite) TestInviteEmployee_AlreadyEmployeeIsIdempotent() {
	ctx := context.Background()
	email := "worker@example.com"
	suite.expectCompany()
	existing := &models.User{
		ID:        uuid.New(),
		Email:     email,
		Role:      models.RoleEmployee,
		CompanyID: &suite.company.ID,
		IsActive:  true,
	}
	suite.userRepo.On("GetByEmail", ctx, email).Return(existing, nil).Once()

	result, err := suite.service.InviteEmployee(ctx, suite.company.ID, email)
	suite.Require().NoError(err)
	assert.Empty(suite.T(), result.Token)
	assert.Contains(suite.T(), result.Message, "already an employee")
}

func (suite *CompanyServiceTestSuite) TestInviteEmployee_BoundToAnotherCompany() {
	ctx := context.Background()
	email := "poached@example.com"
	otherCompany := uuid.New()
	suite.expectCompany()
	existing := &models.User{
		ID:        uuid.New(),
		Email:     email,
		Role:      models.RoleEmployee,
		CompanyID: &otherCompany,
		IsActive:  true,
	}
	suite.userRepo.On("GetByEmail", ctx, email).Return(existing, nil).Once()

	result, err := suite.service.InviteEmployee(ctx, suite.company.ID, email)
	assert.Nil(suite.T(), result)
	assert.ErrorIs(suite.T(), err, apperrors.ErrConflict)
}

func (suite *CompanyServiceTestSuite) TestInviteEmployee_ReinviteUnaffiliatedUser() {
	ctx := context.Background()
	email := "returning@example.com"
	suite.expectCompany()
	existing := &models.User{
		ID:       uuid.New(),
		Email:    email,
		Role:     models.RoleClient,
		IsActive: true,
	}
	suite.userRepo.On("GetByEmail", ctx, email).Return(existing, nil).Once()
	suite.userRepo.On("Update", ctx, existing).Return(nil).Once()

	result, err := suite.service.InviteEmployee(ctx, suite.company.ID, email)
	suite.Require().NoError(err)
	assert.NotEmpty(suite.T(), result.Token)

	assert.Equal(suite.T(), models.RoleEmployee, existing.Role)
	assert.False(suite.T(), existing.IsActive)
	suite.Require().NotNil(existing.CompanyID)
	assert.Equal(suite.T(), suite.company.ID, *existing.CompanyID)
	suite.Require().NotNil(existing.InvitationTokenHash)
	assert.Equal(suite.T(), HashToken(result.Token), *existing.InvitationTokenHash)
}

func (suite *CompanyServiceTestSuite) TestInviteEmployee_DormantReinviteRotatesToken() {
	ctx := context.Background()
	email := "slow@example.com"
	suite.expectCompany()
	staleHash := HashToken("stale-token")
	staleExpiry := time.Now().Add(-time.Hour)
	existing := &models.User{
		ID:                  uuid.New(),
		Email:               email,
		Role:                models.RoleEmployee,
		CompanyID:           &suite.company.ID,
		IsActive:            false,
		InvitationTokenHash: &staleHash,
		InvitationExpiresAt: &staleExpiry,
	}
	suite.userRepo.On("GetByEmail", ctx, email).Return(existing, nil).Once()
	suite.userRepo.On("Update", ctx, existing).Return(nil).Once()

	result, err := suite.service.InviteEmployee(ctx, suite.company.ID, email)
	suite.Require().NoError(err)
	suite.Require().NotNil(existing.InvitationTokenHash)
	assert.Equal(suite.T(), HashToken(result.Token), *existing.InvitationTokenHash)
	assert.NotEqual(suite.T(), staleHash, *existing.InvitationTokenHash)
	suite.Require().NotNil(existing.InvitationExpiresAt)
	assert.True(suite.T(), existing.InvitationExpiresAt.After(time.Now()))
}

func (suite *CompanyServiceTestSuite) TestGetEmployees() {
	ctx := context.Background()
	suite.expectCompany()
	employees := []*models.User{
		{ID: uuid.New(), Email: "a@example.com", FirstName: "A", Role: models.RoleEmployee, IsActive: true},
		{ID: uuid.New(), Email: "b@example.com", Role: models.RoleEmployee, IsActive: false},
	}
	suite.userRepo.On("ListEmployees", ctx, suite.company.ID).Return(employees, nil).Once()

	views, err := suite.service.GetEmployees(ctx, suite.company.ID)
	suite.Require().NoError(err)
	suite.Require().Len(views, 2)
	assert.Equal(suite.T(), "a@example.com", views[0].Email)
	assert.True(suite.T(), views[0].IsActive)
	assert.False(suite.T(), views[1].IsActive)
}

func (suite *CompanyServiceTestSuite) TestRemoveEmployee_DetachesAccount() {
	ctx := context.Background()
	suite.expectCompany()
	hash := HashToken("pending")
	expiry := time.Now().Add(time.Hour)
	employee := &models.User{
		ID:                  uuid.New(),
		Email:               "worker@example.com",
		Role:                models.RoleEmployee,
		CompanyID:           &suite.company.ID,
		IsActive:            true,
		InvitationTokenHash: &hash,
		InvitationExpiresAt: &expiry,
	}
	suite.userRepo.On("GetByID", ctx, employee.ID).Return(employee, nil).Once()
	suite.userRepo.On("Update", ctx, employee).Return(nil).Once()

	err := suite.service.RemoveEmployee(ctx, suite.company.ID, employee.ID)
	suite.Require().NoError(err)
	assert.Nil(suite.T(), employee.CompanyID)
	assert.Equal(suite.T(), models.RoleClient, employee.Role)
	assert.Nil(suite.T(), employee.InvitationTokenHash)
	assert.Nil(suite.T(), employee.InvitationExpiresAt)
	assert.Equal(suite.T(), models.MembershipUnaffiliated, employee.MembershipStatus())
}

func (suite *CompanyServiceTestSuite) TestRemoveEmployee_WrongCompany() {
	ctx := context.Background()
	suite.expectCompany()
	otherCompany := uuid.New()
	employee := &models.User{
		ID:        uuid.New(),
		Role:      models.RoleEmployee,
		CompanyID: &otherCompany,
		IsActive:  true,
	}
	suite.userRepo.On("GetByID", ctx, employee.ID).Return(employee, nil).Once()

	err := suite.service.RemoveEmployee(ctx, suite.company.ID, employee.ID)
	assert.ErrorIs(suite.T(), err, apperrors.ErrConflict)
}

func (suite *CompanyServiceTestSuite) TestRemoveEmployee_UnknownEmployee() {
	ctx := context.Background()
	suite.expectCompany()
	missing := uuid.New()
	suite.userRepo.On("GetByID", ctx, missing).Return(nil, apperrors.ErrNotFound).Once()

	err := suite.service.RemoveEmployee(ctx, suite.company.ID, missing)
	assert.ErrorIs(suite.T(), err, apperrors.ErrNotFound)
}

func (suite *CompanyServiceTestSuite) invitedUser(token string, expiresAt time.Time) *models.User {
	hash := HashToken(token)
	user := &models.User{
		ID:                  uuid.New(),
		Email:               "invited@example.com",
		Role:                models.RoleEmployee,
		CompanyID:           &suite.company.ID,
		IsActive:            false,
		InvitationTokenHash: &hash,
		InvitationExpiresAt: &expiresAt,
	}
	return user
}

func (suite *CompanyServiceTestSuite) TestCheckInvitation_Valid() {
	ctx := context.Background()
	token := "live-invitation"
	user := suite.invitedUser(token, time.Now().Add(time.Hour))
	suite.userRepo.On("GetByInvitationTokenHash", ctx, HashToken(token)).Return(user, nil).Once()
	suite.expectCompany()

	status, err := suite.service.CheckInvitation(ctx, token)
	suite.Require().NoError(err)
	assert.True(suite.T(), status.Valid)
	assert.Equal(suite.T(), user.Email, status.Email)
	suite.Require().NotNil(status.Company)
	assert.Equal(suite.T(), suite.company.Name, status.Company.Name)
}

func (suite *CompanyServiceTestSuite) TestCheckInvitation_UnknownToken() {
	ctx := context.Background()
	suite.userRepo.On("GetByInvitationTokenHash", ctx, HashToken("ghost")).Return(nil, apperrors.ErrNotFound).Once()

	status, err := suite.service.CheckInvitation(ctx, "ghost")
	assert.Nil(suite.T(), status)
	assert.ErrorIs(suite.T(), err, apperrors.ErrNotFound)
}

func (suite *CompanyServiceTestSuite) TestCheckInvitation_Expired() {
	ctx := context.Background()
	token := "expired-invitation"
	user := suite.invitedUser(token, time.Now().Add(-time.Minute))
	suite.userRepo.On("GetByInvitationTokenHash", ctx, HashToken(token)).Return(user, nil).Once()

	status, err := suite.service.CheckInvitation(ctx, token)
	assert.Nil(suite.T(), status)
	assert.ErrorIs(suite.T(), err, apperrors.ErrBadRequest)
}

func (suite *CompanyServiceTestSuite) TestAcceptInvitation_ActivatesAccount() {
	ctx := context.Background()
	token := "live-invitation"
	user := suite.invitedUser(token, time.Now().Add(time.Hour))
	suite.userRepo.On("GetByInvitationTokenHash", ctx, HashToken(token)).Return(user, nil).Once()
	suite.userRepo.On("Update", ctx, user).Return(nil).Once()
	suite.expectCompany()

	view, err := suite.service.AcceptInvitation(ctx, AcceptInvitationInput{
		Token:     token,
		FirstName: "Ivan",
		LastName:  "Sidorov",
		Password:  "Empl0yee!Pass",
	})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), "Ivan", view.FirstName)
	suite.Require().NotNil(view.Company)
	assert.Equal(suite.T(), suite.company.Name, view.Company.Name)

	assert.True(suite.T(), user.IsActive)
	assert.NoError(suite.T(), bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("Empl0yee!Pass")))
	// The token is consumed: a second acceptance cannot find it.
	assert.Nil(suite.T(), user.InvitationTokenHash)
	assert.Nil(suite.T(), user.InvitationExpiresAt)
	assert.Equal(suite.T(), models.MembershipActiveEmployee, user.MembershipStatus())
}

func (suite *CompanyServiceTestSuite) TestAcceptInvitation_ExpiredLeavesRowUntouched() {
	ctx := context.Background()
	token := "expired-invitation"
	user := suite.invitedUser(token, time.Now().Add(-time.Minute))
	suite.userRepo.On("GetByInvitationTokenHash", ctx, HashToken(token)).Return(user, nil).Once()

	view, err := suite.service.AcceptInvitation(ctx, AcceptInvitationInput{
		Token:     token,
		FirstName: "Ivan",
		LastName:  "Sidorov",
		Password:  "Empl0yee!Pass",
	})
	assert.Nil(suite.T(), view)
	assert.ErrorIs(suite.T(), err, apperrors.ErrBadRequest)
	// The expired token stays on the row until a re-invite replaces it.
	assert.NotNil(suite.T(), user.InvitationTokenHash)
	assert.False(suite.T(), user.IsActive)
}

func (suite *CompanyServiceTestSuite) TestAcceptInvitation_ConsumedToken() {
	ctx := context.Background()
	suite.userRepo.On("GetByInvitationTokenHash", ctx, HashToken("used")).Return(nil, apperrors.ErrNotFound).Once()

	view, err := suite.service.AcceptInvitation(ctx, AcceptInvitationInput{
		Token:     "used",
		FirstName: "Ivan",
		LastName:  "Sidorov",
		Password:  "Empl0yee!Pass",
	})
	assert.Nil(suite.T(), view)
	assert.ErrorIs(suite.T(), err, apperrors.ErrNotFound)
}

func ptr(s string) *string { return &s }
