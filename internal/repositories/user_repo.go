package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bizdesk/internal/apperrors"
	"bizdesk/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Database is the subset of pgxpool.Pool the repositories use. pgxmock
// satisfies it in tests.
type Database interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Querier is the query surface shared by the pool and an open transaction,
// used by the CreateTx variants that run inside the registration transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	CreateTx(ctx context.Context, q Querier, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByResetTokenHash(ctx context.Context, tokenHash string, notExpiredBefore time.Time) (*models.User, error)
	GetByInvitationTokenHash(ctx context.Context, tokenHash string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	ListEmployees(ctx context.Context, companyID uuid.UUID) ([]*models.User, error)
}

type userRepo struct {
	db Database
}

func NewUserRepo(db Database) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `id, email, password_hash, first_name, last_name, phone, role, company_id, is_active,
		reset_password_token_hash, reset_password_expires_at, invitation_token_hash, invitation_expires_at,
		created_at, updated_at`

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	return r.CreateTx(ctx, r.db, user)
}

func (r *userRepo) CreateTx(ctx context.Context, q Querier, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, first_name, last_name, phone, role, company_id, is_active,
			invitation_token_hash, invitation_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
	`
	_, err := q.Exec(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName, user.Phone,
		user.Role, user.CompanyID, user.IsActive, user.InvitationTokenHash, user.InvitationExpiresAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("user with email %s already exists: %w", user.Email, apperrors.ErrConflict)
	}
	return err
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *userRepo) GetByResetTokenHash(ctx context.Context, tokenHash string, notExpiredBefore time.Time) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE reset_password_token_hash = $1 AND reset_password_expires_at > $2`
	return scanUser(r.db.QueryRow(ctx, query, tokenHash, notExpiredBefore))
}

func (r *userRepo) GetByInvitationTokenHash(ctx context.Context, tokenHash string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE invitation_token_hash = $1`
	return scanUser(r.db.QueryRow(ctx, query, tokenHash))
}

func (r *userRepo) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET email = $1, password_hash = $2, first_name = $3, last_name = $4, phone = $5, role = $6,
			company_id = $7, is_active = $8, reset_password_token_hash = $9, reset_password_expires_at = $10,
			invitation_token_hash = $11, invitation_expires_at = $12, updated_at = NOW()
		WHERE id = $13
	`
	tag, err := r.db.Exec(ctx, query,
		user.Email, user.PasswordHash, user.FirstName, user.LastName, user.Phone, user.Role,
		user.CompanyID, user.IsActive, user.ResetPasswordTokenHash, user.ResetPasswordExpiresAt,
		user.InvitationTokenHash, user.InvitationExpiresAt, user.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("user with email %s already exists: %w", user.Email, apperrors.ErrConflict)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", user.ID, apperrors.ErrNotFound)
	}
	return nil
}

func (r *userRepo) ListEmployees(ctx context.Context, companyID uuid.UUID) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE company_id = $1 AND role = $2 ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, companyID, models.RoleEmployee)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(
			&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName, &user.Phone,
			&user.Role, &user.CompanyID, &user.IsActive,
			&user.ResetPasswordTokenHash, &user.ResetPasswordExpiresAt,
			&user.InvitationTokenHash, &user.InvitationExpiresAt,
			&user.CreatedAt, &user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName, &user.Phone,
		&user.Role, &user.CompanyID, &user.IsActive,
		&user.ResetPasswordTokenHash, &user.ResetPasswordExpiresAt,
		&user.InvitationTokenHash, &user.InvitationExpiresAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user: %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// isUniqueViolation reports whether err is a postgres unique constraint
// violation (the authoritative guard against duplicate-email races).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
