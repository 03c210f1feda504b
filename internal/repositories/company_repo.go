package repositories

import (
	"context"
	"errors"
	"fmt"

	"bizdesk/internal/apperrors"
	"bizdesk/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type CompanyRepository interface {
	Create(ctx context.Context, company *models.Company) error
	CreateTx(ctx context.Context, q Querier, company *models.Company) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
	Update(ctx context.Context, company *models.Company) error
}

type companyRepo struct {
	db Database
}

func NewCompanyRepo(db Database) CompanyRepository {
	return &companyRepo{db: db}
}

func (r *companyRepo) Create(ctx context.Context, company *models.Company) error {
	return r.CreateTx(ctx, r.db, company)
}

func (r *companyRepo) CreateTx(ctx context.Context, q Querier, company *models.Company) error {
	query := `
		INSERT INTO companies (id, name, inn, description, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`
	_, err := q.Exec(ctx, query, company.ID, company.Name, company.INN, company.Description, company.Address)
	return err
}

func (r *companyRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	company := &models.Company{}
	query := `
		SELECT id, name, inn, description, address, created_at, updated_at
		FROM companies
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&company.ID, &company.Name, &company.INN, &company.Description, &company.Address,
		&company.CreatedAt, &company.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("company %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return company, nil
}

func (r *companyRepo) Update(ctx context.Context, company *models.Company) error {
	query := `
		UPDATE companies
		SET name = $1, inn = $2, description = $3, address = $4, updated_at = NOW()
		WHERE id = $5
	`
	tag, err := r.db.Exec(ctx, query, company.Name, company.INN, company.Description, company.Address, company.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("company %s: %w", company.ID, apperrors.ErrNotFound)
	}
	return nil
}
