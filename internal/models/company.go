package models

import (
	"time"

	"github.com/google/uuid"
)

type Company struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	INN         *string   `json:"inn,omitempty" db:"inn"` // 10 or 12 digit tax id
	Description *string   `json:"description,omitempty" db:"description"`
	Address     *string   `json:"address,omitempty" db:"address"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
