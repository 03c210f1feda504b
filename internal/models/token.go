package models

import "github.com/google/uuid"

// TokenPair is the session payload returned by login, register and refresh.
// Field names mirror the public API contract.
type TokenPair struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	User         UserView `json:"user"`
}

// UserView is the redacted user representation safe to return to callers.
type UserView struct {
	ID        uuid.UUID    `json:"id"`
	Email     string       `json:"email"`
	FirstName string       `json:"firstName"`
	LastName  string       `json:"lastName"`
	Phone     *string      `json:"phone,omitempty"`
	Role      string       `json:"role"`
	Company   *CompanyView `json:"company,omitempty"`
}

// CompanyView is the company projection embedded in user-facing payloads.
type CompanyView struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// EmployeeView is the safe projection of a company employee: no password or
// token material.
type EmployeeView struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	IsActive  bool      `json:"isActive"`
}

// NewUserView builds the redacted view, attaching the company when loaded.
func NewUserView(u *User, c *Company) UserView {
	view := UserView{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		Role:      u.Role,
	}
	if c != nil {
		view.Company = &CompanyView{ID: c.ID, Name: c.Name}
	}
	return view
}

// NewEmployeeView projects a user row to the employee listing shape.
func NewEmployeeView(u *User) EmployeeView {
	return EmployeeView{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsActive:  u.IsActive,
	}
}
