package models

import (
	"time"

	"github.com/google/uuid"
)

// User roles. CLIENT is the company owner role assigned at registration,
// EMPLOYEE is assigned through the invitation flow.
const (
	RoleAdmin    = "ADMIN"
	RoleClient   = "CLIENT"
	RoleEmployee = "EMPLOYEE"
)

type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"` // Never serialize in JSON
	FirstName    string     `json:"first_name" db:"first_name"`
	LastName     string     `json:"last_name" db:"last_name"`
	Phone        *string    `json:"phone,omitempty" db:"phone"`
	Role         string     `json:"role" db:"role"`
	CompanyID    *uuid.UUID `json:"company_id,omitempty" db:"company_id"`
	IsActive     bool       `json:"is_active" db:"is_active"`

	// Password reset flow. Only the sha256 hash of the token is stored.
	ResetPasswordTokenHash *string    `json:"-" db:"reset_password_token_hash"`
	ResetPasswordExpiresAt *time.Time `json:"-" db:"reset_password_expires_at"`

	// Invitation flow, same hashed-token discipline.
	InvitationTokenHash *string    `json:"-" db:"invitation_token_hash"`
	InvitationExpiresAt *time.Time `json:"-" db:"invitation_expires_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// MembershipStatus is the employee lifecycle state derived from a user row.
type MembershipStatus string

const (
	// MembershipUnaffiliated covers users without a company: never invited,
	// or detached after removal. Both may be (re-)invited.
	MembershipUnaffiliated MembershipStatus = "unaffiliated"
	// MembershipInvited means a live or expired invitation token is attached
	// and the account has not been activated yet.
	MembershipInvited MembershipStatus = "invited"
	// MembershipActiveEmployee means the invitation was accepted.
	MembershipActiveEmployee MembershipStatus = "active_employee"
)

// MembershipStatus derives the lifecycle state from the row. All writes go
// through the transition methods below, so the field combinations that would
// make this ambiguous (an active user holding an invitation token, an
// employee without a company) are never produced.
func (u *User) MembershipStatus() MembershipStatus {
	switch {
	case u.InvitationTokenHash != nil:
		return MembershipInvited
	case u.Role == RoleEmployee && u.CompanyID != nil && u.IsActive:
		return MembershipActiveEmployee
	default:
		return MembershipUnaffiliated
	}
}

// InvitationExpired reports whether the outstanding invitation token has
// passed its expiry. An expired invitation stays on the row until the user
// is re-invited; it only ever fails the acceptance checks.
func (u *User) InvitationExpired(now time.Time) bool {
	return u.InvitationExpiresAt != nil && u.InvitationExpiresAt.Before(now)
}

// Invite transitions an unaffiliated user into the invited state, overwriting
// any stale token from a previous invitation.
func (u *User) Invite(companyID uuid.UUID, tokenHash string, expiresAt time.Time) {
	u.CompanyID = &companyID
	u.Role = RoleEmployee
	u.IsActive = false
	u.InvitationTokenHash = &tokenHash
	u.InvitationExpiresAt = &expiresAt
}

// AcceptInvitation completes the invited → active transition: real name and
// credentials are set and the consumed token is cleared so it cannot be
// replayed.
func (u *User) AcceptInvitation(firstName, lastName, passwordHash string) {
	u.FirstName = firstName
	u.LastName = lastName
	u.PasswordHash = passwordHash
	u.IsActive = true
	u.InvitationTokenHash = nil
	u.InvitationExpiresAt = nil
}

// Detach removes the user from their company. The row is kept (email, name
// preserved) and the user drops back to an unaffiliated CLIENT.
func (u *User) Detach() {
	u.CompanyID = nil
	u.Role = RoleClient
	u.InvitationTokenHash = nil
	u.InvitationExpiresAt = nil
}

// SetResetToken attaches a new password-reset token hash, replacing any
// outstanding one.
func (u *User) SetResetToken(tokenHash string, expiresAt time.Time) {
	u.ResetPasswordTokenHash = &tokenHash
	u.ResetPasswordExpiresAt = &expiresAt
}

// ClearResetToken removes the reset token after a successful password reset.
func (u *User) ClearResetToken() {
	u.ResetPasswordTokenHash = nil
	u.ResetPasswordExpiresAt = nil
}
