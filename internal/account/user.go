// Package account keeps subscriber records and the approval workflow in
// front of mascot generation.
package account

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"mascot-factory/internal/mascot"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusAdmin    Status = "admin"
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusAdmin
}

type User struct {
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Status       Status     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
}

func (u *User) IsAdmin() bool {
	return u.Status == StatusAdmin
}

func (u *User) CanGenerate() bool {
	return u.Status == StatusApproved || u.Status == StatusAdmin
}

// Role maps the account onto the verbosity used for generation errors.
func (u *User) Role() mascot.Role {
	if u.IsAdmin() {
		return mascot.RoleOperator
	}
	return mascot.RoleUser
}

func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
