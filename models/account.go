package models

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of account roles
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
)

// ParseRole converts a string into a Role
func ParseRole(value string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleCustomer:
		return RoleCustomer, nil
	case RoleStaff:
		return RoleStaff, nil
	}
	return "", fmt.Errorf("unknown role %q", value)
}

// Account represents a registered person, either a customer or a staff member
type Account struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Email             string    `gorm:"uniqueIndex;not null" json:"email"` // stored lower-cased
	PasswordHash      string    `gorm:"not null" json:"-"`
	FirstName         string    `gorm:"size:20" json:"first_name"`
	LastName          string    `gorm:"size:25" json:"last_name"`
	Role              Role      `gorm:"type:varchar(16);not null;default:'customer';index" json:"role"`
	IsActive          bool      `gorm:"not null;default:true" json:"is_active"`
	IsSub             bool      `gorm:"not null;default:false" json:"is_sub"` // opted into chat notifications
	IsVerified        bool      `gorm:"not null;default:false" json:"is_verified"`
	VerificationToken string    `gorm:"uniqueIndex;not null" json:"-"`
	Contact           *Contact  `gorm:"foreignKey:AccountID" json:"contact,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Account model
func (Account) TableName() string {
	return "accounts"
}

// IsStaff reports whether the account has the staff role
func (a *Account) IsStaff() bool {
	return a != nil && a.Role == RoleStaff
}

// FullName returns "last first", trimmed
func (a *Account) FullName() string {
	return strings.TrimSpace(a.LastName + " " + a.FirstName)
}

// NormalizeEmail trims and lower-cases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
