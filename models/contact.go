package models

import (
	"strings"
	"time"
)

// Contact holds postal and messaging details of an account (at most one per account)
type Contact struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	AccountID     uint      `gorm:"uniqueIndex;not null;<-:create" json:"account_id"`
	City          string    `gorm:"size:50" json:"city"`
	Street        string    `gorm:"size:100" json:"street"`
	House         string    `gorm:"size:15" json:"house"`
	Structure     string    `gorm:"size:15" json:"structure"`
	Building      string    `gorm:"size:15" json:"building"`
	Apartment     string    `gorm:"size:15" json:"apartment"`
	Phone         string    `gorm:"size:20" json:"phone"`
	Telegram      *string   `gorm:"size:150" json:"telegram"`         // chat handle, e.g. "@username"
	ChatSessionID *string   `gorm:"type:text" json:"chat_session_id"` // set once the subscription is confirmed
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Contact model
func (Contact) TableName() string {
	return "contacts"
}

// Address joins the non-empty address parts
func (c *Contact) Address() string {
	parts := make([]string, 0, 6)
	for _, p := range []string{c.City, c.Street, c.House, c.Structure, c.Building, c.Apartment} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
