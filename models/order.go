package models

import (
	"fmt"
	"strings"
	"time"
)

// Category is the kind of service an order asks for
type Category string

const (
	CategoryRepair       Category = "repair"
	CategoryMaintenance  Category = "maintenance"
	CategoryConsultation Category = "consultation"
)

// Categories lists every valid category
var Categories = []Category{CategoryRepair, CategoryMaintenance, CategoryConsultation}

// ParseCategory converts a string into a Category
func ParseCategory(value string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", value)
}

// Display returns the human readable category name
func (c Category) Display() string {
	switch c {
	case CategoryRepair:
		return "Repair"
	case CategoryMaintenance:
		return "Maintenance"
	case CategoryConsultation:
		return "Consultation"
	}
	return string(c)
}

// Status is the workflow state of an order
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Statuses lists every valid status
var Statuses = []Status{StatusNew, StatusInProgress, StatusDone}

// ParseStatus converts a string into a Status
func ParseStatus(value string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range Statuses {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", value)
}

// Display returns the status name used in notifications
func (s Status) Display() string {
	return strings.ToUpper(string(s))
}

// Order represents a service request raised by a customer
type Order struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	CustomerID  uint        `gorm:"not null;index;<-:create" json:"customer_id"` // immutable after creation
	Customer    *Account    `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Category    Category    `gorm:"type:varchar(16);not null;default:'consultation'" json:"category"`
	Status      Status      `gorm:"type:varchar(16);not null;default:'new';index" json:"status"`
	Description string      `gorm:"type:text" json:"description"`
	ImageS3Key  *string     `gorm:"column:image_s3_key" json:"-"` // nullable, S3 key of the attached photo
	ImageURL    *string     `gorm:"-" json:"image_url,omitempty"` // computed, presigned URL for the photo
	Assignment  *Assignment `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"assignment,omitempty"`
	CreatedAt   time.Time   `gorm:"<-:create" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"index" json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// WorkerID returns the assigned worker, if any
func (o *Order) WorkerID() *uint {
	if o.Assignment == nil {
		return nil
	}
	return o.Assignment.WorkerID
}
