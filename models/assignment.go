package models

import "gorm.io/gorm"

// Assignment links an order to the staff account handling it (at most one per order)
type Assignment struct {
	ID       uint     `gorm:"primaryKey" json:"id"`
	OrderID  uint     `gorm:"uniqueIndex;not null;<-:create" json:"order_id"`
	WorkerID *uint    `gorm:"index" json:"worker_id"` // nullable, unassigned until staff picks a worker
	Worker   *Account `gorm:"foreignKey:WorkerID" json:"worker,omitempty"`
}

// TableName specifies the table name for the Assignment model
func (Assignment) TableName() string {
	return "assignments"
}

// All lists every model managed by AutoMigrate
func All() []any {
	return []any{&Account{}, &Contact{}, &Order{}, &Assignment{}}
}

// AutoMigrate creates or updates the schema for every model
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
