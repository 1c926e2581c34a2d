package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestTableNames(t *testing.T) {
	assert.Equal(t, "accounts", Account{}.TableName())
	assert.Equal(t, "contacts", Contact{}.TableName())
	assert.Equal(t, "orders", Order{}.TableName())
	assert.Equal(t, "assignments", Assignment{}.TableName())
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		input   string
		want    Role
		wantErr bool
	}{
		{input: "customer", want: RoleCustomer},
		{input: " Staff ", want: RoleStaff},
		{input: "technician", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRole(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCategoryAndStatus(t *testing.T) {
	c, err := ParseCategory("REPAIR")
	require.NoError(t, err)
	assert.Equal(t, CategoryRepair, c)
	assert.Equal(t, "Repair", c.Display())

	_, err = ParseCategory("gardening")
	assert.Error(t, err)

	s, err := ParseStatus("in_progress")
	require.NoError(t, err)
	assert.Equal(t, "IN_PROGRESS", s.Display())

	_, err = ParseStatus("cancelled")
	assert.Error(t, err)
}

func TestAccountHelpers(t *testing.T) {
	account := &Account{FirstName: "Ann", LastName: "Lee", Role: RoleStaff}
	assert.Equal(t, "Lee Ann", account.FullName())
	assert.True(t, account.IsStaff())

	var missing *Account
	assert.False(t, missing.IsStaff())

	assert.Equal(t, "ann@example.com", NormalizeEmail("  Ann@Example.COM "))
}

func TestContactAddress(t *testing.T) {
	contact := &Contact{City: "Springfield", Street: "Main", House: "12", Apartment: " 4 "}
	assert.Equal(t, "Springfield Main 12 4", contact.Address())
	assert.Equal(t, "", (&Contact{}).Address())
}

func TestOrderWorkerID(t *testing.T) {
	order := &Order{}
	assert.Nil(t, order.WorkerID())

	order.Assignment = &Assignment{}
	assert.Nil(t, order.WorkerID())

	worker := uint(3)
	order.Assignment.WorkerID = &worker
	require.NotNil(t, order.WorkerID())
	assert.Equal(t, uint(3), *order.WorkerID())
}

func TestAutoMigrateConstraints(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=1"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, AutoMigrate(db))

	customer := Account{Email: "c@example.com", PasswordHash: "x", VerificationToken: "t1"}
	require.NoError(t, db.Create(&customer).Error)
	var storedAccount Account
	require.NoError(t, db.First(&storedAccount, customer.ID).Error)
	assert.Equal(t, RoleCustomer, storedAccount.Role)
	assert.True(t, storedAccount.IsActive)

	order := Order{CustomerID: customer.ID}
	require.NoError(t, db.Create(&order).Error)
	var storedOrder Order
	require.NoError(t, db.First(&storedOrder, order.ID).Error)
	assert.Equal(t, StatusNew, storedOrder.Status)
	assert.Equal(t, CategoryConsultation, storedOrder.Category)

	require.NoError(t, db.Create(&Assignment{OrderID: order.ID}).Error)
	assert.Error(t, db.Create(&Assignment{OrderID: order.ID}).Error, "one assignment per order")

	require.NoError(t, db.Create(&Contact{AccountID: customer.ID}).Error)
	assert.Error(t, db.Create(&Contact{AccountID: customer.ID}).Error, "one contact per account")

	duplicate := Account{Email: "c@example.com", PasswordHash: "x", VerificationToken: "t2"}
	assert.Error(t, db.Create(&duplicate).Error)
}
