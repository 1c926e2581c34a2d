package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kendall-kelly/service-crm-api/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Password is the plain-text password of every fixture account
const Password = "password123"

var (
	sequence     atomic.Uint64
	passwordHash string
)

func init() {
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	passwordHash = string(hash)
}

// AccountOption customises a fixture account before it is saved
type AccountOption func(*models.Account)

// WithEmail sets the account email
func WithEmail(email string) AccountOption {
	return func(a *models.Account) { a.Email = email }
}

// WithName sets first and last name
func WithName(first, last string) AccountOption {
	return func(a *models.Account) {
		a.FirstName = first
		a.LastName = last
	}
}

// Inactive marks the account inactive
func Inactive() AccountOption {
	return func(a *models.Account) { a.IsActive = false }
}

// WithContact attaches a contact with the given phone and chat handle
func WithContact(phone, telegram string) AccountOption {
	return func(a *models.Account) {
		contact := &models.Contact{City: "Springfield", House: "12", Phone: phone}
		if telegram != "" {
			contact.Telegram = &telegram
		}
		a.Contact = contact
	}
}

// Subscribed attaches a contact with a resolved chat session and opts in
func Subscribed(sessionID string) AccountOption {
	return func(a *models.Account) {
		handle := "@subscriber"
		a.IsSub = true
		a.Contact = &models.Contact{City: "Springfield", House: "12", Phone: "+123456789", Telegram: &handle, ChatSessionID: &sessionID}
	}
}

// CreateAccount saves an active account with the given role
func CreateAccount(t *testing.T, db *gorm.DB, role models.Role, opts ...AccountOption) *models.Account {
	t.Helper()

	n := sequence.Add(1)
	account := &models.Account{
		Email:             fmt.Sprintf("%s%d@example.com", role, n),
		PasswordHash:      passwordHash,
		FirstName:         "Test",
		LastName:          fmt.Sprintf("%s%d", role, n),
		Role:              role,
		IsActive:          true,
		IsVerified:        true,
		VerificationToken: fmt.Sprintf("token-%d", n),
	}
	for _, opt := range opts {
		opt(account)
	}
	// is_active has a column default, so gorm inserts true for a false value
	inactive := !account.IsActive

	require.NoError(t, db.Create(account).Error, "failed to create account")
	if inactive {
		require.NoError(t, db.Model(account).Update("is_active", false).Error)
		account.IsActive = false
	}
	return account
}

// CreateCustomer saves a customer account
func CreateCustomer(t *testing.T, db *gorm.DB, opts ...AccountOption) *models.Account {
	t.Helper()
	return CreateAccount(t, db, models.RoleCustomer, opts...)
}

// CreateStaff saves a staff account
func CreateStaff(t *testing.T, db *gorm.DB, opts ...AccountOption) *models.Account {
	t.Helper()
	return CreateAccount(t, db, models.RoleStaff, opts...)
}

// CreateOrder saves an order for customer. updatedAt orders listings deterministically.
func CreateOrder(t *testing.T, db *gorm.DB, customer *models.Account, category models.Category, status models.Status) *models.Order {
	t.Helper()

	order := &models.Order{
		CustomerID:  customer.ID,
		Category:    category,
		Status:      status,
		Description: fmt.Sprintf("order of %s", customer.Email),
	}
	require.NoError(t, db.Create(order).Error, "failed to create order")
	return order
}

// SetOrderTimes overrides created_at and updated_at of an order.
// created_at is create-only on the model, so the write bypasses it.
func SetOrderTimes(t *testing.T, db *gorm.DB, order *models.Order, created, updated time.Time) {
	t.Helper()

	result := db.Exec("UPDATE orders SET created_at = ?, updated_at = ? WHERE id = ?", created, updated, order.ID)
	require.NoError(t, result.Error)
	require.EqualValues(t, 1, result.RowsAffected, "order %d not found", order.ID)
	order.CreatedAt = created
	order.UpdatedAt = updated
}

// AssignWorker creates or replaces the assignment of an order
func AssignWorker(t *testing.T, db *gorm.DB, order *models.Order, worker *models.Account) *models.Assignment {
	t.Helper()

	assignment := &models.Assignment{OrderID: order.ID, WorkerID: &worker.ID}
	require.NoError(t, db.Where(models.Assignment{OrderID: order.ID}).Assign(models.Assignment{WorkerID: &worker.ID}).FirstOrCreate(assignment).Error)
	return assignment
}

// CountAssignments returns how many assignments reference the order
func CountAssignments(t *testing.T, db *gorm.DB, orderID uint) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&models.Assignment{}).Where("order_id = ?", orderID).Count(&count).Error)
	return count
}
