package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/url"
	"time"

	"github.com/kendall-kelly/service-crm-api/errs"
	"github.com/kendall-kelly/service-crm-api/models"
	"github.com/kendall-kelly/service-crm-api/policy"
	"github.com/kendall-kelly/service-crm-api/utils"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// OrderFilter narrows order listings. Zero values mean "no filter".
type OrderFilter struct {
	Statuses      []models.Status
	Category      models.Category
	CreatedDate   *time.Time // same calendar day
	CreatedAfter  *time.Time // strictly after the given day
	CreatedBefore *time.Time // strictly before the given day
}

// ParseOrderFilter reads status (repeatable), category, created_date,
// created_after and created_before from query values
func ParseOrderFilter(values url.Values) (OrderFilter, error) {
	var filter OrderFilter

	for _, raw := range values["status"] {
		if raw == "" {
			continue
		}
		status, err := models.ParseStatus(raw)
		if err != nil {
			return OrderFilter{}, errs.NewValidationError("status", err.Error())
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	if raw := values.Get("category"); raw != "" {
		category, err := models.ParseCategory(raw)
		if err != nil {
			return OrderFilter{}, errs.NewValidationError("category", err.Error())
		}
		filter.Category = category
	}

	dates := []struct {
		field string
		dest  **time.Time
	}{
		{"created_date", &filter.CreatedDate},
		{"created_after", &filter.CreatedAfter},
		{"created_before", &filter.CreatedBefore},
	}
	for _, d := range dates {
		raw := values.Get(d.field)
		if raw == "" {
			continue
		}
		day, err := time.ParseInLocation(dateLayout, raw, time.UTC)
		if err != nil {
			return OrderFilter{}, errs.NewValidationError(d.field, "expected a date in YYYY-MM-DD format")
		}
		*d.dest = &day
	}

	return filter, nil
}

// apply is a gorm scope adding the filter conditions
func (f OrderFilter) apply(db *gorm.DB) *gorm.DB {
	if len(f.Statuses) > 0 {
		db = db.Where("orders.status IN ?", f.Statuses)
	}
	if f.Category != "" {
		db = db.Where("orders.category = ?", f.Category)
	}
	if f.CreatedDate != nil {
		db = db.Where("orders.created_at >= ? AND orders.created_at < ?", *f.CreatedDate, f.CreatedDate.AddDate(0, 0, 1))
	}
	if f.CreatedAfter != nil {
		db = db.Where("orders.created_at >= ?", f.CreatedAfter.AddDate(0, 0, 1))
	}
	if f.CreatedBefore != nil {
		db = db.Where("orders.created_at < ?", *f.CreatedBefore)
	}
	return db
}

// CreateOrderInput holds the fields of a new order.
// CustomerID is only honoured for staff callers creating on behalf of a customer.
type CreateOrderInput struct {
	CustomerID  *uint
	Category    string
	Description string
}

// CustomerUpdateInput holds the fields a customer may change on their own order
type CustomerUpdateInput struct {
	Category    string
	Description string
}

// StaffUpdateInput replaces every staff-editable field of an order.
// A nil WorkerID leaves the order unassigned.
type StaffUpdateInput struct {
	Category    string
	Status      string
	Description string
	WorkerID    *uint
}

// OrderService implements the order workflow on top of gorm
type OrderService struct {
	db            *gorm.DB
	notifier      Notifier
	images        ImageService
	log           *slog.Logger
	notifyTimeout time.Duration
}

// NewOrderService creates an order service. images may be nil when photo storage is not configured.
func NewOrderService(db *gorm.DB, notifier Notifier, images ImageService, log *slog.Logger, notifyTimeout time.Duration) *OrderService {
	if notifier == nil {
		notifier = DisabledNotifier{}
	}
	if log == nil {
		log = slog.Default()
	}
	if notifyTimeout <= 0 {
		notifyTimeout = 10 * time.Second
	}
	return &OrderService{
		db:            db,
		notifier:      notifier,
		images:        images,
		log:           log,
		notifyTimeout: notifyTimeout,
	}
}

// List returns the page of orders visible to caller: everything for staff,
// only their own orders for customers
func (s *OrderService) List(ctx context.Context, caller *models.Account, filter OrderFilter, page utils.Pagination) ([]models.Order, int64, error) {
	scope, err := policy.ListScope(policy.SubjectOf(caller), nil)
	if err != nil {
		return nil, 0, err
	}
	return s.listPage(ctx, ownedBy(scope), filter, page)
}

// ListForAccount lists the orders of a named account. For a staff account
// these are the orders assigned to it, for a customer the orders it owns.
func (s *OrderService) ListForAccount(ctx context.Context, caller *models.Account, accountID uint, filter OrderFilter, page utils.Pagination) ([]models.Order, int64, error) {
	scope, err := policy.ListScope(policy.SubjectOf(caller), &accountID)
	if err != nil {
		return nil, 0, err
	}

	var named models.Account
	if err := s.db.WithContext(ctx).First(&named, accountID).Error; err != nil {
		return nil, 0, notFound(err, "account", accountID)
	}

	if named.IsStaff() {
		return s.listPage(ctx, assignedTo(named.ID), filter, page)
	}
	return s.listPage(ctx, ownedBy(scope), filter, page)
}

// Export returns every order visible to caller that matches filter, without paging
func (s *OrderService) Export(ctx context.Context, caller *models.Account, filter OrderFilter) ([]models.Order, error) {
	scope, err := policy.ListScope(policy.SubjectOf(caller), nil)
	if err != nil {
		return nil, err
	}

	var orders []models.Order
	err = s.orderQuery(ctx, ownedBy(scope), filter).
		Preload("Customer.Contact").
		Preload("Assignment.Worker").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to export orders: %w", err)
	}
	return orders, nil
}

// Get returns one order if caller may read it
func (s *OrderService) Get(ctx context.Context, caller *models.Account, id uint) (*models.Order, error) {
	if caller == nil {
		return nil, errs.ErrAuthenticationRequired
	}

	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(policy.SubjectOf(caller), policy.ActionRead, policy.OrderTarget(order.CustomerID)).Err(); err != nil {
		return nil, err
	}

	s.fillImageURL(ctx, order)
	return order, nil
}

// Create creates a NEW order. Customers create for themselves; staff must name
// the customer the order is created for.
func (s *OrderService) Create(ctx context.Context, caller *models.Account, input CreateOrderInput) (*models.Order, error) {
	subject := policy.SubjectOf(caller)
	if subject == nil {
		return nil, errs.ErrAuthenticationRequired
	}

	customerID := caller.ID
	if input.CustomerID != nil && *input.CustomerID != caller.ID {
		if err := policy.Authorize(subject, policy.ActionManage, policy.OrderTarget(*input.CustomerID)).Err(); err != nil {
			return nil, err
		}
		customerID = *input.CustomerID
	} else if caller.IsStaff() {
		return nil, errs.NewValidationError("customer_id", "staff must name the customer the order is for")
	}

	category := models.CategoryConsultation
	if input.Category != "" {
		parsed, err := models.ParseCategory(input.Category)
		if err != nil {
			return nil, errs.NewValidationError("category", err.Error())
		}
		category = parsed
	}

	if customerID != caller.ID {
		var customer models.Account
		if err := s.db.WithContext(ctx).First(&customer, customerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errs.NewValidationError("customer_id", "customer does not exist")
			}
			return nil, fmt.Errorf("failed to load customer: %w", err)
		}
		if customer.IsStaff() {
			return nil, errs.NewValidationError("customer_id", "orders can only be created for customers")
		}
	}

	order := models.Order{
		CustomerID:  customerID,
		Category:    category,
		Status:      models.StatusNew,
		Description: input.Description,
	}
	if err := s.db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.log.Info("order created", "order_id", order.ID, "customer_id", customerID, "by", caller.ID)
	return s.load(ctx, order.ID)
}

// UpdateAsCustomer changes category and description. Status and the
// assignment are never touched by this path.
func (s *OrderService) UpdateAsCustomer(ctx context.Context, caller *models.Account, id uint, input CustomerUpdateInput) (*models.Order, error) {
	if caller == nil {
		return nil, errs.ErrAuthenticationRequired
	}

	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(policy.SubjectOf(caller), policy.ActionUpdate, policy.OrderTarget(order.CustomerID)).Err(); err != nil {
		return nil, err
	}

	category, err := models.ParseCategory(input.Category)
	if err != nil {
		return nil, errs.NewValidationError("category", err.Error())
	}

	err = s.db.WithContext(ctx).Model(&models.Order{ID: order.ID}).Updates(map[string]any{
		"category":    category,
		"description": input.Description,
		"updated_at":  time.Now(),
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	updated, err := s.load(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	s.fillImageURL(ctx, updated)
	return updated, nil
}

// UpdateAsStaff replaces category, status, description and the assigned
// worker in one transaction. Afterwards a subscribed customer is notified;
// a failed delivery is logged and does not affect the result.
func (s *OrderService) UpdateAsStaff(ctx context.Context, caller *models.Account, id uint, input StaffUpdateInput) (*models.Order, error) {
	if caller == nil {
		return nil, errs.ErrAuthenticationRequired
	}

	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(policy.SubjectOf(caller), policy.ActionManage, policy.OrderTarget(order.CustomerID)).Err(); err != nil {
		return nil, err
	}

	category, err := models.ParseCategory(input.Category)
	if err != nil {
		return nil, errs.NewValidationError("category", err.Error())
	}
	status, err := models.ParseStatus(input.Status)
	if err != nil {
		return nil, errs.NewValidationError("status", err.Error())
	}
	if input.WorkerID != nil {
		if err := s.checkWorker(ctx, *input.WorkerID); err != nil {
			return nil, err
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Order{ID: order.ID}).Updates(map[string]any{
			"category":    category,
			"status":      status,
			"description": input.Description,
			"updated_at":  time.Now(),
		}).Error
		if err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}

		assignment, err := ensureAssignment(tx, order.ID)
		if err != nil {
			return err
		}
		if err := tx.Model(assignment).Update("worker_id", input.WorkerID).Error; err != nil {
			return fmt.Errorf("failed to assign worker: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.load(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	s.log.Info("order updated by staff", "order_id", updated.ID, "status", updated.Status, "by", caller.ID)

	s.notifyCustomer(ctx, updated)
	s.fillImageURL(ctx, updated)
	return updated, nil
}

// EnsureAssignment returns the assignment of an order, creating an
// unassigned one if the order has none. Calling it again returns the same record.
func (s *OrderService) EnsureAssignment(ctx context.Context, orderID uint) (*models.Assignment, error) {
	var assignment *models.Assignment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.Order{}, orderID).Error; err != nil {
			return notFound(err, "order", orderID)
		}
		a, err := ensureAssignment(tx, orderID)
		assignment = a
		return err
	})
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

func ensureAssignment(tx *gorm.DB, orderID uint) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := tx.Where(models.Assignment{OrderID: orderID}).FirstOrCreate(&assignment).Error; err != nil {
		return nil, fmt.Errorf("failed to ensure assignment: %w", err)
	}
	return &assignment, nil
}

// Delete removes an order and its assignment. Staff only.
func (s *OrderService) Delete(ctx context.Context, caller *models.Account, id uint) error {
	if caller == nil {
		return errs.ErrAuthenticationRequired
	}

	order, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.Authorize(policy.SubjectOf(caller), policy.ActionDelete, policy.OrderTarget(order.CustomerID)).Err(); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.Assignment{}).Error; err != nil {
			return fmt.Errorf("failed to delete assignment: %w", err)
		}
		if err := tx.Delete(&models.Order{}, order.ID).Error; err != nil {
			return fmt.Errorf("failed to delete order: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if order.ImageS3Key != nil && s.images != nil {
		if err := s.images.DeleteImage(ctx, *order.ImageS3Key); err != nil {
			s.log.Warn("failed to delete order image", "order_id", order.ID, "key", *order.ImageS3Key, "error", err)
		}
	}

	s.log.Info("order deleted", "order_id", order.ID, "by", caller.ID)
	return nil
}

// AttachImage stores a photo for an order, replacing the previous one
func (s *OrderService) AttachImage(ctx context.Context, caller *models.Account, id uint, fileHeader *multipart.FileHeader) (*models.Order, error) {
	if caller == nil {
		return nil, errs.ErrAuthenticationRequired
	}

	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(policy.SubjectOf(caller), policy.ActionUpdate, policy.OrderTarget(order.CustomerID)).Err(); err != nil {
		return nil, err
	}
	if s.images == nil {
		return nil, fmt.Errorf("%w: image storage is not configured", errs.ErrUnavailable)
	}

	key, err := s.images.UploadOrderImage(ctx, order.ID, fileHeader)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(&models.Order{ID: order.ID}).Updates(map[string]any{
		"image_s3_key": key,
		"updated_at":   time.Now(),
	}).Error
	if err != nil {
		if delErr := s.images.DeleteImage(ctx, key); delErr != nil {
			s.log.Warn("failed to clean up uploaded image", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("failed to save image reference: %w", err)
	}

	if order.ImageS3Key != nil && *order.ImageS3Key != key {
		if err := s.images.DeleteImage(ctx, *order.ImageS3Key); err != nil {
			s.log.Warn("failed to delete replaced image", "order_id", order.ID, "key", *order.ImageS3Key, "error", err)
		}
	}

	updated, err := s.load(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	s.fillImageURL(ctx, updated)
	return updated, nil
}

// notifyCustomer sends the status message when the customer opted in and has
// a resolved chat session
func (s *OrderService) notifyCustomer(ctx context.Context, order *models.Order) {
	customer := order.Customer
	if customer == nil || !customer.IsSub || customer.Contact == nil {
		return
	}
	session := customer.Contact.ChatSessionID
	if session == nil || *session == "" {
		return
	}

	notifyCtx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()

	if err := s.notifier.Deliver(notifyCtx, *session, StatusMessage(order)); err != nil {
		s.log.Warn("order notification not delivered",
			"order_id", order.ID,
			"account_id", customer.ID,
			"error", err,
		)
		return
	}
	s.log.Debug("order notification delivered", "order_id", order.ID, "account_id", customer.ID)
}

func (s *OrderService) checkWorker(ctx context.Context, workerID uint) error {
	var worker models.Account
	err := s.db.WithContext(ctx).First(&worker, workerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NewValidationError("worker_id", "worker does not exist")
	}
	if err != nil {
		return fmt.Errorf("failed to load worker: %w", err)
	}
	if !worker.IsStaff() {
		return errs.NewValidationError("worker_id", "worker must be a staff account")
	}
	return nil
}

func (s *OrderService) load(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Customer.Contact").
		Preload("Assignment.Worker").
		First(&order, id).Error
	if err != nil {
		return nil, notFound(err, "order", id)
	}
	return &order, nil
}

func (s *OrderService) listPage(ctx context.Context, scope func(*gorm.DB) *gorm.DB, filter OrderFilter, page utils.Pagination) ([]models.Order, int64, error) {
	var total int64
	if err := s.orderQuery(ctx, scope, filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	orders := make([]models.Order, 0, page.PageSize)
	err := s.orderQuery(ctx, scope, filter).
		Preload("Customer").
		Preload("Assignment.Worker").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	for i := range orders {
		s.fillImageURL(ctx, &orders[i])
	}
	return orders, total, nil
}

func (s *OrderService) orderQuery(ctx context.Context, scope func(*gorm.DB) *gorm.DB, filter OrderFilter) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&models.Order{}).
		Scopes(scope, filter.apply).
		Order("orders.updated_at ASC").
		Order("orders.id ASC")
}

func ownedBy(scope policy.Scope) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if scope.All {
			return db
		}
		return db.Where("orders.customer_id = ?", scope.OwnerID)
	}
}

func assignedTo(workerID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Joins("JOIN assignments ON assignments.order_id = orders.id").
			Where("assignments.worker_id = ?", workerID)
	}
}

func (s *OrderService) fillImageURL(ctx context.Context, order *models.Order) {
	if s.images == nil || order.ImageS3Key == nil {
		return
	}
	link, err := s.images.GetImageURL(ctx, *order.ImageS3Key)
	if err != nil {
		s.log.Warn("failed to presign order image", "order_id", order.ID, "error", err)
		return
	}
	order.ImageURL = &link
}

// notFound converts gorm.ErrRecordNotFound into an ObjectNotFoundError
func notFound(err error, kind string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NewObjectNotFoundError(kind, id)
	}
	return fmt.Errorf("failed to load %s: %w", kind, err)
}
