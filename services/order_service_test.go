package services_test

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/kendall-kelly/service-crm-api/errs"
	"github.com/kendall-kelly/service-crm-api/models"
	"github.com/kendall-kelly/service-crm-api/services"
	"github.com/kendall-kelly/service-crm-api/testutil"
	"github.com/kendall-kelly/service-crm-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type OrderServiceSuite struct {
	suite.Suite
	ctx      context.Context
	db       *gorm.DB
	notifier *testutil.FakeNotifier
	storage  *services.MockS3Service
	service  *services.OrderService

	customerA *models.Account
	customerB *models.Account
	staff     *models.Account
	worker    *models.Account
}

func (s *OrderServiceSuite) SetupTest() {
	t := s.T()
	s.ctx = context.Background()
	s.db = testutil.NewTestDB(t)
	s.notifier = testutil.NewFakeNotifier(nil)
	s.storage = services.NewMockS3Service()
	s.service = services.NewOrderService(s.db, s.notifier, services.NewImageService(s.storage), nil, time.Second)

	s.customerA = testutil.CreateCustomer(t, s.db, testutil.WithName("Ann", "Able"))
	s.customerB = testutil.CreateCustomer(t, s.db, testutil.WithName("Ben", "Baker"))
	s.staff = testutil.CreateStaff(t, s.db)
	s.worker = testutil.CreateStaff(t, s.db, testutil.WithName("Wes", "Worker"))
}

func TestOrderServiceSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceSuite))
}

func firstPage() utils.Pagination {
	return utils.Pagination{Page: 1, PageSize: utils.MaxPageSize}
}

func (s *OrderServiceSuite) reload(id uint) *models.Order {
	var order models.Order
	s.Require().NoError(s.db.Preload("Assignment").First(&order, id).Error)
	return &order
}

func (s *OrderServiceSuite) TestCreateAsCustomer() {
	order, err := s.service.Create(s.ctx, s.customerA, services.CreateOrderInput{
		Category:    "repair",
		Description: "washing machine leaks",
	})
	s.Require().NoError(err)

	s.Equal(models.StatusNew, order.Status)
	s.Equal(s.customerA.ID, order.CustomerID)
	s.Equal(models.CategoryRepair, order.Category)
	s.Nil(order.Assignment)
}

func (s *OrderServiceSuite) TestCreateDefaultsToConsultation() {
	order, err := s.service.Create(s.ctx, s.customerA, services.CreateOrderInput{Description: "question"})
	s.Require().NoError(err)
	s.Equal(models.CategoryConsultation, order.Category)
}

func (s *OrderServiceSuite) TestCreateRejectsUnknownCategory() {
	_, err := s.service.Create(s.ctx, s.customerA, services.CreateOrderInput{Category: "installation"})
	s.ErrorIs(err, errs.ErrValidationFailed)

	var count int64
	s.db.Model(&models.Order{}).Count(&count)
	s.Zero(count)
}

func (s *OrderServiceSuite) TestCreateOnBehalf() {
	s.Run("staff for a customer", func() {
		order, err := s.service.Create(s.ctx, s.staff, services.CreateOrderInput{
			CustomerID: &s.customerB.ID,
			Category:   "maintenance",
		})
		s.Require().NoError(err)
		s.Equal(s.customerB.ID, order.CustomerID)
		s.Equal(models.StatusNew, order.Status)
	})

	s.Run("staff without a customer", func() {
		_, err := s.service.Create(s.ctx, s.staff, services.CreateOrderInput{Category: "repair"})
		var validationErr *errs.ValidationError
		s.Require().ErrorAs(err, &validationErr)
		s.Equal("customer_id", validationErr.Field)
	})

	s.Run("staff for another staff account", func() {
		_, err := s.service.Create(s.ctx, s.staff, services.CreateOrderInput{CustomerID: &s.worker.ID})
		s.ErrorIs(err, errs.ErrValidationFailed)
	})

	s.Run("staff for an unknown account", func() {
		missing := uint(9999)
		_, err := s.service.Create(s.ctx, s.staff, services.CreateOrderInput{CustomerID: &missing})
		s.ErrorIs(err, errs.ErrValidationFailed)
	})

	s.Run("customer for another customer", func() {
		_, err := s.service.Create(s.ctx, s.customerA, services.CreateOrderInput{CustomerID: &s.customerB.ID})
		s.ErrorIs(err, errs.ErrForbidden)
	})

	s.Run("customer naming themselves", func() {
		order, err := s.service.Create(s.ctx, s.customerA, services.CreateOrderInput{CustomerID: &s.customerA.ID})
		s.Require().NoError(err)
		s.Equal(s.customerA.ID, order.CustomerID)
	})

	s.Run("anonymous", func() {
		_, err := s.service.Create(s.ctx, nil, services.CreateOrderInput{})
		s.ErrorIs(err, errs.ErrAuthenticationRequired)
	})
}

func (s *OrderServiceSuite) TestViewScenario() {
	order, err := s.service.Create(s.ctx, s.customerA, services.CreateOrderInput{Category: "repair"})
	s.Require().NoError(err)
	s.Equal(models.StatusNew, order.Status)
	s.Equal(s.customerA.ID, order.CustomerID)

	_, err = s.service.Get(s.ctx, s.customerB, order.ID)
	s.ErrorIs(err, errs.ErrForbidden)

	viewed, err := s.service.Get(s.ctx, s.staff, order.ID)
	s.Require().NoError(err)
	s.Equal(order.ID, viewed.ID)
	s.Require().NotNil(viewed.Customer)
	s.Equal(s.customerA.Email, viewed.Customer.Email)

	_, err = s.service.Get(s.ctx, nil, order.ID)
	s.ErrorIs(err, errs.ErrAuthenticationRequired)

	_, err = s.service.Get(s.ctx, s.staff, 4242)
	s.ErrorIs(err, errs.ErrNotFound)
}

func (s *OrderServiceSuite) TestListIsScopedToCustomer() {
	t := s.T()
	for i := 0; i < 3; i++ {
		testutil.CreateOrder(t, s.db, s.customerA, models.CategoryRepair, models.StatusNew)
		testutil.CreateOrder(t, s.db, s.customerB, models.CategoryRepair, models.StatusNew)
	}

	for _, caller := range []*models.Account{s.customerA, s.customerB} {
		orders, total, err := s.service.List(s.ctx, caller, services.OrderFilter{}, firstPage())
		s.Require().NoError(err)
		s.EqualValues(3, total)
		for _, order := range orders {
			s.Equal(caller.ID, order.CustomerID)
		}
	}

	orders, total, err := s.service.List(s.ctx, s.staff, services.OrderFilter{}, firstPage())
	s.Require().NoError(err)
	s.EqualValues(6, total)
	s.Len(orders, 6)

	_, _, err = s.service.List(s.ctx, nil, services.OrderFilter{}, firstPage())
	s.ErrorIs(err, errs.ErrAuthenticationRequired)
}

func (s *OrderServiceSuite) TestListOrdering() {
	t := s.T()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	late := testutil.CreateOrder(t, s.db, s.customerA, models.CategoryRepair, models.StatusNew)
	early := testutil.CreateOrder(t, s.db, s.customerA, models.CategoryRepair, models.StatusNew)
	tieLow := testutil.CreateOrder(t, s.db, s.customerA, models.CategoryRepair, models.StatusNew)
	tieHigh := testutil.CreateOrder(t, s.db, s.customerA, models.CategoryRepair, models.StatusNew)
	testutil.SetOrderTimes(t, s.db, late, base, base.Add(3*time.Hour))
	testutil.SetOrderTimes(t, s.db, early, base, base.Add(time.Hour))
	testutil.SetOrderTimes(t, s.db, tieLow, base, base.Add(2*time.Hour))
	testutil.SetOrderTimes(t, s.db, tieHigh, base, base.Add(2*time.Hour))

	orders, _, err := s.service.List(s.ctx, s.customerA, services.OrderFilter{}, firstPage())
	s.Require().NoError(err)

	ids := make([]uint, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	s.Equal([]uint{early.ID, tieLow.ID, tieHigh.ID, late.ID}, ids)
}

func (s *OrderServiceSuite) TestListPagination() {
	for i := 0; i < 12; i++ {
		testutil.CreateOrder(s.T(), s.db, s.customerA, models.CategoryRepair, models.StatusNew)
	}

	page2 := utils.Pagination{Page: 2, PageSize: 10}
	orders, total, err := s.service.List(s.ctx, s.customerA, services.OrderFilter{}, page2)
	s.Require().NoError(err)
	s.EqualValues(12, total)
	s.Len(orders, 2)
	s.Equal(2, page2.Info(total).TotalPages)
}

func (s *OrderServiceSuite) TestListFilters() {
	t := s.T()
	march := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	april := time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC)

	repairNew := testutil.CreateOrder(t, s.db, s.customerA, models.CategoryRepair, models.StatusNew)
	repairDone := testutil.CreateOrder(t, s.db, s.customerA, models.CategoryRepair, models.StatusDone)
	maintenance := testutil.CreateOrder(t, s.db, s.customerA, models.CategoryMaintenance, models.StatusInProgress)
	testutil.SetOrderTimes(t, s.db, repairNew, march, march)
	testutil.SetOrderTimes(t, s.db, repairDone, march.AddDate(0, 0, 1), march.AddDate(0, 0, 1))
	testutil.SetOrderTimes(t, s.db, maintenance, april, april)

	tests := []struct {
		name  string
		query string
		want  []uint
	}{
		{"status", "status=new", []uint{repairNew.ID}},
		{"repeated status", "status=new&status=in_progress", []uint{repairNew.ID, maintenance.ID}},
		{"category", "category=repair", []uint{repairNew.ID, repairDone.ID}},
		{"created date", "created_date=2024-03-11", []uint{repairDone.ID}},
		{"created after", "created_after=2024-03-10", []uint{repairDone.ID, maintenance.ID}},
		{"created before", "created_before=2024-03-11", []uint{repairNew.ID}},
		{"combined", "category=repair&status=done", []uint{repairDone.ID}},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			values, err := url.ParseQuery(tt.query)
			s.Require().NoError(err)
			filter, err := services.ParseOrderFilter(values)
			s.Require().NoError(err)

			orders, total, err := s.service.List(s.ctx, s.customerA, filter, firstPage())
			s.Require().NoError(err)
			s.EqualValues(len(tt.want), total)

			ids := make([]uint, 0, len(orders))
			for _, o := range orders {
				ids = append(ids, o.ID)
			}
			s.ElementsMatch(tt.want, ids)
		})
	}
}

func (s *OrderServiceSuite) TestListForAccount() {
	t := s.T()
	ordersA := []*models.Order{
		testutil.CreateOrder(t, s.db, s.customerA, models.CategoryRepair, models.StatusNew),
		testutil.CreateOrder(t, s.db, s.customerA, models.CategoryRepair, models.StatusNew),
	}
	orderB := testutil.CreateOrder(t, s.db, s.customerB, models.CategoryRepair, models.StatusNew)
	testutil.AssignWorker(t, s.db, ordersA[0], s.worker)
	testutil.AssignWorker(t, s.db, orderB, s.worker)

	s.Run("customer lists own orders", func() {
		orders, total, err := s.service.ListForAccount(s.ctx, s.customerA, s.customerA.ID, services.OrderFilter{}, firstPage())
		s.Require().NoError(err)
		s.EqualValues(2, total)
		for _, o := range orders {
			s.Equal(s.customerA.ID, o.CustomerID)
		}
	})

	s.Run("customer names another customer", func() {
		_, _, err := s.service.ListForAccount(s.ctx, s.customerA, s.customerB.ID, services.OrderFilter{}, firstPage())
		s.ErrorIs(err, errs.ErrForbidden)
	})

	s.Run("staff names a customer", func() {
		orders, total, err := s.service.ListForAccount(s.ctx, s.staff, s.customerB.ID, services.OrderFilter{}, firstPage())
		s.Require().NoError(err)
		s.EqualValues(1, total)
		s.Equal(orderB.ID, orders[0].ID)
	})

	s.Run("staff names a worker", func() {
		orders, total, err := s.service.ListForAccount(s.ctx, s.staff, s.worker.ID, services.OrderFilter{}, firstPage())
		s.Require().NoError(err)
		s.EqualValues(2, total)
		s.ElementsMatch([]uint{ordersA[0].ID, orderB.ID}, []uint{orders[0].ID, orders[1].ID})
	})

	s.Run("unknown account", func() {
		_, _, err := s.service.ListForAccount(s.ctx, s.staff, 9999, services.OrderFilter{}, firstPage())
		s.ErrorIs(err, errs.ErrNotFound)
	})
}

func (s *OrderServiceSuite) TestCustomerUpdateLeavesStatusAndWorker() {
	order := testutil.CreateOrder(s.T(), s.db, s.customerA, models.CategoryRepair, models.StatusInProgress)
	testutil.AssignWorker(s.T(), s.db, order, s.worker)
	before := s.reload(order.ID)

	updated, err := s.service.UpdateAsCustomer(s.ctx, s.customerA, order.ID, services.CustomerUpdateInput{
		Category:    "maintenance",
		Description: "changed my mind",
	})
	s.Require().NoError(err)

	after := s.reload(order.ID)
	s.Equal(models.CategoryMaintenance, updated.Category)
	s.Equal("changed my mind", after.Description)
	s.Equal(before.Status, after.Status)
	s.Equal(before.CustomerID, after.CustomerID)
	s.Require().NotNil(after.Assignment)
	s.Equal(*before.Assignment.WorkerID, *after.Assignment.WorkerID)
	s.False(after.UpdatedAt.Before(before.UpdatedAt))
	s.True(after.CreatedAt.Equal(before.CreatedAt))
	s.Empty(s.notifier.Deliveries())
}

func (s *OrderServiceSuite) TestCustomerUpdateRules() {
	order := testutil.CreateOrder(s.T(), s.db, s.customerA, models.CategoryRepair, models.StatusNew)

	_, err := s.service.UpdateAsCustomer(s.ctx, s.customerB, order.ID, services.CustomerUpdateInput{Category: "repair"})
	s.ErrorIs(err, errs.ErrForbidden)

	_, err = s.service.UpdateAsCustomer(s.ctx, s.customerA, order.ID, services.CustomerUpdateInput{Category: "bogus", Description: "x"})
	s.ErrorIs(err, errs.ErrValidationFailed)
	s.Equal(models.CategoryRepair, s.reload(order.ID).Category)
	s.NotEqual("x", s.reload(order.ID).Description)

	_, err = s.service.UpdateAsCustomer(s.ctx, s.customerA, 9999, services.CustomerUpdateInput{Category: "repair"})
	s.ErrorIs(err, errs.ErrNotFound)
}

func (s *OrderServiceSuite) TestStaffUpdateCreatesSingleAssignment() {
	order := testutil.CreateOrder(s.T(), s.db, s.customerA, models.CategoryRepair, models.StatusNew)
	s.Zero(testutil.CountAssignments(s.T(), s.db, order.ID))

	updated, err := s.service.UpdateAsStaff(s.ctx, s.staff, order.ID, services.StaffUpdateInput{
		Category: "repair",
		Status:   "in_progress",
		WorkerID: &s.worker.ID,
	})
	s.Require().NoError(err)

	s.EqualValues(1, testutil.CountAssignments(s.T(), s.db, order.ID))
	s.Equal(models.StatusInProgress, updated.Status)
	s.Require().NotNil(updated.WorkerID())
	s.Equal(s.worker.ID, *updated.WorkerID())
	s.Require().NotNil(updated.Assignment.Worker)
	s.Equal(s.worker.Email, updated.Assignment.Worker.Email)
}

func (s *OrderServiceSuite) TestStaffUpdateReusesAssignment() {
	order := testutil.CreateOrder(s.T(), s.db, s.customerA, models.CategoryRepair, models.StatusNew)
	existing := testutil.AssignWorker(s.T(), s.db, order, s.worker)

	updated, err := s.service.UpdateAsStaff(s.ctx, s.staff, order.ID, services.StaffUpdateInput{
		Category: "repair",
		Status:   "new",
		WorkerID: &s.staff.ID,
	})
	s.Require().NoError(err)

	s.EqualValues(1, testutil.CountAssignments(s.T(), s.db, order.ID))
	s.Equal(existing.ID, updated.Assignment.ID)
	s.Equal(s.staff.ID, *updated.WorkerID())
}

func (s *OrderServiceSuite) TestStaffUpdateWithoutWorkerUnassigns() {
	order := testutil.CreateOrder(s.T(), s.db, s.customerA, models.CategoryRepair, models.StatusNew)
	testutil.AssignWorker(s.T(), s.db, order, s.worker)

	updated, err := s.service.UpdateAsStaff(s.ctx, s.staff, order.ID, services.StaffUpdateInput{
		Category: "repair",
		Status:   "new",
	})
	s.Require().NoError(err)

	s.EqualValues(1, testutil.CountAssignments(s.T(), s.db, order.ID))
	s.Nil(updated.WorkerID())
}

func (s *OrderServiceSuite) TestStaffUpdateIsIdempotent() {
	order := testutil.CreateOrder(s.T(), s.db, s.customerA, models.CategoryRepair, models.StatusNew)
	input := services.StaffUpdateInput{
		Category:    "maintenance",
		Status:      "done",
		Description: "replaced filter",
		WorkerID:    &s.worker.ID,
	}

	first, err := s.service.UpdateAsStaff(s.ctx, s.staff, order.ID, input)
	s.Require().NoError(err)
	second, err := s.service.UpdateAsStaff(s.ctx, s.staff, order.ID, input)
	s.Require().NoError(err)

	s.Equal(first.Category, second.Category)
	s.Equal(first.Status, second.Status)
	s.Equal(first.Description, second.Description)
	s.Equal(first.CustomerID, second.CustomerID)
	s.Equal(first.Assignment.ID, second.Assignment.ID)
	s.Equal(*first.WorkerID(), *second.WorkerID())
	s.False(second.UpdatedAt.Before(first.UpdatedAt))
	s.EqualValues(1, testutil.CountAssignments(s.T(), s.db, order.ID))
}

func (s *OrderServiceSuite) TestStaffUpdateAnyTransition() {
	order := testutil.CreateOrder(s.T(), s.db, s.customerA, models.CategoryRepair, models.StatusDone)

	updated, err := s.service.UpdateAsStaff(s.ctx, s.staff, order.ID, services.StaffUpdateInput{Category: "repair", Status: "new"})
	s.Require().NoError(err)
	s.Equal(models.StatusNew, updated.Status)
}

func (s *OrderServiceSuite) TestStaffUpdateValidationIsAtomic() {
	order := testutil.CreateOrder(s.T(), s.db, s.customerA, models.CategoryRepair, models.StatusNew)
	before := s.reload(order.ID)

	tests := []struct {
		name  string
		input services.StaffUpdateInput
		field string
	}{
		{"unknown status", services.StaffUpdateInput{Category: "maintenance", Status: "archived"}, "status"},
		{"unknown category", services.StaffUpdateInput{Category: "gardening", Status: "done"}, "category"},
		{"customer as worker", services.StaffUpdateInput{Category: "maintenance", Status: "done", WorkerID: &s.customerB.ID}, "worker_id"},
		{"missing worker", services.StaffUpdateInput{Category: "maintenance", Status: "done", WorkerID: uintPtr(9999)}, "worker_id"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.UpdateAsStaff(s.ctx, s.staff, order.ID, tt.input)
			var validationErr *errs.ValidationError
			s.Require().ErrorAs(err, &validationErr)
			s.Equal(tt.field, validationErr.Field)

			after := s.reload(order.ID)
			s.Equal(before.Category, after.Category)
			s.Equal(before.Status, after.Status)
			s.Nil(after.Assignment)
		})
	}
}

func (s *OrderServiceSuite) TestStaffUpdateRequiresStaff() {
	order := testutil.CreateOrder(s.T(), s.db, s.customerA, models.CategoryRepair, models.StatusNew)

	_, err := s.service.UpdateAsStaff(s.ctx, s.customerA, order.ID, services.StaffUpdateInput{Category: "repair", Status: "done"})
	s.ErrorIs(err, errs.ErrForbidden)
	s.Equal(models.StatusNew, s.reload(order.ID).Status)

	_, err = s.service.UpdateAsStaff(s.ctx, nil, order.ID, services.StaffUpdateInput{Category: "repair", Status: "done"})
	s.ErrorIs(err, errs.ErrAuthenticationRequired)
}

func (s *OrderServiceSuite) TestCustomerIsInvariant() {
	order := testutil.CreateOrder(s.T(), s.db, s.customerA, models.CategoryRepair, models.StatusNew)

	_, err := s.service.UpdateAsCustomer(s.ctx, s.customerA, order.ID, services.CustomerUpdateInput{Category: "repair"})
	s.Require().NoError(err)
	_, err = s.service.UpdateAsStaff(s.ctx, s.staff, order.ID, services.StaffUpdateInput{Category: "repair", Status: "done", WorkerID: &s.worker.ID})
	s.Require().NoError(err)

	s.Equal(s.customerA.ID, s.reload(order.ID).CustomerID)
}

func (s *OrderServiceSuite) TestStaffUpdateNotifiesSubscriber() {
	subscriber := testutil.CreateCustomer(s.T(), s.db, testutil.Subscribed("777"))
	order := testutil.CreateOrder(s.T(), s.db, subscriber, models.CategoryRepair, models.StatusNew)

	updated, err := s.service.UpdateAsStaff(s.ctx, s.staff, order.ID, services.StaffUpdateInput{Category: "repair", Status: "done"})
	s.Require().NoError(err)

	deliveries := s.notifier.Deliveries()
	s.Require().Len(deliveries, 1)
	s.Equal("777", deliveries[0].SessionID)
	s.Contains(deliveries[0].Message, "DONE")
	s.Contains(deliveries[0].Message, "#"+uintString(order.ID))
	s.Equal(services.StatusMessage(updated), deliveries[0].Message)
}

func (s *OrderServiceSuite) TestFailedDeliveryKeepsUpdate() {
	subscriber := testutil.CreateCustomer(s.T(), s.db, testutil.Subscribed("777"))
	order := testutil.CreateOrder(s.T(), s.db, subscriber, models.CategoryRepair, models.StatusNew)
	s.notifier.DeliverErr = testutil.ErrDeliveryDown

	updated, err := s.service.UpdateAsStaff(s.ctx, s.staff, order.ID, services.StaffUpdateInput{Category: "repair", Status: "done"})
	s.Require().NoError(err)

	s.Len(s.notifier.Deliveries(), 1)
	s.Equal(models.StatusDone, updated.Status)
	s.Equal(models.StatusDone, s.reload(order.ID).Status)
}

func (s *OrderServiceSuite) TestNoNotificationWithoutSubscription() {
	unsubscribed := testutil.CreateCustomer(s.T(), s.db, testutil.WithContact("+123456789", "@quiet_one"))
	order := testutil.CreateOrder(s.T(), s.db, unsubscribed, models.CategoryRepair, models.StatusNew)

	_, err := s.service.UpdateAsStaff(s.ctx, s.staff, order.ID, services.StaffUpdateInput{Category: "repair", Status: "done"})
	s.Require().NoError(err)
	s.Empty(s.notifier.Deliveries())
}

func (s *OrderServiceSuite) TestEnsureAssignment() {
	order := testutil.CreateOrder(s.T(), s.db, s.customerA, models.CategoryRepair, models.StatusNew)

	first, err := s.service.EnsureAssignment(s.ctx, order.ID)
	s.Require().NoError(err)
	s.Nil(first.WorkerID)

	second, err := s.service.EnsureAssignment(s.ctx, order.ID)
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)
	s.EqualValues(1, testutil.CountAssignments(s.T(), s.db, order.ID))

	_, err = s.service.EnsureAssignment(s.ctx, 9999)
	s.ErrorIs(err, errs.ErrNotFound)
}

func (s *OrderServiceSuite) TestDelete() {
	order := testutil.CreateOrder(s.T(), s.db, s.customerA, models.CategoryRepair, models.StatusNew)
	testutil.AssignWorker(s.T(), s.db, order, s.worker)

	s.ErrorIs(s.service.Delete(s.ctx, s.customerA, order.ID), errs.ErrForbidden)
	s.Require().NoError(s.service.Delete(s.ctx, s.staff, order.ID))

	var count int64
	s.db.Model(&models.Order{}).Where("id = ?", order.ID).Count(&count)
	s.Zero(count)
	s.Zero(testutil.CountAssignments(s.T(), s.db, order.ID))

	s.ErrorIs(s.service.Delete(s.ctx, s.staff, order.ID), errs.ErrNotFound)
}

func (s *OrderServiceSuite) TestAttachImage() {
	order := testutil.CreateOrder(s.T(), s.db, s.customerA, models.CategoryRepair, models.StatusNew)

	updated, err := s.service.AttachImage(s.ctx, s.customerA, order.ID, testutil.FileHeader(s.T(), "leak.png", []byte("png bytes")))
	s.Require().NoError(err)
	s.Require().NotNil(updated.ImageS3Key)
	s.True(strings.HasPrefix(*updated.ImageS3Key, "orders/"+uintString(order.ID)+"/"))
	s.Require().NotNil(updated.ImageURL)
	s.Contains(*updated.ImageURL, *updated.ImageS3Key)
	s.Equal(1, s.storage.Count())

	firstKey := *updated.ImageS3Key
	s.db.Model(&models.Order{}).Where("id = ?", order.ID).Update("image_s3_key", firstKey+"-old")
	s.Require().NoError(s.storage.UploadFile(s.ctx, firstKey+"-old", testutil.FileHeader(s.T(), "old.png", []byte("old"))))

	replaced, err := s.service.AttachImage(s.ctx, s.staff, order.ID, testutil.FileHeader(s.T(), "second.png", []byte("new bytes")))
	s.Require().NoError(err)
	s.False(s.storage.FileExists(firstKey + "-old"))
	s.True(s.storage.FileExists(*replaced.ImageS3Key))

	s.Require().NoError(s.service.Delete(s.ctx, s.staff, order.ID))
	s.False(s.storage.FileExists(*replaced.ImageS3Key))
}

func (s *OrderServiceSuite) TestAttachImageRejections() {
	order := testutil.CreateOrder(s.T(), s.db, s.customerA, models.CategoryRepair, models.StatusNew)

	_, err := s.service.AttachImage(s.ctx, s.customerB, order.ID, testutil.FileHeader(s.T(), "x.png", []byte("x")))
	s.ErrorIs(err, errs.ErrForbidden)

	_, err = s.service.AttachImage(s.ctx, s.customerA, order.ID, testutil.FileHeader(s.T(), "x.jpg", []byte("x")))
	s.ErrorIs(err, errs.ErrValidationFailed)
	s.Zero(s.storage.Count())
}

func (s *OrderServiceSuite) TestAttachImageWithoutStorage() {
	order := testutil.CreateOrder(s.T(), s.db, s.customerA, models.CategoryRepair, models.StatusNew)
	service := services.NewOrderService(s.db, s.notifier, nil, nil, time.Second)

	_, err := service.AttachImage(s.ctx, s.customerA, order.ID, testutil.FileHeader(s.T(), "x.png", []byte("x")))
	s.ErrorIs(err, errs.ErrUnavailable)
}

func (s *OrderServiceSuite) TestExportIsScoped() {
	testutil.CreateOrder(s.T(), s.db, s.customerA, models.CategoryRepair, models.StatusNew)
	testutil.CreateOrder(s.T(), s.db, s.customerB, models.CategoryRepair, models.StatusDone)

	mine, err := s.service.Export(s.ctx, s.customerA, services.OrderFilter{})
	s.Require().NoError(err)
	s.Len(mine, 1)

	done, err := s.service.Export(s.ctx, s.staff, services.OrderFilter{Statuses: []models.Status{models.StatusDone}})
	s.Require().NoError(err)
	s.Require().Len(done, 1)
	s.Equal(s.customerB.ID, done[0].CustomerID)
}

func (s *OrderServiceSuite) TestExportLoadsCustomerContact() {
	customer := testutil.CreateCustomer(s.T(), s.db, testutil.WithContact("+123456789", ""))
	testutil.CreateOrder(s.T(), s.db, customer, models.CategoryMaintenance, models.StatusNew)

	orders, err := s.service.Export(s.ctx, customer, services.OrderFilter{})
	s.Require().NoError(err)
	s.Require().Len(orders, 1)
	s.Require().NotNil(orders[0].Customer)
	s.Require().NotNil(orders[0].Customer.Contact)
	s.Equal("Springfield 12", orders[0].Customer.Contact.Address())
}

func TestParseOrderFilterErrors(t *testing.T) {
	tests := []struct {
		query string
		field string
	}{
		{"status=closed", "status"},
		{"category=plumbing", "category"},
		{"created_date=10.03.2024", "created_date"},
		{"created_after=yesterday", "created_after"},
		{"created_before=2024-13-01", "created_before"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			_, err = services.ParseOrderFilter(values)
			var validationErr *errs.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}
}

func uintPtr(v uint) *uint {
	return &v
}

func uintString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
