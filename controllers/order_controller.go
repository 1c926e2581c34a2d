package controllers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/service-crm-api/middleware"
	"github.com/kendall-kelly/service-crm-api/services"
	"github.com/kendall-kelly/service-crm-api/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CreateOrderRequest represents the request body for creating an order.
// customer_id is only accepted from staff.
type CreateOrderRequest struct {
	CustomerID  *uint  `json:"customer_id"`
	Category    string `json:"category" binding:"omitempty,order_category"`
	Description string `json:"description" binding:"max=4000"`
}

// UpdateOrderRequest represents the request body of a customer update.
// Any status or worker_id in the body is ignored.
type UpdateOrderRequest struct {
	Category    string `json:"category" binding:"required,order_category"`
	Description string `json:"description" binding:"max=4000"`
}

// StaffUpdateOrderRequest represents the request body of a staff update.
// An absent worker_id leaves the order unassigned.
type StaffUpdateOrderRequest struct {
	Category    string `json:"category" binding:"required,order_category"`
	Status      string `json:"status" binding:"required,order_status"`
	Description string `json:"description" binding:"max=4000"`
	WorkerID    *uint  `json:"worker_id"`
}

// OrderController exposes the order workflow over HTTP
type OrderController struct {
	orders *services.OrderService
}

// NewOrderController creates an order controller
func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

// ListOrders handles GET /api/v1/orders - staff see every order, customers their own
func (h *OrderController) ListOrders(c *gin.Context) {
	filter, err := services.ParseOrderFilter(c.Request.URL.Query())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	page := utils.ParsePagination(c, utils.DefaultOrderPageSize)

	orders, total, err := h.orders.List(c.Request.Context(), middleware.CurrentAccount(c), filter, page)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessPage(c, orders, page.Info(total))
}

// ListAccountOrders handles GET /api/v1/users/:id/orders
func (h *OrderController) ListAccountOrders(c *gin.Context) {
	accountID, err := pathID(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	filter, err := services.ParseOrderFilter(c.Request.URL.Query())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	page := utils.ParsePagination(c, utils.DefaultOrderPageSize)

	orders, total, err := h.orders.ListForAccount(c.Request.Context(), middleware.CurrentAccount(c), accountID, filter, page)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessPage(c, orders, page.Info(total))
}

// ExportOrders handles GET /api/v1/orders/export - the visible orders as an xlsx workbook
func (h *OrderController) ExportOrders(c *gin.Context) {
	filter, err := services.ParseOrderFilter(c.Request.URL.Query())
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	orders, err := h.orders.Export(c.Request.Context(), middleware.CurrentAccount(c), filter)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := services.WriteOrdersXLSX(&buf, orders); err != nil {
		utils.RespondError(c, err)
		return
	}

	filename := fmt.Sprintf("orders_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// GetOrder handles GET /api/v1/orders/:id
func (h *OrderController) GetOrder(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	order, err := h.orders.Get(c.Request.Context(), middleware.CurrentAccount(c), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, http.StatusOK, order)
}

// CreateOrder handles POST /api/v1/orders
func (h *OrderController) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	order, err := h.orders.Create(c.Request.Context(), middleware.CurrentAccount(c), services.CreateOrderInput{
		CustomerID:  req.CustomerID,
		Category:    req.Category,
		Description: req.Description,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, http.StatusCreated, order)
}

// UpdateOrder handles PUT /api/v1/orders/:id - the owner's category and description
func (h *OrderController) UpdateOrder(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	var req UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	order, err := h.orders.UpdateAsCustomer(c.Request.Context(), middleware.CurrentAccount(c), id, services.CustomerUpdateInput{
		Category:    req.Category,
		Description: req.Description,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, http.StatusOK, order)
}

// StaffUpdateOrder handles PUT /api/v1/orders/:id/staff
func (h *OrderController) StaffUpdateOrder(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	var req StaffUpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	order, err := h.orders.UpdateAsStaff(c.Request.Context(), middleware.CurrentAccount(c), id, services.StaffUpdateInput{
		Category:    req.Category,
		Status:      req.Status,
		Description: req.Description,
		WorkerID:    req.WorkerID,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, http.StatusOK, order)
}

// DeleteOrder handles DELETE /api/v1/orders/:id
func (h *OrderController) DeleteOrder(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	if err := h.orders.Delete(c.Request.Context(), middleware.CurrentAccount(c), id); err != nil {
		utils.RespondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// UploadOrderImage handles POST /api/v1/orders/:id/image (multipart field "image")
func (h *OrderController) UploadOrderImage(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		utils.Error(c, http.StatusBadRequest, utils.ErrorBody{
			Code:    "INVALID_FORM",
			Message: "Request must be multipart/form-data",
			Details: err.Error(),
		})
		return
	}

	order, err := h.orders.AttachImage(c.Request.Context(), middleware.CurrentAccount(c), id, fileHeader)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, http.StatusOK, order)
}
