package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/service-crm-api/middleware"
	"github.com/kendall-kelly/service-crm-api/services"
	"github.com/kendall-kelly/service-crm-api/utils"
)

// ContactRequest holds the contact part of a profile update
type ContactRequest struct {
	Phone     string `json:"phone" binding:"required,phone"`
	Telegram  string `json:"telegram" binding:"omitempty,telegram_handle"`
	City      string `json:"city" binding:"required,max=50"`
	Street    string `json:"street" binding:"max=100"`
	House     string `json:"house" binding:"required,max=15"`
	Structure string `json:"structure" binding:"max=15"`
	Building  string `json:"building" binding:"max=15"`
	Apartment string `json:"apartment" binding:"max=15"`
}

// UpdateProfileRequest represents the request body for updating an account profile
type UpdateProfileRequest struct {
	FirstName string         `json:"first_name" binding:"required,max=20"`
	LastName  string         `json:"last_name" binding:"required,max=25"`
	Contact   ContactRequest `json:"contact"`
	IsActive  *bool          `json:"is_active"`
}

// SubscriptionInfo is the public subscription confirmation page
type SubscriptionInfo struct {
	BotName      string `json:"bot_name"`
	BotURL       string `json:"bot_url,omitempty"`
	Instructions string `json:"instructions"`
}

// UserController handles profiles, the account directory and chat subscriptions
type UserController struct {
	accounts *services.AccountService
	botName  string
}

// NewUserController creates a user controller. botName is the chat bot customers message before subscribing.
func NewUserController(accounts *services.AccountService, botName string) *UserController {
	return &UserController{accounts: accounts, botName: botName}
}

// GetCurrentUser handles GET /api/v1/users/me
func (h *UserController) GetCurrentUser(c *gin.Context) {
	account := middleware.CurrentAccount(c)
	if account == nil {
		utils.Error(c, http.StatusUnauthorized, utils.ErrorBody{Code: "AUTHENTICATION_REQUIRED", Message: "Authentication required"})
		return
	}

	utils.Success(c, http.StatusOK, account)
}

// ListUsers handles GET /api/v1/users - staff only
func (h *UserController) ListUsers(c *gin.Context) {
	filter, err := services.ParseAccountFilter(c.Request.URL.Query())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	page := utils.ParsePagination(c, utils.DefaultUserPageSize)

	accounts, total, err := h.accounts.List(c.Request.Context(), middleware.CurrentAccount(c), filter, page)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessPage(c, accounts, page.Info(total))
}

// GetUser handles GET /api/v1/users/:id
func (h *UserController) GetUser(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	account, err := h.accounts.Get(c.Request.Context(), middleware.CurrentAccount(c), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, http.StatusOK, account)
}

// UpdateUser handles PUT /api/v1/users/:id - names and contact details.
// Staff may also switch is_active.
func (h *UserController) UpdateUser(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	account, err := h.accounts.UpdateProfile(c.Request.Context(), middleware.CurrentAccount(c), id, services.ProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Contact: services.ContactInput{
			Phone:     req.Contact.Phone,
			Telegram:  req.Contact.Telegram,
			City:      req.Contact.City,
			Street:    req.Contact.Street,
			House:     req.Contact.House,
			Structure: req.Contact.Structure,
			Building:  req.Contact.Building,
			Apartment: req.Contact.Apartment,
		},
		IsActive: req.IsActive,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, http.StatusOK, account)
}

// SubscriptionConfirm handles GET /api/v1/subscription/confirm - public
func (h *UserController) SubscriptionConfirm(c *gin.Context) {
	info := SubscriptionInfo{
		BotName:      h.botName,
		Instructions: "Send any message to the bot, then confirm your subscription from your profile.",
	}
	if h.botName != "" {
		info.BotURL = fmt.Sprintf("https://t.me/%s", h.botName)
	}

	utils.Success(c, http.StatusOK, info)
}

// Subscribe handles POST /api/v1/users/me/subscription
func (h *UserController) Subscribe(c *gin.Context) {
	account, err := h.accounts.Subscribe(c.Request.Context(), middleware.CurrentAccount(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, http.StatusOK, account)
}

// Unsubscribe handles DELETE /api/v1/users/me/subscription
func (h *UserController) Unsubscribe(c *gin.Context) {
	account, err := h.accounts.Unsubscribe(c.Request.Context(), middleware.CurrentAccount(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, http.StatusOK, account)
}
