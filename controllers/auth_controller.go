package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/service-crm-api/models"
	"github.com/kendall-kelly/service-crm-api/services"
	"github.com/kendall-kelly/service-crm-api/utils"
)

// RegisterRequest represents the request body for self-service registration
type RegisterRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" binding:"required"`
	FirstName       string `json:"first_name" binding:"max=20"`
	LastName        string `json:"last_name" binding:"max=25"`
}

// LoginRequest represents the request body for logging in
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is returned by a successful login
type LoginResponse struct {
	*services.IssuedToken
	Account *models.Account `json:"account"`
}

// AuthController handles registration, login and email verification
type AuthController struct {
	accounts *services.AccountService
	tokens   *services.TokenIssuer
}

// NewAuthController creates an auth controller
func NewAuthController(accounts *services.AccountService, tokens *services.TokenIssuer) *AuthController {
	return &AuthController{accounts: accounts, tokens: tokens}
}

// Register handles POST /api/v1/auth/register
func (h *AuthController) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	account, err := h.accounts.Register(c.Request.Context(), services.RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, http.StatusCreated, account)
}

// Login handles POST /api/v1/auth/login - exchanges credentials for a bearer token
func (h *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	account, err := h.accounts.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	token, err := h.tokens.Issue(account)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, http.StatusOK, LoginResponse{IssuedToken: token, Account: account})
}

// Verify handles GET /api/v1/auth/verify/:token
func (h *AuthController) Verify(c *gin.Context) {
	account, err := h.accounts.Verify(c.Request.Context(), c.Param("token"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, http.StatusOK, account)
}
