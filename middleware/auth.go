package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/service-crm-api/config"
	"github.com/kendall-kelly/service-crm-api/errs"
	"github.com/kendall-kelly/service-crm-api/models"
	"github.com/kendall-kelly/service-crm-api/utils"
)

const (
	accountIDKey = "account_id"
	accountKey   = "account"
)

// NewTokenValidator builds an HS256 validator for tokens signed with JWT_SECRET
func NewTokenValidator(cfg *config.Config) (*validator.Validator, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is not configured")
	}
	secret := []byte(cfg.JWTSecret)
	keyFunc := func(context.Context) (interface{}, error) {
		return secret, nil
	}

	jwtValidator, err := validator.New(
		keyFunc,
		validator.HS256,
		cfg.JWTIssuer,
		[]string{cfg.JWTAudience},
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set up the jwt validator: %w", err)
	}
	return jwtValidator, nil
}

// EnsureValidToken is a middleware that checks the bearer token and stores
// the account id from its subject
func EnsureValidToken(jwtValidator *validator.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := jwtmiddleware.AuthHeaderTokenExtractor(c.Request)
		if err != nil {
			utils.RespondError(c, fmt.Errorf("%w: %v", errs.ErrAuthenticationRequired, err))
			return
		}
		if token == "" {
			utils.RespondError(c, fmt.Errorf("%w: missing bearer token", errs.ErrAuthenticationRequired))
			return
		}

		validated, err := jwtValidator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			Logger(c).Debug("token rejected", "error", err)
			utils.RespondError(c, fmt.Errorf("%w: %v", errs.ErrAuthenticationRequired, err))
			return
		}

		claims, ok := validated.(*validator.ValidatedClaims)
		if !ok {
			utils.RespondError(c, fmt.Errorf("%w: unexpected claims type", errs.ErrAuthenticationRequired))
			return
		}

		accountID, err := strconv.ParseUint(claims.RegisteredClaims.Subject, 10, 64)
		if err != nil || accountID == 0 {
			utils.RespondError(c, fmt.Errorf("%w: invalid token subject", errs.ErrAuthenticationRequired))
			return
		}

		c.Set(accountIDKey, uint(accountID))
		c.Next()
	}
}

// AccountFinder loads the account behind a validated token
type AccountFinder interface {
	FindActive(ctx context.Context, id uint) (*models.Account, error)
}

// LoadAccount re-loads the caller's account on every request.
// Missing or inactive accounts are rejected with 401.
func LoadAccount(accounts AccountFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, err := GetAccountID(c)
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		account, err := accounts.FindActive(c.Request.Context(), accountID)
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		SetCurrentAccount(c, account)
		c.Next()
	}
}

// GetAccountID extracts the account id stored by EnsureValidToken
func GetAccountID(c *gin.Context) (uint, error) {
	value, exists := c.Get(accountIDKey)
	if !exists {
		return 0, fmt.Errorf("%w: account id not found in context", errs.ErrAuthenticationRequired)
	}

	id, ok := value.(uint)
	if !ok {
		return 0, fmt.Errorf("%w: account id is not a uint", errs.ErrAuthenticationRequired)
	}
	return id, nil
}

// SetCurrentAccount stores the authenticated account
func SetCurrentAccount(c *gin.Context, account *models.Account) {
	c.Set(accountKey, account)
	c.Set(accountIDKey, account.ID)
}

// CurrentAccount returns the authenticated account, or nil for anonymous requests
func CurrentAccount(c *gin.Context) *models.Account {
	value, exists := c.Get(accountKey)
	if !exists {
		return nil
	}
	account, _ := value.(*models.Account)
	return account
}
