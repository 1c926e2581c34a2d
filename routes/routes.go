// Package routes assembles the HTTP surface of the service
package routes

import (
	"fmt"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/service-crm-api/config"
	"github.com/kendall-kelly/service-crm-api/controllers"
	"github.com/kendall-kelly/service-crm-api/logger"
	"github.com/kendall-kelly/service-crm-api/middleware"
	"github.com/kendall-kelly/service-crm-api/services"
	"github.com/kendall-kelly/service-crm-api/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Dependencies are the collaborators the router wires into its handlers.
// Notifier, Mailer, Images and Hasher are optional.
type Dependencies struct {
	Config   *config.Config
	DB       *gorm.DB
	Notifier services.Notifier
	Mailer   services.Mailer
	Images   services.ImageService
	Hasher   services.PasswordHasher
}

// Setup builds the gin engine with every /api/v1 route
func Setup(deps Dependencies) (*gin.Engine, error) {
	cfg := deps.Config
	if deps.Notifier == nil {
		deps.Notifier = services.DisabledNotifier{}
	}
	if deps.Mailer == nil {
		deps.Mailer = services.NewLogMailer(logger.WithComponent("mailer"), cfg.PublicBaseURL)
	}
	if deps.Hasher == nil {
		deps.Hasher = services.NewBcryptPasswordHasher(bcrypt.DefaultCost)
	}

	if err := utils.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	tokenValidator, err := middleware.NewTokenValidator(cfg)
	if err != nil {
		return nil, err
	}

	accounts := services.NewAccountService(deps.DB, deps.Hasher, deps.Mailer, deps.Notifier, logger.WithComponent("accounts"))
	orders := services.NewOrderService(deps.DB, deps.Notifier, deps.Images, logger.WithComponent("orders"), cfg.NotifyTimeout)

	health := controllers.NewHealthController(deps.DB)
	auth := controllers.NewAuthController(accounts, services.NewTokenIssuer(cfg))
	orderHandlers := controllers.NewOrderController(orders)
	users := controllers.NewUserController(accounts, cfg.TelegramBotName)

	httpLog := logger.WithComponent("http")
	router := gin.New()
	router.MaxMultipartMemory = utils.MaxFileSize + 1<<20
	router.Use(
		middleware.RequestLogger(httpLog),
		middleware.Recovery(httpLog),
		cors.New(corsConfig(cfg)),
	)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", health.Health)
		v1.GET("/database/status", health.DatabaseStatus)

		v1.POST("/auth/register", auth.Register)
		v1.POST("/auth/login", auth.Login)
		v1.GET("/auth/verify/:token", auth.Verify)

		v1.GET("/subscription/confirm", users.SubscriptionConfirm)
	}

	protected := v1.Group("", middleware.EnsureValidToken(tokenValidator), middleware.LoadAccount(accounts))
	{
		protected.GET("/orders", orderHandlers.ListOrders)
		protected.POST("/orders", orderHandlers.CreateOrder)
		protected.GET("/orders/export", orderHandlers.ExportOrders)
		protected.GET("/orders/:id", orderHandlers.GetOrder)
		protected.PUT("/orders/:id", orderHandlers.UpdateOrder)
		protected.PUT("/orders/:id/staff", orderHandlers.StaffUpdateOrder)
		protected.DELETE("/orders/:id", orderHandlers.DeleteOrder)
		protected.POST("/orders/:id/image", orderHandlers.UploadOrderImage)

		protected.GET("/users", users.ListUsers)
		protected.GET("/users/me", users.GetCurrentUser)
		protected.POST("/users/me/subscription", users.Subscribe)
		protected.DELETE("/users/me/subscription", users.Unsubscribe)
		protected.GET("/users/:id", users.GetUser)
		protected.PUT("/users/:id", users.UpdateUser)
		protected.GET("/users/:id/orders", orderHandlers.ListAccountOrders)
	}

	return router, nil
}

func corsConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORSAllowedOrigins) == 0 || slices.Contains(cfg.CORSAllowedOrigins, "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORSAllowedOrigins
	}
	return corsCfg
}
