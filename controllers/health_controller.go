package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/service-crm-api/utils"
	"gorm.io/gorm"
)

// HealthController serves liveness and readiness probes
type HealthController struct {
	db *gorm.DB
}

// NewHealthController creates a health controller
func NewHealthController(db *gorm.DB) *HealthController {
	return &HealthController{db: db}
}

// Health handles GET /api/v1/health
func (h *HealthController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Service CRM API is running",
	})
}

// DatabaseStatus handles GET /api/v1/database/status - pings the database and lists its tables
func (h *HealthController) DatabaseStatus(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, utils.ErrorBody{
			Code:    "DATABASE_ERROR",
			Message: "Failed to get database instance",
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		utils.Error(c, http.StatusServiceUnavailable, utils.ErrorBody{
			Code:    "DATABASE_CONNECTION_ERROR",
			Message: "Database connection failed",
		})
		return
	}

	tables, err := h.db.WithContext(c.Request.Context()).Migrator().GetTables()
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, utils.ErrorBody{
			Code:    "DATABASE_QUERY_ERROR",
			Message: "Failed to query tables",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
