package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/service-crm-api/errs"
)

// pathID parses the :id path parameter
func pathID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errs.NewValidationError("id", "must be a positive integer")
	}
	return uint(id), nil
}
