package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// parseIDParam reads a positive integer path parameter. On failure it writes
// a 400 response and reports false.
func parseIDParam(c *gin.Context, param string) (int, bool) {
	idStr := strings.TrimSpace(c.Param(param))
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "must be a positive integer",
			Code:    CodeInvalidRequest,
		})
		return 0, false
	}
	return id, true
}

func parseIntQuery(c *gin.Context, param string, defaultValue int) int {
	valueStr := c.Query(param)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
