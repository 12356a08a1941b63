package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// parseStockID extracts and validates the ":id" path parameter shared
// by the stock-scoped routes, writing a 400 response itself on
// failure so callers can simply bail out when ok is false.
func parseStockID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "stock id must be a positive integer"})
		return 0, false
	}
	return id, true
}
