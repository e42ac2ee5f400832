package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Account deletion and per-user statistics are owned by the account
// service; these endpoints exist so mobile clients get a stable error
// instead of a 404.

func DeleteAccount(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{
		"success": false,
		"error":   "NOT_IMPLEMENTED",
		"message": "account deletion is not available on this service",
	})
}

func UserStats(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{
		"success": false,
		"error":   "NOT_IMPLEMENTED",
		"message": "user statistics are not available on this service",
	})
}
