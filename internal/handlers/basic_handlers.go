package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"paylink-backend/internal/db"
)

// HealthCheckHandler handles GET /health
func HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "paylink-backend",
	})
}

// DatabaseHealthCheckHandler handles GET /health/db
// Verify the database connection is alive
func DatabaseHealthCheckHandler(c *gin.Context) {
	if db.DB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"error":  "database not initialized",
		})
		return
	}

	sqlDB, err := db.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
