package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	HealthPath        = "/health"
	healthStatusOK    = "healthy"
	healthServiceName = "sriox-dashboard"
)

// Health reports liveness.
func Health(context *gin.Context) {
	context.JSON(http.StatusOK, gin.H{"status": healthStatusOK, "service": healthServiceName})
}
