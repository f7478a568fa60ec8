package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// swagger:response Health
type _ struct {
	// in: body
	Body struct {
		Status string `json:"status"`
	}
}

// Health reports whether the service is up
func Health(c *gin.Context) {
	// swagger:route GET /health health
	//
	// Health status
	//
	// Show service health status
	//
	// responses:
	//   200: Health
	c.JSON(http.StatusOK, gin.H{"status": "up"})
}
