package session

import "github.com/gin-gonic/gin"

func Routes(r *gin.RouterGroup, handler Handler) {
	sessions := r.Group("/sessions")
	sessions.POST("", handler.Open)
	sessions.GET("/:id", handler.Find)
	sessions.PUT("/:id/configuration", handler.Configure)
	sessions.PUT("/:id/target", handler.SetTarget)
	sessions.DELETE("/:id", handler.Close)
}
