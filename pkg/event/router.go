package event

import "github.com/gin-gonic/gin"

func Routes(r *gin.RouterGroup, handler Handler) {
	r.GET("/events", handler.Stream)
}
