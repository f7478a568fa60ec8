package cluster

import (
	"github.com/gin-gonic/gin"
)

func Routes(r *gin.RouterGroup, handler Handler) {
	r.GET("/kubernetes", handler.FindAll)
	r.POST("/kubernetes", handler.Register)
	r.DELETE("/kubernetes/:kubernetesCluster", handler.Unregister)
	r.GET("/kubernetes/:kubernetesCluster/resources", handler.Resources)
	r.GET("/kubernetes/:kubernetesCluster/usage", handler.Usage)
}
