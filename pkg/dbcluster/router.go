package dbcluster

import "github.com/gin-gonic/gin"

func Routes(r *gin.RouterGroup, handler Handler) {
	r.GET("/operations", handler.Operations)

	clusters := r.Group("/kubernetes/:kubernetesCluster/clusters")
	clusters.GET("", handler.FindAll)
	clusters.POST("", handler.Create)
	clusters.PUT("/:name", handler.Update)
	clusters.DELETE("/:name", handler.Delete)
	clusters.PUT("/:name/restart", handler.Restart)
	clusters.PUT("/:name/suspend", handler.Suspend)
	clusters.PUT("/:name/resume", handler.Resume)
	clusters.PUT("/:name/suspension", handler.ToggleSuspension)
	clusters.PUT("/:name/upgrade", handler.Upgrade)
	clusters.GET("/:name/credentials", handler.Credentials)
	clusters.GET("/:name/logs", handler.Logs)
}
