package server

import (
	"log/slog"

	"github.com/dhis2-sre/im-dbaas/internal/middleware"
	"github.com/dhis2-sre/im-dbaas/pkg/cluster"
	"github.com/dhis2-sre/im-dbaas/pkg/dbcluster"
	"github.com/dhis2-sre/im-dbaas/pkg/event"
	"github.com/dhis2-sre/im-dbaas/pkg/health"
	"github.com/dhis2-sre/im-dbaas/pkg/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	redocMiddleware "github.com/go-openapi/runtime/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Handlers struct {
	Cluster   cluster.Handler
	DBCluster dbcluster.Handler
	Session   session.Handler
	Event     event.Handler
}

func GetEngine(logger *slog.Logger, serviceName, basePath string, handlers Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowCredentials = true
	corsConfig.AddAllowHeaders("authorization")
	r.Use(cors.New(corsConfig))

	r.Use(otelgin.Middleware(serviceName))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.ErrorHandler())

	router := r.Group(basePath)

	redoc(router, basePath)

	router.GET("/health", health.Health)

	cluster.Routes(router, handlers.Cluster)
	dbcluster.Routes(router, handlers.DBCluster)
	session.Routes(router, handlers.Session)
	event.Routes(router, handlers.Event)

	return r
}

func redoc(router *gin.RouterGroup, basePath string) {
	router.StaticFile("/swagger.yaml", "./swagger/swagger.yaml")

	redocOpts := redocMiddleware.RedocOpts{
		BasePath: basePath,
		SpecURL:  "./swagger.yaml",
	}
	router.GET("/docs", func(c *gin.Context) {
		redocHandler := redocMiddleware.Redoc(redocOpts, nil)
		redocHandler.ServeHTTP(c.Writer, c.Request)
	})
}
