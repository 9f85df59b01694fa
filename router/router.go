// router/router.go

package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dev-mohitbeniwal/echo-cse/middleware"
)

// SetupRouter builds the engine serving the CSE. extra middleware (auth,
// rate limiting) runs after recovery and request logging.
func SetupRouter(handler *CSEHandler, extra ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/")
	api.Use(extra...)
	handler.RegisterRoutes(api)

	return router
}
