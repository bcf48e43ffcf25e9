package route

import (
	"net/http"

	"github.com/bassista/go_weather/internal/api/middleware"
	"github.com/bassista/go_weather/internal/app"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRoutes builds the engine with the middleware chain and every endpoint.
func SetupRoutes(appCtx *app.App, logger *logrus.Logger) *gin.Engine {
	return newEngine(appCtx, middleware.HoneybadgerMiddleware(logger))
}

// newEngine registers reporter inside gin.Recovery so it sees handler panics
// before Recovery turns them into a 500.
func newEngine(appCtx *app.App, reporter gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	r.Use(gin.Recovery())
	r.Use(reporter)
	r.Use(middleware.CORSMiddleware(appCtx.Config.Server.CORSAllowedOrigins))
	r.Use(middleware.RequestTimeout(appCtx.Config.Server.RequestTimeout))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	publicRouter := r.Group("")

	NewWeatherRouter(publicRouter, appCtx.Tracker)
	NewUserRouter(publicRouter, appCtx.Tracker)
	NewCityRouter(publicRouter, appCtx.Tracker)

	return r
}
