package controller

import (
	"context"
	"net/http"

	"github.com/bassista/go_weather/internal/tracker"
	"github.com/gin-gonic/gin"
)

// CurrentWeatherService fetches conditions for raw coordinates.
type CurrentWeatherService interface {
	CurrentWeather(ctx context.Context, lat, lon float64) (tracker.CurrentReport, error)
}

type coordinatesQuery struct {
	Lat *float64 `form:"lat" binding:"required,latitude"`
	Lon *float64 `form:"lon" binding:"required,longitude"`
}

// WeatherController handles the stateless endpoints.
type WeatherController struct {
	service CurrentWeatherService
}

func NewWeatherController(service CurrentWeatherService) *WeatherController {
	return &WeatherController{service: service}
}

// Root handles GET /.
func (wc *WeatherController) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "API launched"})
}

// Health handles GET /health.
func (wc *WeatherController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "UP"})
}

// CurrentWeather handles GET /weather?lat&lon.
func (wc *WeatherController) CurrentWeather(c *gin.Context) {
	log := requestLog(c, "weather-controller")
	var q coordinatesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badQuery(c, log, err)
		return
	}

	log.Debugf("GET /weather lat=%v lon=%v", *q.Lat, *q.Lon)
	report, err := wc.service.CurrentWeather(c.Request.Context(), *q.Lat, *q.Lon)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
