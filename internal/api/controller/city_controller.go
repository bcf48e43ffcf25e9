package controller

import (
	"context"
	"net/http"

	"github.com/bassista/go_weather/internal/weather"
	"github.com/gin-gonic/gin"
)

// CityService covers the per-user city operations.
type CityService interface {
	TrackCity(ctx context.Context, userID int, city string, lat, lon float64) error
	TrackedCities(userID int) ([]string, error)
	CityWeather(ctx context.Context, userID int, city, timestamp string, params []string) (map[string]*float64, error)
}

type userQuery struct {
	UserID *int `form:"user_id" binding:"required"`
}

type trackQuery struct {
	UserID *int     `form:"user_id" binding:"required"`
	City   string   `form:"city" binding:"required"`
	Lat    *float64 `form:"lat" binding:"required,latitude"`
	Lon    *float64 `form:"lon" binding:"required,longitude"`
}

type cityWeatherQuery struct {
	UserID     *int   `form:"user_id" binding:"required"`
	City       string `form:"city" binding:"required"`
	Time       string `form:"time" binding:"required"`
	Parameters string `form:"parameters"`
}

// CityController handles tracked-city endpoints.
type CityController struct {
	service CityService
}

func NewCityController(service CityService) *CityController {
	return &CityController{service: service}
}

// TrackCity handles POST /track_city?user_id&city&lat&lon.
// The city stays tracked when the initial weather fetch fails; the failure is still reported.
func (cc *CityController) TrackCity(c *gin.Context) {
	log := requestLog(c, "city-controller")
	var q trackQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badQuery(c, log, err)
		return
	}

	if err := cc.service.TrackCity(c.Request.Context(), *q.UserID, q.City, *q.Lat, *q.Lon); err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Start weather tracking for " + q.City})
}

// TrackedCities handles GET /tracked_cities?user_id.
func (cc *CityController) TrackedCities(c *gin.Context) {
	log := requestLog(c, "city-controller")
	var q userQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badQuery(c, log, err)
		return
	}

	names, err := cc.service.TrackedCities(*q.UserID)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, names)
}

// CityWeather handles GET /city_weather?user_id&city&time&parameters.
func (cc *CityController) CityWeather(c *gin.Context) {
	log := requestLog(c, "city-controller")
	var q cityWeatherQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badQuery(c, log, err)
		return
	}

	values, err := cc.service.CityWeather(c.Request.Context(), *q.UserID, q.City, q.Time, weather.ParseParameters(q.Parameters))
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, values)
}
