package route

import (
	"github.com/bassista/go_weather/internal/api/controller"
	"github.com/gin-gonic/gin"
)

func NewCityRouter(group *gin.RouterGroup, service controller.CityService) {
	cc := controller.NewCityController(service)

	group.POST("/track_city", cc.TrackCity)
	group.GET("/tracked_cities", cc.TrackedCities)
	group.GET("/city_weather", cc.CityWeather)
}
