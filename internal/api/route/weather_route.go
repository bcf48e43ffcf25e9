package route

import (
	"github.com/bassista/go_weather/internal/api/controller"
	"github.com/gin-gonic/gin"
)

func NewWeatherRouter(group *gin.RouterGroup, service controller.CurrentWeatherService) {
	wc := controller.NewWeatherController(service)

	group.GET("/", wc.Root)
	group.GET("/health", wc.Health)
	group.GET("/weather", wc.CurrentWeather)
}
