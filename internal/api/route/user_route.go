package route

import (
	"github.com/bassista/go_weather/internal/api/controller"
	"github.com/gin-gonic/gin"
)

func NewUserRouter(group *gin.RouterGroup, service controller.UserService) {
	uc := controller.NewUserController(service)

	group.POST("/register_user", uc.RegisterUser)
	group.GET("/database", uc.Database)
	group.POST("/reset_database", uc.ResetDatabase)
}
