package controller

import (
	"context"
	"net/http"

	"github.com/bassista/go_weather/internal/repository"
	"github.com/gin-gonic/gin"
)

// UserService covers registration and whole-store operations.
type UserService interface {
	RegisterUser(ctx context.Context, username string) (int, error)
	Database() (repository.DataDocument, error)
	Reset(ctx context.Context) error
}

type registerQuery struct {
	Username string `form:"username" binding:"required"`
}

// RegisterResponse is returned by POST /register_user.
type RegisterResponse struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
}

// UserController handles user and database endpoints.
type UserController struct {
	service UserService
}

func NewUserController(service UserService) *UserController {
	return &UserController{service: service}
}

// RegisterUser handles POST /register_user?username.
func (uc *UserController) RegisterUser(c *gin.Context) {
	log := requestLog(c, "user-controller")
	var q registerQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badQuery(c, log, err)
		return
	}

	id, err := uc.service.RegisterUser(c.Request.Context(), q.Username)
	if err != nil {
		respondError(c, log, err)
		return
	}
	log.Debugf("user %q registered with id %d", q.Username, id)
	c.JSON(http.StatusOK, RegisterResponse{UserID: id, Username: q.Username})
}

// Database handles GET /database and returns the whole store.
func (uc *UserController) Database(c *gin.Context) {
	doc, err := uc.service.Database()
	if err != nil {
		respondError(c, requestLog(c, "user-controller"), err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// ResetDatabase handles POST /reset_database.
func (uc *UserController) ResetDatabase(c *gin.Context) {
	log := requestLog(c, "user-controller")
	if err := uc.service.Reset(c.Request.Context()); err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Database has been reset"})
}
