package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/bassista/go_weather/internal/api/middleware"
	"github.com/bassista/go_weather/internal/cache"
	"github.com/bassista/go_weather/internal/logger"
	"github.com/bassista/go_weather/internal/weather"
	"github.com/containerd/errdefs"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// statusFor maps an error class to the HTTP status and the message returned to clients.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, cache.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, cache.ErrCityNotFound):
		return http.StatusNotFound, "City not being tracked"
	case errors.Is(err, weather.ErrTimeNotFound):
		return http.StatusNotFound, "Time not found in forecast"
	case errors.Is(err, cache.ErrUsernameTaken):
		return http.StatusBadRequest, "Username already exists"
	case errdefs.IsNotFound(err):
		return http.StatusNotFound, err.Error()
	case errdefs.IsAlreadyExists(err), errdefs.IsInvalidArgument(err):
		return http.StatusBadRequest, err.Error()
	case errdefs.IsUnavailable(err):
		return http.StatusBadGateway, "weather service unavailable: " + err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timeout"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// respondError writes {"error": msg} with the status matching err and logs it.
func respondError(c *gin.Context, log *logrus.Entry, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	} else {
		log.Debugf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": msg})
}

func badQuery(c *gin.Context, log *logrus.Entry, err error) {
	log.Debugf("%s %s: invalid query: %v", c.Request.Method, c.FullPath(), err)
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query: " + err.Error()})
}

// requestLog returns a component logger tagged with the request id.
func requestLog(c *gin.Context, component string) *logrus.Entry {
	entry := logger.WithComponent(component)
	if id := middleware.RequestID(c); id != "" {
		entry = entry.WithField("request_id", id)
	}
	return entry
}
