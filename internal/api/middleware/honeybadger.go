package middleware

import (
	"fmt"
	"net/http"
	"os"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	honeybadger "github.com/honeybadger-io/honeybadger-go"
	"github.com/sirupsen/logrus"
)

// Notifier is the subset of the honeybadger client used by the middleware.
type Notifier interface {
	Notify(err interface{}, extra ...interface{}) (string, error)
}

// HoneybadgerMiddleware reports panics and failed requests to Honeybadger when
// HONEYBADGER_API_KEY is set. Otherwise it is a no-op.
func HoneybadgerMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	apiKey := os.Getenv("HONEYBADGER_API_KEY")
	if apiKey == "" {
		logger.Info("Honeybadger is not active. To enable error reporting, set the HONEYBADGER_API_KEY environment variable.")
		return func(c *gin.Context) {
			c.Next()
		}
	}

	client := honeybadger.New(honeybadger.Configuration{
		APIKey: apiKey,
		Env:    os.Getenv("GO_ENV"),
	})
	logger.Info("Honeybadger error reporting is enabled.")
	return notifyingMiddleware(client, logger)
}

// notifyingMiddleware notifies on panics (then re-panics so gin.Recovery answers),
// on 5xx responses, and on 4xx other than 404. Upstream failures (502) are tagged separately.
func notifyingMiddleware(n Notifier, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				_, _ = n.Notify(fmt.Sprintf("Panic: %s %s", c.Request.Method, c.Request.URL.Path),
					c.Request, honeybadger.Context{"stack": string(debug.Stack()), "request_id": RequestID(c)},
					honeybadger.Tags{"panic", "http"})
				logger.Error("Recovered from panic, notified Honeybadger: ", rec)
				panic(rec)
			}
		}()

		c.Next()

		status := c.Writer.Status()
		if status < http.StatusBadRequest || status == http.StatusNotFound {
			return
		}

		msg := fmt.Sprintf("HTTP %d: %s %s", status, c.Request.Method, c.Request.URL.Path)
		hbCtx := honeybadger.Context{"request_id": RequestID(c)}
		switch {
		case status == http.StatusBadGateway:
			_, _ = n.Notify("Upstream: "+msg, c.Request, hbCtx, honeybadger.Tags{"upstream", "http"})
		case status >= http.StatusInternalServerError:
			_, _ = n.Notify("Error: "+msg, c.Request, hbCtx, honeybadger.Tags{"5XX", "http"})
		default:
			_, _ = n.Notify("Warning: "+msg, hbCtx, honeybadger.Tags{"4XX", "http"})
		}
		logger.Warnf("Honeybadger reported %s", msg)
	}
}
