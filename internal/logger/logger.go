// Package logger reports server errors to Rollbar alongside the standard log.
package logger

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rollbar/rollbar-go"
)

// Reporter logs errors and forwards them to Rollbar when a token is set.
type Reporter struct {
	std    *log.Logger
	client *rollbar.Client
}

// New creates a reporter. An empty token only logs.
func New(std *log.Logger, token, env, service string) *Reporter {
	if std == nil {
		std = log.Default()
	}
	r := &Reporter{std: std}
	if token != "" {
		host, _ := os.Hostname()
		r.client = rollbar.New(token, env, "", host, "")
		r.client.SetCustom(map[string]interface{}{"service": service})
	}
	return r
}

// Enabled reports whether errors reach Rollbar.
func (r *Reporter) Enabled() bool { return r != nil && r.client != nil }

// Error logs err and reports it with extras.
func (r *Reporter) Error(msg string, err error, extras map[string]interface{}) {
	if r == nil {
		log.Printf("%s: %v", msg, err)
		return
	}
	r.std.Printf("%s: %v", msg, err)
	if r.client != nil {
		if extras == nil {
			extras = map[string]interface{}{}
		}
		extras["message"] = msg
		r.client.ErrorWithExtras(rollbar.ERR, err, extras)
	}
}

// RequestError logs and reports an error raised while serving req.
func (r *Reporter) RequestError(req *http.Request, err error) {
	if r == nil {
		log.Printf("%s %s: %v", req.Method, req.URL.Path, err)
		return
	}
	r.std.Printf("%s %s: %v", req.Method, req.URL.Path, err)
	if r.client != nil {
		r.client.RequestError(rollbar.ERR, req, err)
	}
}

// Recovery returns gin middleware that reports panics as critical errors
// and answers 500.
func (r *Reporter) Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		err := fmt.Errorf("panic: %v", recovered)
		r.std.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		if r.client != nil {
			r.client.RequestError(rollbar.CRIT, c.Request, err)
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL"})
	})
}

// Close flushes pending reports.
func (r *Reporter) Close() {
	if r != nil && r.client != nil {
		_ = r.client.Close()
	}
}
