package app

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"academy/internal/handler"
	"academy/internal/metrics"
)

// Router builds the gin engine serving the API.
func (a *App) Router() *gin.Engine {
	r := gin.New()
	r.Use(a.Reporter.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/readyz", "/metrics"},
	}))
	r.Use(cors.New(corsConfig(a.Config.CORSOrigins)))
	r.Use(securityHeaders())
	r.Use(metrics.GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := handler.New(handler.Deps{
		Signer:     a.Signer,
		Accounts:   a.Accounts,
		Roster:     a.Roster,
		Attendance: a.Attendance,
		Assessment: a.Assessment,
		Walkie:     a.Walkie,
		Settings:   a.Settings,
		Bus:        a.Bus,
		Reporter:   a.Reporter,
		Limiter:    a.Limiter,
		Checks:     a.Checks(),
	})
	h.Register(r)
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Disposition", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// securityHeaders sets browser hardening headers.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

// Server wraps the router with the timeouts used in production. Writes are
// not bounded because /v1/live and /v1/walkie hold connections open.
func (a *App) Server() *http.Server {
	return &http.Server{
		Addr:              ":" + a.Config.HTTPPort,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
