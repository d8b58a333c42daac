// Package handler exposes the academy services over HTTP with gin.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"academy/internal/account"
	"academy/internal/apperr"
	"academy/internal/assessment"
	"academy/internal/attendance"
	"academy/internal/auth"
	"academy/internal/events"
	"academy/internal/httpmiddleware"
	"academy/internal/logger"
	"academy/internal/roster"
	"academy/internal/settings"
	"academy/internal/validation"
	"academy/internal/walkie"
)

const profileKey = "profile"

// Deps are the services the handlers call.
type Deps struct {
	Signer     *auth.Signer
	Accounts   *account.Service
	Roster     *roster.Service
	Attendance *attendance.Service
	Assessment *assessment.Service
	Walkie     *walkie.Service
	Settings   *settings.Service
	Bus        events.Bus
	Reporter   *logger.Reporter
	// Limiter throttles authenticated routes; nil disables rate limiting.
	Limiter httpmiddleware.Limiter
	// Checks are readiness probes keyed by dependency name.
	Checks map[string]func(context.Context) bool
	// LiveTick is how often /v1/live re-sends the board without changes.
	LiveTick time.Duration
}

type Handler struct {
	Deps
}

func New(d Deps) *Handler {
	if d.LiveTick <= 0 {
		d.LiveTick = time.Minute
	}
	validation.Engine()
	return &Handler{Deps: d}
}

// ---------- Health ----------

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Readyz(c *gin.Context) {
	status := http.StatusOK
	res := gin.H{}
	for name, check := range h.Checks {
		ok := check(c.Request.Context())
		res[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
		}
	}
	res["status"] = http.StatusText(status)
	c.JSON(status, res)
}

// ---------- Middleware ----------

// RequireProfile loads the caller's profile. Accounts without a profile are
// signed out everywhere and told to discard their tokens.
func (h *Handler) RequireProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := auth.ClaimsFrom(c)
		if !ok {
			h.fail(c, apperr.Unauthenticated("not signed in"))
			return
		}
		p, err := h.Accounts.Ensure(c.Request.Context(), claims)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.Set(profileKey, p)
		c.Next()
	}
}

func profileFrom(c *gin.Context) account.Profile {
	v, _ := c.Get(profileKey)
	p, _ := v.(account.Profile)
	return p
}

// ---------- Responses ----------

// fail writes err as {"error", "code", "details"} with the status of its code.
// Errors without a code are reported and hidden behind a generic message.
func (h *Handler) fail(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	status := code.HTTPStatus()
	body := gin.H{"code": code}

	var ae *apperr.Error
	if errors.As(err, &ae) && status < http.StatusInternalServerError {
		body["error"] = ae.Message
		if len(ae.Metadata) > 0 {
			body["details"] = ae.Metadata
		}
	} else {
		body["error"] = "internal error"
		if ae != nil && ae.Message != "" {
			body["error"] = ae.Message
			if len(ae.Metadata) > 0 {
				body["details"] = ae.Metadata
			}
		}
		if sc := trace.SpanFromContext(c.Request.Context()).SpanContext(); sc.HasTraceID() {
			body["trace_id"] = sc.TraceID().String()
		}
		h.Reporter.RequestError(c.Request, err)
	}
	if code == apperr.CodeGhostProfile {
		body["sign_out"] = true
	}
	c.AbortWithStatusJSON(status, body)
}

// bind decodes a JSON body and writes a translated validation error.
func (h *Handler) bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		h.fail(c, validation.Translate(err))
		return false
	}
	return true
}
