package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"academy/internal/settings"
)

// ---------- Settings ----------

func (h *Handler) GetSettings(c *gin.Context) {
	s, err := h.Settings.Get(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	var req settings.Settings
	if !h.bind(c, &req) {
		return
	}
	s, err := h.Settings.Update(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}
