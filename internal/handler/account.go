package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"academy/internal/account"
	"academy/internal/auth"
)

// ---------- Auth ----------

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req) {
		return
	}
	pair, profile, err := h.Accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": pair, "profile": profile})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !h.bind(c, &req) {
		return
	}
	pair, err := h.Accounts.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (h *Handler) Logout(c *gin.Context) {
	var req refreshRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.Accounts.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ---------- Profiles ----------

func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, profileFrom(c))
}

// UpdateMe edits the caller's own profile. Role changes are admin-only.
func (h *Handler) UpdateMe(c *gin.Context) {
	var req account.ProfileUpdate
	if !h.bind(c, &req) {
		return
	}
	req.Role = nil
	p, err := h.Accounts.UpdateProfile(c.Request.Context(), profileFrom(c).AccountID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) CreateAccount(c *gin.Context) {
	var req account.NewAccount
	if !h.bind(c, &req) {
		return
	}
	p, err := h.Accounts.Register(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) ListProfiles(c *gin.Context) {
	list, err := h.Accounts.Profiles(c.Request.Context(), c.Query("role"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": list})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req account.ProfileUpdate
	if !h.bind(c, &req) {
		return
	}
	p, err := h.Accounts.UpdateProfile(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) ListCoaches(c *gin.Context) {
	list, err := h.Accounts.Profiles(c.Request.Context(), auth.RoleCoach)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coaches": list})
}
