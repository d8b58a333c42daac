package handler

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"academy/internal/apperr"
	"academy/internal/walkie"
)

// ---------- Walkie-talkie ----------

// SendBroadcast expects a multipart form with a "clip" file and its
// "duration_ms".
func (h *Handler) SendBroadcast(c *gin.Context) {
	ctx := c.Request.Context()
	cfg, err := h.Settings.Get(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !cfg.WalkieEnabled {
		h.fail(c, apperr.New(apperr.CodeUnavailable, "walkie-talkie is disabled"))
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, walkie.MaxClipBytes+64<<10)
	file, header, err := c.Request.FormFile("clip")
	if err != nil {
		h.fail(c, apperr.Invalid("clip file is required"))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		h.fail(c, apperr.Wrap(apperr.CodeInvalidArgument, "failed to read clip", err))
		return
	}
	ms, err := strconv.Atoi(c.PostForm("duration_ms"))
	if err != nil {
		h.fail(c, apperr.Invalid("duration_ms must be a number"))
		return
	}

	p := profileFrom(c)
	b, err := h.Walkie.Send(ctx, walkie.Clip{
		SenderID:   p.AccountID,
		SenderName: p.FullName,
		MIMEType:   header.Header.Get("Content-Type"),
		Duration:   time.Duration(ms) * time.Millisecond,
		Data:       data,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, b)
}

func (h *Handler) ListBroadcasts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.Walkie.Recent(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	if list == nil {
		list = []walkie.Broadcast{}
	}
	c.JSON(http.StatusOK, gin.H{"broadcasts": list})
}

func (h *Handler) BroadcastAudio(c *gin.Context) {
	data, mime, err := h.Walkie.Audio(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=86400")
	c.Data(http.StatusOK, mime, data)
}

// Tone serves the push-to-talk chirp played before and after a clip.
func (h *Handler) Tone(c *gin.Context) {
	wav, err := walkie.Tone(c.DefaultQuery("kind", walkie.ToneStart))
	if err != nil {
		h.fail(c, apperr.Invalid("kind must be start or end"))
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "audio/wav", wav)
}
