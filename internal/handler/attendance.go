package handler

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ---------- Attendance ----------

type checkInRequest struct {
	SubjectID string `json:"subject_id" binding:"required,uuid"`
	Kind      string `json:"kind" binding:"omitempty,oneof=student coach"`
}

func (h *Handler) CheckIn(c *gin.Context) {
	var req checkInRequest
	if !h.bind(c, &req) {
		return
	}
	m, err := h.Attendance.CheckIn(c.Request.Context(), req.SubjectID, req.Kind)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

type checkOutRequest struct {
	SubjectID string `json:"subject_id" binding:"required,uuid"`
}

func (h *Handler) CheckOut(c *gin.Context) {
	var req checkOutRequest
	if !h.bind(c, &req) {
		return
	}
	m, err := h.Attendance.CheckOut(c.Request.Context(), req.SubjectID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) TodayMarks(c *gin.Context) {
	marks, err := h.Attendance.Marks(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"day": h.Attendance.Today(), "marks": marks})
}

func (h *Handler) AttendanceHistory(c *gin.Context) {
	marks, err := h.Attendance.History(c.Request.Context(), c.Query("subject_id"), c.Query("from"), c.Query("to"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marks": marks})
}

func (h *Handler) ExportAttendance(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.Attendance.ExportCSV(c.Request.Context(), c.Query("from"), c.Query("to"), &buf); err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="attendance.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *Handler) LiveBoard(c *gin.Context) {
	board, err := h.Attendance.LiveBoard(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}
