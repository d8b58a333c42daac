package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"academy/internal/apperr"
	"academy/internal/auth"
	"academy/internal/roster"
	"academy/internal/validation"
)

const maxPhotoBytes = 5 << 20

// ---------- Students ----------

func (h *Handler) ListStudents(c *gin.Context) {
	f := roster.StudentFilter{
		Query:      c.Query("q"),
		ActiveOnly: c.Query("active") == "true",
		Limit:      50,
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 500 {
		f.Limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v >= 0 {
		f.Offset = v
	}
	list, err := h.Roster.Students(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": list})
}

func (h *Handler) CreateStudent(c *gin.Context) {
	var req roster.StudentInput
	if !h.bind(c, &req) {
		return
	}
	st, err := h.Roster.CreateStudent(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (h *Handler) GetStudent(c *gin.Context) {
	st, err := h.Roster.Student(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) UpdateStudent(c *gin.Context) {
	var req roster.StudentInput
	if !h.bind(c, &req) {
		return
	}
	st, err := h.Roster.UpdateStudent(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// UploadPhoto expects a multipart form with a "photo" file.
func (h *Handler) UploadPhoto(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPhotoBytes)
	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		h.fail(c, apperr.Invalid("photo file is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.fail(c, apperr.Wrap(apperr.CodeInvalidArgument, "failed to read photo", err))
		return
	}
	st, err := h.Roster.SetPhoto(c.Request.Context(), c.Param("id"), data, header.Filename)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// ---------- Groups ----------

// ListGroups lists every group; mine=true narrows a coach to their own.
type groupQuery struct {
	Mine bool   `form:"mine" json:"mine"`
	Day  string `form:"day" json:"day" binding:"omitempty,weekday"`
}

// ListGroups accepts ?mine=true for the caller's groups and ?day=<weekday>
// for groups meeting that day.
func (h *Handler) ListGroups(c *gin.Context) {
	var q groupQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.fail(c, validation.Translate(err))
		return
	}
	coachID := ""
	if q.Mine {
		claims, _ := auth.ClaimsFrom(c)
		coachID = claims.Subject
	}
	h.groups(c, coachID, q.Day)
}

func (h *Handler) CoachGroups(c *gin.Context) {
	h.groups(c, c.Param("id"), c.Query("day"))
}

func (h *Handler) groups(c *gin.Context, coachID, day string) {
	list, err := h.Roster.GroupsOn(c.Request.Context(), coachID, day)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": list})
}

func (h *Handler) CreateGroup(c *gin.Context) {
	var req roster.GroupInput
	if !h.bind(c, &req) {
		return
	}
	g, err := h.Roster.CreateGroup(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (h *Handler) GetGroup(c *gin.Context) {
	g, err := h.Roster.Group(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *Handler) UpdateGroup(c *gin.Context) {
	var req roster.GroupInput
	if !h.bind(c, &req) {
		return
	}
	g, err := h.Roster.UpdateGroup(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *Handler) DeleteGroup(c *gin.Context) {
	if err := h.Roster.DeleteGroup(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type memberRequest struct {
	StudentID string `json:"student_id" binding:"required,uuid"`
}

func (h *Handler) AddMember(c *gin.Context) {
	var req memberRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.Roster.AddMember(c.Request.Context(), c.Param("id"), req.StudentID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) RemoveMember(c *gin.Context) {
	if err := h.Roster.RemoveMember(c.Request.Context(), c.Param("id"), c.Param("studentId")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
