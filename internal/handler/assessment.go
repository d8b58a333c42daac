package handler

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"academy/internal/apperr"
	"academy/internal/assessment"
)

// ---------- Skills ----------

func (h *Handler) ListSkills(c *gin.Context) {
	list, err := h.Assessment.Skills(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if list == nil {
		list = []assessment.Skill{}
	}
	c.JSON(http.StatusOK, gin.H{"skills": list})
}

func (h *Handler) CreateSkill(c *gin.Context) {
	var req assessment.SkillInput
	if !h.bind(c, &req) {
		return
	}
	s, err := h.Assessment.CreateSkill(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (h *Handler) DeleteSkill(c *gin.Context) {
	if err := h.Assessment.DeleteSkill(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) AssessmentHistory(c *gin.Context) {
	list, err := h.Assessment.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if list == nil {
		list = []assessment.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"assessments": list})
}

// ---------- Drafts ----------

func (h *Handler) StartDraft(c *gin.Context) {
	var req assessment.DraftInput
	if !h.bind(c, &req) {
		return
	}
	d, err := h.Assessment.StartDraft(c.Request.Context(), req, profileFrom(c).AccountID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDraft(c *gin.Context) {
	h.draftResult(c)(h.Assessment.Draft(c.Request.Context(), c.Param("id")))
}

func (h *Handler) DiscardDraft(c *gin.Context) {
	if err := h.Assessment.Discard(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type cellsRequest struct {
	Cells []assessment.Cell `json:"cells" binding:"required,min=1,dive"`
}

// ApplyCells applies a batch of edits; a rejected cell rejects the batch.
func (h *Handler) ApplyCells(c *gin.Context) {
	var req cellsRequest
	if !h.bind(c, &req) {
		return
	}
	h.draftResult(c)(h.Assessment.ApplyCells(c.Request.Context(), c.Param("id"), req.Cells))
}

type skillRequest struct {
	SkillID string `json:"skill_id" binding:"required"`
}

func (h *Handler) DraftAddSkill(c *gin.Context) {
	var req skillRequest
	if !h.bind(c, &req) {
		return
	}
	h.draftResult(c)(h.Assessment.AddSkill(c.Request.Context(), c.Param("id"), req.SkillID))
}

func (h *Handler) DraftRemoveSkill(c *gin.Context) {
	h.draftResult(c)(h.Assessment.RemoveSkill(c.Request.Context(), c.Param("id"), c.Param("skillId")))
}

func (h *Handler) DraftAddStudent(c *gin.Context) {
	var req memberRequest
	if !h.bind(c, &req) {
		return
	}
	h.draftResult(c)(h.Assessment.AddStudent(c.Request.Context(), c.Param("id"), req.StudentID))
}

func (h *Handler) DraftRemoveStudent(c *gin.Context) {
	h.draftResult(c)(h.Assessment.RemoveStudent(c.Request.Context(), c.Param("id"), c.Param("studentId")))
}

// UndoDraft reverts the last edit of a draft.
func (h *Handler) UndoDraft(c *gin.Context) {
	h.draftResult(c)(h.Assessment.Undo(c.Request.Context(), c.Param("id")))
}

func (h *Handler) SaveDraft(c *gin.Context) {
	d, err := h.Assessment.Save(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": len(d.Grid.Rows), "assessed_on": d.AssessedOn})
}

func (h *Handler) draftResult(c *gin.Context) func(assessment.Draft, error) {
	return func(d assessment.Draft, err error) {
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, d)
	}
}

// ---------- Export ----------

func (h *Handler) ExportDraft(c *gin.Context) {
	d, err := h.Assessment.Draft(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.writeGrid(c, "assessment-"+d.AssessedOn, "Assessment "+d.AssessedOn, d.Grid)
}

// AssessmentReport returns the saved grid of a group for a day as JSON, CSV
// or PDF.
func (h *Handler) AssessmentReport(c *gin.Context) {
	groupID, day := c.Query("group_id"), c.Query("day")
	if groupID == "" {
		h.fail(c, apperr.Invalid("group_id is required"))
		return
	}
	g, err := h.Assessment.Report(c.Request.Context(), groupID, day)
	if err != nil {
		h.fail(c, err)
		return
	}
	if c.DefaultQuery("format", "json") == "json" {
		c.JSON(http.StatusOK, g)
		return
	}
	h.writeGrid(c, "report-"+day, "Assessment report "+day, g)
}

func (h *Handler) writeGrid(c *gin.Context, filename, title string, g assessment.Grid) {
	var buf bytes.Buffer
	var contentType string
	switch c.DefaultQuery("format", "csv") {
	case "csv":
		contentType, filename = "text/csv; charset=utf-8", filename+".csv"
		if err := assessment.WriteCSV(&buf, g); err != nil {
			h.fail(c, err)
			return
		}
	case "pdf":
		contentType, filename = "application/pdf", filename+".pdf"
		if err := assessment.WritePDF(&buf, title, g); err != nil {
			h.fail(c, err)
			return
		}
	default:
		h.fail(c, apperr.Invalid("format must be csv or pdf"))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
