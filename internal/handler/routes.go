package handler

import (
	"github.com/gin-gonic/gin"

	"academy/internal/auth"
	"academy/internal/httpmiddleware"
)

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	pub := r.Group("/v1")
	if h.Limiter != nil {
		pub.Use(httpmiddleware.RateLimit(h.Limiter))
	}
	pub.POST("/auth/login", h.Login)
	pub.POST("/auth/refresh", h.Refresh)
	pub.POST("/auth/logout", h.Logout)
	pub.GET("/settings", h.GetSettings)
	pub.GET("/broadcasts/tone.wav", h.Tone)

	v1 := r.Group("/v1", auth.Bearer(h.Signer))
	if h.Limiter != nil {
		v1.Use(httpmiddleware.RateLimit(h.Limiter))
	}
	v1.Use(h.RequireProfile())

	staff := auth.RequireRole(auth.RoleAdmin, auth.RoleCoach)
	admin := auth.RequireRole(auth.RoleAdmin)

	v1.GET("/me", h.Me)
	v1.PATCH("/me", h.UpdateMe)
	v1.PUT("/settings", admin, h.UpdateSettings)

	v1.POST("/accounts", admin, h.CreateAccount)
	v1.GET("/profiles", admin, h.ListProfiles)
	v1.PATCH("/profiles/:id", admin, h.UpdateProfile)
	v1.GET("/coaches", staff, h.ListCoaches)
	v1.GET("/coaches/:id/groups", staff, h.CoachGroups)

	v1.GET("/students", staff, h.ListStudents)
	v1.POST("/students", admin, h.CreateStudent)
	v1.GET("/students/:id", staff, h.GetStudent)
	v1.PUT("/students/:id", admin, h.UpdateStudent)
	v1.POST("/students/:id/photo", staff, h.UploadPhoto)
	v1.GET("/students/:id/assessments", staff, h.AssessmentHistory)

	v1.GET("/groups", staff, h.ListGroups)
	v1.POST("/groups", admin, h.CreateGroup)
	v1.GET("/groups/:id", staff, h.GetGroup)
	v1.PUT("/groups/:id", admin, h.UpdateGroup)
	v1.DELETE("/groups/:id", admin, h.DeleteGroup)
	v1.POST("/groups/:id/members", staff, h.AddMember)
	v1.DELETE("/groups/:id/members/:studentId", staff, h.RemoveMember)

	v1.POST("/attendance/check-in", staff, h.CheckIn)
	v1.POST("/attendance/check-out", staff, h.CheckOut)
	v1.GET("/attendance/today", staff, h.TodayMarks)
	v1.GET("/attendance/history", staff, h.AttendanceHistory)
	v1.GET("/attendance/export", staff, h.ExportAttendance)
	v1.GET("/attendance/live", h.LiveBoard)
	v1.GET("/live", h.LiveFeed)

	v1.GET("/skills", staff, h.ListSkills)
	v1.POST("/skills", admin, h.CreateSkill)
	v1.DELETE("/skills/:id", admin, h.DeleteSkill)

	drafts := v1.Group("/assessments", staff)
	drafts.GET("/report", h.AssessmentReport)
	drafts.POST("/drafts", h.StartDraft)
	drafts.GET("/drafts/:id", h.GetDraft)
	drafts.DELETE("/drafts/:id", h.DiscardDraft)
	drafts.PATCH("/drafts/:id/cells", h.ApplyCells)
	drafts.POST("/drafts/:id/skills", h.DraftAddSkill)
	drafts.DELETE("/drafts/:id/skills/:skillId", h.DraftRemoveSkill)
	drafts.POST("/drafts/:id/students", h.DraftAddStudent)
	drafts.DELETE("/drafts/:id/students/:studentId", h.DraftRemoveStudent)
	drafts.POST("/drafts/:id/undo", h.UndoDraft)
	drafts.POST("/drafts/:id/save", h.SaveDraft)
	drafts.GET("/drafts/:id/export", h.ExportDraft)

	v1.GET("/broadcasts", h.ListBroadcasts)
	v1.POST("/broadcasts", staff, h.SendBroadcast)
	v1.GET("/broadcasts/:id/audio", h.BroadcastAudio)
	v1.GET("/walkie", h.WalkieFeed)
}
