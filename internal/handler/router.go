package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/examdesk/colloquium-api/internal/middleware"
	"github.com/examdesk/colloquium-api/internal/models"
	"github.com/examdesk/colloquium-api/internal/service"
)

// Handlers bundles every HTTP handler the API mounts.
type Handlers struct {
	Auth     *AuthHandler
	Exams    *ExamHandler
	Staff    *StaffHandler
	Settings *SettingsHandler
	Plans    *PlanHandler
	Merges   *MergeHandler
	Exports  *ExportHandler
	Imports  *ImportHandler
	Metrics  *MetricsHandler
}

// RegisterRoutes mounts the API surface under prefix. Reads are open to any
// authenticated user; every mutation requires the ADMIN role.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, auth *service.AuthService) {
	api := r.Group(prefix)

	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)

	protected := api.Group("")
	protected.Use(middleware.JWT(auth))

	protected.POST("/auth/logout", h.Auth.Logout)
	protected.GET("/auth/me", h.Auth.Me)

	admin := middleware.RequireRoles(models.RoleAdmin)

	exams := protected.Group("/exams")
	{
		exams.GET("", h.Exams.List)
		exams.GET("/:id", h.Exams.Get)
		exams.POST("", admin, h.Exams.Create)
		exams.PUT("/:id", admin, h.Exams.Update)
		exams.DELETE("/:id", admin, h.Exams.Delete)
	}

	staff := protected.Group("/staff")
	{
		staff.GET("", h.Staff.List)
		staff.GET("/:id", h.Staff.Get)
		staff.GET("/:id/availability/check", h.Staff.CheckAvailability)
		staff.POST("", admin, h.Staff.Create)
		staff.PUT("/:id", admin, h.Staff.Update)
		staff.PUT("/:id/availability", admin, h.Staff.UpdateAvailability)
		staff.DELETE("/:id", admin, h.Staff.Delete)
	}

	settings := protected.Group("/settings")
	{
		settings.GET("/schedule", h.Settings.GetScheduleConfig)
		settings.PUT("/schedule", admin, h.Settings.UpdateScheduleConfig)
		settings.GET("/rooms", h.Settings.ListRoomMappings)
		settings.PUT("/rooms", admin, h.Settings.UpsertRoomMapping)
		settings.DELETE("/rooms/:area", admin, h.Settings.DeleteRoomMapping)
	}

	versions := protected.Group("/versions")
	{
		versions.GET("", h.Plans.ListVersions)
		versions.GET("/:id/plan", h.Plans.GetPlan)
		versions.GET("/:id/export", h.Exports.Export)
		versions.POST("", admin, h.Plans.CreateVersion)
		versions.POST("/:id/generate", admin, h.Plans.Generate)
		versions.POST("/:id/publish", admin, h.Plans.Publish)
		versions.POST("/:id/merge/validate", admin, h.Merges.Validate)
		versions.POST("/:id/merge/alternatives", admin, h.Merges.Alternatives)
		versions.POST("/:id/merge", admin, h.Merges.Commit)
	}

	events := protected.Group("/events")
	{
		events.POST("/:id/cancel", admin, h.Plans.CancelEvent)
		events.POST("/:id/reschedule", admin, h.Plans.RescheduleEvent)
		events.PUT("/:id/protocolist", admin, h.Plans.ChangeProtocolist)
	}

	protected.POST("/import", admin, h.Imports.Import)
}
