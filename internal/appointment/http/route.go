package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/clinic-scheduler/internal/auth"
)

// RegisterRoutes registers appointment and slot routes.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/appointments")
	listRoles := auth.RequireRole(auth.RoleStaff, auth.RolePractitioner)

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.GET("", listRoles, h.List)           // List appointments
		group.POST("", h.Create)                   // Book appointment
		group.GET("/:id", h.Get)                   // Get appointment details
		group.PATCH("/:id", h.Reschedule)          // Move appointment
		group.PATCH("/:id/status", h.UpdateStatus) // Complete or cancel
		group.POST("/:id/cancel", h.Cancel)        // Cancel appointment
	}

	slots := g.Group("/practitioners/:id/slots")
	slots.Use(authMiddleware)
	{
		slots.GET("", h.Slots) // Free slots on ?date=
	}
}
