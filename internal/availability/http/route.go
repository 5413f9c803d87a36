package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/practitioners/:id/availability")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.GET("", h.Get)                               // Rules and overrides
		group.GET("/effective", h.Effective)               // Window in force on ?date=
		group.PUT("/rules/:day", h.SetRule)                // Upsert weekday rule
		group.DELETE("/rules/:day", h.RemoveRule)          // Remove weekday rule
		group.PUT("/overrides/:date", h.SetOverride)       // Upsert date override
		group.DELETE("/overrides/:date", h.RemoveOverride) // Remove date override
	}
}
