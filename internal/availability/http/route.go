package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/studio-booking-backend/internal/auth"
)

// RegisterRoutes registers availability routes.
func RegisterRoutes(r gin.IRouter, h *Handler, authMiddleware gin.HandlerFunc) {
	// === Public Routes ===
	r.GET("/availability", h.Resolve)

	// === Professional Routes ===
	group := r.Group("/professionals/:id", authMiddleware, auth.RequireSelf())
	{
		group.GET("/availability/:date", h.GetSchedule)
		group.PUT("/availability/:date", h.ReplaceSchedule)
		group.POST("/blocks", h.CreateBlock)
		group.DELETE("/blocks/:date/:start", h.DeleteBlock)
	}
}
