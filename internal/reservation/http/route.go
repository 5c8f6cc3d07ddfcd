package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers booking routes. createLimiter may be nil.
func RegisterRoutes(r gin.IRouter, h *Handler, adminMiddleware gin.HandlerFunc, createLimiter gin.HandlerFunc) {
	group := r.Group("/bookings")

	// === Public Routes ===
	if createLimiter != nil {
		group.POST("", createLimiter, h.Create)
	} else {
		group.POST("", h.Create)
	}
	group.GET("/:id", h.Get)

	// === Studio Admin Routes ===
	group.POST("/:id/cancel", adminMiddleware, h.Cancel)
	group.POST("/:id/confirm", adminMiddleware, h.Confirm)
}
