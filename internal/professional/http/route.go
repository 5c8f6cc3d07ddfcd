package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers professional-related routes.
// loginLimiter throttles credential guessing and may be nil.
func RegisterRoutes(r gin.IRouter, h *Handler, loginLimiter gin.HandlerFunc) {
	group := r.Group("/professionals")

	// === Public Routes ===
	group.GET("", h.List)

	if loginLimiter != nil {
		group.POST("/login", loginLimiter, h.Login)
	} else {
		group.POST("/login", h.Login)
	}
}
