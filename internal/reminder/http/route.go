package http

import "github.com/gin-gonic/gin"

func RegisterRoutes(r gin.IRouter, h *Handler, cronMiddleware gin.HandlerFunc) {
	r.POST("/cron/reminders", cronMiddleware, h.Run)
}
