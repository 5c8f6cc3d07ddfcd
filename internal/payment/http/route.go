package http

import "github.com/gin-gonic/gin"

func RegisterRoutes(r gin.IRouter, h *Handler) {
	r.POST("/payments/webhook", h.Webhook)
}
