package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/studio-booking-backend/internal/grid"
	"github.com/nekogravitycat/studio-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/studio-booking-backend/internal/reminder"
)

type Handler struct {
	service *reminder.Service
}

func NewHandler(service *reminder.Service) *Handler {
	return &Handler{service: service}
}

//
// POST /cron/reminders
//

func (h *Handler) Run(c *gin.Context) {
	res, err := h.service.SendTomorrow(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, RunResponse{
		Sent:  res.Sent,
		Total: res.Total,
		Date:  res.Date.Format(grid.DateLayout),
	})
}
