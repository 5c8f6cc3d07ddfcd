package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/studio-booking-backend/internal/availability"
	"github.com/nekogravitycat/studio-booking-backend/internal/grid"
	"github.com/nekogravitycat/studio-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/studio-booking-backend/internal/pkg/response"
)

type Handler struct {
	service availability.Service
}

func NewHandler(service availability.Service) *Handler {
	return &Handler{service: service}
}

//
// GET /availability
//

func (h *Handler) Resolve(c *gin.Context) {
	var q AvailabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Invalid(c, "invalid query parameters", err)
		return
	}

	date, err := grid.ParseDate(q.Date)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	slots, err := h.service.Resolve(c.Request.Context(), q.ProfessionalID, date, q.Duration)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, AvailabilityResponse{
		ProfessionalID: q.ProfessionalID,
		Date:           date.Format(grid.DateLayout),
		Duration:       q.Duration,
		Slots:          NewSlotResponses(slots),
	})
}

//
// GET /professionals/:id/availability/:date
//

func (h *Handler) GetSchedule(c *gin.Context) {
	var req DayRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.BadRequest(c, "invalid path parameters")
		return
	}
	date, err := grid.ParseDate(req.Date)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	windows, err := h.service.Windows(ctx, req.ID, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	blocks, err := h.service.Blocks(ctx, req.ID, date)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewScheduleResponse(date.Format(grid.DateLayout), windows, blocks))
}

//
// PUT /professionals/:id/availability/:date
//

func (h *Handler) ReplaceSchedule(c *gin.Context) {
	var req DayRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.BadRequest(c, "invalid path parameters")
		return
	}
	date, err := grid.ParseDate(req.Date)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var body ReplaceWindowsRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Invalid(c, "invalid request body", err)
		return
	}
	inputs, err := body.ToInputs()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	windows, err := h.service.ReplaceWindows(ctx, req.ID, date, inputs)
	if err != nil {
		response.Error(c, err)
		return
	}
	blocks, err := h.service.Blocks(ctx, req.ID, date)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewScheduleResponse(date.Format(grid.DateLayout), windows, blocks))
}

//
// POST /professionals/:id/blocks
//

func (h *Handler) CreateBlock(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid UUID")
		return
	}

	var body CreateBlockRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Invalid(c, "invalid request body", err)
		return
	}
	date, err := grid.ParseDate(body.Date)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	start, err := grid.Parse(body.Start)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	b, err := h.service.Block(c.Request.Context(), availability.BlockRequest{
		ProfessionalID: uri.ID,
		Date:           date,
		Start:          start,
		Reason:         body.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewBlockResponse(b))
}

//
// DELETE /professionals/:id/blocks/:date/:start
//

func (h *Handler) DeleteBlock(c *gin.Context) {
	var req DeleteBlockRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.BadRequest(c, "invalid path parameters")
		return
	}
	date, err := grid.ParseDate(req.Date)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	start, err := grid.Parse(req.Start)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.service.Unblock(c.Request.Context(), req.ID, date, start); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
