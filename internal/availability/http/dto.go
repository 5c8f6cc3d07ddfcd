package http

import (
	"github.com/nekogravitycat/studio-booking-backend/internal/availability"
	"github.com/nekogravitycat/studio-booking-backend/internal/grid"
)

// AvailabilityQuery defines query parameters for GET /availability.
type AvailabilityQuery struct {
	ProfessionalID string `form:"professional_id" binding:"required,uuid"`
	Date           string `form:"date" binding:"required"`
	Duration       int    `form:"duration" binding:"required,min=1,max=1440"`
}

type SlotResponse struct {
	Start    string `json:"start"`
	Bookable bool   `json:"bookable"`
}

type AvailabilityResponse struct {
	ProfessionalID string         `json:"professional_id"`
	Date           string         `json:"date"`
	Duration       int            `json:"duration"`
	Slots          []SlotResponse `json:"slots"`
}

func NewSlotResponses(slots []availability.Slot) []SlotResponse {
	out := make([]SlotResponse, len(slots))
	for i, s := range slots {
		out[i] = SlotResponse{Start: s.Start.String(), Bookable: s.Bookable}
	}
	return out
}

// DayRequest binds the :id and :date path parameters of the professional schedule routes.
type DayRequest struct {
	ID   string `uri:"id" binding:"required,uuid"`
	Date string `uri:"date" binding:"required"`
}

type WindowBody struct {
	Start string `json:"start" binding:"required"`
	Open  bool   `json:"open"`
}

// ReplaceWindowsRequest is the payload for PUT /professionals/:id/availability/:date.
// An empty list closes the whole date.
type ReplaceWindowsRequest struct {
	Slots []WindowBody `json:"slots" binding:"dive"`
}

// ToInputs converts the body into service inputs.
func (r *ReplaceWindowsRequest) ToInputs() ([]availability.WindowInput, error) {
	inputs := make([]availability.WindowInput, 0, len(r.Slots))
	for _, s := range r.Slots {
		start, err := grid.Parse(s.Start)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, availability.WindowInput{Start: start, Open: s.Open})
	}
	return inputs, nil
}

type WindowResponse struct {
	Start string `json:"start"`
	Open  bool   `json:"open"`
}

type BlockResponse struct {
	Date   string `json:"date"`
	Start  string `json:"start"`
	Reason string `json:"reason,omitempty"`
}

func NewBlockResponse(b *availability.Block) BlockResponse {
	return BlockResponse{
		Date:   b.Date.Format(grid.DateLayout),
		Start:  b.Start.String(),
		Reason: b.Reason,
	}
}

type ScheduleResponse struct {
	Date    string           `json:"date"`
	Windows []WindowResponse `json:"windows"`
	Blocks  []BlockResponse  `json:"blocks"`
}

func NewScheduleResponse(date string, windows []availability.Window, blocks []availability.Block) ScheduleResponse {
	resp := ScheduleResponse{
		Date:    date,
		Windows: make([]WindowResponse, len(windows)),
		Blocks:  make([]BlockResponse, len(blocks)),
	}
	for i, w := range windows {
		resp.Windows[i] = WindowResponse{Start: w.Start.String(), Open: w.Open}
	}
	for i := range blocks {
		resp.Blocks[i] = NewBlockResponse(&blocks[i])
	}
	return resp
}

// CreateBlockRequest is the payload for POST /professionals/:id/blocks.
type CreateBlockRequest struct {
	Date   string `json:"date" binding:"required"`
	Start  string `json:"start" binding:"required"`
	Reason string `json:"reason" binding:"max=200"`
}

// DeleteBlockRequest binds DELETE /professionals/:id/blocks/:date/:start.
type DeleteBlockRequest struct {
	ID    string `uri:"id" binding:"required,uuid"`
	Date  string `uri:"date" binding:"required"`
	Start string `uri:"start" binding:"required"`
}
